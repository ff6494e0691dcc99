package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics (DS5) wires chain height, mempool size, fork-cause counts and
// round slot occupancy onto a dedicated prometheus registry, rather than
// the global default one, so a node embedding multiple instances (tests,
// multi-chain tooling) never double-registers collectors. The collectors
// are all safe for concurrent use on their own, so Metrics needs no lock
// of its own.
type Metrics struct {
	Registry *prometheus.Registry

	height         prometheus.Gauge
	mempoolQueue   prometheus.Gauge
	mempoolPool    prometheus.Gauge
	roundSlots     prometheus.Gauge
	roundForged    prometheus.Gauge
	forkCauses     *prometheus.CounterVec
	blocksForged   prometheus.Counter
	blocksReceived prometheus.Counter
	txApplied      prometheus.Counter
	txRejected     *prometheus.CounterVec
}

// NewMetrics builds and registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lumend_chain_height",
			Help: "Height of the current chain tip.",
		}),
		mempoolQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lumend_mempool_queue_size",
			Help: "Transactions currently waiting in the FIFO queue.",
		}),
		mempoolPool: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lumend_mempool_pool_size",
			Help: "Transactions currently staged in the unconfirmed pool.",
		}),
		roundSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lumend_round_slot_count",
			Help: "Number of delegate slots in the current round.",
		}),
		roundForged: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lumend_round_slots_forged",
			Help: "Number of slots in the current round that have forged a block.",
		}),
		forkCauses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumend_fork_cause_total",
			Help: "Forks observed, labeled by the detected cause.",
		}, []string{"cause"}),
		blocksForged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumend_blocks_forged_total",
			Help: "Blocks generated locally by this delegate.",
		}),
		blocksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumend_blocks_received_total",
			Help: "Blocks accepted from the network.",
		}),
		txApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumend_transactions_applied_total",
			Help: "Transactions successfully applied to confirmed state.",
		}),
		txRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumend_transactions_rejected_total",
			Help: "Transactions rejected while the block service processed a block, labeled by stage.",
		}, []string{"stage"}),
	}

	reg.MustRegister(
		m.height,
		m.mempoolQueue,
		m.mempoolPool,
		m.roundSlots,
		m.roundForged,
		m.forkCauses,
		m.blocksForged,
		m.blocksReceived,
		m.txApplied,
		m.txRejected,
	)
	return m
}

func (m *Metrics) SetHeight(h uint64) { m.height.Set(float64(h)) }

func (m *Metrics) SetMempoolSizes(queueLen, poolLen int) {
	m.mempoolQueue.Set(float64(queueLen))
	m.mempoolPool.Set(float64(poolLen))
}

func (m *Metrics) SetRoundOccupancy(total, forged int) {
	m.roundSlots.Set(float64(total))
	m.roundForged.Set(float64(forged))
}

// ObserveForkCause increments the counter for a detected fork cause (1 or
// 5).
func (m *Metrics) ObserveForkCause(cause int) {
	m.forkCauses.WithLabelValues(causeLabel(cause)).Inc()
}

func causeLabel(cause int) string {
	switch cause {
	case 1:
		return "1"
	case 5:
		return "5"
	default:
		return "unknown"
	}
}

func (m *Metrics) IncBlockForged()   { m.blocksForged.Inc() }
func (m *Metrics) IncBlockReceived() { m.blocksReceived.Inc() }
func (m *Metrics) IncTxApplied()     { m.txApplied.Inc() }

// IncTxRejected records a rejection at stage; the block service uses
// "verify_unconfirmed" and "apply_unconfirmed".
func (m *Metrics) IncTxRejected(stage string) { m.txRejected.WithLabelValues(stage).Inc() }
