package core

import (
	"math"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SlotConfig carries the configured constants the slot/round service needs.
// It is populated from pkg/config.Config at startup.
type SlotConfig struct {
	EpochTime             time.Time
	SlotIntervalSeconds   int64
	ActiveDelegatesCount  int
}

// SlotService (C1) maps timestamps to slot numbers, computes round
// boundaries, and produces the deterministic per-round delegate schedule.
type SlotService struct {
	cfg SlotConfig

	// roundCache memoizes generated schedules keyed by round number. It is
	// safe to evict entries: any round's schedule is a pure function of
	// its seed and can always be recomputed.
	roundCache *lru.Cache[uint64, *Round]
}

// NewSlotService builds a slot service. cacheSize bounds the round
// schedule LRU; 8 keeps the current round plus recent history resident
// without unbounded growth.
func NewSlotService(cfg SlotConfig, cacheSize int) *SlotService {
	if cacheSize <= 0 {
		cacheSize = 8
	}
	cache, _ := lru.New[uint64, *Round](cacheSize)
	return &SlotService{cfg: cfg, roundCache: cache}
}

// GetSlotNumber converts a wall-clock time (defaulting to now when t is the
// zero value) into a slot number relative to the configured epoch anchor.
func (s *SlotService) GetSlotNumber(t time.Time) uint64 {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	elapsed := t.Unix() - s.cfg.EpochTime.Unix()
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed) / uint64(s.cfg.SlotIntervalSeconds)
}

// GetSlotNumberFromCreatedAt converts a block's epoch-relative createdAt
// seconds value directly into a slot number, without routing through a
// wall-clock time.Time — createdAt is already elapsed-since-epoch, so this
// avoids re-deriving "now" for values that describe the past.
func (s *SlotService) GetSlotNumberFromCreatedAt(createdAt int32) uint64 {
	if createdAt < 0 {
		return 0
	}
	return uint64(createdAt) / uint64(s.cfg.SlotIntervalSeconds)
}

// GetSlotTime returns the Unix time, in seconds, at which slot begins.
func (s *SlotService) GetSlotTime(slot uint64) int64 {
	return s.cfg.EpochTime.Unix() + int64(slot)*s.cfg.SlotIntervalSeconds
}

// CalcRound returns the round number a given block height belongs to:
// ceil(height / activeDelegatesCount), rounds being 1-indexed like height.
func (s *SlotService) CalcRound(height uint64) uint64 {
	if s.cfg.ActiveDelegatesCount == 0 {
		return 0
	}
	n := float64(s.cfg.ActiveDelegatesCount)
	return uint64(math.Ceil(float64(height) / n))
}

// GetFirstSlotNumberInRound returns the first slot number belonging to the
// round that contains time t.
func (s *SlotService) GetFirstSlotNumberInRound(t time.Time, activeDelegatesCount int) uint64 {
	slot := s.GetSlotNumber(t)
	if activeDelegatesCount == 0 {
		return slot
	}
	n := uint64(activeDelegatesCount)
	return (slot / n) * n
}

// GetFirstSlotNumberInRoundFromCreatedAt mirrors GetFirstSlotNumberInRound
// for a block's epoch-relative createdAt value (see
// GetSlotNumberFromCreatedAt for why these don't share a time.Time path).
func (s *SlotService) GetFirstSlotNumberInRoundFromCreatedAt(createdAt int32, activeDelegatesCount int) uint64 {
	slot := s.GetSlotNumberFromCreatedAt(createdAt)
	if activeDelegatesCount == 0 {
		return slot
	}
	n := uint64(activeDelegatesCount)
	return (slot / n) * n
}

// Generate produces the delegate schedule for the round starting at
// firstSlot, deterministically shuffling delegates using a seed derived
// from the round number so every honest node computes the same order.
func (s *SlotService) Generate(roundNumber uint64, firstSlot uint64, startHeight uint64, activeDelegates []PublicKey) *Round {
	if r, ok := s.roundCache.Get(roundNumber); ok {
		return r
	}

	ordered := make([]PublicKey, len(activeDelegates))
	copy(ordered, activeDelegates)
	sort.Slice(ordered, func(i, j int) bool {
		return string(ordered[i][:]) < string(ordered[j][:])
	})

	shuffled := deterministicShuffle(ordered, roundSeed(roundNumber))

	round := &Round{
		Number:      roundNumber,
		StartHeight: startHeight,
		Slots:       make(map[PublicKey]*RoundSlot, len(shuffled)),
	}
	for i, pub := range shuffled {
		round.Slots[pub] = &RoundSlot{Slot: firstSlot + uint64(i)}
	}

	s.roundCache.Add(roundNumber, round)
	return round
}

// InvalidateRound drops a cached round, forcing the next Generate call for
// that round number to recompute it. Used by BlockService's last-block
// deletion when it changes which slots are marked forged.
func (s *SlotService) InvalidateRound(roundNumber uint64) {
	s.roundCache.Remove(roundNumber)
}

// roundSeed derives a 64-bit shuffle seed from the round number. Every
// honest node computes the identical value since it depends only on public
// chain state.
func roundSeed(roundNumber uint64) uint64 {
	// splitmix64 finalizer — fast, well distributed, and free of any
	// external RNG dependency so the schedule is reproducible byte-for-byte
	// across nodes and across re-runs in tests.
	z := roundNumber + 0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// deterministicShuffle applies a Fisher-Yates shuffle driven by a seeded
// splitmix64 stream, avoiding math/rand so the result is stable across Go
// versions.
func deterministicShuffle(in []PublicKey, seed uint64) []PublicKey {
	out := make([]PublicKey, len(in))
	copy(out, in)
	state := seed
	next := func() uint64 {
		state += 0x9E3779B97F4A7C15
		z := state
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		return z ^ (z >> 31)
	}
	for i := len(out) - 1; i > 0; i-- {
		j := int(next() % uint64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}
