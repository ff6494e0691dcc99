package core

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// TransactionQueue (C4) is the FIFO of candidate transactions awaiting
// pool admission. A single worker drains it; failures are logged and the
// transaction is dropped, never retried automatically.
type TransactionQueue struct {
	mu      sync.Mutex
	pending []*Transaction

	dispatcher *Dispatcher
	accounts   *AccountRegistry
	pool       *TransactionPool
	logger     *logrus.Entry
}

// NewTransactionQueue wires the queue to its collaborators.
func NewTransactionQueue(dispatcher *Dispatcher, accounts *AccountRegistry, pool *TransactionPool, logger *logrus.Logger) *TransactionQueue {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TransactionQueue{
		dispatcher: dispatcher,
		accounts:   accounts,
		pool:       pool,
		logger:     logger.WithField("component", "txqueue"),
	}
}

// Push enqueues a transaction for later draining.
func (q *TransactionQueue) Push(tx *Transaction) {
	q.mu.Lock()
	q.pending = append(q.pending, tx)
	q.mu.Unlock()
}

// Len reports how many transactions are currently queued.
func (q *TransactionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// DrainOne processes the oldest queued transaction, if any, returning
// whether one was processed. It performs: structural verify, duplicate
// check against pool and queue, sender resolution, verifyUnconfirmed, and
// on success a push into the pool with broadcast enabled.
func (q *TransactionQueue) DrainOne() bool {
	tx := q.pop()
	if tx == nil {
		return false
	}
	q.process(tx)
	return true
}

// DrainAll processes every currently queued transaction.
func (q *TransactionQueue) DrainAll() {
	for q.DrainOne() {
	}
}

func (q *TransactionQueue) pop() *Transaction {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	tx := q.pending[0]
	q.pending = q.pending[1:]
	return tx
}

func (q *TransactionQueue) process(tx *Transaction) {
	log := q.logger.WithField("txId", tx.ID.String())

	handler, ok := q.dispatcher.For(tx.Type)
	if !ok {
		log.WithField("type", tx.Type).Warn("dropping transaction with unknown type")
		return
	}
	if err := handler.Verify(tx, q.dispatcher.Fees()); err != nil {
		log.WithError(err).Warn("dropping transaction: verify failed")
		return
	}
	if q.pool.Has(tx.ID) {
		log.Debug("dropping duplicate transaction already in pool")
		return
	}
	q.mu.Lock()
	queued := false
	for _, p := range q.pending {
		if p.ID == tx.ID {
			queued = true
			break
		}
	}
	q.mu.Unlock()
	if queued {
		log.Debug("dropping duplicate transaction still queued")
		return
	}

	sender := q.accounts.GetOrCreateBySender(tx)
	if err := handler.VerifyUnconfirmed(tx, sender); err != nil {
		log.WithError(err).Warn("dropping transaction: verifyUnconfirmed failed")
		return
	}

	if err := q.pool.Push(tx, sender, true); err != nil {
		log.WithError(err).Warn("dropping transaction: pool push failed")
		return
	}
	tx.Status = TxInPool
}
