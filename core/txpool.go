package core

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// TransactionPool (C5) is the unconfirmed transaction set with secondary
// indices by sender and recipient address, conflict detection, and a
// sorted-pop operation feeding block generation.
type TransactionPool struct {
	mu sync.Mutex

	pool            map[Hash]*Transaction
	poolBySender    map[Address][]*Transaction
	poolByRecipient map[Address][]*Transaction

	dispatcher *Dispatcher
	accounts   *AccountRegistry
	sync       SyncInterface
	logger     *logrus.Entry
}

// NewTransactionPool wires the pool to its collaborators. sync may be nil
// if broadcast relay is not needed (e.g. single-node tests).
func NewTransactionPool(dispatcher *Dispatcher, accounts *AccountRegistry, sync SyncInterface, logger *logrus.Logger) *TransactionPool {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TransactionPool{
		pool:            make(map[Hash]*Transaction),
		poolBySender:    make(map[Address][]*Transaction),
		poolByRecipient: make(map[Address][]*Transaction),
		dispatcher:      dispatcher,
		accounts:        accounts,
		sync:            sync,
		logger:          logger.WithField("component", "txpool"),
	}
}

// Has reports whether id is currently staged in the pool.
func (p *TransactionPool) Has(id Hash) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.pool[id]
	return ok
}

// Len reports the number of transactions currently staged.
func (p *TransactionPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pool)
}

// Get returns the staged transaction for id, or nil.
func (p *TransactionPool) Get(id Hash) *Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool[id]
}

// recipientAddresses returns every address tx should be indexed under on
// the recipient side: the recipient of a SEND, the voted delegates of a
// VOTE carrying a reward or unstake flag, and the sender of a STAKE.
func (p *TransactionPool) recipientAddresses(tx *Transaction) []Address {
	switch tx.Type {
	case TxSend:
		return []Address{tx.Send.RecipientAddress}
	case TxVote:
		return voteAirdropSponsors(tx, p.accounts)
	case TxStake:
		return stakeAirdropSponsors(tx)
	default:
		return nil
	}
}

// Push admits tx into the pool: rejects duplicates, indexes it by sender
// and recipient, applies its unconfirmed effect, and optionally signals
// the sync layer to relay it.
func (p *TransactionPool) Push(tx *Transaction, sender *Account, broadcast bool) error {
	p.mu.Lock()
	if _, exists := p.pool[tx.ID]; exists {
		p.mu.Unlock()
		return &ValidationError{Component: "txpool", Reason: "duplicate transaction"}
	}
	handler := p.dispatcher.MustFor(tx.Type)
	if err := handler.ApplyUnconfirmed(tx, sender); err != nil {
		p.mu.Unlock()
		return err
	}

	p.pool[tx.ID] = tx
	p.poolBySender[tx.SenderAddress] = append(p.poolBySender[tx.SenderAddress], tx)
	for _, addr := range p.recipientAddresses(tx) {
		p.poolByRecipient[addr] = append(p.poolByRecipient[addr], tx)
	}
	p.mu.Unlock()

	tx.Status = TxUnconfirmApplied
	if broadcast && p.sync != nil {
		p.sync.Broadcast(TopicTransactionReceive, tx)
	}
	return nil
}

// Remove undoes tx's unconfirmed effect and strips it from all three maps.
func (p *TransactionPool) Remove(tx *Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(tx)
}

func (p *TransactionPool) removeLocked(tx *Transaction) {
	if _, exists := p.pool[tx.ID]; !exists {
		return
	}
	sender := p.accounts.GetByAddress(tx.SenderAddress)
	if sender != nil {
		handler := p.dispatcher.MustFor(tx.Type)
		_ = handler.UndoUnconfirmed(tx, sender)
	}
	delete(p.pool, tx.ID)
	p.poolBySender[tx.SenderAddress] = removeTxByID(p.poolBySender[tx.SenderAddress], tx.ID)
	for _, addr := range p.recipientAddresses(tx) {
		p.poolByRecipient[addr] = removeTxByID(p.poolByRecipient[addr], tx.ID)
	}
}

// BatchRemove removes, for every input transaction, all pool entries
// sharing that transaction's sender address (via both the sender and
// recipient indices) — an over-approximation of the set conflicting with
// an incoming block, used by receiveBlock. It returns everything removed.
func (p *TransactionPool) BatchRemove(txs []*Transaction) []*Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()

	senders := make(map[Address]struct{}, len(txs))
	for _, tx := range txs {
		senders[tx.SenderAddress] = struct{}{}
	}

	var removed []*Transaction
	seen := make(map[Hash]struct{})
	for addr := range senders {
		for _, tx := range append([]*Transaction(nil), p.poolBySender[addr]...) {
			if _, dup := seen[tx.ID]; dup {
				continue
			}
			seen[tx.ID] = struct{}{}
			removed = append(removed, tx)
		}
		for _, tx := range append([]*Transaction(nil), p.poolByRecipient[addr]...) {
			if _, dup := seen[tx.ID]; dup {
				continue
			}
			seen[tx.ID] = struct{}{}
			removed = append(removed, tx)
		}
	}
	for _, tx := range removed {
		p.removeLocked(tx)
	}
	return removed
}

// PopSortedUnconfirmedTransactions returns up to limit transactions in
// ascending transactionSortFunc order, removing them from the pool in
// reverse of that order (newest-first) so undoUnconfirmed sequencing
// preserves the pool's invariants.
func (p *TransactionPool) PopSortedUnconfirmedTransactions(limit int) []*Transaction {
	p.mu.Lock()
	all := make([]*Transaction, 0, len(p.pool))
	for _, tx := range p.pool {
		all = append(all, tx)
	}
	p.mu.Unlock()

	transactionSortFunc(all)
	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}

	for i := len(all) - 1; i >= 0; i-- {
		p.Remove(all[i])
	}
	return all
}

// IsPotentialConflict reports whether admitting trs alongside the pool's
// existing entries for its sender would create an ordering ambiguity: a
// SIGNATURE with any staged entry, a REGISTER with another staged REGISTER,
// or any staged entry that sorts after trs.
func (p *TransactionPool) IsPotentialConflict(trs *Transaction) bool {
	p.mu.Lock()
	dependents := append([]*Transaction(nil), p.poolBySender[trs.SenderAddress]...)
	p.mu.Unlock()

	if len(dependents) == 0 {
		return false
	}

	if trs.Type == TxSignature {
		return true
	}
	if trs.Type == TxRegister {
		for _, d := range dependents {
			if d.Type == TxRegister {
				return true
			}
		}
	}

	withCandidate := append(append([]*Transaction(nil), dependents...), trs)
	transactionSortFunc(withCandidate)
	return withCandidate[len(withCandidate)-1].ID != trs.ID
}

func removeTxByID(list []*Transaction, id Hash) []*Transaction {
	out := list[:0]
	for _, tx := range list {
		if tx.ID != id {
			out = append(out, tx)
		}
	}
	return out
}
