package core

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/lumenchain/lumend/internal/cryptoutil"
	"github.com/lumenchain/lumend/pkg/eventbus"
	"github.com/sirupsen/logrus"
)

// FailInjection lets tests suppress specific verification steps the way the
// teacher's fixtures drive deterministic failure scenarios. A nil
// FailInjection passed to NewBlockService is replaced by
// noopFailInjection, which never suppresses anything.
type FailInjection interface {
	SkipSlotCheck() bool
	SkipVerify(id Hash) bool
}

type noopFailInjection struct{}

func (noopFailInjection) SkipSlotCheck() bool  { return false }
func (noopFailInjection) SkipVerify(Hash) bool { return false }

// BlockServiceConfig carries the configured constants the block service
// needs, sourced from pkg/config.Config at startup.
type BlockServiceConfig struct {
	MaxTransactionsPerBlock int
	MinRoundBlockHeight     uint64
	CurrentBlockVersion     uint32
	ActiveDelegatesCount    int
}

// BlockService (C7) is the consensus core: block construction, verification,
// fork resolution, and application/undo of both confirmed and unconfirmed
// state. Every exported entry point runs on a single serialized "consensus
// sequence" goroutine so no two blocks are ever processed concurrently.
type BlockService struct {
	cfg BlockServiceConfig

	slots      *SlotService
	accounts   *AccountRegistry
	dispatcher *Dispatcher
	pool       *TransactionPool
	queue      *TransactionQueue
	storage    *BlockStorage
	repo       BlockRepository
	sync       SyncInterface
	bus        *eventbus.Bus
	metrics    *Metrics
	fail       FailInjection
	logger     *logrus.Entry

	currentRound *Round

	seq chan func()
}

// NewBlockService wires the block service to its collaborators. fail may be
// nil, in which case no verification step is ever suppressed.
func NewBlockService(
	cfg BlockServiceConfig,
	slots *SlotService,
	accounts *AccountRegistry,
	dispatcher *Dispatcher,
	pool *TransactionPool,
	queue *TransactionQueue,
	storage *BlockStorage,
	repo BlockRepository,
	sync SyncInterface,
	bus *eventbus.Bus,
	metrics *Metrics,
	fail FailInjection,
	logger *logrus.Logger,
) *BlockService {
	if fail == nil {
		fail = noopFailInjection{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BlockService{
		cfg:        cfg,
		slots:      slots,
		accounts:   accounts,
		dispatcher: dispatcher,
		pool:       pool,
		queue:      queue,
		storage:    storage,
		repo:       repo,
		sync:       sync,
		bus:        bus,
		metrics:    metrics,
		fail:       fail,
		logger:     logger.WithField("component", "blockservice"),
		seq:        make(chan func()),
	}
}

// Run drains the consensus sequence until ctx is cancelled. It must run in
// its own goroutine for the lifetime of the node.
func (bs *BlockService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-bs.seq:
			fn()
		}
	}
}

// submit enqueues fn onto the consensus sequence and blocks until it runs,
// giving every exported entry point a single-flight guarantee
// without wrapping the whole pipeline in a mutex.
func submit[T any](bs *BlockService, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	bs.seq <- func() {
		v, err := fn()
		done <- result{v, err}
	}
	r := <-done
	return r.val, r.err
}

// Create builds a new unsigned, unhashed block from a candidate
// transaction set. addPayloadHash must be called afterward to fill in
// amount, fee, payloadHash, signature, and id.
func (bs *BlockService) Create(transactions []*Transaction, timestamp int32, previous *Block, generator PublicKey) *Block {
	sorted := sortedCopy(transactions)
	block := &Block{
		Version:            bs.cfg.CurrentBlockVersion,
		Height:             previous.Height + 1,
		CreatedAt:          timestamp,
		TransactionCount:   uint32(len(sorted)),
		GeneratorPublicKey: generator,
		Transactions:       sorted,
	}
	id := previous.ID
	block.PreviousBlockID = &id
	return block
}

// addPayloadHash accumulates amount/fee across transactions,
// derives payloadHash from their canonical bytes, signs the block when
// kp is non-nil, and derives its id.
func (bs *BlockService) addPayloadHash(block *Block, kp *KeyPair) {
	h := sha256.New()
	var amount, fee uint64
	for _, tx := range block.Transactions {
		fee += tx.Fee
		if tx.Type == TxSend {
			amount += tx.Amount()
		}
		h.Write(bs.dispatcher.GetBytes(tx))
	}
	block.Amount = amount
	block.Fee = fee
	copy(block.PayloadHash[:], h.Sum(nil))

	if kp != nil {
		block.Signature = kp.Sign(blockSigningHash(block)[:])
	}
	block.ID = blockID(block)
	for _, tx := range block.Transactions {
		id := block.ID
		tx.BlockID = &id
	}
}

// verifyBlock collects every structural/signature defect instead of
// short-circuiting on the first one, and returns them most-recent-first.
func (bs *BlockService) verifyBlock(block *Block, last *Block, verify bool) []error {
	var errs []error

	if verify {
		if !cryptoutil.Verify(block.GeneratorPublicKey.Bytes(), blockSigningHash(block)[:], block.Signature[:]) {
			errs = append(errs, &VerificationError{Component: "block", Reason: "signature does not verify"})
		}
	}

	if block.Height != 1 && block.PreviousBlockID == nil {
		errs = append(errs, &VerificationError{Component: "block", Reason: "missing previousBlockId above genesis"})
	}

	if block.Version != bs.cfg.CurrentBlockVersion {
		errs = append(errs, &VerificationError{Component: "block", Reason: fmt.Sprintf("unexpected version %d", block.Version)})
	}

	if verify && blockID(block) != block.ID {
		errs = append(errs, &VerificationError{Component: "block", Reason: "id does not match recomputed digest"})
	}

	if err := bs.verifyPayload(block); err != nil {
		errs = append(errs, err)
	}

	if last != nil {
		if err := bs.verifySlotWindow(block, last); err != nil {
			errs = append(errs, err)
		}
	}

	for i, j := 0, len(errs)-1; i < j; i, j = i+1, j-1 {
		errs[i], errs[j] = errs[j], errs[i]
	}
	return errs
}

func (bs *BlockService) verifyPayload(block *Block) error {
	if int(block.TransactionCount) != len(block.Transactions) {
		return &VerificationError{Component: "block", Reason: "transactionCount does not match transaction list"}
	}
	if len(block.Transactions) > bs.cfg.MaxTransactionsPerBlock {
		return &VerificationError{Component: "block", Reason: "transaction count exceeds configured maximum"}
	}

	seen := make(map[Hash]struct{}, len(block.Transactions))
	h := sha256.New()
	var amount, fee uint64
	for _, tx := range block.Transactions {
		if _, dup := seen[tx.ID]; dup {
			return &VerificationError{Component: "block", Reason: "duplicate transaction id"}
		}
		seen[tx.ID] = struct{}{}
		fee += tx.Fee
		if tx.Type == TxSend {
			amount += tx.Amount()
		}
		h.Write(bs.dispatcher.GetBytes(tx))
	}

	var payloadHash Hash
	copy(payloadHash[:], h.Sum(nil))
	if payloadHash != block.PayloadHash {
		return &VerificationError{Component: "block", Reason: "payloadHash does not match transactions"}
	}
	if amount != block.Amount {
		return &VerificationError{Component: "block", Reason: "amount does not match transactions"}
	}
	if fee != block.Fee {
		return &VerificationError{Component: "block", Reason: "fee does not match transactions"}
	}
	return nil
}

func (bs *BlockService) verifySlotWindow(block *Block, last *Block) error {
	blockSlot := bs.slots.GetSlotNumberFromCreatedAt(block.CreatedAt)
	lastSlot := bs.slots.GetSlotNumberFromCreatedAt(last.CreatedAt)
	currentSlot := bs.slots.GetSlotNumber(time.Time{})
	upper := currentSlot + uint64(bs.cfg.ActiveDelegatesCount) - 1

	if !(blockSlot > lastSlot && blockSlot <= upper) {
		return &VerificationError{Component: "block", Reason: fmt.Sprintf("block slot %d outside valid window (%d, %d]", blockSlot, lastSlot, upper)}
	}
	return nil
}

// verifyBlockSlot checks the block's slot matches the generator's
// assigned slot in the current round, for every height above genesis.
func (bs *BlockService) verifyBlockSlot(block *Block) error {
	if block.Height == 1 || bs.fail.SkipSlotCheck() {
		return nil
	}
	if bs.currentRound == nil {
		return &VerificationError{Component: "block", Reason: "no current round"}
	}
	generatorSlot, ok := bs.currentRound.GeneratorSlot(block.GeneratorPublicKey)
	if !ok {
		return &VerificationError{Component: "block", Reason: "GeneratorPublicKey does not exist in current round"}
	}
	blockSlot := bs.slots.GetSlotNumberFromCreatedAt(block.CreatedAt)
	if blockSlot != generatorSlot {
		return &VerificationError{Component: "block", Reason: fmt.Sprintf("blockSlot %d not equal with generatorSlot %d", blockSlot, generatorSlot)}
	}
	return nil
}

// validateReceivedBlock implements the decision tree comparing a
// received block R against the local tip L. forkCause is 0 for a clean
// accept/reject outcome and 1 or 5 when a named fork handler must run
// instead.
func (bs *BlockService) validateReceivedBlock(received, last *Block) (accept bool, forkCause int, err error) {
	switch {
	case received.ID == last.ID:
		return false, 0, &StateConflictError{Reason: "already processed"}

	case received.Height < last.Height:
		return false, 0, &StateConflictError{Reason: "less than last block"}

	case received.Height == last.Height+1:
		if received.PreviousBlockID != nil && *received.PreviousBlockID == last.ID {
			return true, 0, nil
		}
		return false, 1, nil

	case received.Height == last.Height:
		if received.PreviousBlockID != nil && last.PreviousBlockID != nil && *received.PreviousBlockID == *last.PreviousBlockID {
			if received.ID == last.ID {
				return false, 0, &StateConflictError{Reason: "already processed"}
			}
			return false, 5, nil
		}
		return false, 0, &StateConflictError{Reason: "competing block at same height with different parent"}

	default:
		return false, 0, &StateConflictError{Reason: "future height, triggering sync"}
	}
}

// olderWins reports whether a (the incumbent) should be kept over b (the
// challenger) under the older-wins, lower-id-tiebreak rule.
func olderWins(a, b *Block) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// Receive is the public entry point for a block arriving from a peer. It
// runs on the consensus sequence.
func (bs *BlockService) Receive(block *Block) error {
	_, err := submit(bs, func() (struct{}, error) {
		return struct{}{}, bs.receiveBlock(block)
	})
	return err
}

// receiveBlock is the sequence-internal implementation backing
// Receive; it must only ever be called from the consensus sequence.
func (bs *BlockService) receiveBlock(block *Block) error {
	log := bs.logger.WithField("blockId", block.ID.String()).WithField("height", block.Height)
	log.Debug("received block")

	if bs.sync != nil && bs.sync.Syncing() {
		log.Debug("dropping received block: node is syncing")
		return nil
	}

	last := bs.storage.GetLast()
	if last == nil {
		return bs.applyGenesisInner(block)
	}

	accept, forkCause, err := bs.validateReceivedBlock(block, last)
	switch {
	case forkCause == 1:
		bs.metrics.ObserveForkCause(1)
		return bs.resolveForkCauseOne(block, last)
	case forkCause == 5:
		bs.metrics.ObserveForkCause(5)
		return bs.resolveForkCauseFive(block, last)
	case err != nil:
		if _, isStateConflict := err.(*StateConflictError); isStateConflict && block.Height > last.Height {
			bs.bus.Publish(TopicEmitSyncBlocks, block)
		}
		log.WithError(err).Debug("rejecting received block")
		return err
	case !accept:
		return &StateConflictError{Reason: "block rejected by validation"}
	}

	return bs.receiveAccepted(block)
}

// receiveAccepted runs the conflict-clearing and process() call shared by a
// clean accept and by both fork-cause handlers once they've decided to
// adopt the received block.
func (bs *BlockService) receiveAccepted(block *Block) error {
	removed := bs.pool.BatchRemove(block.Transactions)

	if bs.currentRound == nil {
		firstSlot := bs.slots.GetFirstSlotNumberInRoundFromCreatedAt(block.CreatedAt, bs.cfg.ActiveDelegatesCount)
		roundNumber := bs.slots.CalcRound(block.Height)
		bs.currentRound = bs.slots.Generate(roundNumber, firstSlot, block.Height, bs.activeDelegatePublicKeys())
	}

	verify := !bs.fail.SkipVerify(block.ID)
	if err := bs.process(block, true, nil, verify); err != nil {
		for _, tx := range removed {
			bs.requeueTransaction(tx)
		}
		return err
	}

	included := make(map[Hash]struct{}, len(block.Transactions))
	for _, tx := range block.Transactions {
		included[tx.ID] = struct{}{}
	}
	for _, tx := range removed {
		if _, inBlock := included[tx.ID]; !inBlock {
			bs.requeueTransaction(tx)
		}
	}
	bs.metrics.IncBlockReceived()
	return nil
}

// requeueTransaction pushes a mempool-evicted transaction back through the
// queue so it re-runs conflict detection rather than being admitted to the
// pool directly.
func (bs *BlockService) requeueTransaction(tx *Transaction) {
	if bs.pool.IsPotentialConflict(tx) {
		return
	}
	bs.queue.Push(tx)
}

// resolveForkCauseOne handles fork cause 1: a received block
// one ahead of the tip but not descending from it.
func (bs *BlockService) resolveForkCauseOne(received, last *Block) error {
	if errs := bs.verifyBlock(received, nil, true); len(errs) > 0 {
		return &VerificationError{Component: "fork-cause-1", Reason: errs[0].Error()}
	}

	if olderWins(last, received) {
		bs.logger.WithField("blockId", received.ID.String()).Info("fork cause 1: discarding challenger, local tip is older")
		return &StateConflictError{Reason: "fork cause 1: local tip wins tiebreak"}
	}

	bs.logger.WithField("blockId", received.ID.String()).Warn("fork cause 1: adopting challenger, rolling back two blocks")
	if _, err := bs.deleteLastBlockInner(); err != nil {
		return err
	}
	if _, err := bs.deleteLastBlockInner(); err != nil {
		return err
	}
	return bs.receiveBlock(received)
}

// resolveForkCauseFive handles fork cause 5: a competing block
// at the same height sharing the same parent.
func (bs *BlockService) resolveForkCauseFive(received, last *Block) error {
	tmpBlock := last

	if received.GeneratorPublicKey == tmpBlock.GeneratorPublicKey {
		bs.logger.WithFields(logrus.Fields{
			"generator": received.GeneratorPublicKey.String(),
			"blockA":    tmpBlock.ID.String(),
			"blockB":    received.ID.String(),
		}).Warn("fork cause 5: equivocation, same delegate signed two blocks for one slot")
	}

	if olderWins(tmpBlock, received) {
		return &StateConflictError{Reason: "fork cause 5: local tip wins tiebreak"}
	}

	bs.logger.WithField("blockId", received.ID.String()).Warn("fork cause 5: adopting challenger")
	if _, err := bs.deleteLastBlockInner(); err != nil {
		return err
	}
	return bs.receiveBlock(received)
}

// process verifies (optionally), checks for a duplicate, applies
// every transaction's unconfirmed effect with LIFO rollback on failure, and
// finally applies confirmed state via applyBlock.
func (bs *BlockService) process(block *Block, broadcast bool, kp *KeyPair, verify bool) error {
	last := bs.storage.GetLast()
	if verify {
		if errs := bs.verifyBlock(block, last, true); len(errs) > 0 {
			return &VerificationError{Component: "block", Reason: errs[0].Error()}
		}
		if err := bs.verifyBlockSlot(block); err != nil {
			return err
		}
	}

	if bs.storage.Has(block.ID) {
		return &StateConflictError{Reason: "block already in storage"}
	}

	if err := bs.checkTransactionsAndApplyUnconfirmed(block, verify); err != nil {
		return err
	}

	return bs.applyBlock(block, broadcast, kp)
}

// checkTransactionsAndApplyUnconfirmed applies every transaction's
// unconfirmed effect in order; on any failure it undoes everything it had
// already applied for this block, in strict LIFO order, before returning.
func (bs *BlockService) checkTransactionsAndApplyUnconfirmed(block *Block, verify bool) error {
	applied := make([]*Transaction, 0, len(block.Transactions))

	for _, tx := range block.Transactions {
		sender := bs.accounts.GetOrCreateBySender(tx)
		handler := bs.dispatcher.MustFor(tx.Type)

		if verify {
			if err := handler.VerifyUnconfirmed(tx, sender); err != nil {
				bs.rollbackApplied(applied)
				bs.metrics.IncTxRejected("verify_unconfirmed")
				return &TransactionVerifyError{TxID: tx.ID, Reason: err.Error()}
			}
		} else if tx.Type == TxVote {
			tx.Fee = handler.CalculateFee(tx, sender, bs.dispatcher.Fees())
		}

		if err := handler.ApplyUnconfirmed(tx, sender); err != nil {
			bs.rollbackApplied(applied)
			bs.metrics.IncTxRejected("apply_unconfirmed")
			return &TransactionVerifyError{TxID: tx.ID, Reason: err.Error()}
		}
		applied = append(applied, tx)
	}
	return nil
}

func (bs *BlockService) rollbackApplied(applied []*Transaction) {
	for i := len(applied) - 1; i >= 0; i-- {
		tx := applied[i]
		sender := bs.accounts.GetByAddress(tx.SenderAddress)
		if sender == nil {
			continue
		}
		_ = bs.dispatcher.MustFor(tx.Type).UndoUnconfirmed(tx, sender)
	}
}

// applyBlock persists the block, then applies confirmed state. A
// persistence failure here does not roll back the unconfirmed applies
// already performed by checkTransactionsAndApplyUnconfirmed — a known,
// deliberately preserved gap rather than an oversight. A failure in the
// confirmed-apply loop itself (persistence already succeeded) is the one
// case treated as recoverable:
// every transaction's unconfirmed effect is undone in reverse order and the
// transactions are returned to the queue instead of being left staged.
func (bs *BlockService) applyBlock(block *Block, broadcast bool, kp *KeyPair) error {
	if kp != nil {
		bs.addPayloadHash(block, kp)
	}

	if err := bs.repo.BatchSave(block); err != nil {
		return &PersistenceError{Op: "batchSave", Err: err}
	}

	bs.storage.Push(block)
	bs.metrics.SetHeight(block.Height)

	for _, tx := range block.Transactions {
		sender := bs.accounts.GetOrCreateBySender(tx)
		handler := bs.dispatcher.MustFor(tx.Type)
		if err := handler.Apply(tx, sender, bs.accounts); err != nil {
			bs.logger.WithError(err).WithField("txId", tx.ID.String()).Error("apply failed after persistence, undoing unconfirmed effects and requeuing block transactions")
			bs.rollbackApplied(block.Transactions)
			for j := len(block.Transactions) - 1; j >= 0; j-- {
				bs.queue.Push(block.Transactions[j])
			}
			return &TransactionVerifyError{TxID: tx.ID, Reason: err.Error()}
		}
		bs.metrics.IncTxApplied()
	}

	if bs.currentRound != nil && block.Height >= bs.cfg.MinRoundBlockHeight {
		if slot, ok := bs.currentRound.Slots[block.GeneratorPublicKey]; ok {
			slot.IsForged = true
		}
	}

	if broadcast && (bs.sync == nil || !bs.sync.Syncing()) {
		bs.bus.Publish(TopicApplyBlock, block)
		if bs.sync != nil {
			_ = bs.sync.Broadcast(TopicNewBlocks, block)
		}
	}
	return nil
}

// Generate is the public entry point for locally forging a block.
func (bs *BlockService) Generate(kp KeyPair, timestamp int32) (*Block, error) {
	return submit(bs, func() (*Block, error) {
		return bs.generateBlock(kp, timestamp)
	})
}

// generateBlock pops up to the configured transaction limit from
// the pool, builds a block, and runs it through process().
func (bs *BlockService) generateBlock(kp KeyPair, timestamp int32) (*Block, error) {
	last := bs.storage.GetLast()
	if last == nil {
		return nil, &StateConflictError{Reason: "cannot generate before genesis"}
	}

	txs := bs.pool.PopSortedUnconfirmedTransactions(bs.cfg.MaxTransactionsPerBlock)
	block := bs.Create(txs, timestamp, last, kp.PublicKey)

	if err := bs.process(block, true, &kp, false); err != nil {
		for i := len(txs) - 1; i >= 0; i-- {
			bs.requeueTransaction(txs[i])
		}
		return nil, err
	}
	bs.metrics.IncBlockForged()
	return block, nil
}

// DeleteLastBlock is the public entry point for rolling back the tip.
func (bs *BlockService) DeleteLastBlock() (*Block, error) {
	return submit(bs, func() (*Block, error) {
		return bs.deleteLastBlockInner()
	})
}

// deleteLastBlockInner rejects at genesis, persists the deletion,
// restores round state, and undoes every transaction in reverse order.
func (bs *BlockService) deleteLastBlockInner() (*Block, error) {
	last := bs.storage.GetLast()
	if last == nil || last.Height == 1 {
		return nil, &StateConflictError{Reason: "cannot delete genesis block"}
	}

	if err := bs.repo.DeleteByID(last.ID); err != nil {
		return nil, &PersistenceError{Op: "deleteById", Err: err}
	}

	if bs.currentRound != nil {
		if slot, ok := bs.currentRound.Slots[last.GeneratorPublicKey]; ok {
			slot.IsForged = false
		}
		roundNumber := bs.slots.CalcRound(last.Height)
		bs.slots.InvalidateRound(roundNumber)
	}

	bs.storage.PopLast()

	for i := len(last.Transactions) - 1; i >= 0; i-- {
		tx := last.Transactions[i]
		sender := bs.accounts.GetByAddress(tx.SenderAddress)
		if sender == nil {
			continue
		}
		handler := bs.dispatcher.MustFor(tx.Type)
		_ = handler.Undo(tx, sender, bs.accounts)
		_ = handler.UndoUnconfirmed(tx, sender)
	}

	if newLast := bs.storage.GetLast(); newLast != nil {
		bs.metrics.SetHeight(newLast.Height)
	}
	bs.bus.Publish(TopicUndoBlock, last)
	return last, nil
}

// ApplyGenesisBlock is the public entry point for bootstrapping the chain.
func (bs *BlockService) ApplyGenesisBlock(transactions []*Transaction, accounts []GenesisAccount) error {
	_, err := submit(bs, func() (struct{}, error) {
		for _, acc := range accounts {
			pub := acc.PublicKey
			registered := bs.accounts.Add(acc.Address, &pub)
			registered.Balance = acc.Balance
			registered.UBalance = acc.Balance
		}
		block := &Block{
			Version:          bs.cfg.CurrentBlockVersion,
			Height:           1,
			CreatedAt:        0,
			TransactionCount: uint32(len(transactions)),
			Transactions:     sortedCopy(transactions),
		}
		return struct{}{}, bs.applyGenesisInner(block)
	})
	return err
}

func (bs *BlockService) applyGenesisInner(block *Block) error {
	if block.PayloadHash.IsZero() {
		bs.addPayloadHash(block, nil)
	}
	return bs.process(block, false, nil, false)
}

// activeDelegatePublicKeys returns the public keys of every currently
// registered delegate, the candidate set round generation shuffles.
func (bs *BlockService) activeDelegatePublicKeys() []PublicKey {
	delegates := bs.accounts.Delegates()
	out := make([]PublicKey, 0, len(delegates))
	for _, d := range delegates {
		if d.PublicKey != nil {
			out = append(out, *d.PublicKey)
		}
	}
	return out
}

