package core

import "fmt"

// TxHandler is the capability set every transaction type implements.
// `create`, `schema`, `dbSave`/`dbRead`, and `objectNormalize` from the base
// spec's full capability list are deliberately not part of this interface:
// schema validation and persistence are both out-of-scope external
// collaborators, and `create` is a plain constructor call sites already
// perform directly on the typed asset structs.
type TxHandler interface {
	// Verify checks structural and signature correctness independent of
	// any account state.
	Verify(tx *Transaction, fees FeeSchedule) error

	// VerifyUnconfirmed checks tx against sender's current unconfirmed
	// state: balance sufficiency, uniqueness, forbidden conflicts.
	VerifyUnconfirmed(tx *Transaction, sender *Account) error

	// CalculateFee returns the fee tx should carry. For most types this is
	// a flat configured constant; VOTE recomputes from sender's stake.
	CalculateFee(tx *Transaction, sender *Account, fees FeeSchedule) uint64

	// ApplyUnconfirmed mutates sender.UBalance and any unconfirmed
	// secondary state. UndoUnconfirmed is its exact inverse.
	ApplyUnconfirmed(tx *Transaction, sender *Account) error
	UndoUnconfirmed(tx *Transaction, sender *Account) error

	// Apply mutates confirmed state (sender.Balance and persistent
	// registry-level effects, e.g. registering a delegate). Undo is its
	// exact inverse.
	Apply(tx *Transaction, sender *Account, reg *AccountRegistry) error
	Undo(tx *Transaction, sender *Account, reg *AccountRegistry) error

	// Ready reports whether tx has satisfied its sender's multisig quorum
	// (or trivially true when sender is not a multisig account).
	Ready(tx *Transaction, sender *Account) bool
}

// FeeSchedule is the set of configured flat fees, one per transaction type.
type FeeSchedule struct {
	Send      uint64
	Vote      uint64
	Stake     uint64
	Delegate  uint64
	Signature uint64
	Register  uint64
}

// Dispatcher is the type-indexed handler table (C3).
type Dispatcher struct {
	handlers map[TransactionType]TxHandler
	fees     FeeSchedule
}

// NewDispatcher builds the dispatcher with the full concrete handler set
// wired once at startup.
func NewDispatcher(fees FeeSchedule) *Dispatcher {
	d := &Dispatcher{handlers: make(map[TransactionType]TxHandler, 6), fees: fees}
	d.handlers[TxSend] = sendHandler{}
	d.handlers[TxSignature] = signatureHandler{}
	d.handlers[TxDelegate] = delegateHandler{}
	d.handlers[TxVote] = voteHandler{}
	d.handlers[TxStake] = stakeHandler{}
	d.handlers[TxRegister] = registerHandler{}
	return d
}

// Fees returns the configured fee schedule.
func (d *Dispatcher) Fees() FeeSchedule { return d.fees }

// For looks up the handler for a transaction type. The second return value
// is false for an unregistered type.
func (d *Dispatcher) For(t TransactionType) (TxHandler, bool) {
	h, ok := d.handlers[t]
	return h, ok
}

// MustFor looks up the handler for tx.Type, panicking if none is
// registered — every constructed Transaction must carry a known type by
// the time it reaches the dispatcher, so this is a programmer error, not a
// runtime condition to recover from.
func (d *Dispatcher) MustFor(t TransactionType) TxHandler {
	h, ok := d.handlers[t]
	if !ok {
		panic(fmt.Sprintf("core: no handler registered for transaction type %s", t))
	}
	return h
}

// GetBytes produces tx's canonical byte encoding (shared across all
// types — asset-specific tails are rendered by codec.go's assetBytes).
func (d *Dispatcher) GetBytes(tx *Transaction) []byte { return getTransactionBytes(tx) }
