package core

import "fmt"

// ValidationError marks a structural, schema, duplicate, or out-of-range
// failure surfaced to the caller; it is never fatal to the node.
type ValidationError struct {
	Component string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation [%s]: %s", e.Component, e.Reason)
}

// VerificationError marks a signature, payload-hash, or slot-discipline
// failure. The block is rejected and the originating peer may be banned.
type VerificationError struct {
	Component string
	Reason    string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification [%s]: %s", e.Component, e.Reason)
}

// StateConflictError covers already-processed blocks, height mismatches,
// and forks; it routes the caller into the fork-cause decision tree.
type StateConflictError struct {
	Reason string
}

func (e *StateConflictError) Error() string { return "state conflict: " + e.Reason }

// TransactionVerifyError triggers a LIFO rollback of a block's previously
// applied-unconfirmed transactions, then rejection of the block.
type TransactionVerifyError struct {
	TxID   Hash
	Reason string
}

func (e *TransactionVerifyError) Error() string {
	return fmt.Sprintf("transaction %s verify failed: %s", e.TxID, e.Reason)
}

// PersistenceError wraps a durable save/delete failure. It propagates
// without automatically rolling back unconfirmed applies (a known gap
// carried over deliberately rather than silently patched).
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence %s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

// PeerError wraps an RPC failure with a peer. Callers may use it to decide
// whether to ban the peer.
type PeerError struct {
	PeerID string
	Err    error
}

func (e *PeerError) Error() string { return fmt.Sprintf("peer %s: %v", e.PeerID, e.Err) }

func (e *PeerError) Unwrap() error { return e.Err }

// Result is the envelope every block/transaction handler returns instead
// of throwing: errors accumulate rather than short-circuit the caller.
type Result struct {
	Success bool
	Errors  []string
}

// Ok returns a successful, error-free Result.
func Ok() Result { return Result{Success: true} }

// Fail builds a failed Result from one or more errors, converting each to
// its Error() string.
func Fail(errs ...error) Result {
	r := Result{Success: false, Errors: make([]string, 0, len(errs))}
	for _, err := range errs {
		if err != nil {
			r.Errors = append(r.Errors, err.Error())
		}
	}
	return r
}

// FailStrings builds a failed Result directly from message strings, used
// where the caller supplies a literal error message (e.g. schema errors).
func FailStrings(msgs ...string) Result {
	return Result{Success: false, Errors: msgs}
}
