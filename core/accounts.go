package core

import "sync"

// AccountRegistry (C2) is the in-memory address → account map with a
// secondary index by public key. It is single-owner: every mutation must
// originate from the consensus sequence (transaction appliers). The
// registry itself still takes a
// mutex so tests and read-only API callers can safely snapshot it from
// outside the sequence.
type AccountRegistry struct {
	mu        sync.RWMutex
	byAddress map[Address]*Account
	byPubKey  map[PublicKey]Address
}

// NewAccountRegistry returns an empty registry.
func NewAccountRegistry() *AccountRegistry {
	return &AccountRegistry{
		byAddress: make(map[Address]*Account),
		byPubKey:  make(map[PublicKey]Address),
	}
}

// GetByAddress returns the account at addr, or nil if unknown.
func (r *AccountRegistry) GetByAddress(addr Address) *Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byAddress[addr]
}

// GetByPublicKey returns the account owning pub, or nil if unknown.
func (r *AccountRegistry) GetByPublicKey(pub PublicKey) *Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addr, ok := r.byPubKey[pub]
	if !ok {
		return nil
	}
	return r.byAddress[addr]
}

// Add inserts a new account known only by address, or — if an account
// already exists for that address — merges in a newly learned public key.
// It is idempotent: calling it twice with the same arguments is a no-op
// the second time.
func (r *AccountRegistry) Add(addr Address, pub *PublicKey) *Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.byAddress[addr]
	if !ok {
		acc = &Account{Address: addr}
		r.byAddress[addr] = acc
	}
	if pub != nil && acc.PublicKey == nil {
		acc.PublicKey = pub
		r.byPubKey[*pub] = addr
	}
	return acc
}

// GetOrCreateBySender resolves the account owning a transaction's sender,
// creating a stub account (known only by address, public key attached) if
// this is the first time the registry has seen it — the "resolve sender,
// creating a stub account if unknown" step used by the queue worker and by
// checkTransactionsAndApplyUnconfirmed.
func (r *AccountRegistry) GetOrCreateBySender(tx *Transaction) *Account {
	pub := tx.SenderPublicKey
	return r.Add(tx.SenderAddress, &pub)
}

// AttachDelegate marks acc as a delegate (or clears its delegate status
// when info is nil).
func (r *AccountRegistry) AttachDelegate(acc *Account, info *DelegateInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc.Delegate = info
}

// DelegateByUsername scans for a delegate with the given username. Returns
// nil if none exists. Usernames are unique by construction (DELEGATE
// apply/undo enforce it), so this always resolves to at most one account.
func (r *AccountRegistry) DelegateByUsername(username string) *Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, acc := range r.byAddress {
		if acc.Delegate != nil && acc.Delegate.Username == username {
			return acc
		}
	}
	return nil
}

// Delegates returns every account currently registered as a delegate.
func (r *AccountRegistry) Delegates() []*Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Account, 0)
	for _, acc := range r.byAddress {
		if acc.Delegate != nil {
			out = append(out, acc)
		}
	}
	return out
}

// Snapshot returns every account currently tracked. Intended for read-only
// callers (API, tests) taking a point-in-time view between mutations.
func (r *AccountRegistry) Snapshot() []*Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Account, 0, len(r.byAddress))
	for _, acc := range r.byAddress {
		out = append(out, acc)
	}
	return out
}
