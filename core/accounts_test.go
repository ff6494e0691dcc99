package core

import "testing"

func TestAccountRegistryAddIdempotentAndMergesPublicKey(t *testing.T) {
	r := NewAccountRegistry()
	addr := Address{1}

	stub := r.Add(addr, nil)
	if stub.PublicKey != nil {
		t.Fatal("expected stub account with no public key")
	}

	var pub PublicKey
	pub[0] = 0xAA
	learned := r.Add(addr, &pub)
	if learned != stub {
		t.Fatal("Add should return the same account instance for an existing address")
	}
	if learned.PublicKey == nil || *learned.PublicKey != pub {
		t.Fatal("Add did not merge the newly learned public key into the existing stub")
	}

	if got := r.GetByPublicKey(pub); got != stub {
		t.Fatal("GetByPublicKey did not resolve the merged public key")
	}

	// Calling Add again with the same public key is a no-op.
	again := r.Add(addr, &pub)
	if again != stub || *again.PublicKey != pub {
		t.Fatal("repeated Add changed account identity or public key")
	}
}

func TestAccountRegistryAddDoesNotOverwriteExistingPublicKey(t *testing.T) {
	r := NewAccountRegistry()
	addr := Address{2}
	var first, second PublicKey
	first[0] = 1
	second[0] = 2

	acc := r.Add(addr, &first)
	r.Add(addr, &second)

	if *acc.PublicKey != first {
		t.Fatal("Add overwrote an already-bound public key")
	}
}

func TestGetOrCreateBySender(t *testing.T) {
	r := NewAccountRegistry()
	var pub PublicKey
	pub[0] = 7
	addr := AddressFromPublicKey(pub)
	tx := &Transaction{SenderPublicKey: pub, SenderAddress: addr}

	acc := r.GetOrCreateBySender(tx)
	if acc.Address != addr || acc.PublicKey == nil || *acc.PublicKey != pub {
		t.Fatal("GetOrCreateBySender did not create the expected stub account")
	}
	if r.GetByAddress(addr) != acc {
		t.Fatal("account not registered by address")
	}
}

func TestAttachDelegateAndLookup(t *testing.T) {
	r := NewAccountRegistry()
	acc := r.Add(Address{3}, nil)

	if r.DelegateByUsername("alice") != nil {
		t.Fatal("expected no delegate registered yet")
	}

	r.AttachDelegate(acc, &DelegateInfo{Username: "alice"})
	if got := r.DelegateByUsername("alice"); got != acc {
		t.Fatal("DelegateByUsername did not find the attached delegate")
	}
	delegates := r.Delegates()
	if len(delegates) != 1 || delegates[0] != acc {
		t.Fatalf("Delegates() = %v, want exactly [acc]", delegates)
	}

	r.AttachDelegate(acc, nil)
	if r.DelegateByUsername("alice") != nil {
		t.Fatal("clearing delegate info should remove it from DelegateByUsername")
	}
	if len(r.Delegates()) != 0 {
		t.Fatal("clearing delegate info should remove it from Delegates()")
	}
}

func TestDelegateByUsernameUniqueness(t *testing.T) {
	r := NewAccountRegistry()
	a := r.Add(Address{4}, nil)
	b := r.Add(Address{5}, nil)

	r.AttachDelegate(a, &DelegateInfo{Username: "bob"})
	r.AttachDelegate(b, &DelegateInfo{Username: "carol"})

	if r.DelegateByUsername("bob") != a {
		t.Fatal("wrong delegate resolved for bob")
	}
	if r.DelegateByUsername("carol") != b {
		t.Fatal("wrong delegate resolved for carol")
	}
	if len(r.Delegates()) != 2 {
		t.Fatal("expected both delegates present")
	}
}

func TestSnapshotReturnsAllTrackedAccounts(t *testing.T) {
	r := NewAccountRegistry()
	r.Add(Address{6}, nil)
	r.Add(Address{7}, nil)

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() returned %d accounts, want 2", len(snap))
	}
}
