package core

import "testing"

func testFees() FeeSchedule {
	return FeeSchedule{Send: 10, Vote: 50, Stake: 20, Delegate: 2500, Signature: 500, Register: 100}
}

func fundedAccount(balance uint64) *Account {
	return &Account{Address: Address{1}, Balance: balance, UBalance: balance}
}

func TestSendApplyUndoRoundTrip(t *testing.T) {
	reg := NewAccountRegistry()
	sender := fundedAccount(1000)
	reg.byAddress[sender.Address] = sender

	tx := &Transaction{Type: TxSend, Fee: 10, Send: &SendAsset{Amount: 200, RecipientAddress: Address{2}}}
	h := sendHandler{}

	if err := h.ApplyUnconfirmed(tx, sender); err != nil {
		t.Fatalf("ApplyUnconfirmed: %v", err)
	}
	if sender.UBalance != 790 {
		t.Fatalf("UBalance = %d, want 790", sender.UBalance)
	}
	if err := h.UndoUnconfirmed(tx, sender); err != nil {
		t.Fatalf("UndoUnconfirmed: %v", err)
	}
	if sender.UBalance != 1000 {
		t.Fatalf("UBalance after undo = %d, want 1000", sender.UBalance)
	}

	if err := h.Apply(tx, sender, reg); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if sender.Balance != 790 {
		t.Fatalf("Balance = %d, want 790", sender.Balance)
	}
	recipient := reg.GetByAddress(Address{2})
	if recipient == nil || recipient.Balance != 200 {
		t.Fatalf("recipient balance = %+v, want 200", recipient)
	}

	if err := h.Undo(tx, sender, reg); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if sender.Balance != 1000 {
		t.Fatalf("Balance after undo = %d, want 1000", sender.Balance)
	}
	if recipient.Balance != 0 {
		t.Fatalf("recipient balance after undo = %d, want 0", recipient.Balance)
	}
}

func TestSendInsufficientBalanceRejected(t *testing.T) {
	sender := fundedAccount(50)
	tx := &Transaction{Type: TxSend, Fee: 10, Send: &SendAsset{Amount: 200, RecipientAddress: Address{2}}}
	h := sendHandler{}

	if err := h.VerifyUnconfirmed(tx, sender); err == nil {
		t.Fatal("expected insufficient unconfirmed balance error")
	}
	if err := h.Apply(tx, sender, NewAccountRegistry()); err == nil {
		t.Fatal("expected insufficient balance error from Apply")
	}
}

func TestStakeApplyUndoRoundTrip(t *testing.T) {
	sender := fundedAccount(1000)
	tx := &Transaction{Type: TxStake, Fee: 20, Stake: &StakeAsset{Amount: 300, DurationSlots: 50}}
	h := stakeHandler{}

	if err := h.Apply(tx, sender, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if sender.Balance != 680 {
		t.Fatalf("Balance = %d, want 680", sender.Balance)
	}
	if len(sender.Stakes) != 1 || sender.Stakes[0].Amount != 300 {
		t.Fatalf("Stakes = %+v", sender.Stakes)
	}
	if got := sender.TotalStaked(); got != 300 {
		t.Fatalf("TotalStaked() = %d, want 300", got)
	}

	if err := h.Undo(tx, sender, nil); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if sender.Balance != 1000 {
		t.Fatalf("Balance after undo = %d, want 1000", sender.Balance)
	}
	if len(sender.Stakes) != 0 {
		t.Fatalf("Stakes after undo = %+v, want empty", sender.Stakes)
	}
}

func TestVoteFeeScalesWithStake(t *testing.T) {
	sender := fundedAccount(1_000_000)
	sender.Stakes = []StakeLock{{Amount: 100_000, UnlockSlot: 10}}
	h := voteHandler{}

	fee := h.CalculateFee(&Transaction{}, sender, testFees())
	want := testFees().Vote + 100_000/voteStakeSurchargeDivisor
	if fee != want {
		t.Fatalf("CalculateFee = %d, want %d", fee, want)
	}
}

func TestVoteApplyUndoDiffs(t *testing.T) {
	sender := fundedAccount(1000)
	var delegate PublicKey
	delegate[0] = 9

	tx := &Transaction{
		Type: TxVote, Fee: 50,
		Vote: &VoteAsset{Votes: []VoteDiff{{Op: VoteAdd, PublicKey: delegate}}},
	}
	h := voteHandler{}

	if err := h.Apply(tx, sender, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !containsPublicKey(sender.Votes, delegate) {
		t.Fatal("expected delegate added to sender.Votes")
	}

	if err := h.Undo(tx, sender, nil); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if containsPublicKey(sender.Votes, delegate) {
		t.Fatal("expected delegate removed from sender.Votes after undo")
	}
}

func TestVoteAddIsIdempotent(t *testing.T) {
	sender := fundedAccount(1000)
	var delegate PublicKey
	delegate[0] = 9
	sender.Votes = []PublicKey{delegate}

	applyVoteDiffs(sender, []VoteDiff{{Op: VoteAdd, PublicKey: delegate}})
	if len(sender.Votes) != 1 {
		t.Fatalf("Votes = %v, want exactly one entry after duplicate add", sender.Votes)
	}
}

func TestDelegateApplyRejectsDuplicateUsername(t *testing.T) {
	reg := NewAccountRegistry()
	existing := reg.Add(Address{1}, nil)
	reg.AttachDelegate(existing, &DelegateInfo{Username: "alice"})

	sender := fundedAccount(10000)
	reg.byAddress[sender.Address] = sender
	tx := &Transaction{Type: TxDelegate, Fee: 2500, Delegate: &DelegateAsset{Username: "alice"}}
	h := delegateHandler{}

	if err := h.Apply(tx, sender, reg); err == nil {
		t.Fatal("expected duplicate username rejection")
	}
	if sender.Delegate != nil {
		t.Fatal("sender should not become a delegate when username is taken")
	}
}

func TestDelegateApplyUndoRoundTrip(t *testing.T) {
	reg := NewAccountRegistry()
	sender := fundedAccount(10000)
	reg.byAddress[sender.Address] = sender
	tx := &Transaction{Type: TxDelegate, Fee: 2500, SenderPublicKey: PublicKey{1}, Delegate: &DelegateAsset{Username: "bob"}}
	h := delegateHandler{}

	if err := h.Apply(tx, sender, reg); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if sender.Delegate == nil || sender.Delegate.Username != "bob" {
		t.Fatalf("Delegate = %+v", sender.Delegate)
	}
	if reg.DelegateByUsername("bob") != sender {
		t.Fatal("DelegateByUsername did not resolve newly registered delegate")
	}

	if err := h.Undo(tx, sender, reg); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if sender.Delegate != nil {
		t.Fatal("expected delegate cleared after undo")
	}
	if reg.DelegateByUsername("bob") != nil {
		t.Fatal("expected username freed after undo")
	}
}

func TestValidDelegateUsername(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"alice", true},
		{"al_ice.2", true},
		{"Alice", false},     // must be lowercase
		{"12345", false},     // purely numeric
		{"", false},          // empty
		{"way-too-long-username-here", false},
		{"bad name", false}, // invalid character
	}
	for _, tc := range cases {
		err := validDelegateUsername(tc.name)
		if tc.ok && err != nil {
			t.Errorf("validDelegateUsername(%q) = %v, want nil", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("validDelegateUsername(%q) = nil, want error", tc.name)
		}
	}
}

func TestSignatureRegisteredOnlyOnce(t *testing.T) {
	sender := fundedAccount(10000)
	h := signatureHandler{}

	if err := h.VerifyUnconfirmed(&Transaction{}, sender); err != nil {
		t.Fatalf("first registration should be allowed: %v", err)
	}
	var pub PublicKey
	pub[0] = 3
	sender.SecondPublicKey = &pub
	if err := h.VerifyUnconfirmed(&Transaction{}, sender); err == nil {
		t.Fatal("expected rejection of a second signature registration")
	}
}

func TestSignatureApplyUndo(t *testing.T) {
	sender := fundedAccount(10000)
	tx := &Transaction{Type: TxSignature, Fee: 500, SignatureReg: &SignatureAsset{PublicKey: PublicKey{4}}}
	h := signatureHandler{}

	if err := h.Apply(tx, sender, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if sender.SecondPublicKey == nil || *sender.SecondPublicKey != (PublicKey{4}) {
		t.Fatal("expected second public key registered")
	}
	if err := h.Undo(tx, sender, nil); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if sender.SecondPublicKey != nil {
		t.Fatal("expected second public key cleared after undo")
	}
}

func TestRegisterBindsOnlyWhenUnbound(t *testing.T) {
	sender := fundedAccount(10000)
	h := registerHandler{}
	first := PublicKey{5}
	second := PublicKey{6}

	if err := h.Apply(&Transaction{Type: TxRegister, Fee: 100, Register: &RegisterAsset{PublicKey: first}}, sender, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if *sender.PublicKey != first {
		t.Fatal("expected sender bound to first public key")
	}

	// VerifyUnconfirmed must reject rebinding to a different key.
	if err := h.VerifyUnconfirmed(&Transaction{Register: &RegisterAsset{PublicKey: second}}, sender); err == nil {
		t.Fatal("expected rejection of rebinding to a different public key")
	}

	// Apply leaves the binding unchanged once already bound (first-seen
	// wins); it still debits the fee.
	if err := h.Apply(&Transaction{Type: TxRegister, Fee: 100, Register: &RegisterAsset{PublicKey: second}}, sender, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if *sender.PublicKey != first {
		t.Fatal("Apply must not rebind an already-registered public key")
	}
}

func TestReadyDefaultMultisigQuorum(t *testing.T) {
	sender := &Account{MultiMin: 2}
	tx := &Transaction{}

	if readyDefault(tx, sender) {
		t.Fatal("expected not ready with zero signatures toward a quorum of 2")
	}
	sender.Multisignatures = []PublicKey{{1}}
	if readyDefault(tx, sender) {
		t.Fatal("expected not ready with only one of two required signatures")
	}
	var sig Signature
	tx.SecondSignature = &sig
	if !readyDefault(tx, sender) {
		t.Fatal("expected ready once quorum of 2 is reached")
	}
}

func TestReadyDefaultTrivialWithoutMultisig(t *testing.T) {
	sender := &Account{}
	if !readyDefault(&Transaction{}, sender) {
		t.Fatal("expected trivially ready for a non-multisig account")
	}
}
