package core

import (
	"testing"

	"github.com/lumenchain/lumend/internal/cryptoutil"
)

func newTestQueue() (*TransactionQueue, *TransactionPool, *AccountRegistry) {
	accounts := NewAccountRegistry()
	dispatcher := NewDispatcher(FeeSchedule{Send: 10})
	pool := NewTransactionPool(dispatcher, accounts, nil, nil)
	queue := NewTransactionQueue(dispatcher, accounts, pool, nil)
	return queue, pool, accounts
}

func TestQueuePushAndLen(t *testing.T) {
	queue, _, _ := newTestQueue()
	queue.Push(&Transaction{})
	queue.Push(&Transaction{})
	if queue.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", queue.Len())
	}
}

func TestDrainOneDropsUnsignedTransaction(t *testing.T) {
	queue, pool, _ := newTestQueue()
	tx := &Transaction{Type: TxSend, Fee: 10, Send: &SendAsset{Amount: 5, RecipientAddress: Address{2}}}
	queue.Push(tx)

	if !queue.DrainOne() {
		t.Fatal("expected DrainOne to process the queued item")
	}
	if pool.Has(tx.ID) {
		t.Fatal("an unsigned transaction must never reach the pool")
	}
	if queue.Len() != 0 {
		t.Fatal("expected queue drained regardless of verify failure")
	}
}

func TestDrainOneAdmitsValidSignedTransaction(t *testing.T) {
	queue, pool, accounts := newTestQueue()
	kp, err := cryptoutil.Generate()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tx := newSignedSend(t, kp, 100, Address{2}, 1)

	var pub PublicKey
	copy(pub[:], kp.PublicKey)
	sender := accounts.Add(tx.SenderAddress, &pub)
	sender.UBalance = 1000

	queue.Push(tx)
	if !queue.DrainOne() {
		t.Fatal("expected DrainOne to process the queued item")
	}
	if !pool.Has(tx.ID) {
		t.Fatal("expected valid signed transaction admitted to the pool")
	}
	if tx.Status != TxInPool {
		t.Fatalf("Status = %v, want TxInPool", tx.Status)
	}
}

func TestDrainOneDropsDuplicateAlreadyInPool(t *testing.T) {
	queue, pool, accounts := newTestQueue()
	kp, _ := cryptoutil.Generate()
	tx := newSignedSend(t, kp, 100, Address{2}, 1)
	var pub PublicKey
	copy(pub[:], kp.PublicKey)
	sender := accounts.Add(tx.SenderAddress, &pub)
	sender.UBalance = 1000

	if err := pool.Push(tx, sender, false); err != nil {
		t.Fatalf("seed pool: %v", err)
	}

	queue.Push(tx)
	queue.DrainOne()
	// still exactly one entry: duplicate drop, not a double-apply.
	if pool.Len() != 1 {
		t.Fatalf("pool.Len() = %d, want 1", pool.Len())
	}
}

func TestDrainAllEmptiesQueue(t *testing.T) {
	queue, _, _ := newTestQueue()
	for i := 0; i < 5; i++ {
		queue.Push(&Transaction{})
	}
	queue.DrainAll()
	if queue.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after DrainAll", queue.Len())
	}
}
