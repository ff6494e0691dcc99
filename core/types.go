package core

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash is a 32-byte SHA-256 digest, used for block and transaction ids and
// for the block payload hash.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

func (h Hash) IsZero() bool { return h == Hash{} }

// HashFromHex decodes a hex-encoded 32-byte digest.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("decode hash: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("decode hash: want %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// PublicKey is a 32-byte Ed25519 public key.
type PublicKey [ed25519.PublicKeySize]byte

func (k PublicKey) String() string { return hex.EncodeToString(k[:]) }

func (k PublicKey) Bytes() ed25519.PublicKey { return append(ed25519.PublicKey(nil), k[:]...) }

func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var k PublicKey
	if len(b) != len(k) {
		return k, fmt.Errorf("public key must be %d bytes, got %d", len(k), len(b))
	}
	copy(k[:], b)
	return k, nil
}

// Signature is a 64-byte Ed25519 signature.
type Signature [ed25519.SignatureSize]byte

func (s Signature) String() string { return hex.EncodeToString(s[:]) }

func SignatureFromBytes(b []byte) (Signature, error) {
	var s Signature
	if len(b) != len(s) {
		return s, fmt.Errorf("signature must be %d bytes, got %d", len(s), len(b))
	}
	copy(s[:], b)
	return s, nil
}

// Address is an 8-byte account identifier derived from an Ed25519 public
// key. It is intentionally short: the wire format for a transaction's
// recipient address is fixed at 8 bytes (see codec.go).
type Address [8]byte

func (a Address) String() string { return hex.EncodeToString(a[:]) }

func (a Address) IsZero() bool { return a == Address{} }

// AddressFromPublicKey derives the canonical address for a public key: the
// first 8 bytes of SHA-256(publicKey).
func AddressFromPublicKey(pub PublicKey) Address {
	sum := sha256.Sum256(pub[:])
	var a Address
	copy(a[:], sum[:len(a)])
	return a
}

// TransactionType tags the asset variant a transaction carries. Numeric
// value is significant: transactionSortFunc orders first by this value.
type TransactionType uint8

const (
	TxSend TransactionType = iota
	TxSignature
	TxDelegate
	TxVote
	TxStake
	TxRegister
)

func (t TransactionType) String() string {
	switch t {
	case TxSend:
		return "SEND"
	case TxSignature:
		return "SIGNATURE"
	case TxDelegate:
		return "DELEGATE"
	case TxVote:
		return "VOTE"
	case TxStake:
		return "STAKE"
	case TxRegister:
		return "REGISTER"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// TransactionStatus tracks a transaction's position in its lifecycle.
type TransactionStatus uint8

const (
	TxCreated TransactionStatus = iota
	TxValidated
	TxQueued
	TxInPool
	TxUnconfirmApplied
	TxConfirmed
)

// SendAsset is the payload of a SEND transaction.
type SendAsset struct {
	Amount           uint64
	RecipientAddress Address
}

// SignatureAsset registers a second signature public key on the sender.
type SignatureAsset struct {
	PublicKey PublicKey
}

// DelegateAsset registers the sender as a block-producing delegate.
type DelegateAsset struct {
	Username string
}

// VoteOp is the direction of a single vote diff entry.
type VoteOp byte

const (
	VoteAdd    VoteOp = '+'
	VoteRemove VoteOp = '-'
)

// VoteDiff adds or removes a single delegate from the sender's vote list.
type VoteDiff struct {
	Op        VoteOp
	PublicKey PublicKey
}

// VoteAsset is the payload of a VOTE transaction.
type VoteAsset struct {
	Votes   []VoteDiff
	Reward  bool // vote grants an ongoing reward split, indexed as airdrop
	Unstake bool // vote releases a prior stake lock, indexed as airdrop
}

// StakeAsset locks funds for a number of slots. It names no delegate; the
// pool indexes a STAKE under its sender's own address as airdrop sponsor.
type StakeAsset struct {
	Amount        uint64
	DurationSlots uint64
}

// RegisterAsset binds a sender address to a public key the registry has
// only seen by address so far.
type RegisterAsset struct {
	PublicKey PublicKey
}

// Transaction is the unit of work a block carries. Exactly one of the
// asset pointer fields is non-nil, selected by Type.
type Transaction struct {
	ID              Hash
	Type            TransactionType
	SenderPublicKey PublicKey
	SenderAddress   Address
	Fee             uint64
	CreatedAt       int32
	Signature       Signature
	SecondSignature *Signature
	BlockID         *Hash
	Status          TransactionStatus

	Send          *SendAsset
	SignatureReg  *SignatureAsset
	Delegate      *DelegateAsset
	Vote          *VoteAsset
	Stake         *StakeAsset
	Register      *RegisterAsset
}

// RecipientAddress returns the 8-byte address that belongs in the
// transaction's wire prefix, or the zero address for types with no
// recipient concept.
func (tx *Transaction) RecipientAddress() Address {
	switch tx.Type {
	case TxSend:
		if tx.Send != nil {
			return tx.Send.RecipientAddress
		}
	}
	return Address{}
}

// Amount returns the SEND-asset amount carried by the transaction, or 0.
func (tx *Transaction) Amount() uint64 {
	if tx.Type == TxSend && tx.Send != nil {
		return tx.Send.Amount
	}
	return 0
}

// Delegate owns exactly one account; DelegateInfo is the per-account
// bookkeeping the block service and API surface read and mutate.
type DelegateInfo struct {
	Username           string
	PublicKey          PublicKey
	MissedBlocks       uint64
	ForgedBlocks       uint64
	Votes              uint64
	ConfirmedVoteCount uint64
	Approval           float64
}

// Account is the in-memory record the registry (C2) owns. Balance is the
// confirmed balance; UBalance is the unconfirmed mirror mutated by pool
// applyUnconfirmed/undoUnconfirmed.
type Account struct {
	Address         Address
	PublicKey       *PublicKey
	SecondPublicKey *PublicKey
	Balance         uint64
	UBalance        uint64
	Votes           []PublicKey
	Delegate        *DelegateInfo
	Multisignatures []PublicKey
	MultiMin        int
	Stakes          []StakeLock
}

// StakeLock is a single locked STAKE amount. UnlockSlot holds the STAKE
// asset's DurationSlots as given; no code releases a lock when that many
// slots have passed, and only STAKE Undo removes it.
type StakeLock struct {
	Amount     uint64
	UnlockSlot uint64
}

// TotalStaked sums every currently locked stake amount on the account.
func (a *Account) TotalStaked() uint64 {
	var total uint64
	for _, s := range a.Stakes {
		total += s.Amount
	}
	return total
}

// RoundSlot is a single delegate's assignment within a Round.
type RoundSlot struct {
	Slot     uint64
	IsForged bool
}

// Round is the per-round delegate schedule: one slot per active delegate,
// deterministically shuffled from the round's seed.
type Round struct {
	Number      uint64
	StartHeight uint64
	Slots       map[PublicKey]*RoundSlot
}

// GeneratorSlot returns the slot assigned to pub in this round.
func (r *Round) GeneratorSlot(pub PublicKey) (uint64, bool) {
	s, ok := r.Slots[pub]
	if !ok {
		return 0, false
	}
	return s.Slot, true
}

// Block is a single forged block: a header plus the ordered transaction
// list whose canonical bytes feed PayloadHash.
type Block struct {
	ID                 Hash
	Version            uint32
	Height             uint64
	CreatedAt          int32
	TransactionCount   uint32
	Amount             uint64
	Fee                uint64
	PreviousBlockID    *Hash
	PayloadHash        Hash
	GeneratorPublicKey PublicKey
	Signature          Signature

	Transactions []*Transaction
}

// GenesisAccount is a pre-registered address/public-key pair, funded with
// its starting balance directly, supplied to ApplyGenesisBlock before the
// genesis transaction set is replayed. Funding bypasses the ordinary SEND
// handler's sufficientBalance check: a seed account has no predecessor
// balance to draw from, so its opening balance is a direct credit rather
// than a debit-then-credit transfer.
type GenesisAccount struct {
	Address   Address
	PublicKey PublicKey
	Balance   uint64
}

// KeyPair is a local delegate's signing identity.
type KeyPair struct {
	PublicKey  PublicKey
	PrivateKey ed25519.PrivateKey
}

func (kp KeyPair) Sign(msg []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(kp.PrivateKey, msg))
	return sig
}
