package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
)

// getBlockBytes renders the canonical little-endian byte layout for a
// block. When skipSignature is true the trailing 64-byte signature field
// is omitted, producing the bytes the signature itself is computed over.
func getBlockBytes(b *Block, skipSignature bool) []byte {
	var buf bytes.Buffer
	var u32 [4]byte
	var u64 [8]byte

	binary.LittleEndian.PutUint32(u32[:], b.Version)
	buf.Write(u32[:])

	binary.LittleEndian.PutUint32(u32[:], uint32(b.CreatedAt))
	buf.Write(u32[:])

	binary.LittleEndian.PutUint32(u32[:], b.TransactionCount)
	buf.Write(u32[:])

	binary.LittleEndian.PutUint64(u64[:], b.Amount)
	buf.Write(u64[:])

	binary.LittleEndian.PutUint64(u64[:], b.Fee)
	buf.Write(u64[:])

	if b.PreviousBlockID != nil {
		buf.Write(b.PreviousBlockID[:])
	}

	buf.Write(b.PayloadHash[:])
	buf.Write(b.GeneratorPublicKey[:])

	if !skipSignature {
		buf.Write(b.Signature[:])
	}
	return buf.Bytes()
}

// blockSigningHash is the digest a block's signature is computed over.
func blockSigningHash(b *Block) Hash {
	return sha256.Sum256(getBlockBytes(b, true))
}

// blockID is the digest that becomes a block's id, computed over the full
// byte layout including the signature.
func blockID(b *Block) Hash {
	return sha256.Sum256(getBlockBytes(b, false))
}

// getTransactionBytes renders the canonical byte layout for a transaction:
// a fixed common prefix followed by asset-specific bytes.
func getTransactionBytes(tx *Transaction) []byte {
	var buf bytes.Buffer
	var u32 [4]byte
	var u64 [8]byte

	buf.WriteByte(byte(tx.Type))

	binary.LittleEndian.PutUint32(u32[:], uint32(tx.CreatedAt))
	buf.Write(u32[:])

	buf.Write(tx.SenderPublicKey[:])
	recipient := tx.RecipientAddress()
	buf.Write(recipient[:])

	binary.LittleEndian.PutUint64(u64[:], tx.Amount())
	buf.Write(u64[:])

	buf.Write(assetBytes(tx))
	return buf.Bytes()
}

// assetBytes renders the type-specific tail of a transaction's canonical
// encoding.
func assetBytes(tx *Transaction) []byte {
	var buf bytes.Buffer
	switch tx.Type {
	case TxSend:
		// amount/recipient already folded into the common prefix.
	case TxSignature:
		if tx.SignatureReg != nil {
			buf.Write(tx.SignatureReg.PublicKey[:])
		}
	case TxDelegate:
		if tx.Delegate != nil {
			buf.WriteString(tx.Delegate.Username)
		}
	case TxVote:
		if tx.Vote != nil {
			for _, v := range tx.Vote.Votes {
				buf.WriteByte(byte(v.Op))
				buf.Write(v.PublicKey[:])
			}
			if tx.Vote.Reward {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
			if tx.Vote.Unstake {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
		}
	case TxStake:
		if tx.Stake != nil {
			var u64 [8]byte
			binary.LittleEndian.PutUint64(u64[:], tx.Stake.Amount)
			buf.Write(u64[:])
			binary.LittleEndian.PutUint64(u64[:], tx.Stake.DurationSlots)
			buf.Write(u64[:])
		}
	case TxRegister:
		if tx.Register != nil {
			buf.Write(tx.Register.PublicKey[:])
		}
	}
	return buf.Bytes()
}

// transactionSigningHash is the digest a transaction's signature is
// computed over.
func transactionSigningHash(tx *Transaction) Hash {
	return sha256.Sum256(getTransactionBytes(tx))
}

// transactionID derives a transaction's id from its canonical bytes.
func transactionID(tx *Transaction) Hash {
	return sha256.Sum256(getTransactionBytes(tx))
}
