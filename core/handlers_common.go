package core

import (
	"regexp"

	"github.com/lumenchain/lumend/internal/cryptoutil"
)

var delegateUsernameRe = regexp.MustCompile(`^[a-z0-9!@$&_.]+$`)
var delegateNumericOnlyRe = regexp.MustCompile(`^[0-9]{1,25}$`)

const maxDelegateUsernameLength = 20

// verifyCommonTx checks the structural properties shared by every
// transaction type: a non-zero sender key and a valid Ed25519 signature
// over the transaction's signing hash.
func verifyCommonTx(tx *Transaction) error {
	var zero PublicKey
	if tx.SenderPublicKey == zero {
		return &VerificationError{Component: "transaction", Reason: "missing senderPublicKey"}
	}
	hash := transactionSigningHash(tx)
	if !cryptoutil.Verify(tx.SenderPublicKey.Bytes(), hash[:], tx.Signature[:]) {
		return &VerificationError{Component: "transaction", Reason: "signature does not verify"}
	}
	return nil
}

// sufficientUnconfirmedBalance checks sender.UBalance can cover amount+fee.
func sufficientUnconfirmedBalance(sender *Account, amount, fee uint64) error {
	need := amount + fee
	if sender.UBalance < need {
		return &ValidationError{Component: "transaction", Reason: "insufficient unconfirmed balance"}
	}
	return nil
}

func sufficientBalance(sender *Account, amount, fee uint64) error {
	need := amount + fee
	if sender.Balance < need {
		return &ValidationError{Component: "transaction", Reason: "insufficient balance"}
	}
	return nil
}

// readyDefault implements the common multisig quorum rule: ready unless
// the sender requires multiple signatures and doesn't yet have them.
func readyDefault(tx *Transaction, sender *Account) bool {
	if sender == nil || sender.MultiMin == 0 {
		return true
	}
	have := 0
	if tx.SecondSignature != nil {
		have++
	}
	have += len(sender.Multisignatures)
	return have >= sender.MultiMin
}
