package core

import "strings"

// delegateHandler implements TxHandler for DELEGATE: registers the sender
// as a block-producing delegate under a unique, validated username.
type delegateHandler struct{}

func validDelegateUsername(username string) error {
	if len(username) == 0 || len(username) > maxDelegateUsernameLength {
		return &ValidationError{Component: "delegate", Reason: "username length out of range"}
	}
	if username != strings.ToLower(username) {
		return &ValidationError{Component: "delegate", Reason: "username must be lowercase"}
	}
	if !delegateUsernameRe.MatchString(username) {
		return &ValidationError{Component: "delegate", Reason: "username contains invalid characters"}
	}
	if delegateNumericOnlyRe.MatchString(username) {
		return &ValidationError{Component: "delegate", Reason: "username may not be purely numeric"}
	}
	return nil
}

func (delegateHandler) Verify(tx *Transaction, fees FeeSchedule) error {
	if err := verifyCommonTx(tx); err != nil {
		return err
	}
	if tx.Delegate == nil {
		return &ValidationError{Component: "delegate", Reason: "missing asset"}
	}
	if err := validDelegateUsername(tx.Delegate.Username); err != nil {
		return err
	}
	if tx.Fee != fees.Delegate {
		return &ValidationError{Component: "delegate", Reason: "fee does not match configured delegate fee"}
	}
	return nil
}

func (delegateHandler) VerifyUnconfirmed(tx *Transaction, sender *Account) error {
	if sender.Delegate != nil {
		return &ValidationError{Component: "delegate", Reason: "sender is already a delegate"}
	}
	return sufficientUnconfirmedBalance(sender, 0, tx.Fee)
}

func (delegateHandler) CalculateFee(tx *Transaction, sender *Account, fees FeeSchedule) uint64 {
	return fees.Delegate
}

func (delegateHandler) ApplyUnconfirmed(tx *Transaction, sender *Account) error {
	sender.UBalance -= tx.Fee
	return nil
}

func (delegateHandler) UndoUnconfirmed(tx *Transaction, sender *Account) error {
	sender.UBalance += tx.Fee
	return nil
}

func (delegateHandler) Apply(tx *Transaction, sender *Account, reg *AccountRegistry) error {
	if err := sufficientBalance(sender, 0, tx.Fee); err != nil {
		return err
	}
	if existing := reg.DelegateByUsername(tx.Delegate.Username); existing != nil {
		return &ValidationError{Component: "delegate", Reason: "username already registered"}
	}
	sender.Balance -= tx.Fee
	reg.AttachDelegate(sender, &DelegateInfo{
		Username:  tx.Delegate.Username,
		PublicKey: tx.SenderPublicKey,
	})
	return nil
}

func (delegateHandler) Undo(tx *Transaction, sender *Account, reg *AccountRegistry) error {
	sender.Balance += tx.Fee
	reg.AttachDelegate(sender, nil)
	return nil
}

func (delegateHandler) Ready(tx *Transaction, sender *Account) bool { return readyDefault(tx, sender) }
