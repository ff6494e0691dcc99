package core

// sendHandler implements TxHandler for SEND: debit sender, credit
// recipient, creating a stub recipient account on first sight.
type sendHandler struct{}

func (sendHandler) Verify(tx *Transaction, fees FeeSchedule) error {
	if err := verifyCommonTx(tx); err != nil {
		return err
	}
	if tx.Send == nil {
		return &ValidationError{Component: "send", Reason: "missing asset"}
	}
	if tx.Send.RecipientAddress.IsZero() {
		return &ValidationError{Component: "send", Reason: "missing recipientAddress"}
	}
	if tx.Fee != fees.Send {
		return &ValidationError{Component: "send", Reason: "fee does not match configured send fee"}
	}
	return nil
}

func (sendHandler) VerifyUnconfirmed(tx *Transaction, sender *Account) error {
	return sufficientUnconfirmedBalance(sender, tx.Send.Amount, tx.Fee)
}

func (sendHandler) CalculateFee(tx *Transaction, sender *Account, fees FeeSchedule) uint64 {
	return fees.Send
}

func (sendHandler) ApplyUnconfirmed(tx *Transaction, sender *Account) error {
	sender.UBalance -= tx.Send.Amount + tx.Fee
	return nil
}

func (sendHandler) UndoUnconfirmed(tx *Transaction, sender *Account) error {
	sender.UBalance += tx.Send.Amount + tx.Fee
	return nil
}

func (sendHandler) Apply(tx *Transaction, sender *Account, reg *AccountRegistry) error {
	if err := sufficientBalance(sender, tx.Send.Amount, tx.Fee); err != nil {
		return err
	}
	sender.Balance -= tx.Send.Amount + tx.Fee
	recipient := reg.Add(tx.Send.RecipientAddress, nil)
	recipient.Balance += tx.Send.Amount
	return nil
}

func (sendHandler) Undo(tx *Transaction, sender *Account, reg *AccountRegistry) error {
	sender.Balance += tx.Send.Amount + tx.Fee
	recipient := reg.GetByAddress(tx.Send.RecipientAddress)
	if recipient != nil {
		recipient.Balance -= tx.Send.Amount
	}
	return nil
}

func (sendHandler) Ready(tx *Transaction, sender *Account) bool { return readyDefault(tx, sender) }
