package core

// signatureHandler implements TxHandler for SIGNATURE: registers a second
// signature public key on the sender account, exactly once.
type signatureHandler struct{}

func (signatureHandler) Verify(tx *Transaction, fees FeeSchedule) error {
	if err := verifyCommonTx(tx); err != nil {
		return err
	}
	if tx.SignatureReg == nil {
		return &ValidationError{Component: "signature", Reason: "missing asset"}
	}
	var zero PublicKey
	if tx.SignatureReg.PublicKey == zero {
		return &ValidationError{Component: "signature", Reason: "missing publicKey"}
	}
	if tx.Fee != fees.Signature {
		return &ValidationError{Component: "signature", Reason: "fee does not match configured signature fee"}
	}
	return nil
}

func (signatureHandler) VerifyUnconfirmed(tx *Transaction, sender *Account) error {
	if sender.SecondPublicKey != nil {
		return &ValidationError{Component: "signature", Reason: "second signature already registered"}
	}
	return sufficientUnconfirmedBalance(sender, 0, tx.Fee)
}

func (signatureHandler) CalculateFee(tx *Transaction, sender *Account, fees FeeSchedule) uint64 {
	return fees.Signature
}

func (signatureHandler) ApplyUnconfirmed(tx *Transaction, sender *Account) error {
	sender.UBalance -= tx.Fee
	return nil
}

func (signatureHandler) UndoUnconfirmed(tx *Transaction, sender *Account) error {
	sender.UBalance += tx.Fee
	return nil
}

func (signatureHandler) Apply(tx *Transaction, sender *Account, reg *AccountRegistry) error {
	if err := sufficientBalance(sender, 0, tx.Fee); err != nil {
		return err
	}
	sender.Balance -= tx.Fee
	pub := tx.SignatureReg.PublicKey
	sender.SecondPublicKey = &pub
	return nil
}

func (signatureHandler) Undo(tx *Transaction, sender *Account, reg *AccountRegistry) error {
	sender.Balance += tx.Fee
	sender.SecondPublicKey = nil
	return nil
}

func (signatureHandler) Ready(tx *Transaction, sender *Account) bool { return readyDefault(tx, sender) }
