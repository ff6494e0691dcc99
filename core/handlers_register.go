package core

// registerHandler implements TxHandler for REGISTER: binds a sender
// address to a public key when the registry has only seen that address so
// far (first-seen binding).
type registerHandler struct{}

func (registerHandler) Verify(tx *Transaction, fees FeeSchedule) error {
	if err := verifyCommonTx(tx); err != nil {
		return err
	}
	if tx.Register == nil {
		return &ValidationError{Component: "register", Reason: "missing asset"}
	}
	var zero PublicKey
	if tx.Register.PublicKey == zero {
		return &ValidationError{Component: "register", Reason: "missing publicKey"}
	}
	if tx.Fee != fees.Register {
		return &ValidationError{Component: "register", Reason: "fee does not match configured register fee"}
	}
	return nil
}

func (registerHandler) VerifyUnconfirmed(tx *Transaction, sender *Account) error {
	if sender.PublicKey != nil && *sender.PublicKey != tx.Register.PublicKey {
		return &ValidationError{Component: "register", Reason: "sender already bound to a different public key"}
	}
	return sufficientUnconfirmedBalance(sender, 0, tx.Fee)
}

func (registerHandler) CalculateFee(tx *Transaction, sender *Account, fees FeeSchedule) uint64 {
	return fees.Register
}

func (registerHandler) ApplyUnconfirmed(tx *Transaction, sender *Account) error {
	sender.UBalance -= tx.Fee
	return nil
}

func (registerHandler) UndoUnconfirmed(tx *Transaction, sender *Account) error {
	sender.UBalance += tx.Fee
	return nil
}

func (registerHandler) Apply(tx *Transaction, sender *Account, reg *AccountRegistry) error {
	if err := sufficientBalance(sender, 0, tx.Fee); err != nil {
		return err
	}
	sender.Balance -= tx.Fee
	if sender.PublicKey == nil {
		pub := tx.Register.PublicKey
		sender.PublicKey = &pub
	}
	return nil
}

func (registerHandler) Undo(tx *Transaction, sender *Account, reg *AccountRegistry) error {
	// The public key binding set by Apply is intentionally left in place;
	// only the fee is reversed.
	sender.Balance += tx.Fee
	return nil
}

func (registerHandler) Ready(tx *Transaction, sender *Account) bool { return readyDefault(tx, sender) }
