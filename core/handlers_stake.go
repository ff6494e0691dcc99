package core

// stakeHandler implements TxHandler for STAKE: locks funds for a number of
// slots. The locked amount is tracked on the account as a StakeLock so
// VOTE's stake-dependent fee recalculation and Undo can reverse it.
type stakeHandler struct{}

func (stakeHandler) Verify(tx *Transaction, fees FeeSchedule) error {
	if err := verifyCommonTx(tx); err != nil {
		return err
	}
	if tx.Stake == nil {
		return &ValidationError{Component: "stake", Reason: "missing asset"}
	}
	if tx.Stake.Amount == 0 {
		return &ValidationError{Component: "stake", Reason: "amount must be positive"}
	}
	if tx.Stake.DurationSlots == 0 {
		return &ValidationError{Component: "stake", Reason: "durationSlots must be positive"}
	}
	if tx.Fee != fees.Stake {
		return &ValidationError{Component: "stake", Reason: "fee does not match configured stake fee"}
	}
	return nil
}

func (stakeHandler) VerifyUnconfirmed(tx *Transaction, sender *Account) error {
	return sufficientUnconfirmedBalance(sender, tx.Stake.Amount, tx.Fee)
}

func (stakeHandler) CalculateFee(tx *Transaction, sender *Account, fees FeeSchedule) uint64 {
	return fees.Stake
}

func (stakeHandler) ApplyUnconfirmed(tx *Transaction, sender *Account) error {
	sender.UBalance -= tx.Stake.Amount + tx.Fee
	return nil
}

func (stakeHandler) UndoUnconfirmed(tx *Transaction, sender *Account) error {
	sender.UBalance += tx.Stake.Amount + tx.Fee
	return nil
}

func (stakeHandler) Apply(tx *Transaction, sender *Account, reg *AccountRegistry) error {
	if err := sufficientBalance(sender, tx.Stake.Amount, tx.Fee); err != nil {
		return err
	}
	sender.Balance -= tx.Stake.Amount + tx.Fee
	sender.Stakes = append(sender.Stakes, StakeLock{Amount: tx.Stake.Amount, UnlockSlot: tx.Stake.DurationSlots})
	return nil
}

func (stakeHandler) Undo(tx *Transaction, sender *Account, reg *AccountRegistry) error {
	sender.Balance += tx.Stake.Amount + tx.Fee
	for i := len(sender.Stakes) - 1; i >= 0; i-- {
		if sender.Stakes[i].Amount == tx.Stake.Amount && sender.Stakes[i].UnlockSlot == tx.Stake.DurationSlots {
			sender.Stakes = append(sender.Stakes[:i], sender.Stakes[i+1:]...)
			break
		}
	}
	return nil
}

func (stakeHandler) Ready(tx *Transaction, sender *Account) bool { return readyDefault(tx, sender) }

// stakeAirdropSponsors indexes every STAKE transaction under its own
// sender address — stakes don't name a third-party delegate in this asset
// layout, so the sponsor is the staking account itself (it will receive
// its own unstake proceeds later).
func stakeAirdropSponsors(tx *Transaction) []Address {
	return []Address{tx.SenderAddress}
}
