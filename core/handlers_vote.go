package core

// voteHandler implements TxHandler for VOTE: adds or removes delegates
// from the sender's vote list. Unlike the other types, its fee is
// stake-dependent and gets recomputed by checkTransactionsAndApplyUnconfirmed
// when a block is replayed without verification.
type voteHandler struct{}

// voteStakeSurchargeDivisor sets the stake-dependent addition to the flat
// vote fee: one fee unit per voteStakeSurchargeDivisor units staked, so
// larger stakeholders pay proportionally more to vote, reflecting their
// larger influence on delegate ranking.
const voteStakeSurchargeDivisor = 1000

func (voteHandler) Verify(tx *Transaction, fees FeeSchedule) error {
	if err := verifyCommonTx(tx); err != nil {
		return err
	}
	if tx.Vote == nil || len(tx.Vote.Votes) == 0 {
		return &ValidationError{Component: "vote", Reason: "missing or empty votes list"}
	}
	for _, v := range tx.Vote.Votes {
		if v.Op != VoteAdd && v.Op != VoteRemove {
			return &ValidationError{Component: "vote", Reason: "invalid vote op"}
		}
	}
	return nil
}

func (voteHandler) VerifyUnconfirmed(tx *Transaction, sender *Account) error {
	return sufficientUnconfirmedBalance(sender, 0, tx.Fee)
}

func (voteHandler) CalculateFee(tx *Transaction, sender *Account, fees FeeSchedule) uint64 {
	return fees.Vote + sender.TotalStaked()/voteStakeSurchargeDivisor
}

func (voteHandler) ApplyUnconfirmed(tx *Transaction, sender *Account) error {
	sender.UBalance -= tx.Fee
	return nil
}

func (voteHandler) UndoUnconfirmed(tx *Transaction, sender *Account) error {
	sender.UBalance += tx.Fee
	return nil
}

func (voteHandler) Apply(tx *Transaction, sender *Account, reg *AccountRegistry) error {
	if err := sufficientBalance(sender, 0, tx.Fee); err != nil {
		return err
	}
	sender.Balance -= tx.Fee
	applyVoteDiffs(sender, tx.Vote.Votes)
	return nil
}

func (voteHandler) Undo(tx *Transaction, sender *Account, reg *AccountRegistry) error {
	sender.Balance += tx.Fee
	applyVoteDiffs(sender, invertVoteDiffs(tx.Vote.Votes))
	return nil
}

func (voteHandler) Ready(tx *Transaction, sender *Account) bool { return readyDefault(tx, sender) }

func applyVoteDiffs(sender *Account, diffs []VoteDiff) {
	for _, d := range diffs {
		switch d.Op {
		case VoteAdd:
			if !containsPublicKey(sender.Votes, d.PublicKey) {
				sender.Votes = append(sender.Votes, d.PublicKey)
			}
		case VoteRemove:
			sender.Votes = removePublicKey(sender.Votes, d.PublicKey)
		}
	}
}

func invertVoteDiffs(diffs []VoteDiff) []VoteDiff {
	out := make([]VoteDiff, len(diffs))
	for i, d := range diffs {
		op := VoteRemove
		if d.Op == VoteRemove {
			op = VoteAdd
		}
		out[i] = VoteDiff{Op: op, PublicKey: d.PublicKey}
	}
	return out
}

func containsPublicKey(list []PublicKey, k PublicKey) bool {
	for _, v := range list {
		if v == k {
			return true
		}
	}
	return false
}

func removePublicKey(list []PublicKey, k PublicKey) []PublicKey {
	out := list[:0]
	for _, v := range list {
		if v != k {
			out = append(out, v)
		}
	}
	return out
}

// voteAirdropSponsors returns the addresses a VOTE transaction should be
// indexed under as a recipient in the mempool: every voted delegate,
// when the vote carries a reward or unstake flag.
func voteAirdropSponsors(tx *Transaction, reg *AccountRegistry) []Address {
	if tx.Vote == nil || !(tx.Vote.Reward || tx.Vote.Unstake) {
		return nil
	}
	out := make([]Address, 0, len(tx.Vote.Votes))
	for _, v := range tx.Vote.Votes {
		out = append(out, AddressFromPublicKey(v.PublicKey))
	}
	return out
}
