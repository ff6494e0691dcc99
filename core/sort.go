package core

import "sort"

// transactionSortFunc orders transactions the way every block-level driver
// must: primarily by type (ascending), then by createdAt (ascending), then
// by id (lexicographic ascending) as a final tiebreak.
func transactionSortFunc(txs []*Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.ID.String() < b.ID.String()
	})
}

// sortedCopy returns a new, sorted slice without mutating txs.
func sortedCopy(txs []*Transaction) []*Transaction {
	out := make([]*Transaction, len(txs))
	copy(out, txs)
	transactionSortFunc(out)
	return out
}
