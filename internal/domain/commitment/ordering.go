package commitment

import (
	"bytes"
	"sort"
)

// SortPending orders commitments by expected date, then creation time, then
// ID. Consumption depends on this order being total and stable.
func SortPending(list []*Commitment) {
	sort.SliceStable(list, func(i, j int) bool {
		return less(list[i], list[j])
	})
}

func less(a, b *Commitment) bool {
	if !a.ExpectedDate.Equal(b.ExpectedDate) {
		return a.ExpectedDate.Before(b.ExpectedDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}
