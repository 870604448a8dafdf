package reconciler

import (
	"slices"

	"github.com/hupe1980/agentfeed/core"
)

// FilterKinds returns the records whose kind is one of kinds, in order.
func FilterKinds(recs []core.Record, kinds ...core.Kind) []core.Record {
	out := make([]core.Record, 0, len(recs))

	for _, rec := range recs {
		if slices.Contains(kinds, rec.Kind) {
			out = append(out, rec)
		}
	}

	return out
}

// NewestFirst returns up to n records from an ascending view, newest first.
// A negative n returns all of them.
func NewestFirst(recs []core.Record, n int) []core.Record {
	if n < 0 || n > len(recs) {
		n = len(recs)
	}

	out := make([]core.Record, 0, n)
	for i := len(recs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, recs[i])
	}

	return out
}

// Combine merges ascending views from several agents into one ascending
// sequence. Records with equal timestamps keep the order of their inputs.
func Combine(views ...[]core.Record) []core.Record {
	var out []core.Record
	for _, v := range views {
		out = append(out, v...)
	}

	slices.SortStableFunc(out, func(a, b core.Record) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	return out
}
