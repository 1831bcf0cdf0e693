package policy

import (
	"sort"

	"github.com/pkg/errors"
)

// RuleList maintains two iteration orders over the same rules:
// insertion order, used by reports and the database to pair rules
// across runs, and canonical order, used for lookups and equality
// (spec §4.5).
type RuleList struct {
	insertion []*Rule
	canonical []*Rule
	present   map[*Rule]struct{}
}

// NewList constructs an empty rule list.
func NewList() *RuleList {
	return &RuleList{present: make(map[*Rule]struct{})}
}

// Insert adds a rule to both iteration orders. Duplicates by the
// canonical rule ordering are rejected.
func (l *RuleList) Insert(r *Rule) error {
	pos := sort.Search(len(l.canonical), func(i int) bool {
		return l.canonical[i].Compare(r) >= 0
	})
	if pos < len(l.canonical) && l.canonical[pos].Compare(r) == 0 {
		return errors.Errorf("rule for start point %q already present", r.startPoint.AsString())
	}

	l.canonical = append(l.canonical, nil)
	copy(l.canonical[pos+1:], l.canonical[pos:])
	l.canonical[pos] = r

	l.insertion = append(l.insertion, r)
	l.present[r] = struct{}{}
	return nil
}

// Lookup finds a rule equivalent to r: first by pointer identity (O(1)),
// then by canonical-order comparison (O(log n)).
func (l *RuleList) Lookup(r *Rule) (*Rule, bool) {
	if _, ok := l.present[r]; ok {
		return r, true
	}
	pos := sort.Search(len(l.canonical), func(i int) bool {
		return l.canonical[i].Compare(r) >= 0
	})
	if pos < len(l.canonical) && l.canonical[pos].Compare(r) == 0 {
		return l.canonical[pos], true
	}
	return nil, false
}

// InsertionOrder returns the rules in the order they were inserted.
func (l *RuleList) InsertionOrder() []*Rule {
	out := make([]*Rule, len(l.insertion))
	copy(out, l.insertion)
	return out
}

// CanonicalOrder returns the rules in canonical (sorted) order.
func (l *RuleList) CanonicalOrder() []*Rule {
	out := make([]*Rule, len(l.canonical))
	copy(out, l.canonical)
	return out
}

// Len returns the number of rules in the list.
func (l *RuleList) Len() int { return len(l.insertion) }
