package fconame

import (
	"strings"

	"github.com/fsentry/fsentry/pkg/fsentry/ferr"
)

// Rel classifies the relationship between two names.
type Rel int

const (
	// RelEqual indicates identical component sequences.
	RelEqual Rel = iota
	// RelAbove indicates the receiver is a strict ancestor of the other
	// name.
	RelAbove
	// RelBelow indicates the receiver is a strict descendant of the
	// other name.
	RelBelow
	// RelUnrelated indicates neither name is an ancestor of the other.
	RelUnrelated
)

// componentList is the copy-on-write backing store shared by Name
// values produced from one another via Clone. refs tracks how many Name
// values currently alias it; mutation clones when refs > 1.
type componentList struct {
	refs  int
	comps []int32
}

// Name is an FCOName: a sequence of interned path components plus a
// delimiter byte, compared against a fixed Table.
type Name struct {
	table *Table
	list  *componentList
	delim byte
}

// defaultDelim is the delimiter used when none is specified.
const defaultDelim = '/'

// New constructs a Name by splitting pathString on delim. Runs of
// delimiters are collapsed, except that a leading empty component is
// retained to mark an absolute path, and up to two leading empties are
// retained when the table was constructed with doubleSlashRoot set.
func New(table *Table, pathString string, delim byte) Name {
	if table == nil {
		table = Default
	}
	if delim == 0 {
		delim = defaultDelim
	}

	raw := strings.Split(pathString, string(delim))

	var leadingEmpties int
	for leadingEmpties < len(raw) && raw[leadingEmpties] == "" {
		leadingEmpties++
	}
	maxLeading := 1
	if table.doubleSlashRoot {
		maxLeading = 2
	}
	if leadingEmpties > maxLeading {
		leadingEmpties = maxLeading
	}

	comps := make([]int32, 0, len(raw))
	for i := 0; i < leadingEmpties; i++ {
		comps = append(comps, table.intern(""))
	}
	for _, c := range raw[skipEmpties(raw):] {
		if c == "" {
			continue
		}
		comps = append(comps, table.intern(c))
	}

	return Name{
		table: table,
		list:  &componentList{refs: 1, comps: comps},
		delim: delim,
	}
}

// skipEmpties returns the index of the first non-empty element, or
// len(raw) if all elements are empty.
func skipEmpties(raw []string) int {
	i := 0
	for i < len(raw) && raw[i] == "" {
		i++
	}
	return i
}

// Clone returns a Name that shares the receiver's component list under
// copy-on-write. The two values are independent for Push/Pop purposes.
func (n Name) Clone() Name {
	n.list.refs++
	return n
}

// ensureOwned clones the backing component list if it is shared, so that
// in-place mutation cannot be observed by another Name.
func (n *Name) ensureOwned() {
	if n.list.refs > 1 {
		owned := make([]int32, len(n.list.comps))
		copy(owned, n.list.comps)
		n.list.refs--
		n.list = &componentList{refs: 1, comps: owned}
	}
}

// NumComponents returns the number of path components.
func (n Name) NumComponents() int {
	return len(n.list.comps)
}

// Push appends a component to the name.
func (n *Name) Push(component string) {
	n.ensureOwned()
	n.list.comps = append(n.list.comps, n.table.intern(component))
}

// Pop removes and returns the final component. It panics if the name has
// no components, mirroring an invariant violation rather than a
// recoverable error.
func (n *Name) Pop() string {
	if len(n.list.comps) == 0 {
		panic(ferr.Internal("pop on empty FCOName"))
	}
	n.ensureOwned()
	last := n.list.comps[len(n.list.comps)-1]
	n.list.comps = n.list.comps[:len(n.list.comps)-1]
	return n.table.Component(last)
}

// PopFront removes and returns the first component.
func (n *Name) PopFront() string {
	if len(n.list.comps) == 0 {
		panic(ferr.Internal("pop_front on empty FCOName"))
	}
	n.ensureOwned()
	first := n.list.comps[0]
	n.list.comps = n.list.comps[1:]
	return n.table.Component(first)
}

// Iter returns the name's components as strings, in order.
func (n Name) Iter() []string {
	out := make([]string, len(n.list.comps))
	for i, idx := range n.list.comps {
		out[i] = n.table.Component(idx)
	}
	return out
}

// AsString renders the name using its delimiter. A one-component name
// renders with a trailing delimiter; multi-component names do not
// (spec §4.1).
func (n Name) AsString() string {
	parts := n.Iter()
	joined := strings.Join(parts, string(n.delim))
	if len(parts) == 1 {
		return joined + string(n.delim)
	}
	return joined
}

// equalSequence reports whether a and b are componentwise equal under
// the table's comparison policy.
func equalSequence(table *Table, a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if table.comparisonKey(a[i]) != table.comparisonKey(b[i]) {
			return false
		}
	}
	return true
}

// isPrefix reports whether prefix is a strict prefix of full.
func isPrefix(table *Table, prefix, full []int32) bool {
	if len(prefix) >= len(full) {
		return false
	}
	for i := range prefix {
		if table.comparisonKey(prefix[i]) != table.comparisonKey(full[i]) {
			return false
		}
	}
	return true
}

// Relationship classifies the receiver against other. Exactly one of
// {RelEqual, RelAbove, RelBelow, RelUnrelated} holds for any pair
// (testable property 2), and n.Relationship(m) == RelAbove iff
// m.Relationship(n) == RelBelow.
func (n Name) Relationship(other Name) Rel {
	a, b := n.list.comps, other.list.comps
	if equalSequence(n.table, a, b) {
		return RelEqual
	}
	if isPrefix(n.table, a, b) {
		return RelAbove
	}
	if isPrefix(n.table, b, a) {
		return RelBelow
	}
	return RelUnrelated
}

// Compare returns a total order over names: componentwise by comparison
// key, with a shorter sequence (an ancestor) sorting before a longer one
// that shares its prefix.
func (n Name) Compare(other Name) int {
	a, b := n.list.comps, other.list.comps
	for i := 0; i < len(a) && i < len(b); i++ {
		ak, bk := n.table.comparisonKey(a[i]), n.table.comparisonKey(b[i])
		if ak < bk {
			return -1
		} else if ak > bk {
			return 1
		}
	}
	if len(a) < len(b) {
		return -1
	} else if len(a) > len(b) {
		return 1
	}
	return 0
}

// Equal reports whether two names compare equal (testable property 2).
func (n Name) Equal(other Name) bool {
	return n.Relationship(other) == RelEqual
}

// Table returns the Table the name was interned against.
func (n Name) Table() *Table {
	return n.table
}

// Delimiter returns the name's delimiter byte.
func (n Name) Delimiter() byte {
	return n.delim
}
