// Package fconame implements interned, case-sensitivity-aware path
// identifiers (FCOName, component C1 of the core design) with a total
// order and fast equality.
//
// Rather than the reference-counted name-table nodes of the system this
// package's design is grounded on, interior nodes live in an
// append-only arena (Table.nodes) and are referenced by stable int32
// index — the "ownership + indexing" substitution for refcounting.
// Indices never change once assigned, so index equality is component
// equality for the lifetime of the table.
package fconame

import "strings"

// CasePolicy fixes whether a Table compares components exactly or after
// lowercase folding. Tripwire's original cFCOName mixed case sensitivity
// per instance, with an asymmetric "either operand case-sensitive wins"
// compare operator; this design fixes the policy at the table level so
// every name sharing a table compares consistently (open question ii).
type CasePolicy int

const (
	// CaseSensitive compares components byte-for-byte.
	CaseSensitive CasePolicy = iota
	// CaseInsensitive compares components by their folded form.
	CaseInsensitive
)

// node is one interned path component.
type node struct {
	component string
	// folded is the index of this component's lowercase-folded node. It
	// equals the node's own index when the component is already
	// lowercase (or when the table is case-sensitive, in which case
	// folding is never consulted).
	folded int32
}

// Table is a process-wide (or test-scoped) interned component arena.
// Every FCOName constructed against a Table shares its CasePolicy.
type Table struct {
	casePolicy      CasePolicy
	doubleSlashRoot bool
	nodes           []node
	index           map[string]int32
}

// NewTable constructs an empty interning table. doubleSlashRoot mirrors
// POSIX systems that give "//" a platform-defined meaning distinct from
// "/": up to two leading empty path components are retained instead of
// being collapsed to one (spec §4.1).
func NewTable(policy CasePolicy, doubleSlashRoot bool) *Table {
	return &Table{
		casePolicy:      policy,
		doubleSlashRoot: doubleSlashRoot,
		index:           make(map[string]int32),
	}
}

// Default is the process-wide name table New uses when it is given a
// nil table.
var Default = NewTable(CaseSensitive, false)

// intern returns the stable index for component, interning it if this is
// the first occurrence. Intern is idempotent: intern(s1) == intern(s2)
// for equal strings (testable property 1).
func (t *Table) intern(component string) int32 {
	if idx, ok := t.index[component]; ok {
		return idx
	}

	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{component: component})
	t.index[component] = idx

	folded := component
	if t.casePolicy == CaseInsensitive {
		folded = strings.ToLower(component)
	}
	if folded == component {
		t.nodes[idx].folded = idx
	} else if foldedIdx, ok := t.index[folded]; ok {
		t.nodes[idx].folded = foldedIdx
	} else {
		// Recursively intern the folded form; this terminates because
		// lowercasing a lowercase string is a fixed point.
		t.nodes[idx].folded = t.intern(folded)
	}

	return idx
}

// Component returns the string form of an interned index.
func (t *Table) Component(idx int32) string {
	return t.nodes[idx].component
}

// comparisonKey returns the index used for ordering/equality comparisons:
// the node's own index under CaseSensitive, its folded sibling's index
// under CaseInsensitive. Folded-node identity is itself stable (every
// case variant of the same lowercase form interns to the same folded
// index), which is what makes property 1's second clause hold.
func (t *Table) comparisonKey(idx int32) int32 {
	if t.casePolicy == CaseInsensitive {
		return t.nodes[idx].folded
	}
	return idx
}
