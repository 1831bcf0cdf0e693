// Package database implements the hierarchical database (component C7):
// a tree keyed by path components, each node optionally holding an FCO
// record, navigated through a cursor. Interior nodes live in an
// append-only arena (Tree.nodes) referenced by stable index rather than
// the refcounted pointers of the system this design is grounded on —
// the same "ownership + indexing" substitution used by the fconame
// package (spec §9).
package database

import (
	"sort"

	"github.com/fsentry/fsentry/pkg/fsentry/fco"
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
)

// nodeIndex is a stable reference into a Tree's arena. The root always
// occupies index 0.
type nodeIndex int32

// noParent marks the root node, which has no parent.
const noParent nodeIndex = -1

// treeNode is one arena slot: a path component, its parent, its
// children keyed by component string, and an optional FCO.
type treeNode struct {
	component string
	parent    nodeIndex
	children  map[string]nodeIndex
	object    *fco.FCO
	hasObject bool
}

// Tree is the in-memory hierarchical database. Its root node
// corresponds to the filesystem root (or to the leading empty
// component of an absolute FCOName); every other node corresponds to
// one path component below it, per the invariant of spec §3: the node
// for path c1/…/ck exists iff all of its ancestors exist.
type Tree struct {
	nodes []treeNode
	table *fconame.Table
}

// NewTree constructs an empty tree with only a root node, whose
// component names are interned against table.
func NewTree(table *fconame.Table) *Tree {
	return &Tree{
		table: table,
		nodes: []treeNode{{parent: noParent, children: make(map[string]nodeIndex)}},
	}
}

// Table returns the name table this tree's components are interned
// against.
func (t *Tree) Table() *fconame.Table { return t.table }

// Clone returns a deep, independent copy of the tree: mutating the
// copy's shape (writing, deleting, or removing nodes) never affects the
// receiver. This is the primitive the database update engines (C9,
// C10) build their atomicity guarantee on — every mutation happens on
// a clone, and only a fully successful update ever replaces the
// caller's tree (spec §4.9: "on any failure the database is left
// identical to its pre-update state"). Note that Clone only deep-copies
// node structure: the *fco.FCO a node holds is shared by reference with
// the original tree until WriteFCO replaces it with a new value.
// Callers that need to adjust a handful of properties on an existing
// FCO (rather than replace it outright) must call FCO.Clone first and
// write the copy back, never mutate the value ReadFCO returns in
// place.
func (t *Tree) Clone() *Tree {
	nodes := make([]treeNode, len(t.nodes))
	for i, n := range t.nodes {
		children := make(map[string]nodeIndex, len(n.children))
		for k, v := range n.children {
			children[k] = v
		}
		nodes[i] = treeNode{
			component: n.component,
			parent:    n.parent,
			children:  children,
			object:    n.object,
			hasObject: n.hasObject,
		}
	}
	return &Tree{table: t.table, nodes: nodes}
}

// newChild creates a node for component under parent and returns its
// index.
func (t *Tree) newChild(parent nodeIndex, component string) nodeIndex {
	idx := nodeIndex(len(t.nodes))
	t.nodes = append(t.nodes, treeNode{component: component, parent: parent, children: make(map[string]nodeIndex)})
	t.nodes[parent].children[component] = idx
	return idx
}

// sortedChildren returns idx's children sorted by component string, so
// that SeekFirstChild/SeekNextSibling traverse in a deterministic order
// independent of map iteration (spec §5: deterministic pre-order by
// interned-name order among siblings).
func (t *Tree) sortedChildren(idx nodeIndex) []nodeIndex {
	n := &t.nodes[idx]
	out := make([]nodeIndex, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return t.nodes[out[i]].component < t.nodes[out[j]].component
	})
	return out
}

// Cursor navigates a Tree. A Cursor is always positioned on exactly one
// node (initially the root), or in a "lost" state (index -1) after a
// failed seek, from which only SeekTo can recover it.
type Cursor struct {
	tree *Tree
	node nodeIndex
}

// NewCursor returns a cursor positioned on tree's root.
func NewCursor(tree *Tree) *Cursor {
	return &Cursor{tree: tree, node: 0}
}

// Valid reports whether the cursor is positioned on a node.
func (c *Cursor) Valid() bool { return c.node >= 0 }

// Component returns the path component of the node the cursor is
// positioned on (empty for the root).
func (c *Cursor) Component() string { return c.tree.nodes[c.node].component }

// SeekTo positions the cursor at name, relative to the tree root,
// creating intermediate and final nodes along the way when create is
// true. It reports whether the target node exists (or was created).
func (c *Cursor) SeekTo(name fconame.Name, create bool) bool {
	cur := nodeIndex(0)
	for _, comp := range name.Iter() {
		child, ok := c.tree.nodes[cur].children[comp]
		if !ok {
			if !create {
				c.node = -1
				return false
			}
			child = c.tree.newChild(cur, comp)
		}
		cur = child
	}
	c.node = cur
	return true
}

// SeekParent moves the cursor to the current node's parent. It reports
// false (and leaves the cursor at the root) if already at the root.
func (c *Cursor) SeekParent() bool {
	if !c.Valid() {
		return false
	}
	parent := c.tree.nodes[c.node].parent
	if parent == noParent {
		return false
	}
	c.node = parent
	return true
}

// SeekFirstChild moves the cursor to the lexicographically first child
// of the current node. It reports false (leaving the cursor unchanged)
// if the current node has no children.
func (c *Cursor) SeekFirstChild() bool {
	if !c.Valid() {
		return false
	}
	children := c.tree.sortedChildren(c.node)
	if len(children) == 0 {
		return false
	}
	c.node = children[0]
	return true
}

// SeekNextSibling moves the cursor to the next sibling (in sorted
// component order) of the current node. It reports false (leaving the
// cursor unchanged) if there is no next sibling.
func (c *Cursor) SeekNextSibling() bool {
	if !c.Valid() {
		return false
	}
	parent := c.tree.nodes[c.node].parent
	if parent == noParent {
		return false
	}
	siblings := c.tree.sortedChildren(parent)
	for i, s := range siblings {
		if s == c.node && i+1 < len(siblings) {
			c.node = siblings[i+1]
			return true
		}
	}
	return false
}

// HasFCOData reports whether the current node holds an FCO record.
func (c *Cursor) HasFCOData() bool {
	return c.Valid() && c.tree.nodes[c.node].hasObject
}

// ReadFCO returns the FCO stored at the current node, or nil if none.
func (c *Cursor) ReadFCO() *fco.FCO {
	if !c.HasFCOData() {
		return nil
	}
	return c.tree.nodes[c.node].object
}

// WriteFCO stores object at the current node, replacing any existing
// record.
func (c *Cursor) WriteFCO(object *fco.FCO) {
	n := &c.tree.nodes[c.node]
	n.object = object
	n.hasObject = true
}

// DeleteFCO clears the FCO record at the current node without removing
// the node itself; a directory node with children but no FCO is
// structurally valid (it exists only to anchor its descendants).
func (c *Cursor) DeleteFCO() {
	n := &c.tree.nodes[c.node]
	n.object = nil
	n.hasObject = false
}

// RemoveEmptySubtree removes the current node, and then each ancestor
// that becomes childless and FCO-less as a result, stopping at the
// root (which is never removed). The cursor is left positioned on the
// first surviving ancestor. It reports whether any node was removed.
func (c *Cursor) RemoveEmptySubtree() bool {
	if !c.Valid() || c.node == 0 {
		return false
	}
	if len(c.tree.nodes[c.node].children) != 0 || c.tree.nodes[c.node].hasObject {
		return false
	}

	removed := false
	cur := c.node
	for cur != 0 {
		n := &c.tree.nodes[cur]
		if len(n.children) != 0 || n.hasObject {
			break
		}
		parent := n.parent
		delete(c.tree.nodes[parent].children, n.component)
		removed = true
		cur = parent
	}
	c.node = cur
	return removed
}
