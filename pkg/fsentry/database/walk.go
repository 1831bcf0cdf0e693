package database

import "github.com/fsentry/fsentry/pkg/fsentry/fco"
import "github.com/fsentry/fsentry/pkg/fsentry/fconame"

// Walk visits every node in tree holding FCO data, in deterministic
// sorted-sibling pre-order, reconstructing each node's FCOName as it
// descends from root. Unlike the integrity and policy-update engines'
// own traversals, Walk is not constrained by any rule — it is the
// whole-database dump the text viewer (C12) renders for "print-db".
func Walk(tree *Tree, table *fconame.Table, delim byte, visit func(fconame.Name, *fco.FCO)) {
	// The tree's root node has no component of its own; an absolute
	// name's leading empty component is its child, pushed by walkAll.
	root := fconame.New(table, "", delim)
	root.Pop()
	walkAll(NewCursor(tree), root, visit)
}

func walkAll(cursor *Cursor, name fconame.Name, visit func(fconame.Name, *fco.FCO)) {
	if cursor.HasFCOData() {
		visit(name, cursor.ReadFCO())
	}
	if cursor.SeekFirstChild() {
		for {
			child := name.Clone()
			child.Push(cursor.Component())
			walkAll(cursor, child, visit)
			if !cursor.SeekNextSibling() {
				break
			}
		}
		cursor.SeekParent()
	}
}
