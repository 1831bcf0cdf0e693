package database

import (
	"testing"

	"github.com/fsentry/fsentry/pkg/fsentry/fco"
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/propid"
	"github.com/fsentry/fsentry/pkg/fsentry/propvalue"
)

func TestCursorSeekToCreatesAncestors(t *testing.T) {
	table := fconame.NewTable(fconame.CaseSensitive, false)
	tree := NewTree(table)
	c := NewCursor(tree)

	name := fconame.New(table, "/a/b/c", '/')
	if !c.SeekTo(name, true) {
		t.Fatal("SeekTo with create=true should succeed")
	}
	if c.HasFCOData() {
		t.Error("freshly created node should have no FCO data")
	}

	c2 := NewCursor(tree)
	if !c2.SeekTo(fconame.New(table, "/a/b", '/'), false) {
		t.Error("intermediate ancestor /a/b should have been created")
	}
}

func TestCursorSeekToWithoutCreateFailsOnMissing(t *testing.T) {
	table := fconame.NewTable(fconame.CaseSensitive, false)
	tree := NewTree(table)
	c := NewCursor(tree)

	if c.SeekTo(fconame.New(table, "/nope", '/'), false) {
		t.Error("SeekTo with create=false should fail for a missing node")
	}
	if c.Valid() {
		t.Error("cursor should be left invalid after a failed seek")
	}
}

func TestCursorFCORoundTrip(t *testing.T) {
	table := fconame.NewTable(fconame.CaseSensitive, false)
	tree := NewTree(table)
	c := NewCursor(tree)

	name := fconame.New(table, "/a", '/')
	c.SeekTo(name, true)

	obj := fco.New(name)
	obj.Set(propid.Size, propvalue.Int64(42))
	c.WriteFCO(obj)

	if !c.HasFCOData() {
		t.Fatal("expected HasFCOData after WriteFCO")
	}
	got := c.ReadFCO()
	size, err := got.Get(propid.Size)
	if err != nil {
		t.Fatal(err)
	}
	if size.Int64Value() != 42 {
		t.Errorf("size = %d, want 42", size.Int64Value())
	}

	c.DeleteFCO()
	if c.HasFCOData() {
		t.Error("expected no FCO data after DeleteFCO")
	}
}

func TestCursorSiblingTraversalIsSorted(t *testing.T) {
	table := fconame.NewTable(fconame.CaseSensitive, false)
	tree := NewTree(table)
	root := NewCursor(tree)

	for _, p := range []string{"/b", "/a", "/c"} {
		cur := NewCursor(tree)
		cur.SeekTo(fconame.New(table, p, '/'), true)
	}

	if !root.SeekFirstChild() {
		t.Fatal("expected root to have a first child")
	}

	var order []string
	for {
		order = append(order, tree.nodes[root.node].component)
		if !root.SeekNextSibling() {
			break
		}
	}

	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, order[i], want[i])
		}
	}
}

func TestRemoveEmptySubtreeCollapsesAncestors(t *testing.T) {
	table := fconame.NewTable(fconame.CaseSensitive, false)
	tree := NewTree(table)
	c := NewCursor(tree)

	c.SeekTo(fconame.New(table, "/a/b/c", '/'), true)
	if !c.RemoveEmptySubtree() {
		t.Fatal("expected removal of the empty leaf and its empty ancestors")
	}

	check := NewCursor(tree)
	if check.SeekTo(fconame.New(table, "/a", '/'), false) {
		t.Error("expected /a to have been collapsed away as an empty ancestor")
	}
}

func TestRemoveEmptySubtreeStopsAtNonEmptyAncestor(t *testing.T) {
	table := fconame.NewTable(fconame.CaseSensitive, false)
	tree := NewTree(table)

	sibling := NewCursor(tree)
	sibling.SeekTo(fconame.New(table, "/a/sibling", '/'), true)
	sibling.WriteFCO(fco.New(fconame.New(table, "/a/sibling", '/')))

	leaf := NewCursor(tree)
	leaf.SeekTo(fconame.New(table, "/a/b", '/'), true)
	if !leaf.RemoveEmptySubtree() {
		t.Fatal("expected /a/b to be removed")
	}

	check := NewCursor(tree)
	if !check.SeekTo(fconame.New(table, "/a", '/'), false) {
		t.Error("/a should survive since it still has a non-empty child")
	}
}

func TestRemoveEmptySubtreeRefusesNonEmptyNode(t *testing.T) {
	table := fconame.NewTable(fconame.CaseSensitive, false)
	tree := NewTree(table)
	c := NewCursor(tree)

	c.SeekTo(fconame.New(table, "/a", '/'), true)
	c.WriteFCO(fco.New(fconame.New(table, "/a", '/')))

	if c.RemoveEmptySubtree() {
		t.Error("expected RemoveEmptySubtree to refuse a node holding FCO data")
	}
}
