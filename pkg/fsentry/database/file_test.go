package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsentry/fsentry/pkg/fsentry/fco"
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/propid"
	"github.com/fsentry/fsentry/pkg/fsentry/propvalue"
)

func buildSampleTree(table *fconame.Table) *Tree {
	tree := NewTree(table)

	for _, p := range []string{"/tmp/tw_test/a", "/tmp/tw_test/b/c"} {
		c := NewCursor(tree)
		c.SeekTo(fconame.New(table, p, '/'), true)
		obj := fco.New(fconame.New(table, p, '/'))
		obj.Set(propid.FileType, propvalue.FileTypeValue(propvalue.FileTypeFile))
		obj.Set(propid.Size, propvalue.Int64(int64(len(p))))
		c.WriteFCO(obj)
	}
	return tree
}

func TestSaveLoadRoundTrip(t *testing.T) {
	table := fconame.NewTable(fconame.CaseSensitive, false)
	tree := buildSampleTree(table)

	path := filepath.Join(t.TempDir(), "db")
	if err := Save(path, tree); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loadTable := fconame.NewTable(fconame.CaseSensitive, false)
	loaded, err := Load(path, loadTable)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	c := NewCursor(loaded)
	if !c.SeekTo(fconame.New(loadTable, "/tmp/tw_test/a", '/'), false) {
		t.Fatal("expected /tmp/tw_test/a to round-trip")
	}
	if !c.HasFCOData() {
		t.Fatal("expected FCO data on /tmp/tw_test/a after round-trip")
	}
	size, err := c.ReadFCO().Get(propid.Size)
	if err != nil {
		t.Fatal(err)
	}
	if size.Int64Value() != int64(len("/tmp/tw_test/a")) {
		t.Errorf("size = %d, want %d", size.Int64Value(), len("/tmp/tw_test/a"))
	}

	c2 := NewCursor(loaded)
	if !c2.SeekTo(fconame.New(loadTable, "/tmp/tw_test/b/c", '/'), false) {
		t.Fatal("expected /tmp/tw_test/b/c to round-trip")
	}

	c3 := NewCursor(loaded)
	if c3.SeekTo(fconame.New(loadTable, "/tmp/tw_test/nonexistent", '/'), false) {
		t.Error("unexpected node materialized for a path never written")
	}
}

func TestLoadFailsOnCorruptedByte(t *testing.T) {
	table := fconame.NewTable(fconame.CaseSensitive, false)
	tree := buildSampleTree(table)

	path := filepath.Join(t.TempDir(), "db")
	if err := Save(path, tree); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Flip a byte well past the fixed-size header block, inside node
	// payload/CRC territory.
	data[len(data)-1] ^= 0xFF
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path, fconame.NewTable(fconame.CaseSensitive, false)); err == nil {
		t.Error("expected Load to fail fatally on a corrupted trailing byte")
	}
}
