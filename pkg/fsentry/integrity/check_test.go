package integrity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsentry/fsentry/pkg/fsentry/database"
	"github.com/fsentry/fsentry/pkg/fsentry/fco"
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/policy"
	"github.com/fsentry/fsentry/pkg/fsentry/propid"
	"github.com/fsentry/fsentry/pkg/fsentry/propvector"
	"github.com/fsentry/fsentry/pkg/fsentry/report"
	"github.com/fsentry/fsentry/pkg/fsentry/scan"
)

func standardMask() *propvector.Vector {
	m := propvector.New(int(propid.Count))
	m.Add(int(propid.FileType))
	m.Add(int(propid.Size))
	m.Add(int(propid.MTime))
	m.Add(int(propid.SHA1))
	return m
}

func mustRule(t *testing.T, table *fconame.Table, start string) *policy.Rule {
	t.Helper()
	r, err := policy.New(fconame.New(table, start, '/'), policy.InfiniteDepth, standardMask(), policy.Attrs{Name: "r"})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// initAndCheck runs Check against an empty database (simulating the
// first "init" pass) and applies the result, returning the committed
// tree for subsequent checks.
func initAndCheck(t *testing.T, table *fconame.Table, rule *policy.Rule) *database.Tree {
	t.Helper()
	tree := database.NewTree(table)
	rules := policy.NewList()
	if err := rules.Insert(rule); err != nil {
		t.Fatal(err)
	}
	rep := Check(tree, rules, scan.New())
	return Apply(tree, rep)
}

func TestInitAndVerifyScenario(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a"), []byte("hello\nwor\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "b", "c"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	table := fconame.NewTable(fconame.CaseSensitive, false)
	rule := mustRule(t, table, root)
	rules := policy.NewList()
	if err := rules.Insert(rule); err != nil {
		t.Fatal(err)
	}

	tree := initAndCheck(t, table, rule)

	rep := Check(tree, rules, scan.New())
	if !rep.IsEmpty() {
		specs := rep.Specs(report.FilesystemGenre)
		t.Fatalf("expected empty report on immediate re-check, got added=%d removed=%d changed=%d",
			len(specs[0].Added()), len(specs[0].Removed()), len(specs[0].Changed()))
	}
}

func TestDetectModificationScenario(t *testing.T) {
	root := t.TempDir()
	aPath := filepath.Join(root, "a")
	if err := os.WriteFile(aPath, []byte("hello\nwor\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	table := fconame.NewTable(fconame.CaseSensitive, false)
	rule := mustRule(t, table, root)
	rules := policy.NewList()
	if err := rules.Insert(rule); err != nil {
		t.Fatal(err)
	}

	tree := initAndCheck(t, table, rule)

	f, err := os.OpenFile(aPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("x"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	rep := Check(tree, rules, scan.New())
	specs := rep.Specs(report.FilesystemGenre)
	changed := specs[0].Changed()
	if len(changed) != 1 {
		t.Fatalf("expected exactly one changed entry, got %d", len(changed))
	}
	c := changed[0]
	if !c.Mask.Contains(int(propid.Size)) {
		t.Error("expected size to be in the changed mask")
	}
	oldSize, _ := c.Old.Get(propid.Size)
	newSize, _ := c.New.Get(propid.Size)
	if oldSize.Int64Value() != 10 || newSize.Int64Value() != 11 {
		t.Errorf("size.old=%d size.new=%d, want 10, 11", oldSize.Int64Value(), newSize.Int64Value())
	}
}

func TestDetectAdditionAndRemovalScenario(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	cPath := filepath.Join(root, "b", "c")
	if err := os.WriteFile(cPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	table := fconame.NewTable(fconame.CaseSensitive, false)
	rule := mustRule(t, table, root)
	rules := policy.NewList()
	if err := rules.Insert(rule); err != nil {
		t.Fatal(err)
	}

	tree := initAndCheck(t, table, rule)

	if err := os.WriteFile(filepath.Join(root, "a2"), []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(cPath); err != nil {
		t.Fatal(err)
	}

	rep := Check(tree, rules, scan.New())
	specs := rep.Specs(report.FilesystemGenre)

	added := specs[0].Added()
	if len(added) != 1 || added[0].Name().AsString() != root+"/a2" {
		t.Fatalf("expected added={%s/a2}, got %v", root, namesOf(added))
	}

	removed := specs[0].Removed()
	if len(removed) != 1 || removed[0].Name().AsString() != root+"/b/c" {
		t.Fatalf("expected removed={%s/b/c}, got %v", root, namesOf(removed))
	}
}

func TestStopPointExcludesSubtreeScenario(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	cPath := filepath.Join(root, "b", "c")
	if err := os.WriteFile(cPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	table := fconame.NewTable(fconame.CaseSensitive, false)
	rule := mustRule(t, table, root)
	if err := rule.AddStopPoint(fconame.New(table, filepath.Join(root, "b"), '/')); err != nil {
		t.Fatal(err)
	}
	rules := policy.NewList()
	if err := rules.Insert(rule); err != nil {
		t.Fatal(err)
	}

	tree := initAndCheck(t, table, rule)

	if err := os.WriteFile(cPath, []byte("xx"), 0o644); err != nil {
		t.Fatal(err)
	}

	rep := Check(tree, rules, scan.New())
	if !rep.IsEmpty() {
		t.Error("expected no changes reported for an object beyond a stop point")
	}
}

func namesOf(objs []*fco.FCO) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.Name().AsString()
	}
	return out
}
