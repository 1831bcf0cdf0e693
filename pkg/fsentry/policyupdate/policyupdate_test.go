package policyupdate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsentry/fsentry/pkg/fsentry/database"
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/integrity"
	"github.com/fsentry/fsentry/pkg/fsentry/policy"
	"github.com/fsentry/fsentry/pkg/fsentry/propid"
	"github.com/fsentry/fsentry/pkg/fsentry/propvector"
	"github.com/fsentry/fsentry/pkg/fsentry/scan"
)

func maskOf(bits ...propid.Index) *propvector.Vector {
	m := propvector.New(int(propid.Count))
	for _, b := range bits {
		m.Add(int(b))
	}
	return m
}

func ruleAt(t *testing.T, table *fconame.Table, start string, mask *propvector.Vector) *policy.Rule {
	t.Helper()
	r, err := policy.New(fconame.New(table, start, '/'), policy.InfiniteDepth, mask, policy.Attrs{Name: "r"})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// initDB scans root once under rule and commits the result, modeling a
// prior init run the policy update now reconciles against.
func initDB(t *testing.T, table *fconame.Table, rule *policy.Rule) *database.Tree {
	t.Helper()
	tree := database.NewTree(table)
	rules := policy.NewList()
	if err := rules.Insert(rule); err != nil {
		t.Fatal(err)
	}
	rep := integrity.Check(tree, rules, scan.New())
	return integrity.Apply(tree, rep)
}

func TestUntouchedWhenMaskUnchanged(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	table := fconame.NewTable(fconame.CaseSensitive, false)
	mask := maskOf(propid.FileType, propid.Size)
	oldRule := ruleAt(t, table, root, mask)
	tree := initDB(t, table, oldRule)

	oldRules := policy.NewList()
	oldRules.Insert(oldRule)
	newRule := ruleAt(t, table, root, mask)
	newRules := policy.NewList()
	newRules.Insert(newRule)

	_, rep, err := Reconcile(tree, oldRules, newRules, scan.New(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Names(Untouched)) == 0 {
		t.Error("expected at least one untouched object")
	}
	if len(rep.Names(MaskNarrowed)) != 0 || len(rep.Names(MaskWidened)) != 0 {
		t.Error("expected no narrowed/widened objects when the mask did not change")
	}
}

func TestMaskNarrowedInvalidatesExcessProperties(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	table := fconame.NewTable(fconame.CaseSensitive, false)
	oldMask := maskOf(propid.FileType, propid.Size, propid.MTime)
	oldRule := ruleAt(t, table, root, oldMask)
	tree := initDB(t, table, oldRule)

	oldRules := policy.NewList()
	oldRules.Insert(oldRule)
	newMask := maskOf(propid.FileType, propid.Size)
	newRule := ruleAt(t, table, root, newMask)
	newRules := policy.NewList()
	newRules.Insert(newRule)

	next, rep, err := Reconcile(tree, oldRules, newRules, scan.New(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	aName := fconame.New(table, filepath.Join(root, "a"), '/')
	found := false
	for _, n := range rep.Names(MaskNarrowed) {
		if n.AsString() == aName.AsString() {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %s classified mask-narrowed", aName.AsString())
	}

	cursor := database.NewCursor(next)
	if !cursor.SeekTo(aName, false) || !cursor.HasFCOData() {
		t.Fatal("expected node to survive narrowing")
	}
	stored := cursor.ReadFCO()
	if _, err := stored.Get(propid.MTime); err == nil {
		t.Error("expected MTime to be invalidated after narrowing, got no error reading it")
	}
	if _, err := stored.Get(propid.Size); err != nil {
		t.Error("expected Size to remain valid after narrowing")
	}
}

func TestMaskWidenedMergesFreshProperties(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	table := fconame.NewTable(fconame.CaseSensitive, false)
	oldMask := maskOf(propid.FileType, propid.Size)
	oldRule := ruleAt(t, table, root, oldMask)
	tree := initDB(t, table, oldRule)

	oldRules := policy.NewList()
	oldRules.Insert(oldRule)
	newMask := maskOf(propid.FileType, propid.Size, propid.SHA1)
	newRule := ruleAt(t, table, root, newMask)
	newRules := policy.NewList()
	newRules.Insert(newRule)

	next, rep, err := Reconcile(tree, oldRules, newRules, scan.New(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Names(MaskWidened)) == 0 {
		t.Fatal("expected at least one widened object")
	}
	if rep.HasConflicts() {
		t.Errorf("expected no conflicts, got %d", len(rep.Conflicts()))
	}

	aName := fconame.New(table, filepath.Join(root, "a"), '/')
	cursor := database.NewCursor(next)
	cursor.SeekTo(aName, false)
	stored := cursor.ReadFCO()
	sha1, err := stored.Get(propid.SHA1)
	if err != nil {
		t.Fatalf("expected SHA1 to be populated after widening: %v", err)
	}
	if len(sha1.HashBytes()) != 20 {
		t.Errorf("expected a 20-byte SHA1 digest, got %d bytes", len(sha1.HashBytes()))
	}
}

func TestMaskWidenedDetectsConflict(t *testing.T) {
	root := t.TempDir()
	aPath := filepath.Join(root, "a")
	if err := os.WriteFile(aPath, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	table := fconame.NewTable(fconame.CaseSensitive, false)
	oldMask := maskOf(propid.FileType, propid.Size)
	oldRule := ruleAt(t, table, root, oldMask)
	tree := initDB(t, table, oldRule)

	// Mutate the file's size out from under the database without going
	// through a normal integrity check, simulating drift a targeted
	// rescan (rather than a full one) can catch.
	if err := os.WriteFile(aPath, []byte("hello world, much longer now"), 0o644); err != nil {
		t.Fatal(err)
	}

	oldRules := policy.NewList()
	oldRules.Insert(oldRule)
	newMask := maskOf(propid.FileType, propid.Size, propid.SHA1)
	newRule := ruleAt(t, table, root, newMask)
	newRules := policy.NewList()
	newRules.Insert(newRule)

	_, rep, err := Reconcile(tree, oldRules, newRules, scan.New(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !rep.HasConflicts() {
		t.Fatal("expected a size conflict between the stored and freshly rescanned value")
	}
}

func TestSecureModeAbortsOnConflictLeavingTreeUntouched(t *testing.T) {
	root := t.TempDir()
	aPath := filepath.Join(root, "a")
	if err := os.WriteFile(aPath, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	table := fconame.NewTable(fconame.CaseSensitive, false)
	oldMask := maskOf(propid.FileType, propid.Size)
	oldRule := ruleAt(t, table, root, oldMask)
	tree := initDB(t, table, oldRule)

	if err := os.WriteFile(aPath, []byte("hello world, much longer now"), 0o644); err != nil {
		t.Fatal(err)
	}

	oldRules := policy.NewList()
	oldRules.Insert(oldRule)
	newMask := maskOf(propid.FileType, propid.Size, propid.SHA1)
	newRule := ruleAt(t, table, root, newMask)
	newRules := policy.NewList()
	newRules.Insert(newRule)

	got, _, err := Reconcile(tree, oldRules, newRules, scan.New(), Options{SecureMode: true})
	if err != ErrSecureModeConflict {
		t.Fatalf("expected ErrSecureModeConflict, got %v", err)
	}
	if got != tree {
		t.Error("expected the original tree to be returned unchanged on secure-mode abort")
	}
}

func TestUncoveredRuleRemovesSubtree(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	table := fconame.NewTable(fconame.CaseSensitive, false)
	mask := maskOf(propid.FileType, propid.Size)
	oldRule := ruleAt(t, table, root, mask)
	tree := initDB(t, table, oldRule)

	oldRules := policy.NewList()
	oldRules.Insert(oldRule)
	newRules := policy.NewList() // rule dropped entirely

	next, rep, err := Reconcile(tree, oldRules, newRules, scan.New(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Names(Uncovered)) == 0 {
		t.Error("expected at least one uncovered object")
	}
	cursor := database.NewCursor(next)
	if cursor.SeekTo(fconame.New(table, root, '/'), false) && cursor.HasFCOData() {
		t.Error("expected the root object's FCO data to be removed once uncovered")
	}
}

func TestNewlyCoveredRuleScansFresh(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	if err := os.WriteFile(filepath.Join(rootA, "a"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(rootB, "b"), []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}

	table := fconame.NewTable(fconame.CaseSensitive, false)
	mask := maskOf(propid.FileType, propid.Size)
	oldRule := ruleAt(t, table, rootA, mask)
	tree := initDB(t, table, oldRule)

	oldRules := policy.NewList()
	oldRules.Insert(oldRule)
	newRules := policy.NewList()
	newRules.Insert(ruleAt(t, table, rootA, mask))
	newRuleB := ruleAt(t, table, rootB, mask)
	newRules.Insert(newRuleB)

	next, rep, err := Reconcile(tree, oldRules, newRules, scan.New(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Names(NewlyCovered)) == 0 {
		t.Fatal("expected newly-covered objects under the freshly added rule")
	}
	bName := fconame.New(table, filepath.Join(rootB, "b"), '/')
	cursor := database.NewCursor(next)
	if !cursor.SeekTo(bName, false) || !cursor.HasFCOData() {
		t.Error("expected the newly covered file to be recorded in the database")
	}
}
