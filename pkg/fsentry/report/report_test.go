package report

import (
	"bytes"
	"testing"

	"github.com/fsentry/fsentry/pkg/fsentry/fco"
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/ferr"
	"github.com/fsentry/fsentry/pkg/fsentry/policy"
	"github.com/fsentry/fsentry/pkg/fsentry/propid"
	"github.com/fsentry/fsentry/pkg/fsentry/propvalue"
	"github.com/fsentry/fsentry/pkg/fsentry/propvector"
	"github.com/fsentry/fsentry/pkg/fsentry/wire"
)

func sampleRule(t *testing.T, table *fconame.Table) *policy.Rule {
	t.Helper()
	mask := propvector.New(int(propid.Count))
	mask.Add(int(propid.Size))
	rule, err := policy.New(fconame.New(table, "/tmp/tw_test", '/'), policy.InfiniteDepth, mask, policy.Attrs{Name: "r", Severity: 50})
	if err != nil {
		t.Fatal(err)
	}
	return rule
}

func TestAddChangedMergesByUnion(t *testing.T) {
	table := fconame.NewTable(fconame.CaseSensitive, false)
	report := New()
	rule := sampleRule(t, table)
	sr := report.AddSpec(FilesystemGenre, rule, policy.Attrs{Name: "r"})

	name := fconame.New(table, "/tmp/tw_test/a", '/')
	old := fco.New(name)
	mid := fco.New(name)
	latest := fco.New(name)

	m1 := propvector.New(int(propid.Count))
	m1.Add(int(propid.Size))
	sr.AddChanged(old, mid, m1)

	m2 := propvector.New(int(propid.Count))
	m2.Add(int(propid.MTime))
	sr.AddChanged(old, latest, m2)

	changes := sr.Changed()
	if len(changes) != 1 {
		t.Fatalf("expected merged single change entry, got %d", len(changes))
	}
	if !changes[0].Mask.Contains(int(propid.Size)) || !changes[0].Mask.Contains(int(propid.MTime)) {
		t.Error("expected merged mask to union both changes' bits")
	}
	if changes[0].New != latest {
		t.Error("expected the newer FCO pair to win")
	}
}

func TestReportIsEmptyReflectsSections(t *testing.T) {
	table := fconame.NewTable(fconame.CaseSensitive, false)
	report := New()
	rule := sampleRule(t, table)
	sr := report.AddSpec(FilesystemGenre, rule, policy.Attrs{Name: "r"})

	if !report.IsEmpty() {
		t.Error("freshly created report should be empty")
	}

	sr.AddAdded(fco.New(fconame.New(table, "/tmp/tw_test/new", '/')))
	if report.IsEmpty() {
		t.Error("report with an added entry should not be empty")
	}
}

func TestReportWriteReadRoundTrip(t *testing.T) {
	table := fconame.NewTable(fconame.CaseSensitive, false)
	report := New()
	rule := sampleRule(t, table)
	sr := report.AddSpec(FilesystemGenre, rule, policy.Attrs{Name: "r", Severity: 10})

	addedName := fconame.New(table, "/tmp/tw_test/added", '/')
	addedFCO := fco.New(addedName)
	addedFCO.Set(propid.FileType, propvalue.FileTypeValue(propvalue.FileTypeFile))
	sr.AddAdded(addedFCO)

	name := fconame.New(table, "/tmp/tw_test/a", '/')
	old := fco.New(name)
	old.Set(propid.Size, propvalue.Int64(10))
	latest := fco.New(name)
	latest.Set(propid.Size, propvalue.Int64(20))
	mask := propvector.New(int(propid.Count))
	mask.Add(int(propid.Size))
	sr.AddChanged(old, latest, mask)

	var buf bytes.Buffer
	report.Write(wire.NewWriter(&buf))

	loadTable := fconame.NewTable(fconame.CaseSensitive, false)
	got, err := Read(wire.NewReader(&buf), loadTable, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	specs := got.Specs(FilesystemGenre)
	if len(specs) != 1 {
		t.Fatalf("expected one spec, got %d", len(specs))
	}
	gotSr := specs[0]
	if len(gotSr.Added()) != 1 {
		t.Fatalf("expected one added entry, got %d", len(gotSr.Added()))
	}
	if len(gotSr.Changed()) != 1 {
		t.Fatalf("expected one changed entry, got %d", len(gotSr.Changed()))
	}
	changed := gotSr.Changed()[0]
	size, err := changed.New.Get(propid.Size)
	if err != nil {
		t.Fatal(err)
	}
	if size.Int64Value() != 20 {
		t.Errorf("new size = %d, want 20", size.Int64Value())
	}
}

func TestErrorQueueForwardsToGlobal(t *testing.T) {
	table := fconame.NewTable(fconame.CaseSensitive, false)
	report := New()
	rule := sampleRule(t, table)
	sr := report.AddSpec(FilesystemGenre, rule, policy.Attrs{Name: "r"})

	sr.Errors().AddError(ferr.NotFound(nil, "/tmp/tw_test/missing"))

	if report.GlobalErrors().Len() != 1 {
		t.Errorf("expected the spec error to forward to the report-wide queue, got %d entries", report.GlobalErrors().Len())
	}
}
