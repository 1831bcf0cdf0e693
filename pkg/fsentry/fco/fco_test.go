package fco

import (
	"bytes"
	"testing"

	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/propid"
	"github.com/fsentry/fsentry/pkg/fsentry/propvalue"
	"github.com/fsentry/fsentry/pkg/fsentry/propvector"
	"github.com/fsentry/fsentry/pkg/fsentry/wire"
)

func TestGetSetMarkUndefined(t *testing.T) {
	table := fconame.NewTable(fconame.CaseSensitive, false)
	f := New(fconame.New(table, "/tmp/a", '/'))

	if _, err := f.Get(propid.Size); err == nil {
		t.Error("expected error reading unset property")
	}

	f.Set(propid.Size, propvalue.Int64(42))
	v, err := f.Get(propid.Size)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Int64Value() != 42 {
		t.Errorf("got %d, want 42", v.Int64Value())
	}

	f.MarkUndefined(propid.MTime)
	v, err = f.Get(propid.MTime)
	if err != nil {
		t.Fatalf("unexpected error reading undefined-but-valid property: %v", err)
	}
	if v.Kind() != propvalue.KindUndefined {
		t.Error("expected Undefined for marked-undefined property")
	}
}

func TestCopyPropsRespectsMaskAndUndefined(t *testing.T) {
	table := fconame.NewTable(fconame.CaseSensitive, false)
	src := New(fconame.New(table, "/tmp/a", '/'))
	src.Set(propid.Size, propvalue.Int64(10))
	src.MarkUndefined(propid.MTime)
	src.Set(propid.UID, propvalue.Int32(1000))

	dst := New(fconame.New(table, "/tmp/a", '/'))
	mask := propvector.New(int(propid.Count))
	mask.Add(int(propid.Size))
	mask.Add(int(propid.MTime))

	dst.CopyProps(src, mask)

	if !dst.ValidMask().Contains(int(propid.Size)) {
		t.Error("expected Size copied")
	}
	if !dst.ValidMask().Contains(int(propid.MTime)) {
		t.Error("expected MTime copied as valid")
	}
	if !dst.UndefinedMask().Contains(int(propid.MTime)) {
		t.Error("expected MTime undefined-ness propagated")
	}
	if dst.ValidMask().Contains(int(propid.UID)) {
		t.Error("UID not in mask should not have been copied")
	}
}

func TestRoundTrip(t *testing.T) {
	table := fconame.NewTable(fconame.CaseSensitive, false)
	f := New(fconame.New(table, "/tmp/a/b", '/'))
	f.Set(propid.Size, propvalue.Int64(123))
	f.Set(propid.FileType, propvalue.FileTypeValue(propvalue.FileTypeFile))
	f.MarkUndefined(propid.MTime)

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	f.Write(w)
	if w.Err() != nil {
		t.Fatalf("write error: %v", w.Err())
	}

	r := wire.NewReader(&buf)
	got := Read(r, table, 1)
	if r.Err() != nil {
		t.Fatalf("read error: %v", r.Err())
	}

	if !got.Name().Equal(f.Name()) {
		t.Error("round-tripped name differs")
	}
	v, _ := got.Get(propid.Size)
	if v.Int64Value() != 123 {
		t.Errorf("round-tripped size = %d, want 123", v.Int64Value())
	}
	if !got.UndefinedMask().Contains(int(propid.MTime)) {
		t.Error("round-tripped undefined mask lost MTime")
	}
}
