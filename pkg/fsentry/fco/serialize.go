package fco

import (
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/propid"
	"github.com/fsentry/fsentry/pkg/fsentry/propvalue"
	"github.com/fsentry/fsentry/pkg/fsentry/propvector"
	"github.com/fsentry/fsentry/pkg/fsentry/wire"
)

// Write serializes the FCO's name, masks, and every valid property
// value. Undefined-but-valid positions are skipped (their value is
// never meaningful); Read restores them from the serialized
// undefinedMask.
func (f *FCO) Write(w *wire.Writer) {
	f.name.Write(w)
	f.validMask.Write(w)
	f.undefinedMask.Write(w)
	for _, idx := range f.validMask.Bits() {
		if f.undefinedMask.Contains(idx) {
			continue
		}
		f.props[idx].Write(w)
	}
}

// Read deserializes an FCO previously written with Write, interning its
// name against table.
func Read(r *wire.Reader, table *fconame.Table, version uint32) *FCO {
	name := fconame.Read(r, table)
	valid := propvector.Read(r)
	undefined := propvector.Read(r)

	f := New(name)
	f.validMask = valid
	f.undefinedMask = undefined
	for _, idx := range valid.Bits() {
		if undefined.Contains(idx) {
			continue
		}
		f.props[propid.Index(idx)] = propvalue.Read(r, version)
	}
	return f
}
