// Package fco implements the FCO record (component C4): a name plus a
// fixed-width property array guarded by validity and undefined-ness
// masks.
package fco

import (
	"github.com/pkg/errors"

	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/propid"
	"github.com/fsentry/fsentry/pkg/fsentry/propvalue"
	"github.com/fsentry/fsentry/pkg/fsentry/propvector"
)

// FCO is the unit the database stores: a name, its measured property
// values, and the validMask/undefinedMask pair that together determine
// whether a given property slot is readable and, if so, whether it
// reads as Undefined.
type FCO struct {
	name          fconame.Name
	props         [propid.Count]propvalue.Value
	validMask     *propvector.Vector
	undefinedMask *propvector.Vector
}

// New constructs an empty FCO for name, with no properties marked valid.
func New(name fconame.Name) *FCO {
	return &FCO{
		name:          name,
		validMask:     propvector.New(int(propid.Count)),
		undefinedMask: propvector.New(int(propid.Count)),
	}
}

// Name returns the FCO's name.
func (f *FCO) Name() fconame.Name { return f.name }

// ValidMask returns the vector of properties that are readable.
func (f *FCO) ValidMask() *propvector.Vector { return f.validMask }

// UndefinedMask returns the vector of properties that, though valid,
// read as Undefined.
func (f *FCO) UndefinedMask() *propvector.Vector { return f.undefinedMask }

// Get returns the property at idx. If the property is valid and not
// undefined, its stored value is returned; if valid and undefined, the
// Undefined sentinel is returned; otherwise Get returns an error (spec
// §4.4).
func (f *FCO) Get(idx propid.Index) (propvalue.Value, error) {
	if !f.validMask.Contains(int(idx)) {
		return propvalue.Undefined(), errors.Errorf("property %s is not valid on %s", idx, f.name.AsString())
	}
	if f.undefinedMask.Contains(int(idx)) {
		return propvalue.Undefined(), nil
	}
	return f.props[idx], nil
}

// Set stores value at idx, marking it valid and clearing any undefined
// marking.
func (f *FCO) Set(idx propid.Index, value propvalue.Value) {
	f.props[idx] = value
	f.validMask.Add(int(idx))
	f.undefinedMask.Remove(int(idx))
}

// MarkUndefined marks idx valid but undefined (used when a property
// could not be computed, e.g. an unreadable file).
func (f *FCO) MarkUndefined(idx propid.Index) {
	f.validMask.Add(int(idx))
	f.undefinedMask.Add(int(idx))
	f.props[idx] = propvalue.Undefined()
}

// CopyProps copies every property position named by mask from src into
// the receiver, propagating undefined-ness. Positions in mask that are
// not valid on src are left untouched on the receiver. This is the
// primitive the scanner uses to materialize only the properties a rule
// requested (spec §4.4).
func (f *FCO) CopyProps(src *FCO, mask *propvector.Vector) {
	for _, idx := range mask.Bits() {
		i := propid.Index(idx)
		if !src.validMask.Contains(idx) {
			continue
		}
		if src.undefinedMask.Contains(idx) {
			f.MarkUndefined(i)
		} else {
			f.Set(i, src.props[i])
		}
	}
}

// CopyFrom assigns the receiver from other, copying property values only
// for positions in other's validMask (spec §3 copy semantics).
func (f *FCO) CopyFrom(other *FCO) {
	f.name = other.name
	f.validMask = propvector.New(other.validMask.Size())
	f.undefinedMask = propvector.New(other.undefinedMask.Size())
	f.CopyProps(other, other.validMask)
}

// Invalidate clears every position in mask from the valid mask (and the
// undefined mask, if set), making those properties unreadable rather
// than merely undefined. Used when a policy change narrows a rule's
// mask and the excess properties must stop being reported at all
// (spec §4.10).
func (f *FCO) Invalidate(mask *propvector.Vector) {
	for _, idx := range mask.Bits() {
		f.validMask.Remove(idx)
		f.undefinedMask.Remove(idx)
	}
}

// Clone returns an independent deep copy of the FCO.
func (f *FCO) Clone() *FCO {
	out := New(f.name)
	out.CopyFrom(f)
	return out
}
