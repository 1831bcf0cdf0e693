// Package report implements the report model (component C8): per-rule
// added/removed/changed sets, grouped by genre, each with its own
// chainable error queue feeding a report-wide queue.
package report

import (
	"sort"

	"github.com/fsentry/fsentry/pkg/fsentry/errq"
	"github.com/fsentry/fsentry/pkg/fsentry/fco"
	"github.com/fsentry/fsentry/pkg/fsentry/policy"
	"github.com/fsentry/fsentry/pkg/fsentry/propvector"
)

// Genre is a namespace of FCO types. In scope, only FilesystemGenre is
// produced; the type exists, and reports key on it, purely for forward
// extensibility (spec glossary: "Genre").
type Genre uint32

// FilesystemGenre is the one genre this build's scanner produces.
const FilesystemGenre Genre = 0

// Change is one changed object: the stored (old) FCO, the freshly
// observed (new) FCO, and the positions that differ between them.
type Change struct {
	Old  *fco.FCO
	New  *fco.FCO
	Mask *propvector.Vector
}

// SpecReport is one rule's contribution to a report: the rule and its
// attributes, the objects added/removed/changed relative to the
// database, the rule's own error queue, and a count of objects the
// scan visited.
type SpecReport struct {
	Rule  *policy.Rule
	Attrs policy.Attrs

	added   map[string]*fco.FCO
	removed map[string]*fco.FCO
	changed map[string]*Change

	errors         *errq.Queue
	objectsScanned int
}

// newSpecReport constructs an empty SpecReport whose error queue
// forwards to parent.
func newSpecReport(rule *policy.Rule, attrs policy.Attrs, parent *errq.Queue) *SpecReport {
	sr := &SpecReport{
		Rule:    rule,
		Attrs:   attrs,
		added:   make(map[string]*fco.FCO),
		removed: make(map[string]*fco.FCO),
		changed: make(map[string]*Change),
		errors:  errq.New(),
	}
	sr.errors.SetChild(parent)
	return sr
}

// AddAdded records object as newly present relative to the database.
func (sr *SpecReport) AddAdded(object *fco.FCO) {
	sr.added[object.Name().AsString()] = object
}

// AddRemoved records object as present in the database but absent from
// the live scan.
func (sr *SpecReport) AddRemoved(object *fco.FCO) {
	sr.removed[object.Name().AsString()] = object
}

// AddChanged records a changed object. Two changes for the same name
// are merged: their changed masks are unioned, and the newer old/new
// FCO pair wins (spec §4.8).
func (sr *SpecReport) AddChanged(old, latest *fco.FCO, mask *propvector.Vector) {
	key := old.Name().AsString()
	if existing, ok := sr.changed[key]; ok {
		existing.Mask.Union(mask)
		existing.Old = old
		existing.New = latest
		return
	}
	sr.changed[key] = &Change{Old: old, New: latest, Mask: mask.Clone()}
}

// IncrementObjectsScanned bumps the count of objects the scan visited
// for this spec, regardless of whether they ended up added, removed,
// changed, or unchanged.
func (sr *SpecReport) IncrementObjectsScanned() {
	sr.objectsScanned++
}

// ObjectsScanned returns the count of objects the scan visited for
// this spec.
func (sr *SpecReport) ObjectsScanned() int {
	return sr.objectsScanned
}

// Errors returns this spec's error queue.
func (sr *SpecReport) Errors() *errq.Queue {
	return sr.errors
}

// sortedByName returns fcos ordered by FCOName's total order, giving
// the determinism spec §4.9 requires of a report's sections.
func sortedByName(fcos map[string]*fco.FCO) []*fco.FCO {
	out := make([]*fco.FCO, 0, len(fcos))
	for _, f := range fcos {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name().Compare(out[j].Name()) < 0
	})
	return out
}

// Added returns the spec's added objects in FCOName order.
func (sr *SpecReport) Added() []*fco.FCO { return sortedByName(sr.added) }

// Removed returns the spec's removed objects in FCOName order.
func (sr *SpecReport) Removed() []*fco.FCO { return sortedByName(sr.removed) }

// Changed returns the spec's changed entries in FCOName order (by the
// old FCO's name, which equals the new FCO's name per the invariant of
// spec §3).
func (sr *SpecReport) Changed() []Change {
	out := make([]Change, 0, len(sr.changed))
	for _, c := range sr.changed {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Old.Name().Compare(out[j].Old.Name()) < 0
	})
	return out
}

// genreReport is the ordered list of SpecReports for one genre, in
// add-order (the order report.AddSpec was called, which callers
// arrange to match rule insertion order).
type genreReport struct {
	specs []*SpecReport
}

// Report is the full signed-artifact payload produced by the
// integrity-check and policy-update engines: a map from genre to its
// ordered list of SpecReports, plus one report-wide error queue every
// spec's own queue forwards into.
type Report struct {
	genres       map[Genre]*genreReport
	genreOrder   []Genre
	globalErrors *errq.Queue
}

// New constructs an empty report.
func New() *Report {
	return &Report{
		genres:       make(map[Genre]*genreReport),
		globalErrors: errq.New(),
	}
}

// GlobalErrors returns the report-wide error queue every spec's queue
// forwards into.
func (r *Report) GlobalErrors() *errq.Queue {
	return r.globalErrors
}

// AddSpec appends a new, empty SpecReport for (genre, rule, attrs) and
// returns it for the caller (C9/C10) to populate.
func (r *Report) AddSpec(genre Genre, rule *policy.Rule, attrs policy.Attrs) *SpecReport {
	gr, ok := r.genres[genre]
	if !ok {
		gr = &genreReport{}
		r.genres[genre] = gr
		r.genreOrder = append(r.genreOrder, genre)
	}
	sr := newSpecReport(rule, attrs, r.globalErrors)
	gr.specs = append(gr.specs, sr)
	return sr
}

// Genres returns the genres present in the report, in the order their
// first spec was added.
func (r *Report) Genres() []Genre {
	out := make([]Genre, len(r.genreOrder))
	copy(out, r.genreOrder)
	return out
}

// Specs returns genre's SpecReports in insertion order.
func (r *Report) Specs(genre Genre) []*SpecReport {
	gr, ok := r.genres[genre]
	if !ok {
		return nil
	}
	out := make([]*SpecReport, len(gr.specs))
	copy(out, gr.specs)
	return out
}

// IsEmpty reports whether every spec in every genre has no added,
// removed, or changed entries — the condition the end-to-end
// "immediately re-run integrity-check" scenario of spec §8 expects.
func (r *Report) IsEmpty() bool {
	for _, genre := range r.genreOrder {
		for _, sr := range r.genres[genre].specs {
			if len(sr.added) != 0 || len(sr.removed) != 0 || len(sr.changed) != 0 {
				return false
			}
		}
	}
	return true
}
