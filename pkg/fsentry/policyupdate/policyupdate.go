// Package policyupdate implements the policy-update engine (component
// C10): reconciling a database built under one rule set against a new
// rule set without a full rescan, classifying every affected object as
// untouched, mask-narrowed, mask-widened, newly-covered, uncovered, or
// in conflict (spec §4.10).
//
// Reconciliation is performed per matched rule pair: a rule in
// oldRules and a rule in newRules sharing the same start point. Rules
// present only in oldRules are wholesale uncovered (their subtree is
// removed); rules present only in newRules are wholesale newly-covered
// (their subtree is scanned fresh, as in an initial C9 added pass).
// For a matched pair, every object already recorded in the database
// under the old rule's coverage is individually classified against the
// new rule.
package policyupdate

import (
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/fsentry/fsentry/pkg/fsentry/database"
	"github.com/fsentry/fsentry/pkg/fsentry/errq"
	"github.com/fsentry/fsentry/pkg/fsentry/fco"
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/policy"
	"github.com/fsentry/fsentry/pkg/fsentry/propid"
	"github.com/fsentry/fsentry/pkg/fsentry/propvalue"
	"github.com/fsentry/fsentry/pkg/fsentry/propvector"
	"github.com/fsentry/fsentry/pkg/fsentry/scan"
)

// Options carries the three option flags spec §4.10 names.
type Options struct {
	// SecureMode aborts the whole reconciliation, leaving the database
	// byte-identical to its pre-update state, when any conflict was
	// detected; every rule is still reconciled on the working clone
	// before the abort is decided (testable property 9).
	SecureMode bool
	// EraseFootprints attempts to restore the access (and modification)
	// time a targeted rescan disturbs, best-effort.
	EraseFootprints bool
	// DirectIO is accepted for interface completeness; the scan layer
	// this engine rescans through has no page-cache bypass knob to
	// plumb it into, so it is currently inert. Recorded rather than
	// silently dropped so a future transport can wire it.
	DirectIO bool
}

// Classification is the per-object outcome of reconciling one database
// object against the new rule set.
type Classification int

const (
	Untouched Classification = iota
	MaskNarrowed
	MaskWidened
	NewlyCovered
	Uncovered
	Conflict
)

func (c Classification) String() string {
	switch c {
	case Untouched:
		return "untouched"
	case MaskNarrowed:
		return "mask-narrowed"
	case MaskWidened:
		return "mask-widened"
	case NewlyCovered:
		return "newly-covered"
	case Uncovered:
		return "uncovered"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// ConflictRecord records a single mismatch between a stored property and its
// freshly rescanned replacement, detected while reconciling a
// mask-widened object (spec §4.10).
type ConflictRecord struct {
	Name   fconame.Name
	Stored *fco.FCO
	Fresh  *fco.FCO
	Mask   *propvector.Vector
}

// Report is the conflictReport half of spec §4.10's
// (updatedDb, conflictReport) result.
type Report struct {
	byClass   map[Classification][]fconame.Name
	conflicts []ConflictRecord
}

func newReport() *Report {
	return &Report{byClass: make(map[Classification][]fconame.Name)}
}

func (r *Report) record(c Classification, name fconame.Name) {
	r.byClass[c] = append(r.byClass[c], name)
}

// Names returns the objects classified as c.
func (r *Report) Names(c Classification) []fconame.Name {
	return r.byClass[c]
}

// Conflicts returns every detected conflict, whether or not secure mode
// ultimately aborted the update.
func (r *Report) Conflicts() []ConflictRecord {
	return r.conflicts
}

// HasConflicts reports whether any conflict was detected.
func (r *Report) HasConflicts() bool {
	return len(r.conflicts) > 0
}

// ErrSecureModeConflict is returned by Reconcile when SecureMode is set
// and at least one conflict was detected; the returned tree is the
// caller's original, untouched.
var ErrSecureModeConflict = errors.New("policy update aborted: conflict detected in secure mode")

// Reconcile implements spec §4.10. It never mutates tree: on success it
// returns a new tree built from a clone; on a secure-mode abort it
// returns tree itself unchanged, exactly as passed in.
func Reconcile(tree *database.Tree, oldRules, newRules *policy.RuleList, scanner *scan.Scanner, opts Options) (*database.Tree, *Report, error) {
	rep := newReport()
	next := tree.Clone()

	oldByStart := indexByStart(oldRules)
	newByStart := indexByStart(newRules)

	for start, oldRule := range oldByStart {
		newRule, stillCovered := newByStart[start]
		if !stillCovered {
			uncoverRule(next, oldRule, rep)
			continue
		}
		if err := reconcileRule(next, oldRule, newRule, scanner, opts, rep); err != nil {
			return tree, rep, err
		}
	}

	for start, newRule := range newByStart {
		if _, existed := oldByStart[start]; existed {
			continue
		}
		newlyCoverRule(next, newRule, scanner, rep)
	}

	if opts.SecureMode && rep.HasConflicts() {
		return tree, rep, ErrSecureModeConflict
	}
	return next, rep, nil
}

func indexByStart(rules *policy.RuleList) map[string]*policy.Rule {
	out := make(map[string]*policy.Rule)
	for _, r := range rules.InsertionOrder() {
		out[r.StartPoint().AsString()] = r
	}
	return out
}

// uncoverRule removes every node in oldRule's database subtree: no new
// rule shares its start point, so everything it recorded is now
// uncovered.
func uncoverRule(tree *database.Tree, oldRule *policy.Rule, rep *Report) {
	names := collectRecorded(tree, oldRule)
	for _, name := range names {
		rep.record(Uncovered, name)
		cursor := database.NewCursor(tree)
		if cursor.SeekTo(name, false) {
			cursor.DeleteFCO()
			cursor.RemoveEmptySubtree()
		}
	}
}

// newlyCoverRule records newRule's entire live coverage as newly
// covered, exactly as an initial C9 added pass would (no prior
// database state to compare against).
func newlyCoverRule(tree *database.Tree, newRule *policy.Rule, scanner *scan.Scanner, rep *Report) {
	scanner.Walk(newRule, newRule.PropMask(), noopErrorQueue(), func(object *fco.FCO) error {
		name := object.Name()
		rep.record(NewlyCovered, name)
		cursor := database.NewCursor(tree)
		cursor.SeekTo(name, true)
		cursor.WriteFCO(object)
		return nil
	})
}

// reconcileRule classifies every object oldRule previously recorded
// against newRule's coverage and mask.
func reconcileRule(tree *database.Tree, oldRule, newRule *policy.Rule, scanner *scan.Scanner, opts Options, rep *Report) error {
	oldMask := oldRule.PropMask()
	newMask := newRule.PropMask()

	for _, name := range collectRecorded(tree, oldRule) {
		if !newRule.ContainsFCO(name) {
			rep.record(Uncovered, name)
			cursor := database.NewCursor(tree)
			if cursor.SeekTo(name, false) {
				cursor.DeleteFCO()
				cursor.RemoveEmptySubtree()
			}
			continue
		}

		if err := reconcileObject(tree, name, oldMask, newMask, scanner, opts, rep); err != nil {
			return err
		}
	}
	return nil
}

func reconcileObject(tree *database.Tree, name fconame.Name, oldMask, newMask *propvector.Vector, scanner *scan.Scanner, opts Options, rep *Report) error {
	cursor := database.NewCursor(tree)
	if !cursor.SeekTo(name, false) || !cursor.HasFCOData() {
		return nil
	}

	widened := subtract(newMask, oldMask)
	narrowed := subtract(oldMask, newMask)

	switch {
	case widened.IsEmpty() && narrowed.IsEmpty():
		rep.record(Untouched, name)
		return nil

	case widened.IsEmpty():
		// Clone before mutating: tree is a clone of the caller's
		// original, but Tree.Clone only copies FCO pointers (node
		// data, not the FCO itself), so mutating the FCO in place
		// would corrupt the original tree too.
		stored := cursor.ReadFCO().Clone()
		rep.record(MaskNarrowed, name)
		stored.Invalidate(narrowed)
		cursor.WriteFCO(stored)
		return nil

	default:
		// stored is read-only here (shared with the caller's original
		// tree via Tree.Clone's shallow node copy) — everything we
		// write back goes through merged, a private copy, so the
		// original tree's FCO is never mutated in place.
		stored := cursor.ReadFCO()
		fresh, statErr := scanner.Stat(name, newMask)
		if statErr != nil {
			// The object vanished or became unreadable since it was
			// last recorded; treat it like any other scan failure
			// (fresh carries FileType plus Undefined elsewhere) and
			// still merge it in, rather than aborting reconciliation.
			_ = statErr
		}

		overlap := intersect(oldMask, newMask)
		conflictMask := diffOverlap(stored, fresh, overlap)
		if !conflictMask.IsEmpty() {
			rep.conflicts = append(rep.conflicts, ConflictRecord{Name: name, Stored: stored, Fresh: fresh, Mask: conflictMask})
			rep.record(Conflict, name)
		} else {
			rep.record(MaskWidened, name)
		}

		merged := stored.Clone()
		if !narrowed.IsEmpty() {
			merged.Invalidate(narrowed)
		}
		merged.CopyProps(fresh, newMask)
		cursor.WriteFCO(merged)

		if opts.EraseFootprints {
			eraseFootprint(name, fresh)
		}
		return nil
	}
}

// collectRecorded returns every object recorded in tree under rule's
// database subtree, constrained by rule's own containment exactly as
// the integrity engine's removal pass walks it (spec §4.9 step 3).
func collectRecorded(tree *database.Tree, rule *policy.Rule) []fconame.Name {
	root := database.NewCursor(tree)
	if !root.SeekTo(rule.StartPoint(), false) {
		return nil
	}
	var out []fconame.Name
	walkRecorded(root, rule.StartPoint(), rule, &out)
	return out
}

func walkRecorded(cursor *database.Cursor, name fconame.Name, rule *policy.Rule, out *[]fconame.Name) {
	if !rule.ContainsFCO(name) {
		return
	}
	if cursor.HasFCOData() {
		*out = append(*out, name)
	}
	if cursor.SeekFirstChild() {
		for {
			childName := name.Clone()
			childName.Push(cursor.Component())
			walkRecorded(cursor, childName, rule, out)
			if !cursor.SeekNextSibling() {
				break
			}
		}
		cursor.SeekParent()
	}
}

func subtract(a, b *propvector.Vector) *propvector.Vector {
	out := a.Clone()
	for _, bit := range b.Bits() {
		out.Remove(bit)
	}
	return out
}

func intersect(a, b *propvector.Vector) *propvector.Vector {
	out := a.Clone()
	out.Intersect(b)
	return out
}

// diffOverlap compares stored against fresh over every bit both
// consider valid, returning the positions that disagree. Only bits the
// object was already covered for (overlap) count toward a conflict:
// genuinely new (widened) bits have nothing stored to disagree with.
func diffOverlap(stored, fresh *fco.FCO, overlap *propvector.Vector) *propvector.Vector {
	changed := propvector.New(overlap.Size())
	for _, bit := range overlap.Bits() {
		idx := propid.Index(bit)
		if !stored.ValidMask().Contains(bit) || !fresh.ValidMask().Contains(bit) {
			continue
		}
		oldValue, _ := stored.Get(idx)
		newValue, _ := fresh.Get(idx)
		if oldValue.Kind() != newValue.Kind() {
			changed.Add(bit)
			continue
		}
		if oldValue.Compare(newValue, propvalue.OpEQ) != propvalue.True {
			changed.Add(bit)
		}
	}
	return changed
}

// eraseFootprint restores the access and modification times fresh
// captured (taken via lstat before the rescan's content read) onto the
// live file, undoing any atime bump the read itself caused
// (spec §4.10 ERASE_FOOTPRINTS). Best-effort: failures are ignored,
// since the property data has already been merged successfully.
func eraseFootprint(name fconame.Name, fresh *fco.FCO) {
	atimeVal, errA := fresh.Get(propid.ATime)
	mtimeVal, errM := fresh.Get(propid.MTime)
	if errA != nil || errM != nil {
		return
	}
	if atimeVal.Kind() != propvalue.KindInt64 || mtimeVal.Kind() != propvalue.KindInt64 {
		return
	}
	atime := time.Unix(atimeVal.Int64Value(), 0)
	mtime := time.Unix(mtimeVal.Int64Value(), 0)
	_ = os.Chtimes(fconame.OSPath(name), atime, mtime)
}

func noopErrorQueue() *errq.Queue {
	return errq.New()
}
