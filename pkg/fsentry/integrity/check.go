// Package integrity implements the integrity-check engine (component
// C9): for each rule, scan the live filesystem, diff it against the
// database, and produce a report; and the update-from-report operation
// that commits a report's changes back into the database.
package integrity

import (
	"github.com/fsentry/fsentry/pkg/fsentry/database"
	"github.com/fsentry/fsentry/pkg/fsentry/fco"
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/policy"
	"github.com/fsentry/fsentry/pkg/fsentry/propid"
	"github.com/fsentry/fsentry/pkg/fsentry/propvalue"
	"github.com/fsentry/fsentry/pkg/fsentry/propvector"
	"github.com/fsentry/fsentry/pkg/fsentry/report"
	"github.com/fsentry/fsentry/pkg/fsentry/scan"
)

// Check runs every rule in rules (in insertion order) against tree,
// scanning the live filesystem with scanner, and returns the resulting
// report. tree is read-only; see Apply for committing the result.
func Check(tree *database.Tree, rules *policy.RuleList, scanner *scan.Scanner) *report.Report {
	rep := report.New()
	for _, rule := range rules.InsertionOrder() {
		sr := rep.AddSpec(report.FilesystemGenre, rule, rule.Attrs())
		checkRule(tree, rule, scanner, sr)
	}
	return rep
}

// checkRule implements spec §4.9's per-rule algorithm.
func checkRule(tree *database.Tree, rule *policy.Rule, scanner *scan.Scanner, sr *report.SpecReport) {
	start := rule.StartPoint()
	probe := database.NewCursor(tree)
	existedBeforeScan := probe.SeekTo(start, false)

	seen := make(map[string]bool)

	scanner.Walk(rule, rule.PropMask(), sr.Errors(), func(object *fco.FCO) error {
		sr.IncrementObjectsScanned()
		name := object.Name()

		cursor := database.NewCursor(tree)
		if !cursor.SeekTo(name, false) || !cursor.HasFCOData() {
			sr.AddAdded(object)
			return nil
		}

		seen[name.AsString()] = true
		stored := cursor.ReadFCO()
		changedMask := diff(stored, object, rule.PropMask())
		if !changedMask.IsEmpty() {
			sr.AddChanged(stored, object, changedMask)
		}
		return nil
	})

	if !existedBeforeScan {
		// Step 1 of spec §4.9: a missing start point means every scanned
		// object was already recorded as added above; there is nothing in
		// the database to compare against for removal.
		return
	}

	for _, removedObject := range collectUnseen(tree, rule, seen) {
		sr.AddRemoved(removedObject)
	}
}

// diff compares stored against scanned over every bit that mask
// requests and both sides have valid (readable), returning the
// positions whose values differ. A position where exactly one side
// reads Undefined counts as changed even though both sides are valid
// (spec §4.9).
func diff(stored, scanned *fco.FCO, mask *propvector.Vector) *propvector.Vector {
	changed := propvector.New(int(propid.Count))
	for _, bit := range mask.Bits() {
		idx := propid.Index(bit)
		if !stored.ValidMask().Contains(bit) || !scanned.ValidMask().Contains(bit) {
			continue
		}

		oldValue, _ := stored.Get(idx)
		newValue, _ := scanned.Get(idx)

		if oldValue.Kind() == propvalue.KindUndefined || newValue.Kind() == propvalue.KindUndefined {
			if oldValue.Kind() != newValue.Kind() {
				changed.Add(bit)
			}
			continue
		}

		if oldValue.Compare(newValue, propvalue.OpEQ) != propvalue.True {
			changed.Add(bit)
		}
	}
	return changed
}

// collectUnseen traverses the database subtree rooted at rule's start
// point, pruned exactly as the scanner itself prunes (stop points,
// recurse depth), and returns every stored FCO not present in seen.
func collectUnseen(tree *database.Tree, rule *policy.Rule, seen map[string]bool) []*fco.FCO {
	root := database.NewCursor(tree)
	if !root.SeekTo(rule.StartPoint(), false) {
		return nil
	}

	var out []*fco.FCO
	walkUnseen(root, rule.StartPoint(), rule, seen, &out)
	return out
}

func walkUnseen(cursor *database.Cursor, name fconame.Name, rule *policy.Rule, seen map[string]bool, out *[]*fco.FCO) {
	if !rule.ContainsFCO(name) {
		return
	}
	if cursor.HasFCOData() && !seen[name.AsString()] {
		*out = append(*out, cursor.ReadFCO())
	}

	if cursor.SeekFirstChild() {
		for {
			childName := name.Clone()
			childName.Push(cursor.Component())
			walkUnseen(cursor, childName, rule, seen, out)
			if !cursor.SeekNextSibling() {
				break
			}
		}
		cursor.SeekParent()
	}
}
