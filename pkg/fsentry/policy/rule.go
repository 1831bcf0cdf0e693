// Package policy implements Rule and RuleList (component C5): a rule
// binds a start point, a stop-point set, a recurse depth, a property
// mask, and attributes; a rule list maintains both insertion order and
// canonical order over the same rules.
package policy

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/propvector"
)

// InfiniteDepth marks a rule with no recurse-depth limit.
const InfiniteDepth = -1

// MaxSeverity is the largest severity value a rule's attributes may
// carry (spec §3).
const MaxSeverity = 1_000_000

// Attrs holds a rule's non-structural attributes.
type Attrs struct {
	Name      string
	Severity  int
	EmailList []string
}

// Rule is a single policy directive: a start point, a set of stop
// points, a recurse depth, a property mask, and attributes.
type Rule struct {
	startPoint   fconame.Name
	stopPoints   []fconame.Name
	recurseDepth int
	propMask     *propvector.Vector
	attrs        Attrs
}

// New constructs a Rule with no stop points.
func New(start fconame.Name, recurseDepth int, mask *propvector.Vector, attrs Attrs) (*Rule, error) {
	if attrs.Severity < 0 || attrs.Severity > MaxSeverity {
		return nil, errors.Errorf("severity %d out of range [0, %d]", attrs.Severity, MaxSeverity)
	}
	return &Rule{
		startPoint:   start,
		recurseDepth: recurseDepth,
		propMask:     mask,
		attrs:        attrs,
	}, nil
}

// StartPoint returns the rule's start point.
func (r *Rule) StartPoint() fconame.Name { return r.startPoint }

// RecurseDepth returns the rule's recurse depth, or InfiniteDepth.
func (r *Rule) RecurseDepth() int { return r.recurseDepth }

// PropMask returns the rule's requested property mask.
func (r *Rule) PropMask() *propvector.Vector { return r.propMask }

// Attrs returns the rule's attributes.
func (r *Rule) Attrs() Attrs { return r.attrs }

// StopPoints returns the rule's stop points in canonical (sorted) order.
func (r *Rule) StopPoints() []fconame.Name {
	out := make([]fconame.Name, len(r.stopPoints))
	copy(out, r.stopPoints)
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// AddStopPoint inserts a stop point. Every stop point must be strictly
// below the start point; no two stop points may be related to one
// another — when a new stop point is related to an existing one, the
// higher (ancestor) one replaces the lower (spec §3).
func (r *Rule) AddStopPoint(sp fconame.Name) error {
	if r.startPoint.Relationship(sp) != fconame.RelAbove {
		return errors.Errorf("stop point %q is not strictly below start point %q", sp.AsString(), r.startPoint.AsString())
	}

	kept := r.stopPoints[:0:0]
	for _, existing := range r.stopPoints {
		switch existing.Relationship(sp) {
		case fconame.RelEqual, fconame.RelAbove:
			// existing already covers (or equals) sp.
			return nil
		case fconame.RelBelow:
			// sp is the higher of the two; existing is dropped.
			continue
		default:
			kept = append(kept, existing)
		}
	}
	r.stopPoints = append(kept, sp)
	return nil
}

// depthBelow returns n's component depth relative to the rule's start
// point, assuming n is at or below the start point.
func (r *Rule) depthBelow(n fconame.Name) int {
	return n.NumComponents() - r.startPoint.NumComponents()
}

// ContainsFCO reports whether n falls within this rule's coverage: at or
// below the start point, not at or below any stop point, and within the
// recurse depth (spec §3).
func (r *Rule) ContainsFCO(n fconame.Name) bool {
	rel := r.startPoint.Relationship(n)
	if rel != fconame.RelEqual && rel != fconame.RelAbove {
		return false
	}
	if r.recurseDepth != InfiniteDepth && r.depthBelow(n) > r.recurseDepth {
		return false
	}
	for _, sp := range r.stopPoints {
		spRel := sp.Relationship(n)
		if spRel == fconame.RelEqual || spRel == fconame.RelAbove {
			return false
		}
	}
	return true
}

// Compare implements the canonical rule ordering: lexicographic over
// (startPoint, sorted stopPoints) (spec §3).
func (r *Rule) Compare(other *Rule) int {
	if c := r.startPoint.Compare(other.startPoint); c != 0 {
		return c
	}
	a, b := r.StopPoints(), other.StopPoints()
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	if len(a) < len(b) {
		return -1
	} else if len(a) > len(b) {
		return 1
	}
	return 0
}
