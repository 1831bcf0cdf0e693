// Package scan implements the filesystem data source (component C6): a
// synchronous, single-threaded walk that visits every object a rule's
// start point, stop points, and recurse depth cover and computes an FCO
// for each one, requesting only the properties named by the rule's
// property mask. Per the concurrency model (spec §5) there is no
// goroutine or channel fan-out here; hashing multiple digests per file
// is achieved with io.MultiWriter rather than concurrent workers.
package scan

import (
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/fsentry/fsentry/pkg/fsentry/errq"
	"github.com/fsentry/fsentry/pkg/fsentry/fco"
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/ferr"
	"github.com/fsentry/fsentry/pkg/fsentry/policy"
	"github.com/fsentry/fsentry/pkg/fsentry/propid"
	"github.com/fsentry/fsentry/pkg/fsentry/propvalue"
	"github.com/fsentry/fsentry/pkg/fsentry/propvector"
)

// VisitFunc receives one computed FCO during a walk. Returning an error
// aborts the walk and propagates the error to the Walk caller.
type VisitFunc func(object *fco.FCO) error

// Scanner walks a filesystem hierarchy under a single rule. It carries
// no configuration of its own: every behavioral choice (coverage,
// depth, requested properties) comes from the Rule and mask passed to
// Walk, per spec §4.6.
type Scanner struct{}

// New constructs a Scanner.
func New() *Scanner {
	return &Scanner{}
}

// Walk performs a depth-first traversal of rule's coverage, invoking
// visit once per object with an FCO populated for exactly the
// properties named by mask (intersected with what the rule itself
// covers). Objects that cannot be stat'd are still visited, with
// FileType and every other requested property valid but marked
// Undefined; the failure is additionally recorded on errs and
// traversal continues (spec §4.6, testable property: a scan never
// aborts because one object is unreadable).
func (s *Scanner) Walk(rule *policy.Rule, mask *propvector.Vector, errs *errq.Queue, visit VisitFunc) error {
	start := rule.StartPoint()
	return s.walkNode(rule, mask, errs, start, visit)
}

// walkNode visits name (if rule covers it) and, if name is a directory
// within the rule's recurse depth, recurses into its children in
// deterministic sorted order.
func (s *Scanner) walkNode(rule *policy.Rule, mask *propvector.Vector, errs *errq.Queue, name fconame.Name, visit VisitFunc) error {
	if !rule.ContainsFCO(name) {
		return nil
	}

	effectiveMask := mask.Clone()
	effectiveMask.Intersect(rule.PropMask())

	object, statErr := computeFCO(name, effectiveMask)
	if statErr != nil {
		errs.AddError(toFerr(statErr, name))
	}

	if err := visit(object); err != nil {
		return err
	}

	ft, getErr := object.Get(propid.FileType)
	if getErr != nil || ft.Kind() != propvalue.KindFileType || ft.FileType() != propvalue.FileTypeDir {
		return nil
	}

	children, err := s.listChildren(name)
	if err != nil {
		errs.AddError(toFerr(err, name))
		return nil
	}

	for _, child := range children {
		if err := s.walkNode(rule, mask, errs, child, visit); err != nil {
			return err
		}
	}
	return nil
}

// Stat computes a single FCO for name using mask, without recursing
// into children or checking rule coverage. It is the non-recursive
// half of walkNode's per-object computation, exposed for callers that
// need a targeted, single-object rescan rather than a full walk (e.g.
// the policy-update engine's mask-widened reconciliation, spec §4.10).
func (s *Scanner) Stat(name fconame.Name, mask *propvector.Vector) (*fco.FCO, error) {
	return computeFCO(name, mask)
}

// listChildren returns name's directory entries as child Names, sorted
// by component string so that two walks of an unchanged
// directory always visit siblings in the same sequence (spec §4.6:
// scan order is deterministic).
func (s *Scanner) listChildren(name fconame.Name) ([]fconame.Name, error) {
	entries, err := os.ReadDir(fconame.OSPath(name))
	if err != nil {
		return nil, err
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	sort.Strings(names)

	children := make([]fconame.Name, len(names))
	for i, n := range names {
		child := name.Clone()
		child.Push(n)
		children[i] = child
	}
	return children, nil
}

// toFerr wraps a raw OS error for the error queue, classifying common
// cases (spec §7) and falling back to a generic I/O error for anything
// unrecognized.
func toFerr(err error, name fconame.Name) *ferr.Error {
	switch {
	case os.IsPermission(err):
		return ferr.PermissionDenied(err, name.AsString())
	case os.IsNotExist(err):
		return ferr.NotFound(err, name.AsString())
	default:
		return ferr.Wrap(errors.WithStack(err), ferr.KindIO, "io.scan", "could not read filesystem object").WithExtra(name.AsString())
	}
}

// digestStream computes every hash property named by mask by reading
// src exactly once and fanning the bytes out via io.MultiWriter, rather
// than rereading the file once per algorithm or spawning a hasher per
// algorithm on a separate goroutine (spec §5: no worker pool).
func digestStream(src io.Reader, mask *propvector.Vector) (map[propid.Index][]byte, error) {
	writers, hashers := buildHashers(mask)
	if len(writers) == 0 {
		return nil, nil
	}

	mw := io.MultiWriter(writers...)
	if _, err := io.Copy(mw, src); err != nil {
		return nil, err
	}

	out := make(map[propid.Index][]byte, len(hashers))
	for idx, h := range hashers {
		out[idx] = h.Sum(nil)
	}
	return out, nil
}
