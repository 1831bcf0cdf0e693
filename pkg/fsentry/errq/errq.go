// Package errq implements the chainable error-queue primitive used by
// the report model (component C8) and consumed directly by the scanner
// (component C6): a bucket has an optional child, and AddError forwards
// to the child after local handling, enabling compositions like
// "print to stderr, then also enqueue" (spec §4.8).
package errq

import "github.com/fsentry/fsentry/pkg/fsentry/ferr"

// Bucket is anything that can receive an error.
type Bucket interface {
	AddError(e *ferr.Error)
}

// Queue is a Bucket that accumulates errors in memory and optionally
// forwards each one to a child bucket.
type Queue struct {
	errors []*ferr.Error
	child  Bucket
}

// New constructs an empty queue with no child.
func New() *Queue {
	return &Queue{}
}

// SetChild installs (or replaces) the queue's forwarding child.
func (q *Queue) SetChild(child Bucket) {
	q.child = child
}

// AddError records e locally, then forwards it to the child bucket, if
// any.
func (q *Queue) AddError(e *ferr.Error) {
	q.errors = append(q.errors, e)
	if q.child != nil {
		q.child.AddError(e)
	}
}

// Errors returns every error recorded in this queue, in the order added.
func (q *Queue) Errors() []*ferr.Error {
	out := make([]*ferr.Error, len(q.errors))
	copy(out, q.errors)
	return out
}

// Len returns the number of errors recorded.
func (q *Queue) Len() int { return len(q.errors) }

// FuncBucket adapts a plain function to the Bucket interface, used for
// e.g. a stderr-printing bucket installed as another queue's child.
type FuncBucket func(*ferr.Error)

// AddError implements Bucket.
func (f FuncBucket) AddError(e *ferr.Error) { f(e) }
