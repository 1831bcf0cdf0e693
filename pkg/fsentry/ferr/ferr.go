// Package ferr implements the error-kind taxonomy shared by every fsentry
// component: envelope errors, I/O errors, crypto errors, policy errors,
// semantic errors, and internal (always-fatal) errors.
package ferr

import "fmt"

// Kind classifies an Error for both propagation policy and display.
type Kind uint

const (
	// KindEnvelope covers bad magic, wrong version, bad signature, and
	// unreadable container files. Fatal for the current artifact.
	KindEnvelope Kind = iota
	// KindIO covers permission denied, not found, and is/isn't-a-directory
	// failures.
	KindIO
	// KindCrypto covers wrong passphrase and key-mismatch failures. Fatal
	// for the current artifact.
	KindCrypto
	// KindPolicy covers parse errors, undefined variables, bad mask
	// characters, and non-absolute start points.
	KindPolicy
	// KindSemantic covers "object not in database" and "unknown genre for
	// this platform" failures.
	KindSemantic
	// KindInternal covers invariant violations. Always fatal.
	KindInternal
	// KindInteractive covers failures in the C12 interactive accept/reject
	// path: an unparseable edited checklist, or an editor that exits
	// nonzero. Kept distinct from KindPolicy since the exit-code scheme
	// (spec §6) gives interactive errors their own bit.
	KindInteractive
)

// String renders the kind name used in formatted error identifiers.
func (k Kind) String() string {
	switch k {
	case KindEnvelope:
		return "envelope"
	case KindIO:
		return "io"
	case KindCrypto:
		return "crypto"
	case KindPolicy:
		return "policy"
	case KindSemantic:
		return "semantic"
	case KindInternal:
		return "internal"
	case KindInteractive:
		return "interactive"
	default:
		return "unknown"
	}
}

// Error is the single error type used across fsentry's core. Its
// identifier is stable so that front ends and scripts can pattern-match on
// it (spec §7).
type Error struct {
	// Kind classifies the error for propagation policy.
	Kind Kind
	// ID is a short, stable, documented identifier, e.g. "envelope.badmagic".
	ID string
	// Message is the human-readable description.
	Message string
	// Fatal indicates the error aborts the current operation (envelope,
	// crypto, internal kinds are always fatal; others may or may not be).
	Fatal bool
	// SuppressThirdLine suppresses the formatter's usual "extra context"
	// line (used for errors whose Extra would just restate the message).
	SuppressThirdLine bool
	// Extra is optional additional context, typically a filename.
	Extra string
	// cause is the wrapped underlying error, if any.
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Extra != "" && !e.SuppressThirdLine {
		return fmt.Sprintf("%s [%s]: %s (%s)", e.Kind, e.ID, e.Message, e.Extra)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.ID, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// New constructs an Error of the given kind and identifier.
func New(kind Kind, id, message string) *Error {
	return &Error{
		Kind:    kind,
		ID:      id,
		Message: message,
		Fatal:   kind == KindEnvelope || kind == KindCrypto || kind == KindInternal,
	}
}

// Wrap constructs an Error that carries an underlying cause.
func Wrap(cause error, kind Kind, id, message string) *Error {
	e := New(kind, id, message)
	e.cause = cause
	return e
}

// WithExtra attaches extra context (typically a filename) and returns the
// receiver for chaining.
func (e *Error) WithExtra(extra string) *Error {
	e.Extra = extra
	return e
}

// Envelope-kind constructors, grounded on spec §4.11/§6.
func BadMagic(extra string) *Error {
	return New(KindEnvelope, "envelope.badmagic", "container identifier does not match expected artifact type").WithExtra(extra)
}

func BadVersion(extra string) *Error {
	return New(KindEnvelope, "envelope.badversion", "container version is not the supported fixed version").WithExtra(extra)
}

func BadSignature(extra string) *Error {
	return New(KindEnvelope, "envelope.badsignature", "signature verification failed").WithExtra(extra)
}

func Unreadable(cause error, extra string) *Error {
	return Wrap(cause, KindEnvelope, "envelope.unreadable", "cannot read container file").WithExtra(extra)
}

// I/O-kind constructors.
func PermissionDenied(cause error, extra string) *Error {
	return Wrap(cause, KindIO, "io.permission", "permission denied").WithExtra(extra)
}

func NotFound(cause error, extra string) *Error {
	return Wrap(cause, KindIO, "io.notfound", "object not found").WithExtra(extra)
}

func NotADirectory(extra string) *Error {
	return New(KindIO, "io.notadir", "expected a directory").WithExtra(extra)
}

func IsADirectory(extra string) *Error {
	return New(KindIO, "io.isadir", "expected a non-directory object").WithExtra(extra)
}

// Crypto-kind constructors.
func WrongPassphrase() *Error {
	return New(KindCrypto, "crypto.passphrase", "passphrase does not unlock the private key")
}

func KeyMismatch(extra string) *Error {
	return New(KindCrypto, "crypto.keymismatch", "public key does not match the key embedded in the artifact").WithExtra(extra)
}

// Policy-kind constructors, named distinctly per original_source's
// twparsererrors.cpp rather than collapsed into one generic identifier.
func ParseError(extra string) *Error {
	return New(KindPolicy, "policy.parse", "policy text could not be parsed").WithExtra(extra)
}

func UndefinedVariable(name string) *Error {
	return New(KindPolicy, "policy.undefinedvar", "undefined policy variable").WithExtra(name)
}

func BadMaskChar(ch byte) *Error {
	return New(KindPolicy, "policy.badmask", fmt.Sprintf("unrecognized property mask character %q", ch))
}

func PathNotAbsolute(path string) *Error {
	return New(KindPolicy, "policy.notabsolute", "start point is not an absolute path").WithExtra(path)
}

// Semantic-kind constructors.
func ObjectNotInDatabase(name string) *Error {
	return New(KindSemantic, "semantic.notindb", "object is not present in the database").WithExtra(name)
}

func UnknownGenre(genre string) *Error {
	return New(KindSemantic, "semantic.unknowngenre", "genre is not supported on this platform").WithExtra(genre)
}

// Interactive-kind constructors, grounded on original_source's
// twutil.cpp temp-file-plus-editor review loop (spec §4.12).
func InteractiveParseError(line string) *Error {
	return New(KindInteractive, "interactive.parse", "unrecognized line in edited checklist").WithExtra(line)
}

func InteractiveEditorFailed(cause error, editor string) *Error {
	return Wrap(cause, KindInteractive, "interactive.editor", "editor exited with an error").WithExtra(editor)
}

// Internal constructs an always-fatal internal error for invariant
// violations.
func Internal(message string) *Error {
	e := New(KindInternal, "internal.invariant", message)
	e.Fatal = true
	return e
}
