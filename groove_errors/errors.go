// Package groove_errors implements the fatal half of the error taxonomy
// from spec §7: InvalidConfiguration and ReferenceMissing. Both are
// surfaced before generation starts and are always fatal. The recoverable
// half (ConstraintUnsatisfiable, EventDropped) is not an error type at all
// — see diagnostics.Log, which the bass/lead engines append to
// instead of returning an error.
package groove_errors

import "github.com/pkg/errors"

// Kind identifies which taxonomy bucket a fatal error belongs to.
type Kind int

const (
	KindInvalidConfiguration Kind = iota
	KindReferenceMissing
)

func (k Kind) String() string {
	switch k {
	case KindInvalidConfiguration:
		return "InvalidConfiguration"
	case KindReferenceMissing:
		return "ReferenceMissing"
	default:
		return "Unknown"
	}
}

// GrooveError is the concrete error type behind both fatal kinds. Callers
// that need to branch on kind use Cause to unwrap to it.
type GrooveError struct {
	Kind  Kind
	Field string
	Msg   string
}

func (e *GrooveError) Error() string {
	return e.Kind.String() + ": " + e.Field + ": " + e.Msg
}

// NewInvalidConfiguration builds a fatal InvalidConfiguration error for a
// single out-of-range config field, e.g. NewInvalidConfiguration("bpm",
// "must be in [60,240]").
func NewInvalidConfiguration(field, reason string) error {
	return errors.WithStack(&GrooveError{Kind: KindInvalidConfiguration, Field: field, Msg: reason})
}

// NewReferenceMissing builds a fatal ReferenceMissing error for an unknown
// reference (unrecognised modulator param_path, unknown scale name, ...).
func NewReferenceMissing(kind, value string) error {
	return errors.WithStack(&GrooveError{Kind: KindReferenceMissing, Field: kind, Msg: "unknown value: " + value})
}

// Wrap annotates err with additional context while preserving Cause().
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return errors.WithMessage(err, context)
}

// As reports whether err's cause is a *GrooveError and returns it.
func As(err error) (*GrooveError, bool) {
	ge, ok := errors.Cause(err).(*GrooveError)
	return ge, ok
}

// IsKind reports whether err's cause is a GrooveError of the given kind.
func IsKind(err error, k Kind) bool {
	ge, ok := As(err)
	return ok && ge.Kind == k
}
