package domain

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	// InvalidArgumentKind rejects bad input before any side effect.
	InvalidArgumentKind ErrorKind = "invalid_argument"
	// GenerationTransientKind marks rate limits, timeouts and 5xx-equivalent
	// failures that are eligible for retry with backoff.
	GenerationTransientKind ErrorKind = "generation_transient"
	// GenerationPermanentKind marks failures retrying cannot fix: invalid
	// prompts, exhausted quota, bad credentials.
	GenerationPermanentKind ErrorKind = "generation_permanent"
	// ConcatenationKind is always terminal for the run.
	ConcatenationKind ErrorKind = "concatenation"
	// NotFoundKind means a resume was requested for an unknown session.
	NotFoundKind ErrorKind = "not_found"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewInvalidArgument(msg string) error {
	return &Error{Kind: InvalidArgumentKind, Message: msg}
}

func NewTransient(msg string, err error) error {
	return &Error{Kind: GenerationTransientKind, Message: msg, Err: err}
}

func NewPermanent(msg string, err error) error {
	return &Error{Kind: GenerationPermanentKind, Message: msg, Err: err}
}

func NewConcatenation(msg string, err error) error {
	return &Error{Kind: ConcatenationKind, Message: msg, Err: err}
}

func NewNotFound(msg string) error {
	return &Error{Kind: NotFoundKind, Message: msg}
}

// KindOf extracts the taxonomy kind from an error chain. Unclassified errors
// are reported transient so an unknown failure is retried rather than
// silently made terminal.
func KindOf(err error) ErrorKind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return GenerationTransientKind
}

func IsTransient(err error) bool {
	return KindOf(err) == GenerationTransientKind
}

func IsNotFound(err error) bool {
	return KindOf(err) == NotFoundKind
}

func IsInvalidArgument(err error) bool {
	return KindOf(err) == InvalidArgumentKind
}

// UnitFailure identifies one failed generation unit within a phase.
type UnitFailure struct {
	SceneID string
	Kind    AssetKind
	Err     error
}

// PhaseError reports a partially failed phase: every outstanding unit is
// named, successes stay persisted.
type PhaseError struct {
	Phase    Phase
	Failures []UnitFailure
}

func (e *PhaseError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s/%s: %v", f.SceneID, f.Kind, f.Err))
	}
	return fmt.Sprintf("%s phase incomplete, %d unit(s) failed: %s",
		e.Phase, len(e.Failures), strings.Join(parts, "; "))
}
