package playbook

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for compilation failures. Every compile failure wraps one of these.
var (
	// ErrMalformed indicates the document or a table has the wrong shape.
	ErrMalformed = errors.New("malformed playbook")

	// ErrMissingName indicates the playbook or a step has no name.
	ErrMissingName = errors.New("name is required")

	// ErrNoSteps indicates the playbook defines no steps.
	ErrNoSteps = errors.New("playbook has no steps")

	// ErrTierOutOfRange indicates a step tier outside 1..7.
	ErrTierOutOfRange = errors.New("tier out of range")

	// ErrBadSymbol indicates an unparsable or out-of-range symbol literal.
	ErrBadSymbol = errors.New("bad symbol literal")

	// ErrUnknownDependency indicates depends_on names a step that does not exist.
	ErrUnknownDependency = errors.New("unknown dependency")

	// ErrDuplicateStep indicates two steps share a name.
	ErrDuplicateStep = errors.New("duplicate step name")

	// ErrDependencyCycle indicates the dependency graph is not acyclic.
	ErrDependencyCycle = errors.New("dependency cycle")
)

// CompileError describes where compilation failed.
// Err is always one of the package sentinels, possibly wrapping a cause.
type CompileError struct {
	Stage   string
	Step    string
	Field   string
	Message string
	Err     error
}

func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString("playbook: ")
	b.WriteString(e.Stage)
	if e.Step != "" {
		fmt.Fprintf(&b, ": step %q", e.Step)
	}
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

const (
	stageParse    = "parse"
	stageDecode   = "decode"
	stageValidate = "validate"
)

func decodeErr(step, field, msg string, err error) *CompileError {
	return &CompileError{Stage: stageDecode, Step: step, Field: field, Message: msg, Err: err}
}

func validateErr(step, field, msg string, err error) *CompileError {
	return &CompileError{Stage: stageValidate, Step: step, Field: field, Message: msg, Err: err}
}

// causeErr joins a sentinel with an underlying cause so both match errors.Is.
type causeErr struct {
	sentinel error
	cause    error
}

func (c *causeErr) Error() string   { return c.sentinel.Error() + ": " + c.cause.Error() }
func (c *causeErr) Unwrap() []error { return []error{c.sentinel, c.cause} }

func withCause(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return &causeErr{sentinel: sentinel, cause: cause}
}
