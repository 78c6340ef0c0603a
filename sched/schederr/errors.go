// Package schederr defines the typed error classes used across the
// scheduler core, matching the three failure classes in spec.md §7:
// configuration violations and resource exhaustion surface to callers,
// invariant violations halt the process.
package schederr

import (
	"errors"
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

// ConfigError is returned when a caller supplies a value outside the
// valid configuration space, e.g. a home level outside [0, L).
type ConfigError struct {
	Op      string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("rsdl: config: %s: %s", e.Op, e.Message)
}

// ExhaustionError is returned when a resource-exhaustion condition is
// recoverable by the caller, e.g. no free PCB slot on create.
type ExhaustionError struct {
	Op       string
	Resource string
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("rsdl: exhausted: %s: no %s available", e.Op, e.Resource)
}

// UserError covers the user-visible failures of spec.md §7: wait with
// no children, kill of an unknown pid.
type UserError struct {
	Op      string
	Message string
}

func (e *UserError) Error() string {
	return fmt.Sprintf("rsdl: %s: %s", e.Op, e.Message)
}

// InvariantError is the fatal class: a violation of the invariants in
// spec.md §3/§4 that the caller cannot recover from. Constructing one
// is expected to be immediately followed by a panic (see Halt) — it
// exists as a distinct type so tests can assert on the panic value with
// errors.As instead of string matching.
type InvariantError struct {
	Op      string
	Message string
	// Dump is a spew.Sdump of the offending structure, captured at the
	// point of failure, the way a kernel panic prints register state.
	Dump string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("rsdl: invariant violated: %s: %s\n%s", e.Op, e.Message, e.Dump)
}

// Unwrap is defined for the error types above, mirroring
// eventloop.PanicError.Unwrap; none of them carries an underlying
// cause, so each returns nil.
func (e *ConfigError) Unwrap() error     { return nil }
func (e *ExhaustionError) Unwrap() error { return nil }
func (e *UserError) Unwrap() error       { return nil }

// Is implements custom matching so sentinel comparisons via
// errors.Is(err, &InvariantError{}) work regardless of Op/Message/Dump,
// mirroring AggregateError.Is.
func (e *InvariantError) Is(target error) bool {
	var t *InvariantError
	return errors.As(target, &t)
}

// Halt constructs an InvariantError carrying a spew dump of state and
// panics with it. It never returns; the return type of error lets call
// sites write `panic(Halt(...))` only when that reads better, but
// ordinarily callers just call Halt directly as a statement.
func Halt(op, message string, state any) *InvariantError {
	err := &InvariantError{
		Op:      op,
		Message: message,
		Dump:    spew.Sdump(state),
	}
	panic(err)
}
