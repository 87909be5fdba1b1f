package formlogic

import (
	"errors"
	"fmt"

	"github.com/kaptinlin/formlogic/expr"
	"github.com/kaptinlin/formlogic/schemadoc"
	"github.com/kaptinlin/formlogic/scheduler"
)

// === Schema & Compilation Errors ===
var (
	// ErrInvalidSchema is returned when the schema structure is malformed
	// (spec §7 InvalidSchema(detail)).
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrCyclicReadDependency is returned when the read graph is not acyclic
	// (spec §7 CyclicReadDependency(paths)).
	ErrCyclicReadDependency = errors.New("cyclic read dependency")
)

// === Path & Evaluation Errors ===
var (
	// ErrInvalidPath is returned when a path is syntactically malformed or
	// addresses a non-existent tree under strict access (spec §7 InvalidPath).
	ErrInvalidPath = errors.New("invalid path")

	// ErrDependencyChainTooDeep is returned when selective re-evaluation
	// exceeds its transitive-depth cap (spec §7 DependencyChainTooDeep).
	ErrDependencyChainTooDeep = errors.New("dependency chain too deep")

	// ErrSubformNotFound is returned when a subform operation addresses a
	// path with no declared subform (spec §7 SubformNotFound(path)).
	ErrSubformNotFound = errors.New("subform not found")

	// ErrValidationFailed flags a failed validate/validatePaths call; the
	// caller inspects the returned *ValidationReport for detail (spec §7
	// "reported via the normal return channel of validate operations, not
	// thrown").
	ErrValidationFailed = errors.New("validation failed")

	// ErrCancelled is returned when cooperative cancellation was observed
	// between batches (spec §5, §7 error kind Cancelled).
	ErrCancelled = errors.New("cancelled")
)

// InvalidSchemaError reports a malformed schema structure.
type InvalidSchemaError struct {
	Detail string
}

func (e *InvalidSchemaError) Error() string {
	return fmt.Sprintf("invalid schema: %s", e.Detail)
}

func (e *InvalidSchemaError) Unwrap() error { return ErrInvalidSchema }

// CyclicReadDependencyError reports a read-graph cycle. Paths holds one
// representative cycle in stable traversal order (spec §4.4).
type CyclicReadDependencyError struct {
	Paths []string
}

func (e *CyclicReadDependencyError) Error() string {
	return fmt.Sprintf("cyclic read dependency: %v", e.Paths)
}

func (e *CyclicReadDependencyError) Unwrap() error { return ErrCyclicReadDependency }

// InvalidPathError reports a malformed or strictly-inaccessible path.
type InvalidPathError struct {
	Path string
}

func (e *InvalidPathError) Error() string { return fmt.Sprintf("invalid path: %s", e.Path) }

func (e *InvalidPathError) Unwrap() error { return ErrInvalidPath }

// DependencyChainTooDeepError reports that evaluateDependents exceeded its
// transitive-depth cap while chasing newly-changed paths to fixpoint.
type DependencyChainTooDeepError struct {
	Initial []string
	Depth   int
}

func (e *DependencyChainTooDeepError) Error() string {
	return fmt.Sprintf("dependency chain too deep: initial=%v exceeded depth %d", e.Initial, e.Depth)
}

func (e *DependencyChainTooDeepError) Unwrap() error { return ErrDependencyChainTooDeep }

// SubformNotFoundError reports a subform operation against an undeclared
// subform path.
type SubformNotFoundError struct {
	Path string
}

func (e *SubformNotFoundError) Error() string { return fmt.Sprintf("subform not found: %s", e.Path) }

func (e *SubformNotFoundError) Unwrap() error { return ErrSubformNotFound }

// CancelledError reports cooperative cancellation observed mid-evaluation.
// Superseded-by-a-later-call (spec §5 "latest-call-wins") surfaces through
// the same error, since from the superseded caller's point of view its
// result was never produced.
type CancelledError struct{}

func (e *CancelledError) Error() string { return "cancelled" }

func (e *CancelledError) Unwrap() error { return ErrCancelled }

// Re-exported compiler error constructors (spec §7 UnknownOperator/
// ArityMismatch are compilation errors raised by package expr; they are
// aliased here so callers working only against the formlogic package never
// need to import expr directly).
type (
	UnknownOperatorError = expr.UnknownOperatorError
	ArityMismatchError   = expr.ArityMismatchError
)

var (
	ErrUnknownOperator = expr.ErrUnknownOperator
	ErrArityMismatch   = expr.ErrArityMismatch
)

// translateParseError normalizes a schemadoc.Parse error into this
// package's §7 taxonomy: a read-graph cycle becomes CyclicReadDependencyError
// (spec §7, §8 Scenario 4), a malformed root becomes InvalidSchemaError,
// and anything else (an *expr compilation error) passes through unchanged
// since UnknownOperatorError/ArityMismatchError are already this package's
// own re-exported types.
func translateParseError(err error) error {
	if err == nil {
		return nil
	}
	var cycleErr *scheduler.CycleError
	if errors.As(err, &cycleErr) {
		return &CyclicReadDependencyError{Paths: cycleErr.Paths}
	}
	if errors.Is(err, schemadoc.ErrInvalidSchema) {
		return &InvalidSchemaError{Detail: err.Error()}
	}
	return err
}
