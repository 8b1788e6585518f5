package model

import (
	"errors"
	"fmt"
	"strings"

	"spekt.dev/pkg/spekt/internal/ast"
)

// ErrNoData is the failure synthesized for a parameterized feature whose
// data providers produced no rows.
var ErrNoData = errors.New("Data provider has no data")

// StackFrame is one entry of the interpreter call stack at the point a
// failure was raised.
type StackFrame struct {
	Method string  `yaml:"method"`
	Pos    ast.Pos `yaml:"pos"`
}

func (f StackFrame) String() string {
	return fmt.Sprintf("at %s(%s)", f.Method, f.Pos)
}

// ErrorInfo pairs a failure with the method that raised it.
type ErrorInfo struct {
	Method *Method
	Err    error
}

// MultipleFailureError bundles several independent failures.
type MultipleFailureError struct {
	Failures []error
}

func (e *MultipleFailureError) Error() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "There were %d errors:", len(e.Failures))

	for i, f := range e.Failures {
		fmt.Fprintf(&sb, "\n  %d) %v", i+1, f)
	}

	return sb.String()
}

// Unwrap exposes the bundled failures to errors.Is and errors.As.
func (e *MultipleFailureError) Unwrap() []error {
	return e.Failures
}

// ConditionNotSatisfiedError is raised when an instrumented condition
// evaluates to false.
type ConditionNotSatisfiedError struct {
	Condition *Condition
	Stack     []StackFrame
}

func (e *ConditionNotSatisfiedError) Error() string {
	return "Condition not satisfied:\n\n" + e.Condition.Render()
}

// ComparisonFailure is a condition failure on an equality comparison with
// both sides rendered, so tooling can show a diff.
type ComparisonFailure struct {
	Condition *Condition
	Expected  string
	Actual    string
	Stack     []StackFrame
}

func (e *ComparisonFailure) Error() string {
	return "Condition not satisfied:\n\n" + e.Condition.Render()
}

// ExecutionError wraps a failure raised while running a statement, with the
// call stack at that point.
type ExecutionError struct {
	Err   error
	Stack []StackFrame
}

func (e *ExecutionError) Error() string {
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// StackOf returns the stack recorded on err, if any.
func StackOf(err error) []StackFrame {
	var (
		cond *ConditionNotSatisfiedError
		cmp  *ComparisonFailure
		exec *ExecutionError
	)

	switch {
	case errors.As(err, &cond):
		return cond.Stack
	case errors.As(err, &cmp):
		return cmp.Stack
	case errors.As(err, &exec):
		return exec.Stack
	}

	return nil
}
