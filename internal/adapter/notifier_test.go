package adapter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spekt.dev/pkg/spekt/internal/ast"
	m "spekt.dev/pkg/spekt/internal/model"
)

func TestRecordingNotifier(t *testing.T) {
	report := &m.SpecReport{Spec: "StackSpec"}
	notifier := NewRecordingNotifier(report)

	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	notifier.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	passing := m.Description{Class: "StackSpec", Name: "pushes"}
	failing := m.Description{Class: "StackSpec", Name: "pops"}
	skipped := m.Description{Class: "StackSpec", Name: "later"}

	notifier.TestStarted(passing)
	notifier.TestFinished(passing)

	stack := []m.StackFrame{{Method: "pops", Pos: ast.Pos{Line: 12, Column: 9}}}
	comparison := &m.ComparisonFailure{
		Condition: &m.Condition{Text: "stack.size == 0"},
		Expected:  "0",
		Actual:    "1",
		Stack:     stack,
	}

	notifier.TestStarted(failing)
	notifier.TestFailure(failing, comparison)
	notifier.TestFailure(failing, errors.New("boom"))
	notifier.TestFinished(failing)

	notifier.TestIgnored(skipped)

	assert.Same(t, report, notifier.Report())
	require.Len(t, report.Results, 3)

	pass := report.Results[0]
	assert.Equal(t, passing, pass.Description)
	assert.Equal(t, m.Passed, pass.Outcome)
	assert.Equal(t, time.Second, pass.Duration)

	fail := report.Results[1]
	assert.Equal(t, m.Failed, fail.Outcome, "finishing does not clear a failure")
	require.Len(t, fail.Failures, 2)
	assert.Equal(t, "0", fail.Failures[0].Expected)
	assert.Equal(t, "1", fail.Failures[0].Actual)
	assert.Equal(t, stack, fail.Failures[0].Stack)
	assert.Contains(t, fail.Failures[0].Message, "stack.size == 0")
	assert.Equal(t, m.FailureRecord{Message: "boom"}, fail.Failures[1])

	assert.Equal(t, m.Ignored, report.Results[2].Outcome)
	assert.Zero(t, report.Results[2].Duration)
}

func TestRecordingNotifier_FailureWithoutStart(t *testing.T) {
	report := &m.SpecReport{}
	notifier := NewRecordingNotifier(report)

	spec := m.Description{Class: "S", Name: "S"}
	exec := &m.ExecutionError{Err: errors.New("setupSpec blew up"), Stack: []m.StackFrame{{Method: "setupSpec"}}}

	notifier.TestFailure(spec, exec)

	require.Len(t, report.Results, 1)
	assert.Equal(t, m.Failed, report.Results[0].Outcome)
	assert.Equal(t, "setupSpec blew up", report.Results[0].Failures[0].Message)
	assert.Equal(t, exec.Stack, report.Results[0].Failures[0].Stack)
}
