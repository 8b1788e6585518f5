package controller

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"spekt.dev/pkg/spekt/internal/ast"
	m "spekt.dev/pkg/spekt/internal/model"
)

func newTestUI() (*SimpleUI, *bytes.Buffer) {
	var buf bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	return NewSimpleUI(cmd), &buf
}

func sampleReport() *m.RunReport {
	return &m.RunReport{
		ID: "run",
		Specs: []*m.SpecReport{
			{
				Spec: "StackSpec",
				File: "stack.spec.yaml",
				Results: []*m.TestResult{
					{Description: m.Description{Class: "StackSpec", Name: "pushes"}, Outcome: m.Passed, Duration: time.Millisecond},
					{
						Description: m.Description{Class: "StackSpec", Name: "pops"},
						Outcome:     m.Failed,
						Failures: []m.FailureRecord{{
							Message:  "Condition not satisfied:\n\nstack.size == 0",
							Expected: "0",
							Actual:   "1",
							Stack:    []m.StackFrame{{Method: "pops", Pos: ast.Pos{Line: 7, Column: 11}}},
						}},
					},
					{Description: m.Description{Class: "StackSpec", Name: "later"}, Outcome: m.Ignored},
				},
			},
			{Spec: "Broken", File: "broken.spec.yaml", Error: "parse broken.spec.yaml: bad indentation"},
		},
	}
}

func TestSimpleUI_DisplaySpecReport(t *testing.T) {
	ui, buf := newTestUI()
	report := sampleReport()

	ui.DisplaySpecReport(context.Background(), report.Specs[0])
	ui.DisplaySpecReport(context.Background(), report.Specs[1])

	out := buf.String()
	for _, want := range []string{
		"StackSpec", "stack.spec.yaml",
		"PASS", "pushes",
		"FAIL", "pops", "stack.size == 0", "--- Expected", "+++ Actual", "-0", "+1", "at pops(7:11)",
		"SKIP", "later",
		"ERROR", "bad indentation",
	} {
		assert.Contains(t, out, want)
	}
}

func TestSimpleUI_DisplaySummary(t *testing.T) {
	ui, buf := newTestUI()

	ui.DisplaySummary(context.Background(), sampleReport())

	out := buf.String()
	assert.Contains(t, out, "SPEC")
	assert.Contains(t, out, "StackSpec")
	assert.Contains(t, out, "Broken")
	assert.Contains(t, out, "TOTAL TESTS 3")
}

func TestSimpleUI_DisplaySpecList(t *testing.T) {
	ui, buf := newTestUI()

	specs := []*m.Spec{
		{
			Name: "MathSpec",
			Features: []*m.Feature{
				{Name: "adds"},
				{Name: "maximum", Unroll: true, DataProviders: []m.DataProvider{{Var: "a"}, {Var: "b"}}},
			},
		},
	}

	ui.DisplaySpecList(context.Background(), specs)

	out := buf.String()
	for _, want := range []string{"MathSpec", "adds", "simple", "maximum", "a, b", "unrolled", "TOTAL SPECS 1"} {
		assert.Contains(t, out, want)
	}
}

func TestSimpleUI_DisplayDiagnosticsAndConcurrency(t *testing.T) {
	ui, buf := newTestUI()

	ui.DisplayConcurrencyInfo(context.Background(), 4, 1, 3, 10)
	ui.DisplayDiagnostics(context.Background(), []m.Diagnostic{
		{File: "a.spec.yaml", Pos: ast.Pos{Line: 2, Column: 3}, Message: "Interaction not allowed here"},
	})

	out := buf.String()
	assert.Contains(t, out, "Running 10 spec(s) with 4 worker(s) (Shard 1/3)")
	assert.Contains(t, out, "a.spec.yaml:2:3: Interaction not allowed here")
}

func TestSimpleUI_CancelledContextPrintsNothing(t *testing.T) {
	ui, buf := newTestUI()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := sampleReport()
	ui.DisplayConcurrencyInfo(ctx, 1, 0, 1, 1)
	ui.DisplayDiagnostics(ctx, []m.Diagnostic{{Message: "x"}})
	ui.DisplaySpecReport(ctx, report.Specs[0])
	ui.DisplaySummary(ctx, report)
	ui.DisplaySpecList(ctx, nil)
	ui.DisplayRewrittenSpec(ctx, &m.Spec{Name: "S"})

	assert.Empty(t, buf.String())
}

func TestSimpleUI_DisplayRewrittenSpec(t *testing.T) {
	ui, buf := newTestUI()

	cond := &ast.Binary{Op: "==", X: &ast.Var{Name: "a"}, Y: &ast.Const{Value: int64(1)}}
	spec := &m.Spec{
		Name: "S",
		File: "s.spec.yaml",
		Features: []*m.Feature{{
			Name: "f",
			Method: &m.Method{
				Name: "f",
				Kind: m.KindFeature,
				Blocks: []*m.Block{
					{Kind: m.BlockExpect, Body: &ast.Block{Stmts: []ast.Stmt{&ast.ExprStmt{X: cond}}}},
					{Kind: m.BlockCleanup},
				},
			},
		}},
	}

	ui.DisplayRewrittenSpec(context.Background(), spec)

	out := buf.String()
	assert.Contains(t, out, "FEATURE f")
	assert.Contains(t, out, "expect:")
	assert.Contains(t, out, "a == 1")
	assert.NotContains(t, out, "cleanup:")
}

func TestFeatureMode(t *testing.T) {
	data := []m.DataProvider{{Var: "a"}}

	tests := []struct {
		name    string
		spec    *m.Spec
		feature *m.Feature
		want    string
	}{
		{"simple", &m.Spec{}, &m.Feature{}, "simple"},
		{"parameterized", &m.Spec{}, &m.Feature{DataProviders: data}, "parameterized"},
		{"unrolled", &m.Spec{}, &m.Feature{DataProviders: data, Unroll: true}, "unrolled"},
		{"skipped feature", &m.Spec{}, &m.Feature{Skipped: true, Unroll: true}, "skipped"},
		{"skipped spec", &m.Spec{Skipped: true}, &m.Feature{}, "skipped"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, featureMode(tt.spec, tt.feature))
		})
	}
}

func TestFormatFailure(t *testing.T) {
	plain := formatFailure(m.FailureRecord{Message: "boom"})
	assert.Equal(t, "boom", plain)

	withDiff := formatFailure(m.FailureRecord{Message: "not equal", Expected: "a\nb", Actual: "a\nc"})
	assert.Contains(t, withDiff, "not equal\n\n--- Expected\n+++ Actual")
	assert.Contains(t, withDiff, "-b")
	assert.Contains(t, withDiff, "+c")
	assert.Contains(t, withDiff, " a")
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "  a\n\n  b", indent("a\n\nb\n", "  "))
}
