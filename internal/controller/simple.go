package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"spekt.dev/pkg/spekt/internal/ast"
	m "spekt.dev/pkg/spekt/internal/model"
)

var (
	passedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true)
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	ignoredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// SimpleUI implements UI using cobra Command's output writer.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// DisplayConcurrencyInfo shows concurrency settings.
func (s *SimpleUI) DisplayConcurrencyInfo(ctx context.Context, threads int, shardIndex int, shardCount int, specs int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Running %d spec(s) with %d worker(s) (Shard %d/%d)\n", specs, threads, shardIndex, shardCount)
}

// DisplayDiagnostics prints static rewrite errors, one per line.
func (s *SimpleUI) DisplayDiagnostics(ctx context.Context, diags []m.Diagnostic) {
	if err := ctx.Err(); err != nil {
		return
	}

	for _, d := range diags {
		s.printf("%s %s\n", failedStyle.Render("error:"), d)
	}
}

// DisplaySpecReport prints the outcome of every test of one spec.
func (s *SimpleUI) DisplaySpecReport(ctx context.Context, report *m.SpecReport) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s %s\n", report.Spec, faintStyle.Render(string(report.File)))

	if report.Error != "" {
		s.printf("  %s %s\n", failedStyle.Render("ERROR"), report.Error)
	}

	for _, res := range report.Results {
		s.printf("  %s %s %s\n", formatOutcome(res.Outcome), res.Description.Name, faintStyle.Render(res.Duration.String()))

		for _, f := range res.Failures {
			s.printf("%s\n", indent(formatFailure(f), "      "))
		}
	}
}

// DisplaySummary prints per-spec counts and the totals of the run.
func (s *SimpleUI) DisplaySummary(ctx context.Context, report *m.RunReport) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("\n%s", renderSummaryTable(report))
}

// DisplaySpecList prints the features of each spec.
func (s *SimpleUI) DisplaySpecList(ctx context.Context, specs []*m.Spec) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s", renderSpecTable(specs))
}

// DisplayRewrittenSpec prints the executable form of every method of spec.
func (s *SimpleUI) DisplayRewrittenSpec(ctx context.Context, spec *m.Spec) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s %s\n", spec.Name, faintStyle.Render(string(spec.File)))

	for _, method := range spec.Methods() {
		s.printf("  %s %s\n", method.Kind, method.Name)

		for _, b := range method.Blocks {
			if b.Body == nil {
				continue
			}

			s.printf("    %s:\n%s\n", b.Kind, indent(ast.FormatStmts(b.Body.Stmts), "      "))
		}
	}
}

func renderSummaryTable(report *m.RunReport) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Spec", "Passed", "Failed", "Ignored"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER})

	for _, spec := range report.Specs {
		single := &m.RunReport{Specs: []*m.SpecReport{spec}}
		c := single.Counts()
		table.Append([]string{spec.Spec, fmt.Sprintf("%d", c.Passed), fmt.Sprintf("%d", c.Failed), fmt.Sprintf("%d", c.Ignored)})
	}

	total := report.Counts()
	table.SetFooter([]string{
		fmt.Sprintf("Total Tests %d", total.Total()),
		fmt.Sprintf("%d", total.Passed),
		fmt.Sprintf("%d", total.Failed),
		fmt.Sprintf("%d", total.Ignored),
	})

	table.Render()

	return tableBuffer.String()
}

func renderSpecTable(specs []*m.Spec) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Spec", "Feature", "Data Variables", "Mode"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	features := 0

	for _, spec := range specs {
		for _, f := range spec.Features {
			table.Append([]string{spec.Name, f.Name, strings.Join(f.DataVariables(), ", "), featureMode(spec, f)})

			features++
		}
	}

	table.SetFooter([]string{fmt.Sprintf("Total Specs %d", len(specs)), fmt.Sprintf("%d", features), "", ""})
	table.Render()

	return tableBuffer.String()
}

func featureMode(spec *m.Spec, f *m.Feature) string {
	switch {
	case spec.Skipped || f.Skipped:
		return "skipped"
	case f.Unroll:
		return "unrolled"
	case f.Parameterized():
		return "parameterized"
	}

	return "simple"
}

func formatOutcome(outcome m.TestOutcome) string {
	switch outcome {
	case m.Passed:
		return passedStyle.Render("PASS")
	case m.Failed:
		return failedStyle.Render("FAIL")
	case m.Ignored:
		return ignoredStyle.Render("SKIP")
	}

	return unknownStatusLabel
}

func formatFailure(f m.FailureRecord) string {
	var sb strings.Builder

	sb.WriteString(f.Message)

	if f.Expected != "" || f.Actual != "" {
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(f.Expected + "\n"),
			B:        difflib.SplitLines(f.Actual + "\n"),
			FromFile: "Expected",
			ToFile:   "Actual",
			Context:  3,
		})
		if err == nil && diff != "" {
			sb.WriteString("\n\n")
			sb.WriteString(strings.TrimSuffix(diff, "\n"))
		}
	}

	for _, frame := range f.Stack {
		sb.WriteString("\n  ")
		sb.WriteString(frame.String())
	}

	return sb.String()
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}

	return strings.Join(lines, "\n")
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

const unknownStatusLabel = "unknown"
