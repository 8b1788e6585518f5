// Package controller provides output adapters for displaying spec runs.
package controller

import (
	"context"

	m "spekt.dev/pkg/spekt/internal/model"
)

// UI defines how the workflow presents its results. Implementations decide
// on the output medium.
type UI interface {
	DisplayConcurrencyInfo(ctx context.Context, threads int, shardIndex int, shardCount int, specs int)
	DisplayDiagnostics(ctx context.Context, diags []m.Diagnostic)
	DisplaySpecReport(ctx context.Context, report *m.SpecReport)
	DisplaySummary(ctx context.Context, report *m.RunReport)
	DisplaySpecList(ctx context.Context, specs []*m.Spec)
	DisplayRewrittenSpec(ctx context.Context, spec *m.Spec)
}
