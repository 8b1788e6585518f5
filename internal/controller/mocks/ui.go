// Package mocks holds testify mocks of the controller interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	m "spekt.dev/pkg/spekt/internal/model"
)

// MockUI is a mock implementation of controller.UI.
type MockUI struct {
	mock.Mock
}

// DisplayConcurrencyInfo provides a mock function.
func (mu *MockUI) DisplayConcurrencyInfo(ctx context.Context, threads int, shardIndex int, shardCount int, specs int) {
	mu.Called(ctx, threads, shardIndex, shardCount, specs)
}

// DisplayDiagnostics provides a mock function.
func (mu *MockUI) DisplayDiagnostics(ctx context.Context, diags []m.Diagnostic) {
	mu.Called(ctx, diags)
}

// DisplaySpecReport provides a mock function.
func (mu *MockUI) DisplaySpecReport(ctx context.Context, report *m.SpecReport) {
	mu.Called(ctx, report)
}

// DisplaySummary provides a mock function.
func (mu *MockUI) DisplaySummary(ctx context.Context, report *m.RunReport) {
	mu.Called(ctx, report)
}

// DisplaySpecList provides a mock function.
func (mu *MockUI) DisplaySpecList(ctx context.Context, specs []*m.Spec) {
	mu.Called(ctx, specs)
}

// DisplayRewrittenSpec provides a mock function.
func (mu *MockUI) DisplayRewrittenSpec(ctx context.Context, spec *m.Spec) {
	mu.Called(ctx, spec)
}
