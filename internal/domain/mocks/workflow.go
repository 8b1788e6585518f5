// Package mocks holds testify mocks of the domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"spekt.dev/pkg/spekt/internal/domain"
)

// MockWorkflow is a mock implementation of domain.Workflow.
type MockWorkflow struct {
	mock.Mock
}

// NewMockWorkflow creates a MockWorkflow whose expectations are asserted
// when the test ends.
func NewMockWorkflow(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkflow {
	mw := &MockWorkflow{}
	mw.Test(t)

	t.Cleanup(func() { mw.AssertExpectations(t) })

	return mw
}

// Rewrite provides a mock function.
func (mw *MockWorkflow) Rewrite(ctx context.Context, args domain.RewriteArgs) error {
	ret := mw.Called(ctx, args)
	return ret.Error(0)
}

// Run provides a mock function.
func (mw *MockWorkflow) Run(ctx context.Context, args domain.RunArgs) error {
	ret := mw.Called(ctx, args)
	return ret.Error(0)
}

// List provides a mock function.
func (mw *MockWorkflow) List(ctx context.Context, args domain.SelectArgs) error {
	ret := mw.Called(ctx, args)
	return ret.Error(0)
}

// View provides a mock function.
func (mw *MockWorkflow) View(ctx context.Context, args domain.ViewArgs) error {
	ret := mw.Called(ctx, args)
	return ret.Error(0)
}
