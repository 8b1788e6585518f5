// Package mocks holds testify mocks of the adapter interfaces.
package mocks

import (
	"context"
	"os"

	"github.com/stretchr/testify/mock"

	"spekt.dev/pkg/spekt/internal/adapter"
	m "spekt.dev/pkg/spekt/internal/model"
)

// MockSourceFSAdapter is a mock implementation of adapter.SourceFSAdapter.
type MockSourceFSAdapter struct {
	mock.Mock
}

// Get provides a mock function.
func (ma *MockSourceFSAdapter) Get(ctx context.Context, paths []m.Path, exclude ...string) ([]m.Path, error) {
	ret := ma.Called(ctx, paths, exclude)

	files, _ := ret.Get(0).([]m.Path)

	return files, ret.Error(1)
}

// Walk provides a mock function.
func (ma *MockSourceFSAdapter) Walk(root m.Path, recursive bool, fn adapter.FilepathWalkFunc) error {
	ret := ma.Called(root, recursive, fn)
	return ret.Error(0)
}

// HashFile provides a mock function.
func (ma *MockSourceFSAdapter) HashFile(path m.Path) (string, error) {
	ret := ma.Called(path)
	return ret.String(0), ret.Error(1)
}

// FileInfo provides a mock function.
func (ma *MockSourceFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	ret := ma.Called(path)

	info, _ := ret.Get(0).(os.FileInfo)

	return info, ret.Error(1)
}

// MockSpecFileAdapter is a mock implementation of adapter.SpecFileAdapter.
type MockSpecFileAdapter struct {
	mock.Mock
}

// Load provides a mock function.
func (ma *MockSpecFileAdapter) Load(path m.Path) (*m.Spec, error) {
	ret := ma.Called(path)

	spec, _ := ret.Get(0).(*m.Spec)

	return spec, ret.Error(1)
}

// Parse provides a mock function.
func (ma *MockSpecFileAdapter) Parse(path m.Path, content []byte) (*m.Spec, error) {
	ret := ma.Called(path, content)

	spec, _ := ret.Get(0).(*m.Spec)

	return spec, ret.Error(1)
}

// MockReportStore is a mock implementation of adapter.ReportStore.
type MockReportStore struct {
	mock.Mock
}

// NewReport provides a mock function.
func (ma *MockReportStore) NewReport() *m.RunReport {
	ret := ma.Called()

	report, _ := ret.Get(0).(*m.RunReport)

	return report
}

// SaveReport provides a mock function.
func (ma *MockReportStore) SaveReport(dir m.Path, report *m.RunReport) error {
	ret := ma.Called(dir, report)
	return ret.Error(0)
}

// LoadLatest provides a mock function.
func (ma *MockReportStore) LoadLatest(dir m.Path) (*m.RunReport, error) {
	ret := ma.Called(dir)

	report, _ := ret.Get(0).(*m.RunReport)

	return report, ret.Error(1)
}
