package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	m "spekt.dev/pkg/spekt/internal/model"
)

const latestFileName = "latest"

// ErrNoReports is returned when a reports directory holds no saved run.
var ErrNoReports = errors.New("no reports found")

// ReportStore persists run reports.
type ReportStore interface {
	// NewReport starts an empty report with a fresh run ID.
	NewReport() *m.RunReport
	SaveReport(dir m.Path, report *m.RunReport) error
	LoadLatest(dir m.Path) (*m.RunReport, error)
}

type reportStore struct {
	now func() time.Time
}

// NewReportStore returns a ReportStore writing one YAML file per run.
func NewReportStore() ReportStore {
	return &reportStore{now: time.Now}
}

func (s *reportStore) NewReport() *m.RunReport {
	return &m.RunReport{ID: uuid.NewString(), StartedAt: s.now().UTC()}
}

// SaveReport writes <dir>/<id>.yaml and points <dir>/latest at it.
func (s *reportStore) SaveReport(dir m.Path, report *m.RunReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}

	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	path := filepath.Join(string(dir), report.ID+".yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if err := os.WriteFile(filepath.Join(string(dir), latestFileName), []byte(report.ID+"\n"), 0o600); err != nil {
		return fmt.Errorf("write latest marker: %w", err)
	}

	slog.Debug("report saved", "path", path, "specs", len(report.Specs))

	return nil
}

func (s *reportStore) LoadLatest(dir m.Path) (*m.RunReport, error) {
	marker, err := os.ReadFile(filepath.Join(string(dir), latestFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNoReports, dir)
		}

		return nil, fmt.Errorf("read latest marker: %w", err)
	}

	id := strings.TrimSpace(string(marker))
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("corrupt latest marker %q: %w", id, err)
	}

	// #nosec G304 - the path is built from a validated run ID
	data, err := os.ReadFile(filepath.Join(string(dir), id+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	var report m.RunReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}

	return &report, nil
}
