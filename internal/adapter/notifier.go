package adapter

import (
	"errors"
	"sync"
	"time"

	m "spekt.dev/pkg/spekt/internal/model"
)

// RecordingNotifier collects test lifecycle events into a SpecReport.
type RecordingNotifier struct {
	mu      sync.Mutex
	report  *m.SpecReport
	byDesc  map[m.Description]*m.TestResult
	started map[m.Description]time.Time
	now     func() time.Time
}

// NewRecordingNotifier returns a notifier that fills report.
func NewRecordingNotifier(report *m.SpecReport) *RecordingNotifier {
	return &RecordingNotifier{
		report:  report,
		byDesc:  map[m.Description]*m.TestResult{},
		started: map[m.Description]time.Time{},
		now:     time.Now,
	}
}

// Report returns the report being filled.
func (n *RecordingNotifier) Report() *m.SpecReport {
	return n.report
}

// TestStarted records that d began running.
func (n *RecordingNotifier) TestStarted(d m.Description) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.result(d)
	n.started[d] = n.now()
}

// TestFinished marks d passed unless a failure was recorded.
func (n *RecordingNotifier) TestFinished(d m.Description) {
	n.mu.Lock()
	defer n.mu.Unlock()

	res := n.result(d)
	if res.Outcome == "" {
		res.Outcome = m.Passed
	}

	if start, ok := n.started[d]; ok {
		res.Duration = n.now().Sub(start)
	}
}

// TestFailure records err against d.
func (n *RecordingNotifier) TestFailure(d m.Description, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	res := n.result(d)
	res.Outcome = m.Failed
	res.Failures = append(res.Failures, failureRecord(err))
}

// TestIgnored records d as skipped.
func (n *RecordingNotifier) TestIgnored(d m.Description) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.result(d).Outcome = m.Ignored
}

func (n *RecordingNotifier) result(d m.Description) *m.TestResult {
	if res, ok := n.byDesc[d]; ok {
		return res
	}

	res := &m.TestResult{Description: d}
	n.byDesc[d] = res
	n.report.Results = append(n.report.Results, res)

	return res
}

func failureRecord(err error) m.FailureRecord {
	record := m.FailureRecord{Message: err.Error(), Stack: m.StackOf(err)}

	var cmp *m.ComparisonFailure
	if errors.As(err, &cmp) {
		record.Expected = cmp.Expected
		record.Actual = cmp.Actual
	}

	return record
}
