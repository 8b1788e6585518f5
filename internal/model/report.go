package model

import "time"

// TestOutcome is the final state of one reported test.
type TestOutcome string

// Test outcomes.
const (
	Passed  TestOutcome = "passed"
	Failed  TestOutcome = "failed"
	Ignored TestOutcome = "ignored"
)

// FailureRecord is one failure of a test as stored in a report.
type FailureRecord struct {
	Message string `yaml:"message"`
	// Expected and Actual are set for comparison failures.
	Expected string       `yaml:"expected,omitempty"`
	Actual   string       `yaml:"actual,omitempty"`
	Stack    []StackFrame `yaml:"stack,omitempty"`
}

// TestResult is the outcome of one test identity.
type TestResult struct {
	Description Description     `yaml:"description"`
	Outcome     TestOutcome     `yaml:"outcome"`
	Failures    []FailureRecord `yaml:"failures,omitempty"`
	Duration    time.Duration   `yaml:"duration"`
}

// SpecReport holds the results of running one spec file.
type SpecReport struct {
	Spec        string        `yaml:"spec"`
	File        Path          `yaml:"file"`
	Hash        string        `yaml:"hash,omitempty"`
	Error       string        `yaml:"error,omitempty"`
	Diagnostics []Diagnostic  `yaml:"diagnostics,omitempty"`
	Results     []*TestResult `yaml:"results"`
}

// RunReport is everything one `spekt run` produced.
type RunReport struct {
	ID        string        `yaml:"id"`
	StartedAt time.Time     `yaml:"started_at"`
	Specs     []*SpecReport `yaml:"specs"`
}

// Counts tallies results by outcome across all specs.
type Counts struct {
	Passed  int
	Failed  int
	Ignored int
}

// Total returns the number of tests counted.
func (c Counts) Total() int {
	return c.Passed + c.Failed + c.Ignored
}

// Counts tallies the run.
func (r *RunReport) Counts() Counts {
	var c Counts

	for _, s := range r.Specs {
		for _, res := range s.Results {
			switch res.Outcome {
			case Passed:
				c.Passed++
			case Failed:
				c.Failed++
			case Ignored:
				c.Ignored++
			}
		}
	}

	return c
}

// HasFailures reports whether any test failed or any spec could not be
// loaded or rewritten.
func (r *RunReport) HasFailures() bool {
	for _, s := range r.Specs {
		if len(s.Diagnostics) > 0 || s.Error != "" {
			return true
		}
	}

	return r.Counts().Failed > 0
}
