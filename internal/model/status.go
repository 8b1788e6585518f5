package model

// RunStatus is the escalation level returned for an error: how far up the
// spec → feature → iteration hierarchy execution must be aborted.
// Levels are ordered; a larger value is more severe.
type RunStatus int

const (
	// OK continues execution normally.
	OK RunStatus = iota
	// EndIteration aborts the current iteration only.
	EndIteration
	// EndFeature aborts the remaining iterations of the current feature.
	EndFeature
	// EndSpec aborts the remaining features of the spec.
	EndSpec
)

func (s RunStatus) String() string {
	switch s {
	case OK:
		return "OK"
	case EndIteration:
		return "END_ITERATION"
	case EndFeature:
		return "END_FEATURE"
	case EndSpec:
		return "END_SPEC"
	default:
		return "UNKNOWN"
	}
}

// MaxStatus returns the more severe of a and b.
func MaxStatus(a, b RunStatus) RunStatus {
	if a > b {
		return a
	}

	return b
}
