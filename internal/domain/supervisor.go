package domain

import (
	"errors"
	"fmt"

	m "spekt.dev/pkg/spekt/internal/model"
)

const renderFailurePrefix = "Failed to render value due to:\n\n"

// RunNotifier receives test lifecycle events for an external reporter.
type RunNotifier interface {
	TestStarted(d m.Description)
	TestFinished(d m.Description)
	TestFailure(d m.Description, err error)
	TestIgnored(d m.Description)
}

// RunListener observes the execution of a spec.
type RunListener interface {
	BeforeSpec(spec *m.Spec)
	BeforeFeature(feature *m.Feature)
	BeforeIteration(it *m.Iteration)
	Error(info m.ErrorInfo)
	AfterIteration(it *m.Iteration)
	AfterFeature(feature *m.Feature)
	AfterSpec(spec *m.Spec)
	SpecSkipped(spec *m.Spec)
	FeatureSkipped(feature *m.Feature)
}

// ValueRenderer renders the operands of a failed equality comparison.
type ValueRenderer interface {
	Render(v any) (string, error)
}

// RunSupervisor translates lifecycle events into notifier calls and decides
// how far a failure escalates.
type RunSupervisor interface {
	BeforeSpec(spec *m.Spec)
	BeforeFeature(feature *m.Feature)
	BeforeIteration(it *m.Iteration)
	Error(info m.ErrorInfo) m.RunStatus
	AfterIteration(it *m.Iteration)
	AfterFeature(feature *m.Feature)
	AfterSpec(spec *m.Spec)
	SpecSkipped(spec *m.Spec)
	FeatureSkipped(feature *m.Feature)
}

type supervisor struct {
	spec     *m.Spec
	notifier RunNotifier
	listener RunListener
	renderer ValueRenderer

	feature     *m.Feature
	namer       *UnrollNamer
	unrolled    *m.Description
	iterations  int
	errorSeen   bool
	featureDesc m.Description
}

// NewSupervisor constructs a RunSupervisor for one run of spec.
func NewSupervisor(spec *m.Spec, notifier RunNotifier, listener RunListener, renderer ValueRenderer) RunSupervisor {
	return &supervisor{
		spec:     spec,
		notifier: notifier,
		listener: listener,
		renderer: renderer,
	}
}

func (s *supervisor) BeforeSpec(spec *m.Spec) {
	s.listener.BeforeSpec(spec)
}

func (s *supervisor) BeforeFeature(feature *m.Feature) {
	s.listener.BeforeFeature(feature)

	s.feature = feature
	s.featureDesc = m.FeatureDescription(s.spec, feature)

	if feature.Unroll {
		s.namer = NewUnrollNamer(feature, "")
	} else {
		s.namer = nil
		s.notifier.TestStarted(s.featureDesc)
	}

	if feature.Parameterized() {
		s.iterations = 0
		s.errorSeen = false
	}
}

func (s *supervisor) BeforeIteration(it *m.Iteration) {
	s.listener.BeforeIteration(it)
	s.iterations++

	if s.namer == nil {
		return
	}

	desc := m.Description{Class: s.spec.Name, Name: s.namer.NameFor(it)}
	s.unrolled = &desc
	s.notifier.TestStarted(desc)
}

func (s *supervisor) Error(info m.ErrorInfo) m.RunStatus {
	var aggregate interface{ Unwrap() []error }
	if errors.As(info.Err, &aggregate) {
		status := m.OK
		for _, err := range aggregate.Unwrap() {
			status = m.MaxStatus(status, s.Error(m.ErrorInfo{Method: info.Method, Err: err}))
		}

		return status
	}

	err := info.Err

	var failure *m.ConditionNotSatisfiedError
	if errors.As(err, &failure) && failure.Condition.Expression != nil && failure.Condition.Expression.IsEqualityComparison() {
		err = s.comparisonFailure(failure)
	}

	s.listener.Error(m.ErrorInfo{Method: info.Method, Err: err})
	s.notifier.TestFailure(s.current(), err)
	s.errorSeen = true

	return s.escalation(info.Method)
}

func (s *supervisor) AfterIteration(it *m.Iteration) {
	s.listener.AfterIteration(it)

	if s.unrolled == nil {
		return
	}

	s.notifier.TestFinished(*s.unrolled)
	s.unrolled = nil
}

func (s *supervisor) AfterFeature(feature *m.Feature) {
	if feature.Parameterized() && s.iterations == 0 && !s.errorSeen {
		s.notifier.TestFailure(s.featureDesc, &m.ExecutionError{Err: m.ErrNoData})
	}

	s.listener.AfterFeature(feature)

	if !feature.Unroll {
		s.notifier.TestFinished(s.featureDesc)
	}

	s.feature = nil
	s.namer = nil
	s.unrolled = nil
}

func (s *supervisor) AfterSpec(spec *m.Spec) {
	s.listener.AfterSpec(spec)
}

func (s *supervisor) SpecSkipped(spec *m.Spec) {
	s.listener.SpecSkipped(spec)
	s.notifier.TestIgnored(m.SpecDescription(spec))
}

func (s *supervisor) FeatureSkipped(feature *m.Feature) {
	s.listener.FeatureSkipped(feature)
	s.notifier.TestIgnored(m.FeatureDescription(s.spec, feature))
}

func (s *supervisor) current() m.Description {
	if s.unrolled != nil {
		return *s.unrolled
	}

	if s.feature != nil {
		return s.featureDesc
	}

	return m.SpecDescription(s.spec)
}

func (s *supervisor) escalation(method *m.Method) m.RunStatus {
	if method == nil {
		return m.EndSpec
	}

	return method.Kind.Escalation(s.feature != nil && s.feature.Parameterized())
}

func (s *supervisor) comparisonFailure(failure *m.ConditionNotSatisfiedError) *m.ComparisonFailure {
	operands := failure.Condition.Expression.Children

	return &m.ComparisonFailure{
		Condition: failure.Condition,
		Actual:    s.render(operands[0].Value),
		Expected:  s.render(operands[1].Value),
		Stack:     failure.Stack,
	}
}

func (s *supervisor) render(v any) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = renderFailurePrefix + fmt.Sprint(r)
		}
	}()

	rendered, err := s.renderer.Render(v)
	if err != nil {
		return renderFailurePrefix + err.Error()
	}

	return rendered
}
