package domain

import (
	"log/slog"

	m "spekt.dev/pkg/spekt/internal/model"
)

type loggingListener struct {
	logger *slog.Logger
}

// NewLoggingListener returns a RunListener that logs every lifecycle event.
// A nil logger logs through whatever slog.Default is at the time of the event.
func NewLoggingListener(logger *slog.Logger) RunListener {
	return &loggingListener{logger: logger}
}

func (l *loggingListener) log() *slog.Logger {
	if l.logger == nil {
		return slog.Default()
	}

	return l.logger
}

func (l *loggingListener) BeforeSpec(spec *m.Spec) {
	l.log().Info("Running spec", "spec", spec.Name, "file", spec.File)
}

func (l *loggingListener) BeforeFeature(feature *m.Feature) {
	l.log().Debug("Running feature", "feature", feature.Name, "parameterized", feature.Parameterized())
}

func (l *loggingListener) BeforeIteration(it *m.Iteration) {
	l.log().Debug("Running iteration", "feature", it.Feature.Name, "index", it.Index)
}

func (l *loggingListener) Error(info m.ErrorInfo) {
	method := ""
	kind := ""

	if info.Method != nil {
		method = info.Method.Name
		kind = info.Method.Kind.String()
	}

	l.log().Info("Failure", "method", method, "kind", kind, "error", info.Err)
}

func (l *loggingListener) AfterIteration(it *m.Iteration) {
	l.log().Debug("Finished iteration", "feature", it.Feature.Name, "index", it.Index)
}

func (l *loggingListener) AfterFeature(feature *m.Feature) {
	l.log().Debug("Finished feature", "feature", feature.Name)
}

func (l *loggingListener) AfterSpec(spec *m.Spec) {
	l.log().Info("Finished spec", "spec", spec.Name)
}

func (l *loggingListener) SpecSkipped(spec *m.Spec) {
	l.log().Info("Skipped spec", "spec", spec.Name)
}

func (l *loggingListener) FeatureSkipped(feature *m.Feature) {
	l.log().Info("Skipped feature", "feature", feature.Name)
}
