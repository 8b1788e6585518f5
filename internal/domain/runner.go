package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spekt.dev/pkg/spekt/internal/interp"
	m "spekt.dev/pkg/spekt/internal/model"
)

// SpecRunner executes a rewritten spec and reports through notifier.
type SpecRunner interface {
	Run(ctx context.Context, spec *m.Spec, notifier RunNotifier) error
}

type specRunner struct {
	listener       RunListener
	renderer       ValueRenderer
	featureTimeout time.Duration
}

// NewSpecRunner constructs a SpecRunner. A zero featureTimeout disables the
// per-feature deadline.
func NewSpecRunner(listener RunListener, renderer ValueRenderer, featureTimeout time.Duration) SpecRunner {
	return &specRunner{
		listener:       listener,
		renderer:       renderer,
		featureTimeout: featureTimeout,
	}
}

func (r *specRunner) Run(ctx context.Context, spec *m.Spec, notifier RunNotifier) error {
	if spec == nil {
		return fmt.Errorf("spec is nil")
	}

	sup := NewSupervisor(spec, notifier, r.listener, r.renderer)

	if spec.Skipped {
		sup.SpecSkipped(spec)
		return nil
	}

	sup.BeforeSpec(spec)

	shared := interp.NewInstance(spec, nil)
	status := r.fixture(ctx, sup, shared, spec.Fixture(m.KindSetupSpec), nil)

	if status < m.EndSpec {
		for _, feature := range spec.Features {
			if feature.Skipped {
				sup.FeatureSkipped(feature)
				continue
			}

			if r.runFeature(ctx, sup, spec, shared, feature) >= m.EndSpec {
				break
			}
		}
	}

	r.fixture(ctx, sup, shared, spec.Fixture(m.KindCleanupSpec), nil)
	sup.AfterSpec(spec)

	return ctx.Err()
}

func (r *specRunner) runFeature(ctx context.Context, sup RunSupervisor, spec *m.Spec, shared *interp.Instance, feature *m.Feature) m.RunStatus {
	if r.featureTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.featureTimeout)
		defer cancel()
	}

	sup.BeforeFeature(feature)
	defer sup.AfterFeature(feature)

	if !feature.Parameterized() {
		return r.runIteration(ctx, sup, spec, shared, &m.Iteration{Feature: feature})
	}

	rows, status := r.dataRows(ctx, sup, shared, feature)
	if status != m.OK {
		return status
	}

	for i, row := range rows {
		values, status := r.derive(ctx, sup, shared, feature, row)
		if status == m.EndIteration {
			continue
		}

		if status != m.OK {
			return status
		}

		status = r.runIteration(ctx, sup, spec, shared, &m.Iteration{Feature: feature, Index: i, Values: values})
		if status >= m.EndFeature {
			return status
		}
	}

	return m.OK
}

// dataRows evaluates the data providers of feature into rows of values.
func (r *specRunner) dataRows(ctx context.Context, sup RunSupervisor, shared *interp.Instance, feature *m.Feature) ([]map[string]any, m.RunStatus) {
	provider := &m.Method{Name: feature.Name + " data provider", Kind: m.KindDataProvider, Pos: feature.Method.Pos}

	var (
		rows  []map[string]any
		count = -1
	)

	for _, dp := range feature.DataProviders {
		value, err := shared.Evaluate(ctx, dp.Source, nil)
		if err != nil {
			return nil, sup.Error(m.ErrorInfo{Method: provider, Err: err})
		}

		list, ok := value.([]any)
		if !ok {
			err := &m.ExecutionError{Err: fmt.Errorf("data provider for '%s' must produce a list, but produced %s", dp.Var, m.FormatValue(value))}
			return nil, sup.Error(m.ErrorInfo{Method: provider, Err: err})
		}

		if count == -1 {
			count = len(list)
			rows = make([]map[string]any, count)

			for i := range rows {
				rows[i] = map[string]any{}
			}
		}

		if len(list) != count {
			err := &m.ExecutionError{Err: fmt.Errorf("data provider for '%s' has %d values, but the first provider has %d", dp.Var, len(list), count)}
			return nil, sup.Error(m.ErrorInfo{Method: provider, Err: err})
		}

		for i, v := range list {
			rows[i][dp.Var] = v
		}
	}

	slog.Debug("data rows evaluated", "feature", feature.Name, "rows", len(rows))

	return rows, m.OK
}

// derive computes the derived data variables of one row.
func (r *specRunner) derive(ctx context.Context, sup RunSupervisor, shared *interp.Instance, feature *m.Feature, row map[string]any) (map[string]any, m.RunStatus) {
	processor := &m.Method{Name: feature.Name + " data processor", Kind: m.KindDataProcessor, Pos: feature.Method.Pos}

	for _, d := range feature.Derived {
		v, err := shared.Evaluate(ctx, d.Value, row)
		if err != nil {
			return nil, sup.Error(m.ErrorInfo{Method: processor, Err: err})
		}

		row[d.Var] = v
	}

	return row, m.OK
}

func (r *specRunner) runIteration(ctx context.Context, sup RunSupervisor, spec *m.Spec, shared *interp.Instance, it *m.Iteration) m.RunStatus {
	if it.Feature.Parameterized() {
		sup.BeforeIteration(it)
		defer sup.AfterIteration(it)
	}

	inst := interp.NewInstance(spec, shared.Fields())
	method := it.Feature.Method

	status := r.fixture(ctx, sup, inst, spec.Fixture(m.KindSetup), nil)

	if status == m.OK {
		status = r.fixture(ctx, sup, inst, method, it.Values)
	}

	if status == m.OK && method.UsesMockController {
		if err := inst.Controller().LeaveScope(); err != nil {
			status = sup.Error(m.ErrorInfo{Method: method, Err: err})
		}
	}

	return m.MaxStatus(status, r.fixture(ctx, sup, inst, spec.Fixture(m.KindCleanup), nil))
}

// fixture invokes method on inst, reporting a failure to the supervisor.
// A nil method is a no-op.
func (r *specRunner) fixture(ctx context.Context, sup RunSupervisor, inst *interp.Instance, method *m.Method, args map[string]any) m.RunStatus {
	if method == nil {
		return m.OK
	}

	if err := inst.Invoke(ctx, method, args); err != nil {
		return sup.Error(m.ErrorInfo{Method: method, Err: err})
	}

	return m.OK
}
