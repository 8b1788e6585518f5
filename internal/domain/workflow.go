package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"spekt.dev/pkg/spekt/internal/adapter"
	"spekt.dev/pkg/spekt/internal/controller"
	m "spekt.dev/pkg/spekt/internal/model"
)

// Sentinel results of a workflow. The CLI maps them to a failing exit code
// after the report has been displayed.
var (
	ErrTestsFailed   = errors.New("tests failed")
	ErrRewriteFailed = errors.New("spec rewriting failed")
)

// SelectArgs selects the spec files a command works on.
type SelectArgs struct {
	Paths   []m.Path
	Exclude []string
}

// RewriteArgs contains the arguments for statically rewriting specs.
type RewriteArgs struct {
	SelectArgs
	// Print shows the rewritten form of every method.
	Print bool
}

// RunArgs contains the arguments for running specs.
type RunArgs struct {
	SelectArgs
	Reports         m.Path
	Threads         int
	ShardIndex      int
	TotalShardCount int
	FeatureTimeout  time.Duration
}

// ViewArgs contains the arguments for showing a saved report.
type ViewArgs struct {
	Reports m.Path
}

// Workflow ties discovery, rewriting, execution and reporting together.
type Workflow interface {
	Rewrite(ctx context.Context, args RewriteArgs) error
	Run(ctx context.Context, args RunArgs) error
	List(ctx context.Context, args SelectArgs) error
	View(ctx context.Context, args ViewArgs) error
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.SpecFileAdapter
	adapter.ReportStore
	controller.UI
	SpecRewriter
	listener RunListener
	renderer ValueRenderer
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	specAdapter adapter.SpecFileAdapter,
	reportStore adapter.ReportStore,
	ui controller.UI,
	rewriter SpecRewriter,
	listener RunListener,
	renderer ValueRenderer,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		SpecFileAdapter: specAdapter,
		ReportStore:     reportStore,
		UI:              ui,
		SpecRewriter:    rewriter,
		listener:        listener,
		renderer:        renderer,
	}
}

func (w *workflow) Rewrite(ctx context.Context, args RewriteArgs) error {
	files, err := w.Get(ctx, args.Paths, args.Exclude...)
	if err != nil {
		return fmt.Errorf("get sources: %w", err)
	}

	failed := false

	for _, file := range files {
		spec, err := w.Load(file)
		if err != nil {
			slog.Error("Failed to load spec", "file", file, "error", err)
			return fmt.Errorf("load spec: %w", err)
		}

		rewritten, diags := w.SpecRewriter.Rewrite(spec)
		w.DisplayDiagnostics(ctx, diags)

		if len(diags) > 0 {
			failed = true
			continue
		}

		if args.Print {
			w.DisplayRewrittenSpec(ctx, rewritten)
		}
	}

	if failed {
		return ErrRewriteFailed
	}

	return nil
}

func (w *workflow) Run(ctx context.Context, args RunArgs) error {
	files, err := w.Get(ctx, args.Paths, args.Exclude...)
	if err != nil {
		return fmt.Errorf("get sources: %w", err)
	}

	shardCount := max(args.TotalShardCount, 1)
	files = ShardFiles(files, args.ShardIndex, shardCount)
	w.DisplayConcurrencyInfo(ctx, args.Threads, args.ShardIndex, shardCount, len(files))

	report := w.NewReport()
	report.Specs = make([]*m.SpecReport, len(files))

	runner := NewSpecRunner(w.listener, w.renderer, args.FeatureTimeout)

	group, groupCtx := errgroup.WithContext(ctx)
	if args.Threads > 0 {
		group.SetLimit(args.Threads)
	}

	for i, file := range files {
		group.Go(func() error {
			specReport, err := w.runSpec(groupCtx, runner, file)
			if err != nil {
				return err
			}

			// Each goroutine owns its slot.
			report.Specs[i] = specReport

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return fmt.Errorf("run specs: %w", err)
	}

	for _, spec := range report.Specs {
		w.DisplayDiagnostics(ctx, spec.Diagnostics)
		w.DisplaySpecReport(ctx, spec)
	}

	w.DisplaySummary(ctx, report)

	if err := w.SaveReport(args.Reports, report); err != nil {
		return fmt.Errorf("save reports: %w", err)
	}

	if report.HasFailures() {
		return ErrTestsFailed
	}

	return nil
}

// runSpec loads, rewrites and runs one spec file. Problems with the file
// itself are recorded in the report; only cancellation aborts the run.
func (w *workflow) runSpec(ctx context.Context, runner SpecRunner, file m.Path) (*m.SpecReport, error) {
	report := &m.SpecReport{File: file}

	hash, err := w.HashFile(file)
	if err != nil {
		slog.Error("Failed to hash spec file", "file", file, "error", err)
	}

	report.Hash = hash

	spec, err := w.Load(file)
	if err != nil {
		report.Error = err.Error()
		return report, nil
	}

	report.Spec = spec.Name

	rewritten, diags := w.SpecRewriter.Rewrite(spec)
	if len(diags) > 0 {
		report.Diagnostics = diags
		return report, nil
	}

	if err := runner.Run(ctx, rewritten, adapter.NewRecordingNotifier(report)); err != nil {
		return nil, fmt.Errorf("run %s: %w", file, err)
	}

	return report, nil
}

// ShardFiles keeps the files whose position in the sorted list falls into
// the shard. A zero shard count keeps everything.
func ShardFiles(files []m.Path, shardIndex, totalShardCount int) []m.Path {
	if totalShardCount <= 1 {
		return files
	}

	var shard []m.Path

	for i, file := range files {
		if i%totalShardCount == shardIndex {
			shard = append(shard, file)
		}
	}

	return shard
}

func (w *workflow) List(ctx context.Context, args SelectArgs) error {
	files, err := w.Get(ctx, args.Paths, args.Exclude...)
	if err != nil {
		return fmt.Errorf("get sources: %w", err)
	}

	specs := make([]*m.Spec, 0, len(files))

	for _, file := range files {
		spec, err := w.Load(file)
		if err != nil {
			return fmt.Errorf("load spec: %w", err)
		}

		specs = append(specs, spec)
	}

	w.DisplaySpecList(ctx, specs)

	return nil
}

func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	report, err := w.LoadLatest(args.Reports)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}

	for _, spec := range report.Specs {
		w.DisplayDiagnostics(ctx, spec.Diagnostics)
		w.DisplaySpecReport(ctx, spec)
	}

	w.DisplaySummary(ctx, report)

	return nil
}
