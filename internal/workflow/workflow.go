// Package workflow runs the discover, verify and detect operations over one
// or all tabular datasets of a catalog.
//
// Datasets are processed sequentially in catalog order. A dataset that fails
// to load, or has no stored specification, is logged and skipped; it never
// stops the remaining datasets. Only a strict verification failure (Verify)
// or an I/O error writing results aborts a run.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leaptdda/internal/store"
	"github.com/leapstack-labs/leaptdda/pkg/core"
)

// Catalog loads datasets by name.
type Catalog interface {
	Load(ctx context.Context, name string) (*core.Frame, error)
	TabularDatasets() []string
}

// Store persists constraint specifications.
type Store interface {
	Path(name string) string
	Write(name string, spec *core.Spec, overwrite bool) (store.WriteOutcome, error)
	Read(name string) (*core.Spec, bool, error)
}

// Engine infers and checks constraints.
type Engine interface {
	Discover(f *core.Frame) *core.Spec
	Verify(f *core.Frame, spec *core.Spec) *core.Verification
	Detect(f *core.Frame, spec *core.Spec, outPath string) (*core.Verification, error)
}

// Reporter turns verification results into logs or errors.
type Reporter interface {
	Report(dataset string, v *core.Verification, strict bool) error
}

// Runner wires the collaborators of an operation.
type Runner struct {
	Catalog  Catalog
	Store    Store
	Engine   Engine
	Reporter Reporter
	Logger   *slog.Logger
	// DisplayPath renders file paths in log messages. Defaults to identity.
	DisplayPath func(string) string
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

func (r *Runner) display(p string) string {
	if r.DisplayPath == nil {
		return p
	}
	return r.DisplayPath(p)
}

// load reports a recoverable load failure as (nil, false).
func (r *Runner) load(ctx context.Context, name string) (*core.Frame, bool) {
	f, err := r.Catalog.Load(ctx, name)
	if err != nil {
		r.logger().Warn(fmt.Sprintf("Failed to load %s from catalog.", name),
			slog.String("dataset", name),
			slog.Any("error", err))
		return nil, false
	}
	return f, true
}

// readSpec returns (nil, false, nil) when no specification is stored.
func (r *Runner) readSpec(name string) (*core.Spec, bool, error) {
	spec, found, err := r.Store.Read(name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read constraints for %s: %w", name, err)
	}
	if !found {
		r.logger().Warn(fmt.Sprintf("No constraints found for %s", name), slog.String("dataset", name))
	}
	return spec, found, nil
}

// Discover infers and stores a specification for each target dataset. An
// existing specification is kept unless overwrite is set.
func (r *Runner) Discover(ctx context.Context, target core.Target, overwrite bool) (*Summary, error) {
	sum := &Summary{Operation: OpDiscover}
	for _, name := range target.Resolve(r.Catalog.TabularDatasets()) {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		f, ok := r.load(ctx, name)
		if !ok {
			sum.add(Outcome{Dataset: name, Status: StatusLoadFailed})
			continue
		}

		spec := r.Engine.Discover(f)
		path := r.Store.Path(name)
		outcome, err := r.Store.Write(name, spec, overwrite)
		if err != nil {
			return sum, fmt.Errorf("failed to write constraints for %s: %w", name, err)
		}

		switch outcome {
		case store.Skipped:
			r.logger().Warn(fmt.Sprintf("TDDA discovery for `%s` skipped. File exists: %s", name, r.display(path)),
				slog.String("dataset", name))
			sum.add(Outcome{Dataset: name, Status: StatusSkipped, Path: path})
		default:
			r.logger().Info(fmt.Sprintf("TDDA constraints are written to %s", r.display(path)),
				slog.String("dataset", name),
				slog.Int("fields", len(spec.Fields)))
			sum.add(Outcome{Dataset: name, Status: StatusWritten, Path: path})
		}
	}
	return sum, nil
}

// Verify checks each target dataset against its stored specification. The
// first dataset with failed checks aborts the run with the reporter's error.
func (r *Runner) Verify(ctx context.Context, target core.Target) (*Summary, error) {
	sum := &Summary{Operation: OpVerify}
	for _, name := range target.Resolve(r.Catalog.TabularDatasets()) {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		spec, found, err := r.readSpec(name)
		if err != nil {
			return sum, err
		}
		if !found {
			sum.add(Outcome{Dataset: name, Status: StatusNoConstraints})
			continue
		}

		f, ok := r.load(ctx, name)
		if !ok {
			sum.add(Outcome{Dataset: name, Status: StatusLoadFailed})
			continue
		}

		v := r.Engine.Verify(f, spec)
		out := Outcome{Dataset: name, Status: StatusPassed, Passes: v.Passes, Failures: v.Failures}
		if v.Failures > 0 {
			out.Status = StatusFailed
		}
		sum.add(out)

		if err := r.Reporter.Report(name, v, true); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// Detect checks each target dataset like Verify, writes anomalous records
// to <targetDir>/<dataset>.csv and never fails on check failures.
func (r *Runner) Detect(ctx context.Context, target core.Target, targetDir string) (*Summary, error) {
	sum := &Summary{Operation: OpDetect}
	if err := os.MkdirAll(targetDir, 0o750); err != nil {
		return sum, fmt.Errorf("failed to create detection directory: %w", err)
	}

	for _, name := range target.Resolve(r.Catalog.TabularDatasets()) {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		spec, found, err := r.readSpec(name)
		if err != nil {
			return sum, err
		}
		if !found {
			sum.add(Outcome{Dataset: name, Status: StatusNoConstraints})
			continue
		}

		f, ok := r.load(ctx, name)
		if !ok {
			sum.add(Outcome{Dataset: name, Status: StatusLoadFailed})
			continue
		}

		outPath := filepath.Join(targetDir, name+".csv")
		v, err := r.Engine.Detect(f, spec, outPath)
		if err != nil {
			return sum, fmt.Errorf("detection for %s failed: %w", name, err)
		}

		out := Outcome{Dataset: name, Status: StatusPassed, Passes: v.Passes, Failures: v.Failures}
		if v.Failures > 0 {
			out.Status = StatusAnomalies
			out.Path = outPath
			r.logger().Info(fmt.Sprintf("Detection for %s written to %s", name, r.display(outPath)),
				slog.String("dataset", name))
		}
		sum.add(out)

		if err := r.Reporter.Report(name, v, false); err != nil {
			return sum, err
		}
	}
	return sum, nil
}
