// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package assemble merges independently generated circuit programs
// into one program for a differential-testing harness.
//
// Each input unit is parsed, its top-level definitions are renamed
// with the prefix c{i}_, and its imports are merged with those of the
// other units. A Strategy then joins the units' entry routines under
// one synthesized master routine, which the combined module passes to
// the harness's differential test.
package assemble // import "github.com/qfuzz/qmerge/assemble"

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/qfuzz/qmerge/syntax"
)

// Options configure a build.
type Options struct {
	Strategy Strategy    // merge convention; Capture if nil
	Logger   *zap.Logger // per-unit diagnostics; discarded if nil
}

func (o Options) strategy() Strategy {
	if o.Strategy == nil {
		return Capture{}
	}
	return o.Strategy
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// A Skip records an input or import left out of the combined module.
type Skip struct {
	Path string
	Err  error
}

// A Report describes the outcome of a build.
type Report struct {
	Strategy string
	Units    []*Unit // units merged, in input order
	Skipped  []Skip  // units that failed to parse or prepare
	Imports  []Skip  // malformed imports left out
	Output   string  // path written by Assemble
}

// Used returns the paths of the merged units.
func (r *Report) Used() []string {
	paths := make([]string, len(r.Units))
	for i, u := range r.Units {
		paths[i] = u.Path
	}
	return paths
}

func (r *Report) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s: %d merged, %d skipped", r.Strategy, len(r.Units), len(r.Skipped))
	for _, s := range r.Skipped {
		fmt.Fprintf(&buf, "\n  skipped %s: %v", s.Path, s.Err)
	}
	for _, s := range r.Imports {
		fmt.Fprintf(&buf, "\n  dropped import in %s: %v", s.Path, s.Err)
	}
	return buf.String()
}

// Build merges the programs at paths into one module tagged with tag.
//
// A unit that cannot be read or parsed, that has no entry routine, or
// that the strategy rejects is logged, recorded in the report and left
// out; so is a malformed import. Build fails only if ctx is cancelled
// or the combined module does not parse back, in which case the
// report is still returned.
func Build(ctx context.Context, paths []string, tag int, opts Options) (*syntax.File, *Report, error) {
	strategy := opts.strategy()
	logger := opts.logger().With(zap.String("convention", strategy.Name()))
	report := &Report{Strategy: strategy.Name()}
	imports := NewImportSet(strategy.Harness()...)

	var body []syntax.Stmt
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		u, err := load(i, path, strategy)
		if err != nil {
			logger.Error("skipping unit", zap.Int("unit", i), zap.String("path", path), zap.Error(err))
			report.Skipped = append(report.Skipped, Skip{path, err})
			continue
		}
		for _, imp := range u.Imports {
			if _, err := imports.Add(imp); err != nil {
				logger.Error("dropping import", zap.String("path", path), zap.Error(err))
				report.Imports = append(report.Imports, Skip{path, err})
			}
		}
		for _, r := range u.Resources {
			if r.Kind == Unrecognized {
				logger.Info("parameter not materialized",
					zap.String("path", path), zap.String("routine", u.EntryName()), zap.String("param", r.Name))
			}
		}
		logger.Debug("merged unit", zap.Int("unit", i), zap.String("path", path), zap.Int("renamed", u.Renamed))
		report.Units = append(report.Units, u)
		body = append(body, u.Body...)
	}

	f := &syntax.File{}
	for _, imp := range imports.List() {
		f.Stmts = append(f.Stmts, imp)
	}
	f.Stmts = append(f.Stmts, strategy.Prologue(imports)...)
	f.Stmts = append(f.Stmts, body...)
	f.Stmts = append(f.Stmts, strategy.Master(report.Units))
	f.Stmts = append(f.Stmts, strategy.DiffTest(tag)...)

	if _, err := syntax.Parse("<combined>", syntax.Format(f), 0); err != nil {
		return nil, report, fmt.Errorf("combined module is not valid: %w", err)
	}
	return f, report, nil
}

// load reads, parses and prepares the unit at position i.
func load(i int, path string, strategy Strategy) (*Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := syntax.Parse(path, data, 0)
	if err != nil {
		return nil, err
	}
	u, err := NewUnit(i, f)
	if err != nil {
		return nil, err
	}
	if err := strategy.Prepare(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Assemble builds the combined module of the programs at paths and
// writes it to output.
func Assemble(ctx context.Context, paths []string, output string, tag int, opts Options) (*Report, error) {
	f, report, err := Build(ctx, paths, tag, opts)
	if err != nil {
		return report, err
	}
	if err := os.WriteFile(output, []byte(syntax.Format(f)), 0o644); err != nil {
		return report, fmt.Errorf("writing combined module: %w", err)
	}
	report.Output = output
	return report, nil
}
