// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package batch assembles many random combinations of input programs.
//
// Combinations are sampled up front, sequentially, so that a seed
// determines them. Each is an ordered selection of distinct inputs;
// since order matters for execution, two selections of the same files
// in different orders are different combinations. The combinations are
// then assembled, and optionally run, in parallel.
package batch

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/qfuzz/qmerge/assemble"
	"github.com/qfuzz/qmerge/internal/runner"
)

// Options configure a batch.
type Options struct {
	Inputs     []string // candidate programs
	OutputDir  string
	N          int // number of combinations
	MinFiles   int
	MaxFiles   int
	MaxRetries int   // consecutive duplicate samples tolerated
	Jobs       int   // parallel assemblies; one per CPU if zero
	Seed       int64 // time-seeded if zero

	Assemble assemble.Options
	Runner   *runner.Runner // no runs if nil
	Logger   *zap.Logger
}

// A Combination is one assembled program.
type Combination struct {
	Index  int      // also the program's tag
	Inputs []string // in assembly order
	Output string
	Report *assemble.Report
	Err    error // assembly failure
	Run    *runner.Result
	RunErr error
}

// OK reports whether the combination was assembled and, if it was
// run, ran successfully.
func (c *Combination) OK() bool { return c.Err == nil && c.RunErr == nil }

// A Summary is the outcome of a batch.
type Summary struct {
	Combinations []*Combination
	Duplicates   int  // rejected samples
	Exhausted    bool // sampling gave up before reaching N
	Seed         int64
}

// Assembled returns the number of combinations assembled.
func (s *Summary) Assembled() int {
	n := 0
	for _, c := range s.Combinations {
		if c.Err == nil {
			n++
		}
	}
	return n
}

// Ran returns the number of combinations run, and how many succeeded.
func (s *Summary) Ran() (ran, ok int) {
	for _, c := range s.Combinations {
		if c.Run != nil {
			ran++
			if c.RunErr == nil {
				ok++
			}
		}
	}
	return ran, ok
}

// ErrTooFewInputs is reported when there are fewer inputs than the
// smallest combination.
var ErrTooFewInputs = errors.New("too few input files")

// Sample returns an ordered selection of between lo and hi distinct
// inputs; hi is capped at the number of inputs.
func Sample(rng *rand.Rand, inputs []string, lo, hi int) []string {
	hi = min(hi, len(inputs))
	k := lo + rng.IntN(hi-lo+1)
	perm := rng.Perm(len(inputs))
	selected := make([]string, k)
	for i := range selected {
		selected[i] = inputs[perm[i]]
	}
	return selected
}

// Run samples, assembles and optionally runs the combinations.
// Failures of single combinations are logged and recorded in the
// summary; Run itself fails only for bad options, an unusable output
// directory, or cancellation.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MinFiles < 1 || opts.MaxFiles < opts.MinFiles {
		return nil, fmt.Errorf("invalid combination size range [%d, %d]", opts.MinFiles, opts.MaxFiles)
	}
	if len(opts.Inputs) < opts.MinFiles {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrTooFewInputs, len(opts.Inputs), opts.MinFiles)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	summary := &Summary{Seed: seed}
	rng := rand.New(rand.NewPCG(uint64(seed), 0))

	seen := make(map[string]bool)
	for retries := 0; len(summary.Combinations) < opts.N; {
		selected := Sample(rng, opts.Inputs, opts.MinFiles, opts.MaxFiles)
		key := strings.Join(selected, "\x00")
		if seen[key] {
			summary.Duplicates++
			if retries++; retries > opts.MaxRetries {
				summary.Exhausted = true
				logger.Warn("giving up sampling after consecutive duplicates",
					zap.Int("retries", opts.MaxRetries), zap.Int("combinations", len(summary.Combinations)))
				break
			}
			continue
		}
		retries = 0
		seen[key] = true
		i := len(summary.Combinations)
		summary.Combinations = append(summary.Combinations, &Combination{
			Index:  i,
			Inputs: selected,
			Output: filepath.Join(opts.OutputDir, fmt.Sprintf("assembled_circuit_%d.py", i)),
		})
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, c := range summary.Combinations {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			process(gctx, c, opts, logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	return summary, ctx.Err()
}

// process assembles and runs one combination.
func process(ctx context.Context, c *Combination, opts Options, logger *zap.Logger) {
	logger = logger.With(zap.Int("combination", c.Index))
	aopts := opts.Assemble
	aopts.Logger = logger
	c.Report, c.Err = assemble.Assemble(ctx, c.Inputs, c.Output, c.Index, aopts)
	if c.Err != nil {
		logger.Error("failed to assemble combination", zap.Strings("inputs", c.Inputs), zap.Error(c.Err))
		return
	}
	logger.Info("assembled", zap.String("output", c.Output),
		zap.Int("units", len(c.Report.Units)), zap.Int("skipped", len(c.Report.Skipped)))
	logger.Debug("assembly report", zap.Stringer("report", c.Report))

	if opts.Runner == nil {
		return
	}
	c.Run, c.RunErr = opts.Runner.Run(ctx, c.Output)
	if c.RunErr != nil {
		logger.Error("run failed", zap.String("output", c.Output), zap.Error(c.RunErr),
			zap.String("stdout", c.Run.Stdout), zap.String("stderr", c.Run.Stderr))
		return
	}
	logger.Info("ran", zap.String("output", c.Output), zap.Duration("elapsed", c.Run.Elapsed))
}
