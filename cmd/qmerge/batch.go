// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qfuzz/qmerge/assemble"
	"github.com/qfuzz/qmerge/internal/batch"
	"github.com/qfuzz/qmerge/internal/config"
	"github.com/qfuzz/qmerge/internal/runner"
)

var batchCmd = &cobra.Command{
	Use:   "batch [flags] [input-dir]",
	Short: "Assemble random combinations of the programs in a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBatch,
}

func init() {
	defaults := config.Default()
	flags := batchCmd.Flags()
	flags.String("output-dir", defaults.OutputDir, "directory of the combined modules")
	flags.String("pattern", defaults.Pattern, "glob of the input programs")
	flags.Int("n", defaults.N, "number of combinations")
	flags.Int("min-files", defaults.MinFiles, "fewest programs per combination")
	flags.Int("max-files", defaults.MaxFiles, "most programs per combination")
	flags.Int("max-retries", defaults.MaxRetries, "consecutive duplicate samples tolerated")
	flags.String("convention", defaults.Convention, "merge convention (capture|shared-registry)")
	flags.Int("jobs", defaults.Jobs, "parallel assemblies; one per CPU if 0")
	flags.Int64("seed", defaults.Seed, "sampling seed; time-based if 0")
	flags.Bool("run", false, "run each combined module")
	flags.Duration("timeout", defaults.Run.Timeout.Duration, "time limit of each run")
	flags.String("python", defaults.Run.Python, "interpreter of the runs")
}

// batchConfig returns the configuration overridden by the batch flags
// the user set.
func batchConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if len(args) > 0 {
		cfg.InputDir = args[0]
	}
	strs := map[string]*string{
		"output-dir": &cfg.OutputDir,
		"pattern":    &cfg.Pattern,
		"python":     &cfg.Run.Python,
	}
	for name, p := range strs {
		if flags.Changed(name) {
			*p, _ = flags.GetString(name)
		}
	}
	ints := map[string]*int{
		"n":           &cfg.N,
		"min-files":   &cfg.MinFiles,
		"max-files":   &cfg.MaxFiles,
		"max-retries": &cfg.MaxRetries,
		"jobs":        &cfg.Jobs,
	}
	for name, p := range ints {
		if flags.Changed(name) {
			*p, _ = flags.GetInt(name)
		}
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("run") {
		cfg.Run.Enabled, _ = flags.GetBool("run")
	}
	if flags.Changed("timeout") {
		cfg.Run.Timeout.Duration, _ = flags.GetDuration("timeout")
	}
	return cfg, cfg.Validate()
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := batchConfig(cmd, args)
	if err != nil {
		return err
	}
	strategy, err := cfg.Strategy()
	if err != nil {
		return err
	}
	inputs, err := filepath.Glob(filepath.Join(cfg.InputDir, cfg.Pattern))
	if err != nil {
		return err
	}
	sort.Strings(inputs)

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.Info("starting batch", zap.String("input_dir", cfg.InputDir),
		zap.Int("inputs", len(inputs)), zap.Int("n", cfg.N), zap.String("convention", strategy.Name()))

	opts := batch.Options{
		Inputs:     inputs,
		OutputDir:  cfg.OutputDir,
		N:          cfg.N,
		MinFiles:   cfg.MinFiles,
		MaxFiles:   cfg.MaxFiles,
		MaxRetries: cfg.MaxRetries,
		Jobs:       cfg.Jobs,
		Seed:       cfg.Seed,
		Assemble:   assemble.Options{Strategy: strategy},
		Logger:     logger,
	}
	if cfg.Run.Enabled {
		opts.Runner = &runner.Runner{
			Python:     cfg.Run.Python,
			Timeout:    cfg.Run.Timeout.Duration,
			PythonPath: cfg.Run.PythonPath,
		}
	}
	summary, err := batch.Run(cmd.Context(), opts)
	if summary != nil {
		printSummary(os.Stdout, summary)
	}
	if err != nil {
		return err
	}
	if failed := len(summary.Combinations) - countOK(summary); failed > 0 {
		return fmt.Errorf("%d of %d combinations failed", failed, len(summary.Combinations))
	}
	return nil
}

func countOK(s *batch.Summary) int {
	n := 0
	for _, c := range s.Combinations {
		if c.OK() {
			n++
		}
	}
	return n
}

// printSummary writes one line per combination and a total to w.
func printSummary(w io.Writer, s *batch.Summary) {
	for _, c := range s.Combinations {
		switch {
		case c.Err != nil:
			failColor.Fprintf(w, "FAIL  %d: %v\n", c.Index, c.Err)
		case c.RunErr != nil:
			failColor.Fprintf(w, "FAIL  %s: %v\n", c.Output, c.RunErr)
		default:
			okColor.Fprint(w, "ok    ")
			fmt.Fprintf(w, "%s (%d units", c.Output, len(c.Report.Units))
			if n := len(c.Report.Skipped); n > 0 {
				warnColor.Fprintf(w, ", %d skipped", n)
			}
			if c.Run != nil {
				fmt.Fprintf(w, ", ran in %v", c.Run.Elapsed.Round(time.Millisecond))
			}
			fmt.Fprintln(w, ")")
		}
	}
	fmt.Fprintf(w, "%d combinations assembled (seed %d)", s.Assembled(), s.Seed)
	if ran, ok := s.Ran(); ran > 0 {
		fmt.Fprintf(w, ", %d of %d ran successfully", ok, ran)
	}
	fmt.Fprintln(w)
	if s.Exhausted {
		warnColor.Fprintf(w, "stopped sampling after %d duplicate combinations\n", s.Duplicates)
	}
}
