// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/qfuzz/qmerge/assemble"
	"github.com/qfuzz/qmerge/syntax"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble [flags] <file> [file...]",
	Short: "Merge the given programs, in order, into one module",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAssemble,
}

func init() {
	assembleCmd.Flags().StringP("output", "o", "", "write the combined module to `file` instead of stdout")
	assembleCmd.Flags().Int("tag", 0, "identifier passed to the differential test")
	assembleCmd.Flags().String("convention", "capture", "merge convention (capture|shared-registry)")
}

func runAssemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	tag, err := cmd.Flags().GetInt("tag")
	if err != nil {
		return err
	}
	strategy, err := cfg.Strategy()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	opts := assemble.Options{Strategy: strategy, Logger: logger}
	var report *assemble.Report
	if output == "" {
		f, r, err := assemble.Build(cmd.Context(), args, tag, opts)
		if err != nil {
			return err
		}
		report = r
		if _, err := io.WriteString(cmd.OutOrStdout(), syntax.Format(f)); err != nil {
			return err
		}
	} else {
		report, err = assemble.Assemble(cmd.Context(), args, output, tag, opts)
		if err != nil {
			return err
		}
	}
	printReport(os.Stderr, report)
	return nil
}

// printReport summarizes a build on w.
func printReport(w io.Writer, r *assemble.Report) {
	okColor.Fprintf(w, "%s: merged %d of %d units", r.Strategy, len(r.Units), len(r.Units)+len(r.Skipped))
	if r.Output != "" {
		fmt.Fprintf(w, " into %s", r.Output)
	}
	fmt.Fprintln(w)
	for _, s := range r.Skipped {
		warnColor.Fprintf(w, "  skipped %s: %v\n", s.Path, s.Err)
	}
	for _, s := range r.Imports {
		warnColor.Fprintf(w, "  dropped import in %s: %v\n", s.Path, s.Err)
	}
}
