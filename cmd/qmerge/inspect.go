// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qfuzz/qmerge/assemble"
	"github.com/qfuzz/qmerge/repl"
	"github.com/qfuzz/qmerge/syntax"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [file...]",
	Short: "Show how programs are renamed and what their entry routines need",
	Long: `inspect prints, for each program in order, its global names, its
renamed entry routine and the resources the merge conventions derive
from it. With no files it starts an interactive session.`,
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		repl.REPL(new(repl.Session))
		return nil
	}
	w := cmd.OutOrStdout()
	var errs []error
	for i, path := range args {
		if err := inspectFile(w, i, path); err != nil {
			failColor.Fprintf(w, "%v\n", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func inspectFile(w io.Writer, i int, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f, err := syntax.Parse(path, data, 0)
	if err != nil {
		return err
	}
	u, err := assemble.NewUnit(i, f)

	okColor.Fprintf(w, "# %s (%s)\n", path, u.Prefix())
	var globals []string
	for name := range u.Globals {
		globals = append(globals, name)
	}
	sort.Strings(globals)
	fmt.Fprintf(w, "# globals: %s\n", strings.Join(globals, ", "))
	if u.Dropped > 0 {
		warnColor.Fprintf(w, "# dropped %d conflicting statements\n", u.Dropped)
	}
	if err != nil {
		return err
	}
	fmt.Fprint(w, syntax.FormatStmt(u.Entry))
	repl.Describe(w, i, u.Entry)
	fmt.Fprintln(w)
	return nil
}
