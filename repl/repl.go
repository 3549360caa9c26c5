// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package repl provides an interactive inspector for circuit programs.
//
// It supports readline-style command editing,
// and interrupts through Control-C.
//
// Each item entered, a simple statement or a compound one ended by a
// blank line, is added to a growing unit. The REPL prints the item as
// it would appear in a combined module, with the unit's global names
// prefixed, and for a definition of the entry routine main it also
// prints the resources the merge conventions derive from it.
package repl // import "github.com/qfuzz/qmerge/repl"

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/qfuzz/qmerge/assemble"
	"github.com/qfuzz/qmerge/resolve"
	"github.com/qfuzz/qmerge/syntax"
)

// A Session accumulates the statements of one unit.
// The zero value is a session for unit 0.
type Session struct {
	Index int // position of the unit, which selects its prefix
	src   strings.Builder
}

// Eval adds the statements of f to the session and writes their
// combined-module form to w.
func (s *Session) Eval(f *syntax.File, w io.Writer) error {
	text := syntax.Format(f)
	s.src.WriteString(text)

	all, err := syntax.Parse("<session>", s.src.String(), 0)
	if err != nil {
		return err // unreachable: printed text parses
	}
	item, err := syntax.Parse("<stdin>", text, 0)
	if err != nil {
		return err
	}
	resolve.Rename(item, assemble.Prefix(s.Index), resolve.Globals(all))

	if expr := soleExpr(item); expr != nil {
		fmt.Fprintln(w, syntax.FormatExpr(expr))
		return nil
	}
	fmt.Fprint(w, syntax.Format(item))
	for _, stmt := range item.Stmts {
		def, ok := stmt.(*syntax.DefStmt)
		if ok && def.Name.Name == assemble.Prefix(s.Index)+assemble.EntryName {
			Describe(w, s.Index, def)
		}
	}
	return nil
}

// Describe writes what the merge conventions make of def, the renamed
// entry routine of the unit at position index.
func Describe(w io.Writer, index int, def *syntax.DefStmt) {
	fmt.Fprintln(w, "# capture:")
	resources := assemble.Inspect(def)
	if len(resources) == 0 {
		fmt.Fprintln(w, "#   no parameters")
	}
	for _, r := range resources {
		fmt.Fprintf(w, "#   %s\n", r)
	}

	// Prepare rewrites the routine, so work on a copy.
	copied, err := syntax.Parse("<entry>", syntax.FormatStmt(def), 0)
	if err != nil {
		return
	}
	u := &assemble.Unit{Index: index, Path: "<stdin>", Entry: copied.Stmts[0].(*syntax.DefStmt)}
	if err := (assemble.SharedRegistry{}).Prepare(u); err != nil {
		fmt.Fprintf(w, "# shared-registry: %v\n", err)
		return
	}
	fmt.Fprintf(w, "# shared-registry: primary %d, secondary %d\n", u.Pools.Primary, u.Pools.Secondary)
}

// REPL runs a read, inspect, print loop until end of input.
func REPL(s *Session) {
	rl, err := readline.New(">>> ")
	if err != nil {
		PrintError(err)
		return
	}
	defer rl.Close()
	for {
		if err := rep(rl, s); err != nil {
			if err == readline.ErrInterrupt {
				fmt.Println(err)
				continue
			}
			break
		}
	}
	fmt.Println()
}

// rep reads, inspects, and prints one item.
//
// It returns an error (possibly readline.ErrInterrupt)
// only if readline failed. Syntax errors are printed.
func rep(rl *readline.Instance, s *Session) error {
	eof := false

	// readline returns EOF, ErrInterrupted, or a line including "\n".
	rl.SetPrompt(">>> ")
	readline := func() ([]byte, error) {
		line, err := rl.Readline()
		rl.SetPrompt("... ")
		if err != nil {
			if err == io.EOF {
				eof = true
			}
			return nil, err
		}
		return []byte(line + "\n"), nil
	}

	// parse
	f, err := syntax.ParseCompoundStmt("<stdin>", readline)
	if err != nil {
		if eof {
			return io.EOF
		}
		PrintError(err)
		return nil
	}
	if len(f.Stmts) == 0 {
		return nil
	}

	if err := s.Eval(f, os.Stdout); err != nil {
		PrintError(err)
	}
	return nil
}

func soleExpr(f *syntax.File) syntax.Expr {
	if len(f.Stmts) == 1 {
		if stmt, ok := f.Stmts[0].(*syntax.ExprStmt); ok {
			return stmt.X
		}
	}
	return nil
}

// PrintError prints the error to stderr.
func PrintError(err error) {
	fmt.Fprintln(os.Stderr, err)
}
