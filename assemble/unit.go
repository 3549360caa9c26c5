// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assemble

import (
	"errors"
	"fmt"

	"github.com/qfuzz/qmerge/resolve"
	"github.com/qfuzz/qmerge/syntax"
)

// ErrNoEntry is reported for a unit that defines no entry routine.
var ErrNoEntry = errors.New("no entry routine")

// EntryName is the name of the entry routine of every unit,
// and of the master routine of the combined module.
const EntryName = "main"

// A Unit is one input program after parsing and renaming.
type Unit struct {
	Index     int             // position in the input list
	Path      string          // source file, for diagnostics
	Globals   map[string]bool // top-level names before renaming
	Imports   []*syntax.ImportStmt
	Body      []syntax.Stmt   // retained top-level statements, renamed
	Entry     *syntax.DefStmt // the renamed entry routine
	Resources []Resource      // filled in by Capture
	Pools     Pools           // filled in by SharedRegistry
	Dropped   int             // harness-conflicting statements removed
	Renamed   int             // identifiers rewritten
}

// Prefix returns the prefix added to the unit's global names.
func (u *Unit) Prefix() string { return Prefix(u.Index) }

// EntryName returns the renamed name of the unit's entry routine.
func (u *Unit) EntryName() string { return u.Prefix() + EntryName }

// Prefix returns the prefix of the unit at position i.
func Prefix(i int) string { return fmt.Sprintf("c%d_", i) }

// NewUnit prepares the parsed file f as the unit at position index.
// It removes top-level statements that would conflict with the
// harness, separates the top-level imports from the body, and renames
// the file's global definitions with the unit's prefix.
//
// The error wraps ErrNoEntry if the file has no top-level routine
// named main. On error the unit is still returned, for inspection.
func NewUnit(index int, f *syntax.File) (*Unit, error) {
	u := &Unit{Index: index, Path: f.Path}

	var kept []syntax.Stmt
	for _, stmt := range f.Stmts {
		if imp, ok := stmt.(*syntax.ImportStmt); ok {
			u.Imports = append(u.Imports, imp)
			continue
		}
		if conflicts(stmt) {
			u.Dropped++
			continue
		}
		kept = append(kept, stmt)
	}

	body := &syntax.File{Path: f.Path, Stmts: kept}
	u.Globals = resolve.Globals(body)
	u.Renamed = resolve.Rename(body, u.Prefix(), u.Globals)
	u.Body = body.Stmts

	for _, stmt := range u.Body {
		if def, ok := stmt.(*syntax.DefStmt); ok && def.Name.Name == u.EntryName() {
			u.Entry = def // the last definition wins, as in Python
		}
	}
	if u.Entry == nil {
		return u, fmt.Errorf("%s: %w", f.Path, ErrNoEntry)
	}
	return u, nil
}

// conflicts reports whether a top-level statement of a unit would run
// or configure the program on its own: a main guard, a bare call of
// the entry routine, a compile call, or an experimental-features
// switch. The combined module does these itself.
func conflicts(stmt syntax.Stmt) bool {
	switch stmt := stmt.(type) {
	case *syntax.IfStmt:
		return isMainGuard(stmt.Cond)
	case *syntax.ExprStmt:
		c, ok := stmt.X.(*syntax.CallExpr)
		if !ok {
			return false
		}
		switch fn := unparen(c.Fn).(type) {
		case *syntax.Ident:
			return fn.Name == EntryName || fn.Name == "enable_experimental_features"
		case *syntax.DotExpr:
			return fn.Name.Name == "compile" || fn.Name.Name == "enable_experimental_features"
		}
	}
	return false
}

// isMainGuard reports whether cond compares __name__ with something.
func isMainGuard(cond syntax.Expr) bool {
	b, ok := unparen(cond).(*syntax.BinaryExpr)
	if !ok {
		return false
	}
	switch b.Op {
	case syntax.EQL, syntax.NEQ, syntax.IS, syntax.IS_NOT, syntax.IN, syntax.NOT_IN,
		syntax.LT, syntax.GT, syntax.LE, syntax.GE:
		return isName(b.X, "__name__")
	}
	return false
}
