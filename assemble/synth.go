// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assemble

// Constructors for synthesized syntax trees. Synthesized nodes carry
// no positions; the printer supplies layout and parentheses.

import (
	"strings"

	"github.com/qfuzz/qmerge/syntax"
)

func ident(name string) *syntax.Ident { return &syntax.Ident{Name: name} }

func call(fn syntax.Expr, args ...syntax.Expr) *syntax.CallExpr {
	return &syntax.CallExpr{Fn: fn, Args: args}
}

func dot(x syntax.Expr, name string) *syntax.DotExpr {
	return &syntax.DotExpr{X: x, Name: ident(name)}
}

func intLit(n int) *syntax.Literal {
	return &syntax.Literal{Token: syntax.INT, Value: int64(n)}
}

// strLit returns a string literal. A non-empty quote selects the
// quote character; otherwise the literal is double-quoted.
func strLit(s string, quote string) *syntax.Literal {
	lit := &syntax.Literal{Token: syntax.STRING, Value: s}
	if quote != "" {
		lit.Raw = quote + s + quote
	}
	return lit
}

func assign(name string, value syntax.Expr) *syntax.AssignStmt {
	return &syntax.AssignStmt{Op: syntax.EQ, LHS: ident(name), RHS: value}
}

func exprStmt(x syntax.Expr) *syntax.ExprStmt { return &syntax.ExprStmt{X: x} }

// fromImport returns the statement "from module import names...".
func fromImport(module string, names ...string) *syntax.ImportStmt {
	stmt := &syntax.ImportStmt{From: syntheticPos}
	for _, part := range strings.Split(module, ".") {
		stmt.Module = append(stmt.Module, ident(part))
	}
	for _, name := range names {
		stmt.Names = append(stmt.Names, &syntax.ImportName{Path: []*syntax.Ident{ident(name)}})
	}
	return stmt
}

// syntheticPos is a valid position for synthesized nodes whose
// meaning depends on a position being present, such as the FROM
// keyword of a from-import.
var syntheticPos = syntax.MakePosition(&syntheticFile, 1, 1)

var syntheticFile = "<assembled>"
