// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

// Walk traverses a syntax tree in depth-first order.
// It starts by calling f(n); n must not be nil.
// If f returns true, Walk calls itself
// recursively for each non-nil child of n.
// Walk then calls f(nil).
func Walk(n Node, f func(Node) bool) {
	if n == nil {
		panic("nil")
	}
	if !f(n) {
		return
	}

	switch n := n.(type) {
	case *File:
		walkStmts(n.Stmts, f)

	case *ExprStmt:
		Walk(n.X, f)

	case *BranchStmt:
		// no-op

	case *IfStmt:
		Walk(n.Cond, f)
		walkStmts(n.True, f)
		walkStmts(n.False, f)

	case *AssignStmt:
		Walk(n.LHS, f)
		if n.Type != nil {
			Walk(n.Type, f)
		}
		for _, x := range n.Chain {
			Walk(x, f)
		}
		if n.RHS != nil {
			Walk(n.RHS, f)
		}

	case *DefStmt:
		for _, d := range n.Decorators {
			Walk(d, f)
		}
		Walk(n.Name, f)
		for _, param := range n.Params {
			Walk(param, f)
		}
		if n.Result != nil {
			Walk(n.Result, f)
		}
		walkStmts(n.Body, f)

	case *ClassStmt:
		for _, d := range n.Decorators {
			Walk(d, f)
		}
		Walk(n.Name, f)
		for _, base := range n.Bases {
			Walk(base, f)
		}
		walkStmts(n.Body, f)

	case *Decorator:
		Walk(n.X, f)

	case *Param:
		if n.Name != nil {
			Walk(n.Name, f)
		}
		if n.Type != nil {
			Walk(n.Type, f)
		}
		if n.Default != nil {
			Walk(n.Default, f)
		}

	case *ForStmt:
		Walk(n.Vars, f)
		Walk(n.X, f)
		walkStmts(n.Body, f)
		walkStmts(n.Else, f)

	case *WhileStmt:
		Walk(n.Cond, f)
		walkStmts(n.Body, f)
		walkStmts(n.Else, f)

	case *WithStmt:
		for _, item := range n.Items {
			Walk(item, f)
		}
		walkStmts(n.Body, f)

	case *WithItem:
		Walk(n.X, f)
		if n.As != nil {
			Walk(n.As, f)
		}

	case *TryStmt:
		walkStmts(n.Body, f)
		for _, h := range n.Handlers {
			Walk(h, f)
		}
		walkStmts(n.Else, f)
		walkStmts(n.Finally, f)

	case *ExceptClause:
		if n.Type != nil {
			Walk(n.Type, f)
		}
		if n.Name != nil {
			Walk(n.Name, f)
		}
		walkStmts(n.Body, f)

	case *ReturnStmt:
		if n.Result != nil {
			Walk(n.Result, f)
		}

	case *ImportStmt:
		for _, id := range n.Module {
			Walk(id, f)
		}
		for _, name := range n.Names {
			Walk(name, f)
		}

	case *ImportName:
		for _, id := range n.Path {
			Walk(id, f)
		}
		if n.As != nil {
			Walk(n.As, f)
		}

	case *AssertStmt:
		Walk(n.Cond, f)
		if n.Msg != nil {
			Walk(n.Msg, f)
		}

	case *DelStmt:
		Walk(n.Targets, f)

	case *RaiseStmt:
		if n.X != nil {
			Walk(n.X, f)
		}
		if n.Cause != nil {
			Walk(n.Cause, f)
		}

	case *GlobalStmt:
		for _, id := range n.Names {
			Walk(id, f)
		}

	case *Ident:
		// no-op

	case *Literal:
		for _, field := range n.Fields {
			Walk(field.X, f)
		}

	case *ListExpr:
		walkExprs(n.List, f)

	case *ParenExpr:
		Walk(n.X, f)

	case *CondExpr:
		Walk(n.True, f)
		Walk(n.Cond, f)
		Walk(n.False, f)

	case *IndexExpr:
		Walk(n.X, f)
		Walk(n.Y, f)

	case *DictEntry:
		Walk(n.Key, f)
		Walk(n.Value, f)

	case *SliceExpr:
		Walk(n.X, f)
		if n.Lo != nil {
			Walk(n.Lo, f)
		}
		if n.Hi != nil {
			Walk(n.Hi, f)
		}
		if n.Step != nil {
			Walk(n.Step, f)
		}

	case *SliceItem:
		for _, x := range []Expr{n.Lo, n.Hi, n.Step} {
			if x != nil {
				Walk(x, f)
			}
		}

	case *YieldExpr:
		if n.X != nil {
			Walk(n.X, f)
		}

	case *Comprehension:
		Walk(n.Body, f)
		for _, clause := range n.Clauses {
			Walk(clause, f)
		}

	case *IfClause:
		Walk(n.Cond, f)

	case *ForClause:
		Walk(n.Vars, f)
		Walk(n.X, f)

	case *TupleExpr:
		walkExprs(n.List, f)

	case *DictExpr:
		walkExprs(n.List, f)

	case *SetExpr:
		walkExprs(n.List, f)

	case *UnaryExpr:
		Walk(n.X, f)

	case *BinaryExpr:
		Walk(n.X, f)
		Walk(n.Y, f)

	case *DotExpr:
		Walk(n.X, f)
		Walk(n.Name, f)

	case *CallExpr:
		Walk(n.Fn, f)
		walkExprs(n.Args, f)

	case *LambdaExpr:
		for _, param := range n.Params {
			Walk(param, f)
		}
		Walk(n.Body, f)

	default:
		panic(n)
	}

	f(nil)
}

func walkStmts(stmts []Stmt, f func(Node) bool) {
	for _, stmt := range stmts {
		Walk(stmt, f)
	}
}

func walkExprs(exprs []Expr, f func(Node) bool) {
	for _, expr := range exprs {
		Walk(expr, f)
	}
}
