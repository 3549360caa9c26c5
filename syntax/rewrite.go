// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

// Rewrite replaces expressions within n. It visits every expression
// slot of n depth first, rewriting subexpressions before the
// expression that contains them, and stores the result of f(x) in
// place of each x. The expression n itself, if n is an Expr, cannot
// be replaced; use the result of f directly for that.
func Rewrite(n Node, f func(Expr) Expr) {
	rw := rewriter(f)
	switch n := n.(type) {
	case *File:
		rw.stmts(n.Stmts)
	case Stmt:
		rw.stmt(n)
	case Expr:
		rw.children(n)
	}
}

type rewriter func(Expr) Expr

func (rw rewriter) stmts(stmts []Stmt) {
	for _, stmt := range stmts {
		rw.stmt(stmt)
	}
}

func (rw rewriter) stmt(stmt Stmt) {
	switch stmt := stmt.(type) {
	case *ExprStmt:
		stmt.X = rw.expr(stmt.X)
	case *BranchStmt, *ImportStmt, *GlobalStmt:
		// no-op
	case *IfStmt:
		stmt.Cond = rw.expr(stmt.Cond)
		rw.stmts(stmt.True)
		rw.stmts(stmt.False)
	case *AssignStmt:
		stmt.LHS = rw.expr(stmt.LHS)
		stmt.Type = rw.opt(stmt.Type)
		rw.list(stmt.Chain)
		stmt.RHS = rw.opt(stmt.RHS)
	case *DefStmt:
		for _, d := range stmt.Decorators {
			d.X = rw.expr(d.X)
		}
		rw.params(stmt.Params)
		stmt.Result = rw.opt(stmt.Result)
		rw.stmts(stmt.Body)
	case *ClassStmt:
		for _, d := range stmt.Decorators {
			d.X = rw.expr(d.X)
		}
		rw.list(stmt.Bases)
		rw.stmts(stmt.Body)
	case *ForStmt:
		stmt.Vars = rw.expr(stmt.Vars)
		stmt.X = rw.expr(stmt.X)
		rw.stmts(stmt.Body)
		rw.stmts(stmt.Else)
	case *WhileStmt:
		stmt.Cond = rw.expr(stmt.Cond)
		rw.stmts(stmt.Body)
		rw.stmts(stmt.Else)
	case *WithStmt:
		for _, item := range stmt.Items {
			item.X = rw.expr(item.X)
			item.As = rw.opt(item.As)
		}
		rw.stmts(stmt.Body)
	case *TryStmt:
		rw.stmts(stmt.Body)
		for _, h := range stmt.Handlers {
			h.Type = rw.opt(h.Type)
			rw.stmts(h.Body)
		}
		rw.stmts(stmt.Else)
		rw.stmts(stmt.Finally)
	case *ReturnStmt:
		stmt.Result = rw.opt(stmt.Result)
	case *AssertStmt:
		stmt.Cond = rw.expr(stmt.Cond)
		stmt.Msg = rw.opt(stmt.Msg)
	case *DelStmt:
		stmt.Targets = rw.expr(stmt.Targets)
	case *RaiseStmt:
		stmt.X = rw.opt(stmt.X)
		stmt.Cause = rw.opt(stmt.Cause)
	default:
		panic(stmt)
	}
}

func (rw rewriter) params(params []*Param) {
	for _, param := range params {
		param.Type = rw.opt(param.Type)
		param.Default = rw.opt(param.Default)
	}
}

func (rw rewriter) list(list []Expr) {
	for i, x := range list {
		list[i] = rw.expr(x)
	}
}

func (rw rewriter) opt(x Expr) Expr {
	if x == nil {
		return nil
	}
	return rw.expr(x)
}

func (rw rewriter) expr(x Expr) Expr {
	rw.children(x)
	return rw(x)
}

func (rw rewriter) children(x Expr) {
	switch x := x.(type) {
	case *Ident:
		// no-op
	case *Literal:
		for _, field := range x.Fields {
			field.X = rw.expr(field.X)
		}
	case *ParenExpr:
		x.X = rw.expr(x.X)
	case *UnaryExpr:
		x.X = rw.expr(x.X)
	case *BinaryExpr:
		if x.Op != EQ {
			x.X = rw.expr(x.X)
		}
		x.Y = rw.expr(x.Y)
	case *CondExpr:
		x.Cond = rw.expr(x.Cond)
		x.True = rw.expr(x.True)
		x.False = rw.expr(x.False)
	case *CallExpr:
		x.Fn = rw.expr(x.Fn)
		rw.list(x.Args)
	case *DotExpr:
		x.X = rw.expr(x.X)
	case *IndexExpr:
		x.X = rw.expr(x.X)
		x.Y = rw.expr(x.Y)
	case *SliceExpr:
		x.X = rw.expr(x.X)
		x.Lo = rw.opt(x.Lo)
		x.Hi = rw.opt(x.Hi)
		x.Step = rw.opt(x.Step)
	case *SliceItem:
		x.Lo = rw.opt(x.Lo)
		x.Hi = rw.opt(x.Hi)
		x.Step = rw.opt(x.Step)
	case *YieldExpr:
		x.X = rw.opt(x.X)
	case *ListExpr:
		rw.list(x.List)
	case *TupleExpr:
		rw.list(x.List)
	case *SetExpr:
		rw.list(x.List)
	case *DictExpr:
		rw.list(x.List)
	case *DictEntry:
		x.Key = rw.expr(x.Key)
		x.Value = rw.expr(x.Value)
	case *LambdaExpr:
		rw.params(x.Params)
		x.Body = rw.expr(x.Body)
	case *Comprehension:
		for _, clause := range x.Clauses {
			switch clause := clause.(type) {
			case *ForClause:
				clause.Vars = rw.expr(clause.Vars)
				clause.X = rw.expr(clause.X)
			case *IfClause:
				clause.Cond = rw.expr(clause.Cond)
			}
		}
		x.Body = rw.expr(x.Body)
	default:
		panic(x)
	}
}
