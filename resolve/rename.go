// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve

import "github.com/qfuzz/qmerge/syntax"

// Globals returns the names a file defines at top level: the names
// of its functions and classes, and the identifiers bound by its
// top-level assignments and assignment expressions. Imported names
// are not included.
func Globals(f *syntax.File) map[string]bool {
	globals := make(map[string]bool)
	for _, stmt := range f.Stmts {
		addNamedExprs(globals, stmt)
		switch stmt := stmt.(type) {
		case *syntax.DefStmt:
			globals[stmt.Name.Name] = true
		case *syntax.ClassStmt:
			globals[stmt.Name.Name] = true
		case *syntax.AssignStmt:
			if stmt.Op != syntax.EQ {
				break
			}
			addTargets(globals, stmt.LHS)
			for _, target := range stmt.Chain {
				addTargets(globals, target)
			}
		}
	}
	return globals
}

// addNamedExprs adds the targets of the assignment expressions in n
// that bind at module level.
func addNamedExprs(globals map[string]bool, n syntax.Node) {
	syntax.Walk(n, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.DefStmt, *syntax.ClassStmt, *syntax.LambdaExpr:
			return false
		case *syntax.BinaryExpr:
			if id, ok := n.X.(*syntax.Ident); ok && n.Op == syntax.COLONEQ {
				globals[id.Name] = true
			}
		}
		return true
	})
}

func addTargets(globals map[string]bool, target syntax.Expr) {
	switch target := target.(type) {
	case *syntax.Ident:
		globals[target.Name] = true
	case *syntax.TupleExpr:
		for _, x := range target.List {
			addTargets(globals, x)
		}
	case *syntax.ListExpr:
		for _, x := range target.List {
			addTargets(globals, x)
		}
	case *syntax.ParenExpr:
		addTargets(globals, target.X)
	case *syntax.UnaryExpr:
		if target.Op == syntax.STAR {
			addTargets(globals, target.X)
		}
	}
}

// Rename rewrites f in place so that every reference to one of the
// given global names is prefixed, unless the reference resolves to a
// local binding. Attribute names, keyword argument names and
// parameter names are never rewritten.
//
// It returns the number of identifiers rewritten.
func Rename(f *syntax.File, prefix string, globals map[string]bool) int {
	r := renamer{prefix: prefix, globals: globals}
	r.stmts(f.Stmts)
	return r.renamed
}

// A renamer holds the state of a single Rename call.
type renamer struct {
	prefix  string
	globals map[string]bool
	scopes  Scopes
	renamed int
}

// use handles a reference to id.
func (r *renamer) use(id *syntax.Ident) {
	if r.scopes.Depth() > 0 && r.scopes.IsLocal(id.Name) {
		return
	}
	if r.globals[id.Name] {
		id.Name = r.prefix + id.Name
		r.renamed++
	}
}

// bind handles a binding of id. Within a function the name becomes
// local from here on and is left alone; at top level, and for names
// declared global, the binding refers to the global and is renamed.
func (r *renamer) bind(id *syntax.Ident) {
	if r.scopes.Bind(id.Name) {
		return
	}
	r.use(id)
}

func (r *renamer) stmts(stmts []syntax.Stmt) {
	for _, stmt := range stmts {
		r.stmt(stmt)
	}
}

func (r *renamer) stmt(stmt syntax.Stmt) {
	switch stmt := stmt.(type) {
	case *syntax.ExprStmt:
		r.expr(stmt.X)

	case *syntax.BranchStmt:
		// no-op

	case *syntax.IfStmt:
		r.expr(stmt.Cond)
		r.stmts(stmt.True)
		r.stmts(stmt.False)

	case *syntax.AssignStmt:
		// The right operand is evaluated before the targets are bound.
		if stmt.RHS != nil {
			r.expr(stmt.RHS)
		}
		if stmt.Type != nil {
			r.expr(stmt.Type)
		}
		r.target(stmt.LHS)
		for _, target := range stmt.Chain {
			r.target(target)
		}

	case *syntax.DefStmt:
		r.function(stmt)

	case *syntax.ClassStmt:
		for _, d := range stmt.Decorators {
			r.expr(d.X)
		}
		r.args(stmt.Bases)
		r.bind(stmt.Name)
		r.scopes.PushClass()
		r.stmts(stmt.Body)
		r.scopes.Pop()

	case *syntax.ForStmt:
		r.expr(stmt.X)
		r.target(stmt.Vars)
		r.stmts(stmt.Body)
		r.stmts(stmt.Else)

	case *syntax.WhileStmt:
		r.expr(stmt.Cond)
		r.stmts(stmt.Body)
		r.stmts(stmt.Else)

	case *syntax.WithStmt:
		for _, item := range stmt.Items {
			r.expr(item.X)
			if item.As != nil {
				r.target(item.As)
			}
		}
		r.stmts(stmt.Body)

	case *syntax.TryStmt:
		r.stmts(stmt.Body)
		for _, h := range stmt.Handlers {
			if h.Type != nil {
				r.expr(h.Type)
			}
			if h.Name != nil {
				r.bind(h.Name)
			}
			r.stmts(h.Body)
		}
		r.stmts(stmt.Else)
		r.stmts(stmt.Finally)

	case *syntax.ReturnStmt:
		if stmt.Result != nil {
			r.expr(stmt.Result)
		}

	case *syntax.ImportStmt:
		// Imports bind names but are never renamed.
		for _, name := range stmt.BoundNames() {
			r.scopes.Bind(name)
		}

	case *syntax.AssertStmt:
		r.expr(stmt.Cond)
		if stmt.Msg != nil {
			r.expr(stmt.Msg)
		}

	case *syntax.DelStmt:
		r.target(stmt.Targets)

	case *syntax.RaiseStmt:
		if stmt.X != nil {
			r.expr(stmt.X)
		}
		if stmt.Cause != nil {
			r.expr(stmt.Cause)
		}

	case *syntax.GlobalStmt:
		for _, id := range stmt.Names {
			if stmt.Token == syntax.GLOBAL {
				r.scopes.DeclareGlobal(id.Name)
				if r.scopes.Depth() > 0 {
					r.use(id)
				}
			} else {
				r.scopes.DeclareNonlocal(id.Name)
			}
		}

	default:
		panic(stmt)
	}
}

// function handles a def statement. Decorators, defaults and
// annotations belong to the enclosing scope; the parameters and
// the body to a new one.
func (r *renamer) function(def *syntax.DefStmt) {
	for _, d := range def.Decorators {
		r.expr(d.X)
	}
	r.params(def.Params)
	if def.Result != nil {
		r.expr(def.Result)
	}
	r.bind(def.Name)

	r.scopes.Push()
	r.bindParams(def.Params)
	r.stmts(def.Body)
	r.scopes.Pop()
}

// params visits the annotations and default values of params.
func (r *renamer) params(params []*syntax.Param) {
	for _, param := range params {
		if param.Type != nil {
			r.expr(param.Type)
		}
		if param.Default != nil {
			r.expr(param.Default)
		}
	}
}

func (r *renamer) bindParams(params []*syntax.Param) {
	for _, param := range params {
		if param.Name != nil {
			r.scopes.Bind(param.Name.Name)
		}
	}
}

// target handles an assignment target. Only bare names are bound;
// the operands of attribute and index targets are references.
func (r *renamer) target(x syntax.Expr) {
	switch x := x.(type) {
	case *syntax.Ident:
		r.bind(x)
	case *syntax.TupleExpr:
		for _, elem := range x.List {
			r.target(elem)
		}
	case *syntax.ListExpr:
		for _, elem := range x.List {
			r.target(elem)
		}
	case *syntax.ParenExpr:
		r.target(x.X)
	case *syntax.UnaryExpr:
		if x.Op == syntax.STAR {
			r.target(x.X)
		} else {
			r.expr(x)
		}
	default:
		r.expr(x)
	}
}

// args visits call arguments; keyword names are not references.
func (r *renamer) args(args []syntax.Expr) {
	for _, arg := range args {
		r.expr(arg)
	}
}

func (r *renamer) exprs(list []syntax.Expr) {
	for _, x := range list {
		r.expr(x)
	}
}

func (r *renamer) expr(e syntax.Expr) {
	switch e := e.(type) {
	case *syntax.Ident:
		r.use(e)

	case *syntax.Literal:
		for _, field := range e.Fields {
			r.expr(field.X)
		}

	case *syntax.ParenExpr:
		r.expr(e.X)

	case *syntax.UnaryExpr:
		r.expr(e.X)

	case *syntax.BinaryExpr:
		if e.Op == syntax.EQ {
			// keyword argument k=v
			r.expr(e.Y)
			break
		}
		if e.Op == syntax.COLONEQ {
			r.expr(e.Y)
			if id, ok := e.X.(*syntax.Ident); ok && !r.scopes.BindEnclosing(id.Name) {
				r.use(id)
			}
			break
		}
		r.expr(e.X)
		r.expr(e.Y)

	case *syntax.CondExpr:
		r.expr(e.Cond)
		r.expr(e.True)
		r.expr(e.False)

	case *syntax.CallExpr:
		r.expr(e.Fn)
		r.args(e.Args)

	case *syntax.DotExpr:
		r.expr(e.X)

	case *syntax.IndexExpr:
		r.expr(e.X)
		r.expr(e.Y)

	case *syntax.SliceExpr:
		r.expr(e.X)
		for _, x := range []syntax.Expr{e.Lo, e.Hi, e.Step} {
			if x != nil {
				r.expr(x)
			}
		}

	case *syntax.SliceItem:
		for _, x := range []syntax.Expr{e.Lo, e.Hi, e.Step} {
			if x != nil {
				r.expr(x)
			}
		}

	case *syntax.YieldExpr:
		if e.X != nil {
			r.expr(e.X)
		}

	case *syntax.ListExpr:
		r.exprs(e.List)

	case *syntax.TupleExpr:
		r.exprs(e.List)

	case *syntax.SetExpr:
		r.exprs(e.List)

	case *syntax.DictExpr:
		r.exprs(e.List)

	case *syntax.DictEntry:
		r.expr(e.Key)
		r.expr(e.Value)

	case *syntax.LambdaExpr:
		r.params(e.Params)
		r.scopes.Push()
		r.bindParams(e.Params)
		r.expr(e.Body)
		r.scopes.Pop()

	case *syntax.Comprehension:
		r.comprehension(e)

	default:
		panic(e)
	}
}

// comprehension handles a comprehension or generator expression.
// Its first iterable is evaluated in the enclosing scope; the loop
// variables, conditions and body belong to a new one.
func (r *renamer) comprehension(c *syntax.Comprehension) {
	if len(c.Clauses) > 0 {
		if first, ok := c.Clauses[0].(*syntax.ForClause); ok {
			r.expr(first.X)
		}
	}
	r.scopes.PushComprehension()
	for i, clause := range c.Clauses {
		switch clause := clause.(type) {
		case *syntax.ForClause:
			if i > 0 {
				r.expr(clause.X)
			}
			r.target(clause.Vars)
		case *syntax.IfClause:
			r.expr(clause.Cond)
		}
	}
	r.expr(c.Body)
	r.scopes.Pop()
}
