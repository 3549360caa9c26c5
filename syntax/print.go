// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

// This file defines the printer that turns a syntax tree back into
// Python source text. Parenthesized expressions and literal text
// recorded by the parser are reproduced as written; parentheses are
// inserted elsewhere only where operator precedence demands them, so
// that synthesized trees print as valid source.

import (
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
)

const indentUnit = "    "

// Format returns the source text of the file.
// Top-level definitions are separated by blank lines,
// and the text ends with a newline.
func Format(f *File) string {
	var p printer
	p.file(f)
	return p.buf.String()
}

// FormatStmt returns the source text of a single statement,
// terminated by a newline.
func FormatStmt(stmt Stmt) string {
	var p printer
	p.stmt(stmt)
	return p.buf.String()
}

// FormatExpr returns the source text of an expression.
func FormatExpr(x Expr) string {
	var p printer
	p.expr(x, precTuple)
	return p.buf.String()
}

// Fprint writes the source text of n, which must be a *File,
// a Stmt, or an Expr, to w.
func Fprint(w io.Writer, n Node) error {
	var s string
	switch n := n.(type) {
	case *File:
		s = Format(n)
	case Stmt:
		s = FormatStmt(n)
	case Expr:
		s = FormatExpr(n)
	default:
		return fmt.Errorf("cannot print %T", n)
	}
	_, err := io.WriteString(w, s)
	return err
}

// Operator precedence levels, lowest first.
const (
	precYield   = -2 // statement level and assignment right operands
	precTuple   = -1 // unparenthesized tuple
	precLambda  = 0
	precCond    = 1
	precOr      = 2
	precAnd     = 3
	precNot     = 4
	precCompare = 5
	precPipe    = 6
	precXor     = 7
	precAmp     = 8
	precShift   = 9
	precAdd     = 10
	precMul     = 11
	precUnary   = 12
	precPower   = 13
	precPrimary = 14
)

var binaryPrec = map[Token]int{
	OR:         precOr,
	AND:        precAnd,
	EQL:        precCompare,
	NEQ:        precCompare,
	LT:         precCompare,
	GT:         precCompare,
	LE:         precCompare,
	GE:         precCompare,
	IN:         precCompare,
	NOT_IN:     precCompare,
	IS:         precCompare,
	IS_NOT:     precCompare,
	PIPE:       precPipe,
	CIRCUMFLEX: precXor,
	AMP:        precAmp,
	LTLT:       precShift,
	GTGT:       precShift,
	PLUS:       precAdd,
	MINUS:      precAdd,
	STAR:       precMul,
	SLASH:      precMul,
	SLASHSLASH: precMul,
	PERCENT:    precMul,
	AT:         precMul,
	STARSTAR:   precPower,
	COLONEQ:    precLambda,
}

// exprPrec returns the precedence level of the outermost operator of x.
func exprPrec(x Expr) int {
	switch x := x.(type) {
	case *TupleExpr:
		if x.Lparen.IsValid() || len(x.List) == 0 {
			return precPrimary
		}
		return precTuple
	case *LambdaExpr:
		return precLambda
	case *CondExpr:
		return precCond
	case *BinaryExpr:
		if prec, ok := binaryPrec[x.Op]; ok {
			return prec
		}
		return precLambda // keyword argument k=v
	case *UnaryExpr:
		switch x.Op {
		case NOT:
			return precNot
		case STAR, STARSTAR:
			return precLambda
		case AWAIT:
			return precPower
		}
		return precUnary
	case *YieldExpr:
		return precYield
	}
	return precPrimary
}

type printer struct {
	buf   strings.Builder
	depth int
}

func (p *printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(&p.buf, format, args...)
}

func (p *printer) indent() {
	for i := 0; i < p.depth; i++ {
		p.buf.WriteString(indentUnit)
	}
}

func isDefinition(stmt Stmt) bool {
	switch stmt.(type) {
	case *DefStmt, *ClassStmt:
		return true
	}
	return false
}

func (p *printer) file(f *File) {
	for i, stmt := range f.Stmts {
		if i > 0 && (isDefinition(f.Stmts[i-1]) || isDefinition(stmt)) {
			p.buf.WriteByte('\n')
		}
		p.stmt(stmt)
	}
}

// suite prints an indented block; an empty block prints as pass.
func (p *printer) suite(stmts []Stmt) {
	p.depth++
	if len(stmts) == 0 {
		p.indent()
		p.buf.WriteString("pass\n")
	}
	for _, stmt := range stmts {
		p.stmt(stmt)
	}
	p.depth--
}

func (p *printer) stmt(stmt Stmt) {
	switch stmt := stmt.(type) {
	case *DefStmt:
		p.decorators(stmt.Decorators)
		p.indent()
		p.async(stmt.Async)
		p.printf("def %s(", stmt.Name.Name)
		p.params(stmt.Params)
		p.buf.WriteString(")")
		if stmt.Result != nil {
			p.buf.WriteString(" -> ")
			p.expr(stmt.Result, precLambda)
		}
		p.buf.WriteString(":\n")
		p.suite(stmt.Body)

	case *ClassStmt:
		p.decorators(stmt.Decorators)
		p.indent()
		p.printf("class %s", stmt.Name.Name)
		if len(stmt.Bases) > 0 || stmt.Lparen.IsValid() {
			p.buf.WriteByte('(')
			p.args(stmt.Bases)
			p.buf.WriteByte(')')
		}
		p.buf.WriteString(":\n")
		p.suite(stmt.Body)

	case *IfStmt:
		p.indent()
		p.buf.WriteString("if ")
		p.ifChain(stmt)

	case *ForStmt:
		p.indent()
		p.async(stmt.Async)
		p.buf.WriteString("for ")
		p.expr(stmt.Vars, precTuple)
		p.buf.WriteString(" in ")
		p.expr(stmt.X, precTuple)
		p.buf.WriteString(":\n")
		p.suite(stmt.Body)
		p.elseSuite(stmt.Else)

	case *WhileStmt:
		p.indent()
		p.buf.WriteString("while ")
		p.expr(stmt.Cond, precLambda)
		p.buf.WriteString(":\n")
		p.suite(stmt.Body)
		p.elseSuite(stmt.Else)

	case *WithStmt:
		p.indent()
		p.async(stmt.Async)
		p.buf.WriteString("with ")
		for i, item := range stmt.Items {
			if i > 0 {
				p.buf.WriteString(", ")
			}
			p.expr(item.X, precLambda)
			if item.As != nil {
				p.buf.WriteString(" as ")
				p.expr(item.As, precPrimary)
			}
		}
		p.buf.WriteString(":\n")
		p.suite(stmt.Body)

	case *TryStmt:
		p.indent()
		p.buf.WriteString("try:\n")
		p.suite(stmt.Body)
		for _, h := range stmt.Handlers {
			p.indent()
			p.buf.WriteString("except")
			if h.Type != nil {
				p.buf.WriteByte(' ')
				p.expr(h.Type, precLambda)
				if h.Name != nil {
					p.printf(" as %s", h.Name.Name)
				}
			}
			p.buf.WriteString(":\n")
			p.suite(h.Body)
		}
		p.elseSuite(stmt.Else)
		if stmt.Finally != nil {
			p.indent()
			p.buf.WriteString("finally:\n")
			p.suite(stmt.Finally)
		}

	default:
		p.indent()
		p.simpleStmt(stmt)
		p.buf.WriteByte('\n')
	}
}

func (p *printer) async(pos Position) {
	if pos.IsValid() {
		p.buf.WriteString("async ")
	}
}

func (p *printer) decorators(decorators []*Decorator) {
	for _, d := range decorators {
		p.indent()
		p.buf.WriteByte('@')
		p.expr(d.X, precLambda)
		p.buf.WriteByte('\n')
	}
}

// ifChain prints an if statement after its leading keyword.
// A false branch consisting of a single if statement prints as elif.
func (p *printer) ifChain(stmt *IfStmt) {
	p.expr(stmt.Cond, precLambda)
	p.buf.WriteString(":\n")
	p.suite(stmt.True)
	if len(stmt.False) == 1 {
		if elif, ok := stmt.False[0].(*IfStmt); ok {
			p.indent()
			p.buf.WriteString("elif ")
			p.ifChain(elif)
			return
		}
	}
	p.elseSuite(stmt.False)
}

func (p *printer) elseSuite(stmts []Stmt) {
	if stmts == nil {
		return
	}
	p.indent()
	p.buf.WriteString("else:\n")
	p.suite(stmts)
}

func (p *printer) simpleStmt(stmt Stmt) {
	switch stmt := stmt.(type) {
	case *ExprStmt:
		p.expr(stmt.X, precYield)

	case *AssignStmt:
		p.expr(stmt.LHS, precTuple)
		if stmt.Type != nil {
			p.buf.WriteString(": ")
			p.expr(stmt.Type, precLambda)
		}
		for _, target := range stmt.Chain {
			p.buf.WriteString(" = ")
			p.expr(target, precTuple)
		}
		if stmt.RHS != nil {
			p.printf(" %s ", stmt.Op)
			p.expr(stmt.RHS, precYield)
		}

	case *BranchStmt:
		p.buf.WriteString(stmt.Token.String())

	case *ReturnStmt:
		p.buf.WriteString("return")
		if stmt.Result != nil {
			p.buf.WriteByte(' ')
			p.expr(stmt.Result, precTuple)
		}

	case *ImportStmt:
		p.importStmt(stmt)

	case *AssertStmt:
		p.buf.WriteString("assert ")
		p.expr(stmt.Cond, precLambda)
		if stmt.Msg != nil {
			p.buf.WriteString(", ")
			p.expr(stmt.Msg, precLambda)
		}

	case *DelStmt:
		p.buf.WriteString("del ")
		p.expr(stmt.Targets, precTuple)

	case *RaiseStmt:
		p.buf.WriteString("raise")
		if stmt.X != nil {
			p.buf.WriteByte(' ')
			p.expr(stmt.X, precLambda)
			if stmt.Cause != nil {
				p.buf.WriteString(" from ")
				p.expr(stmt.Cause, precLambda)
			}
		}

	case *GlobalStmt:
		p.buf.WriteString(stmt.Token.String())
		for i, id := range stmt.Names {
			if i > 0 {
				p.buf.WriteByte(',')
			}
			p.buf.WriteByte(' ')
			p.buf.WriteString(id.Name)
		}

	default:
		panic(fmt.Sprintf("unexpected statement %T", stmt))
	}
}

func (p *printer) importStmt(stmt *ImportStmt) {
	if stmt.IsFrom() {
		p.buf.WriteString("from ")
		p.buf.WriteString(strings.Repeat(".", stmt.Level))
		p.dotted(stmt.Module)
		p.buf.WriteString(" import ")
		if stmt.Star {
			p.buf.WriteByte('*')
			return
		}
	} else {
		p.buf.WriteString("import ")
	}
	for i, name := range stmt.Names {
		if i > 0 {
			p.buf.WriteString(", ")
		}
		p.dotted(name.Path)
		if name.As != nil {
			p.printf(" as %s", name.As.Name)
		}
	}
}

func (p *printer) dotted(path []*Ident) {
	for i, id := range path {
		if i > 0 {
			p.buf.WriteByte('.')
		}
		p.buf.WriteString(id.Name)
	}
}

func (p *printer) params(params []*Param) {
	for i, param := range params {
		if i > 0 {
			p.buf.WriteString(", ")
		}
		if param.Star != 0 {
			p.buf.WriteString(param.Star.String())
		}
		if param.Name == nil {
			continue
		}
		p.buf.WriteString(param.Name.Name)
		if param.Type != nil {
			p.buf.WriteString(": ")
			p.expr(param.Type, precLambda)
		}
		if param.Default != nil {
			if param.Type != nil {
				p.buf.WriteString(" = ")
			} else {
				p.buf.WriteByte('=')
			}
			p.expr(param.Default, precLambda)
		}
	}
}

// args prints call arguments. Keyword arguments print as k=v,
// and a sole generator expression shares the call's parentheses.
func (p *printer) args(args []Expr) {
	if len(args) == 1 {
		if comp, ok := args[0].(*Comprehension); ok && comp.Kind == LPAREN {
			p.comprehensionBody(comp)
			return
		}
	}
	for i, arg := range args {
		if i > 0 {
			p.buf.WriteString(", ")
		}
		p.expr(arg, precLambda)
	}
}

func (p *printer) exprList(list []Expr) {
	for i, x := range list {
		if i > 0 {
			p.buf.WriteString(", ")
		}
		p.expr(x, precLambda)
	}
}

// expr prints x, parenthesizing it if its precedence is below prec.
func (p *printer) expr(x Expr, prec int) {
	if exprPrec(x) < prec {
		p.buf.WriteByte('(')
		p.expr(x, precYield)
		p.buf.WriteByte(')')
		return
	}

	switch x := x.(type) {
	case *Ident:
		p.buf.WriteString(x.Name)

	case *Literal:
		p.literal(x)

	case *ParenExpr:
		p.buf.WriteByte('(')
		p.expr(x.X, precYield)
		p.buf.WriteByte(')')

	case *TupleExpr:
		parens := x.Lparen.IsValid() || len(x.List) == 0
		if parens {
			p.buf.WriteByte('(')
		}
		p.exprList(x.List)
		if len(x.List) == 1 {
			p.buf.WriteByte(',')
		}
		if parens {
			p.buf.WriteByte(')')
		}

	case *ListExpr:
		p.buf.WriteByte('[')
		p.exprList(x.List)
		p.buf.WriteByte(']')

	case *SetExpr:
		p.buf.WriteByte('{')
		p.exprList(x.List)
		p.buf.WriteByte('}')

	case *DictExpr:
		p.buf.WriteByte('{')
		p.exprList(x.List)
		p.buf.WriteByte('}')

	case *DictEntry:
		p.expr(x.Key, precLambda)
		p.buf.WriteString(": ")
		p.expr(x.Value, precLambda)

	case *Comprehension:
		open, close := "[", "]"
		switch x.Kind {
		case LBRACE:
			open, close = "{", "}"
		case LPAREN:
			open, close = "(", ")"
		}
		p.buf.WriteString(open)
		p.comprehensionBody(x)
		p.buf.WriteString(close)

	case *DotExpr:
		p.expr(x.X, precPrimary)
		p.buf.WriteByte('.')
		p.buf.WriteString(x.Name.Name)

	case *CallExpr:
		p.expr(x.Fn, precPrimary)
		p.buf.WriteByte('(')
		p.args(x.Args)
		p.buf.WriteByte(')')

	case *IndexExpr:
		p.expr(x.X, precPrimary)
		p.buf.WriteByte('[')
		p.expr(x.Y, precTuple)
		p.buf.WriteByte(']')

	case *SliceExpr:
		p.expr(x.X, precPrimary)
		p.buf.WriteByte('[')
		p.slice(x.Lo, x.Hi, x.Step)
		p.buf.WriteByte(']')

	case *SliceItem:
		p.slice(x.Lo, x.Hi, x.Step)

	case *YieldExpr:
		p.buf.WriteString("yield")
		if x.From {
			p.buf.WriteString(" from ")
			p.expr(x.X, precLambda)
		} else if x.X != nil {
			p.buf.WriteByte(' ')
			p.expr(x.X, precTuple)
		}

	case *UnaryExpr:
		switch x.Op {
		case NOT:
			p.buf.WriteString("not ")
			p.expr(x.X, precNot)
		case STAR, STARSTAR:
			p.buf.WriteString(x.Op.String())
			p.expr(x.X, precPipe)
		case AWAIT:
			p.buf.WriteString("await ")
			p.expr(x.X, precPrimary)
		default:
			p.buf.WriteString(x.Op.String())
			p.expr(x.X, precUnary)
		}

	case *BinaryExpr:
		if x.Op == EQ {
			p.expr(x.X, precPrimary)
			p.buf.WriteByte('=')
			p.expr(x.Y, precLambda)
			return
		}
		prec := binaryPrec[x.Op]
		if x.Op == STARSTAR {
			// right associative, and the base is a primary
			p.expr(x.X, precPrimary)
			p.buf.WriteString(" ** ")
			p.expr(x.Y, precUnary)
			return
		}
		p.expr(x.X, prec)
		p.printf(" %s ", x.Op)
		p.expr(x.Y, prec+1)

	case *CondExpr:
		p.expr(x.True, precOr)
		p.buf.WriteString(" if ")
		p.expr(x.Cond, precOr)
		p.buf.WriteString(" else ")
		p.expr(x.False, precCond)

	case *LambdaExpr:
		p.buf.WriteString("lambda")
		if len(x.Params) > 0 {
			p.buf.WriteByte(' ')
			p.params(x.Params)
		}
		p.buf.WriteString(": ")
		p.expr(x.Body, precLambda)

	default:
		panic(fmt.Sprintf("unexpected expression %T", x))
	}
}

// slice prints lo:hi[:step], omitting absent operands.
func (p *printer) slice(lo, hi, step Expr) {
	if lo != nil {
		p.expr(lo, precLambda)
	}
	p.buf.WriteByte(':')
	if hi != nil {
		p.expr(hi, precLambda)
	}
	if step != nil {
		p.buf.WriteByte(':')
		p.expr(step, precLambda)
	}
}

func (p *printer) comprehensionBody(x *Comprehension) {
	p.expr(x.Body, precLambda)
	for _, clause := range x.Clauses {
		switch clause := clause.(type) {
		case *ForClause:
			p.buf.WriteByte(' ')
			p.async(clause.Async)
			p.buf.WriteString("for ")
			p.expr(clause.Vars, precTuple)
			p.buf.WriteString(" in ")
			p.expr(clause.X, precOr)
		case *IfClause:
			p.buf.WriteString(" if ")
			p.expr(clause.Cond, precOr)
		}
	}
}

// literal prints the literal's source text, or for a synthesized
// literal without one, a canonical rendering of its value.
func (p *printer) literal(x *Literal) {
	if x.Raw != "" {
		// Replacement fields print from their trees,
		// so renamed references inside them take effect.
		last := 0
		for _, field := range x.Fields {
			p.buf.WriteString(x.Raw[last:field.Start])
			p.expr(field.X, precTuple)
			last = field.End
		}
		p.buf.WriteString(x.Raw[last:])
		return
	}
	switch v := x.Value.(type) {
	case string:
		p.buf.WriteString(Quote(v, x.Token == BYTES))
	case int:
		p.buf.WriteString(strconv.Itoa(v))
	case int64:
		p.buf.WriteString(strconv.FormatInt(v, 10))
	case *big.Int:
		p.buf.WriteString(v.String())
	case float64:
		p.buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	default:
		if x.Token == ELLIPSIS {
			p.buf.WriteString("...")
			return
		}
		panic(fmt.Sprintf("unexpected literal value %T", v))
	}
}
