// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package syntax provides a parser, abstract syntax tree and printer
// for the subset of Python used by generated circuit programs.
package syntax

// A Node is a node in a Python syntax tree.
type Node interface {
	// Span returns the start and end position of the expression.
	Span() (start, end Position)
}

// Start returns the start position of the expression.
func Start(n Node) Position {
	start, _ := n.Span()
	return start
}

// End returns the end position of the expression.
func End(n Node) Position {
	_, end := n.Span()
	return end
}

// A File represents a Python file.
type File struct {
	Path  string
	Stmts []Stmt
}

func (x *File) Span() (start, end Position) {
	if len(x.Stmts) == 0 {
		return
	}
	start, _ = x.Stmts[0].Span()
	_, end = x.Stmts[len(x.Stmts)-1].Span()
	return start, end
}

// A Stmt is a Python statement.
type Stmt interface {
	Node
	stmt()
}

func (*AssertStmt) stmt() {}
func (*AssignStmt) stmt() {}
func (*BranchStmt) stmt() {}
func (*ClassStmt) stmt()  {}
func (*DefStmt) stmt()    {}
func (*DelStmt) stmt()    {}
func (*ExprStmt) stmt()   {}
func (*ForStmt) stmt()    {}
func (*GlobalStmt) stmt() {}
func (*IfStmt) stmt()     {}
func (*ImportStmt) stmt() {}
func (*RaiseStmt) stmt()  {}
func (*ReturnStmt) stmt() {}
func (*TryStmt) stmt()    {}
func (*WhileStmt) stmt()  {}
func (*WithStmt) stmt()   {}

// bodyEnd returns the end of the last statement of a non-empty body.
func bodyEnd(body []Stmt) Position {
	_, end := body[len(body)-1].Span()
	return end
}

// An AssignStmt represents an assignment:
//
//	x = 0
//	x, y = y, x
//	x += 1
//	x: int = 1
//	a = b = c
type AssignStmt struct {
	OpPos Position
	Op    Token // = EQ | {PLUS,MINUS,STAR,...}_EQ
	LHS   Expr
	Type  Expr   // annotation of x: T = v; may be nil
	Chain []Expr // further targets of a chained assignment a = b = c
	RHS   Expr   // nil for a bare annotation x: T
}

func (x *AssignStmt) Span() (start, end Position) {
	start, _ = x.LHS.Span()
	switch {
	case x.RHS != nil:
		_, end = x.RHS.Span()
	case x.Type != nil:
		_, end = x.Type.Span()
	default:
		_, end = x.LHS.Span()
	}
	return
}

// A Param is a formal parameter of a function or lambda:
//
//	name
//	name: Type
//	name: Type = default
//	*args, **kwargs, bare * and /
type Param struct {
	StarPos Position
	Star    Token  // 0 | STAR | STARSTAR | SLASH
	Name    *Ident // nil for a bare * or /
	Type    Expr   // annotation; may be nil
	Default Expr   // may be nil
}

func (x *Param) Span() (start, end Position) {
	if x.Star != 0 {
		start = x.StarPos
		end = x.StarPos.add(x.Star.String())
	} else {
		start = x.Name.NamePos
	}
	switch {
	case x.Default != nil:
		_, end = x.Default.Span()
	case x.Type != nil:
		_, end = x.Type.Span()
	case x.Name != nil:
		_, end = x.Name.Span()
	}
	return
}

// A Decorator is an @expression preceding a def or class.
type Decorator struct {
	At Position
	X  Expr
}

func (x *Decorator) Span() (start, end Position) {
	_, end = x.X.Span()
	return x.At, end
}

// A DefStmt represents a function definition.
type DefStmt struct {
	Decorators []*Decorator
	Async      Position // position of async keyword; invalid for a plain def
	Def        Position
	Name       *Ident
	Lparen     Position
	Params     []*Param
	Rparen     Position
	Result     Expr // return annotation after ->; may be nil
	Body       []Stmt
}

func (x *DefStmt) Span() (start, end Position) {
	start = x.Def
	if x.Async.IsValid() {
		start = x.Async
	}
	if len(x.Decorators) > 0 {
		start = x.Decorators[0].At
	}
	return start, bodyEnd(x.Body)
}

// A ClassStmt represents a class definition.
type ClassStmt struct {
	Decorators []*Decorator
	Class      Position
	Name       *Ident
	Lparen     Position // invalid if there is no base list
	Bases      []Expr   // base classes and keyword arguments, as in CallExpr.Args
	Rparen     Position
	Body       []Stmt
}

func (x *ClassStmt) Span() (start, end Position) {
	start = x.Class
	if len(x.Decorators) > 0 {
		start = x.Decorators[0].At
	}
	return start, bodyEnd(x.Body)
}

// An ExprStmt is an expression evaluated for side effects.
type ExprStmt struct {
	X Expr
}

func (x *ExprStmt) Span() (start, end Position) {
	return x.X.Span()
}

// An IfStmt is a conditional: If Cond: True; else: False.
// 'elseif' is desugared into a chain of IfStmts.
type IfStmt struct {
	If      Position // IF or ELIF
	Cond    Expr
	True    []Stmt
	ElsePos Position // ELSE or ELIF
	False   []Stmt   // optional
}

func (x *IfStmt) Span() (start, end Position) {
	body := x.False
	if body == nil {
		body = x.True
	}
	return x.If, bodyEnd(body)
}

// An ImportStmt represents either form of import:
//
//	import a.b as c, d
//	from ..m import x as y, z
//	from m import *
type ImportStmt struct {
	From   Position      // position of FROM; invalid for a plain import
	Level  int           // number of leading dots of a relative from-import
	Module []*Ident      // dotted module name of a from-import; may be empty if Level > 0
	Import Position      // position of IMPORT
	Names  []*ImportName // imported names; empty for a star import
	Star   bool          // from m import *
	End    Position      // end of the statement
}

// IsFrom reports whether x is a from-import.
func (x *ImportStmt) IsFrom() bool { return x.From.IsValid() }

func (x *ImportStmt) Span() (start, end Position) {
	start = x.Import
	if x.IsFrom() {
		start = x.From
	}
	return start, x.End
}

// BoundNames returns the names bound in the importing scope.
func (x *ImportStmt) BoundNames() []string {
	var names []string
	for _, name := range x.Names {
		switch {
		case name.As != nil:
			names = append(names, name.As.Name)
		case len(name.Path) > 0:
			names = append(names, name.Path[0].Name)
		}
	}
	return names
}

// An ImportName is one imported item: a dotted path and optional alias.
// Within a from-import, the path has exactly one element.
type ImportName struct {
	Path []*Ident
	As   *Ident // may be nil
}

func (x *ImportName) Span() (start, end Position) {
	start, _ = x.Path[0].Span()
	if x.As != nil {
		_, end = x.As.Span()
	} else {
		_, end = x.Path[len(x.Path)-1].Span()
	}
	return
}

// A BranchStmt changes the flow of control: break, continue, pass.
type BranchStmt struct {
	Token    Token // = BREAK | CONTINUE | PASS
	TokenPos Position
}

func (x *BranchStmt) Span() (start, end Position) {
	return x.TokenPos, x.TokenPos.add(x.Token.String())
}

// A ReturnStmt returns from a function.
type ReturnStmt struct {
	Return Position
	Result Expr // may be nil
}

func (x *ReturnStmt) Span() (start, end Position) {
	if x.Result == nil {
		return x.Return, x.Return.add("return")
	}
	_, end = x.Result.Span()
	return x.Return, end
}

// A ForStmt represents a loop: [async] for Vars in X: Body [else: Else].
type ForStmt struct {
	Async Position // optional
	For   Position
	Vars  Expr // name, or tuple of names
	X     Expr
	Body  []Stmt
	Else  []Stmt // optional
}

func (x *ForStmt) Span() (start, end Position) {
	start = x.For
	if x.Async.IsValid() {
		start = x.Async
	}
	if len(x.Else) > 0 {
		return start, bodyEnd(x.Else)
	}
	return start, bodyEnd(x.Body)
}

// A WhileStmt represents a while loop: while Cond: Body [else: Else].
type WhileStmt struct {
	While Position
	Cond  Expr
	Body  []Stmt
	Else  []Stmt // optional
}

func (x *WhileStmt) Span() (start, end Position) {
	if len(x.Else) > 0 {
		return x.While, bodyEnd(x.Else)
	}
	return x.While, bodyEnd(x.Body)
}

// A WithStmt represents a with statement: [async] with X as Y, ...: Body.
type WithStmt struct {
	Async Position // optional
	With  Position
	Items []*WithItem
	Body  []Stmt
}

func (x *WithStmt) Span() (start, end Position) {
	if x.Async.IsValid() {
		return x.Async, bodyEnd(x.Body)
	}
	return x.With, bodyEnd(x.Body)
}

// A WithItem is one context manager of a WithStmt.
type WithItem struct {
	X  Expr
	As Expr // target; may be nil
}

func (x *WithItem) Span() (start, end Position) {
	start, end = x.X.Span()
	if x.As != nil {
		_, end = x.As.Span()
	}
	return
}

// A TryStmt represents try/except/else/finally.
type TryStmt struct {
	Try      Position
	Body     []Stmt
	Handlers []*ExceptClause
	Else     []Stmt // optional
	Finally  []Stmt // optional
}

func (x *TryStmt) Span() (start, end Position) {
	switch {
	case len(x.Finally) > 0:
		end = bodyEnd(x.Finally)
	case len(x.Else) > 0:
		end = bodyEnd(x.Else)
	case len(x.Handlers) > 0:
		_, end = x.Handlers[len(x.Handlers)-1].Span()
	default:
		end = bodyEnd(x.Body)
	}
	return x.Try, end
}

// An ExceptClause is one handler of a TryStmt: except Type as Name: Body.
type ExceptClause struct {
	Except Position
	Type   Expr   // may be nil
	Name   *Ident // may be nil
	Body   []Stmt
}

func (x *ExceptClause) Span() (start, end Position) {
	return x.Except, bodyEnd(x.Body)
}

// An AssertStmt represents assert Cond [, Msg].
type AssertStmt struct {
	Assert Position
	Cond   Expr
	Msg    Expr // may be nil
}

func (x *AssertStmt) Span() (start, end Position) {
	if x.Msg != nil {
		_, end = x.Msg.Span()
	} else {
		_, end = x.Cond.Span()
	}
	return x.Assert, end
}

// A DelStmt represents del Targets.
type DelStmt struct {
	Del     Position
	Targets Expr // name, tuple, index or dot expression
}

func (x *DelStmt) Span() (start, end Position) {
	_, end = x.Targets.Span()
	return x.Del, end
}

// A RaiseStmt represents raise [X [from Cause]].
type RaiseStmt struct {
	Raise Position
	X     Expr // may be nil
	Cause Expr // may be nil
}

func (x *RaiseStmt) Span() (start, end Position) {
	switch {
	case x.Cause != nil:
		_, end = x.Cause.Span()
	case x.X != nil:
		_, end = x.X.Span()
	default:
		end = x.Raise.add("raise")
	}
	return x.Raise, end
}

// A GlobalStmt represents global or nonlocal declarations.
type GlobalStmt struct {
	Token    Token // = GLOBAL | NONLOCAL
	TokenPos Position
	Names    []*Ident
}

func (x *GlobalStmt) Span() (start, end Position) {
	_, end = x.Names[len(x.Names)-1].Span()
	return x.TokenPos, end
}

// An Expr is a Python expression.
type Expr interface {
	Node
	expr()
}

func (*BinaryExpr) expr()    {}
func (*CallExpr) expr()      {}
func (*Comprehension) expr() {}
func (*CondExpr) expr()      {}
func (*DictEntry) expr()     {}
func (*DictExpr) expr()      {}
func (*DotExpr) expr()       {}
func (*Ident) expr()         {}
func (*IndexExpr) expr()     {}
func (*LambdaExpr) expr()    {}
func (*ListExpr) expr()      {}
func (*Literal) expr()       {}
func (*ParenExpr) expr()     {}
func (*SetExpr) expr()       {}
func (*SliceExpr) expr()     {}
func (*SliceItem) expr()     {}
func (*TupleExpr) expr()     {}
func (*UnaryExpr) expr()     {}
func (*YieldExpr) expr()     {}

// An Ident represents an identifier.
type Ident struct {
	NamePos Position
	Name    string
}

func (x *Ident) Span() (start, end Position) {
	return x.NamePos, x.NamePos.add(x.Name)
}

// A Literal represents a literal string, bytes, number or ellipsis.
//
// For an f-string, Value holds the text with replacement fields
// undecoded, and Fields holds the parsed fields in order.
type Literal struct {
	Token    Token // = STRING | BYTES | INT | FLOAT | IMAG | ELLIPSIS
	TokenPos Position
	Raw      string      // uninterpreted text
	Value    interface{} // = string | int64 | *big.Int | float64 | nil
	Fields   []*Field
}

// A Field is a replacement field of an f-string. Start and End are
// the byte offsets of the expression's text within the literal's Raw
// text; a conversion, format spec or = suffix lies outside them.
type Field struct {
	Start, End int
	X          Expr
}

func (x *Literal) Span() (start, end Position) {
	return x.TokenPos, x.TokenPos.add(x.Raw)
}

// A ParenExpr represents a parenthesized expression: (X).
type ParenExpr struct {
	Lparen Position
	X      Expr
	Rparen Position
}

func (x *ParenExpr) Span() (start, end Position) {
	return x.Lparen, x.Rparen.add(")")
}

// A CallExpr represents a function call expression: Fn(Args).
// Keyword arguments are BinaryExprs with Op EQ;
// *args and **kwargs are UnaryExprs.
type CallExpr struct {
	Fn     Expr
	Lparen Position
	Args   []Expr
	Rparen Position
}

func (x *CallExpr) Span() (start, end Position) {
	start, _ = x.Fn.Span()
	return start, x.Rparen.add(")")
}

// A DotExpr represents a field or method selector: X.Name.
type DotExpr struct {
	X    Expr
	Dot  Position
	Name *Ident
}

func (x *DotExpr) Span() (start, end Position) {
	start, _ = x.X.Span()
	_, end = x.Name.Span()
	return
}

// A Comprehension represents a list, set or dict comprehension, or a
// generator expression:
//
//	[Body for ... if ...]
//	{Body for ... if ...}
//	(Body for ... if ...)
//
// A generator expression that is the sole argument of a call shares
// the call's parentheses; Lbrack and Rbrack are then those of the call.
type Comprehension struct {
	Kind    Token // = LBRACK | LBRACE | LPAREN
	Lbrack  Position
	Body    Expr // *DictEntry for a dict comprehension
	Clauses []Node // = *ForClause | *IfClause
	Rbrack  Position
}

func (x *Comprehension) Span() (start, end Position) {
	return x.Lbrack, x.Rbrack.add("]")
}

// A ForClause represents a for clause in a comprehension: [async] for Vars in X.
type ForClause struct {
	Async Position // optional
	For   Position
	Vars  Expr // name, or tuple of names
	In    Position
	X     Expr
}

func (x *ForClause) Span() (start, end Position) {
	_, end = x.X.Span()
	if x.Async.IsValid() {
		return x.Async, end
	}
	return x.For, end
}

// An IfClause represents an if clause in a comprehension: if Cond.
type IfClause struct {
	If   Position
	Cond Expr
}

func (x *IfClause) Span() (start, end Position) {
	_, end = x.Cond.Span()
	return x.If, end
}

// A DictExpr represents a dictionary literal: { List }.
type DictExpr struct {
	Lbrace Position
	List   []Expr // all *DictEntrys, or **x UnaryExprs
	Rbrace Position
}

func (x *DictExpr) Span() (start, end Position) {
	return x.Lbrace, x.Rbrace.add("}")
}

// A DictEntry represents a dictionary entry: Key: Value.
// Used only within a DictExpr or dict Comprehension.
type DictEntry struct {
	Key   Expr
	Colon Position
	Value Expr
}

func (x *DictEntry) Span() (start, end Position) {
	start, _ = x.Key.Span()
	_, end = x.Value.Span()
	return start, end
}

// A SetExpr represents a set literal: { List }.
type SetExpr struct {
	Lbrace Position
	List   []Expr
	Rbrace Position
}

func (x *SetExpr) Span() (start, end Position) {
	return x.Lbrace, x.Rbrace.add("}")
}

// A LambdaExpr represents an inline function abstraction.
type LambdaExpr struct {
	Lambda Position
	Params []*Param // no annotations
	Body   Expr
}

func (x *LambdaExpr) Span() (start, end Position) {
	_, end = x.Body.Span()
	return x.Lambda, end
}

// A ListExpr represents a list literal: [ List ].
type ListExpr struct {
	Lbrack Position
	List   []Expr
	Rbrack Position
}

func (x *ListExpr) Span() (start, end Position) {
	return x.Lbrack, x.Rbrack.add("]")
}

// CondExpr represents the conditional: X if COND else ELSE.
type CondExpr struct {
	If      Position
	Cond    Expr
	True    Expr
	ElsePos Position
	False   Expr
}

func (x *CondExpr) Span() (start, end Position) {
	start, _ = x.True.Span()
	_, end = x.False.Span()
	return start, end
}

// A TupleExpr represents a tuple literal: (List).
type TupleExpr struct {
	Lparen Position // optional (e.g. in x, y = 0, 1), but required if List is empty
	List   []Expr
	Rparen Position
}

func (x *TupleExpr) Span() (start, end Position) {
	if x.Lparen.IsValid() {
		return x.Lparen, x.Rparen
	} else {
		return Start(x.List[0]), End(x.List[len(x.List)-1])
	}
}

// A UnaryExpr represents a unary expression: Op X.
//
// As a special case, UnaryOp{Op:Star} may also represent
// the star parameter in f(*args), a starred target or element
// in [*a], and ** in f(**kwargs) or {**d}.
type UnaryExpr struct {
	OpPos Position
	Op    Token
	X     Expr
}

func (x *UnaryExpr) Span() (start, end Position) {
	_, end = x.X.Span()
	return x.OpPos, end
}

// A BinaryExpr represents a binary expression: X Op Y.
//
// As a special case, BinaryExpr{Op:EQ} may also
// represent a named argument in a call f(k=v).
type BinaryExpr struct {
	X     Expr
	OpPos Position
	Op    Token
	Y     Expr
}

func (x *BinaryExpr) Span() (start, end Position) {
	start, _ = x.X.Span()
	_, end = x.Y.Span()
	return start, end
}

// A SliceExpr represents a slice or substring expression: X[Lo:Hi:Step].
type SliceExpr struct {
	X            Expr
	Lbrack       Position
	Lo, Hi, Step Expr // all optional
	Rbrack       Position
}

func (x *SliceExpr) Span() (start, end Position) {
	start, _ = x.X.Span()
	return start, x.Rbrack
}

// A SliceItem is a slice within a subscript list, as in a[1:2, ::3].
// A subscript with a single slice is a SliceExpr instead.
type SliceItem struct {
	Lo       Expr // optional
	Colon    Position
	Hi, Step Expr // optional
}

func (x *SliceItem) Span() (start, end Position) {
	start, end = x.Colon, x.Colon.add(":")
	if x.Lo != nil {
		start = Start(x.Lo)
	}
	if x.Step != nil {
		end = End(x.Step)
	} else if x.Hi != nil {
		end = End(x.Hi)
	}
	return start, end
}

// A YieldExpr represents yield X, or yield from X when From is set.
type YieldExpr struct {
	Yield Position
	From  bool
	X     Expr // may be nil for a bare yield
}

func (x *YieldExpr) Span() (start, end Position) {
	if x.X == nil {
		return x.Yield, x.Yield.add("yield")
	}
	return x.Yield, End(x.X)
}

// An IndexExpr represents an index expression: X[Y].
// A subscript list such as array[qubit, 3] is an unparenthesized TupleExpr.
type IndexExpr struct {
	X      Expr
	Lbrack Position
	Y      Expr
	Rbrack Position
}

func (x *IndexExpr) Span() (start, end Position) {
	start, _ = x.X.Span()
	return start, x.Rbrack
}
