// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

// This file defines a recursive-descent parser for the Python subset.
// The LL(1) grammar is a simplification of the Python 3 grammar.

// A Mode value is a set of flags (or 0) that controls optional parser functionality.
type Mode uint

// Parse parses the input data and returns the corresponding parse tree.
//
// If src != nil, Parse parses the source from src and the filename
// is only used when recording position information.
// The type of the argument for the src parameter must be string,
// []byte, or io.Reader.
// If src == nil, Parse parses the file specified by filename.
func Parse(filename string, src interface{}, mode Mode) (f *File, err error) {
	in, err := newScanner(filename, src)
	if err != nil {
		return nil, err
	}
	p := parser{in: in}
	defer p.in.recover(&err)

	p.nextToken() // read first lookahead token
	f = p.parseFile()
	if f != nil {
		f.Path = filename
	}
	return f, nil
}

// ParseCompoundStmt parses a single compound statement:
// a blank line, a def, class, for, while, with, try, or if statement,
// or a semicolon-separated list of simple statements followed
// by a newline. These are the units on which the REPL operates.
// ParseCompoundStmt does not consume any following input.
// The parser calls the readline function each
// time it needs a new line of input.
func ParseCompoundStmt(filename string, readline func() ([]byte, error)) (f *File, err error) {
	in, err := newScanner(filename, readline)
	if err != nil {
		return nil, err
	}

	p := parser{in: in}
	defer p.in.recover(&err)

	p.nextToken() // read first lookahead token

	var stmts []Stmt
	switch p.tok {
	case DEF, CLASS, IF, FOR, WHILE, WITH, TRY, AT, ASYNC:
		stmts = p.parseStmt(stmts)
	case NEWLINE:
		// blank line
	default:
		stmts = p.parseSimpleStmt(stmts, false)
		// Require but don't consume newline, to avoid blocking again.
		if p.tok != NEWLINE {
			p.in.errorf(p.in.pos, "invalid syntax")
		}
	}

	return &File{Path: filename, Stmts: stmts}, nil
}

// ParseExpr parses a Python expression.
// A comma-separated list of expressions is parsed as a tuple.
// See Parse for explanation of parameters.
func ParseExpr(filename string, src interface{}, mode Mode) (expr Expr, err error) {
	in, err := newScanner(filename, src)
	if err != nil {
		return nil, err
	}
	p := parser{in: in}
	defer p.in.recover(&err)

	p.nextToken() // read first lookahead token

	// Use parseExpr, not parseTest, to permit an unparenthesized tuple.
	expr = p.parseExpr(false)

	// A following newline (e.g. "f()\n") appears outside any brackets,
	// on a non-blank line, and thus results in a NEWLINE token.
	if p.tok == NEWLINE {
		p.nextToken()
	}

	if p.tok != EOF {
		p.in.errorf(p.in.pos, "got %#v after expression, want EOF", p.tok)
	}
	return expr, nil
}

type parser struct {
	in     *scanner
	tok    Token
	tokval tokenValue
}

// nextToken advances the scanner and returns the position of the
// previous token.
func (p *parser) nextToken() Position {
	oldpos := p.tokval.pos
	p.tok = p.in.nextToken(&p.tokval)
	return oldpos
}

// file_input = (NEWLINE | stmt)* EOF
func (p *parser) parseFile() *File {
	var stmts []Stmt
	for p.tok != EOF {
		if p.tok == NEWLINE {
			p.nextToken()
			continue
		}
		stmts = p.parseStmt(stmts)
	}
	return &File{Stmts: stmts}
}

func (p *parser) parseStmt(stmts []Stmt) []Stmt {
	switch p.tok {
	case AT:
		return append(stmts, p.parseDecorated())
	case DEF:
		return append(stmts, p.parseDefStmt(nil))
	case CLASS:
		return append(stmts, p.parseClassStmt(nil))
	case IF:
		return append(stmts, p.parseIfStmt())
	case FOR:
		return append(stmts, p.parseForStmt())
	case WHILE:
		return append(stmts, p.parseWhileStmt())
	case WITH:
		return append(stmts, p.parseWithStmt())
	case TRY:
		return append(stmts, p.parseTryStmt())
	case ASYNC:
		return append(stmts, p.parseAsyncStmt(nil))
	}
	return p.parseSimpleStmt(stmts, true)
}

// decorated = ('@' test NEWLINE)+ (['async'] def_stmt | class_stmt)
func (p *parser) parseDecorated() Stmt {
	var decorators []*Decorator
	for p.tok == AT {
		at := p.nextToken()
		x := p.parseTest()
		p.consume(NEWLINE)
		decorators = append(decorators, &Decorator{At: at, X: x})
	}
	switch p.tok {
	case DEF:
		return p.parseDefStmt(decorators)
	case CLASS:
		return p.parseClassStmt(decorators)
	case ASYNC:
		return p.parseAsyncStmt(decorators)
	}
	p.in.errorf(p.in.pos, "got %#v after decorator, want def or class", p.tok)
	panic("unreachable")
}

// async_stmt = 'async' (def_stmt | for_stmt | with_stmt)
//
// Only a def may follow decorators.
func (p *parser) parseAsyncStmt(decorators []*Decorator) Stmt {
	async := p.nextToken() // consume ASYNC
	switch {
	case p.tok == DEF:
		stmt := p.parseDefStmt(decorators).(*DefStmt)
		stmt.Async = async
		return stmt
	case p.tok == FOR && decorators == nil:
		stmt := p.parseForStmt().(*ForStmt)
		stmt.Async = async
		return stmt
	case p.tok == WITH && decorators == nil:
		stmt := p.parseWithStmt().(*WithStmt)
		stmt.Async = async
		return stmt
	}
	p.in.errorf(p.in.pos, "got %#v after async, want def, for, or with", p.tok)
	panic("unreachable")
}

// def_stmt = 'def' IDENT '(' params ')' ['->' test] ':' suite
func (p *parser) parseDefStmt(decorators []*Decorator) Stmt {
	defpos := p.nextToken() // consume DEF
	id := p.parseIdent()
	lparen := p.consume(LPAREN)
	params := p.parseParams(true, RPAREN)
	rparen := p.consume(RPAREN)
	var result Expr
	if p.tok == ARROW {
		p.nextToken()
		result = p.parseTest()
	}
	p.consume(COLON)
	body := p.parseSuite()
	return &DefStmt{
		Decorators: decorators,
		Def:        defpos,
		Name:       id,
		Lparen:     lparen,
		Params:     params,
		Rparen:     rparen,
		Result:     result,
		Body:       body,
	}
}

// class_stmt = 'class' IDENT ['(' args ')'] ':' suite
func (p *parser) parseClassStmt(decorators []*Decorator) Stmt {
	classpos := p.nextToken() // consume CLASS
	id := p.parseIdent()
	stmt := &ClassStmt{Decorators: decorators, Class: classpos, Name: id}
	if p.tok == LPAREN {
		stmt.Lparen = p.nextToken()
		if p.tok != RPAREN {
			stmt.Bases = p.parseArgs()
		}
		stmt.Rparen = p.consume(RPAREN)
	}
	p.consume(COLON)
	stmt.Body = p.parseSuite()
	return stmt
}

// if_stmt = 'if' test ':' suite ('elif' test ':' suite)* ('else' ':' suite)?
func (p *parser) parseIfStmt() Stmt {
	ifpos := p.nextToken() // consume IF
	cond := p.parseTest()
	p.consume(COLON)
	body := p.parseSuite()
	ifStmt := &IfStmt{
		If:   ifpos,
		Cond: cond,
		True: body,
	}
	tail := ifStmt
	for p.tok == ELIF {
		elifpos := p.nextToken() // consume ELIF
		cond := p.parseTest()
		p.consume(COLON)
		body := p.parseSuite()
		elif := &IfStmt{
			If:   elifpos,
			Cond: cond,
			True: body,
		}
		tail.ElsePos = elifpos
		tail.False = []Stmt{elif}
		tail = elif
	}
	if p.tok == ELSE {
		tail.ElsePos = p.nextToken() // consume ELSE
		p.consume(COLON)
		tail.False = p.parseSuite()
	}
	return ifStmt
}

// for_stmt = 'for' loopvars 'in' expr ':' suite ['else' ':' suite]
func (p *parser) parseForStmt() Stmt {
	forpos := p.nextToken() // consume FOR
	vars := p.parseForLoopVariables()
	p.consume(IN)
	x := p.parseExpr(false)
	p.consume(COLON)
	body := p.parseSuite()
	return &ForStmt{
		For:  forpos,
		Vars: vars,
		X:    x,
		Body: body,
		Else: p.parseElse(),
	}
}

// while_stmt = 'while' test ':' suite ['else' ':' suite]
func (p *parser) parseWhileStmt() Stmt {
	whilepos := p.nextToken() // consume WHILE
	cond := p.parseTest()
	p.consume(COLON)
	body := p.parseSuite()
	return &WhileStmt{
		While: whilepos,
		Cond:  cond,
		Body:  body,
		Else:  p.parseElse(),
	}
}

// parseElse parses an optional loop or try else clause.
func (p *parser) parseElse() []Stmt {
	if p.tok != ELSE {
		return nil
	}
	p.nextToken() // consume ELSE
	p.consume(COLON)
	return p.parseSuite()
}

// with_stmt = 'with' with_item (',' with_item)* ':' suite
// with_item = test ['as' primary_with_suffix]
func (p *parser) parseWithStmt() Stmt {
	withpos := p.nextToken() // consume WITH
	var items []*WithItem
	for {
		item := &WithItem{X: p.parseTest()}
		if p.tok == AS {
			p.nextToken()
			item.As = p.parsePrimaryWithSuffix()
		}
		items = append(items, item)
		if p.tok != COMMA {
			break
		}
		p.nextToken()
	}
	p.consume(COLON)
	return &WithStmt{With: withpos, Items: items, Body: p.parseSuite()}
}

// try_stmt = 'try' ':' suite (except_clause ':' suite)+ ['else' ':' suite] ['finally' ':' suite]
//          | 'try' ':' suite 'finally' ':' suite
func (p *parser) parseTryStmt() Stmt {
	trypos := p.nextToken() // consume TRY
	p.consume(COLON)
	stmt := &TryStmt{Try: trypos, Body: p.parseSuite()}
	for p.tok == EXCEPT {
		clause := &ExceptClause{Except: p.nextToken()}
		if p.tok != COLON {
			clause.Type = p.parseTest()
			if p.tok == AS {
				p.nextToken()
				clause.Name = p.parseIdent()
			}
		}
		p.consume(COLON)
		clause.Body = p.parseSuite()
		stmt.Handlers = append(stmt.Handlers, clause)
	}
	if len(stmt.Handlers) > 0 {
		stmt.Else = p.parseElse()
	}
	if p.tok == FINALLY {
		p.nextToken()
		p.consume(COLON)
		stmt.Finally = p.parseSuite()
	}
	if len(stmt.Handlers) == 0 && stmt.Finally == nil {
		p.in.errorf(p.in.pos, "try statement needs an except or finally clause")
	}
	return stmt
}

// suite = simple_stmt | NEWLINE INDENT stmt+ OUTDENT
func (p *parser) parseSuite() []Stmt {
	if p.tok == NEWLINE {
		p.nextToken() // consume NEWLINE
		p.consume(INDENT)
		var stmts []Stmt
		for p.tok != OUTDENT && p.tok != EOF {
			stmts = p.parseStmt(stmts)
		}
		p.consume(OUTDENT)
		return stmts
	}

	return p.parseSimpleStmt(nil, true)
}

// simple_stmt = small_stmt (';' small_stmt)* ';'? NEWLINE
// In REPL mode, it does not consume the NEWLINE.
func (p *parser) parseSimpleStmt(stmts []Stmt, consumeNL bool) []Stmt {
	for {
		stmts = append(stmts, p.parseSmallStmt())
		if p.tok != SEMI {
			break
		}
		p.nextToken() // consume SEMI
		if p.tok == NEWLINE || p.tok == EOF {
			break
		}
	}
	// EOF without NEWLINE occurs in `if x: pass`, for example.
	if p.tok != EOF && consumeNL {
		p.consume(NEWLINE)
	}

	return stmts
}

// small_stmt = RETURN expr?
//            | PASS | BREAK | CONTINUE
//            | IMPORT ... | FROM ...
//            | ASSERT test [',' test]
//            | DEL exprs
//            | RAISE [test ['from' test]]
//            | GLOBAL IDENT (',' IDENT)* | NONLOCAL ...
//            | expr ('=' | augop) expr     // assignment
//            | expr ':' test ['=' expr]    // annotated assignment
//            | expr
func (p *parser) parseSmallStmt() Stmt {
	switch p.tok {
	case RETURN:
		pos := p.nextToken() // consume RETURN
		var result Expr
		if p.tok != EOF && p.tok != NEWLINE && p.tok != SEMI {
			result = p.parseExpr(false)
		}
		return &ReturnStmt{Return: pos, Result: result}

	case BREAK, CONTINUE, PASS:
		tok := p.tok
		pos := p.nextToken() // consume it
		return &BranchStmt{Token: tok, TokenPos: pos}

	case IMPORT:
		return p.parseImportStmt()

	case FROM:
		return p.parseFromImportStmt()

	case ASSERT:
		pos := p.nextToken()
		stmt := &AssertStmt{Assert: pos, Cond: p.parseTest()}
		if p.tok == COMMA {
			p.nextToken()
			stmt.Msg = p.parseTest()
		}
		return stmt

	case DEL:
		pos := p.nextToken()
		return &DelStmt{Del: pos, Targets: p.parseExpr(false)}

	case RAISE:
		pos := p.nextToken()
		stmt := &RaiseStmt{Raise: pos}
		if p.tok != EOF && p.tok != NEWLINE && p.tok != SEMI {
			stmt.X = p.parseTest()
			if p.tok == FROM {
				p.nextToken()
				stmt.Cause = p.parseTest()
			}
		}
		return stmt

	case GLOBAL, NONLOCAL:
		tok := p.tok
		pos := p.nextToken()
		stmt := &GlobalStmt{Token: tok, TokenPos: pos}
		for {
			stmt.Names = append(stmt.Names, p.parseIdent())
			if p.tok != COMMA {
				break
			}
			p.nextToken()
		}
		return stmt
	}

	// Assignment
	x := p.parseYieldOrExpr()
	switch p.tok {
	case COLON:
		// annotated assignment x: T [= v]
		switch x.(type) {
		case *Ident, *DotExpr, *IndexExpr:
		default:
			p.in.errorf(p.in.pos, "illegal target for annotation")
		}
		pos := p.nextToken() // consume COLON
		stmt := &AssignStmt{OpPos: pos, Op: EQ, LHS: x, Type: p.parseTest()}
		if p.tok == EQ {
			stmt.OpPos = p.nextToken()
			stmt.RHS = p.parseYieldOrExpr()
		}
		return stmt

	case EQ:
		pos := p.nextToken() // consume EQ
		stmt := &AssignStmt{OpPos: pos, Op: EQ, LHS: x, RHS: p.parseYieldOrExpr()}
		for p.tok == EQ {
			// chained assignment: the previous right operand is a target
			p.nextToken()
			stmt.Chain = append(stmt.Chain, stmt.RHS)
			stmt.RHS = p.parseYieldOrExpr()
		}
		return stmt

	case PLUS_EQ, MINUS_EQ, STAR_EQ, SLASH_EQ, SLASHSLASH_EQ, PERCENT_EQ, AMP_EQ, PIPE_EQ, CIRCUMFLEX_EQ, LTLT_EQ, GTGT_EQ, STARSTAR_EQ, AT_EQ:
		op := p.tok
		pos := p.nextToken() // consume op
		rhs := p.parseYieldOrExpr()
		return &AssignStmt{OpPos: pos, Op: op, LHS: x, RHS: rhs}
	}

	// Expression statement (e.g. function call, doc string).
	return &ExprStmt{X: x}
}

// import_stmt = 'import' dotted_as_name (',' dotted_as_name)*
func (p *parser) parseImportStmt() Stmt {
	stmt := &ImportStmt{Import: p.nextToken()}
	for {
		name := &ImportName{Path: p.parseDottedName()}
		if p.tok == AS {
			p.nextToken()
			name.As = p.parseIdent()
		}
		stmt.Names = append(stmt.Names, name)
		if p.tok != COMMA {
			break
		}
		p.nextToken()
	}
	stmt.End = End(stmt.Names[len(stmt.Names)-1])
	return stmt
}

// from_stmt = 'from' ('.'* dotted_name | '.'+) 'import'
//
//	('*' | '(' import_as_names ','? ')' | import_as_names)
func (p *parser) parseFromImportStmt() Stmt {
	stmt := &ImportStmt{From: p.nextToken()}
	for p.tok == DOT || p.tok == ELLIPSIS {
		if p.tok == DOT {
			stmt.Level++
		} else {
			stmt.Level += 3
		}
		p.nextToken()
	}
	if p.tok != IMPORT {
		stmt.Module = p.parseDottedName()
	} else if stmt.Level == 0 {
		p.in.errorf(p.in.pos, "from-import needs a module name")
	}
	stmt.Import = p.consume(IMPORT)

	switch p.tok {
	case STAR:
		stmt.Star = true
		stmt.End = p.nextToken().add("*")
		return stmt
	case LPAREN:
		p.nextToken()
		for p.tok != RPAREN {
			stmt.Names = append(stmt.Names, p.parseImportAsName())
			if p.tok != COMMA {
				break
			}
			p.nextToken()
		}
		if len(stmt.Names) == 0 {
			p.in.errorf(p.in.pos, "empty import list")
		}
		stmt.End = p.consume(RPAREN).add(")")
		return stmt
	}

	for {
		stmt.Names = append(stmt.Names, p.parseImportAsName())
		if p.tok != COMMA {
			break
		}
		p.nextToken()
	}
	stmt.End = End(stmt.Names[len(stmt.Names)-1])
	return stmt
}

// import_as_name = IDENT ['as' IDENT]
func (p *parser) parseImportAsName() *ImportName {
	name := &ImportName{Path: []*Ident{p.parseIdent()}}
	if p.tok == AS {
		p.nextToken()
		name.As = p.parseIdent()
	}
	return name
}

// dotted_name = IDENT ('.' IDENT)*
func (p *parser) parseDottedName() []*Ident {
	path := []*Ident{p.parseIdent()}
	for p.tok == DOT {
		p.nextToken()
		path = append(path, p.parseIdent())
	}
	return path
}

// parseParams parses a parameter list up to the closing token end.
// Annotations are permitted only if annotated is set (def, not lambda).
//
// param = IDENT [':' test] ['=' test]
//
//	| '*' [IDENT [':' test]]
//	| '**' IDENT [':' test]
//	| '/'
func (p *parser) parseParams(annotated bool, end Token) []*Param {
	var params []*Param
	defaults, keywordOnly := false, false
	for p.tok != end && p.tok != EOF {
		if len(params) > 0 {
			p.consume(COMMA)
		}
		if p.tok == end {
			break
		}

		param := &Param{}
		switch p.tok {
		case STAR, STARSTAR, SLASH:
			param.Star = p.tok
			param.StarPos = p.nextToken()
			keywordOnly = keywordOnly || param.Star != SLASH
			if param.Star == SLASH || param.Star == STAR && (p.tok == COMMA || p.tok == end) {
				params = append(params, param)
				continue
			}
		}

		param.Name = p.parseIdent()
		if annotated && p.tok == COLON {
			p.nextToken()
			param.Type = p.parseTest()
		}
		if p.tok == EQ {
			if param.Star != 0 {
				p.in.errorf(p.in.pos, "%s parameter cannot have a default", param.Star)
			}
			p.nextToken()
			param.Default = p.parseTest()
			defaults = defaults || !keywordOnly
		} else if defaults && !keywordOnly {
			p.in.errorf(param.Name.NamePos, "non-default parameter %s follows default parameter", param.Name.Name)
		}
		params = append(params, param)
	}
	return params
}

// parseExpr parses an expression, possible consisting of a
// comma-separated list of 'test' expressions.
//
// In many cases we must use parseTest to avoid ambiguity such as
// f(x, y) vs. f((x, y)).
func (p *parser) parseExpr(inParens bool) Expr {
	x := p.parseTestOrStar()
	if p.tok != COMMA {
		return x
	}

	// tuple
	exprs := p.parseExprs([]Expr{x}, inParens)
	return &TupleExpr{List: exprs}
}

// parseExprs parses a comma-separated list of expressions, starting with the comma.
// It is used to parse tuples and list elements.
// expr_list = (',' expr)* ','?
func (p *parser) parseExprs(exprs []Expr, allowTrailingComma bool) []Expr {
	for p.tok == COMMA {
		p.nextToken()
		if terminatesExprList(p.tok) {
			break
		}
		exprs = append(exprs, p.parseTestOrStar())
	}
	return exprs
}

// parseYieldOrExpr parses a yield expression, where one may stand
// unparenthesized, or else an expression list.
func (p *parser) parseYieldOrExpr() Expr {
	if p.tok == YIELD {
		return p.parseYield()
	}
	return p.parseExpr(false)
}

// yield_expr = 'yield' [expr] | 'yield' 'from' test
func (p *parser) parseYield() Expr {
	y := &YieldExpr{Yield: p.nextToken()} // consume YIELD
	if p.tok == FROM {
		p.nextToken()
		y.From = true
		y.X = p.parseTest()
	} else if !terminatesExprList(p.tok) {
		y.X = p.parseExpr(false)
	}
	return y
}

// parseTestOrStar parses a 'test' or a starred element *x.
func (p *parser) parseTestOrStar() Expr {
	if p.tok == STAR {
		pos := p.nextToken()
		x := p.parseTestPrec(0)
		return &UnaryExpr{OpPos: pos, Op: STAR, X: x}
	}
	return p.parseTest()
}

// parseTest parses a 'test', a single-component expression.
func (p *parser) parseTest() Expr {
	if p.tok == LAMBDA {
		return p.parseLambda(true)
	}

	x := p.parseTestPrec(0)

	// assignment expression (name := value)
	if p.tok == COLONEQ {
		if _, ok := x.(*Ident); !ok {
			p.in.errorf(p.in.pos, "assignment expression target must be a name")
		}
		pos := p.nextToken()
		y := p.parseTest()
		return &BinaryExpr{X: x, OpPos: pos, Op: COLONEQ, Y: y}
	}

	// conditional expression (t IF cond ELSE f)
	if p.tok == IF {
		ifpos := p.nextToken()
		cond := p.parseTestPrec(0)
		if p.tok != ELSE {
			p.in.errorf(ifpos, "conditional expression without else clause")
		}
		elsepos := p.nextToken()
		else_ := p.parseTest()
		return &CondExpr{If: ifpos, Cond: cond, True: x, ElsePos: elsepos, False: else_}
	}

	return x
}

// parseTestNoCond parses a a single-component expression without
// consuming a trailing 'if expr else expr'.
func (p *parser) parseTestNoCond() Expr {
	if p.tok == LAMBDA {
		return p.parseLambda(false)
	}
	return p.parseTestPrec(0)
}

// parseLambda parses a lambda expression.
// The allowCond flag allows the body to be an 'a if b else c' conditional.
func (p *parser) parseLambda(allowCond bool) Expr {
	lambda := p.nextToken()
	params := p.parseParams(false, COLON)
	p.consume(COLON)

	var body Expr
	if allowCond {
		body = p.parseTest()
	} else {
		body = p.parseTestNoCond()
	}

	return &LambdaExpr{
		Lambda: lambda,
		Params: params,
		Body:   body,
	}
}

func (p *parser) parseTestPrec(prec int) Expr {
	if prec >= len(preclevels) {
		return p.parseUnary()
	}

	// expr = NOT expr
	if p.tok == NOT && prec == int(precedence[NOT]) {
		pos := p.nextToken()
		x := p.parseTestPrec(prec)
		return &UnaryExpr{
			OpPos: pos,
			Op:    NOT,
			X:     x,
		}
	}

	return p.parseBinopExpr(prec)
}

// expr = test (OP test)*
// Uses precedence climbing; see http://www.engr.mun.ca/~theo/Misc/exp_parsing.htm#climbing.
//
// Comparisons may be chained (a < b < c); they are
// represented as left-nested BinaryExprs.
func (p *parser) parseBinopExpr(prec int) Expr {
	x := p.parseTestPrec(prec + 1)
	for {
		if p.tok == NOT {
			// In this context, NOT must be followed by IN.
			// Replace NOT IN by a single NOT_IN token.
			if precedence[NOT_IN] < int8(prec) {
				return x
			}
			p.nextToken() // consume NOT
			if p.tok != IN {
				p.in.errorf(p.in.pos, "got %#v, want in", p.tok)
			}
			p.tok = NOT_IN
		}

		// Binary operator of specified precedence?
		opprec := int(precedence[p.tok])
		if opprec < prec {
			return x
		}

		op := p.tok
		pos := p.nextToken()
		if op == IS && p.tok == NOT {
			p.nextToken()
			op = IS_NOT
		}
		y := p.parseTestPrec(opprec + 1)
		x = &BinaryExpr{OpPos: pos, Op: op, X: x, Y: y}
	}
}

// precedence maps each operator to its precedence (0-9), or -1 for other tokens.
var precedence [maxToken]int8

// preclevels groups operators of equal precedence.
// Comparisons may be chained; other binary operators associate to the left.
// Unary MINUS, unary PLUS, TILDE and the right-associative STARSTAR
// have higher precedence so are handled in parseUnary.
var preclevels = [...][]Token{
	{OR},  // or
	{AND}, // and
	{NOT}, // not (unary)
	{EQL, NEQ, LT, GT, LE, GE, IN, NOT_IN, IS, IS_NOT}, // == != < > <= >= in not in is is not
	{PIPE},                                 // |
	{CIRCUMFLEX},                           // ^
	{AMP},                                  // &
	{LTLT, GTGT},                           // << >>
	{MINUS, PLUS},                          // -
	{STAR, PERCENT, SLASH, SLASHSLASH, AT}, // * % / // @
}

func init() {
	// populate precedence table
	for i := range precedence {
		precedence[i] = -1
	}
	for level, tokens := range preclevels {
		for _, tok := range tokens {
			precedence[tok] = int8(level)
		}
	}
}

// unary = ('-' | '+' | '~') unary | power
func (p *parser) parseUnary() Expr {
	switch p.tok {
	case MINUS, PLUS, TILDE:
		tok := p.tok
		pos := p.nextToken()
		x := p.parseUnary()
		return &UnaryExpr{OpPos: pos, Op: tok, X: x}
	}
	return p.parsePower()
}

// power = ['await'] primary_with_suffix ['**' unary]
func (p *parser) parsePower() Expr {
	var x Expr
	if p.tok == AWAIT {
		pos := p.nextToken()
		x = &UnaryExpr{OpPos: pos, Op: AWAIT, X: p.parsePrimaryWithSuffix()}
	} else {
		x = p.parsePrimaryWithSuffix()
	}
	if p.tok == STARSTAR {
		pos := p.nextToken()
		y := p.parseUnary()
		return &BinaryExpr{OpPos: pos, Op: STARSTAR, X: x, Y: y}
	}
	return x
}

// primary_with_suffix = primary
//
//	| primary '.' IDENT
//	| primary slice_suffix
//	| primary call_suffix
func (p *parser) parsePrimaryWithSuffix() Expr {
	x := p.parsePrimary()
	for {
		switch p.tok {
		case DOT:
			dot := p.nextToken()
			id := p.parseIdent()
			x = &DotExpr{Dot: dot, X: x, Name: id}
		case LBRACK:
			x = p.parseSliceSuffix(x)
		case LPAREN:
			x = p.parseCallSuffix(x)
		default:
			return x
		}
	}
}

// slice_suffix = '[' subscript (',' subscript)* [','] ']'
//
// A sole slice x[lo:hi:step] is a SliceExpr; any other subscript
// list is an IndexExpr whose slices are SliceItems.
func (p *parser) parseSliceSuffix(x Expr) Expr {
	lbrack := p.nextToken()
	first := p.parseSubscript()
	if p.tok == RBRACK {
		rbrack := p.nextToken()
		if s, ok := first.(*SliceItem); ok {
			return &SliceExpr{X: x, Lbrack: lbrack, Lo: s.Lo, Hi: s.Hi, Step: s.Step, Rbrack: rbrack}
		}
		return &IndexExpr{X: x, Lbrack: lbrack, Y: first, Rbrack: rbrack}
	}

	list := []Expr{first}
	for p.tok == COMMA {
		p.nextToken()
		if p.tok == RBRACK {
			break
		}
		list = append(list, p.parseSubscript())
	}
	rbrack := p.consume(RBRACK)
	return &IndexExpr{X: x, Lbrack: lbrack, Y: &TupleExpr{List: list}, Rbrack: rbrack}
}

// subscript = test | '*' test | [test] ':' [test] [':' [test]]
func (p *parser) parseSubscript() Expr {
	var lo Expr
	if p.tok != COLON {
		lo = p.parseTestOrStar()
		if p.tok != COLON {
			return lo
		}
	}
	item := &SliceItem{Lo: lo, Colon: p.nextToken()}
	if p.tok != COLON && p.tok != COMMA && p.tok != RBRACK {
		item.Hi = p.parseTest()
	}
	if p.tok == COLON {
		p.nextToken()
		if p.tok != COMMA && p.tok != RBRACK {
			item.Step = p.parseTest()
		}
	}
	return item
}

// call_suffix = '(' arg_list? ')'
func (p *parser) parseCallSuffix(fn Expr) Expr {
	lparen := p.consume(LPAREN)
	var rparen Position
	var args []Expr
	if p.tok == RPAREN {
		rparen = p.nextToken()
	} else {
		args = p.parseArgs()
		rparen = p.consume(RPAREN)
	}
	if len(args) == 1 {
		if comp, ok := args[0].(*Comprehension); ok && !comp.Lbrack.IsValid() {
			// bare generator argument shares the call's parentheses
			comp.Lbrack, comp.Rbrack = lparen, rparen
		}
	}
	return &CallExpr{Fn: fn, Lparen: lparen, Args: args, Rparen: rparen}
}

// parseArgs parses a list of actual parameter values (arguments).
// It mirrors the structure of parseParams.
// arg = test | '*' test | '**' test | ident '=' test | test comp_suffix
func (p *parser) parseArgs() []Expr {
	var args []Expr
	for p.tok != RPAREN && p.tok != EOF {
		if len(args) > 0 {
			p.consume(COMMA)
		}
		if p.tok == RPAREN {
			break
		}

		// *args or **kwargs
		if p.tok == STAR || p.tok == STARSTAR {
			op := p.tok
			pos := p.nextToken()
			x := p.parseTest()
			args = append(args, &UnaryExpr{
				OpPos: pos,
				Op:    op,
				X:     x,
			})
			continue
		}

		// We use a different strategy from Bazel here to stay within LL(1).
		// Instead of looking ahead two tokens (IDENT, EQ) we parse
		// 'test = test' then check that the first was an IDENT.
		x := p.parseTest()

		if p.tok == EQ {
			// name = value
			if _, ok := x.(*Ident); !ok {
				p.in.errorf(p.in.pos, "keyword argument must have form name=expr")
			}
			eq := p.nextToken()
			y := p.parseTest()
			x = &BinaryExpr{
				X:     x,
				OpPos: eq,
				Op:    EQ,
				Y:     y,
			}
		} else if p.atFor() {
			// generator expression as sole argument: f(x for x in y)
			if len(args) > 0 {
				p.in.errorf(p.in.pos, "generator expression must be parenthesized")
			}
			clauses := p.parseComprehensionClauses(RPAREN)
			x = &Comprehension{Kind: LPAREN, Body: x, Clauses: clauses}
			if p.tok != RPAREN {
				p.in.errorf(p.in.pos, "generator expression must be parenthesized")
			}
		}

		args = append(args, x)
	}
	return args
}

//	primary = IDENT
//	        | INT | FLOAT | IMAG | STRING+ | BYTES+ | '...'
//	        | '[' ...                    // list literal or comprehension
//	        | '{' ...                    // dict or set literal or comprehension
//	        | '(' ...                    // tuple, parenthesized expression or generator
func (p *parser) parsePrimary() Expr {
	switch p.tok {
	case IDENT:
		return p.parseIdent()

	case INT, FLOAT, IMAG, ELLIPSIS:
		var val interface{}
		tok := p.tok
		switch tok {
		case INT:
			if p.tokval.bigInt != nil {
				val = p.tokval.bigInt
			} else {
				val = p.tokval.int
			}
		case FLOAT, IMAG:
			val = p.tokval.float
		}
		raw := p.tokval.raw
		pos := p.nextToken()
		return &Literal{Token: tok, TokenPos: pos, Raw: raw, Value: val}

	case STRING, BYTES:
		// Adjacent literals are implicitly concatenated.
		tok := p.tok
		raw, val := p.tokval.raw, p.tokval.string
		fields := p.parseFields(raw, p.tokval.pos, 0)
		pos := p.nextToken()
		for p.tok == STRING || p.tok == BYTES {
			if p.tok != tok {
				p.in.errorf(p.in.pos, "cannot mix bytes and nonbytes literals")
			}
			raw += " "
			fields = append(fields, p.parseFields(p.tokval.raw, p.tokval.pos, len(raw))...)
			raw += p.tokval.raw
			val += p.tokval.string
			p.nextToken()
		}
		return &Literal{Token: tok, TokenPos: pos, Raw: raw, Value: val, Fields: fields}

	case LBRACK:
		return p.parseList()

	case LBRACE:
		return p.parseDict()

	case LPAREN:
		lparen := p.nextToken()
		if p.tok == RPAREN {
			// empty tuple
			rparen := p.nextToken()
			return &TupleExpr{Lparen: lparen, Rparen: rparen}
		}
		if p.tok == YIELD {
			y := p.parseYield()
			rparen := p.consume(RPAREN)
			return &ParenExpr{Lparen: lparen, X: y, Rparen: rparen}
		}
		e := p.parseExpr(true) // allow trailing comma
		if p.atFor() {
			// generator expression
			clauses := p.parseComprehensionClauses(RPAREN)
			rparen := p.consume(RPAREN)
			return &Comprehension{Kind: LPAREN, Lbrack: lparen, Body: e, Clauses: clauses, Rbrack: rparen}
		}
		rparen := p.consume(RPAREN)
		return &ParenExpr{
			Lparen: lparen,
			X:      e,
			Rparen: rparen,
		}
	}
	p.in.errorf(p.in.pos, "got %#v, want primary expression", p.tok)
	panic("unreachable")
}

// parseFields parses the replacement fields of raw, the text of the
// string token at pos, and returns them with offsets shifted by off.
func (p *parser) parseFields(raw string, pos Position, off int) []*Field {
	spans, err := fieldSpans(raw)
	if err != nil {
		p.in.errorf(pos, "%v", err)
	}
	var fields []*Field
	for _, span := range spans {
		sc := &scanner{
			rest:      []byte(raw[span[0]:span[1]]),
			pos:       pos.add(raw[:span[0]]),
			indentstk: make([]int, 1),
			depth:     1, // newlines within a field are insignificant
		}
		sub := parser{in: sc}
		sub.nextToken()
		x := sub.parseExpr(true)
		if sub.tok != EOF {
			sc.errorf(sub.tokval.pos, "got %#v in f-string field, want end of expression", sub.tok)
		}
		fields = append(fields, &Field{Start: off + span[0], End: off + span[1], X: x})
	}
	return fields
}

// list = '[' ']'
//
//	| '[' expr ']'
//	| '[' expr expr_list ']'
//	| '[' expr comp_suffix ']'
func (p *parser) parseList() Expr {
	lbrack := p.nextToken()
	if p.tok == RBRACK {
		// empty List
		rbrack := p.nextToken()
		return &ListExpr{Lbrack: lbrack, Rbrack: rbrack}
	}

	x := p.parseTestOrStar()

	if p.atFor() {
		// list comprehension
		clauses := p.parseComprehensionClauses(RBRACK)
		rbrack := p.consume(RBRACK)
		return &Comprehension{Kind: LBRACK, Lbrack: lbrack, Body: x, Clauses: clauses, Rbrack: rbrack}
	}

	exprs := []Expr{x}
	if p.tok == COMMA {
		// multi-item list literal
		exprs = p.parseExprs(exprs, true) // allow trailing comma
	}

	rbrack := p.consume(RBRACK)
	return &ListExpr{Lbrack: lbrack, List: exprs, Rbrack: rbrack}
}

// dict = '{' '}'
//
//	| '{' dict_entry_list '}'
//	| '{' dict_entry comp_suffix '}'
//	| '{' expr_list '}'                  // set
//	| '{' expr comp_suffix '}'           // set comprehension
func (p *parser) parseDict() Expr {
	lbrace := p.nextToken()
	if p.tok == RBRACE {
		// empty dict
		rbrace := p.nextToken()
		return &DictExpr{Lbrace: lbrace, Rbrace: rbrace}
	}

	first := p.parseDictElem()
	_, isEntry := first.(*DictEntry)
	if u, ok := first.(*UnaryExpr); ok && u.Op == STARSTAR {
		isEntry = true
	}

	if p.atFor() {
		if u, ok := first.(*UnaryExpr); ok && (u.Op == STARSTAR || u.Op == STAR) {
			p.in.errorf(u.OpPos, "unpacking is not allowed in a comprehension")
		}
		clauses := p.parseComprehensionClauses(RBRACE)
		rbrace := p.consume(RBRACE)
		return &Comprehension{Kind: LBRACE, Lbrack: lbrace, Body: first, Clauses: clauses, Rbrack: rbrace}
	}

	elems := []Expr{first}
	for p.tok == COMMA {
		p.nextToken()
		if p.tok == RBRACE {
			break
		}
		elem := p.parseDictElem()
		_, entry := elem.(*DictEntry)
		if u, ok := elem.(*UnaryExpr); ok && u.Op == STARSTAR {
			entry = true
		}
		if entry != isEntry {
			p.in.errorf(Start(elem), "cannot mix dict entries and set elements")
		}
		elems = append(elems, elem)
	}

	rbrace := p.consume(RBRACE)
	if isEntry {
		return &DictExpr{Lbrace: lbrace, List: elems, Rbrace: rbrace}
	}
	return &SetExpr{Lbrace: lbrace, List: elems, Rbrace: rbrace}
}

// dict_elem = test ':' test | '**' test | test | '*' test
func (p *parser) parseDictElem() Expr {
	if p.tok == STARSTAR {
		pos := p.nextToken()
		x := p.parseTestPrec(0)
		return &UnaryExpr{OpPos: pos, Op: STARSTAR, X: x}
	}
	k := p.parseTestOrStar()
	if p.tok != COLON {
		return k
	}
	colon := p.nextToken()
	v := p.parseTest()
	return &DictEntry{Key: k, Colon: colon, Value: v}
}

// comp_suffix = ['async'] 'for' loopvars 'in' or_test
//
//	| 'if' test
//
// parseComprehensionClauses parses clauses up to but not including
// the closing token.
func (p *parser) parseComprehensionClauses(endBrace Token) []Node {
	var clauses []Node
	for p.tok != endBrace {
		if p.atFor() {
			var async Position
			if p.tok == ASYNC {
				async = p.nextToken()
			}
			pos := p.consume(FOR)
			vars := p.parseForLoopVariables()
			in := p.consume(IN)
			// Following Python 3, the operand of IN cannot be:
			// - a conditional expression ('x if y else z'),
			//   due to conflicts in Python grammar
			//  ('if' is used by the comprehension);
			// - a lambda expression
			// - an unparenthesized tuple.
			x := p.parseTestPrec(0)
			clauses = append(clauses, &ForClause{Async: async, For: pos, Vars: vars, In: in, X: x})
		} else if p.tok == IF {
			pos := p.nextToken()
			cond := p.parseTestNoCond()
			clauses = append(clauses, &IfClause{If: pos, Cond: cond})
		} else {
			p.in.errorf(p.in.pos, "got %#v, want '%s', for, or if", p.tok, endBrace)
		}
	}
	return clauses
}

// loop_variables = primary_with_suffix (COMMA primary_with_suffix)*
func (p *parser) parseForLoopVariables() Expr {
	// Avoid parseExpr because it would consume the IN token
	// following x in "for x in y: ...".
	v := p.parsePrimaryWithSuffix()
	if p.tok != COMMA {
		return v
	}

	list := []Expr{v}
	for p.tok == COMMA {
		p.nextToken()
		if terminatesExprList(p.tok) {
			break
		}
		list = append(list, p.parsePrimaryWithSuffix())
	}
	return &TupleExpr{List: list}
}

// atFor reports whether the current token begins a comprehension's
// for clause.
func (p *parser) atFor() bool { return p.tok == FOR || p.tok == ASYNC }

func (p *parser) parseIdent() *Ident {
	if p.tok != IDENT {
		p.in.errorf(p.in.pos, "not an identifier")
	}
	id := &Ident{
		NamePos: p.tokval.pos,
		Name:    p.tokval.raw,
	}
	p.nextToken()
	return id
}

func (p *parser) consume(t Token) Position {
	if p.tok != t {
		p.in.errorf(p.in.pos, "got %#v, want %#v", p.tok, t)
	}
	return p.nextToken()
}

// terminatesExprList reports whether the token may follow a
// trailing comma of an expression list.
func terminatesExprList(tok Token) bool {
	switch tok {
	case EOF, NEWLINE, EQ, RBRACE, RBRACK, RPAREN, SEMI, IN, COLON,
		PLUS_EQ, MINUS_EQ, STAR_EQ, SLASH_EQ, SLASHSLASH_EQ, PERCENT_EQ,
		AMP_EQ, PIPE_EQ, CIRCUMFLEX_EQ, LTLT_EQ, GTGT_EQ, STARSTAR_EQ, AT_EQ:
		return true
	}
	return false
}
