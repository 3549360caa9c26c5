// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax_test

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/qfuzz/qmerge/internal/chunkedfile"
	"github.com/qfuzz/qmerge/syntax"
)

func TestExprParseTrees(t *testing.T) {
	for _, test := range []struct {
		input, want string
	}{
		{`print(1)`,
			`(CallExpr Fn=print Args=(1))`},
		{"print(1)\n",
			`(CallExpr Fn=print Args=(1))`},
		{`x + 1`,
			`(BinaryExpr X=x Op=+ Y=1)`},
		{`[x for x in y]`,
			`(Comprehension Kind=[ Body=x Clauses=((ForClause Vars=x X=y)))`},
		{`[x for x in (a if b else c)]`,
			`(Comprehension Kind=[ Body=x Clauses=((ForClause Vars=x X=(ParenExpr X=(CondExpr Cond=b True=a False=c)))))`},
		{`x[i].f(42)`,
			`(CallExpr Fn=(DotExpr X=(IndexExpr X=x Y=i) Name=f) Args=(42))`},
		{`x.f()`,
			`(CallExpr Fn=(DotExpr X=x Name=f))`},
		{`x+y*z`,
			`(BinaryExpr X=x Op=+ Y=(BinaryExpr X=y Op=* Y=z))`},
		{`x%y-z`,
			`(BinaryExpr X=(BinaryExpr X=x Op=% Y=y) Op=- Y=z)`},
		{`a + b not in c`,
			`(BinaryExpr X=(BinaryExpr X=a Op=+ Y=b) Op=not in Y=c)`},
		{`a is not b`,
			`(BinaryExpr X=a Op=is not Y=b)`},
		{`a < b < c`,
			`(BinaryExpr X=(BinaryExpr X=a Op=< Y=b) Op=< Y=c)`},
		{`not a and b`,
			`(BinaryExpr X=(UnaryExpr Op=not X=a) Op=and Y=b)`},
		{`-x ** 2`,
			`(UnaryExpr Op=- X=(BinaryExpr X=x Op=** Y=2))`},
		{`a @ b`,
			`(BinaryExpr X=a Op=@ Y=b)`},
		{`lambda x, *args, **kwargs: None`,
			`(LambdaExpr Params=((Param Name=x) (Param Star=* Name=args) (Param Star=** Name=kwargs)) Body=None)`},
		{`{"one": 1}`,
			`(DictExpr List=((DictEntry Key="one" Value=1)))`},
		{`{1, 2}`,
			`(SetExpr List=(1 2))`},
		{`{k: v for k, v in d}`,
			`(Comprehension Kind={ Body=(DictEntry Key=k Value=v) Clauses=((ForClause Vars=(TupleExpr List=(k v)) X=d)))`},
		{`a[i:]`,
			`(SliceExpr X=a Lo=i)`},
		{`a[::k]`,
			`(SliceExpr X=a Step=k)`},
		{`array[qubit, 3]`,
			`(IndexExpr X=array Y=(TupleExpr List=(qubit 3)))`},
		{`()`,
			`(TupleExpr)`},
		{`(4,)`,
			`(ParenExpr X=(TupleExpr List=(4)))`},
		{`(4)`,
			`(ParenExpr X=4)`},
		{`1, 2, 3`,
			`(TupleExpr List=(1 2 3))`},
		{`a if b else c`,
			`(CondExpr Cond=b True=a False=c)`},
		{`f(x for x in y)`,
			`(CallExpr Fn=f Args=((Comprehension Kind=( Body=x Clauses=((ForClause Vars=x X=y)))))`},
		{`f(a, *b, c=d, **e)`,
			`(CallExpr Fn=f Args=(a (UnaryExpr Op=* X=b) (BinaryExpr X=c Op== Y=d) (UnaryExpr Op=** X=e)))`},
		{`"a" "b"`,
			`"ab"`},
		{`x.y.z`,
			`(DotExpr X=(DotExpr X=x Name=y) Name=z)`},
		{`...`,
			`...`},
		{`1.5`,
			`1.5`},
		{`[*a, b]`,
			`(ListExpr List=((UnaryExpr Op=* X=a) b))`},
		{`f(a, b for b in c)`,
			`generator expression must be parenthesized`},
		{`1 if 2`,
			`conditional expression without else clause`},
		{`a +`,
			`got end of file, want primary expression`},
		{`f(a.b=1)`,
			`keyword argument must have form name=expr`},
		{`a[1:2, ::3]`,
			`(IndexExpr X=a Y=(TupleExpr List=((SliceItem Lo=1 Hi=2) (SliceItem Step=3))))`},
		{`a[i, j:]`,
			`(IndexExpr X=a Y=(TupleExpr List=(i (SliceItem Lo=j))))`},
		{`(n := len(a)) > 10`,
			`(BinaryExpr X=(ParenExpr X=(BinaryExpr X=n Op=:= Y=(CallExpr Fn=len Args=(a)))) Op=> Y=10)`},
		{`(a.b := 1)`,
			`assignment expression target must be a name`},
		{`await f(x)`,
			`(UnaryExpr Op=await X=(CallExpr Fn=f Args=(x)))`},
		{`-await x`,
			`(UnaryExpr Op=- X=(UnaryExpr Op=await X=x))`},
		{`[x async for x in y]`,
			`(Comprehension Kind=[ Body=x Clauses=((ForClause Vars=x X=y)))`},
		{`(yield)`,
			`(ParenExpr X=(YieldExpr))`},
		{`f"{a!r:>{w}}"`,
			`"{a!r:>{w}}"`},
		{`f"{a"`,
			`f-string: expecting '}'`},
	} {
		e, err := syntax.ParseExpr("foo.py", test.input, 0)
		var got string
		if err != nil {
			got = stripPos(err)
		} else {
			got = treeString(e)
		}
		if test.want != got {
			t.Errorf("parse `%s` = %s, want %s", test.input, got, test.want)
		}
	}
}

func TestStmtParseTrees(t *testing.T) {
	for _, test := range []struct {
		input, want string
	}{
		{`x = 1`,
			`(AssignStmt Op== LHS=x RHS=1)`},
		{`x += 1`,
			`(AssignStmt Op=+= LHS=x RHS=1)`},
		{`x: int = 1`,
			`(AssignStmt Op== LHS=x Type=int RHS=1)`},
		{`x: int`,
			`(AssignStmt Op== LHS=x Type=int)`},
		{`a = b = c`,
			`(AssignStmt Op== LHS=a Chain=(b) RHS=c)`},
		{`x, y = y, x`,
			`(AssignStmt Op== LHS=(TupleExpr List=(x y)) RHS=(TupleExpr List=(y x)))`},
		{`import a.b as c, d`,
			`(ImportStmt Names=((ImportName Path=(a b) As=c) (ImportName Path=(d))))`},
		{`from guppylang import guppy, qubit`,
			`(ImportStmt Module=(guppylang) Names=((ImportName Path=(guppy)) (ImportName Path=(qubit))))`},
		{`from ..m import (x as y,)`,
			`(ImportStmt Level=2 Module=(m) Names=((ImportName Path=(x) As=y)))`},
		{`from m import *`,
			`(ImportStmt Module=(m) Star)`},
		{`from . import x`,
			`(ImportStmt Level=1 Names=((ImportName Path=(x))))`},
		{`return`,
			`(ReturnStmt)`},
		{`return 1, 2`,
			`(ReturnStmt Result=(TupleExpr List=(1 2)))`},
		{`pass; break`,
			`(BranchStmt Token=pass)(BranchStmt Token=break)`},
		{`assert x, "m"`,
			`(AssertStmt Cond=x Msg="m")`},
		{`del a[0], b`,
			`(DelStmt Targets=(TupleExpr List=((IndexExpr X=a Y=0) b)))`},
		{`raise ValueError("x") from e`,
			`(RaiseStmt X=(CallExpr Fn=ValueError Args=("x")) Cause=e)`},
		{`raise`,
			`(RaiseStmt)`},
		{`global a, b`,
			`(GlobalStmt Token=global Names=(a b))`},
		{"@guppy\ndef f(q: qubit @ owned, n: int = 2) -> None:\n  pass",
			`(DefStmt Decorators=((Decorator X=guppy)) Name=f Params=((Param Name=q Type=(BinaryExpr X=qubit Op=@ Y=owned)) (Param Name=n Type=int Default=2)) Result=None Body=((BranchStmt Token=pass)))`},
		{`def f(a, /, b, *, c): pass`,
			`(DefStmt Name=f Params=((Param Name=a) (Param Star=/) (Param Name=b) (Param Star=*) (Param Name=c)) Body=((BranchStmt Token=pass)))`},
		{"class C(Base, metaclass=M):\n  x = 1",
			`(ClassStmt Name=C Bases=(Base (BinaryExpr X=metaclass Op== Y=M)) Body=((AssignStmt Op== LHS=x RHS=1)))`},
		{"class C:\n  pass",
			`(ClassStmt Name=C Body=((BranchStmt Token=pass)))`},
		{"if a:\n  pass\nelif b:\n  pass\nelse:\n  x",
			`(IfStmt Cond=a True=((BranchStmt Token=pass)) False=((IfStmt Cond=b True=((BranchStmt Token=pass)) False=((ExprStmt X=x)))))`},
		{"for i in range(3):\n  pass\nelse:\n  pass",
			`(ForStmt Vars=i X=(CallExpr Fn=range Args=(3)) Body=((BranchStmt Token=pass)) Else=((BranchStmt Token=pass)))`},
		{`while x: x -= 1`,
			`(WhileStmt Cond=x Body=((AssignStmt Op=-= LHS=x RHS=1)))`},
		{"with open(f) as g, h:\n  pass",
			`(WithStmt Items=((WithItem X=(CallExpr Fn=open Args=(f)) As=g) (WithItem X=h)) Body=((BranchStmt Token=pass)))`},
		{`x = yield`,
			`(AssignStmt Op== LHS=x RHS=(YieldExpr))`},
		{`yield a, b`,
			`(ExprStmt X=(YieldExpr X=(TupleExpr List=(a b))))`},
		{`yield from g()`,
			`(ExprStmt X=(YieldExpr From X=(CallExpr Fn=g)))`},
		{`x += yield y`,
			`(AssignStmt Op=+= LHS=x RHS=(YieldExpr X=y))`},
		{"async def f(q):\n  await g(q)",
			`(DefStmt Name=f Params=((Param Name=q)) Body=((ExprStmt X=(UnaryExpr Op=await X=(CallExpr Fn=g Args=(q))))))`},
		{"async for q in qs:\n  pass",
			`(ForStmt Vars=q X=qs Body=((BranchStmt Token=pass)))`},
		{"async with a as b:\n  pass",
			`(WithStmt Items=((WithItem X=a As=b)) Body=((BranchStmt Token=pass)))`},
		{"@guppy\nasync def f(): pass",
			`(DefStmt Decorators=((Decorator X=guppy)) Name=f Body=((BranchStmt Token=pass)))`},
		{"try:\n  a\nexcept E as e:\n  b\nexcept:\n  c\nfinally:\n  d",
			`(TryStmt Body=((ExprStmt X=a)) Handlers=((ExceptClause Type=E Name=e Body=((ExprStmt X=b))) (ExceptClause Body=((ExprStmt X=c)))) Finally=((ExprStmt X=d)))`},
	} {
		f, err := syntax.Parse("foo.py", test.input, 0)
		if err != nil {
			t.Errorf("parse `%s` failed: %v", test.input, stripPos(err))
			continue
		}
		var buf bytes.Buffer
		for _, stmt := range f.Stmts {
			buf.WriteString(treeString(stmt))
		}
		if got := buf.String(); test.want != got {
			t.Errorf("parse `%s` = %s, want %s", test.input, got, test.want)
		}
	}
}

// TestCompoundStmt tests handling of REPL-style compound statements.
func TestCompoundStmt(t *testing.T) {
	for _, test := range []struct {
		input, want string
	}{
		// blank lines
		{"\n",
			``},
		{"   \n",
			``},
		{"# comment\n",
			``},
		// simple statement
		{"1\n",
			`(ExprStmt X=1)`},
		{"print(1)\n",
			`(ExprStmt X=(CallExpr Fn=print Args=(1)))`},
		{"1;2;3;\n",
			`(ExprStmt X=1)(ExprStmt X=2)(ExprStmt X=3)`},
		{"f();g()\n",
			`(ExprStmt X=(CallExpr Fn=f))(ExprStmt X=(CallExpr Fn=g))`},
		{"f(\n\n\n\n\n\n\n)\n",
			`(ExprStmt X=(CallExpr Fn=f))`},
		// complex statements
		{"def f():\n  pass\n\n",
			`(DefStmt Name=f Body=((BranchStmt Token=pass)))`},
		{"@guppy\ndef f():\n  pass\n\n",
			`(DefStmt Decorators=((Decorator X=guppy)) Name=f Body=((BranchStmt Token=pass)))`},
		{"if cond:\n  pass\n\n",
			`(IfStmt Cond=cond True=((BranchStmt Token=pass)))`},
		// Even as a 1-liner, the following blank line is required.
		{"if cond: pass\n\n",
			`(IfStmt Cond=cond True=((BranchStmt Token=pass)))`},
		{"a; b; c\n",
			`(ExprStmt X=a)(ExprStmt X=b)(ExprStmt X=c)`},
		{"a; b c\n",
			`invalid syntax`},
	} {

		// Fake readline input from string.
		// The ! suffix, which would cause a parse error,
		// tests that the parser doesn't read more than necessary.
		sc := bufio.NewScanner(strings.NewReader(test.input + "!"))
		readline := func() ([]byte, error) {
			if sc.Scan() {
				return []byte(sc.Text() + "\n"), nil
			}
			return nil, sc.Err()
		}

		var got string
		f, err := syntax.ParseCompoundStmt("foo.py", readline)
		if err != nil {
			got = stripPos(err)
		} else {
			for _, stmt := range f.Stmts {
				got += treeString(stmt)
			}
		}
		if test.want != got {
			t.Errorf("parse `%s` = %s, want %s", test.input, got, test.want)
		}
	}
}

func stripPos(err error) string {
	s := err.Error()
	if i := strings.Index(s, ": "); i >= 0 {
		s = s[i+len(": "):] // strip file:line:col
	}
	return s
}

// treeString prints a syntax node as a parenthesized tree.
// Idents are printed as foo and Literals as "foo" or 42.
// Structs are printed as (type name=value ...).
// Only non-empty fields are shown.
func treeString(n syntax.Node) string {
	var buf bytes.Buffer
	writeTree(&buf, reflect.ValueOf(n))
	return buf.String()
}

func writeTree(out *bytes.Buffer, x reflect.Value) {
	switch x.Kind() {
	case reflect.String, reflect.Int, reflect.Bool:
		fmt.Fprintf(out, "%v", x.Interface())
	case reflect.Ptr, reflect.Interface:
		if elem := x.Elem(); elem.Kind() == 0 {
			out.WriteString("nil")
		} else {
			writeTree(out, elem)
		}
	case reflect.Struct:
		switch v := x.Interface().(type) {
		case syntax.Literal:
			switch v.Token {
			case syntax.STRING:
				fmt.Fprintf(out, "%q", v.Value)
			case syntax.BYTES:
				fmt.Fprintf(out, "b%q", v.Value)
			case syntax.INT:
				fmt.Fprintf(out, "%d", v.Value)
			default:
				out.WriteString(v.Raw)
			}
			return
		case syntax.Ident:
			out.WriteString(v.Name)
			return
		}
		fmt.Fprintf(out, "(%s", strings.TrimPrefix(x.Type().String(), "syntax."))
		for i, n := 0, x.NumField(); i < n; i++ {
			f := x.Field(i)
			if f.Type() == reflect.TypeOf(syntax.Position{}) {
				continue // skip positions
			}
			name := x.Type().Field(i).Name
			if f.Type() == reflect.TypeOf(syntax.Token(0)) {
				if tok := f.Interface().(syntax.Token); tok != 0 {
					fmt.Fprintf(out, " %s=%s", name, tok)
				}
				continue
			}

			switch f.Kind() {
			case reflect.Slice:
				if n := f.Len(); n > 0 {
					fmt.Fprintf(out, " %s=(", name)
					for i := 0; i < n; i++ {
						if i > 0 {
							out.WriteByte(' ')
						}
						writeTree(out, f.Index(i))
					}
					out.WriteByte(')')
				}
				continue
			case reflect.Ptr, reflect.Interface:
				if f.IsNil() {
					continue
				}
			case reflect.Int:
				if f.Int() != 0 {
					fmt.Fprintf(out, " %s=%d", name, f.Int())
				}
				continue
			case reflect.Bool:
				if f.Bool() {
					fmt.Fprintf(out, " %s", name)
				}
				continue
			}
			fmt.Fprintf(out, " %s=", name)
			writeTree(out, f)
		}
		fmt.Fprintf(out, ")")
	default:
		fmt.Fprintf(out, "%T", x.Interface())
	}
}

func TestParseErrors(t *testing.T) {
	filename := "testdata/errors.py"
	for _, chunk := range chunkedfile.Read(filename, t) {
		_, err := syntax.Parse(filename, chunk.Source, 0)
		switch err := err.(type) {
		case nil:
			// ok
		case syntax.Error:
			chunk.GotError(int(err.Pos.Line), err.Msg)
		default:
			t.Error(err)
		}
		chunk.Done()
	}
}

func TestSpans(t *testing.T) {
	file, err := syntax.Parse("foo.py", "x = f(a)\nfrom m import (a,\n    b)\n", 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{
		"foo.py:1:1 foo.py:1:9",
		"foo.py:2:1 foo.py:3:7",
	} {
		if got := fmt.Sprint(file.Stmts[i].Span()); got != want {
			t.Errorf("stmt %d: wrong span: got %q, want %q", i, got, want)
		}
	}
}

func BenchmarkParse(b *testing.B) {
	filename := "testdata/circuit.py"
	b.StopTimer()
	data, err := os.ReadFile(filename)
	if err != nil {
		b.Fatal(err)
	}
	b.StartTimer()

	for i := 0; i < b.N; i++ {
		_, err := syntax.Parse(filename, data, 0)
		if err != nil {
			b.Fatal(err)
		}
	}
}
