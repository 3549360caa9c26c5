// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assemble

import (
	"fmt"

	"fortio.org/safecast"
	"github.com/qfuzz/qmerge/syntax"
)

// Kind classifies the resource an entry-routine parameter asks for.
type Kind uint8

const (
	Unrecognized Kind = iota
	Single            // qubit
	Array             // array[qubit, N]
)

var kindNames = [...]string{
	Unrecognized: "unrecognized",
	Single:       "single",
	Array:        "array",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// A Resource describes one annotated parameter of an entry routine.
// Size is the element count of an Array and zero otherwise.
type Resource struct {
	Name string
	Kind Kind
	Size int
}

func (r Resource) String() string {
	switch r.Kind {
	case Single:
		return r.Name + ": qubit"
	case Array:
		return fmt.Sprintf("%s: array[qubit, %d]", r.Name, r.Size)
	}
	return r.Name + ": ?"
}

// Inspect classifies the annotated positional parameters of def,
// in declaration order. Unannotated parameters are omitted, and
// inspection stops at the first variadic or keyword-only parameter.
//
// Classification is structural: a parameter annotated with the bare
// name qubit is Single, one annotated array[qubit, N] with an integer
// literal N is Array, and any other annotation is Unrecognized.
// An ownership modifier, as in qubit @ owned, is ignored.
func Inspect(def *syntax.DefStmt) []Resource {
	var resources []Resource
	for _, param := range def.Params {
		if param.Star == syntax.SLASH {
			continue
		}
		if param.Star != 0 {
			break
		}
		if param.Type == nil {
			continue
		}
		kind, size := classify(param.Type)
		resources = append(resources, Resource{Name: param.Name.Name, Kind: kind, Size: size})
	}
	return resources
}

func classify(t syntax.Expr) (Kind, int) {
	t = unparen(t)
	if b, ok := t.(*syntax.BinaryExpr); ok && b.Op == syntax.AT && isName(b.Y, "owned") {
		t = unparen(b.X)
	}
	if isName(t, "qubit") {
		return Single, 0
	}
	index, ok := t.(*syntax.IndexExpr)
	if !ok || !isName(index.X, "array") {
		return Unrecognized, 0
	}
	tuple, ok := index.Y.(*syntax.TupleExpr)
	if !ok || len(tuple.List) != 2 || !isName(tuple.List[0], "qubit") {
		return Unrecognized, 0
	}
	n, ok := intValue(tuple.List[1])
	if !ok {
		return Unrecognized, 0
	}
	return Array, n
}

// intValue returns the value of a non-negative integer literal.
func intValue(x syntax.Expr) (int, bool) {
	lit, ok := x.(*syntax.Literal)
	if !ok || lit.Token != syntax.INT {
		return 0, false
	}
	v, ok := lit.Value.(int64)
	if !ok || v < 0 {
		return 0, false // *big.Int values are out of range
	}
	n, err := safecast.Conv[int](v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isName(x syntax.Expr, name string) bool {
	id, ok := x.(*syntax.Ident)
	return ok && id.Name == name
}

func unparen(x syntax.Expr) syntax.Expr {
	for {
		p, ok := x.(*syntax.ParenExpr)
		if !ok {
			return x
		}
		x = p.X
	}
}
