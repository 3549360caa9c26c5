// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assemble

import "github.com/qfuzz/qmerge/syntax"

// Capture is the Guppy convention. The master routine allocates a
// fresh resource for each recognized parameter of each unit's entry
// routine, calls the routine, then measures the resources and records
// the outcomes under the key "c{i}_main.{param}".
type Capture struct{}

func (Capture) Name() string { return "capture" }

func (Capture) Harness() []*syntax.ImportStmt {
	return []*syntax.ImportStmt{fromImport("diff_testing.lib", "guppyTesting")}
}

func (Capture) Prepare(u *Unit) error {
	u.Resources = Inspect(u.Entry)
	return nil
}

// Prologue enables experimental language features when some unit
// imports the guppylang module itself.
func (Capture) Prologue(imports *ImportSet) []syntax.Stmt {
	if !imports.Binds("guppylang") {
		return nil
	}
	return []syntax.Stmt{
		exprStmt(call(dot(ident("guppylang"), "enable_experimental_features"))),
	}
}

func (Capture) Master(units []*Unit) *syntax.DefStmt {
	var body []syntax.Stmt
	for _, u := range units {
		var args []syntax.Expr
		var results []syntax.Stmt
		for _, r := range u.Resources {
			var alloc, measure syntax.Expr
			local := u.EntryName() + "_" + r.Name
			switch r.Kind {
			case Single:
				alloc = call(ident("qubit"))
				measure = call(ident("measure"), ident(local))
			case Array:
				alloc = call(ident("array"), &syntax.Comprehension{
					Kind: syntax.LPAREN,
					Body: call(ident("qubit")),
					Clauses: []syntax.Node{&syntax.ForClause{
						Vars: ident("_"),
						X:    call(ident("range"), intLit(r.Size)),
					}},
				})
				measure = call(ident("measure_array"), ident(local))
			default:
				continue
			}
			body = append(body, assign(local, alloc))
			args = append(args, ident(local))
			key := u.EntryName() + "." + r.Name
			results = append(results, exprStmt(call(ident("result"), strLit(key, ""), measure)))
		}
		body = append(body, exprStmt(call(ident(u.EntryName()), args...)))
		body = append(body, results...)
	}
	def := master(body)
	def.Decorators = []*syntax.Decorator{{X: ident("guppy")}}
	def.Result = ident("None")
	return def
}

// DiffTest returns
//
//	gt = guppyTesting()
//	gt.ks_diff_test(main, tag)
func (Capture) DiffTest(tag int) []syntax.Stmt {
	return []syntax.Stmt{
		assign("gt", call(ident("guppyTesting"))),
		exprStmt(call(dot(ident("gt"), "ks_diff_test"), ident(EntryName), intLit(tag))),
	}
}
