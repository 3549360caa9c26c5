// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assemble

import (
	"fmt"

	"github.com/qfuzz/qmerge/syntax"
)

// Registry names the constructors of the composite handle and its
// two pools. The zero Registry means DefaultRegistry.
type Registry struct {
	Circuit   string // composite handle, QuantumCircuit(primary[, secondary])
	Primary   string // QuantumRegister(n)
	Secondary string // ClassicalRegister(n)
}

// DefaultRegistry is the Qiskit registry.
var DefaultRegistry = Registry{
	Circuit:   "QuantumCircuit",
	Primary:   "QuantumRegister",
	Secondary: "ClassicalRegister",
}

// Names of the shared handles, as parameters of every rewritten entry
// routine and as locals of the master routine.
const (
	CircuitHandle   = "qc"
	PrimaryHandle   = "qr"
	SecondaryHandle = "cr"
)

// Pools records the pool sizes a unit asked for.
type Pools struct {
	Primary, Secondary int
}

func (p Pools) max(q Pools) Pools {
	return Pools{max(p.Primary, q.Primary), max(p.Secondary, q.Secondary)}
}

// SharedRegistry is the Qiskit convention. Each unit's entry routine
// gains the parameters qc, qr and cr, and the constructor calls in its
// body are replaced by those shared handles. The master routine builds
// the pools once, sized to the largest request of any unit, and passes
// them to every unit in order.
type SharedRegistry struct {
	Registry Registry
}

func (s SharedRegistry) registry() Registry {
	if s.Registry == (Registry{}) {
		return DefaultRegistry
	}
	return s.Registry
}

func (SharedRegistry) Name() string { return "shared-registry" }

func (s SharedRegistry) Harness() []*syntax.ImportStmt {
	reg := s.registry()
	return []*syntax.ImportStmt{
		fromImport("diff_testing.lib", "qiskitTesting"),
		fromImport("qiskit", reg.Circuit, reg.Primary, reg.Secondary),
	}
}

// Prepare rewrites u.Entry to take the shared handles and records the
// sizes its constructor calls asked for. The handles go before the
// first parameter with a default or a star, so the master's positional
// call binds them and the parameter list stays valid. Only integer-literal sizes
// are recorded. A constructor name bound within the entry routine is
// not the library constructor and is left alone; names the unit
// defines at top level were prefixed by renaming and never match.
func (s SharedRegistry) Prepare(u *Unit) error {
	def := u.Entry
	handles := []string{CircuitHandle, PrimaryHandle, SecondaryHandle}

	insert := len(def.Params)
	for i, param := range def.Params {
		if param.Name != nil {
			for _, h := range handles {
				if param.Name.Name == h {
					return fmt.Errorf("%s: entry routine already has a parameter named %s", u.Path, h)
				}
			}
		}
		optional := param.Default != nil || param.Star == syntax.STAR || param.Star == syntax.STARSTAR
		if optional && insert == len(def.Params) {
			insert = i
		}
	}
	var added []*syntax.Param
	for _, h := range handles {
		added = append(added, &syntax.Param{Name: ident(h)})
	}
	params := append([]*syntax.Param{}, def.Params[:insert]...)
	params = append(params, added...)
	def.Params = append(params, def.Params[insert:]...)

	reg := s.registry()
	local := localNames(def)
	var pools Pools
	for _, stmt := range def.Body {
		syntax.Rewrite(stmt, func(x syntax.Expr) syntax.Expr {
			c, ok := x.(*syntax.CallExpr)
			if !ok {
				return x
			}
			fn, ok := c.Fn.(*syntax.Ident)
			if !ok || local[fn.Name] {
				return x
			}
			switch fn.Name {
			case reg.Circuit:
				pools = pools.max(Pools{sizeArg(c, 0, "num_qubits"), sizeArg(c, 1, "num_clbits")})
				return ident(CircuitHandle)
			case reg.Primary:
				pools = pools.max(Pools{Primary: sizeArg(c, 0, "size")})
				return ident(PrimaryHandle)
			case reg.Secondary:
				pools = pools.max(Pools{Secondary: sizeArg(c, 0, "size")})
				return ident(SecondaryHandle)
			}
			return x
		})
	}
	u.Pools = pools
	return nil
}

// sizeArg returns the integer literal passed to c as its i'th
// positional argument or as the named keyword argument, or zero.
func sizeArg(c *syntax.CallExpr, i int, keyword string) int {
	pos := 0
	for _, arg := range c.Args {
		if b, ok := arg.(*syntax.BinaryExpr); ok && b.Op == syntax.EQ {
			if isName(b.X, keyword) {
				n, _ := intValue(b.Y)
				return n
			}
			continue
		}
		if u, ok := arg.(*syntax.UnaryExpr); ok && (u.Op == syntax.STAR || u.Op == syntax.STARSTAR) {
			continue
		}
		if pos == i {
			n, _ := intValue(arg)
			return n
		}
		pos++
	}
	return 0
}

// localNames returns the names bound anywhere within def: its
// parameters and every name bound in its body, nested functions
// included.
func localNames(def *syntax.DefStmt) map[string]bool {
	names := make(map[string]bool)
	for _, param := range def.Params {
		if param.Name != nil {
			names[param.Name.Name] = true
		}
	}
	var target func(x syntax.Expr)
	target = func(x syntax.Expr) {
		switch x := x.(type) {
		case *syntax.Ident:
			names[x.Name] = true
		case *syntax.TupleExpr:
			for _, elem := range x.List {
				target(elem)
			}
		case *syntax.ListExpr:
			for _, elem := range x.List {
				target(elem)
			}
		case *syntax.ParenExpr:
			target(x.X)
		case *syntax.UnaryExpr:
			target(x.X)
		}
	}
	for _, stmt := range def.Body {
		syntax.Walk(stmt, func(n syntax.Node) bool {
			switch n := n.(type) {
			case *syntax.AssignStmt:
				target(n.LHS)
				for _, t := range n.Chain {
					target(t)
				}
			case *syntax.ForStmt:
				target(n.Vars)
			case *syntax.ForClause:
				target(n.Vars)
			case *syntax.WithItem:
				if n.As != nil {
					target(n.As)
				}
			case *syntax.ExceptClause:
				if n.Name != nil {
					names[n.Name.Name] = true
				}
			case *syntax.DefStmt:
				names[n.Name.Name] = true
				for _, param := range n.Params {
					if param.Name != nil {
						names[param.Name.Name] = true
					}
				}
			case *syntax.ClassStmt:
				names[n.Name.Name] = true
			case *syntax.ImportStmt:
				for _, name := range n.BoundNames() {
					names[name] = true
				}
			case *syntax.LambdaExpr:
				for _, param := range n.Params {
					if param.Name != nil {
						names[param.Name.Name] = true
					}
				}
			}
			return true
		})
	}
	return names
}

// Prologue returns nothing; the registry needs no switches.
func (SharedRegistry) Prologue(*ImportSet) []syntax.Stmt { return nil }

// Master returns
//
//	def main():
//	    qr = QuantumRegister(P, 'q')
//	    cr = ClassicalRegister(S, 'c')
//	    qc = QuantumCircuit(qr, cr)
//	    c0_main(qc, qr, cr)
//	    ...
//	    return qc
//
// where P and S are the largest sizes requested by any unit, at least 1.
func (s SharedRegistry) Master(units []*Unit) *syntax.DefStmt {
	reg := s.registry()
	size := s.Size(units)
	body := []syntax.Stmt{
		assign(PrimaryHandle, call(ident(reg.Primary), intLit(size.Primary), strLit("q", "'"))),
		assign(SecondaryHandle, call(ident(reg.Secondary), intLit(size.Secondary), strLit("c", "'"))),
		assign(CircuitHandle, call(ident(reg.Circuit), ident(PrimaryHandle), ident(SecondaryHandle))),
	}
	if len(units) == 0 {
		body = append(body, &syntax.BranchStmt{Token: syntax.PASS})
	}
	for _, u := range units {
		body = append(body, exprStmt(call(ident(u.EntryName()),
			ident(CircuitHandle), ident(PrimaryHandle), ident(SecondaryHandle))))
	}
	body = append(body, &syntax.ReturnStmt{Result: ident(CircuitHandle)})
	return master(body)
}

// DiffTest returns
//
//	qt = qiskitTesting()
//	qt.opt_ks_test(main(), tag)
func (SharedRegistry) DiffTest(tag int) []syntax.Stmt {
	return []syntax.Stmt{
		assign("qt", call(ident("qiskitTesting"))),
		exprStmt(call(dot(ident("qt"), "opt_ks_test"), call(ident(EntryName)), intLit(tag))),
	}
}

// Size returns the pool sizes the master routine allocates for units.
func (SharedRegistry) Size(units []*Unit) Pools {
	size := Pools{1, 1}
	for _, u := range units {
		size = size.max(u.Pools)
	}
	return size
}
