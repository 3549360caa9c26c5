// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resolve tracks the lexical scopes of a Python syntax tree
// and rewrites the references to a file's own global definitions.
//
// Python resolves a name used inside a function to a local binding
// if the function (or an enclosing one) binds it, and to a module
// global otherwise. The renamer approximates this with a stack of
// local-name sets that grows as it walks the tree: a name becomes
// local at its first binding, not for the whole function body, which
// is sufficient for the straight-line generated programs it serves.
//
// Class bodies form scopes too, but as in Python, names bound in a
// class body are not visible to the functions nested within it.
package resolve // import "github.com/qfuzz/qmerge/resolve"

// Scopes is a stack of local-name sets, one per active function,
// lambda, comprehension or class body. The zero value is an empty
// stack, ready to use.
type Scopes struct {
	stack []*scope
}

type scope struct {
	class    bool
	comp     bool // comprehension
	names    map[string]bool
	global   map[string]bool // names declared global in this scope
	nonlocal map[string]bool // names declared nonlocal in this scope
}

func newScope(class bool) *scope {
	return &scope{
		class:    class,
		names:    make(map[string]bool),
		global:   make(map[string]bool),
		nonlocal: make(map[string]bool),
	}
}

// Push enters a function scope.
func (s *Scopes) Push() { s.stack = append(s.stack, newScope(false)) }

// PushClass enters a class body.
func (s *Scopes) PushClass() { s.stack = append(s.stack, newScope(true)) }

// PushComprehension enters a comprehension or generator expression.
func (s *Scopes) PushComprehension() {
	sc := newScope(false)
	sc.comp = true
	s.stack = append(s.stack, sc)
}

// Pop leaves the innermost scope.
func (s *Scopes) Pop() {
	if len(s.stack) == 0 {
		panic("resolve: Pop of empty scope stack")
	}
	s.stack = s.stack[:len(s.stack)-1]
}

// Depth returns the number of active scopes.
func (s *Scopes) Depth() int { return len(s.stack) }

func (s *Scopes) top() *scope {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

// Bind records name as bound in the innermost scope and reports
// whether it did so. Outside any scope, and for names that the
// innermost scope declares global or nonlocal, Bind does nothing.
func (s *Scopes) Bind(name string) bool {
	top := s.top()
	if top == nil || top.global[name] || top.nonlocal[name] {
		return false
	}
	top.names[name] = true
	return true
}

// BindEnclosing is like Bind for the target of an assignment
// expression, which binds in the innermost scope that is not a
// comprehension. It reports false if there is none, or if that scope
// declares name global or nonlocal.
func (s *Scopes) BindEnclosing(name string) bool {
	for i := len(s.stack) - 1; i >= 0; i-- {
		sc := s.stack[i]
		if sc.comp {
			continue
		}
		if sc.global[name] || sc.nonlocal[name] {
			return false
		}
		sc.names[name] = true
		return true
	}
	return false
}

// DeclareGlobal records a global declaration in the innermost scope.
func (s *Scopes) DeclareGlobal(name string) {
	if top := s.top(); top != nil {
		top.global[name] = true
	}
}

// DeclareNonlocal records a nonlocal declaration in the innermost scope.
func (s *Scopes) DeclareNonlocal(name string) {
	if top := s.top(); top != nil {
		top.nonlocal[name] = true
	}
}

// IsLocal reports whether name is bound in an active scope.
// It scans from the innermost scope outwards and stops at the first
// match; enclosing class bodies are skipped, and a global declaration
// in the innermost scope makes the name non-local.
func (s *Scopes) IsLocal(name string) bool {
	for i := len(s.stack) - 1; i >= 0; i-- {
		sc := s.stack[i]
		if i == len(s.stack)-1 && sc.global[name] {
			return false
		}
		if sc.class && i != len(s.stack)-1 {
			continue
		}
		if sc.names[name] {
			return true
		}
	}
	return false
}
