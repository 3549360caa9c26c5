// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assemble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/qfuzz/qmerge/syntax"
)

// ErrMalformedImport is reported for an import that cannot appear in
// a standalone combined module, such as a relative import.
var ErrMalformedImport = errors.New("malformed import")

// An ImportSet accumulates the import statements of all units,
// keeping the first occurrence of each distinct statement.
// Statements are compared by their printed form.
type ImportSet struct {
	seen   map[string]bool
	list   []*syntax.ImportStmt
	future []*syntax.ImportStmt
	bound  map[string]bool
}

// NewImportSet returns a set holding the seed statements,
// which are listed first and never repeated.
func NewImportSet(seed ...*syntax.ImportStmt) *ImportSet {
	s := &ImportSet{seen: make(map[string]bool), bound: make(map[string]bool)}
	for _, stmt := range seed {
		if _, err := s.Add(stmt); err != nil {
			panic(err) // seeds are synthesized by this package
		}
	}
	return s
}

// Key returns the canonical text by which imports are compared.
func Key(stmt *syntax.ImportStmt) string {
	return strings.TrimSpace(syntax.FormatStmt(stmt))
}

// Add adds stmt to the set and reports whether it was new.
// A relative import is rejected with an error wrapping
// ErrMalformedImport.
func (s *ImportSet) Add(stmt *syntax.ImportStmt) (bool, error) {
	key := Key(stmt)
	if stmt.Level > 0 {
		return false, fmt.Errorf("%s: relative import in a combined module: %w", key, ErrMalformedImport)
	}
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	for _, name := range stmt.BoundNames() {
		s.bound[name] = true
	}
	// A __future__ import must precede every other statement.
	if stmt.IsFrom() && len(stmt.Module) == 1 && stmt.Module[0].Name == "__future__" {
		s.future = append(s.future, stmt)
	} else {
		s.list = append(s.list, stmt)
	}
	return true, nil
}

// Binds reports whether some statement in the set binds name.
func (s *ImportSet) Binds(name string) bool { return s.bound[name] }

// Len returns the number of statements in the set.
func (s *ImportSet) Len() int { return len(s.future) + len(s.list) }

// List returns the statements in first-seen order,
// __future__ imports first.
func (s *ImportSet) List() []*syntax.ImportStmt {
	list := make([]*syntax.ImportStmt, 0, s.Len())
	list = append(list, s.future...)
	return append(list, s.list...)
}
