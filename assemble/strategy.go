// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assemble

import (
	"fmt"

	"github.com/qfuzz/qmerge/syntax"
)

// A Strategy is a convention for merging units into one program.
// It contributes the harness imports, prepares each unit's entry
// routine, and synthesizes the master routine and the
// differential-test invocation.
//
// Strategies keep no state between calls; per-unit results are
// recorded in the Unit, so one Strategy may serve concurrent builds.
type Strategy interface {
	Name() string

	// Harness returns the imports the combined module always needs.
	Harness() []*syntax.ImportStmt

	// Prepare inspects or rewrites u.Entry. An error skips the unit.
	Prepare(u *Unit) error

	// Prologue returns the statements that follow the imports.
	Prologue(imports *ImportSet) []syntax.Stmt

	// Master returns the master routine calling every unit's entry.
	Master(units []*Unit) *syntax.DefStmt

	// DiffTest returns the invocation of the differential test.
	DiffTest(tag int) []syntax.Stmt
}

// Strategies lists the available conventions by name.
var Strategies = map[string]Strategy{
	"capture":         Capture{},
	"shared-registry": SharedRegistry{},
}

// Lookup returns the named strategy.
func Lookup(name string) (Strategy, error) {
	s, ok := Strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown convention %q (want capture or shared-registry)", name)
	}
	return s, nil
}

// master returns an unannotated def of the master routine;
// an empty body is printed as pass.
func master(body []syntax.Stmt) *syntax.DefStmt {
	return &syntax.DefStmt{Name: ident(EntryName), Body: body}
}
