// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assemble_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/qfuzz/qmerge/assemble"
	"github.com/qfuzz/qmerge/syntax"
)

// writeUnits writes each source to its own file and returns the paths.
func writeUnits(t *testing.T, srcs ...string) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for i, src := range srcs {
		path := filepath.Join(dir, fmt.Sprintf("circuit%d.py", i))
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}
	return paths
}

func observed(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

const guppyHelper = `from guppylang import guppy
from guppylang.std.quantum import qubit, h, measure

@guppy
def helper(q: qubit) -> None:
    h(q)

@guppy
def main(q: qubit) -> None:
    helper(q)

main.compile()
`

const guppyArray = `import guppylang
from guppylang import guppy
from guppylang.std.builtins import array
from guppylang.std.quantum import qubit, x, measure_array

guppylang.enable_experimental_features()

@guppy
def main(qs: array[qubit, 3] @ owned, n: int) -> None:
    for q in qs:
        x(q)
`

func TestCapture(t *testing.T) {
	paths := writeUnits(t, guppyHelper, guppyArray)
	logger, logs := observed(zap.InfoLevel)
	f, report, err := assemble.Build(context.Background(), paths, 7, assemble.Options{
		Strategy: assemble.Capture{},
		Logger:   logger,
	})
	if err != nil {
		t.Fatal(err)
	}
	const want = `from diff_testing.lib import guppyTesting
from guppylang import guppy
from guppylang.std.quantum import qubit, h, measure
import guppylang
from guppylang.std.builtins import array
from guppylang.std.quantum import qubit, x, measure_array
guppylang.enable_experimental_features()

@guppy
def c0_helper(q: qubit) -> None:
    h(q)

@guppy
def c0_main(q: qubit) -> None:
    c0_helper(q)

@guppy
def c1_main(qs: array[qubit, 3] @ owned, n: int) -> None:
    for q in qs:
        x(q)

@guppy
def main() -> None:
    c0_main_q = qubit()
    c0_main(c0_main_q)
    result("c0_main.q", measure(c0_main_q))
    c1_main_qs = array(qubit() for _ in range(3))
    c1_main(c1_main_qs)
    result("c1_main.qs", measure_array(c1_main_qs))

gt = guppyTesting()
gt.ks_diff_test(main, 7)
`
	if diff := cmp.Diff(want, syntax.Format(f)); diff != "" {
		t.Errorf("combined module mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(paths, report.Used()); diff != "" {
		t.Errorf("used units mismatch (-want +got):\n%s", diff)
	}
	if len(report.Skipped) != 0 {
		t.Errorf("unexpected skips: %v", report.Skipped)
	}
	if got := report.Units[0].Dropped; got != 1 {
		t.Errorf("unit 0 dropped %d statements, want 1 (the compile call)", got)
	}
	if got := report.Units[1].Dropped; got != 1 {
		t.Errorf("unit 1 dropped %d statements, want 1 (the feature switch)", got)
	}
	// The int parameter is reported but not materialized.
	entries := logs.FilterMessage("parameter not materialized").All()
	if len(entries) != 1 || entries[0].ContextMap()["param"] != "n" {
		t.Errorf("got log entries %v, want one for param n", entries)
	}
}

func TestCaptureNoGuppylangModule(t *testing.T) {
	const src = `from guppylang import guppy
from guppylang.std.quantum import qubit

@guppy
def main() -> None:
    q = qubit()
`
	f, _, err := assemble.Build(context.Background(), writeUnits(t, src), 1, assemble.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if out := syntax.Format(f); strings.Contains(out, "enable_experimental_features") {
		t.Errorf("feature switch emitted without a guppylang import:\n%s", out)
	}
}

func TestSkipsBrokenUnits(t *testing.T) {
	const noEntry = `def helper():
    pass
`
	paths := writeUnits(t, guppyHelper, "def main(:\n", noEntry, guppyHelper)
	paths = append(paths, filepath.Join(t.TempDir(), "missing.py"))
	logger, logs := observed(zap.ErrorLevel)
	f, report, err := assemble.Build(context.Background(), paths, 2, assemble.Options{Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{paths[0], paths[3]}, report.Used()); diff != "" {
		t.Errorf("used units mismatch (-want +got):\n%s", diff)
	}
	if got := len(report.Skipped); got != 3 {
		t.Fatalf("got %d skipped units, want 3: %v", got, report.Skipped)
	}
	var syntaxErr syntax.Error
	if !errors.As(report.Skipped[0].Err, &syntaxErr) {
		t.Errorf("skip 0: got %v, want a syntax error", report.Skipped[0].Err)
	}
	if !errors.Is(report.Skipped[1].Err, assemble.ErrNoEntry) {
		t.Errorf("skip 1: got %v, want ErrNoEntry", report.Skipped[1].Err)
	}
	if !errors.Is(report.Skipped[2].Err, os.ErrNotExist) {
		t.Errorf("skip 2: got %v, want a missing file", report.Skipped[2].Err)
	}
	skips := logs.FilterMessage("skipping unit").All()
	if got := len(skips); got != 3 {
		t.Errorf("logged %d skipped units, want 3", got)
	}
	for _, entry := range skips {
		if entry.Level != zap.ErrorLevel {
			t.Errorf("skipped unit logged at %s, want error", entry.Level)
		}
	}

	// Units keep the prefix of their input position.
	out := syntax.Format(f)
	for _, name := range []string{"def c0_main(", "def c3_main(", "    c3_main(c3_main_q)"} {
		if !strings.Contains(out, name) {
			t.Errorf("combined module lacks %q:\n%s", name, out)
		}
	}
}

func TestNoUnits(t *testing.T) {
	for _, test := range []struct {
		strategy assemble.Strategy
		want     string
	}{
		{assemble.Capture{}, `from diff_testing.lib import guppyTesting

@guppy
def main() -> None:
    pass

gt = guppyTesting()
gt.ks_diff_test(main, 0)
`},
		{assemble.SharedRegistry{}, `from diff_testing.lib import qiskitTesting
from qiskit import QuantumCircuit, QuantumRegister, ClassicalRegister

def main():
    qr = QuantumRegister(1, 'q')
    cr = ClassicalRegister(1, 'c')
    qc = QuantumCircuit(qr, cr)
    pass
    return qc

qt = qiskitTesting()
qt.opt_ks_test(main(), 0)
`},
	} {
		f, report, err := assemble.Build(context.Background(), nil, 0, assemble.Options{Strategy: test.strategy})
		if err != nil {
			t.Fatalf("%s: %v", test.strategy.Name(), err)
		}
		if diff := cmp.Diff(test.want, syntax.Format(f)); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", test.strategy.Name(), diff)
		}
		if len(report.Units) != 0 {
			t.Errorf("%s: got %d units, want 0", test.strategy.Name(), len(report.Units))
		}
	}
}

const qiskitPlain = `from qiskit import QuantumCircuit

def main():
    qc = QuantumCircuit(2, 2)
    qc.h(0)
    qc.cx(0, 1)
    qc.measure([0, 1], [0, 1])
    return qc
`

const qiskitRegisters = `from qiskit import QuantumCircuit, QuantumRegister, ClassicalRegister

def layer(circ, n):
    for i in range(n):
        circ.h(i)

def main():
    q = QuantumRegister(5)
    c = ClassicalRegister(1)
    circ = QuantumCircuit(q, c)
    layer(circ, 5)
    return circ

if __name__ == "__main__":
    main()
`

func TestSharedRegistry(t *testing.T) {
	paths := writeUnits(t, qiskitPlain, qiskitRegisters)
	f, report, err := assemble.Build(context.Background(), paths, 4, assemble.Options{
		Strategy: assemble.SharedRegistry{},
	})
	if err != nil {
		t.Fatal(err)
	}
	const want = `from diff_testing.lib import qiskitTesting
from qiskit import QuantumCircuit, QuantumRegister, ClassicalRegister
from qiskit import QuantumCircuit

def c0_main(qc, qr, cr):
    qc = qc
    qc.h(0)
    qc.cx(0, 1)
    qc.measure([0, 1], [0, 1])
    return qc

def c1_layer(circ, n):
    for i in range(n):
        circ.h(i)

def c1_main(qc, qr, cr):
    q = qr
    c = cr
    circ = qc
    c1_layer(circ, 5)
    return circ

def main():
    qr = QuantumRegister(5, 'q')
    cr = ClassicalRegister(2, 'c')
    qc = QuantumCircuit(qr, cr)
    c0_main(qc, qr, cr)
    c1_main(qc, qr, cr)
    return qc

qt = qiskitTesting()
qt.opt_ks_test(main(), 4)
`
	if diff := cmp.Diff(want, syntax.Format(f)); diff != "" {
		t.Errorf("combined module mismatch (-want +got):\n%s", diff)
	}

	// Every unit's request fits the unified pools.
	size := assemble.SharedRegistry{}.Size(report.Units)
	for _, u := range report.Units {
		if u.Pools.Primary > size.Primary || u.Pools.Secondary > size.Secondary {
			t.Errorf("unit %d requests %+v, exceeding %+v", u.Index, u.Pools, size)
		}
	}
	if want := (assemble.Pools{Primary: 5, Secondary: 2}); size != want {
		t.Errorf("Size = %+v, want %+v", size, want)
	}
}

func TestSharedRegistryPrepare(t *testing.T) {
	for _, test := range []struct {
		name, src, want string
		pools           assemble.Pools
	}{
		{
			name: "keywords",
			src: `def main():
    return QuantumCircuit(num_qubits=3, num_clbits=4)
`,
			want: `def c0_main(qc, qr, cr):
    return qc
`,
			pools: assemble.Pools{Primary: 3, Secondary: 4},
		},
		{
			name: "nested constructors",
			src: `def main():
    return QuantumCircuit(QuantumRegister(2, "a"), ClassicalRegister(size=6))
`,
			want: `def c0_main(qc, qr, cr):
    return qc
`,
			pools: assemble.Pools{Primary: 2, Secondary: 6},
		},
		{
			name: "non-literal size",
			src: `def main():
    n = 4
    return QuantumCircuit(n)
`,
			want: `def c0_main(qc, qr, cr):
    n = 4
    return qc
`,
		},
		{
			name: "locally bound constructor",
			src: `def main(factory):
    QuantumCircuit = factory
    return QuantumCircuit(3)
`,
			want: `def c0_main(factory, qc, qr, cr):
    QuantumCircuit = factory
    return QuantumCircuit(3)
`,
		},
		{
			name: "unit-defined constructor",
			src: `def QuantumCircuit(n):
    return n

def main(*args):
    return QuantumCircuit(3)
`,
			want: `def c0_QuantumCircuit(n):
    return n

def c0_main(qc, qr, cr, *args):
    return c0_QuantumCircuit(3)
`,
		},
		{
			name: "defaulted parameter",
			src: `def main(depth=2):
    qc = QuantumCircuit(2)
    return qc
`,
			want: `def c0_main(qc, qr, cr, depth=2):
    qc = qc
    return qc
`,
			pools: assemble.Pools{Primary: 2},
		},
		{
			name: "positional-only defaults",
			src: `def main(a, /, b=1, *, c):
    return QuantumRegister(a)
`,
			want: `def c0_main(a, /, qc, qr, cr, b=1, *, c):
    return qr
`,
		},
	} {
		f, err := syntax.Parse("unit.py", test.src, 0)
		if err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		u, err := assemble.NewUnit(0, f)
		if err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		if err := (assemble.SharedRegistry{}).Prepare(u); err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		got := syntax.Format(&syntax.File{Stmts: u.Body})
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", test.name, diff)
		}
		if u.Pools != test.pools {
			t.Errorf("%s: Pools = %+v, want %+v", test.name, u.Pools, test.pools)
		}
	}
}

// TestSharedRegistryDefaults checks that an entry routine with only
// defaulted parameters yields a module that parses and whose master
// call binds the handles.
func TestSharedRegistryDefaults(t *testing.T) {
	const src = `from qiskit import QuantumCircuit

def main(depth=2):
    qc = QuantumCircuit(2)
    for _ in range(depth):
        qc.h(0)
    return qc
`
	paths := writeUnits(t, src)
	f, _, err := assemble.Build(context.Background(), paths, 1, assemble.Options{
		Strategy: assemble.SharedRegistry{},
	})
	if err != nil {
		t.Fatal(err)
	}
	out := syntax.Format(f)
	if _, err := syntax.Parse("combined.py", out, 0); err != nil {
		t.Fatalf("combined module does not parse: %v\n%s", err, out)
	}
	for _, want := range []string{
		"def c0_main(qc, qr, cr, depth=2):\n",
		"    c0_main(qc, qr, cr)\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("combined module lacks %q:\n%s", want, out)
		}
	}
}

func TestSharedRegistryHandleClash(t *testing.T) {
	f, err := syntax.Parse("unit.py", "def main(qc):\n    return qc\n", 0)
	if err != nil {
		t.Fatal(err)
	}
	u, err := assemble.NewUnit(0, f)
	if err != nil {
		t.Fatal(err)
	}
	if err := (assemble.SharedRegistry{}).Prepare(u); err == nil {
		t.Error("Prepare accepted an entry routine with a qc parameter")
	}
	if got := len(u.Entry.Params); got != 1 {
		t.Errorf("rejected entry routine has %d parameters, want 1", got)
	}
}

func TestCustomRegistry(t *testing.T) {
	s := assemble.SharedRegistry{Registry: assemble.Registry{
		Circuit:   "Circuit",
		Primary:   "QReg",
		Secondary: "CReg",
	}}
	paths := writeUnits(t, "def main():\n    return Circuit(QReg(3))\n")
	f, _, err := assemble.Build(context.Background(), paths, 1, assemble.Options{Strategy: s})
	if err != nil {
		t.Fatal(err)
	}
	out := syntax.Format(f)
	for _, want := range []string{
		"from qiskit import Circuit, QReg, CReg\n",
		"    return qc\n",
		"    qr = QReg(3, 'q')\n",
		"    qc = Circuit(qr, cr)\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("combined module lacks %q:\n%s", want, out)
		}
	}
}

func TestMalformedImport(t *testing.T) {
	const src = `from . import helpers
from guppylang import guppy

@guppy
def main() -> None:
    pass
`
	paths := writeUnits(t, src)
	logger, logs := observed(zap.ErrorLevel)
	f, report, err := assemble.Build(context.Background(), paths, 1, assemble.Options{Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	if got := logs.FilterMessage("dropping import").FilterField(zap.String("path", paths[0])).Len(); got != 1 {
		t.Errorf("logged %d dropped imports at error level, want 1", got)
	}
	if len(report.Imports) != 1 || !errors.Is(report.Imports[0].Err, assemble.ErrMalformedImport) {
		t.Errorf("got import skips %v, want one ErrMalformedImport", report.Imports)
	}
	if len(report.Units) != 1 {
		t.Errorf("unit with a malformed import was skipped")
	}
	if out := syntax.Format(f); strings.Contains(out, "from . import") {
		t.Errorf("relative import kept:\n%s", out)
	}
}

// TestImportIdempotence checks that merging a unit list with itself
// yields the same imports as merging it once.
func TestImportIdempotence(t *testing.T) {
	paths := writeUnits(t, guppyHelper, guppyArray)
	imports := func(paths []string) []string {
		f, _, err := assemble.Build(context.Background(), paths, 0, assemble.Options{})
		if err != nil {
			t.Fatal(err)
		}
		var keys []string
		for _, stmt := range f.Stmts {
			if imp, ok := stmt.(*syntax.ImportStmt); ok {
				keys = append(keys, assemble.Key(imp))
			}
		}
		return keys
	}
	once := imports(paths)
	twice := imports(append(append([]string{}, paths...), paths...))
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("imports differ (-once +twice):\n%s", diff)
	}
}

func TestAssembleWritesOutput(t *testing.T) {
	paths := writeUnits(t, guppyHelper)
	output := filepath.Join(t.TempDir(), "combined.py")
	report, err := assemble.Assemble(context.Background(), paths, output, 9, assemble.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Output != output {
		t.Errorf("Output = %q, want %q", report.Output, output)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := syntax.Parse(output, data, 0); err != nil {
		t.Errorf("written module does not parse: %v", err)
	}
	if !strings.HasSuffix(string(data), "gt.ks_diff_test(main, 9)\n") {
		t.Errorf("written module lacks the tagged test call:\n%s", data)
	}

	bad := filepath.Join(t.TempDir(), "no", "such", "dir", "out.py")
	if _, err := assemble.Assemble(context.Background(), paths, bad, 9, assemble.Options{}); err == nil {
		t.Error("Assemble into a missing directory succeeded")
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := assemble.Build(ctx, writeUnits(t, guppyHelper), 0, assemble.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Build with a cancelled context returned %v", err)
	}
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"capture", "shared-registry"} {
		s, err := assemble.Lookup(name)
		if err != nil {
			t.Errorf("Lookup(%q): %v", name, err)
			continue
		}
		if s.Name() != name {
			t.Errorf("Lookup(%q).Name() = %q", name, s.Name())
		}
	}
	if _, err := assemble.Lookup("splice"); err == nil {
		t.Error("Lookup of an unknown convention succeeded")
	}
}
