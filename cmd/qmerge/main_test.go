// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
)

const unit = `from guppylang import guppy
from guppylang.std.quantum import qubit, h

def helper(q: qubit) -> None:
    h(q)

@guppy
def main(q: qubit, n: int) -> None:
    helper(q)

if __name__ == "__main__":
    main()
`

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestInspectFile(t *testing.T) {
	color.NoColor = true
	path := filepath.Join(t.TempDir(), "circuit.py")
	writeFile(t, path, unit)

	var out strings.Builder
	if err := inspectFile(&out, 1, path); err != nil {
		t.Fatal(err)
	}
	want := "# " + path + ` (c1_)
# globals: helper, main
# dropped 1 conflicting statements
@guppy
def c1_main(q: qubit, n: int) -> None:
    c1_helper(q)
# capture:
#   q: qubit
#   n: ?
# shared-registry: primary 0, secondary 0

`
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output differs (-want +got):\n%s", diff)
	}
}

func TestInspectFileNoEntry(t *testing.T) {
	color.NoColor = true
	path := filepath.Join(t.TempDir(), "circuit.py")
	writeFile(t, path, "def helper():\n    pass\n")

	var out strings.Builder
	err := inspectFile(&out, 0, path)
	if err == nil || !strings.Contains(err.Error(), "no entry routine") {
		t.Errorf("got error %v, want no entry routine", err)
	}
	if !strings.Contains(out.String(), "# globals: helper\n") {
		t.Errorf("globals missing from %q", out.String())
	}
}

// TestBatchCommand checks that flags override the configuration file.
func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")
	if err := os.Mkdir(in, 0o755); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		writeFile(t, filepath.Join(in, fmt.Sprintf("circuit%d.py", i)), unit)
	}
	writeFile(t, filepath.Join(in, "notes.py"), "syntax error(\n")
	cfg := filepath.Join(dir, "qmerge.toml")
	writeFile(t, cfg, fmt.Sprintf(`output_dir = %q
n = 3
min_files = 1
max_files = 1
seed = 9
`, out))

	rootCmd.SetArgs([]string{"batch", in, "--config", cfg, "--n", "2", "--color", "off", "--log-level", "error"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	want := []string{"assembled_circuit_0.py", "assembled_circuit_1.py"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("outputs differ (-want +got):\n%s", diff)
	}
}
