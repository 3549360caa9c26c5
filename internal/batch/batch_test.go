// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package batch_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/qfuzz/qmerge/internal/batch"
	"github.com/qfuzz/qmerge/internal/runner"
	"github.com/qfuzz/qmerge/syntax"
)

const unit = `from guppylang import guppy
from guppylang.std.quantum import qubit, h

@guppy
def main(q: qubit) -> None:
    h(q)
`

func inputs(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("circuit%d.py", i))
		if err := os.WriteFile(path, []byte(unit), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}
	return paths
}

func TestSample(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	in := []string{"a", "b", "c", "d", "e"}
	for i := 0; i < 200; i++ {
		got := batch.Sample(rng, in, 2, 4)
		if len(got) < 2 || len(got) > 4 {
			t.Fatalf("sample of %d inputs, want 2 to 4", len(got))
		}
		seen := make(map[string]bool)
		for _, x := range got {
			if seen[x] {
				t.Fatalf("sample %v repeats %s", got, x)
			}
			seen[x] = true
		}
	}
	// The upper bound is capped at the number of inputs.
	if got := batch.Sample(rng, in[:2], 2, 9); len(got) != 2 {
		t.Errorf("got %d inputs, want 2", len(got))
	}
}

func TestRun(t *testing.T) {
	out := t.TempDir()
	opts := batch.Options{
		Inputs:     inputs(t, 4),
		OutputDir:  out,
		N:          6,
		MinFiles:   2,
		MaxFiles:   3,
		MaxRetries: 100,
		Jobs:       3,
		Seed:       42,
	}
	summary, err := batch.Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(summary.Combinations); got != 6 {
		t.Fatalf("got %d combinations, want 6", got)
	}
	if got := summary.Assembled(); got != 6 {
		t.Errorf("assembled %d combinations, want 6", got)
	}
	keys := make(map[string]bool)
	for i, c := range summary.Combinations {
		key := strings.Join(c.Inputs, ",")
		if keys[key] {
			t.Errorf("combination %v sampled twice", c.Inputs)
		}
		keys[key] = true
		if want := filepath.Join(out, fmt.Sprintf("assembled_circuit_%d.py", i)); c.Output != want {
			t.Errorf("output %q, want %q", c.Output, want)
		}
		data, err := os.ReadFile(c.Output)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := syntax.Parse(c.Output, data, 0); err != nil {
			t.Errorf("combination %d does not parse: %v", i, err)
		}
		if want := fmt.Sprintf("gt.ks_diff_test(main, %d)\n", i); !strings.HasSuffix(string(data), want) {
			t.Errorf("combination %d lacks its tag", i)
		}
	}

	// The seed determines the combinations.
	opts.OutputDir = t.TempDir()
	again, err := batch.Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	for i := range summary.Combinations {
		if diff := cmp.Diff(summary.Combinations[i].Inputs, again.Combinations[i].Inputs); diff != "" {
			t.Errorf("combination %d differs between runs with one seed:\n%s", i, diff)
		}
	}
}

func TestRunExhausted(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	summary, err := batch.Run(context.Background(), batch.Options{
		Inputs:     inputs(t, 2),
		OutputDir:  t.TempDir(),
		N:          5,
		MinFiles:   2,
		MaxFiles:   2,
		MaxRetries: 50,
		Seed:       7,
		Logger:     zap.New(core),
	})
	if err != nil {
		t.Fatal(err)
	}
	// Two inputs admit only two ordered pairs.
	if got := len(summary.Combinations); got != 2 {
		t.Errorf("got %d combinations, want 2", got)
	}
	if !summary.Exhausted || summary.Duplicates < 51 {
		t.Errorf("Exhausted = %t after %d duplicates", summary.Exhausted, summary.Duplicates)
	}
	if logs.FilterMessage("giving up sampling after consecutive duplicates").Len() != 1 {
		t.Error("exhaustion not logged")
	}
}

func TestRunTooFewInputs(t *testing.T) {
	_, err := batch.Run(context.Background(), batch.Options{
		Inputs:    inputs(t, 1),
		OutputDir: t.TempDir(),
		N:         1,
		MinFiles:  2,
		MaxFiles:  5,
	})
	if !errors.Is(err, batch.ErrTooFewInputs) {
		t.Errorf("got %v, want ErrTooFewInputs", err)
	}
}

func TestRunExecutes(t *testing.T) {
	ok, err := exec.LookPath("true")
	if err != nil {
		t.Skip("no true in PATH")
	}
	fail, err := exec.LookPath("false")
	if err != nil {
		t.Skip("no false in PATH")
	}
	for _, test := range []struct {
		python string
		wantOK int
	}{
		{ok, 3},
		{fail, 0},
	} {
		summary, err := batch.Run(context.Background(), batch.Options{
			Inputs:     inputs(t, 3),
			OutputDir:  t.TempDir(),
			N:          3,
			MinFiles:   1,
			MaxFiles:   1,
			MaxRetries: 100,
			Seed:       3,
			Runner:     &runner.Runner{Python: test.python},
		})
		if err != nil {
			t.Fatal(err)
		}
		ran, succeeded := summary.Ran()
		if ran != 3 || succeeded != test.wantOK {
			t.Errorf("%s: ran %d, %d succeeded; want 3, %d", test.python, ran, succeeded, test.wantOK)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := batch.Run(ctx, batch.Options{
		Inputs:     inputs(t, 3),
		OutputDir:  t.TempDir(),
		N:          2,
		MinFiles:   2,
		MaxFiles:   3,
		MaxRetries: 100,
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
