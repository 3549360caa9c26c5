// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/qfuzz/qmerge/assemble"
	"github.com/qfuzz/qmerge/internal/config"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qmerge.toml")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("QMERGE_PYTHON", "")
	t.Setenv("QMERGE_JOBS", "")
	path := writeConfig(t, `
input_dir = "generated"
n = 20
max_files = 3
convention = "shared-registry"

[run]
enabled = true
timeout = "90s"
pythonpath = ["/opt/harness"]

[registry]
circuit = "Circuit"
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := config.Default()
	want.InputDir = "generated"
	want.N = 20
	want.MaxFiles = 3
	want.Convention = "shared-registry"
	want.Run.Enabled = true
	want.Run.Timeout = config.Duration{Duration: 90 * time.Second}
	want.Run.PythonPath = []string{"/opt/harness"}
	want.Registry.Circuit = "Circuit"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	s, err := cfg.Strategy()
	if err != nil {
		t.Fatal(err)
	}
	reg := assemble.DefaultRegistry
	reg.Circuit = "Circuit"
	if diff := cmp.Diff(assemble.SharedRegistry{Registry: reg}, s); diff != "" {
		t.Errorf("Strategy mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("QMERGE_PYTHON", "/usr/bin/python3.12")
	t.Setenv("QMERGE_JOBS", "3")
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Run.Python != "/usr/bin/python3.12" || cfg.Jobs != 3 {
		t.Errorf("got python %q jobs %d, want environment values", cfg.Run.Python, cfg.Jobs)
	}
}

func TestLoadErrors(t *testing.T) {
	for _, test := range []struct {
		text, want string
	}{
		{`n = "many"`, "failed to parse TOML"},
		{`colour = "auto"`, "unknown keys: colour"},
		{"[run]\ntimeout = \"soon\"", "failed to parse TOML"},
	} {
		_, err := config.Load(writeConfig(t, test.text))
		if err == nil || !strings.Contains(err.Error(), test.want) {
			t.Errorf("Load(%q) error = %v, want %q", test.text, err, test.want)
		}
	}
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.MinFiles = 4
	cfg.MaxFiles = 2
	cfg.Convention = "splice"
	cfg.Run.Enabled = true
	cfg.Run.Timeout = config.Duration{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted an inconsistent configuration")
	}
	for _, want := range []string{"max_files (2) is less than min_files (4)", "unknown convention", "run timeout"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate error %q lacks %q", err, want)
		}
	}
	if err := config.Default().Validate(); err != nil {
		t.Errorf("default configuration is invalid: %v", err)
	}
}
