// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the settings of a batch run.
//
// Settings come, in increasing order of precedence, from the
// defaults, an optional TOML file, the environment variables
// QMERGE_PYTHON and QMERGE_JOBS, and command-line flags, which the
// command applies itself.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"

	"github.com/qfuzz/qmerge/assemble"
)

// Config is the configuration of a batch run.
type Config struct {
	InputDir   string   `toml:"input_dir"`
	Pattern    string   `toml:"pattern"` // glob of input files within InputDir
	OutputDir  string   `toml:"output_dir"`
	N          int      `toml:"n"` // number of combinations
	MinFiles   int      `toml:"min_files"`
	MaxFiles   int      `toml:"max_files"`
	MaxRetries int      `toml:"max_retries"` // consecutive duplicate samples tolerated
	Convention string   `toml:"convention"`
	LogFile    string   `toml:"log_file"`
	LogLevel   string   `toml:"log_level"`
	Jobs       int      `toml:"jobs"` // 0 means one per CPU
	Seed       int64    `toml:"seed"` // 0 means time-seeded
	Run        Run      `toml:"run"`
	Registry   Registry `toml:"registry"`
}

// Run configures the execution of assembled programs.
type Run struct {
	Enabled    bool     `toml:"enabled"`
	Python     string   `toml:"python"`
	Timeout    Duration `toml:"timeout"`
	PythonPath []string `toml:"pythonpath"` // prepended to PYTHONPATH
}

// Registry overrides the constructor names of the shared-registry
// convention.
type Registry struct {
	Circuit   string `toml:"circuit"`
	Primary   string `toml:"primary"`
	Secondary string `toml:"secondary"`
}

// Duration is a time.Duration written as a string such as "90s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		InputDir:   ".",
		Pattern:    "circuit*.py",
		OutputDir:  "combined_circuits",
		N:          1,
		MinFiles:   2,
		MaxFiles:   5,
		MaxRetries: 1000,
		Convention: "capture",
		LogLevel:   "info",
		Run: Run{
			Python:  "python3",
			Timeout: Duration{Duration: 5 * time.Minute},
		},
	}
}

// Load returns the default configuration overlaid with the TOML file
// at path, if path is not empty, and with the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, key := range undecoded {
				keys[i] = key.String()
			}
			return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}
	cfg.Run.Python = env.Str("QMERGE_PYTHON", cfg.Run.Python)
	cfg.Jobs = env.Int("QMERGE_JOBS", cfg.Jobs)
	return cfg, nil
}

// Strategy returns the merge convention the configuration names.
func (c Config) Strategy() (assemble.Strategy, error) {
	s, err := assemble.Lookup(c.Convention)
	if err != nil {
		return nil, err
	}
	if _, ok := s.(assemble.SharedRegistry); ok && c.Registry != (Registry{}) {
		reg := assemble.DefaultRegistry
		if c.Registry.Circuit != "" {
			reg.Circuit = c.Registry.Circuit
		}
		if c.Registry.Primary != "" {
			reg.Primary = c.Registry.Primary
		}
		if c.Registry.Secondary != "" {
			reg.Secondary = c.Registry.Secondary
		}
		s = assemble.SharedRegistry{Registry: reg}
	}
	return s, nil
}

// Validate reports every inconsistency in c.
func (c Config) Validate() error {
	var errs []error
	if c.N < 0 {
		errs = append(errs, fmt.Errorf("n must not be negative, got %d", c.N))
	}
	if c.MinFiles < 1 {
		errs = append(errs, fmt.Errorf("min_files must be at least 1, got %d", c.MinFiles))
	}
	if c.MaxFiles < c.MinFiles {
		errs = append(errs, fmt.Errorf("max_files (%d) is less than min_files (%d)", c.MaxFiles, c.MinFiles))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries))
	}
	if c.Jobs < 0 {
		errs = append(errs, fmt.Errorf("jobs must not be negative, got %d", c.Jobs))
	}
	if c.Run.Enabled && c.Run.Timeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("run timeout must be positive, got %v", c.Run.Timeout))
	}
	if _, err := c.Strategy(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
