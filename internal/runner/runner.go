// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runner executes assembled programs with a Python interpreter.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is reported for a program killed at its deadline.
var ErrTimeout = errors.New("timed out")

// A Runner runs programs one at a time; it is safe for concurrent use.
type Runner struct {
	Python     string        // interpreter; "python3" if empty
	Timeout    time.Duration // per program; no limit if zero
	PythonPath []string      // directories prepended to PYTHONPATH
}

// A Result is the outcome of one run.
type Result struct {
	Path     string
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
	ExitCode int // -1 if the program did not exit normally
}

// Run runs the program at path and waits for it to finish.
// A non-zero exit status is an error wrapping *exec.ExitError; a run
// that exceeds the timeout is killed and its error wraps ErrTimeout.
// The result is returned in every case.
func (r Runner) Run(ctx context.Context, path string) (*Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	python := r.Python
	if python == "" {
		python = "python3"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, python, path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = r.environ()
	cmd.WaitDelay = time.Second // children holding the output pipes

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Path:     path,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Elapsed:  time.Since(start),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	switch {
	case err == nil:
		return res, nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return res, fmt.Errorf("%s: %w after %v", path, ErrTimeout, r.Timeout)
	default:
		return res, fmt.Errorf("%s: %w", path, err)
	}
}

// environ returns the environment of the child process.
func (r Runner) environ() []string {
	environ := os.Environ()
	if len(r.PythonPath) == 0 {
		return environ
	}
	dirs := append([]string{}, r.PythonPath...)
	for i, kv := range environ {
		if v, ok := strings.CutPrefix(kv, "PYTHONPATH="); ok {
			if v != "" {
				dirs = append(dirs, v)
			}
			environ = append(environ[:i:i], environ[i+1:]...)
			break
		}
	}
	return append(environ, "PYTHONPATH="+strings.Join(dirs, string(os.PathListSeparator)))
}
