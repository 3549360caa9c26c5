// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logging builds the loggers of the qmerge command.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select the log destinations.
type Options struct {
	File    string        // JSON log file, appended to; none if empty
	Console io.Writer     // human-readable log; none if nil
	Level   zapcore.Level // minimum level of both destinations
}

// New returns a logger writing to the destinations in opts, and a
// function that flushes and closes them. With no destination the
// logger discards everything.
func New(opts Options) (*zap.Logger, func() error, error) {
	var cores []zapcore.Core
	var closers []io.Closer

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		closers = append(closers, f)
		enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(f), opts.Level))
	}
	if opts.Console != nil {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.TimeKey = ""
		enc := zapcore.NewConsoleEncoder(cfg)
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(opts.Console), opts.Level))
	}
	if len(cores) == 0 {
		return zap.NewNop(), func() error { return nil }, nil
	}

	logger := zap.New(zapcore.NewTee(cores...))
	closeAll := func() error {
		_ = logger.Sync() // fails harmlessly on terminals
		var first error
		for _, c := range closers {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	return logger, closeAll, nil
}

// ParseLevel parses a level name such as "debug" or "warn".
func ParseLevel(name string) (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return level, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}
