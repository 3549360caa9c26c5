// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The qmerge command merges generated circuit programs into combined
// differential-testing modules.
package main // import "github.com/qfuzz/qmerge/cmd/qmerge"

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/qfuzz/qmerge/internal/config"
	"github.com/qfuzz/qmerge/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "qmerge",
	Short: "Merge generated circuit programs into combined test modules",
	Long: `qmerge combines independently generated quantum-circuit programs into
one Python module with a single entry routine and a differential-test call.`,
	SilenceUsage:      true,
	PersistentPreRunE: setColor,
}

func init() {
	rootCmd.AddCommand(assembleCmd, batchCmd, inspectCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("config", "", "TOML configuration `file`")
	rootCmd.PersistentFlags().String("log-file", "", "append JSON logs to `file`")
	rootCmd.PersistentFlags().String("log-level", "", "minimum log level (debug|info|warn|error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setColor(cmd *cobra.Command, args []string) error {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return err
	}
	switch mode {
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color %q, want auto, on or off", mode)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// loadConfig returns the configuration named by --config, overridden
// by the persistent flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	path, err := flags.GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if flags.Changed("log-file") {
		cfg.LogFile, _ = flags.GetString("log-file")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("convention") {
		cfg.Convention, _ = flags.GetString("convention")
	}
	return cfg, nil
}

// newLogger returns the logger cfg describes, with console output on
// stderr, and its closer.
func newLogger(cfg config.Config) (*zap.Logger, func() error, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return logging.New(logging.Options{File: cfg.LogFile, Console: os.Stderr, Level: level})
}

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed, color.Bold)
)
