/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package logger constructs the zap-backed logr.Logger used throughout the
// debug bridge.
package logger

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	verbosityFlagName      = "verbosity"
	verbosityFlagShortName = "v"
)

type Logger struct {
	logr.Logger

	name        string
	atomicLevel zap.AtomicLevel
	flush       func()
}

// New creates a logger that writes human-readable output to stderr.
// Verbosity defaults to 0 (info); raise it with SetVerbosity or the
// --verbosity flag registered via AddFlags.
func New(name string) *Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)

	atomicLevel := zap.NewAtomicLevel()

	core := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), atomicLevel)
	zapLogger := zap.New(core)

	return &Logger{
		Logger:      zapr.NewLogger(zapLogger).WithName(name),
		name:        name,
		atomicLevel: atomicLevel,
		flush: func() {
			_ = zapLogger.Sync()
		},
	}
}

// SetVerbosity sets the maximum enabled logr V-level.
// Level 0 enables Info and above; higher levels enable debug output.
func (l *Logger) SetVerbosity(level int) {
	// logr V-levels map onto negative zap levels.
	l.atomicLevel.SetLevel(zapcore.Level(-level))
}

// AddFlags registers the verbosity flag on the given flag set.
func (l *Logger) AddFlags(flags *pflag.FlagSet) {
	flags.VarP(&verbosityValue{logger: l}, verbosityFlagName, verbosityFlagShortName,
		"Log verbosity level (0 = info, higher values enable debug output)")
}

// Flush writes out any buffered log entries. Call before process exit.
func (l *Logger) Flush() {
	l.flush()
}

// verbosityValue adapts SetVerbosity to the pflag.Value interface.
type verbosityValue struct {
	logger *Logger
	level  int
}

func (v *verbosityValue) String() string {
	return fmt.Sprintf("%d", v.level)
}

func (v *verbosityValue) Set(value string) error {
	var level int
	if _, err := fmt.Sscanf(value, "%d", &level); err != nil {
		return fmt.Errorf("invalid verbosity %q: %w", value, err)
	}
	if level < 0 {
		return fmt.Errorf("verbosity must be non-negative, got %d", level)
	}
	v.level = level
	v.logger.SetVerbosity(level)
	return nil
}

func (v *verbosityValue) Type() string {
	return "int"
}
