// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log is the leveled logger shared by every package. It never writes
// to stdout, which belongs to the protocol stream.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level.
// Anything else is InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	}
	return InfoLevel
}

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger = newLogger(os.Stderr)
	closer io.Closer
)

func newLogger(w io.Writer) *zap.SugaredLogger {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeCaller = nil
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.AddSync(w), level)
	return zap.New(core).Sugar()
}

func SetLogLevel(l Level) {
	level.SetLevel(l.zapLevel())
}

// SetOutput redirects all subsequent log lines to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	_ = logger.Sync()
	if closer != nil {
		_ = closer.Close()
		closer = nil
	}
	logger = newLogger(w)
}

// SetOutputFile appends log lines to path instead of stderr.
func SetOutputFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	SetOutput(f)
	mu.Lock()
	closer = f
	mu.Unlock()
	return nil
}

// Sync flushes buffered log lines.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = logger.Sync()
}

// StdLogger bridges libraries that want a *log.Logger. Lines are logged at
// error level.
func StdLogger() *stdlog.Logger {
	l, err := zap.NewStdLogAt(get().Desugar(), zapcore.ErrorLevel)
	if err != nil {
		return zap.NewStdLog(get().Desugar())
	}
	return l
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// trailing newlines are a habit of the call sites; zap adds its own
func trim(format string) string {
	return strings.TrimRight(format, "\n")
}

func Debug(format string, args ...any) {
	get().Debugf(trim(format), args...)
}

func Info(format string, args ...any) {
	get().Infof(trim(format), args...)
}

func Warn(format string, args ...any) {
	get().Warnf(trim(format), args...)
}

func Error(format string, args ...any) {
	get().Errorf(trim(format), args...)
}
