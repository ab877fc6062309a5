// Copyright 2024 The libmemalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level gates a diagnostic message. The allocator never picks its own
// sink; it only ever emits through the Logger interface, which keeps the
// logging facility an external collaborator reached through an interface,
// per the package-level design notes.
type Level int

const (
	LevelDebug Level = iota
	LevelWarn
	LevelError
)

// Logger is the narrow interface the core depends on for diagnostics. A
// validator rejecting a corrupt header, a tail-shrink that failed, or a
// collector cycle that reclaimed blocks all go through here.
type Logger interface {
	Logf(level Level, format string, args ...interface{})
}

// NopLogger discards everything. It is the zero-dependency default for
// library embedding.
type NopLogger struct{}

func (NopLogger) Logf(Level, string, ...interface{}) {}

// logrusLogger adapts Logger onto a level-gated logrus.Logger.
type logrusLogger struct {
	lg *logrus.Logger
}

// NewLogrusLogger returns a Logger backed by logrus, writing to w (or
// os.Stderr if w is nil).
func NewLogrusLogger(w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	lg := logrus.New()
	lg.SetOutput(w)
	return &logrusLogger{lg: lg}
}

func (l *logrusLogger) Logf(level Level, format string, args ...interface{}) {
	switch level {
	case LevelDebug:
		l.lg.Debugf(format, args...)
	case LevelWarn:
		l.lg.Warnf(format, args...)
	default:
		l.lg.Errorf(format, args...)
	}
}
