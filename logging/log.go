// Copyright (C) 2022-2023 Algorand, Inc.
// This file is part of beaker-go
//
// beaker-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// beaker-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with beaker-go.  If not, see <https://www.gnu.org/licenses/>.

// Package logging wraps logrus behind the Logger interface used throughout
// the library.
package logging

import (
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

// Level refers to the log logging level
type Level uint32

const (
	// Error Level level. Used for errors that should definitely be noted.
	Error Level = iota + 2
	// Warn Level level. Non-critical entries that deserve eyes.
	Warn
	// Info Level level. General operational entries about what's going on inside the
	// application.
	Info
	// Debug Level level. Usually only enabled when debugging. Very verbose logging.
	Debug
)

// Fields maps logrus fields
type Fields = logrus.Fields

// Logger is the interface for loggers.
type Logger interface {
	// Debugf logs a message at level Debug.
	Debugf(string, ...interface{})

	// Infof logs a message at level Info.
	Infof(string, ...interface{})

	// Warnf logs a message at level Warn.
	Warnf(string, ...interface{})

	// Errorf logs a message at level Error.
	Errorf(string, ...interface{})

	// With returns a logger with the key/value pair attached to every entry.
	With(key string, value interface{}) Logger

	// WithFields returns a logger with several fields attached to every entry.
	WithFields(Fields) Logger

	// SetLevel sets the logging level of the logger.
	SetLevel(Level)

	// SetOutput sets the output destination of the logger.
	SetOutput(io.Writer)
}

type logger struct {
	entry *logrus.Entry
}

func (l logger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l logger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l logger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l logger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l logger) With(key string, value interface{}) Logger {
	return logger{entry: l.entry.WithField(key, value)}
}

func (l logger) WithFields(fields Fields) Logger {
	return logger{entry: l.entry.WithFields(fields)}
}

func (l logger) SetLevel(lvl Level) {
	l.entry.Logger.SetLevel(logrus.Level(lvl))
}

func (l logger) SetOutput(w io.Writer) {
	l.entry.Logger.SetOutput(w)
}

var baseLogger Logger
var once sync.Once

// Init needs to be called to ensure our logging has been initialized
func Init() {
	once.Do(func() {
		// By default, log to stderr (logrus's default), only warnings and above.
		baseLogger = NewLogger()
		baseLogger.SetLevel(Warn)
	})
}

func init() {
	Init()
}

// Base returns the default Logger logging to stderr.
func Base() Logger {
	Init()
	return baseLogger
}

// NewLogger returns a new Logger logging to stderr.
func NewLogger() Logger {
	l := logrus.New()
	return logger{entry: logrus.NewEntry(l)}
}

// TestingLog returns a Logger that writes to the given testing.TB.
func TestingLog(tb testing.TB) Logger {
	l := logrus.New()
	l.SetOutput(testingWriter{tb})
	l.SetLevel(logrus.DebugLevel)
	return logger{entry: logrus.NewEntry(l)}
}

type testingWriter struct {
	tb testing.TB
}

func (w testingWriter) Write(p []byte) (int, error) {
	w.tb.Log(string(p))
	return len(p), nil
}
