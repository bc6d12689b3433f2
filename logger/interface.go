/*
 * MIT License
 *
 * Copyright (c) 2023 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package logger provides the structured logging facade used by every
// subsystem of this module, implemented over sirupsen/logrus.
//
// Subsystems never hold a concrete logger: they receive a FuncLog provider
// so the logger can be reconfigured or swapped while the subsystem runs.
package logger

import (
	"io"
)

// FuncLog is a function type that returns a Logger instance.
// This is used for dependency injection and lazy initialization of loggers.
type FuncLog func() Logger

// Fields are custom key/value pairs added to log entries.
type Fields map[string]interface{}

// Logger is the main interface for structured logging operations.
type Logger interface {
	io.Closer

	// SetLevel allows to change the minimal level of log message.
	SetLevel(lvl Level)

	// GetLevel returns the minimal level of log message.
	GetLevel() Level

	// SetFields allows to set or update the default fields added to all
	// entries of this logger.
	SetFields(fields Fields)

	// WithFields returns a child logger adding the given fields to the
	// default fields of this logger.
	WithFields(fields Fields) Logger

	// Debug adds an entry with DebugLevel to the logger.
	Debug(message string, args ...interface{})

	// Info adds an entry with InfoLevel to the logger.
	Info(message string, args ...interface{})

	// Warning adds an entry with WarnLevel to the logger.
	Warning(message string, args ...interface{})

	// Error adds an entry with ErrorLevel to the logger.
	Error(message string, args ...interface{})

	// Fatal adds an entry with FatalLevel to the logger then breaks the
	// process (os.Exit).
	Fatal(message string, args ...interface{})

	// CheckError logs err with lvlKO if err is not nil, or logs message
	// with lvlOK otherwise. It returns true if err is not nil.
	CheckError(lvlKO, lvlOK Level, message string, err error) bool

	// LogError logs err with ErrorLevel if err is not nil. It returns
	// true if err is not nil.
	LogError(message string, err error) bool
}

// New returns a new Logger with the given options applied.
func New(opt *Options) Logger {
	if opt == nil {
		opt = &Options{}
	}

	l := &lgr{}
	l.init(opt)

	return l
}

// Default returns a stderr logger at InfoLevel, used when a subsystem is
// given a nil FuncLog.
func Default() Logger {
	return New(nil)
}

// Provider wraps a Logger into a FuncLog, substituting Default when the
// given logger is nil.
func Provider(l Logger) FuncLog {
	if l == nil {
		l = Default()
	}

	return func() Logger {
		return l
	}
}
