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

// Package errors provides typed error handling with numeric error codes,
// stack trace capture and parent error hierarchy.
//
// Each package of this module owns a contiguous code range declared in
// modules.go and registers a message function for it. Errors created from
// a CodeError carry the code, the registered message, the runtime frame of
// the creation site and an optional chain of parent errors, while staying
// compatible with the standard errors.Is / errors.As helpers.
package errors

import (
	"runtime"
)

// Error is the extended error interface carried by every failure surfaced
// from this module. The error kind is its CodeError: callers switch on
// codes, never on message text.
type Error interface {
	error

	// Code returns the CodeError classifying this error.
	Code() CodeError

	// IsCode checks if this error is classified by the given code.
	IsCode(code CodeError) bool

	// HasCode checks if this error or any of its parents is classified by
	// the given code.
	HasCode(code CodeError) bool

	// Add appends the given non-nil errors to the parent hierarchy.
	Add(parent ...error)

	// AddParentError appends the given Error to the parent hierarchy.
	AddParentError(parent Error)

	// HasParent checks if the parent hierarchy is not empty.
	HasParent() bool

	// GetParent returns the flattened parent hierarchy. If mainErr is
	// true, the result includes this error first.
	GetParent(mainErr bool) []error

	// Is implements errors.Is target matching on code or message.
	Is(err error) bool

	// Unwrap exposes the parent chain to the standard errors package.
	Unwrap() []error

	// GetTrace returns the "file:line" string of the creation site.
	GetTrace() string
}

// Is mirrors the standard errors.Is on the module's Error type: it reports
// whether err carries the given code directly or through its parents.
func Is(err error, code CodeError) bool {
	if err == nil {
		return false
	}

	if e, ok := err.(Error); ok {
		return e.HasCode(code)
	}

	return false
}

// New returns a new Error with the given code, overriding the registered
// message with the given one.
func New(code CodeError, message string, parent ...error) Error {
	return newError(code, message, getFrame(), parent...)
}

// getFrame returns the runtime frame of the caller of the caller.
func getFrame() runtime.Frame {
	var (
		pc = make([]uintptr, 1)
		fr runtime.Frame
	)

	// skip runtime.Callers, getFrame and the exported constructor
	if n := runtime.Callers(3, pc); n > 0 {
		fr, _ = runtime.CallersFrames(pc).Next()
	}

	return fr
}
