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

package errors

import (
	"math"
	"strconv"
)

// Message is a function type that generates error messages based on error codes.
// Packages register one Message function for their whole code range.
type Message func(code CodeError) (message string)

// CodeError represents a numeric error code classifying an error kind.
// It is a uint16 allowing codes from 0 to 65535. Each package of this
// module owns a contiguous range declared in modules.go.
type CodeError uint16

const (
	// UnknownError represents an error with no specific code (0).
	// Used as a fallback when error code cannot be determined.
	UnknownError CodeError = 0

	// UnknownMessage is the default message for UnknownError.
	UnknownMessage = "unknown error"

	// NullMessage represents an empty error message.
	NullMessage = ""
)

// idMsgFct stores the mapping between registered base codes and their
// message functions.
var idMsgFct = make(map[CodeError]Message)

// ParseCodeError returns a CodeError value based on the input int64 value,
// clamping negative input to UnknownError and overflowing input to the
// maximum code.
func ParseCodeError(i int64) CodeError {
	if i < 0 {
		return UnknownError
	} else if i >= int64(math.MaxUint16) {
		return math.MaxUint16
	} else {
		return CodeError(i)
	}
}

// Uint16 returns the CodeError value as a uint16.
func (c CodeError) Uint16() uint16 {
	return uint16(c)
}

// Int returns the CodeError value as an int.
func (c CodeError) Int() int {
	return int(c)
}

// String returns the decimal string representation of the CodeError value.
func (c CodeError) String() string {
	return strconv.Itoa(c.Int())
}

// Message returns the registered message string for the CodeError value,
// or UnknownMessage if no message function covers the code.
func (c CodeError) Message() string {
	if c == UnknownError {
		return UnknownMessage
	}

	if f, ok := idMsgFct[findCodeBase(c)]; ok {
		if m := f(c); m != NullMessage {
			return m
		}
	}

	return UnknownMessage
}

// Error returns a new Error instance based on the CodeError value, adding
// the given optional parent errors to the hierarchy.
func (c CodeError) Error(parent ...error) Error {
	return newError(c, c.Message(), getFrame(), parent...)
}

// ErrorParent returns a new Error instance based on the CodeError value,
// adding the given non-nil parent errors to the hierarchy.
func (c CodeError) ErrorParent(parent ...error) Error {
	return c.Error(parent...)
}

// IfError returns a new Error instance if at least one of the given parent
// errors is not nil, or nil otherwise.
func (c CodeError) IfError(parent ...error) Error {
	var p = make([]error, 0, len(parent))

	for _, e := range parent {
		if e != nil {
			p = append(p, e)
		}
	}

	if len(p) < 1 {
		return nil
	}

	return c.Error(p...)
}

// RegisterIdFctMessage registers the message function for the given base
// code. The function covers every code from the base up to the next
// registered base.
func RegisterIdFctMessage(base CodeError, fct Message) {
	idMsgFct[base] = fct
}

// ExistInMapMessage checks if a message function covering the given code
// has been registered.
func ExistInMapMessage(code CodeError) bool {
	_, ok := idMsgFct[findCodeBase(code)]
	return ok
}

// findCodeBase returns the highest registered base code that is lower than
// or equal to the given code.
func findCodeBase(code CodeError) CodeError {
	var res CodeError

	for base := range idMsgFct {
		if base <= code && base > res {
			res = base
		}
	}

	return res
}
