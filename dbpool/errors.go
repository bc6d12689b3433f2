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

package dbpool

import (
	liberr "github.com/nabbar/srvcore/errors"
)

const (
	ErrorParamsEmpty liberr.CodeError = iota + liberr.MinPkgDBPool
	ErrorValidatorError
	ErrorShuttingDown
	ErrorGetTimeout
	ErrorRange
	ErrorDeadlock
	ErrorDriverOpen
	ErrorDriverUnknown
)

func init() {
	liberr.RegisterIdFctMessage(ErrorParamsEmpty, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorParamsEmpty:
		return "given parameters is empty"
	case ErrorValidatorError:
		return "invalid config validation"
	case ErrorShuttingDown:
		return "handle pool is shutting down"
	case ErrorGetTimeout:
		return "handle acquire deadline expired"
	case ErrorRange:
		return "requested more handles than the pool maximum"
	case ErrorDeadlock:
		return "request would deadlock on handles already held"
	case ErrorDriverOpen:
		return "driver cannot open the datasource"
	case ErrorDriverUnknown:
		return "datasource driver is not known"
	}

	return liberr.NullMessage
}
