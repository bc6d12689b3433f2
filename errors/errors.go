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
	"fmt"
	"path"
	"runtime"
	"strings"
)

type ers struct {
	c CodeError
	e string
	p []Error
	t runtime.Frame
}

func newError(code CodeError, message string, frame runtime.Frame, parent ...error) Error {
	e := &ers{
		c: code,
		e: message,
		p: make([]Error, 0, len(parent)),
		t: frame,
	}

	e.Add(parent...)

	return e
}

func (e *ers) Code() CodeError {
	return e.c
}

func (e *ers) IsCode(code CodeError) bool {
	return e.c == code
}

func (e *ers) HasCode(code CodeError) bool {
	if e.IsCode(code) {
		return true
	}

	for _, p := range e.p {
		if p.HasCode(code) {
			return true
		}
	}

	return false
}

func (e *ers) Add(parent ...error) {
	for _, v := range parent {
		if v == nil {
			continue
		}

		if er, ok := v.(*ers); ok {
			e.p = append(e.p, er)
		} else if er, ok := v.(Error); ok {
			e.p = append(e.p, er)
		} else {
			e.p = append(e.p, newError(UnknownError, v.Error(), runtime.Frame{}))
		}
	}
}

func (e *ers) AddParentError(parent Error) {
	if parent != nil {
		e.p = append(e.p, parent)
	}
}

func (e *ers) HasParent() bool {
	return len(e.p) > 0
}

func (e *ers) GetParent(mainErr bool) []error {
	var res = make([]error, 0, len(e.p)+1)

	if mainErr {
		res = append(res, e)
	}

	for _, p := range e.p {
		res = append(res, p)
		res = append(res, p.GetParent(false)...)
	}

	return res
}

func (e *ers) Is(err error) bool {
	if err == nil {
		return false
	}

	if er, ok := err.(Error); ok {
		return e.c == er.Code()
	}

	return strings.EqualFold(e.e, err.Error())
}

func (e *ers) Unwrap() []error {
	var res = make([]error, 0, len(e.p))

	for _, p := range e.p {
		res = append(res, p)
	}

	return res
}

func (e *ers) GetTrace() string {
	if e.t.File != "" {
		return fmt.Sprintf("%s:%d", path.Base(e.t.File), e.t.Line)
	}

	return ""
}

func (e *ers) Error() string {
	var buf strings.Builder

	if t := e.GetTrace(); t != "" {
		buf.WriteString(fmt.Sprintf("(%s) ", t))
	}

	buf.WriteString(fmt.Sprintf("[%s] %s", e.c.String(), e.e))

	for _, p := range e.p {
		buf.WriteString(", ")
		buf.WriteString(p.Error())
	}

	return buf.String()
}
