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

package interp

import (
	"github.com/dop251/goja"

	liberr "github.com/nabbar/srvcore/errors"
)

type itp struct {
	pol *pol
	rtm *goja.Runtime
	epo uint64
	cnn interface{}
	del bool
	dfr []func()
	res goja.Value
}

func (o *itp) Eval(script string) (goja.Value, liberr.Error) {
	v, err := o.rtm.RunString(script)
	if err != nil {
		return nil, ErrorEvalScript.Error(err)
	}

	o.res = v
	return v, nil
}

func (o *itp) Runtime() *goja.Runtime {
	return o.rtm
}

func (o *itp) Epoch() uint64 {
	return o.epo
}

func (o *itp) BindConn(conn interface{}) {
	o.cnn = conn
	o.pol.runTraces(o, TraceGetConn)
}

func (o *itp) Conn() interface{} {
	return o.cnn
}

func (o *itp) UnbindConn() {
	o.pol.runTraces(o, TraceFreeConn)
	o.cnn = nil
}

func (o *itp) MarkDelete() {
	o.del = true
}

func (o *itp) Defer(fn func()) {
	if fn != nil {
		o.dfr = append(o.dfr, fn)
	}
}

// runDeferred pops the deferred cleanups in reverse registration order.
func (o *itp) runDeferred() {
	for i := len(o.dfr) - 1; i >= 0; i-- {
		o.dfr[i]()
	}

	o.dfr = nil
}
