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

// maxAllocDepth caps outstanding allocations of one slot, breaking
// runaway recursive allocation from within a script command.
const maxAllocDepth = 100

type slt struct {
	pol *pol
	fre []*itp
	dep int
}

// create builds a fresh interp: new runtime, core globals, Create traces.
func (o *slt) create() *itp {
	i := &itp{
		pol: o.pol,
		rtm: goja.New(),
	}

	i.rtm.Set("serverLibrary", o.pol.cfg.Library)
	i.rtm.Set("log", func(msg string) {
		o.pol.log().Info("interp: %s", msg)
	})

	o.pol.runTraces(i, TraceCreate)
	return i
}

// sync evaluates the shared init script when the interp epoch lags the
// pool epoch, adopting the new generation.
func (o *slt) sync(i *itp) {
	epo := o.pol.Epoch()

	if i.epo == epo {
		return
	}

	if o.pol.cfg.LockOnInit {
		o.pol.inl.Lock()
		defer o.pol.inl.Unlock()
	}

	scr := o.pol.Script()

	if scr != "" {
		if _, err := i.rtm.RunString(scr); err != nil {
			o.pol.log().Error("interp: init script: %v", err)
		}
	}

	i.epo = epo
}

func (o *slt) Allocate() (Interp, liberr.Error) {
	if o.pol.cls.Load() {
		return nil, ErrorClosed.Error(nil)
	}

	if o.dep >= maxAllocDepth {
		return nil, ErrorOverflow.Error(nil)
	}

	var i *itp

	if n := len(o.fre); n > 0 {
		i = o.fre[n-1]
		o.fre = o.fre[:n-1]
	} else {
		i = o.create()
	}

	o.pol.runTraces(i, TraceAllocate)
	o.sync(i)

	if o.pol.hks.Init != nil {
		if err := o.pol.hks.Init(i); err != nil {
			o.pol.log().Warning("interp: init hook: %v", err)
		}
	}

	o.dep++
	return i, nil
}

func (o *slt) Deallocate(x Interp) {
	i, ok := x.(*itp)
	if !ok || i == nil {
		return
	}

	if i.cnn != nil {
		// the hosting connection owns release
		return
	}

	if o.pol.hks.Cleanup != nil {
		if err := o.pol.hks.Cleanup(i); err != nil {
			o.pol.log().Warning("interp: cleanup hook: %v", err)
		}
	}

	o.pol.runTraces(i, TraceDeallocate)
	i.runDeferred()

	if o.dep > 0 {
		o.dep--
	}

	if i.del {
		o.delete(i)
		return
	}

	var zero goja.Value
	i.res = zero
	o.fre = append(o.fre, i)
}

// delete destroys the interp through the Delete-trace path.
func (o *slt) delete(i *itp) {
	o.pol.runTraces(i, TraceDelete)
	i.rtm = nil
}

func (o *slt) Close() {
	for _, i := range o.fre {
		o.delete(i)
	}

	o.fre = nil
}
