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
	"os"
	"sync"
	"sync/atomic"

	liberr "github.com/nabbar/srvcore/errors"
	liblog "github.com/nabbar/srvcore/logger"
)

type pol struct {
	cfg Config
	hks Hooks
	log liblog.FuncLog

	mu  sync.RWMutex
	inl sync.Mutex // lockOnInit serialization
	epo uint64
	scr string
	trc [traceMax][]FuncTrace
	cls atomic.Bool
}

func (o *pol) loadInitFile() liberr.Error {
	b, err := os.ReadFile(o.cfg.InitFile)
	if err != nil {
		return ErrorInitScript.Error(err)
	}

	o.scr = string(b)
	return nil
}

func (o *pol) Epoch() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.epo
}

func (o *pol) Script() string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.scr
}

func (o *pol) Save(initScript string) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.scr = initScript
	o.epo++

	// epoch zero is reserved for fresh interps
	if o.epo == 0 {
		o.epo = 1
	}

	return o.epo
}

func (o *pol) RegisterTrace(when TraceWhen, fn FuncTrace) liberr.Error {
	if fn == nil {
		return ErrorParamsEmpty.Error(nil)
	} else if when >= traceMax {
		return ErrorInvalidId.Error(nil)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.trc[when] = append(o.trc[when], fn)
	return nil
}

// runTraces invokes the registered callbacks of the event in registration
// order; per-callback errors are logged, never propagated.
func (o *pol) runTraces(itp Interp, when TraceWhen) {
	o.mu.RLock()
	lst := o.trc[when]
	o.mu.RUnlock()

	for _, fn := range lst {
		if err := fn(itp, when); err != nil {
			o.log().Warning("interp: trace %d error: %v", when, err)
		}
	}
}

func (o *pol) NewSlot() Slot {
	return &slt{
		pol: o,
	}
}

func (o *pol) Close() liberr.Error {
	if o.cls.Swap(true) {
		return ErrorClosed.Error(nil)
	}

	return nil
}
