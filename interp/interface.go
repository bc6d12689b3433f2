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

// Package interp provides the per-thread script interpreter pool of the
// server core, backed by the goja ECMAScript engine.
//
// A Pool carries the server-wide shared state: a generation counter
// (epoch), the shared init script every interpreter must have evaluated,
// and the ordered lifecycle trace lists. Each worker goroutine mints its
// own Slot: a free list of interpreters owned by exactly one goroutine and
// never shared, so allocation from a warm slot takes no lock.
package interp

import (
	"github.com/dop251/goja"

	liberr "github.com/nabbar/srvcore/errors"
	liblog "github.com/nabbar/srvcore/logger"
)

// TraceWhen identifies one interpreter lifecycle event.
type TraceWhen uint8

const (
	TraceCreate TraceWhen = iota
	TraceDelete
	TraceAllocate
	TraceDeallocate
	TraceGetConn
	TraceFreeConn

	traceMax
)

// FuncTrace is a lifecycle trace callback. Errors are not propagated:
// traces observe, they do not veto.
type FuncTrace func(itp Interp, when TraceWhen) error

// FuncHook is a user-supplied allocate/deallocate hook.
type FuncHook func(itp Interp) error

// Hooks carries the user-supplied per-use hooks. Either may be nil.
type Hooks struct {
	// Init is evaluated on every Allocate, after the epoch check.
	Init FuncHook

	// Cleanup is evaluated on every Deallocate of an unbound interp.
	Cleanup FuncHook
}

// Interp is one script evaluator.
type Interp interface {
	// Eval evaluates the script and returns its result.
	Eval(script string) (goja.Value, liberr.Error)

	// Runtime exposes the underlying engine handle.
	Runtime() *goja.Runtime

	// Epoch returns the interp's adopted shared-state generation; zero
	// means fresh.
	Epoch() uint64

	// BindConn attaches the connection currently serviced with this
	// interp. A bound interp is not released by Deallocate.
	BindConn(conn interface{})

	// Conn returns the bound connection, nil when unbound.
	Conn() interface{}

	// UnbindConn detaches the bound connection.
	UnbindConn()

	// MarkDelete flags the interp for destruction on next Deallocate
	// instead of returning to the free list.
	MarkDelete()

	// Defer registers a cleanup callback run (in reverse registration
	// order) at next Deallocate.
	Defer(fn func())
}

// Slot is a per-goroutine interpreter free list. A Slot must only be used
// by the goroutine that obtained it; cross-goroutine transfer happens only
// through Close.
type Slot interface {
	// Allocate returns a ready interp: from the free list, or freshly
	// created. The interp has the current shared init script evaluated.
	Allocate() (Interp, liberr.Error)

	// Deallocate releases the interp back to the free list, or destroys
	// it when flagged for deletion. A conn-bound interp is left alone:
	// the hosting connection owns release.
	Deallocate(itp Interp)

	// Close destroys every free-listed interp through the delete path.
	// Called when the owning goroutine exits.
	Close()
}

// Pool is the server-wide interpreter pool shared state.
type Pool interface {
	// Epoch returns the current shared-state generation. It is never
	// zero.
	Epoch() uint64

	// Script returns the current shared init script.
	Script() string

	// Save atomically replaces the shared init script and bumps the
	// epoch; the next Allocate on every slot re-evaluates. It returns
	// the new epoch.
	Save(initScript string) uint64

	// RegisterTrace appends the callback to the trace list of the given
	// lifecycle event. Traces run in registration order.
	RegisterTrace(when TraceWhen, fn FuncTrace) liberr.Error

	// NewSlot mints a free list for one owning goroutine.
	NewSlot() Slot

	// Close marks the pool closed: every later Allocate on any slot
	// fails with ErrorClosed. NewSlot still returns a slot.
	Close() liberr.Error
}

// New returns a new Pool with the given config, hooks and logger provider.
// When cfg.InitFile is set, its content seeds the shared init script.
func New(cfg Config, hooks Hooks, log liblog.FuncLog) (Pool, liberr.Error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = liblog.Provider(nil)
	}

	p := &pol{
		cfg: cfg,
		hks: hooks,
		log: log,
		epo: 1,
	}

	if cfg.InitFile != "" {
		if e := p.loadInitFile(); e != nil {
			return nil, e
		}
	}

	return p, nil
}
