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

// Package dbpool provides the pooled resource-handle manager of the
// server core: N-way deadlock-free multi-handle acquisition over an
// external resource driver (typically a database), with per-owner hold
// accounting, idle and stale reaping, and version-based invalidation.
//
// Acquisition serializes through an exclusive-waiter role so that
// concurrent multi-handle requests never interleave partial grants, and
// rejects upfront any request that could deadlock against the holds of
// already-waiting owners.
package dbpool

import (
	"context"
	"time"

	liberr "github.com/nabbar/srvcore/errors"
	liblog "github.com/nabbar/srvcore/logger"
	libsch "github.com/nabbar/srvcore/sched"
)

// Stats is a snapshot of pool accounting.
type Stats struct {
	Handles   int
	Free      int
	Available int
	Held      int
	Generation uint64
}

// Handle is a checkout of one pool-managed connection.
//
// A Handle is confined to the goroutine that obtained it between Get and
// Put.
type Handle interface {
	// Pool returns the owning pool name.
	Pool() string

	// Conn returns the live driver connection; nil when disconnected.
	Conn() Conn

	// Connected checks if the handle carries a live connection.
	Connected() bool

	// MarkStale flags the handle for disconnection on return.
	MarkStale()

	// OpenTime returns when the current connection was opened.
	OpenTime() time.Time

	// LastAccess returns the last checkout or return time.
	LastAccess() time.Time

	// SetError records driver error text on the handle scratch buffer.
	SetError(msg string)

	// LastError returns the recorded driver error text.
	LastError() string
}

// Owner is the per-goroutine accounting handle over one pool.
type Owner interface {
	// Get checks out count handles, each connected and fresh, waiting up
	// to timeout past other callers. On timeout the partial grant is
	// returned to the pool.
	Get(count int, timeout time.Duration) ([]Handle, liberr.Error)

	// Put returns handles to the pool: driver state reset, freshness
	// re-evaluated, connected handles queued at the head and the others
	// at the tail.
	Put(h ...Handle)

	// Held returns the owner's outstanding handle count.
	Held() int
}

// Pool is one named resource-handle pool.
type Pool interface {
	// Name returns the pool name.
	Name() string

	// Owner mints an accounting handle for one calling goroutine.
	Owner() Owner

	// Bounce bumps the stale-on-close generation: every currently
	// outstanding handle becomes stale on next return.
	Bounce()

	// Stats returns a snapshot of the pool accounting.
	Stats() Stats

	// Start registers the periodic stale check on the scheduler when a
	// check interval is configured.
	Start(ctx context.Context, sch libsch.Scheduler) liberr.Error

	// Stop cancels the check job and disconnects every free handle.
	Stop(ctx context.Context) liberr.Error
}

// New returns a new Pool with the given name, config, driver and logger
// provider.
func New(name string, cfg Config, drv Driver, log liblog.FuncLog) (Pool, liberr.Error) {
	if name == "" || drv == nil {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = liblog.Provider(nil)
	}

	return &pol{
		nam: name,
		cfg: cfg,
		drv: drv,
		log: log,
		wcd: make(chan struct{}),
		gcd: make(chan struct{}),
	}, nil
}
