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

// Package connpool provides the connection worker pool of the server
// core: accepted connections queue on pre-allocated records and an
// elastic set of service goroutines between a configured minimum and
// maximum dispatches them FIFO to the connection handler.
//
// A record is owned by the free stack when idle, by the waiting queue
// once enqueued, and by exactly one service goroutine while handled; it
// is in exactly one of the three at any instant.
package connpool

import (
	"context"
	"time"

	liberr "github.com/nabbar/srvcore/errors"
	liblog "github.com/nabbar/srvcore/logger"
)

// Conn is one connection record as seen by the handler.
type Conn interface {
	// Id returns the monotonic connection id.
	Id() uint64

	// DriverRef returns the opaque reference supplied at enqueue.
	DriverRef() interface{}

	// ArrivalTime, QueueTime, StartTime and EndTime stamp the record
	// lifecycle; EndTime is zero while the handler runs.
	ArrivalTime() time.Time
	QueueTime() time.Time
	StartTime() time.Time
	EndTime() time.Time

	// SetTarget records the parsed request target, keying per-target
	// statistics.
	SetTarget(target string)

	// Target returns the recorded request target.
	Target() string

	// SetRequest attaches the parsed request.
	SetRequest(req interface{})

	// Request returns the attached parsed request.
	Request() interface{}

	// SetAuthUser records the authenticated identity.
	SetAuthUser(user string)

	// AuthUser returns the authenticated identity.
	AuthUser() string

	// SetStatus records the response status.
	SetStatus(status int)

	// Status returns the recorded response status.
	Status() int

	// AddBytesSent accumulates the response byte count.
	AddBytesSent(n int64)

	// BytesSent returns the accumulated response byte count.
	BytesSent() int64
}

// FuncHandler services one connection: request evaluation and the filter
// phases live behind this contract, outside the pool.
type FuncHandler func(ctx context.Context, c Conn)

// FuncReady runs outside the lock when the free stack refills from empty.
type FuncReady func()

// FuncAbort is the server-wide termination signal, fired exactly once
// when consecutive drops exceed the configured threshold.
type FuncAbort func()

// Pool queues accepted connections and dispatches them to service
// goroutines.
type Pool interface {
	// Enqueue queues the driver reference on a free record. It fails
	// with Overflow when the arena is exhausted and ShuttingDown during
	// teardown. After a successful enqueue the caller yields the
	// processor once.
	Enqueue(driverRef interface{}) liberr.Error

	// Conn returns the record of an active connection by id.
	Conn(id uint64) (Conn, liberr.Error)

	// RegisterReady appends a callback run when the free stack refills.
	RegisterReady(fn FuncReady)

	// Stats returns the global statistics bundle.
	Stats() Bundle

	// TargetStats lists the per-target statistics bundles.
	TargetStats() map[string]Bundle

	// Start pre-allocates the record arena and launches the minimum
	// service goroutines.
	Start(ctx context.Context) liberr.Error

	// Stop drains the pool: no new enqueues, queued connections finish,
	// goroutines exit. It fails with StopTimeout when ctx expires first.
	Stop(ctx context.Context) liberr.Error
}

// New returns a new Pool with the given config, handler, abort hook and
// logger provider.
func New(cfg Config, handler FuncHandler, abort FuncAbort, log liblog.FuncLog) (Pool, liberr.Error) {
	if handler == nil {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = liblog.Provider(nil)
	}

	return &pl{
		cfg: cfg,
		hdl: handler,
		abr: abort,
		log: log,
		bcs: make(chan struct{}),
	}, nil
}
