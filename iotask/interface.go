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

// Package iotask provides the poll-based I/O task queue of the server
// core: callbacks multiplexed over socket descriptors by one owner
// goroutine per queue.
//
// The owner goroutine is the only mutator of task state. External callers
// interact exclusively through signal records pushed under the queue lock
// and a one-byte write to a self-pipe that wakes the poll loop. When one
// descriptor has several ready event bits in a single poll round, the
// callbacks fire in the fixed order Exception, Write, Read.
package iotask

import (
	"context"
	"time"

	liberr "github.com/nabbar/srvcore/errors"
	liblog "github.com/nabbar/srvcore/logger"
)

// Reason tells a task callback why it is invoked.
type Reason uint8

const (
	// ReasonInit is the first invocation of a task callback, on the owner
	// goroutine; the callback registers interest with SetEvents and may
	// arm a deadline with SetDeadline.
	ReasonInit Reason = iota

	// ReasonRead reports the descriptor readable.
	ReasonRead

	// ReasonWrite reports the descriptor writable.
	ReasonWrite

	// ReasonException reports an exceptional descriptor condition.
	ReasonException

	// ReasonTimeout reports the task deadline expired with no event.
	ReasonTimeout

	// ReasonCancel reports a cancellation request; the callback must
	// acknowledge by calling Done.
	ReasonCancel

	// ReasonExit reports the queue shutting down.
	ReasonExit
)

// Event is the abstract poll interest mask of a task.
type Event uint8

const (
	EventRead Event = 1 << iota
	EventWrite
	EventException
)

// FuncTask is a task callback. It runs on the queue owner goroutine only.
type FuncTask func(t Task, why Reason)

// Task is one registered callback over one descriptor.
//
// SetEvents, SetDeadline and Done must only be called from within the task
// callback (the owner goroutine). Cancel and WaitDone are safe from any
// goroutine.
type Task interface {
	// Fd returns the descriptor the task watches.
	Fd() int

	// SetEvents replaces the poll interest mask.
	SetEvents(ev Event)

	// SetDeadline arms an absolute deadline; the zero time disarms it.
	SetDeadline(t time.Time)

	// Done marks the task complete; the owner detaches it after the
	// callback returns.
	Done()

	// Cancel requests cooperative cancellation: the callback receives
	// ReasonCancel and must call Done. There is no preemption.
	Cancel() liberr.Error

	// WaitDone blocks until the task completed or ctx expires.
	WaitDone(ctx context.Context) liberr.Error
}

// Queue multiplexes task callbacks over descriptors with one poll loop.
type Queue interface {
	// Name returns the queue name.
	Name() string

	// Enqueue registers a new task for the descriptor; its callback is
	// first invoked with ReasonInit on the owner goroutine.
	Enqueue(fd int, cb FuncTask) (Task, liberr.Error)

	// Start launches the owner goroutine.
	Start(ctx context.Context) liberr.Error

	// Stop shuts the queue down: every task callback receives ReasonExit,
	// then the owner goroutine exits. Stop blocks until done or ctx
	// expires.
	Stop(ctx context.Context) liberr.Error
}

// New returns a new task queue with the given name and logger provider.
func New(name string, log liblog.FuncLog) Queue {
	if log == nil {
		log = liblog.Provider(nil)
	}

	return &que{
		nam: name,
		log: log,
	}
}
