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

// Package sched provides the timed and periodic scheduler of the server
// core: callbacks run at absolute times, fixed intervals, daily or weekly
// slots, or once after a delay.
//
// Events are kept in a binary min-heap ordered by next-fire time, with an
// id lookup for O(log n) cancellation. One dispatcher goroutine pops due
// events; events flagged detached run on on-demand worker goroutines, the
// others run inline on the dispatcher between heap operations.
package sched

import (
	"context"
	"time"

	liberr "github.com/nabbar/srvcore/errors"
	liblog "github.com/nabbar/srvcore/logger"
)

// FuncEvent is the callback signature of a scheduled event. The context is
// cancelled when the scheduler shuts down.
type FuncEvent func(ctx context.Context, id int)

// FuncCleanup is called exactly once when a scheduled event is freed,
// whether by cancellation, one-shot completion or scheduler shutdown.
type FuncCleanup func(id int)

// Stats is a snapshot of scheduler activity counters.
type Stats struct {
	Scheduled int
	Queued    uint64
	Run       uint64
	Overruns  uint64
	Workers   int
}

// Scheduler runs callbacks at configured times.
//
// All registration calls return the event id, usable with Cancel, Pause
// and Resume, or an error when the scheduler refuses the event.
type Scheduler interface {
	// After schedules the callback to run once, delay from now.
	After(delay time.Duration, cb FuncEvent, clean FuncCleanup) (int, liberr.Error)

	// Every schedules the callback to run every interval. When detached
	// is true the callback runs on its own worker goroutine instead of
	// the dispatcher.
	Every(interval time.Duration, cb FuncEvent, detached bool, clean FuncCleanup) (int, liberr.Error)

	// Daily schedules the callback to run every day at the given number
	// of seconds past local midnight.
	Daily(secondsPastMidnight int, cb FuncEvent, clean FuncCleanup) (int, liberr.Error)

	// Weekly schedules the callback to run every week at the given number
	// of seconds past local Sunday midnight.
	Weekly(secondsPastSundayMidnight int, cb FuncEvent, clean FuncCleanup) (int, liberr.Error)

	// Cancel removes the event. It returns true when the event was known
	// and is now cancelled; a running detached event is cancelled at
	// completion.
	Cancel(id int) bool

	// Pause suspends dispatching of the event; timing still advances.
	Pause(id int) bool

	// Resume reactivates a paused event.
	Resume(id int) bool

	// Stats returns a snapshot of the scheduler counters.
	Stats() Stats

	// Start launches the dispatcher goroutine.
	Start(ctx context.Context) liberr.Error

	// Stop shuts the scheduler down: the dispatcher and every event
	// worker exit, then every remaining event is freed through its
	// cleanup callback. Stop blocks until done or ctx expires.
	Stop(ctx context.Context) liberr.Error
}

// New returns a new Scheduler with the given config and logger provider.
func New(cfg Config, log liblog.FuncLog) Scheduler {
	if log == nil {
		log = liblog.Provider(nil)
	}

	return &scd{
		cfg: cfg,
		log: log,
		idx: make(map[int]*event),
		hep: make([]*event, 1, heapGrowth+1),
	}
}
