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

package sched

import (
	"context"
	"sync"
	"time"

	liberr "github.com/nabbar/srvcore/errors"
)

func (o *scd) Start(ctx context.Context) liberr.Error {
	if ctx == nil {
		ctx = context.Background()
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.run {
		return nil
	} else if o.stop {
		return ErrorShuttingDown.Error(nil)
	}

	o.ctx, o.cnl = context.WithCancel(ctx)
	o.wak = make(chan struct{}, 1)
	o.wcd = sync.NewCond(&o.mu)
	o.run = true

	o.wg.Add(1)
	go o.dispatcher()

	return nil
}

func (o *scd) Stop(ctx context.Context) liberr.Error {
	if ctx == nil {
		ctx = context.Background()
	}

	o.mu.Lock()

	if !o.run {
		o.stop = true
		o.mu.Unlock()
		o.freeAll()
		return nil
	}

	o.stop = true
	o.wakeup()
	o.wcd.Broadcast()

	cnl := o.cnl
	o.mu.Unlock()

	if cnl != nil {
		cnl()
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ErrorShuttingDown.Error(ctx.Err())
	}

	o.freeAll()
	return nil
}

// freeAll detaches every remaining event and runs its cleanup callback
// outside the lock.
func (o *scd) freeAll() {
	o.mu.Lock()

	var evs = make([]*event, 0, len(o.idx)+len(o.lst))

	for n := o.size(); n > 0; n = o.size() {
		evs = append(evs, o.deq())
	}

	evs = append(evs, o.lst...)
	o.lst = nil
	o.idx = make(map[int]*event)

	o.mu.Unlock()

	for _, ev := range evs {
		if ev.clean != nil {
			ev.clean(ev.id)
		}
	}
}

// dispatcher is the scheduler thread: it pops due events from the heap,
// hands detached events to workers, runs the others inline, then sleeps
// until the earliest next-fire time.
func (o *scd) dispatcher() {
	defer o.wg.Done()

	for {
		o.mu.Lock()

		if o.stop {
			o.mu.Unlock()
			return
		}

		var (
			now  = time.Now()
			runs []*event
		)

		for o.size() > 0 && !o.hep[1].nextFire.After(now) {
			ev := o.deq()
			ev.lastQueued = now
			o.sQueued++

			if ev.flags&flagPaused != 0 {
				ev.reschedule(now)
				o.enq(ev)
				continue
			}

			ev.flags |= flagRunning

			if ev.flags&flagOnce != 0 {
				// mark for cleanup: the runner frees the event when it
				// no longer finds it in the lookup
				delete(o.idx, ev.id)
			}

			if ev.flags&flagThread != 0 {
				o.lst = append(o.lst, ev)

				if o.idl == 0 {
					o.nwk++
					o.idl++
					o.wg.Add(1)
					go o.eventWorker()
				}

				o.wcd.Signal()
			} else {
				runs = append(runs, ev)
			}
		}

		var (
			wait    time.Duration
			hasNext = o.size() > 0
		)

		if hasNext {
			wait = time.Until(o.hep[1].nextFire)
		}

		o.mu.Unlock()

		if len(runs) > 0 {
			for _, ev := range runs {
				o.invoke(ev)
				o.finish(ev)
			}

			continue
		}

		if hasNext && wait <= 0 {
			continue
		}

		var tmc <-chan time.Time

		if hasNext {
			tmr := time.NewTimer(wait)
			tmc = tmr.C

			select {
			case <-o.wak:
				tmr.Stop()
			case <-tmc:
			case <-o.ctx.Done():
				tmr.Stop()
			}
		} else {
			select {
			case <-o.wak:
			case <-o.ctx.Done():
			}
		}

		select {
		case <-o.ctx.Done():
			o.mu.Lock()
			o.stop = true
			o.wcd.Broadcast()
			o.mu.Unlock()
		default:
		}
	}
}

// eventWorker runs detached events until shutdown. Workers stay alive once
// created; an idle worker parks on the condition.
func (o *scd) eventWorker() {
	defer o.wg.Done()

	o.mu.Lock()

	for {
		for len(o.lst) == 0 && !o.stop {
			o.wcd.Wait()
		}

		if o.stop {
			o.nwk--
			o.mu.Unlock()
			return
		}

		ev := o.lst[0]
		o.lst = o.lst[1:]
		o.idl--
		o.mu.Unlock()

		o.invoke(ev)
		o.finish(ev)

		o.mu.Lock()
		o.idl++
	}
}

// invoke runs one event callback without holding the lock, logging any
// panic and warning when the run exceeds the configured elapsed budget.
func (o *scd) invoke(ev *event) {
	ev.lastStart = time.Now()

	func() {
		defer func() {
			if r := recover(); r != nil {
				o.log().Error("sched: event #%d panic: %v", ev.id, r)
			}
		}()

		ev.cb(o.ctx, ev.id)
	}()

	ev.lastEnd = time.Now()

	if max := o.cfg.MaxElapsedWarning.Time(); max > 0 {
		if el := ev.lastEnd.Sub(ev.lastStart); el > max {
			o.mu.Lock()
			o.sOver++
			o.mu.Unlock()

			o.log().Warning("sched: event #%d ran %s, budget %s", ev.id, el, max)
		}
	}
}

// finish re-enqueues a periodic event or frees one that completed or was
// cancelled while running.
func (o *scd) finish(ev *event) {
	var free bool

	o.mu.Lock()
	o.sRun++
	ev.flags &^= flagRunning

	if cur, ok := o.idx[ev.id]; !ok || cur != ev {
		free = true
	} else {
		ev.reschedule(time.Now())
		o.enq(ev)
		o.wakeup()
	}

	o.mu.Unlock()

	if free && ev.clean != nil {
		ev.clean(ev.id)
	}
}
