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
	liblog "github.com/nabbar/srvcore/logger"
)

type evtFlag uint8

const (
	flagOnce evtFlag = 1 << iota
	flagThread
	flagDaily
	flagWeekly
	flagPaused
	flagRunning
)

const (
	secondsPerDay  = 24 * 60 * 60
	secondsPerWeek = 7 * secondsPerDay
)

// event is a scheduled callback with its timing metadata. An event lives
// simultaneously in the id lookup and, unless detached for a run, at heap
// slot qi. qi == 0 means detached.
type event struct {
	id    int
	flags evtFlag

	ival time.Duration // interval schedules
	pof  int           // seconds past period origin, daily/weekly schedules
	qi   int           // heap position, 0 when detached

	nextFire   time.Time
	lastQueued time.Time
	lastStart  time.Time
	lastEnd    time.Time

	cb    FuncEvent
	clean FuncCleanup
}

// reschedule computes the next fire time strictly in the future of now.
func (ev *event) reschedule(now time.Time) {
	switch {
	case ev.flags&flagDaily != 0:
		ev.nextFire = nextPeriodFire(now, ev.pof, 1)
	case ev.flags&flagWeekly != 0:
		ev.nextFire = nextPeriodFire(now, ev.pof, 7)
	default:
		ev.nextFire = now.Add(ev.ival)
	}
}

// nextPeriodFire zeroes the clock to the period origin (local midnight, or
// local Sunday midnight when days is 7), applies the offset seconds, then
// rolls forward by one period while the result is not strictly future.
func nextPeriodFire(now time.Time, offset int, days int) time.Time {
	y, m, d := now.Date()
	t := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	if days == 7 {
		t = t.AddDate(0, 0, -int(t.Weekday()))
	}

	t = t.Add(time.Duration(offset) * time.Second)

	for !t.After(now) {
		t = t.AddDate(0, 0, days)
	}

	return t
}

type scd struct {
	cfg Config
	log liblog.FuncLog

	mu  sync.Mutex
	wcd *sync.Cond    // event workers wait here
	wak chan struct{} // dispatcher wake, capacity 1

	idx map[int]*event
	hep []*event // 1-indexed min-heap on nextFire
	lst []*event // detached events pending a worker

	nid int // last minted event id
	nwk int // event workers alive
	idl int // event workers idle

	run  bool
	stop bool

	ctx context.Context
	cnl context.CancelFunc
	wg  sync.WaitGroup

	sQueued uint64
	sRun    uint64
	sOver   uint64
}

func (o *scd) wakeup() {
	if o.wak == nil {
		return
	}

	select {
	case o.wak <- struct{}{}:
	default:
	}
}

func (o *scd) add(ev *event) (int, liberr.Error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stop {
		return 0, ErrorShuttingDown.Error(nil)
	}

	o.nid++
	ev.id = o.nid
	ev.reschedule(time.Now())

	o.idx[ev.id] = ev
	o.enq(ev)
	o.wakeup()

	return ev.id, nil
}

func (o *scd) After(delay time.Duration, cb FuncEvent, clean FuncCleanup) (int, liberr.Error) {
	if cb == nil {
		return 0, ErrorParamsEmpty.Error(nil)
	} else if delay < 0 {
		return 0, ErrorInvalidInterval.Error(nil)
	}

	return o.add(&event{
		flags: flagOnce,
		ival:  delay,
		cb:    cb,
		clean: clean,
	})
}

func (o *scd) Every(interval time.Duration, cb FuncEvent, detached bool, clean FuncCleanup) (int, liberr.Error) {
	if cb == nil {
		return 0, ErrorParamsEmpty.Error(nil)
	} else if interval <= 0 {
		return 0, ErrorInvalidInterval.Error(nil)
	}

	var f = evtFlag(0)
	if detached {
		f = flagThread
	}

	return o.add(&event{
		flags: f,
		ival:  interval,
		cb:    cb,
		clean: clean,
	})
}

func (o *scd) Daily(secondsPastMidnight int, cb FuncEvent, clean FuncCleanup) (int, liberr.Error) {
	if cb == nil {
		return 0, ErrorParamsEmpty.Error(nil)
	} else if secondsPastMidnight < 0 || secondsPastMidnight >= secondsPerDay {
		return 0, ErrorInvalidInterval.Error(nil)
	}

	return o.add(&event{
		flags: flagDaily,
		pof:   secondsPastMidnight,
		cb:    cb,
		clean: clean,
	})
}

func (o *scd) Weekly(secondsPastSundayMidnight int, cb FuncEvent, clean FuncCleanup) (int, liberr.Error) {
	if cb == nil {
		return 0, ErrorParamsEmpty.Error(nil)
	} else if secondsPastSundayMidnight < 0 || secondsPastSundayMidnight >= secondsPerWeek {
		return 0, ErrorInvalidInterval.Error(nil)
	}

	return o.add(&event{
		flags: flagWeekly,
		pof:   secondsPastSundayMidnight,
		cb:    cb,
		clean: clean,
	})
}

func (o *scd) Cancel(id int) bool {
	o.mu.Lock()

	ev, ok := o.idx[id]
	if !ok {
		o.mu.Unlock()
		return false
	}

	delete(o.idx, id)

	if ev.qi > 0 {
		// still in the heap: detach now and free here. A running event
		// (qi == 0) is freed by its runner when it observes the cleared
		// lookup entry.
		o.del(ev.qi)
		o.wakeup()
		o.mu.Unlock()

		if ev.clean != nil {
			ev.clean(id)
		}

		return true
	}

	o.mu.Unlock()
	return true
}

func (o *scd) Pause(id int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if ev, ok := o.idx[id]; ok {
		ev.flags |= flagPaused
		return true
	}

	return false
}

func (o *scd) Resume(id int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if ev, ok := o.idx[id]; ok {
		ev.flags &^= flagPaused
		o.wakeup()
		return true
	}

	return false
}

func (o *scd) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()

	return Stats{
		Scheduled: len(o.idx),
		Queued:    o.sQueued,
		Run:       o.sRun,
		Overruns:  o.sOver,
		Workers:   o.nwk,
	}
}
