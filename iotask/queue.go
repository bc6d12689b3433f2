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

package iotask

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	liberr "github.com/nabbar/srvcore/errors"
	liblog "github.com/nabbar/srvcore/logger"
)

type que struct {
	nam string
	log liblog.FuncLog

	mu  sync.Mutex
	sig *tsk // signal list head, lock-protected
	stp bool
	run bool

	trr int // trigger pipe read end, owner side
	trw int // trigger pipe write end, caller side

	wai *tsk // wait list head, owner-owned

	don chan struct{}
	ctx context.Context
	cnl context.CancelFunc
}

func (o *que) Name() string {
	return o.nam
}

func (o *que) Enqueue(fd int, cb FuncTask) (Task, liberr.Error) {
	if cb == nil || fd < 0 {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	t := &tsk{
		que: o,
		fdn: fd,
		cbk: cb,
		dch: make(chan struct{}),
	}

	if err := o.signal(t, sigInit); err != nil {
		return nil, err
	}

	return t, nil
}

// signal pushes the task onto the signal list under the lock then wakes
// the owner through the self-pipe. A task already pending only merges its
// signal bits.
func (o *que) signal(t *tsk, s sigFlag) liberr.Error {
	o.mu.Lock()

	if o.stp || !o.run {
		o.mu.Unlock()
		return ErrorShuttingDown.Error(nil)
	}

	t.sig |= s

	if t.flg&flagPending == 0 {
		t.flg |= flagPending
		t.snx = o.sig
		o.sig = t
	}

	trw := o.trw
	o.mu.Unlock()

	return o.trigger(trw)
}

// trigger writes one byte to the self-pipe; a full pipe already wakes the
// owner, so EAGAIN is success.
func (o *que) trigger(fd int) liberr.Error {
	if _, err := unix.Write(fd, []byte{'t'}); err != nil && err != unix.EAGAIN {
		return ErrorTrigger.Error(err)
	}

	return nil
}

func (o *que) Start(ctx context.Context) liberr.Error {
	if ctx == nil {
		ctx = context.Background()
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.run {
		return nil
	} else if o.stp {
		return ErrorShuttingDown.Error(nil)
	}

	var p [2]int

	if err := unix.Pipe(p[:]); err != nil {
		return ErrorTrigger.Error(err)
	}

	unix.SetNonblock(p[0], true)
	unix.SetNonblock(p[1], true)

	o.trr = p[0]
	o.trw = p[1]
	o.don = make(chan struct{})
	o.ctx, o.cnl = context.WithCancel(ctx)
	o.run = true

	go o.owner()

	return nil
}

func (o *que) Stop(ctx context.Context) liberr.Error {
	if ctx == nil {
		ctx = context.Background()
	}

	o.mu.Lock()

	if !o.run || o.stp {
		o.stp = true
		o.mu.Unlock()
		return nil
	}

	o.stp = true
	trw := o.trw
	o.mu.Unlock()

	o.trigger(trw)

	select {
	case <-o.don:
		return nil
	case <-ctx.Done():
		return ErrorShuttingDown.Error(ctx.Err())
	}
}

// detach removes the task from the owner wait list and publishes
// completion.
func (o *que) detach(prev **tsk, t *tsk) {
	*prev = t.wnx
	t.wnx = nil

	o.mu.Lock()
	t.flg |= flagDone
	o.mu.Unlock()

	close(t.dch)
}

// owner is the queue thread. It is the only goroutine touching the wait
// list and task flags.
func (o *que) owner() {
	defer close(o.don)

	var (
		pfd []unix.PollFd
		lst []*tsk
	)

	for {
		// phase 1: drain signals under the lock
		o.mu.Lock()

		stop := o.stp

		var news *tsk = o.sig
		o.sig = nil

		for t := news; t != nil; t = t.snx {
			t.flg &^= flagPending

			if t.sig&sigInit != 0 {
				t.flg |= flagInit
			}

			if t.sig&sigCancel != 0 {
				t.flg |= flagCancel
			}

			t.sig = 0
		}

		o.mu.Unlock()

		// move newly signalled tasks onto the wait list
		for news != nil {
			t := news
			news = t.snx
			t.snx = nil

			if t.flg&flagWait == 0 {
				t.flg |= flagWait
				t.wnx = o.wai
				o.wai = t
			}
		}

		if stop {
			o.drain()
			return
		}

		// phase 2: init, cancel, completion
		for t := o.wai; t != nil; t = t.wnx {
			if t.flg&flagInit != 0 {
				t.flg &^= flagInit
				t.cbk(t, ReasonInit)
			}

			if t.flg&flagCancel != 0 {
				t.flg &^= flagCancel
				t.cbk(t, ReasonCancel)
			}
		}

		for p := &o.wai; *p != nil; {
			if t := *p; t.flg&flagDone != 0 {
				o.detach(p, t)
			} else {
				p = &t.wnx
			}
		}

		// phase 3: build the poll set; slot 0 is the trigger pipe
		pfd = pfd[:0]
		lst = lst[:0]

		pfd = append(pfd, unix.PollFd{Fd: int32(o.trr), Events: unix.POLLIN})

		var dla time.Time

		for t := o.wai; t != nil; t = t.wnx {
			var ev int16

			if t.evs&EventException != 0 {
				ev |= unix.POLLPRI
			}

			if t.evs&EventWrite != 0 {
				ev |= unix.POLLOUT
			}

			if t.evs&EventRead != 0 {
				ev |= unix.POLLIN
			}

			pfd = append(pfd, unix.PollFd{Fd: int32(t.fdn), Events: ev})
			lst = append(lst, t)

			if !t.dla.IsZero() && (dla.IsZero() || t.dla.Before(dla)) {
				dla = t.dla
			}
		}

		// phase 4: poll
		var tmo = -1

		if !dla.IsZero() {
			if d := time.Until(dla); d <= 0 {
				tmo = 0
			} else {
				tmo = int(d.Milliseconds()) + 1
			}
		}

		n, err := unix.Poll(pfd, tmo)

		if err != nil && err != unix.EINTR {
			o.log().Error("iotask %s: poll: %v", o.nam, err)
		}

		if n > 0 && pfd[0].Revents&unix.POLLIN != 0 {
			var b [64]byte
			unix.Read(o.trr, b[:])
		}

		now := time.Now()

		for i, t := range lst {
			r := pfd[i+1].Revents

			// fixed dispatch order: exception, writable, readable
			var fired bool

			if r&(unix.POLLPRI|unix.POLLERR) != 0 && t.evs&EventException != 0 {
				fired = true
				t.cbk(t, ReasonException)
			}

			if r&(unix.POLLOUT) != 0 && t.evs&EventWrite != 0 && t.flg&flagDone == 0 {
				fired = true
				t.cbk(t, ReasonWrite)
			}

			if r&(unix.POLLIN|unix.POLLHUP) != 0 && t.evs&EventRead != 0 && t.flg&flagDone == 0 {
				fired = true
				t.cbk(t, ReasonRead)
			}

			if !fired && t.flg&flagDone == 0 && !t.dla.IsZero() && !t.dla.After(now) {
				t.flg |= flagTimeout
				t.cbk(t, ReasonTimeout)
			}
		}

		for p := &o.wai; *p != nil; {
			if t := *p; t.flg&flagDone != 0 {
				o.detach(p, t)
			} else {
				p = &t.wnx
			}
		}
	}
}

// drain runs the exit callback of every remaining task and publishes
// their completion, then closes the trigger pipe.
func (o *que) drain() {
	for p := &o.wai; *p != nil; {
		t := *p
		t.cbk(t, ReasonExit)
		o.detach(p, t)
	}

	o.mu.Lock()

	unix.Close(o.trr)
	unix.Close(o.trw)
	o.trr = -1
	o.trw = -1
	o.run = false

	if o.cnl != nil {
		o.cnl()
	}

	o.mu.Unlock()
}
