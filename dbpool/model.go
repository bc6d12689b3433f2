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

package dbpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	liberr "github.com/nabbar/srvcore/errors"
	liblog "github.com/nabbar/srvcore/logger"
	libsch "github.com/nabbar/srvcore/sched"
)

type pol struct {
	nam string
	cfg Config
	drv Driver
	log liblog.FuncLog

	mu  sync.Mutex
	all []*hdl // every created handle record
	fre []*hdl // free queue: head first out
	gen uint64 // stale-on-close generation
	exw bool   // exclusive waiter role taken
	wth int    // sum of held counts of currently waiting owners
	hld int    // sum of held counts over all owners
	stp bool

	wcd chan struct{} // waiter-role condition
	gcd chan struct{} // handle-availability condition

	chk int // check job id on the scheduler
	sch libsch.Scheduler
	ctx context.Context
}

func (o *pol) Name() string {
	return o.nam
}

func (o *pol) Owner() Owner {
	return &own{pol: o}
}

// condition broadcast pair; the caller holds the lock.

func (o *pol) wakeWaiters() {
	close(o.wcd)
	o.wcd = make(chan struct{})
}

func (o *pol) wakeGetters() {
	close(o.gcd)
	o.gcd = make(chan struct{})
}

// waitOn releases the lock until the channel closes or the deadline, then
// reacquires. It returns false on timeout.
func (o *pol) waitOn(ch chan struct{}, deadline time.Time) bool {
	o.mu.Unlock()

	if deadline.IsZero() {
		<-ch
		o.mu.Lock()
		return true
	}

	d := time.Until(deadline)

	if d <= 0 {
		o.mu.Lock()
		return false
	}

	tmr := time.NewTimer(d)

	select {
	case <-ch:
		tmr.Stop()
		o.mu.Lock()
		return true

	case <-tmr.C:
		o.mu.Lock()
		return false
	}
}

func (o *pol) Bounce() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.gen++
}

func (o *pol) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()

	return Stats{
		Handles:    len(o.all),
		Free:       len(o.fre),
		Available:  o.cfg.Connections - o.hld,
		Held:       o.hld,
		Generation: o.gen,
	}
}

func (o *pol) Start(ctx context.Context, sch libsch.Scheduler) liberr.Error {
	if ctx == nil {
		ctx = context.Background()
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stp {
		return ErrorShuttingDown.Error(nil)
	}

	o.ctx = ctx

	if itv := o.cfg.CheckInterval.Time(); itv > 0 && sch != nil && o.chk == 0 {
		id, err := sch.Every(itv, func(ctx context.Context, id int) {
			o.checkAll()
		}, true, nil)

		if err != nil {
			return err
		}

		o.chk = id
		o.sch = sch
	}

	return nil
}

func (o *pol) Stop(ctx context.Context) liberr.Error {
	o.mu.Lock()

	o.stp = true

	chk, sch := o.chk, o.sch
	o.chk, o.sch = 0, nil

	lst := o.fre
	o.fre = nil

	o.wakeWaiters()
	o.wakeGetters()
	o.mu.Unlock()

	if chk > 0 && sch != nil {
		sch.Cancel(chk)
	}

	for _, h := range lst {
		h.disconnect()
	}

	return nil
}

// checkAll is the periodic reaper: detach the whole free list under the
// lock, disconnect stale handles outside it, reattach, wake getters.
func (o *pol) checkAll() {
	o.mu.Lock()

	if o.stp {
		o.mu.Unlock()
		return
	}

	var (
		lst = o.fre
		gen = o.gen
	)

	o.fre = nil
	o.mu.Unlock()

	now := time.Now()

	for _, h := range lst {
		if h.con && h.stale(now, gen) {
			if o.cfg.Verbose {
				o.log().Info("dbpool %s: reaping stale handle", o.nam)
			}

			h.disconnect()
		}
	}

	o.mu.Lock()
	o.fre = append(lst, o.fre...)
	o.wakeGetters()
	o.mu.Unlock()
}

// own is the per-goroutine accounting handle.
type own struct {
	pol  *pol
	held int
}

func (o *own) Held() int {
	return o.held
}

func (o *own) Get(count int, timeout time.Duration) ([]Handle, liberr.Error) {
	p := o.pol

	if count < 1 {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	p.mu.Lock()

	if p.stp {
		p.mu.Unlock()
		return nil, ErrorShuttingDown.Error(nil)
	}

	if count > p.cfg.Connections {
		p.mu.Unlock()
		return nil, ErrorRange.Error(liberr.New(liberr.UnknownError,
			fmt.Sprintf("requesting %d, pool max %d", count, p.cfg.Connections)))
	}

	// the holds of every owner already waiting, plus ours with this
	// request, must fit the pool, or granting could deadlock
	if p.wth+o.held+count > p.cfg.Connections {
		p.mu.Unlock()
		return nil, ErrorDeadlock.Error(liberr.New(liberr.UnknownError,
			fmt.Sprintf("waiters hold %d, holding %d, requesting %d, pool max %d", p.wth, o.held, count, p.cfg.Connections)))
	}

	var deadline time.Time

	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	} else if t := p.cfg.GetTimeout.Time(); t > 0 {
		deadline = time.Now().Add(t)
	}

	p.wth += o.held

	// compete for the exclusive waiter role
	for p.exw {
		if !p.waitOn(p.wcd, deadline) {
			p.wth -= o.held
			p.mu.Unlock()
			return nil, ErrorGetTimeout.Error(nil)
		}

		if p.stp {
			p.wth -= o.held
			p.mu.Unlock()
			return nil, ErrorShuttingDown.Error(nil)
		}
	}

	p.exw = true

	var (
		got  = make([]*hdl, 0, count)
		gerr liberr.Error
	)

	for len(got) < count {
		if p.stp {
			gerr = ErrorShuttingDown.Error(nil)
			break
		}

		if n := len(p.fre); n > 0 {
			h := p.fre[0]
			p.fre = p.fre[1:]
			got = append(got, h)
			continue
		}

		if len(p.all) < p.cfg.Connections {
			h := &hdl{pol: p}
			p.all = append(p.all, h)
			got = append(got, h)
			continue
		}

		if !p.waitOn(p.gcd, deadline) {
			gerr = ErrorGetTimeout.Error(nil)
			break
		}
	}

	if gerr == nil {
		p.hld += count
	}

	p.exw = false
	p.wth -= o.held
	p.wakeWaiters()

	if gerr != nil {
		// unwind the partial grant to the pool head
		p.fre = append(got, p.fre...)
		p.wakeGetters()
		p.mu.Unlock()
		return nil, gerr
	}

	gen := p.gen
	ctx := p.ctx
	p.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	// freshness on acquire, outside the lock
	now := time.Now()

	for _, h := range got {
		if h.con && h.stale(now, gen) {
			h.disconnect()
		}

		if !h.con {
			if err := h.connect(ctx, gen); err != nil {
				o.held += len(got)
				o.Put(handles(got)...)
				return nil, ErrorDriverOpen.Error(err)
			}
		}

		h.acc = now
	}

	o.held += count
	return handles(got), nil
}

func handles(lst []*hdl) []Handle {
	var res = make([]Handle, 0, len(lst))

	for _, h := range lst {
		res = append(res, h)
	}

	return res
}

func (o *own) Put(hs ...Handle) {
	p := o.pol

	var (
		now  = time.Now()
		head []*hdl
		tail []*hdl
	)

	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()

	for _, i := range hs {
		h, ok := i.(*hdl)
		if !ok || h == nil {
			continue
		}

		if h.con {
			if err := h.cnn.Reset(context.Background()); err != nil {
				h.SetError(err.Error())
				h.stl = true
			}
		}

		h.acc = now

		if h.stale(now, gen) {
			h.disconnect()
		}

		if h.con {
			head = append(head, h)
		} else {
			tail = append(tail, h)
		}

		if o.held > 0 {
			o.held--
		}
	}

	p.mu.Lock()

	p.fre = append(head, p.fre...)
	p.fre = append(p.fre, tail...)

	if n := len(head) + len(tail); p.hld >= n {
		p.hld -= n
	} else {
		p.hld = 0
	}

	p.wakeGetters()
	p.mu.Unlock()
}
