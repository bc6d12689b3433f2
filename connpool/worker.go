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

package connpool

import (
	"context"
	"runtime"
	"sync"
	"time"

	liberr "github.com/nabbar/srvcore/errors"
	liblog "github.com/nabbar/srvcore/logger"
)

type pl struct {
	cfg Config
	hdl FuncHandler
	abr FuncAbort
	log liblog.FuncLog

	mu  sync.Mutex
	arn []crc // pre-allocated record arena
	fre *crc  // free stack head
	wai list  // waiting FIFO
	act list  // active FIFO

	cur int // service goroutines alive
	idl int // service goroutines idle
	nid uint64
	drp int  // consecutive drops
	abd bool // abort already fired

	rdy []FuncReady

	run bool
	stp bool

	bcs chan struct{} // condition broadcast channel

	ctx context.Context
	cnl context.CancelFunc

	sts stats
}

// broadcast wakes workers and joiners; the caller holds the lock.
func (o *pl) broadcast() {
	close(o.bcs)
	o.bcs = make(chan struct{})
}

// condWait releases the lock until a broadcast or the deadline, then
// reacquires. It returns false on timeout. A zero deadline blocks.
func (o *pl) condWait(deadline time.Time) bool {
	ch := o.bcs
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

func (o *pl) Start(ctx context.Context) liberr.Error {
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

	for _, m := range o.cfg.Clamp() {
		o.log().Warning("connpool: %s", m)
	}

	o.ctx, o.cnl = context.WithCancel(ctx)

	// the arena is allocated once; records only move between the free
	// stack, the waiting queue and the active list
	o.arn = make([]crc, o.cfg.MaxConns)
	o.fre = nil

	for i := o.cfg.MaxConns - 1; i >= 0; i-- {
		o.arn[i].fnx = o.fre
		o.fre = &o.arn[i]
	}

	o.sts.init(o.cfg)
	o.run = true

	for i := 0; i < o.cfg.MinThreads; i++ {
		o.cur++
		o.idl++
		go o.worker()
	}

	return nil
}

func (o *pl) Enqueue(driverRef interface{}) liberr.Error {
	o.mu.Lock()

	if o.stp || !o.run {
		o.mu.Unlock()
		return ErrorShuttingDown.Error(nil)
	}

	c := o.fre

	if c == nil {
		o.drp++

		var abort bool

		if o.cfg.MaxConsecutiveDrops > 0 && o.drp > o.cfg.MaxConsecutiveDrops && !o.abd {
			o.abd = true
			abort = true
		}

		o.mu.Unlock()

		if abort && o.abr != nil {
			o.log().Error("connpool: %d consecutive drops, signalling server termination", o.drp)
			o.abr()
		}

		return ErrorOverflow.Error(nil)
	}

	o.fre = c.fnx
	o.drp = 0

	c.reset()
	o.nid++
	c.idn = o.nid
	c.ref = driverRef

	now := time.Now()
	c.arv = now
	c.que = now

	o.wai.push(c)

	var spawn bool

	if o.idl == 0 && o.cur < o.cfg.MaxThreads {
		o.cur++
		o.idl++
		spawn = true
	}

	o.broadcast()
	o.mu.Unlock()

	if spawn {
		go o.worker()
	}

	// anti-thundering-herd hint: give a worker the processor
	runtime.Gosched()

	return nil
}

func (o *pl) Conn(id uint64) (Conn, liberr.Error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for c := o.act.hed; c != nil; c = c.nxt {
		if c.idn == id {
			return c, nil
		}
	}

	return nil, ErrorInvalidId.Error(nil)
}

func (o *pl) RegisterReady(fn FuncReady) {
	if fn == nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.rdy = append(o.rdy, fn)
}

// worker is one service goroutine. The caller already reserved its slot
// in the cur and idl counters.
func (o *pl) worker() {
	o.mu.Lock()

	for {
		for o.wai.hed == nil && !o.stp {
			var deadline time.Time

			if t := o.cfg.ThreadIdleTimeout.Time(); t > 0 && o.cur > o.cfg.MinThreads {
				deadline = time.Now().Add(t)
			}

			if !o.condWait(deadline) {
				// idle past the timeout with headroom above min: retire
				o.exit()
				return
			}
		}

		if o.wai.hed == nil && o.stp {
			o.exit()
			return
		}

		c := o.wai.pop()
		o.act.push(c)
		o.idl--
		o.mu.Unlock()

		c.beg = time.Now()
		o.serve(c)
		c.end = time.Now()

		o.sts.record(c)

		o.mu.Lock()
		o.act.remove(c)

		wasEmpty := o.fre == nil

		c.fnx = o.fre
		o.fre = c
		o.idl++

		var ready []FuncReady

		if wasEmpty {
			ready = append(ready, o.rdy...)
		}

		o.broadcast()

		if len(ready) > 0 {
			o.mu.Unlock()

			for _, fn := range ready {
				fn()
			}

			o.mu.Lock()
		}
	}
}

// exit retires the calling worker; the caller holds the lock, which is
// released here.
func (o *pl) exit() {
	o.idl--
	o.cur--
	o.broadcast()
	o.mu.Unlock()
}

// serve invokes the external handler, absorbing panics so a broken
// handler never kills a service goroutine.
func (o *pl) serve(c *crc) {
	defer func() {
		if r := recover(); r != nil {
			o.log().Error("connpool: conn #%d handler panic: %v", c.idn, r)
		}
	}()

	o.hdl(o.ctx, c)
}

func (o *pl) Stop(ctx context.Context) liberr.Error {
	if ctx == nil {
		ctx = context.Background()
	}

	o.mu.Lock()

	if !o.run {
		o.stp = true
		o.mu.Unlock()
		return nil
	}

	o.stp = true
	o.broadcast()

	var deadline time.Time

	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}

	for o.wai.cnt > 0 || o.cur > 0 {
		if !o.condWait(deadline) {
			w, t := o.wai.cnt, o.cur
			o.mu.Unlock()

			o.log().Warning("connpool: drain deadline expired, %d queued, %d workers", w, t)
			return ErrorStopTimeout.Error(nil)
		}
	}

	o.run = false
	cnl := o.cnl
	o.mu.Unlock()

	if cnl != nil {
		cnl()
	}

	return nil
}
