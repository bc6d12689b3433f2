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

package proxy

import (
	"context"
	"fmt"
	"sync"
	"time"

	liberr "github.com/nabbar/srvcore/errors"
	liblog "github.com/nabbar/srvcore/logger"
)

type pol struct {
	nam string
	cfg Config
	log liblog.FuncLog

	mu  sync.Mutex
	all []*prx // every minted proxy, for the active listing
	fre []*prx // idle proxies
	run int    // proxies checked out or free with live child
	avl int    // checkout budget, negative after Configure lowered Max
	seq int    // last minted proxy sequence
	exw bool   // exclusive waiter role taken
	stp bool
	act bool

	bcs chan struct{} // condition broadcast channel

	clq chan *prc // closer queue
	cld chan struct{}
	ctx context.Context
	cnl context.CancelFunc

	sEval uint64
	sErrs uint64
}

func (o *pol) Name() string {
	return o.nam
}

// mintId builds "<pool>-proxy-<seq>" bounded to MaxIdLen, truncating the
// pool name as needed to leave room for the constant and the sequence.
func (o *pol) mintId() string {
	o.seq++

	var (
		suf = fmt.Sprintf("-proxy-%d", o.seq)
		nam = o.nam
	)

	if len(nam)+len(suf) > MaxIdLen {
		nam = nam[:MaxIdLen-len(suf)]
	}

	return nam + suf
}

// broadcast wakes every condition waiter; the caller holds the lock.
func (o *pol) broadcast() {
	close(o.bcs)
	o.bcs = make(chan struct{})
}

// condWait releases the lock until a broadcast or the deadline, then
// reacquires. It returns false on timeout.
func (o *pol) condWait(deadline time.Time) bool {
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

func (o *pol) Owner() Owner {
	return &own{pol: o}
}

func (o *pol) Configure(cfg Config) liberr.Error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// adjust the budget by the delta so outstanding checkouts keep
	// counting; the counter goes negative when Max shrinks below them
	o.avl += cfg.Max - o.cfg.Max
	o.cfg = cfg
	o.broadcast()

	return nil
}

func (o *pol) Active() []Active {
	o.mu.Lock()
	defer o.mu.Unlock()

	var res []Active

	for _, p := range o.all {
		if p.sta != StateIdle {
			res = append(res, Active{Id: p.idn, Script: p.lst})
		}
	}

	return res
}

func (o *pol) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()

	return Stats{
		Free:      len(o.fre),
		Running:   o.run,
		Available: o.avl,
		Evals:     o.sEval,
		Errors:    o.sErrs,
	}
}

func (o *pol) Start(ctx context.Context) liberr.Error {
	if ctx == nil {
		ctx = context.Background()
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.act {
		return nil
	} else if o.stp {
		return ErrorShuttingDown.Error(nil)
	}

	o.ctx, o.cnl = context.WithCancel(ctx)
	o.clq = make(chan *prc, 64)
	o.cld = make(chan struct{})
	o.act = true

	// pre-mint the warm set; children spawn lazily at first checkout
	for len(o.all) < o.cfg.Min {
		x := &prx{pol: o, idn: o.mintId()}
		o.all = append(o.all, x)
		o.fre = append(o.fre, x)
	}

	go o.closer()

	return nil
}

func (o *pol) Stop(ctx context.Context) liberr.Error {
	if ctx == nil {
		ctx = context.Background()
	}

	o.mu.Lock()

	if !o.act || o.stp {
		o.stp = true
		o.mu.Unlock()
		return nil
	}

	o.stp = true
	o.broadcast()

	var procs []*prc

	for _, p := range o.fre {
		if p.prc != nil {
			procs = append(procs, p.prc)
			p.prc = nil
		}
	}

	o.fre = nil
	o.mu.Unlock()

	for _, c := range procs {
		o.clq <- c
	}

	close(o.clq)

	select {
	case <-o.cld:
	case <-ctx.Done():
		return ErrorShuttingDown.Error(ctx.Err())
	}

	if o.cnl != nil {
		o.cnl()
	}

	return nil
}

// own is the per-goroutine accounting handle.
type own struct {
	pol  *pol
	held int
}

func (o *own) Held() int {
	return o.held
}

func (o *own) Get(count int, timeout time.Duration) ([]Proxy, liberr.Error) {
	p := o.pol

	if count < 1 {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	p.mu.Lock()

	if p.stp || !p.act {
		p.mu.Unlock()
		return nil, ErrorShuttingDown.Error(nil)
	}

	if count > p.cfg.Max {
		p.mu.Unlock()
		return nil, ErrorRange.Error(liberr.New(liberr.UnknownError,
			fmt.Sprintf("requested %d, pool max %d", count, p.cfg.Max)))
	}

	if o.held+count > p.cfg.Max {
		p.mu.Unlock()
		return nil, ErrorDeadlock.Error(liberr.New(liberr.UnknownError,
			fmt.Sprintf("holding %d, requesting %d, pool max %d", o.held, count, p.cfg.Max)))
	}

	var deadline time.Time

	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	} else if t := p.cfg.GetTimeout.Time(); t > 0 {
		deadline = time.Now().Add(t)
	}

	// compete for the exclusive waiter role so multi-proxy requests do
	// not interleave partial grants
	for p.exw {
		if !p.condWait(deadline) {
			p.mu.Unlock()
			return nil, ErrorGetTimeout.Error(nil)
		}

		if p.stp {
			p.mu.Unlock()
			return nil, ErrorShuttingDown.Error(nil)
		}
	}

	p.exw = true

	var (
		got  = make([]*prx, 0, count)
		gerr liberr.Error
	)

	for len(got) < count {
		if p.stp {
			gerr = ErrorShuttingDown.Error(nil)
			break
		}

		if p.avl > 0 {
			var x *prx

			if n := len(p.fre); n > 0 {
				x = p.fre[n-1]
				p.fre = p.fre[:n-1]
			} else {
				x = &prx{pol: p, idn: p.mintId()}
				p.all = append(p.all, x)
			}

			p.avl--
			got = append(got, x)
			continue
		}

		if !p.condWait(deadline) {
			gerr = ErrorGetTimeout.Error(nil)
			break
		}
	}

	if gerr != nil {
		// unwind partial grants
		for _, x := range got {
			p.fre = append(p.fre, x)
			p.avl++
		}

		p.exw = false
		p.broadcast()
		p.mu.Unlock()
		return nil, gerr
	}

	p.exw = false
	p.broadcast()
	p.mu.Unlock()

	// check children outside the lock
	for _, x := range got {
		if err := x.check(); err != nil {
			// return everything checked out; dead children reach the
			// closer through the liveness check on return
			o.putLocked(got, false)
			return nil, err
		}
	}

	o.held += count

	var res = make([]Proxy, 0, count)

	for _, x := range got {
		res = append(res, x)
	}

	return res, nil
}

// putLocked reenqueues proxies, optionally forcing their children through
// the closer.
func (o *own) putLocked(px []*prx, kill bool) {
	if len(px) == 0 {
		return
	}

	p := o.pol

	var procs []*prc

	p.mu.Lock()

	for _, x := range px {
		x.lst = ""
		x.buf = nil

		if kill || x.sta != StateIdle || (x.prc != nil && !x.prc.alive()) {
			if x.prc != nil {
				procs = append(procs, x.prc)
				x.prc = nil
			}

			x.sta = StateIdle
		}

		p.fre = append(p.fre, x)
		p.avl++
	}

	p.broadcast()
	p.mu.Unlock()

	for _, c := range procs {
		p.close(c)
	}
}

func (o *own) Put(px ...Proxy) {
	var lst = make([]*prx, 0, len(px))

	for _, i := range px {
		if x, ok := i.(*prx); ok && x != nil {
			lst = append(lst, x)

			if o.held > 0 {
				o.held--
			}
		}
	}

	o.putLocked(lst, false)
}

// close hands a child to the closer goroutine, falling back to inline
// escalation when the closer is gone.
func (o *pol) close(c *prc) {
	defer func() {
		// closer queue already closed during Stop
		if recover() != nil {
			o.reap(c)
		}
	}()

	select {
	case o.clq <- c:
	default:
		o.reap(c)
	}
}
