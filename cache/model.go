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

package cache

import (
	"sync"
	"time"

	liberr "github.com/nabbar/srvcore/errors"
	libsch "github.com/nabbar/srvcore/sched"
)

// ent is one cache slot, linked into the MRU list. hed side is most
// recently used.
type ent[K comparable, V any] struct {
	key K
	val V
	has bool
	siz int64
	mod time.Time

	prv *ent[K, V]
	nxt *ent[K, V]
}

func (e *ent[K, V]) Key() K {
	return e.key
}

func (e *ent[K, V]) Value() (V, bool) {
	return e.val, e.has
}

func (e *ent[K, V]) Size() int64 {
	return e.siz
}

func (e *ent[K, V]) ModTime() time.Time {
	return e.mod
}

type cc[K comparable, V any] struct {
	mu sync.Mutex

	nam string
	max int64
	ttl time.Duration
	fre FuncFree[K, V]

	idx map[K]*ent[K, V]
	hed *ent[K, V] // most recently used
	til *ent[K, V] // least recently used
	siz int64

	bcs chan struct{} // condition broadcast channel, swapped on each wake

	swi int  // sweeper event id on the scheduler, 0 when none
	sch libsch.Scheduler
	stp bool

	hit uint64
	mis uint64
	fls uint64
}

func (o *cc[K, V]) Name() string {
	return o.nam
}

func (o *cc[K, V]) Lock() {
	o.mu.Lock()
}

func (o *cc[K, V]) Unlock() {
	o.mu.Unlock()
}

// unlink detaches the entry from the MRU list.
func (o *cc[K, V]) unlink(e *ent[K, V]) {
	if e.prv != nil {
		e.prv.nxt = e.nxt
	} else if o.hed == e {
		o.hed = e.nxt
	}

	if e.nxt != nil {
		e.nxt.prv = e.prv
	} else if o.til == e {
		o.til = e.prv
	}

	e.prv = nil
	e.nxt = nil
}

// push inserts the entry at the MRU head.
func (o *cc[K, V]) push(e *ent[K, V]) {
	e.nxt = o.hed
	e.prv = nil

	if o.hed != nil {
		o.hed.prv = e
	}

	o.hed = e

	if o.til == nil {
		o.til = e
	}
}

func (o *cc[K, V]) promote(e *ent[K, V]) {
	if o.hed == e {
		return
	}

	o.unlink(e)
	o.push(e)
}

func (o *cc[K, V]) Find(key K) (Entry[K, V], bool) {
	if e, ok := o.idx[key]; ok {
		o.hit++
		o.promote(e)
		return e, true
	}

	o.mis++
	return nil, false
}

func (o *cc[K, V]) CreateEntry(key K) (Entry[K, V], bool) {
	if e, ok := o.idx[key]; ok {
		o.hit++
		o.promote(e)
		return e, false
	}

	o.mis++

	e := &ent[K, V]{key: key}
	o.idx[key] = e
	o.push(e)

	return e, true
}

func (o *cc[K, V]) Walk(fn func(ent Entry[K, V]) bool) {
	for e := o.hed; e != nil; e = e.nxt {
		if !fn(e) {
			return
		}
	}
}

func (o *cc[K, V]) SetValue(i Entry[K, V], val V, size int64) {
	e, ok := i.(*ent[K, V])
	if !ok || e == nil {
		return
	}

	if e.has {
		o.free(e)
	}

	e.val = val
	e.has = true
	e.siz = size
	e.mod = time.Now()
	o.siz += size

	if o.max > 0 {
		// evict from the LRU tail, never the entry being set
		for o.siz > o.max && o.til != nil {
			v := o.til

			if v == e {
				if v.prv == nil {
					break
				}
				v = v.prv
			}

			o.drop(v)
		}
	}
}

// free runs the deleter and clears the entry value, adjusting the
// aggregate size.
func (o *cc[K, V]) free(e *ent[K, V]) {
	if !e.has {
		return
	}

	if o.fre != nil {
		o.fre(e.key, e.val, e.siz)
	}

	o.siz -= e.siz
	e.siz = 0
	e.has = false

	var zero V
	e.val = zero
}

// drop removes the entry entirely.
func (o *cc[K, V]) drop(e *ent[K, V]) {
	o.free(e)
	o.unlink(e)
	delete(o.idx, e.key)
	o.fls++
}

func (o *cc[K, V]) Flush(i Entry[K, V]) {
	if e, ok := i.(*ent[K, V]); ok && e != nil {
		if cur, k := o.idx[e.key]; k && cur == e {
			o.drop(e)
			o.broadcast()
		}
	}
}

func (o *cc[K, V]) FlushAll() {
	for o.til != nil {
		o.drop(o.til)
	}

	o.broadcast()
}

// broadcast wakes all waiters; the caller holds the lock.
func (o *cc[K, V]) broadcast() {
	close(o.bcs)
	o.bcs = make(chan struct{})
}

func (o *cc[K, V]) Broadcast() {
	o.broadcast()
}

func (o *cc[K, V]) Signal() {
	// waiters reread shared state after waking, so a broadcast is a
	// correct signal with no fairness guarantee
	o.broadcast()
}

func (o *cc[K, V]) Wait(timeout time.Duration) bool {
	ch := o.bcs
	o.mu.Unlock()

	if timeout <= 0 {
		<-ch
		o.mu.Lock()
		return true
	}

	tmr := time.NewTimer(timeout)

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

func (o *cc[K, V]) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()

	return Stats{
		Hits:    o.hit,
		Misses:  o.mis,
		Flushed: o.fls,
		Entries: len(o.idx),
		Size:    o.siz,
		MaxSize: o.max,
	}
}

func (o *cc[K, V]) Close() liberr.Error {
	o.mu.Lock()

	if o.stp {
		o.mu.Unlock()
		return ErrorClosed.Error(nil)
	}

	o.stp = true

	swi := o.swi
	sch := o.sch
	o.swi = 0
	o.sch = nil

	for o.til != nil {
		o.drop(o.til)
	}

	o.broadcast()
	o.mu.Unlock()

	if swi > 0 && sch != nil {
		sch.Cancel(swi)
	}

	return nil
}
