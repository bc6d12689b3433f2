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
	"context"
	"time"

	liberr "github.com/nabbar/srvcore/errors"
	libsch "github.com/nabbar/srvcore/sched"
)

// startSweeper registers the periodic expiration job on the scheduler.
// The tick interval is the TTL itself: an entry is dropped at most one
// period after it expired.
func (o *cc[K, V]) startSweeper(sch libsch.Scheduler) liberr.Error {
	id, err := sch.Every(o.ttl, func(ctx context.Context, id int) {
		o.sweep()
	}, true, nil)

	if err != nil {
		return ErrorSweeperSchedule.Error(err)
	}

	o.swi = id
	o.sch = sch

	return nil
}

// sweep walks the LRU list from the oldest end, dropping entries whose
// value is older than now - TTL, and stops at the first fresh entry.
func (o *cc[K, V]) sweep() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stp {
		return
	}

	var (
		lim = time.Now().Add(-o.ttl)
		cnt int
	)

	for o.til != nil {
		e := o.til

		// fills in flight have no value yet: skip every one of them
		// without crossing the stop condition
		for e != nil && !e.has {
			e = e.prv
		}

		if e == nil || e.mod.After(lim) {
			break
		}

		o.drop(e)
		cnt++
	}

	if cnt > 0 {
		o.broadcast()
	}
}
