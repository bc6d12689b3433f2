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

// The heap is a 1-indexed binary min-heap on event.nextFire. Every swap
// updates the event's qi field in the same store so cancellation can
// locate and remove an arbitrary event in O(log n). The backing slice
// grows by fixed steps and never shrinks.

const heapGrowth = 1000

func (o *scd) size() int {
	return len(o.hep) - 1
}

func (o *scd) swap(i, j int) {
	o.hep[i], o.hep[j] = o.hep[j], o.hep[i]
	o.hep[i].qi = i
	o.hep[j].qi = j
}

func (o *scd) less(i, j int) bool {
	return o.hep[i].nextFire.Before(o.hep[j].nextFire)
}

func (o *scd) up(i int) {
	for i > 1 {
		p := i / 2

		if !o.less(i, p) {
			break
		}

		o.swap(i, p)
		i = p
	}
}

func (o *scd) down(i int) {
	for {
		c := 2 * i

		if c > o.size() {
			break
		}

		if c+1 <= o.size() && o.less(c+1, c) {
			c++
		}

		if !o.less(c, i) {
			break
		}

		o.swap(i, c)
		i = c
	}
}

// enq inserts the event and records its heap position.
func (o *scd) enq(ev *event) {
	if len(o.hep) == cap(o.hep) {
		n := make([]*event, len(o.hep), cap(o.hep)+heapGrowth)
		copy(n, o.hep)
		o.hep = n
	}

	o.hep = append(o.hep, ev)
	ev.qi = len(o.hep) - 1
	o.up(ev.qi)
}

// del removes the event at slot i, restoring heap order, and clears the
// removed event's position.
func (o *scd) del(i int) *event {
	ev := o.hep[i]
	n := o.size()

	o.swap(i, n)
	o.hep[n] = nil
	o.hep = o.hep[:n]

	if i < n {
		o.down(i)
		o.up(i)
	}

	ev.qi = 0
	return ev
}

// deq pops the earliest event.
func (o *scd) deq() *event {
	return o.del(1)
}
