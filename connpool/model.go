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
	"time"
)

// crc is one pre-allocated connection record.
type crc struct {
	idn uint64
	ref interface{}

	arv time.Time
	que time.Time
	beg time.Time
	end time.Time

	tgt string
	req interface{}
	usr string
	sts int
	byt int64

	prv *crc // waiting/active doubly-linked list
	nxt *crc
	fnx *crc // free stack link
}

// reset zeroes the mutable fields for reuse; the caller assigns identity
// and timestamps.
func (c *crc) reset() {
	c.idn = 0
	c.ref = nil
	c.arv = time.Time{}
	c.que = time.Time{}
	c.beg = time.Time{}
	c.end = time.Time{}
	c.tgt = ""
	c.req = nil
	c.usr = ""
	c.sts = 0
	c.byt = 0
	c.prv = nil
	c.nxt = nil
	c.fnx = nil
}

func (c *crc) Id() uint64 {
	return c.idn
}

func (c *crc) DriverRef() interface{} {
	return c.ref
}

func (c *crc) ArrivalTime() time.Time {
	return c.arv
}

func (c *crc) QueueTime() time.Time {
	return c.que
}

func (c *crc) StartTime() time.Time {
	return c.beg
}

func (c *crc) EndTime() time.Time {
	return c.end
}

func (c *crc) SetTarget(target string) {
	c.tgt = target
}

func (c *crc) Target() string {
	return c.tgt
}

func (c *crc) SetRequest(req interface{}) {
	c.req = req
}

func (c *crc) Request() interface{} {
	return c.req
}

func (c *crc) SetAuthUser(user string) {
	c.usr = user
}

func (c *crc) AuthUser() string {
	return c.usr
}

func (c *crc) SetStatus(status int) {
	c.sts = status
}

func (c *crc) Status() int {
	return c.sts
}

func (c *crc) AddBytesSent(n int64) {
	c.byt += n
}

func (c *crc) BytesSent() int64 {
	return c.byt
}

// list is a doubly-linked FIFO over connection records.
type list struct {
	hed *crc
	til *crc
	cnt int
}

func (l *list) push(c *crc) {
	c.prv = l.til
	c.nxt = nil

	if l.til != nil {
		l.til.nxt = c
	} else {
		l.hed = c
	}

	l.til = c
	l.cnt++
}

func (l *list) pop() *crc {
	c := l.hed

	if c == nil {
		return nil
	}

	l.remove(c)
	return c
}

func (l *list) remove(c *crc) {
	if c.prv != nil {
		c.prv.nxt = c.nxt
	} else {
		l.hed = c.nxt
	}

	if c.nxt != nil {
		c.nxt.prv = c.prv
	} else {
		l.til = c.prv
	}

	c.prv = nil
	c.nxt = nil
	l.cnt--
}
