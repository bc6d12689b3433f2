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
	"time"
)

// hdl is one handle record. The connection pointer is non-nil exactly
// when the connected flag is set.
type hdl struct {
	pol *pol
	ver uint64 // generation stamp against the pool stale-on-close counter
	opn time.Time
	acc time.Time
	stl bool
	erb string // scratch buffer for driver error text
	cnn Conn
	con bool
}

func (o *hdl) Pool() string {
	return o.pol.nam
}

func (o *hdl) Conn() Conn {
	return o.cnn
}

func (o *hdl) Connected() bool {
	return o.con
}

func (o *hdl) MarkStale() {
	o.stl = true
}

func (o *hdl) OpenTime() time.Time {
	return o.opn
}

func (o *hdl) LastAccess() time.Time {
	return o.acc
}

func (o *hdl) SetError(msg string) {
	o.erb = msg

	if o.pol.cfg.LogErrors && msg != "" {
		o.pol.log().Error("dbpool %s: %s", o.pol.nam, msg)
	}
}

func (o *hdl) LastError() string {
	return o.erb
}

// stale evaluates every staleness source: idle age, open age, the
// explicit flag, and the pool generation.
func (o *hdl) stale(now time.Time, gen uint64) bool {
	if o.stl {
		return true
	}

	if o.ver < gen {
		return true
	}

	if m := o.pol.cfg.MaxIdle.Time(); m > 0 && o.con && now.Sub(o.acc) > m {
		return true
	}

	if m := o.pol.cfg.MaxOpen.Time(); m > 0 && o.con && now.Sub(o.opn) > m {
		return true
	}

	return false
}

// disconnect closes the driver connection, keeping the invariant between
// the pointer and the connected flag.
func (o *hdl) disconnect() {
	if o.cnn != nil {
		if err := o.cnn.Close(); err != nil {
			o.SetError(err.Error())
		}
	}

	o.cnn = nil
	o.con = false
	o.stl = false
}

// connect opens a fresh driver connection and stamps the handle with the
// current generation.
func (o *hdl) connect(ctx context.Context, gen uint64) error {
	c, err := o.pol.drv.Open(ctx, o.pol.cfg.Datasource, o.pol.cfg.User, o.pol.cfg.Password)
	if err != nil {
		o.SetError(err.Error())
		return err
	}

	now := time.Now()

	o.cnn = c
	o.con = true
	o.stl = false
	o.ver = gen
	o.opn = now
	o.acc = now
	o.erb = ""

	if o.pol.cfg.Verbose {
		o.pol.log().Info("dbpool %s: handle connected", o.pol.nam)
	}

	return nil
}
