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
	"encoding/binary"
	"time"

	liberr "github.com/nabbar/srvcore/errors"
)

// prx is one checkout handle. Between Get and Put it is confined to the
// calling goroutine; only the pool lock-protected fields of pol are shared.
type prx struct {
	pol *pol
	idn string
	sta State
	prc *prc
	lst string // last sent script
	buf []byte // pending receive buffer
	wok bool   // wait completed since last send
}

func (o *prx) Id() string {
	return o.idn
}

func (o *prx) State() State {
	return o.sta
}

func (o *prx) LastScript() string {
	return o.lst
}

// check ensures a live, init-evaluated child behind the proxy, spawning
// one when needed.
func (o *prx) check() liberr.Error {
	if o.prc != nil && o.prc.alive() {
		// zero-length ping frame: the child answers without evaluating
		if _, e := o.Eval(""); e == nil {
			return nil
		}

		o.sta = StateIdle
		o.pol.close(o.prc)
	}

	o.prc = nil

	c, err := o.pol.spawn(o.idn)
	if err != nil {
		return err
	}

	o.prc = c
	o.sta = StateIdle

	if ini := o.pol.cfg.Init; ini != "" {
		res, e := o.Eval(ini)

		if e == nil && !res.Ok() {
			e = ErrorInit.Error(liberr.New(liberr.UnknownError, res.ErrInfo))
		}

		if e != nil {
			return ErrorInit.Error(e)
		}
	}

	return nil
}

func (o *prx) Eval(script string) (Result, liberr.Error) {
	if err := o.Send(script); err != nil {
		return Result{}, err
	}

	if err := o.Wait(o.pol.cfg.EvalTimeout.Time()); err != nil {
		return Result{}, err
	}

	return o.Recv()
}

func (o *prx) Send(script string) liberr.Error {
	if o.sta != StateIdle {
		return ErrorBusy.Error(nil)
	}

	if o.prc == nil || !o.prc.alive() {
		return ErrorDead.Error(nil)
	}

	frame := EncodeRequest([]byte(script))

	if err := o.prc.write(frame, o.pol.cfg.SendTimeout.Time()); err != nil {
		o.pol.countError()
		return ErrorSend.Error(err)
	}

	o.lst = script
	o.sta = StateBusy
	o.wok = false

	return nil
}

func (o *prx) Wait(timeout time.Duration) liberr.Error {
	if o.sta != StateBusy {
		return ErrorIdle.Error(nil)
	}

	if o.prc == nil || !o.prc.alive() {
		return ErrorDead.Error(nil)
	}

	ok, err := o.prc.waitReadable(timeout)
	if err != nil {
		o.pol.countError()
		return ErrorRecv.Error(err)
	}

	if !ok {
		return ErrorEvalTimeout.Error(nil)
	}

	o.wok = true
	return nil
}

func (o *prx) Recv() (Result, liberr.Error) {
	if o.sta != StateBusy {
		return Result{}, ErrorIdle.Error(nil)
	}

	if !o.wok {
		return Result{}, ErrorNoWait.Error(nil)
	}

	if o.prc == nil {
		return Result{}, ErrorDead.Error(nil)
	}

	var (
		tmo = o.pol.cfg.RecvTimeout.Time()
		hdr [4]byte
	)

	if err := o.prc.read(hdr[:], tmo); err != nil {
		o.pol.countError()
		return Result{}, ErrorRecv.Error(err)
	}

	total := binary.BigEndian.Uint32(hdr[:])

	o.buf = make([]byte, total)

	if err := o.prc.read(o.buf, tmo); err != nil {
		o.pol.countError()
		return Result{}, ErrorRecv.Error(err)
	}

	res, err := DecodeReply(o.buf)
	if err != nil {
		o.pol.countError()
		return Result{}, ErrorImport.Error(err)
	}

	o.buf = nil
	o.sta = StateIdle
	o.wok = false
	o.pol.countEval()

	return res, nil
}

func (o *pol) countEval() {
	o.mu.Lock()
	o.sEval++
	o.mu.Unlock()
}

func (o *pol) countError() {
	o.mu.Lock()
	o.sErrs++
	o.mu.Unlock()
}
