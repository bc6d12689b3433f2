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
	"time"

	liberr "github.com/nabbar/srvcore/errors"
)

type tskFlag uint8

const (
	flagInit tskFlag = 1 << iota
	flagWait
	flagCancel
	flagTimeout
	flagDone
	flagPending
)

type sigFlag uint8

const (
	sigInit sigFlag = 1 << iota
	sigCancel
)

// tsk is one task. The owner goroutine is the only mutator of flg, evs,
// dla and the wait-list link; sig, the signal-list link and the done
// channel are touched under the queue lock.
type tsk struct {
	que *que
	fdn int
	cbk FuncTask

	flg tskFlag
	evs Event
	dla time.Time // absolute deadline, zero when unarmed

	sig sigFlag
	snx *tsk // signal list link
	wnx *tsk // wait list link

	dch chan struct{} // closed when done
}

func (t *tsk) Fd() int {
	return t.fdn
}

func (t *tsk) SetEvents(ev Event) {
	t.evs = ev
}

func (t *tsk) SetDeadline(d time.Time) {
	t.dla = d
}

func (t *tsk) Done() {
	t.flg |= flagDone
}

func (t *tsk) Cancel() liberr.Error {
	return t.que.signal(t, sigCancel)
}

func (t *tsk) WaitDone(ctx context.Context) liberr.Error {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-t.dch:
		return nil
	case <-ctx.Done():
		return ErrorShuttingDown.Error(ctx.Err())
	}
}
