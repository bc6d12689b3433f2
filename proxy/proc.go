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
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	liberr "github.com/nabbar/srvcore/errors"
)

// activeSlotLen sizes the padded argv slot the child may overwrite with
// its in-flight script, keeping it visible to external process listings.
const activeSlotLen = 100

// prc is one live child process. A prc outlives its proxy when handed to
// the closer for shutdown.
type prc struct {
	pid int
	cmd *exec.Cmd
	rfd *os.File // parent read end of the child's reply pipe
	wfd *os.File // parent write end of the child's request pipe
	ded atomic.Bool
}

func (o *prc) alive() bool {
	return !o.ded.Load() && o.cmd.ProcessState == nil
}

// spawn starts one child: requests on the child's fd 0, replies on its
// fd 1, stderr shared with the parent.
func (o *pol) spawn(id string) (*prc, liberr.Error) {
	crd, pwr, err := os.Pipe()
	if err != nil {
		return nil, ErrorExec.Error(err)
	}

	prd, cwr, err := os.Pipe()
	if err != nil {
		crd.Close()
		pwr.Close()
		return nil, ErrorExec.Error(err)
	}

	cmd := exec.Command(o.cfg.Exec, o.nam, id, strings.Repeat(" ", activeSlotLen))
	cmd.Stdin = crd
	cmd.Stdout = cwr
	cmd.Stderr = os.Stderr

	if err = cmd.Start(); err != nil {
		crd.Close()
		pwr.Close()
		prd.Close()
		cwr.Close()
		return nil, ErrorExec.Error(err)
	}

	// the child ends keep their dup inside the child
	crd.Close()
	cwr.Close()

	unix.SetNonblock(int(prd.Fd()), true)
	unix.SetNonblock(int(pwr.Fd()), true)

	o.mu.Lock()
	o.run++
	o.mu.Unlock()

	return &prc{
		pid: cmd.Process.Pid,
		cmd: cmd,
		rfd: prd,
		wfd: pwr,
	}, nil
}

// write sends the whole buffer, polling the pipe for writability before
// each attempt and retrying short writes. A zero timeout blocks.
func (o *prc) write(b []byte, timeout time.Duration) error {
	var deadline time.Time

	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	fd := int(o.wfd.Fd())

	for len(b) > 0 {
		if err := pollFd(fd, unix.POLLOUT, deadline); err != nil {
			return err
		}

		n, err := unix.Write(fd, b)

		if err == unix.EAGAIN {
			continue
		} else if err != nil {
			o.ded.Store(true)
			return err
		}

		b = b[n:]
	}

	return nil
}

// read fills the whole buffer, polling for readability. EOF marks the
// child dead.
func (o *prc) read(b []byte, timeout time.Duration) error {
	var deadline time.Time

	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	fd := int(o.rfd.Fd())

	for len(b) > 0 {
		if err := pollFd(fd, unix.POLLIN, deadline); err != nil {
			return err
		}

		n, err := unix.Read(fd, b)

		if err == unix.EAGAIN {
			continue
		} else if err != nil {
			o.ded.Store(true)
			return err
		} else if n == 0 {
			o.ded.Store(true)
			return unix.EPIPE
		}

		b = b[n:]
	}

	return nil
}

// waitReadable polls the reply pipe until readable or the timeout. A zero
// timeout blocks indefinitely.
func (o *prc) waitReadable(timeout time.Duration) (bool, error) {
	var deadline time.Time

	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	err := pollFd(int(o.rfd.Fd()), unix.POLLIN, deadline)

	if err == unix.ETIMEDOUT {
		return false, nil
	} else if err != nil {
		return false, err
	}

	return true, nil
}

// pollFd waits for the event on the descriptor until the deadline; a zero
// deadline blocks. ETIMEDOUT reports expiry.
func pollFd(fd int, events int16, deadline time.Time) error {
	for {
		var tmo = -1

		if !deadline.IsZero() {
			d := time.Until(deadline)

			if d <= 0 {
				return unix.ETIMEDOUT
			}

			tmo = int(d.Milliseconds()) + 1
		}

		pfd := []unix.PollFd{{Fd: int32(fd), Events: events}}

		n, err := unix.Poll(pfd, tmo)

		if err == unix.EINTR {
			continue
		} else if err != nil {
			return err
		} else if n == 0 {
			return unix.ETIMEDOUT
		}

		if pfd[0].Revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
			return unix.EPIPE
		}

		return nil
	}
}

// waitEOF polls the reply pipe until the child closes its end or the
// timeout expires.
func (o *prc) waitEOF(timeout time.Duration) bool {
	var deadline = time.Now().Add(timeout)

	for {
		if err := pollFd(int(o.rfd.Fd()), unix.POLLIN, deadline); err != nil {
			return err != unix.ETIMEDOUT
		}

		var b [256]byte

		n, err := unix.Read(int(o.rfd.Fd()), b[:])

		if n == 0 || (err != nil && err != unix.EAGAIN) {
			return true
		}
	}
}

// closer drains the shutdown queue: close the request pipe so the child
// sees EOF and exits, wait, then escalate TERM, KILL, and finally log a
// zombie.
func (o *pol) closer() {
	defer close(o.cld)

	for c := range o.clq {
		o.reap(c)
	}
}

// reap runs the kill escalation for one child then collects its exit
// status.
func (o *pol) reap(c *prc) {
	var tmo = o.cfg.WaitTimeout.Time()

	if tmo <= 0 {
		tmo = time.Second
	}

	c.wfd.Close()

	var done = c.waitEOF(tmo)

	if !done {
		c.cmd.Process.Signal(unix.SIGTERM)
		done = c.waitEOF(tmo)
	}

	if !done {
		c.cmd.Process.Signal(unix.SIGKILL)
		done = c.waitEOF(tmo)
	}

	if !done {
		o.log().Warning("proxy %s: zombie: %d", o.nam, c.pid)
	}

	c.rfd.Close()
	c.ded.Store(true)

	go c.cmd.Wait()

	o.mu.Lock()
	o.run--
	o.mu.Unlock()
}
