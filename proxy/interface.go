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

// Package proxy provides the worker-subprocess pool of the server core:
// script evaluation offloaded to isolated child processes over a
// length-framed pipe protocol, with bounded concurrency per named pool,
// per-phase timeouts and a kill-escalating closer.
//
// A caller obtains proxies through an Owner token, the per-goroutine hold
// accounting handle: requests that would exceed the pool maximum together
// with the owner's outstanding holds are rejected instead of deadlocking.
package proxy

import (
	"context"
	"time"

	liberr "github.com/nabbar/srvcore/errors"
	liblog "github.com/nabbar/srvcore/logger"
)

// State is the proxy lifecycle state.
type State uint8

const (
	// StateIdle means the proxy accepts a Send.
	StateIdle State = iota

	// StateBusy means a request frame was sent and no reply consumed yet.
	StateBusy

	// StateDone means the reply was consumed and the proxy awaits reset.
	StateDone
)

// MaxIdLen bounds a proxy id string.
const MaxIdLen = 64

// Active describes one non-idle proxy for the inspection listing.
type Active struct {
	Id     string
	Script string
}

// Stats is a snapshot of pool activity.
type Stats struct {
	Free      int
	Running   int
	Available int
	Evals     uint64
	Errors    uint64
}

// Proxy is a checkout handle to one worker subprocess.
//
// A Proxy is confined to the goroutine that obtained it between Get and
// Put.
type Proxy interface {
	// Id returns the stable proxy id of form "<pool>-proxy-<seq>".
	Id() string

	// State returns the current lifecycle state.
	State() State

	// Eval runs the three-phase Send, Wait, Receive exchange with the
	// pool's configured timeouts.
	Eval(script string) (Result, liberr.Error)

	// Send writes one request frame. It fails with Busy unless the proxy
	// is idle, and with Dead when the child is not alive.
	Send(script string) liberr.Error

	// Wait blocks until the reply is readable, or fails with EvalTimeout.
	Wait(timeout time.Duration) liberr.Error

	// Recv reads and decodes the reply frame. Calling it without a
	// completed Wait fails with NoWait.
	Recv() (Result, liberr.Error)

	// LastScript returns the script bytes most recently sent.
	LastScript() string
}

// Owner is the per-goroutine accounting handle over one pool.
type Owner interface {
	// Get checks out count proxies, waiting up to timeout past the other
	// callers. Each returned proxy has a live, init-evaluated child.
	Get(count int, timeout time.Duration) ([]Proxy, liberr.Error)

	// Put returns proxies to the pool. A non-idle or dead proxy's child
	// is handed to the closer for kill escalation.
	Put(px ...Proxy)

	// Held returns the owner's outstanding proxy count.
	Held() int
}

// Pool is one named worker-subprocess pool.
type Pool interface {
	// Name returns the pool name.
	Name() string

	// Owner mints an accounting handle for one calling goroutine.
	Owner() Owner

	// Configure replaces the pool limits and scripts. Lowering Max below
	// the checked-out count drives the available counter negative until
	// enough proxies return.
	Configure(cfg Config) liberr.Error

	// Active lists the non-idle proxies with their last sent script.
	Active() []Active

	// Stats returns a snapshot of the pool counters.
	Stats() Stats

	// Start launches the closer goroutine.
	Start(ctx context.Context) liberr.Error

	// Stop closes every free proxy child and drains the closer. Stop
	// blocks until done or ctx expires.
	Stop(ctx context.Context) liberr.Error
}

// New returns a new Pool with the given name, config and logger provider.
func New(name string, cfg Config, log liblog.FuncLog) (Pool, liberr.Error) {
	if name == "" {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = liblog.Provider(nil)
	}

	return &pol{
		nam: name,
		cfg: cfg,
		log: log,
		avl: cfg.Max,
		bcs: make(chan struct{}),
	}, nil
}
