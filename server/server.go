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

// Package server assembles the concurrency core: one scheduler, the cache
// registry, the interpreter pool, the named proxy and handle pools, and
// the connection worker pool, with explicit start and stop phases.
//
// Every subsystem is an explicit member constructed here: there is no
// process-wide hidden instance.
package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	libchc "github.com/nabbar/srvcore/cache"
	libcnp "github.com/nabbar/srvcore/connpool"
	libdbp "github.com/nabbar/srvcore/dbpool"
	liberr "github.com/nabbar/srvcore/errors"
	libipr "github.com/nabbar/srvcore/interp"
	libtsk "github.com/nabbar/srvcore/iotask"
	liblog "github.com/nabbar/srvcore/logger"
	libprx "github.com/nabbar/srvcore/proxy"
	libsch "github.com/nabbar/srvcore/sched"
)

// Server owns the core subsystems of one application server.
type Server interface {
	// Scheduler returns the timed scheduler.
	Scheduler() libsch.Scheduler

	// Caches returns the cache registry.
	Caches() libchc.Registry

	// Interps returns the interpreter pool.
	Interps() libipr.Pool

	// ConnPool returns the connection worker pool.
	ConnPool() libcnp.Pool

	// Proxy returns the named worker-subprocess pool.
	Proxy(name string) (libprx.Pool, liberr.Error)

	// DBPool returns the named handle pool.
	DBPool(name string) (libdbp.Pool, liberr.Error)

	// TaskQueue returns the shared I/O task queue.
	TaskQueue() libtsk.Queue

	// Start brings every subsystem up: scheduler first, then the task
	// queue, the proxy and handle pools, and the connection pool last.
	Start(ctx context.Context) liberr.Error

	// Stop tears the core down in reverse dependency order: connection
	// drain, proxies, handle pools, task queue, scheduler, caches.
	Stop(ctx context.Context) liberr.Error
}

// Handler carries the external collaborator contracts of the core.
type Handler struct {
	// Conn services one connection; required.
	Conn libcnp.FuncHandler

	// Abort is the server-wide termination signal.
	Abort libcnp.FuncAbort

	// Hooks are the interpreter allocate/deallocate hooks.
	Hooks libipr.Hooks
}

type srv struct {
	cfg Config
	log liblog.FuncLog

	sch libsch.Scheduler
	chr libchc.Registry
	ipr libipr.Pool
	cnp libcnp.Pool
	tsk libtsk.Queue
	prx map[string]libprx.Pool
	dbp map[string]libdbp.Pool
}

// New assembles a Server from the config. Drivers maps the dbPool section
// driver names onto driver implementations.
func New(cfg Config, hdl Handler, drivers map[string]libdbp.Driver, log liblog.FuncLog) (Server, liberr.Error) {
	if hdl.Conn == nil {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	if log == nil {
		log = liblog.Provider(liblog.New(&cfg.Logger))
	}

	o := &srv{
		cfg: cfg,
		log: log,
		sch: libsch.New(cfg.Scheduler, log),
		chr: libchc.NewRegistry(),
		tsk: libtsk.New("server", log),
		prx: make(map[string]libprx.Pool, len(cfg.Proxies)),
		dbp: make(map[string]libdbp.Pool, len(cfg.DBPools)),
	}

	ipr, err := libipr.New(cfg.Interp, hdl.Hooks, log)
	if err != nil {
		return nil, err
	}

	o.ipr = ipr

	cnp, err := libcnp.New(cfg.ConnPool, hdl.Conn, hdl.Abort, log)
	if err != nil {
		return nil, err
	}

	o.cnp = cnp

	for name, pc := range cfg.Proxies {
		p, e := libprx.New(name, pc, log)
		if e != nil {
			return nil, e
		}

		o.prx[name] = p
	}

	for name, pc := range cfg.DBPools {
		drv, ok := drivers[pc.Driver]
		if !ok {
			return nil, libdbp.ErrorDriverUnknown.Error(liberr.New(liberr.UnknownError, pc.Driver))
		}

		p, e := libdbp.New(name, pc, drv, log)
		if e != nil {
			return nil, e
		}

		o.dbp[name] = p
	}

	return o, nil
}

func (o *srv) Scheduler() libsch.Scheduler {
	return o.sch
}

func (o *srv) Caches() libchc.Registry {
	return o.chr
}

func (o *srv) Interps() libipr.Pool {
	return o.ipr
}

func (o *srv) ConnPool() libcnp.Pool {
	return o.cnp
}

func (o *srv) TaskQueue() libtsk.Queue {
	return o.tsk
}

func (o *srv) Proxy(name string) (libprx.Pool, liberr.Error) {
	if p, ok := o.prx[name]; ok {
		return p, nil
	}

	return nil, ErrorPoolUnknown.Error(nil)
}

func (o *srv) DBPool(name string) (libdbp.Pool, liberr.Error) {
	if p, ok := o.dbp[name]; ok {
		return p, nil
	}

	return nil, ErrorPoolUnknown.Error(nil)
}

func (o *srv) Start(ctx context.Context) liberr.Error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := o.sch.Start(ctx); err != nil {
		return ErrorStartComponent.Error(err)
	}

	if err := o.tsk.Start(ctx); err != nil {
		return ErrorStartComponent.Error(err)
	}

	grp, gct := errgroup.WithContext(ctx)

	for _, p := range o.prx {
		p := p

		grp.Go(func() error {
			return asStd(p.Start(gct))
		})
	}

	for _, p := range o.dbp {
		p := p

		grp.Go(func() error {
			return asStd(p.Start(gct, o.sch))
		})
	}

	if err := grp.Wait(); err != nil {
		return ErrorStartComponent.Error(err)
	}

	if err := o.cnp.Start(ctx); err != nil {
		return ErrorStartComponent.Error(err)
	}

	return nil
}

func (o *srv) Stop(ctx context.Context) liberr.Error {
	if ctx == nil {
		ctx = context.Background()
	}

	var e = ErrorStopComponent.Error(nil)

	if err := o.cnp.Stop(ctx); err != nil {
		e.AddParentError(err)
	}

	grp, gct := errgroup.WithContext(ctx)

	for _, p := range o.prx {
		p := p

		grp.Go(func() error {
			return asStd(p.Stop(gct))
		})
	}

	for _, p := range o.dbp {
		p := p

		grp.Go(func() error {
			return asStd(p.Stop(gct))
		})
	}

	if err := grp.Wait(); err != nil {
		e.Add(err)
	}

	if err := o.tsk.Stop(ctx); err != nil {
		e.AddParentError(err)
	}

	if err := o.sch.Stop(ctx); err != nil {
		e.AddParentError(err)
	}

	if err := o.chr.Close(); err != nil {
		e.AddParentError(err)
	}

	if !e.HasParent() {
		e = nil
	}

	return e
}

// asStd narrows a typed error to the standard interface without wrapping
// a nil value.
func asStd(err liberr.Error) error {
	if err == nil {
		return nil
	}

	return err
}
