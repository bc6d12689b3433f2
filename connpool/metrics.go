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
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports the pool counters as prometheus metrics.
type Collector struct {
	pool *pl

	requests *prometheus.Desc
	waitSec  *prometheus.Desc
	openSec  *prometheus.Desc
	threads  *prometheus.Desc
	idle     *prometheus.Desc
	queued   *prometheus.Desc
}

// NewCollector returns a prometheus collector over the given pool.
func NewCollector(p Pool) prometheus.Collector {
	o, _ := p.(*pl)

	return &Collector{
		pool: o,
		requests: prometheus.NewDesc("connpool_requests_total",
			"Connections serviced by the worker pool.", nil, nil),
		waitSec: prometheus.NewDesc("connpool_queue_wait_seconds_total",
			"Cumulative time connections spent queued.", nil, nil),
		openSec: prometheus.NewDesc("connpool_open_seconds_total",
			"Cumulative handler run time.", nil, nil),
		threads: prometheus.NewDesc("connpool_threads",
			"Service goroutines alive.", nil, nil),
		idle: prometheus.NewDesc("connpool_threads_idle",
			"Service goroutines idle.", nil, nil),
		queued: prometheus.NewDesc("connpool_queued",
			"Connections waiting for a service goroutine.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.waitSec
	ch <- c.openSec
	ch <- c.threads
	ch <- c.idle
	ch <- c.queued
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.pool == nil {
		return
	}

	b := c.pool.sts.global()

	c.pool.mu.Lock()
	cur, idl, que := c.pool.cur, c.pool.idl, c.pool.wai.cnt
	c.pool.mu.Unlock()

	ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(b.Requests))
	ch <- prometheus.MustNewConstMetric(c.waitSec, prometheus.CounterValue, b.WaitTime.Seconds())
	ch <- prometheus.MustNewConstMetric(c.openSec, prometheus.CounterValue, b.OpenTime.Seconds())
	ch <- prometheus.MustNewConstMetric(c.threads, prometheus.GaugeValue, float64(cur))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(idl))
	ch <- prometheus.MustNewConstMetric(c.queued, prometheus.GaugeValue, float64(que))
}
