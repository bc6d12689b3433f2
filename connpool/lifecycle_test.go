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

package connpool_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/nabbar/srvcore/connpool"
	libdur "github.com/nabbar/srvcore/duration"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ConnPool Lifecycle", func() {
	var (
		ctx context.Context
		cnl context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cnl = context.WithTimeout(context.Background(), 30*time.Second)
	})

	AfterEach(func() {
		if cnl != nil {
			cnl()
		}
	})

	Describe("Enqueue", func() {
		It("should dispatch queued connections FIFO to the handler", func() {
			var (
				mu  sync.Mutex
				got []interface{}
			)

			p, err := New(Config{
				MinThreads: 1,
				MaxThreads: 1,
				MaxConns:   8,
			}, func(ctx context.Context, c Conn) {
				mu.Lock()
				got = append(got, c.DriverRef())
				mu.Unlock()
			}, nil, nil)

			Expect(err).To(BeNil())
			Expect(p.Start(ctx)).To(BeNil())

			for i := 0; i < 5; i++ {
				Expect(p.Enqueue(i)).To(BeNil())
			}

			Eventually(func() int {
				mu.Lock()
				defer mu.Unlock()
				return len(got)
			}, 5*time.Second, 10*time.Millisecond).Should(Equal(5))

			mu.Lock()
			Expect(got).To(Equal([]interface{}{0, 1, 2, 3, 4}))
			mu.Unlock()

			Expect(p.Stop(ctx)).To(BeNil())
		})

		It("should fail with Overflow when the arena is exhausted", func() {
			var block = make(chan struct{})

			p, err := New(Config{
				MinThreads: 1,
				MaxThreads: 1,
				MaxConns:   2,
			}, func(ctx context.Context, c Conn) {
				<-block
			}, nil, nil)

			Expect(err).To(BeNil())
			Expect(p.Start(ctx)).To(BeNil())

			// one serviced and blocked, one waiting: arena of two is gone
			Expect(p.Enqueue("a")).To(BeNil())
			Expect(p.Enqueue("b")).To(BeNil())

			Eventually(func() bool {
				e := p.Enqueue("c")
				return e != nil && e.IsCode(ErrorOverflow)
			}, 5*time.Second, 10*time.Millisecond).Should(BeTrue())

			close(block)
			Expect(p.Stop(ctx)).To(BeNil())
		})

		It("should fire the abort hook exactly once past the drop threshold", func() {
			var (
				aborts int32
				block  = make(chan struct{})
			)

			p, err := New(Config{
				MinThreads:          1,
				MaxThreads:          1,
				MaxConns:            1,
				MaxConsecutiveDrops: 2,
			}, func(ctx context.Context, c Conn) {
				<-block
			}, func() {
				atomic.AddInt32(&aborts, 1)
			}, nil)

			Expect(err).To(BeNil())
			Expect(p.Start(ctx)).To(BeNil())

			Expect(p.Enqueue("a")).To(BeNil())

			Eventually(func() bool {
				e := p.Enqueue("x")
				return e != nil && e.IsCode(ErrorOverflow)
			}, 5*time.Second, 10*time.Millisecond).Should(BeTrue())

			for i := 0; i < 5; i++ {
				p.Enqueue("x")
			}

			Expect(atomic.LoadInt32(&aborts)).To(Equal(int32(1)))

			close(block)
			Expect(p.Stop(ctx)).To(BeNil())
		})

		It("should refuse enqueues while shutting down", func() {
			p, err := New(Config{
				MinThreads: 1,
				MaxThreads: 2,
				MaxConns:   4,
			}, func(ctx context.Context, c Conn) {}, nil, nil)

			Expect(err).To(BeNil())
			Expect(p.Start(ctx)).To(BeNil())
			Expect(p.Stop(ctx)).To(BeNil())

			e := p.Enqueue("late")
			Expect(e).ToNot(BeNil())
			Expect(e.IsCode(ErrorShuttingDown)).To(BeTrue())
		})
	})

	Describe("Elastic workers", func() {
		It("should grow to max under load", func() {
			var (
				inFlight int32
				peak     int32
				block    = make(chan struct{})
			)

			p, err := New(Config{
				MinThreads:        2,
				MaxThreads:        4,
				MaxConns:          8,
				ThreadIdleTimeout: libdur.Duration(50 * time.Millisecond),
			}, func(ctx context.Context, c Conn) {
				n := atomic.AddInt32(&inFlight, 1)

				for {
					old := atomic.LoadInt32(&peak)

					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}

				<-block
				atomic.AddInt32(&inFlight, -1)
			}, nil, nil)

			Expect(err).To(BeNil())
			Expect(p.Start(ctx)).To(BeNil())

			for i := 0; i < 6; i++ {
				Expect(p.Enqueue(i)).To(BeNil())

				// let the dispatch settle so thread growth is driven by
				// the no-idle-worker condition, not enqueue burst timing
				time.Sleep(20 * time.Millisecond)
			}

			Eventually(func() int32 {
				return atomic.LoadInt32(&inFlight)
			}, 5*time.Second, 10*time.Millisecond).Should(Equal(int32(4)))

			close(block)

			Eventually(func() int32 {
				return atomic.LoadInt32(&inFlight)
			}, 5*time.Second, 10*time.Millisecond).Should(Equal(int32(0)))

			Expect(atomic.LoadInt32(&peak)).To(Equal(int32(4)))
			Expect(p.Stop(ctx)).To(BeNil())
		})
	})

	Describe("Stop", func() {
		It("should drain queued connections before returning", func() {
			var done int32

			p, err := New(Config{
				MinThreads: 2,
				MaxThreads: 4,
				MaxConns:   8,
			}, func(ctx context.Context, c Conn) {
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&done, 1)
			}, nil, nil)

			Expect(err).To(BeNil())
			Expect(p.Start(ctx)).To(BeNil())

			for i := 0; i < 6; i++ {
				Expect(p.Enqueue(i)).To(BeNil())
			}

			sct, scn := context.WithTimeout(ctx, 2*time.Second)
			defer scn()

			Expect(p.Stop(sct)).To(BeNil())
			Expect(atomic.LoadInt32(&done)).To(Equal(int32(6)))
		})

		It("should fail with StopTimeout when handlers outlive the deadline", func() {
			var block = make(chan struct{})

			p, err := New(Config{
				MinThreads: 1,
				MaxThreads: 1,
				MaxConns:   2,
			}, func(ctx context.Context, c Conn) {
				<-block
			}, nil, nil)

			Expect(err).To(BeNil())
			Expect(p.Start(ctx)).To(BeNil())
			Expect(p.Enqueue("a")).To(BeNil())

			sct, scn := context.WithTimeout(ctx, 100*time.Millisecond)
			defer scn()

			e := p.Stop(sct)
			Expect(e).ToNot(BeNil())
			Expect(e.IsCode(ErrorStopTimeout)).To(BeTrue())

			close(block)
		})
	})
})
