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

package dbpool_test

import (
	"context"
	"sync/atomic"
	"time"

	. "github.com/nabbar/srvcore/dbpool"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeConn counts opens and closes so staleness can be observed without a
// real datasource.
type fakeConn struct {
	drv    *fakeDriver
	closed bool
}

func (o *fakeConn) Ping(ctx context.Context) error  { return nil }
func (o *fakeConn) Reset(ctx context.Context) error { return nil }

func (o *fakeConn) Close() error {
	o.closed = true
	atomic.AddInt32(&o.drv.closes, 1)
	return nil
}

type fakeDriver struct {
	opens  int32
	closes int32
}

func (o *fakeDriver) Name() string { return "fake" }

func (o *fakeDriver) Open(ctx context.Context, datasource, user, password string) (Conn, error) {
	atomic.AddInt32(&o.opens, 1)
	return &fakeConn{drv: o}, nil
}

var _ = Describe("DBPool Acquisition", func() {
	var (
		ctx context.Context
		cnl context.CancelFunc
		drv *fakeDriver
		p   Pool
	)

	newPool := func(max int) Pool {
		pl, err := New("db", Config{
			Datasource: "mem://test",
			Driver:     "fake",
			Connections: max,
		}, drv, nil)

		Expect(err).To(BeNil())
		Expect(pl.Start(ctx, nil)).To(BeNil())
		return pl
	}

	BeforeEach(func() {
		ctx, cnl = context.WithTimeout(context.Background(), 30*time.Second)
		drv = &fakeDriver{}
		p = newPool(3)
	})

	AfterEach(func() {
		p.Stop(ctx)

		if cnl != nil {
			cnl()
		}
	})

	Describe("Get and Put", func() {
		It("should hand out connected handles and take them back", func() {
			own := p.Owner()

			hs, err := own.Get(2, time.Second)
			Expect(err).To(BeNil())
			Expect(hs).To(HaveLen(2))
			Expect(own.Held()).To(Equal(2))

			for _, h := range hs {
				Expect(h.Connected()).To(BeTrue())
				Expect(h.Conn()).ToNot(BeNil())
			}

			own.Put(hs...)
			Expect(own.Held()).To(Equal(0))

			st := p.Stats()
			Expect(st.Free).To(Equal(2))
			Expect(st.Held).To(Equal(0))
		})

		It("should reject a request above the pool maximum with Range", func() {
			own := p.Owner()

			_, err := own.Get(4, time.Second)
			Expect(err).ToNot(BeNil())
			Expect(err.IsCode(ErrorRange)).To(BeTrue())
		})

		It("should reject holdings plus request above the maximum", func() {
			own := p.Owner()

			hs, err := own.Get(2, time.Second)
			Expect(err).To(BeNil())

			_, err = own.Get(2, time.Second)
			Expect(err).ToNot(BeNil())
			Expect(err.IsCode(ErrorDeadlock)).To(BeTrue())

			own.Put(hs...)
		})

		It("should time out and unwind a partial grant", func() {
			o1 := p.Owner()

			hs, err := o1.Get(3, time.Second)
			Expect(err).To(BeNil())

			o2 := p.Owner()

			_, err = o2.Get(1, 100*time.Millisecond)
			Expect(err).ToNot(BeNil())
			Expect(err.IsCode(ErrorGetTimeout)).To(BeTrue())

			o1.Put(hs...)

			// the pool recovered every handle
			hs, err = o2.Get(3, time.Second)
			Expect(err).To(BeNil())
			o2.Put(hs...)
		})
	})

	Describe("Deadlock rejection", func() {
		It("should refuse a waiter-colliding request immediately", func() {
			t1 := p.Owner()

			hs, err := t1.Get(2, time.Second)
			Expect(err).To(BeNil())

			// T2 wants the whole pool: it blocks holding nothing
			t2done := make(chan error, 1)

			go func() {
				t2 := p.Owner()

				h2, e := t2.Get(3, 5*time.Second)

				if e == nil {
					t2.Put(h2...)
					t2done <- nil
				} else {
					t2done <- e
				}
			}()

			// let T2 reach the wait loop
			time.Sleep(100 * time.Millisecond)

			// T1 holds 2 and wants 2 more: 4 > max 3, immediate deadlock
			start := time.Now()

			_, err = t1.Get(2, 5*time.Second)
			Expect(err).ToNot(BeNil())
			Expect(err.IsCode(ErrorDeadlock)).To(BeTrue())
			Expect(time.Since(start)).To(BeNumerically("<", time.Second))

			// releasing T1's handles unblocks T2
			t1.Put(hs...)
			Eventually(t2done, 10*time.Second).Should(Receive(BeNil()))
		})
	})

	Describe("Bounce", func() {
		It("should reconnect every handle on next acquire after a bounce", func() {
			own := p.Owner()

			hs, err := own.Get(2, time.Second)
			Expect(err).To(BeNil())

			opens := atomic.LoadInt32(&drv.opens)

			p.Bounce()
			own.Put(hs...)

			// returned stale handles were disconnected
			Expect(atomic.LoadInt32(&drv.closes)).To(Equal(int32(2)))

			hs, err = own.Get(2, time.Second)
			Expect(err).To(BeNil())
			Expect(atomic.LoadInt32(&drv.opens)).To(Equal(opens + 2))

			own.Put(hs...)
		})

		It("should disconnect an explicitly stale handle on return", func() {
			own := p.Owner()

			hs, err := own.Get(1, time.Second)
			Expect(err).To(BeNil())

			hs[0].MarkStale()
			own.Put(hs...)

			Expect(atomic.LoadInt32(&drv.closes)).To(Equal(int32(1)))
		})
	})
})
