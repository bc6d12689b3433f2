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

package proxy_test

import (
	"context"
	"strings"
	"time"

	libdur "github.com/nabbar/srvcore/duration"
	. "github.com/nabbar/srvcore/proxy"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Proxy Pool", func() {
	var (
		ctx context.Context
		cnl context.CancelFunc
	)

	// children are plain cat processes: they hold the pipes open and
	// exit on request-pipe EOF, which is all the accounting specs need
	newPool := func(name string, max int) Pool {
		p, err := New(name, Config{
			Exec:        "/bin/cat",
			Max:         max,
			WaitTimeout: libdur.Duration(200 * time.Millisecond),
		}, nil)

		Expect(err).To(BeNil())
		Expect(p.Start(ctx)).To(BeNil())
		return p
	}

	BeforeEach(func() {
		ctx, cnl = context.WithTimeout(context.Background(), 30*time.Second)
	})

	AfterEach(func() {
		if cnl != nil {
			cnl()
		}
	})

	Describe("Id minting", func() {
		It("should mint pool-proxy-sequence ids and reuse the released proxy", func() {
			p := newPool("p", 1)
			defer p.Stop(ctx)

			own := p.Owner()

			px, err := own.Get(1, time.Second)
			Expect(err).To(BeNil())
			Expect(px[0].Id()).To(Equal("p-proxy-1"))

			own.Put(px...)

			px2, err := own.Get(1, time.Second)
			Expect(err).To(BeNil())
			Expect(px2[0].Id()).To(Equal("p-proxy-1"))

			own.Put(px2...)
		})

		It("should truncate long pool names to the id length bound", func() {
			long := strings.Repeat("n", 80)

			p := newPool(long, 1)
			defer p.Stop(ctx)

			own := p.Owner()

			px, err := own.Get(1, time.Second)
			Expect(err).To(BeNil())
			Expect(len(px[0].Id())).To(BeNumerically("<=", MaxIdLen))
			Expect(px[0].Id()).To(HaveSuffix("-proxy-1"))

			own.Put(px...)
		})
	})

	Describe("Checkout accounting", func() {
		It("should reject a request above the pool maximum with Range", func() {
			p := newPool("r", 2)
			defer p.Stop(ctx)

			_, err := p.Owner().Get(3, time.Second)
			Expect(err).ToNot(BeNil())
			Expect(err.IsCode(ErrorRange)).To(BeTrue())
		})

		It("should reject holdings plus request above the maximum with Deadlock", func() {
			p := newPool("d", 2)
			defer p.Stop(ctx)

			own := p.Owner()

			px, err := own.Get(1, time.Second)
			Expect(err).To(BeNil())

			_, err = own.Get(2, time.Second)
			Expect(err).ToNot(BeNil())
			Expect(err.IsCode(ErrorDeadlock)).To(BeTrue())

			own.Put(px...)
		})

		It("should time out when the pool is exhausted", func() {
			p := newPool("t", 1)
			defer p.Stop(ctx)

			o1 := p.Owner()

			px, err := o1.Get(1, time.Second)
			Expect(err).To(BeNil())

			_, err = p.Owner().Get(1, 100*time.Millisecond)
			Expect(err).ToNot(BeNil())
			Expect(err.IsCode(ErrorGetTimeout)).To(BeTrue())

			o1.Put(px...)
		})

		It("should hand a released proxy to a blocked waiter", func() {
			p := newPool("w", 1)
			defer p.Stop(ctx)

			o1 := p.Owner()

			px, err := o1.Get(1, time.Second)
			Expect(err).To(BeNil())

			done := make(chan error, 1)

			go func() {
				o2 := p.Owner()

				px2, e := o2.Get(1, 5*time.Second)

				if e == nil {
					o2.Put(px2...)
					done <- nil
				} else {
					done <- e
				}
			}()

			time.Sleep(50 * time.Millisecond)
			o1.Put(px...)

			Eventually(done, 10*time.Second).Should(Receive(BeNil()))
		})
	})

	Describe("Configure", func() {
		It("should drive the available counter negative when max shrinks", func() {
			p := newPool("c", 3)
			defer p.Stop(ctx)

			own := p.Owner()

			px, err := own.Get(2, time.Second)
			Expect(err).To(BeNil())

			cfg := Config{
				Exec:        "/bin/cat",
				Max:         1,
				WaitTimeout: libdur.Duration(200 * time.Millisecond),
			}

			Expect(p.Configure(cfg)).To(BeNil())
			Expect(p.Stats().Available).To(Equal(-1))

			own.Put(px...)
			Expect(p.Stats().Available).To(Equal(1))
		})
	})

	Describe("Active listing", func() {
		It("should list only non-idle proxies", func() {
			p := newPool("a", 2)
			defer p.Stop(ctx)

			own := p.Owner()

			px, err := own.Get(1, time.Second)
			Expect(err).To(BeNil())

			// a checked-out idle proxy is not active
			Expect(p.Active()).To(HaveLen(0))

			own.Put(px...)
		})
	})
})
