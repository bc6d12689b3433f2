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
	"sync/atomic"
	"time"

	. "github.com/nabbar/srvcore/connpool"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ConnPool Statistics", func() {
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

	It("should accumulate the global bundle", func() {
		var served int32

		p, err := New(Config{
			MinThreads: 1,
			MaxThreads: 2,
			MaxConns:   4,
			StatsMode:  true,
		}, func(ctx context.Context, c Conn) {
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&served, 1)
		}, nil, nil)

		Expect(err).To(BeNil())
		Expect(p.Start(ctx)).To(BeNil())

		for i := 0; i < 3; i++ {
			Expect(p.Enqueue(i)).To(BeNil())
		}

		Eventually(func() int32 {
			return atomic.LoadInt32(&served)
		}, 5*time.Second, 10*time.Millisecond).Should(Equal(int32(3)))

		Eventually(func() uint64 {
			return p.Stats().Requests
		}, 5*time.Second, 10*time.Millisecond).Should(Equal(uint64(3)))

		b := p.Stats()
		Expect(b.OpenTime).To(BeNumerically(">", time.Duration(0)))
		Expect(b.ClosedTime).To(BeNumerically(">=", b.OpenTime))

		Expect(p.Stop(ctx)).To(BeNil())
	})

	It("should keep per-target bundles behind the LRU cache", func() {
		p, err := New(Config{
			MinThreads:        1,
			MaxThreads:        1,
			MaxConns:          4,
			URLStatsCacheSize: 2,
		}, func(ctx context.Context, c Conn) {
			c.SetTarget(c.DriverRef().(string))
		}, nil, nil)

		Expect(err).To(BeNil())
		Expect(p.Start(ctx)).To(BeNil())

		for _, u := range []string{"/a", "/b", "/a", "/c"} {
			Expect(p.Enqueue(u)).To(BeNil())
		}

		Eventually(func() bool {
			st := p.TargetStats()
			_, ok := st["/c"]
			return len(st) == 2 && ok
		}, 5*time.Second, 10*time.Millisecond).Should(BeTrue())

		st := p.TargetStats()

		// the bound is two targets: the least recently hit fell out
		Expect(st).To(HaveKey("/c"))
		Expect(st).ToNot(HaveKey("/b"))
		Expect(st["/a"].Requests).To(Equal(uint64(2)))

		Expect(p.Stop(ctx)).To(BeNil())
	})
})
