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

package sched_test

import (
	"context"
	"sync/atomic"
	"time"

	. "github.com/nabbar/srvcore/sched"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Scheduler Lifecycle", func() {
	var (
		ctx context.Context
		cnl context.CancelFunc
		sch Scheduler
	)

	BeforeEach(func() {
		ctx, cnl = context.WithTimeout(context.Background(), 30*time.Second)
		sch = New(Config{}, nil)
		Expect(sch.Start(ctx)).To(BeNil())
	})

	AfterEach(func() {
		sch.Stop(ctx)

		if cnl != nil {
			cnl()
		}
	})

	Describe("After", func() {
		It("should run the callback once and free the event", func() {
			var ran, cleaned int32

			id, err := sch.After(10*time.Millisecond, func(ctx context.Context, id int) {
				atomic.AddInt32(&ran, 1)
			}, func(id int) {
				atomic.AddInt32(&cleaned, 1)
			})

			Expect(err).To(BeNil())
			Expect(id).To(BeNumerically(">", 0))

			Eventually(func() int32 {
				return atomic.LoadInt32(&ran)
			}, 5*time.Second, 10*time.Millisecond).Should(Equal(int32(1)))

			Eventually(func() int32 {
				return atomic.LoadInt32(&cleaned)
			}, 5*time.Second, 10*time.Millisecond).Should(Equal(int32(1)))

			Consistently(func() int32 {
				return atomic.LoadInt32(&ran)
			}, 200*time.Millisecond, 50*time.Millisecond).Should(Equal(int32(1)))
		})

		It("should refuse a nil callback", func() {
			_, err := sch.After(time.Second, nil, nil)
			Expect(err).ToNot(BeNil())
			Expect(err.IsCode(ErrorParamsEmpty)).To(BeTrue())
		})

		It("should refuse a negative delay", func() {
			_, err := sch.After(-time.Second, func(ctx context.Context, id int) {}, nil)
			Expect(err).ToNot(BeNil())
			Expect(err.IsCode(ErrorInvalidInterval)).To(BeTrue())
		})
	})

	Describe("Every", func() {
		It("should run the callback repeatedly", func() {
			var ran int32

			_, err := sch.Every(20*time.Millisecond, func(ctx context.Context, id int) {
				atomic.AddInt32(&ran, 1)
			}, false, nil)

			Expect(err).To(BeNil())

			Eventually(func() int32 {
				return atomic.LoadInt32(&ran)
			}, 5*time.Second, 10*time.Millisecond).Should(BeNumerically(">=", 3))
		})

		It("should run detached events on worker goroutines", func() {
			var ran int32

			_, err := sch.Every(20*time.Millisecond, func(ctx context.Context, id int) {
				atomic.AddInt32(&ran, 1)
			}, true, nil)

			Expect(err).To(BeNil())

			Eventually(func() int32 {
				return atomic.LoadInt32(&ran)
			}, 5*time.Second, 10*time.Millisecond).Should(BeNumerically(">=", 2))

			Expect(sch.Stats().Workers).To(BeNumerically(">=", 1))
		})
	})

	Describe("Cancel", func() {
		It("should never run a cancelled interval event and clean it exactly once", func() {
			var ran, cleaned int32

			id, err := sch.Every(time.Second, func(ctx context.Context, id int) {
				atomic.AddInt32(&ran, 1)
			}, false, func(id int) {
				atomic.AddInt32(&cleaned, 1)
			})

			Expect(err).To(BeNil())
			Expect(sch.Cancel(id)).To(BeTrue())
			Expect(sch.Cancel(id)).To(BeFalse())

			Consistently(func() int32 {
				return atomic.LoadInt32(&ran)
			}, 300*time.Millisecond, 50*time.Millisecond).Should(Equal(int32(0)))

			Expect(atomic.LoadInt32(&cleaned)).To(Equal(int32(1)))
			Expect(sch.Stats().Scheduled).To(Equal(0))
		})

		It("should report an unknown id", func() {
			Expect(sch.Cancel(424242)).To(BeFalse())
		})
	})

	Describe("Pause and Resume", func() {
		It("should skip dispatch while paused", func() {
			var ran int32

			id, err := sch.Every(20*time.Millisecond, func(ctx context.Context, id int) {
				atomic.AddInt32(&ran, 1)
			}, false, nil)

			Expect(err).To(BeNil())
			Expect(sch.Pause(id)).To(BeTrue())

			time.Sleep(100 * time.Millisecond)
			base := atomic.LoadInt32(&ran)

			Consistently(func() int32 {
				return atomic.LoadInt32(&ran)
			}, 200*time.Millisecond, 50*time.Millisecond).Should(Equal(base))

			Expect(sch.Resume(id)).To(BeTrue())

			Eventually(func() int32 {
				return atomic.LoadInt32(&ran)
			}, 5*time.Second, 10*time.Millisecond).Should(BeNumerically(">", base))
		})
	})

	Describe("Stop", func() {
		It("should free remaining events through their cleanup callbacks", func() {
			var cleaned int32

			_, err := sch.Every(time.Hour, func(ctx context.Context, id int) {}, false, func(id int) {
				atomic.AddInt32(&cleaned, 1)
			})

			Expect(err).To(BeNil())
			Expect(sch.Stop(ctx)).To(BeNil())
			Expect(atomic.LoadInt32(&cleaned)).To(Equal(int32(1)))
		})
	})
})
