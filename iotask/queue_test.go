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

package iotask_test

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	. "github.com/nabbar/srvcore/iotask"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// recorder collects the reasons a task callback observed.
type recorder struct {
	mu   sync.Mutex
	seen []Reason
}

func (r *recorder) add(why Reason) {
	r.mu.Lock()
	r.seen = append(r.seen, why)
	r.mu.Unlock()
}

func (r *recorder) reasons() []Reason {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Reason(nil), r.seen...)
}

var _ = Describe("IOTask Queue", func() {
	var (
		ctx context.Context
		cnl context.CancelFunc
		q   Queue
		pip [2]int
	)

	BeforeEach(func() {
		ctx, cnl = context.WithTimeout(context.Background(), 30*time.Second)
		q = New("test", nil)
		Expect(q.Start(ctx)).To(BeNil())
		Expect(unix.Pipe(pip[:])).To(BeNil())
	})

	AfterEach(func() {
		q.Stop(ctx)
		unix.Close(pip[0])
		unix.Close(pip[1])

		if cnl != nil {
			cnl()
		}
	})

	It("should dispatch a readable descriptor and complete on Done", func() {
		rec := &recorder{}

		t, err := q.Enqueue(pip[0], func(t Task, why Reason) {
			rec.add(why)

			switch why {
			case ReasonInit:
				t.SetEvents(EventRead)

			case ReasonRead:
				var b [8]byte
				unix.Read(t.Fd(), b[:])
				t.Done()
			}
		})

		Expect(err).To(BeNil())

		unix.Write(pip[1], []byte("ping"))

		Expect(t.WaitDone(ctx)).To(BeNil())
		Expect(rec.reasons()).To(Equal([]Reason{ReasonInit, ReasonRead}))
	})

	It("should fire the timeout callback when the deadline passes", func() {
		rec := &recorder{}

		t, err := q.Enqueue(pip[0], func(t Task, why Reason) {
			rec.add(why)

			switch why {
			case ReasonInit:
				t.SetEvents(EventRead)
				t.SetDeadline(time.Now().Add(50 * time.Millisecond))

			case ReasonTimeout:
				t.Done()
			}
		})

		Expect(err).To(BeNil())
		Expect(t.WaitDone(ctx)).To(BeNil())
		Expect(rec.reasons()).To(Equal([]Reason{ReasonInit, ReasonTimeout}))
	})

	It("should cancel cooperatively through the Cancel reason", func() {
		rec := &recorder{}

		t, err := q.Enqueue(pip[0], func(t Task, why Reason) {
			rec.add(why)

			switch why {
			case ReasonInit:
				t.SetEvents(EventRead)

			case ReasonCancel:
				t.Done()
			}
		})

		Expect(err).To(BeNil())

		// let the init round complete before signalling
		time.Sleep(50 * time.Millisecond)

		Expect(t.Cancel()).To(BeNil())
		Expect(t.WaitDone(ctx)).To(BeNil())
		Expect(rec.reasons()).To(Equal([]Reason{ReasonInit, ReasonCancel}))
	})

	It("should deliver the exit reason to pending tasks on stop", func() {
		rec := &recorder{}

		t, err := q.Enqueue(pip[0], func(t Task, why Reason) {
			rec.add(why)

			if why == ReasonInit {
				t.SetEvents(EventRead)
			}
		})

		Expect(err).To(BeNil())

		time.Sleep(50 * time.Millisecond)

		Expect(q.Stop(ctx)).To(BeNil())
		Expect(t.WaitDone(ctx)).To(BeNil())
		Expect(rec.reasons()).To(Equal([]Reason{ReasonInit, ReasonExit}))
	})

	It("should refuse enqueues after stop", func() {
		Expect(q.Stop(ctx)).To(BeNil())

		_, err := q.Enqueue(pip[0], func(t Task, why Reason) {})
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(ErrorShuttingDown)).To(BeTrue())
	})
})
