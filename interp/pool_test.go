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

package interp_test

import (
	. "github.com/nabbar/srvcore/interp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Interp Pool", func() {
	var pool Pool

	BeforeEach(func() {
		var err error

		pool, err = New(Config{}, Hooks{}, nil)
		Expect(err).To(BeNil())
	})

	Describe("Allocate and Deallocate", func() {
		It("should evaluate scripts on an allocated interp", func() {
			slot := pool.NewSlot()
			defer slot.Close()

			itp, err := slot.Allocate()
			Expect(err).To(BeNil())

			v, err := itp.Eval("6 * 7")
			Expect(err).To(BeNil())
			Expect(v.String()).To(Equal("42"))

			slot.Deallocate(itp)
		})

		It("should reuse a free-listed interp with its state intact", func() {
			slot := pool.NewSlot()
			defer slot.Close()

			itp, err := slot.Allocate()
			Expect(err).To(BeNil())

			_, err = itp.Eval("var keep = 'state'")
			Expect(err).To(BeNil())

			slot.Deallocate(itp)

			again, err := slot.Allocate()
			Expect(err).To(BeNil())
			Expect(again).To(BeIdenticalTo(itp))

			v, err := again.Eval("keep")
			Expect(err).To(BeNil())
			Expect(v.String()).To(Equal("state"))

			slot.Deallocate(again)
		})

		It("should not release an interp bound to a connection", func() {
			slot := pool.NewSlot()
			defer slot.Close()

			itp, err := slot.Allocate()
			Expect(err).To(BeNil())

			itp.BindConn("conn-7")
			slot.Deallocate(itp)

			// the bound interp stayed out of the free list
			other, err := slot.Allocate()
			Expect(err).To(BeNil())
			Expect(other).ToNot(BeIdenticalTo(itp))

			itp.UnbindConn()
			slot.Deallocate(itp)
			slot.Deallocate(other)
		})

		It("should destroy an interp flagged for deletion", func() {
			slot := pool.NewSlot()
			defer slot.Close()

			itp, err := slot.Allocate()
			Expect(err).To(BeNil())

			itp.MarkDelete()
			slot.Deallocate(itp)

			again, err := slot.Allocate()
			Expect(err).To(BeNil())
			Expect(again).ToNot(BeIdenticalTo(itp))

			slot.Deallocate(again)
		})
	})

	Describe("Shared state generations", func() {
		It("should start at a nonzero epoch and re-evaluate on save", func() {
			Expect(pool.Epoch()).To(Equal(uint64(1)))

			slot := pool.NewSlot()
			defer slot.Close()

			itp, err := slot.Allocate()
			Expect(err).To(BeNil())
			Expect(itp.Epoch()).To(Equal(uint64(1)))
			slot.Deallocate(itp)

			next := pool.Save("var shared = 'v2'")
			Expect(next).To(Equal(uint64(2)))

			itp, err = slot.Allocate()
			Expect(err).To(BeNil())
			Expect(itp.Epoch()).To(Equal(uint64(2)))

			v, err := itp.Eval("shared")
			Expect(err).To(BeNil())
			Expect(v.String()).To(Equal("v2"))

			slot.Deallocate(itp)
		})

		It("should not re-evaluate when the epoch matches", func() {
			pool.Save("var n = (typeof n === 'undefined') ? 1 : n + 1")

			slot := pool.NewSlot()
			defer slot.Close()

			itp, err := slot.Allocate()
			Expect(err).To(BeNil())
			slot.Deallocate(itp)

			itp, err = slot.Allocate()
			Expect(err).To(BeNil())

			v, err := itp.Eval("n")
			Expect(err).To(BeNil())
			Expect(v.String()).To(Equal("1"))

			slot.Deallocate(itp)
		})
	})

	Describe("Traces", func() {
		It("should run lifecycle traces in registration order", func() {
			var order []string

			reg := func(tag string, when TraceWhen) {
				Expect(pool.RegisterTrace(when, func(itp Interp, w TraceWhen) error {
					order = append(order, tag)
					return nil
				})).To(BeNil())
			}

			reg("create-1", TraceCreate)
			reg("create-2", TraceCreate)
			reg("alloc", TraceAllocate)
			reg("dealloc", TraceDeallocate)
			reg("delete", TraceDelete)

			slot := pool.NewSlot()

			itp, err := slot.Allocate()
			Expect(err).To(BeNil())

			slot.Deallocate(itp)
			slot.Close()

			Expect(order).To(Equal([]string{"create-1", "create-2", "alloc", "dealloc", "delete"}))
		})

		It("should refuse an unknown trace event", func() {
			err := pool.RegisterTrace(TraceWhen(99), func(itp Interp, w TraceWhen) error {
				return nil
			})

			Expect(err).ToNot(BeNil())
			Expect(err.IsCode(ErrorInvalidId)).To(BeTrue())
		})
	})

	Describe("Deferred cleanups", func() {
		It("should run deferrals in reverse order on deallocate", func() {
			var order []string

			slot := pool.NewSlot()
			defer slot.Close()

			itp, err := slot.Allocate()
			Expect(err).To(BeNil())

			itp.Defer(func() { order = append(order, "first") })
			itp.Defer(func() { order = append(order, "second") })

			slot.Deallocate(itp)
			Expect(order).To(Equal([]string{"second", "first"}))
		})
	})

	Describe("Hooks", func() {
		It("should evaluate init and cleanup hooks around each use", func() {
			var calls []string

			hp, err := New(Config{}, Hooks{
				Init: func(itp Interp) error {
					calls = append(calls, "init")
					return nil
				},
				Cleanup: func(itp Interp) error {
					calls = append(calls, "cleanup")
					return nil
				},
			}, nil)

			Expect(err).To(BeNil())

			slot := hp.NewSlot()
			defer slot.Close()

			itp, aerr := slot.Allocate()
			Expect(aerr).To(BeNil())
			slot.Deallocate(itp)

			Expect(calls).To(Equal([]string{"init", "cleanup"}))
		})
	})
})
