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

package cache_test

import (
	"sync"
	"sync/atomic"
	"time"

	. "github.com/nabbar/srvcore/cache"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Cache Single Flight", func() {
	var c Cache[string, string]

	BeforeEach(func() {
		var err error

		c, err = New[string, string](Config[string, string]{
			Name:    "flight",
			MaxSize: 1024,
		}, nil)

		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		c.Close()
	})

	// fetch is the canonical single-flight read: one filler fills, the
	// others wait on the cache condition until the value appears.
	fetch := func(key string, fills *int32, fill func() (string, int64)) (string, bool) {
		c.Lock()
		defer c.Unlock()

		ent, isNew := c.CreateEntry(key)

		if isNew {
			atomic.AddInt32(fills, 1)

			c.Unlock()
			val, size := fill()
			c.Lock()

			c.SetValue(ent, val, size)
			c.Broadcast()
			return val, true
		}

		for {
			if val, ok := ent.Value(); ok {
				return val, true
			}

			if !c.Wait(5 * time.Second) {
				return "", false
			}
		}
	}

	It("should collapse concurrent fills onto one filler", func() {
		var (
			fills int32
			wg    sync.WaitGroup
			res   [3]string
			oks   [3]bool
		)

		for i := 0; i < 3; i++ {
			wg.Add(1)

			go func(i int) {
				defer wg.Done()

				res[i], oks[i] = fetch("k", &fills, func() (string, int64) {
					// hold the fill long enough for the others to park
					time.Sleep(100 * time.Millisecond)
					return "payload", 7
				})
			}(i)
		}

		wg.Wait()

		Expect(atomic.LoadInt32(&fills)).To(Equal(int32(1)))

		for i := 0; i < 3; i++ {
			Expect(oks[i]).To(BeTrue())
			Expect(res[i]).To(Equal("payload"))
		}

		st := c.Stats()
		Expect(st.Misses).To(Equal(uint64(1)))
		Expect(st.Hits).To(Equal(uint64(2)))
	})

	It("should wake waiters when the pending entry is flushed", func() {
		c.Lock()
		ent, isNew := c.CreateEntry("gone")
		Expect(isNew).To(BeTrue())
		c.Unlock()

		done := make(chan bool, 1)

		go func() {
			c.Lock()
			defer c.Unlock()

			e, ok := c.Find("gone")

			if !ok {
				done <- false
				return
			}

			if _, has := e.Value(); has {
				done <- true
				return
			}

			c.Wait(5 * time.Second)

			_, ok = c.Find("gone")
			done <- ok
		}()

		time.Sleep(50 * time.Millisecond)

		c.Lock()
		c.Flush(ent)
		c.Unlock()

		Eventually(done, 6*time.Second).Should(Receive(BeFalse()))
	})
})
