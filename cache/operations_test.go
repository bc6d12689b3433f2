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
	. "github.com/nabbar/srvcore/cache"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Cache Operations", func() {
	var c Cache[string, string]

	BeforeEach(func() {
		var err error

		c, err = New[string, string](Config[string, string]{
			Name:    "test",
			MaxSize: 1024,
		}, nil)

		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		c.Close()
	})

	Describe("Find and SetValue", func() {
		It("should return the value set on a created entry", func() {
			c.Lock()
			ent, isNew := c.CreateEntry("k")
			Expect(isNew).To(BeTrue())

			c.SetValue(ent, "payload", 7)

			got, ok := c.Find("k")
			Expect(ok).To(BeTrue())

			val, has := got.Value()
			Expect(has).To(BeTrue())
			Expect(val).To(Equal("payload"))
			c.Unlock()

			st := c.Stats()
			Expect(st.Size).To(Equal(int64(7)))
			Expect(st.Entries).To(Equal(1))
		})

		It("should count hits and misses", func() {
			c.Lock()
			_, ok := c.Find("missing")
			Expect(ok).To(BeFalse())

			ent, _ := c.CreateEntry("k")
			c.SetValue(ent, "v", 1)

			_, ok = c.Find("k")
			Expect(ok).To(BeTrue())
			c.Unlock()

			st := c.Stats()
			Expect(st.Hits).To(Equal(uint64(1)))

			// the find miss plus the createEntry insert
			Expect(st.Misses).To(Equal(uint64(2)))
		})

		It("should replace a value through the free callback", func() {
			var freed []string

			fc, err := New[string, string](Config[string, string]{
				Name: "free",
				Free: func(key string, val string, size int64) {
					freed = append(freed, val)
				},
			}, nil)

			Expect(err).To(BeNil())

			fc.Lock()
			ent, _ := fc.CreateEntry("k")
			fc.SetValue(ent, "old", 3)
			fc.SetValue(ent, "new", 3)
			fc.Unlock()

			Expect(freed).To(Equal([]string{"old"}))

			fc.Close()
			Expect(freed).To(Equal([]string{"old", "new"}))
		})
	})

	Describe("Eviction", func() {
		It("should flush from the LRU tail until the size bound holds", func() {
			sc, err := New[string, string](Config[string, string]{
				Name:    "small",
				MaxSize: 3,
			}, nil)

			Expect(err).To(BeNil())
			defer sc.Close()

			sc.Lock()

			for _, k := range []string{"a", "b", "c"} {
				ent, _ := sc.CreateEntry(k)
				sc.SetValue(ent, k, 1)
			}

			// touch "a" so "b" is the oldest
			_, ok := sc.Find("a")
			Expect(ok).To(BeTrue())

			ent, _ := sc.CreateEntry("d")
			sc.SetValue(ent, "d", 1)

			_, ok = sc.Find("b")
			Expect(ok).To(BeFalse())

			for _, k := range []string{"a", "c", "d"} {
				_, ok = sc.Find(k)
				Expect(ok).To(BeTrue(), "key %s evicted", k)
			}

			sc.Unlock()

			Expect(sc.Stats().Size).To(Equal(int64(3)))
			Expect(sc.Stats().Flushed).To(Equal(uint64(1)))
		})

		It("should never evict the entry being set", func() {
			sc, err := New[string, string](Config[string, string]{
				Name:    "tight",
				MaxSize: 2,
			}, nil)

			Expect(err).To(BeNil())
			defer sc.Close()

			sc.Lock()
			ent, _ := sc.CreateEntry("big")
			sc.SetValue(ent, "big", 10)

			got, ok := sc.Find("big")
			Expect(ok).To(BeTrue())
			Expect(got.Size()).To(Equal(int64(10)))
			sc.Unlock()
		})
	})

	Describe("Flush", func() {
		It("should keep the aggregate size consistent", func() {
			c.Lock()

			for _, k := range []string{"x", "y", "z"} {
				ent, _ := c.CreateEntry(k)
				c.SetValue(ent, k, int64(len(k)))
			}

			ent, ok := c.Find("y")
			Expect(ok).To(BeTrue())
			c.Flush(ent)

			_, ok = c.Find("y")
			Expect(ok).To(BeFalse())
			c.Unlock()

			Expect(c.Stats().Size).To(Equal(int64(2)))
			Expect(c.Stats().Entries).To(Equal(2))
		})

		It("should empty the cache on FlushAll", func() {
			c.Lock()

			for _, k := range []string{"x", "y"} {
				ent, _ := c.CreateEntry(k)
				c.SetValue(ent, k, 1)
			}

			c.FlushAll()
			c.Unlock()

			st := c.Stats()
			Expect(st.Entries).To(Equal(0))
			Expect(st.Size).To(Equal(int64(0)))
		})
	})

	Describe("Registry", func() {
		It("should list registered caches and refuse duplicates", func() {
			r := NewRegistry()

			Expect(r.Register(c.(Generic))).To(BeNil())

			err := r.Register(c.(Generic))
			Expect(err).ToNot(BeNil())
			Expect(err.IsCode(ErrorNameDuplicate)).To(BeTrue())

			lst := r.List()
			Expect(lst).To(HaveKey("test"))

			r.Unregister("test")
			Expect(r.List()).ToNot(HaveKey("test"))
		})
	})
})
