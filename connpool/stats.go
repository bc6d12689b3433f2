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
	"sync"
	"time"

	libchc "github.com/nabbar/srvcore/cache"
)

// Bundle is the statistics counter set, kept globally and per request
// target.
type Bundle struct {
	Requests   uint64
	WaitTime   time.Duration
	OpenTime   time.Duration
	ClosedTime time.Duration
}

// add accumulates one serviced connection: wait is queue to start, open
// is the handler run, closed is arrival to completion.
func (b *Bundle) add(c *crc) {
	b.Requests++
	b.WaitTime += c.beg.Sub(c.que)
	b.OpenTime += c.end.Sub(c.beg)
	b.ClosedTime += c.end.Sub(c.arv)
}

type stats struct {
	mu  sync.Mutex
	on  bool
	glb Bundle
	url libchc.Cache[string, *Bundle]
}

func (s *stats) init(cfg Config) {
	s.on = cfg.StatsMode

	if cfg.URLStatsCacheSize > 0 {
		// entry size one per target: the cache bound is an entry count,
		// and filling it evicts the least recently hit targets
		s.url, _ = libchc.New[string, *Bundle](libchc.Config[string, *Bundle]{
			Name:    "connpool-url-stats",
			MaxSize: cfg.URLStatsCacheSize,
		}, nil)
	}
}

func (s *stats) record(c *crc) {
	if s.on {
		s.mu.Lock()
		s.glb.add(c)
		s.mu.Unlock()
	}

	if s.url == nil || c.tgt == "" {
		return
	}

	s.url.Lock()

	ent, isNew := s.url.CreateEntry(c.tgt)

	if isNew {
		b := &Bundle{}
		b.add(c)
		s.url.SetValue(ent, b, 1)
	} else if b, ok := ent.Value(); ok && b != nil {
		b.add(c)
	}

	s.url.Unlock()
}

func (s *stats) global() Bundle {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.glb
}

func (s *stats) targets() map[string]Bundle {
	var res = make(map[string]Bundle)

	if s.url == nil {
		return res
	}

	s.url.Lock()

	s.url.Walk(func(ent libchc.Entry[string, *Bundle]) bool {
		if b, ok := ent.Value(); ok && b != nil {
			res[ent.Key()] = *b
		}

		return true
	})

	s.url.Unlock()

	return res
}

func (o *pl) Stats() Bundle {
	return o.sts.global()
}

func (o *pl) TargetStats() map[string]Bundle {
	return o.sts.targets()
}
