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

// Package cache provides the scoped LRU cache of the server core: a keyed
// bounded cache with strict MRU ordering, explicit per-entry sizes,
// single-flight fills coordinated on the cache condition, and an optional
// time-based sweeper registered on the scheduler.
//
// The cache exposes its lock: single-flight callers lock the cache, create
// or find the entry, and wait on the cache condition until a concurrent
// filler publishes the value.
//
//	c.Lock()
//	ent, isNew := c.CreateEntry(key)
//	for !isNew {
//	    if _, ok := ent.Value(); ok {
//	        break
//	    }
//	    if !c.Wait(timeout) {
//	        break
//	    }
//	    ent, isNew = c.CreateEntry(key)
//	}
//	if isNew {
//	    c.Unlock()
//	    val, size := fill(key)
//	    c.Lock()
//	    c.SetValue(ent, val, size)
//	    c.Broadcast()
//	}
//	c.Unlock()
package cache

import (
	"time"

	liberr "github.com/nabbar/srvcore/errors"
	libsch "github.com/nabbar/srvcore/sched"
)

// FileKey is the fixed-tuple key kind, identifying a file by device and
// inode.
type FileKey struct {
	Dev uint64
	Ino uint64
}

// FuncFree is called for every value leaving the cache: overwritten by
// SetValue, evicted, flushed, or dropped at Close.
type FuncFree[K comparable, V any] func(key K, val V, size int64)

// Stats is a snapshot of cache activity counters.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Flushed uint64
	Entries int
	Size    int64
	MaxSize int64
}

// Entry is one cache slot. A freshly created entry has no value until a
// filler publishes one through SetValue.
type Entry[K comparable, V any] interface {
	// Key returns the entry key.
	Key() K

	// Value returns the stored value, and false while no value has been
	// set yet.
	Value() (V, bool)

	// Size returns the declared size of the stored value.
	Size() int64

	// ModTime returns the time the value was last set.
	ModTime() time.Time
}

// Cache is a size-bounded keyed cache with strict MRU ordering.
//
// Find, CreateEntry, SetValue, Flush and FlushAll must be called with the
// cache lock held; Lock, Unlock, Wait, Signal and Broadcast expose the
// cache lock and condition for single-flight coordination.
type Cache[K comparable, V any] interface {
	// Name returns the registered cache name.
	Name() string

	// Lock acquires the cache lock.
	Lock()

	// Unlock releases the cache lock.
	Unlock()

	// Find returns the entry for the given key, promoting it to most
	// recently used. A hit or a miss is counted.
	Find(key K) (Entry[K, V], bool)

	// CreateEntry finds or inserts the entry for the given key. The
	// returned flag is true when the entry was inserted; an existing
	// entry counts as a hit and is promoted.
	CreateEntry(key K) (Entry[K, V], bool)

	// SetValue publishes the value with its declared size on the entry,
	// freeing any prior value. When the cache carries a maximum size, the
	// least recently used entries are flushed until the aggregate size
	// fits, never flushing the entry being set.
	SetValue(ent Entry[K, V], val V, size int64)

	// Flush removes the given entry, freeing its value.
	Flush(ent Entry[K, V])

	// FlushAll removes every entry.
	FlushAll()

	// Walk calls the function for every entry from most to least
	// recently used, without promoting. Returning false stops the walk.
	// The caller holds the cache lock.
	Walk(fn func(ent Entry[K, V]) bool)

	// Wait releases the lock and blocks until the condition is signalled
	// or the timeout expires; the lock is reacquired before returning.
	// It returns false on timeout. A timeout of zero waits indefinitely.
	Wait(timeout time.Duration) bool

	// Signal wakes waiters on the cache condition.
	Signal()

	// Broadcast wakes all waiters on the cache condition.
	Broadcast()

	// Stats returns a snapshot of the cache counters. It takes the lock.
	Stats() Stats

	// Close stops the sweeper, drops every entry and wakes all waiters.
	Close() liberr.Error
}

// Config configures one cache instance.
type Config[K comparable, V any] struct {
	// Name registers the cache instance.
	Name string `json:"name" yaml:"name" mapstructure:"name" validate:"required"`

	// MaxSize bounds the aggregate declared size; zero means unbounded.
	MaxSize int64 `json:"maxSize,omitempty" yaml:"maxSize,omitempty" mapstructure:"maxSize" validate:"omitempty,min=0"`

	// TTL enables the expiration sweeper when positive.
	TTL time.Duration `json:"ttlSeconds,omitempty" yaml:"ttlSeconds,omitempty" mapstructure:"ttlSeconds"`

	// Free is called for every value leaving the cache.
	Free FuncFree[K, V] `json:"-" yaml:"-" mapstructure:"-"`
}

// New returns a new Cache. When cfg.TTL is positive and sch is not nil,
// the expiration sweeper is registered on the scheduler.
func New[K comparable, V any](cfg Config[K, V], sch libsch.Scheduler) (Cache[K, V], liberr.Error) {
	if cfg.Name == "" {
		return nil, ErrorParamsEmpty.Error(nil)
	} else if cfg.MaxSize < 0 {
		return nil, ErrorValidatorError.Error(nil)
	}

	c := &cc[K, V]{
		nam: cfg.Name,
		max: cfg.MaxSize,
		ttl: cfg.TTL,
		fre: cfg.Free,
		idx: make(map[K]*ent[K, V]),
		bcs: make(chan struct{}),
	}

	if cfg.TTL > 0 && sch != nil {
		if e := c.startSweeper(sch); e != nil {
			return nil, e
		}
	}

	return c, nil
}
