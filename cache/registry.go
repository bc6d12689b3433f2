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

package cache

import (
	libatm "github.com/nabbar/srvcore/atomic"
	liberr "github.com/nabbar/srvcore/errors"
)

// Generic is the type-erased surface of a cache, usable by the registry
// and the introspection commands.
type Generic interface {
	Name() string
	Stats() Stats
	Close() liberr.Error
}

// Registry tracks named cache instances of heterogeneous key/value types.
type Registry interface {
	// Register adds the cache under its name.
	Register(c Generic) liberr.Error

	// Get returns the cache registered under the given name.
	Get(name string) (Generic, bool)

	// Unregister removes the cache registered under the given name
	// without closing it.
	Unregister(name string)

	// List returns the name and counters of every registered cache.
	List() map[string]Stats

	// Close closes and removes every registered cache.
	Close() liberr.Error
}

type reg struct {
	m libatm.Map[string, Generic]
}

// NewRegistry returns an empty cache registry.
func NewRegistry() Registry {
	return &reg{
		m: libatm.NewMap[string, Generic](),
	}
}

func (o *reg) Register(c Generic) liberr.Error {
	if c == nil || c.Name() == "" {
		return ErrorParamsEmpty.Error(nil)
	}

	if _, ok := o.m.Load(c.Name()); ok {
		return ErrorNameDuplicate.Error(nil)
	}

	o.m.Store(c.Name(), c)
	return nil
}

func (o *reg) Get(name string) (Generic, bool) {
	return o.m.Load(name)
}

func (o *reg) Unregister(name string) {
	o.m.Delete(name)
}

func (o *reg) List() map[string]Stats {
	var res = make(map[string]Stats)

	o.m.Walk(func(key string, val Generic) bool {
		res[key] = val.Stats()
		return true
	})

	return res
}

func (o *reg) Close() liberr.Error {
	var e = ErrorClosed.Error(nil)

	o.m.Walk(func(key string, val Generic) bool {
		if err := val.Close(); err != nil {
			e.AddParentError(err)
		}

		o.m.Delete(key)
		return true
	})

	if !e.HasParent() {
		e = nil
	}

	return e
}
