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

// Package atomic provides small typed wrappers over sync/atomic and
// sync.Map, removing the any-casting noise from concurrent code.
package atomic

import (
	"sync"
	"sync/atomic"
)

// Value is a typed atomic value. The zero of T is returned while no value
// has been stored.
type Value[T any] interface {
	// Load returns the stored value, or the zero of T if none was stored.
	Load() (val T)

	// Store sets the stored value.
	Store(val T)

	// Swap atomically stores the new value and returns the previous one.
	Swap(new T) (old T)
}

// Map is a typed concurrent map over sync.Map.
type Map[K comparable, V any] interface {
	// Load returns the value stored for the given key.
	Load(key K) (val V, ok bool)

	// Store sets the value for the given key.
	Store(key K, val V)

	// Delete removes the value stored for the given key.
	Delete(key K)

	// Walk calls the given function for each key/value pair. Returning
	// false stops the iteration.
	Walk(fct func(key K, val V) bool)
}

// NewValue returns a new typed atomic Value.
func NewValue[T any]() Value[T] {
	return &val[T]{
		av: new(atomic.Value),
	}
}

// NewMap returns a new typed concurrent Map.
func NewMap[K comparable, V any]() Map[K, V] {
	return &mpa[K, V]{
		sm: new(sync.Map),
	}
}

// Cast performs a checked type assertion from any to T.
func Cast[T any](i any) (T, bool) {
	if v, ok := i.(T); ok {
		return v, true
	}

	var tmp T
	return tmp, false
}
