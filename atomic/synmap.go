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

package atomic

import (
	"sync"
)

type mpa[K comparable, V any] struct {
	sm *sync.Map
}

func (o *mpa[K, V]) Load(key K) (val V, ok bool) {
	if i, k := o.sm.Load(key); k {
		return Cast[V](i)
	}

	return val, false
}

func (o *mpa[K, V]) Store(key K, val V) {
	o.sm.Store(key, val)
}

func (o *mpa[K, V]) Delete(key K) {
	o.sm.Delete(key)
}

func (o *mpa[K, V]) Walk(fct func(key K, val V) bool) {
	o.sm.Range(func(key, value any) bool {
		k, ok := Cast[K](key)
		if !ok {
			return true
		}

		v, ok := Cast[V](value)
		if !ok {
			return true
		}

		return fct(k, v)
	})
}
