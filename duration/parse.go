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

package duration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dayDuration = 24 * time.Hour

func parseString(s string) (Duration, error) {
	var (
		d time.Duration
		n int64
		e error
	)

	s = strings.TrimSpace(strings.ToLower(s))

	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}

	if i := strings.IndexRune(s, 'd'); i > 0 {
		if n, e = strconv.ParseInt(s[:i], 10, 64); e == nil {
			d = time.Duration(n) * dayDuration
			s = s[i+1:]
		}
	}

	if s != "" {
		var r time.Duration

		if r, e = time.ParseDuration(s); e != nil {
			return 0, e
		}

		d += r
	}

	return Duration(d), nil
}

func formatString(d Duration) string {
	var (
		t = time.Duration(d)
		b strings.Builder
	)

	if t >= dayDuration {
		b.WriteString(strconv.FormatInt(int64(t/dayDuration), 10))
		b.WriteRune('d')
		t = t % dayDuration
	}

	if t != 0 || b.Len() == 0 {
		b.WriteString(t.String())
	}

	return b.String()
}
