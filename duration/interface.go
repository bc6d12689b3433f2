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

// Package duration provides an extended duration type with days support,
// usable directly in JSON / YAML / viper-loaded configuration structs.
//
// Example usage:
//
//	type Config struct {
//	    Timeout duration.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
//	}
package duration

import (
	"time"
)

type Duration time.Duration

// Parse parses a string representing a duration and returns a Duration.
// On top of the standard time.ParseDuration units, a leading day count is
// accepted (e.g. "5d23h15m13s").
func Parse(s string) (Duration, error) {
	return parseString(s)
}

// ParseByte parses a byte slice representing a duration.
func ParseByte(p []byte) (Duration, error) {
	return parseString(string(p))
}

// Seconds returns a Duration of the given number of seconds.
func Seconds(n int64) Duration {
	return Duration(time.Duration(n) * time.Second)
}

// Time returns the Duration as a standard time.Duration.
func (d Duration) Time() time.Duration {
	return time.Duration(d)
}

// String returns the duration formatted with a day component when the
// duration is at least 24 hours.
func (d Duration) String() string {
	return formatString(d)
}

// IsZero checks if the duration is zero.
func (d Duration) IsZero() bool {
	return d == 0
}
