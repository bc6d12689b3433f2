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
	"github.com/go-playground/validator/v10"

	libdur "github.com/nabbar/srvcore/duration"
	liberr "github.com/nabbar/srvcore/errors"
)

// Config configures one connection worker pool.
type Config struct {
	// MinThreads is the number of service goroutines kept alive.
	MinThreads int `json:"minThreads" yaml:"minThreads" mapstructure:"minThreads" validate:"required,min=1"`

	// MaxThreads bounds the elastic service goroutine count.
	MaxThreads int `json:"maxThreads" yaml:"maxThreads" mapstructure:"maxThreads" validate:"required,min=1"`

	// MaxConns sizes the pre-allocated connection record arena.
	MaxConns int `json:"maxConns" yaml:"maxConns" mapstructure:"maxConns" validate:"required,min=1"`

	// ThreadIdleTimeout retires idle goroutines above MinThreads.
	ThreadIdleTimeout libdur.Duration `json:"threadIdleTimeout,omitempty" yaml:"threadIdleTimeout,omitempty" mapstructure:"threadIdleTimeout"`

	// MaxConsecutiveDrops triggers the server abort callback when that
	// many enqueues in a row found no free record. Zero disables.
	MaxConsecutiveDrops int `json:"maxConsecutiveDrops,omitempty" yaml:"maxConsecutiveDrops,omitempty" mapstructure:"maxConsecutiveDrops" validate:"omitempty,min=0"`

	// StatsMode enables the global statistics bundle.
	StatsMode bool `json:"statsMode,omitempty" yaml:"statsMode,omitempty" mapstructure:"statsMode"`

	// URLStatsCacheSize bounds the per-target statistics cache entry
	// count. Zero disables per-target statistics.
	URLStatsCacheSize int64 `json:"urlStatsCacheSize,omitempty" yaml:"urlStatsCacheSize,omitempty" mapstructure:"urlStatsCacheSize" validate:"omitempty,min=0"`
}

// Validate checks the config values and returns an aggregated error. It
// does not reorder inconsistent thread or record bounds: Clamp does, and
// Start applies it with a warning for each change.
func (c *Config) Validate() liberr.Error {
	var e = ErrorValidatorError.Error(nil)

	if err := validator.New().Struct(c); err != nil {
		if er, ok := err.(*validator.InvalidValidationError); ok {
			e.Add(er)
		}

		for _, er := range err.(validator.ValidationErrors) {
			e.Add(er)
		}
	}

	if !e.HasParent() {
		e = nil
	}

	return e
}

// Clamp silently repairs bound ordering, returning the applied changes
// for warning logs: minThreads <= maxThreads <= maxConns.
func (c *Config) Clamp() []string {
	var msg []string

	if c.MaxThreads > c.MaxConns {
		msg = append(msg, "maxThreads clamped to maxConns")
		c.MaxThreads = c.MaxConns
	}

	if c.MinThreads > c.MaxThreads {
		msg = append(msg, "minThreads clamped to maxThreads")
		c.MinThreads = c.MaxThreads
	}

	return msg
}
