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

package dbpool

import (
	"github.com/go-playground/validator/v10"

	libdur "github.com/nabbar/srvcore/duration"
	liberr "github.com/nabbar/srvcore/errors"
)

// Config configures one named handle pool.
type Config struct {
	// Datasource is the driver-specific source name.
	Datasource string `json:"datasource" yaml:"datasource" mapstructure:"datasource" validate:"required"`

	// User authenticates against the datasource.
	User string `json:"user,omitempty" yaml:"user,omitempty" mapstructure:"user"`

	// Password authenticates against the datasource.
	Password string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`

	// Driver names the registered driver serving this pool.
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver" validate:"required"`

	// Connections bounds the handle count.
	Connections int `json:"connections" yaml:"connections" mapstructure:"connections" validate:"required,min=1"`

	// MaxIdle is the per-handle idle age above which the handle is stale.
	MaxIdle libdur.Duration `json:"maxIdle,omitempty" yaml:"maxIdle,omitempty" mapstructure:"maxIdle"`

	// MaxOpen is the per-handle open age above which the handle is stale.
	MaxOpen libdur.Duration `json:"maxOpen,omitempty" yaml:"maxOpen,omitempty" mapstructure:"maxOpen"`

	// CheckInterval schedules the periodic stale-handle reaper.
	CheckInterval libdur.Duration `json:"checkInterval,omitempty" yaml:"checkInterval,omitempty" mapstructure:"checkInterval"`

	// GetTimeout bounds one acquisition when the caller gives none.
	GetTimeout libdur.Duration `json:"getTimeout,omitempty" yaml:"getTimeout,omitempty" mapstructure:"getTimeout"`

	// Verbose logs handle lifecycle transitions.
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty" mapstructure:"verbose"`

	// LogErrors logs driver errors recorded on handles.
	LogErrors bool `json:"logErrors,omitempty" yaml:"logErrors,omitempty" mapstructure:"logErrors"`
}

// Validate checks the config values and returns an aggregated error.
func (c Config) Validate() liberr.Error {
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
