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

package proxy

import (
	"github.com/go-playground/validator/v10"

	libdur "github.com/nabbar/srvcore/duration"
	liberr "github.com/nabbar/srvcore/errors"
)

// Config configures one named proxy pool.
type Config struct {
	// Exec is the path of the child executable.
	Exec string `json:"exec" yaml:"exec" mapstructure:"exec" validate:"required"`

	// Init is a script evaluated on every freshly spawned child.
	Init string `json:"init,omitempty" yaml:"init,omitempty" mapstructure:"init"`

	// Reinit is a script evaluated on a child reused after Configure.
	Reinit string `json:"reinit,omitempty" yaml:"reinit,omitempty" mapstructure:"reinit"`

	// Min is the number of proxies kept warm.
	Min int `json:"min,omitempty" yaml:"min,omitempty" mapstructure:"min" validate:"omitempty,min=0"`

	// Max bounds concurrently checked-out proxies.
	Max int `json:"max" yaml:"max" mapstructure:"max" validate:"required,min=1"`

	// GetTimeout bounds one Get call.
	GetTimeout libdur.Duration `json:"getTimeout,omitempty" yaml:"getTimeout,omitempty" mapstructure:"getTimeout"`

	// EvalTimeout bounds the wait-for-result phase of one Eval.
	EvalTimeout libdur.Duration `json:"evalTimeout,omitempty" yaml:"evalTimeout,omitempty" mapstructure:"evalTimeout"`

	// SendTimeout bounds writing one request frame.
	SendTimeout libdur.Duration `json:"sendTimeout,omitempty" yaml:"sendTimeout,omitempty" mapstructure:"sendTimeout"`

	// RecvTimeout bounds reading one reply frame.
	RecvTimeout libdur.Duration `json:"recvTimeout,omitempty" yaml:"recvTimeout,omitempty" mapstructure:"recvTimeout"`

	// WaitTimeout bounds each step of the child kill escalation.
	WaitTimeout libdur.Duration `json:"waitTimeout,omitempty" yaml:"waitTimeout,omitempty" mapstructure:"waitTimeout"`
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

	if c.Min > c.Max {
		e.Add(ErrorRange.Error(nil))
	}

	if !e.HasParent() {
		e = nil
	}

	return e
}
