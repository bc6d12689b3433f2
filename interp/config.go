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

package interp

import (
	"github.com/go-playground/validator/v10"

	liberr "github.com/nabbar/srvcore/errors"
)

// Config configures the interpreter pool of one server.
type Config struct {
	// Library is the script library path exposed to every interpreter as
	// the global `serverLibrary`.
	Library string `json:"library,omitempty" yaml:"library,omitempty" mapstructure:"library" validate:"omitempty"`

	// InitFile is a file whose content seeds the shared init script.
	InitFile string `json:"initFile,omitempty" yaml:"initFile,omitempty" mapstructure:"initFile" validate:"omitempty,file"`

	// LockOnInit serializes shared init script evaluation across slots.
	LockOnInit bool `json:"lockOnInit,omitempty" yaml:"lockOnInit,omitempty" mapstructure:"lockOnInit"`
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
