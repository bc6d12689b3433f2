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

package logger

// Options configures a Logger instance.
type Options struct {
	// Level is the minimal level of logged messages.
	Level string `json:"level,omitempty" yaml:"level,omitempty" mapstructure:"level"`

	// DisableStandard disables the stderr output.
	DisableStandard bool `json:"disableStandard,omitempty" yaml:"disableStandard,omitempty" mapstructure:"disableStandard"`

	// DisableTimestamp removes the timestamp from entries.
	DisableTimestamp bool `json:"disableTimestamp,omitempty" yaml:"disableTimestamp,omitempty" mapstructure:"disableTimestamp"`

	// DisableColor disables color on terminal output.
	DisableColor bool `json:"disableColor,omitempty" yaml:"disableColor,omitempty" mapstructure:"disableColor"`

	// EnableJSON switches entries to the JSON formatter.
	EnableJSON bool `json:"enableJSON,omitempty" yaml:"enableJSON,omitempty" mapstructure:"enableJSON"`

	// LogFile appends entries to the given file path.
	LogFile string `json:"logFile,omitempty" yaml:"logFile,omitempty" mapstructure:"logFile"`
}
