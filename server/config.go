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

package server

import (
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	libcnp "github.com/nabbar/srvcore/connpool"
	libdbp "github.com/nabbar/srvcore/dbpool"
	libdur "github.com/nabbar/srvcore/duration"
	liberr "github.com/nabbar/srvcore/errors"
	libipr "github.com/nabbar/srvcore/interp"
	liblog "github.com/nabbar/srvcore/logger"
	libprx "github.com/nabbar/srvcore/proxy"
	libsch "github.com/nabbar/srvcore/sched"
)

// Config assembles every core section. Options outside the recognized
// sets are rejected at load.
type Config struct {
	Logger    liblog.Options           `json:"logger,omitempty" yaml:"logger,omitempty" mapstructure:"logger"`
	Scheduler libsch.Config            `json:"scheduler,omitempty" yaml:"scheduler,omitempty" mapstructure:"scheduler"`
	ConnPool  libcnp.Config            `json:"connPool" yaml:"connPool" mapstructure:"connPool"`
	Interp    libipr.Config            `json:"interp,omitempty" yaml:"interp,omitempty" mapstructure:"interp"`
	Proxies   map[string]libprx.Config `json:"proxies,omitempty" yaml:"proxies,omitempty" mapstructure:"proxies"`
	DBPools   map[string]libdbp.Config `json:"dbPools,omitempty" yaml:"dbPools,omitempty" mapstructure:"dbPools"`
}

// Validate checks every section and returns an aggregated error.
func (c *Config) Validate() liberr.Error {
	var e = ErrorValidatorError.Error(nil)

	if err := c.ConnPool.Validate(); err != nil {
		e.AddParentError(err)
	}

	if err := c.Scheduler.Validate(); err != nil {
		e.AddParentError(err)
	}

	if err := c.Interp.Validate(); err != nil {
		e.AddParentError(err)
	}

	for _, p := range c.Proxies {
		if err := p.Validate(); err != nil {
			e.AddParentError(err)
		}
	}

	for _, p := range c.DBPools {
		if err := p.Validate(); err != nil {
			e.AddParentError(err)
		}
	}

	if !e.HasParent() {
		e = nil
	}

	return e
}

// Load reads and strictly decodes the config file: unrecognized options
// fail the load instead of being ignored.
func Load(path string) (*Config, liberr.Error) {
	if path == "" {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	vpr := viper.New()
	vpr.SetConfigFile(path)

	if err := vpr.ReadInConfig(); err != nil {
		return nil, ErrorConfigRead.Error(err)
	}

	var cfg Config

	err := vpr.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.ErrorUnused = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			libdur.ViperDecoderHook(),
			mapstructure.StringToTimeDurationHookFunc(),
		)
	})

	if err != nil {
		return nil, ErrorConfigDecode.Error(err)
	}

	if e := cfg.Validate(); e != nil {
		return nil, e
	}

	return &cfg, nil
}
