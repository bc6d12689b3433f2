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

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

type lgr struct {
	m sync.RWMutex
	l *logrus.Logger
	f Fields
	c io.Closer
}

func (o *lgr) init(opt *Options) {
	o.l = logrus.New()
	o.l.SetLevel(Parse(opt.Level).Logrus())

	if opt.EnableJSON {
		o.l.SetFormatter(&logrus.JSONFormatter{
			DisableTimestamp: opt.DisableTimestamp,
		})
	} else {
		o.l.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: opt.DisableTimestamp,
			DisableColors:    opt.DisableColor,
			FullTimestamp:    !opt.DisableTimestamp,
		})
	}

	var out []io.Writer

	if !opt.DisableStandard {
		out = append(out, os.Stderr)
	}

	if opt.LogFile != "" {
		// open failure falls back to stderr only
		if h, e := os.OpenFile(opt.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); e == nil {
			out = append(out, h)
			o.c = h
		}
	}

	switch len(out) {
	case 0:
		o.l.SetOutput(io.Discard)
	case 1:
		o.l.SetOutput(out[0])
	default:
		o.l.SetOutput(io.MultiWriter(out...))
	}
}

func (o *lgr) Close() error {
	o.m.Lock()
	defer o.m.Unlock()

	if o.c != nil {
		e := o.c.Close()
		o.c = nil
		return e
	}

	return nil
}

func (o *lgr) SetLevel(lvl Level) {
	o.l.SetLevel(lvl.Logrus())
}

func (o *lgr) GetLevel() Level {
	switch o.l.GetLevel() {
	case logrus.PanicLevel:
		return PanicLevel
	case logrus.FatalLevel:
		return FatalLevel
	case logrus.ErrorLevel:
		return ErrorLevel
	case logrus.WarnLevel:
		return WarnLevel
	case logrus.InfoLevel:
		return InfoLevel
	case logrus.DebugLevel:
		return DebugLevel
	default:
		return NilLevel
	}
}

func (o *lgr) SetFields(fields Fields) {
	o.m.Lock()
	defer o.m.Unlock()

	o.f = fields
}

func (o *lgr) WithFields(fields Fields) Logger {
	o.m.RLock()
	defer o.m.RUnlock()

	var f = make(Fields, len(o.f)+len(fields))

	for k, v := range o.f {
		f[k] = v
	}

	for k, v := range fields {
		f[k] = v
	}

	return &lgr{
		l: o.l,
		f: f,
		c: nil,
	}
}

func (o *lgr) entry() *logrus.Entry {
	o.m.RLock()
	defer o.m.RUnlock()

	if len(o.f) > 0 {
		return o.l.WithFields(logrus.Fields(o.f))
	}

	return logrus.NewEntry(o.l)
}

func (o *lgr) log(lvl Level, message string, args ...interface{}) {
	if lvl == NilLevel {
		return
	}

	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}

	o.entry().Log(lvl.Logrus(), message)
}

func (o *lgr) Debug(message string, args ...interface{}) {
	o.log(DebugLevel, message, args...)
}

func (o *lgr) Info(message string, args ...interface{}) {
	o.log(InfoLevel, message, args...)
}

func (o *lgr) Warning(message string, args ...interface{}) {
	o.log(WarnLevel, message, args...)
}

func (o *lgr) Error(message string, args ...interface{}) {
	o.log(ErrorLevel, message, args...)
}

func (o *lgr) Fatal(message string, args ...interface{}) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}

	o.entry().Fatal(message)
}

func (o *lgr) CheckError(lvlKO, lvlOK Level, message string, err error) bool {
	if err != nil {
		o.log(lvlKO, "%s: %v", message, err)
		return true
	}

	if lvlOK != NilLevel {
		o.log(lvlOK, message)
	}

	return false
}

func (o *lgr) LogError(message string, err error) bool {
	return o.CheckError(ErrorLevel, NilLevel, message, err)
}
