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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dop251/goja"
)

// RunChild is the proxy child main loop: read length-framed request
// frames from in, evaluate each with a dedicated script runtime, write
// length-framed replies to out. It returns the process exit code.
//
// A zero-length request is a liveness ping answered without evaluation.
// EOF, including a truncated frame, ends the loop with exit code 0. A
// protocol version mismatch or any other decode or read error is reported
// on stderr and ends it with exit code 1; a failed reply write also
// returns 1, without a message.
func RunChild(in io.Reader, out io.Writer, args []string) int {
	var (
		rd  = bufio.NewReader(in)
		rtm = goja.New()
	)

	if len(args) > 0 {
		rtm.Set("proxyPool", args[0])
	}

	if len(args) > 1 {
		rtm.Set("proxyId", args[1])
	}

	for {
		script, err := DecodeRequest(rd)

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0
		} else if err != nil {
			fmt.Fprintf(os.Stderr, "proxy child: %v\n", err)
			return 1
		}

		var res Result

		if len(script) > 0 {
			res = evalChild(rtm, script)
		}

		if _, err = out.Write(EncodeReply(res)); err != nil {
			return 1
		}
	}
}

// evalChild runs one script, mapping engine exceptions onto the reply
// header fields.
func evalChild(rtm *goja.Runtime, script []byte) Result {
	v, err := rtm.RunString(string(script))

	if err == nil {
		var res string

		if v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
			res = v.String()
		}

		return Result{Code: 0, Result: res}
	}

	var exc *goja.Exception

	if errors.As(err, &exc) {
		return Result{
			Code:    1,
			ErrCode: "EVAL",
			ErrInfo: exc.Value().String(),
		}
	}

	return Result{
		Code:    1,
		ErrCode: "EVAL",
		ErrInfo: err.Error(),
	}
}
