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

package proxy_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"

	. "github.com/nabbar/srvcore/proxy"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// readReply consumes one length-prefixed reply frame from the stream.
func readReply(r io.Reader) (Result, error) {
	var h [4]byte

	if _, err := io.ReadFull(r, h[:]); err != nil {
		return Result{}, err
	}

	b := make([]byte, binary.BigEndian.Uint32(h[:]))

	if _, err := io.ReadFull(r, b); err != nil {
		return Result{}, err
	}

	return DecodeReply(b)
}

var _ = Describe("Proxy Wire Protocol", func() {
	Describe("Request frames", func() {
		It("should round-trip a script through encode and decode", func() {
			script := "expr { $x + 2 }"

			got, err := DecodeRequest(bytes.NewReader(EncodeRequest([]byte(script))))
			Expect(err).To(BeNil())
			Expect(string(got)).To(Equal(script))
		})

		It("should round-trip a zero-length ping", func() {
			got, err := DecodeRequest(bytes.NewReader(EncodeRequest(nil)))
			Expect(err).To(BeNil())
			Expect(got).To(HaveLen(0))
		})

		It("should refuse a version mismatch", func() {
			frame := EncodeRequest([]byte("x"))
			frame[4] = 0xff

			_, err := DecodeRequest(bytes.NewReader(frame))
			Expect(err).ToNot(BeNil())
			Expect(err.Error()).To(ContainSubstring("version mismatch"))
		})
	})

	Describe("Reply frames", func() {
		It("should round-trip all four fields byte-identical", func() {
			in := Result{
				Code:    7,
				ErrCode: "E_BOOM",
				ErrInfo: "something went sideways",
				Result:  strings.Repeat("r", 300),
			}

			out, err := DecodeReply(EncodeReply(in)[4:])
			Expect(err).To(BeNil())
			Expect(out).To(Equal(in))
		})

		It("should refuse a truncated frame", func() {
			b := EncodeReply(Result{Result: "abc"})[4:]

			_, err := DecodeReply(b[:len(b)-1])
			Expect(err).ToNot(BeNil())
		})
	})

	Describe("Child loop", func() {
		run := func(scripts ...string) []Result {
			var in bytes.Buffer

			for _, s := range scripts {
				in.Write(EncodeRequest([]byte(s)))
			}

			var out bytes.Buffer

			Expect(RunChild(&in, &out, []string{"p", "p-proxy-1"})).To(Equal(0))

			var res []Result

			for range scripts {
				r, err := readReply(&out)
				Expect(err).To(BeNil())
				res = append(res, r)
			}

			return res
		}

		It("should evaluate a script and reply its result", func() {
			res := run("var x = 1; x + 2")

			Expect(res[0].Ok()).To(BeTrue())
			Expect(res[0].Result).To(Equal("3"))
		})

		It("should keep state across requests of one child", func() {
			res := run("var y = 40", "y + 2")

			Expect(res[0].Ok()).To(BeTrue())
			Expect(res[1].Ok()).To(BeTrue())
			Expect(res[1].Result).To(Equal("42"))
		})

		It("should reply a nonzero code with error fields on a throw", func() {
			res := run("throw new Error('boom')")

			Expect(res[0].Code).ToNot(Equal(uint32(0)))
			Expect(res[0].ErrCode).ToNot(BeEmpty())
			Expect(res[0].ErrInfo).To(ContainSubstring("boom"))
		})

		It("should answer a ping without evaluating", func() {
			res := run("")

			Expect(res[0].Ok()).To(BeTrue())
			Expect(res[0].Result).To(BeEmpty())
		})

		It("should exit nonzero on a version mismatch", func() {
			frame := EncodeRequest([]byte("1"))
			frame[4] = 0xff

			var out bytes.Buffer

			Expect(RunChild(bytes.NewReader(frame), &out, nil)).To(Equal(1))
		})
	})
})
