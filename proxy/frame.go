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
	"encoding/binary"
	"fmt"
	"io"
)

// Wire protocol of the parent/child pipe pair. Length-prefixed frames,
// all words big-endian.
//
// Request:  u32 script length (may be 0: ping), u16 major, u16 minor,
// then the script bytes. Reply: u32 total length, then u32 code, u32
// errCode length, u32 errInfo length, u32 result length, then the three
// strings concatenated. Any version mismatch is a fatal child exit.

const (
	MajorVersion uint16 = 1
	MinorVersion uint16 = 1

	reqHeadLen = 8
	repHeadLen = 16
)

// Result carries one decoded reply frame.
type Result struct {
	Code    uint32
	ErrCode string
	ErrInfo string
	Result  string
}

// Ok checks if the evaluation succeeded.
func (r Result) Ok() bool {
	return r.Code == 0
}

// EncodeRequest builds one request frame for the given script bytes.
func EncodeRequest(script []byte) []byte {
	var b = make([]byte, reqHeadLen+len(script))

	binary.BigEndian.PutUint32(b[0:4], uint32(len(script)))
	binary.BigEndian.PutUint16(b[4:6], MajorVersion)
	binary.BigEndian.PutUint16(b[6:8], MinorVersion)
	copy(b[reqHeadLen:], script)

	return b
}

// DecodeRequest reads one request frame, validating the protocol version.
// It is the child side of EncodeRequest.
func DecodeRequest(r io.Reader) ([]byte, error) {
	var h [reqHeadLen]byte

	if _, err := io.ReadFull(r, h[:]); err != nil {
		return nil, err
	}

	var (
		length = binary.BigEndian.Uint32(h[0:4])
		major  = binary.BigEndian.Uint16(h[4:6])
		minor  = binary.BigEndian.Uint16(h[6:8])
	)

	if major != MajorVersion || minor != MinorVersion {
		return nil, fmt.Errorf("protocol version mismatch: got %d.%d, want %d.%d", major, minor, MajorVersion, MinorVersion)
	}

	var script = make([]byte, length)

	if _, err := io.ReadFull(r, script); err != nil {
		return nil, err
	}

	return script, nil
}

// EncodeReply builds one reply frame, total length prefix included.
func EncodeReply(res Result) []byte {
	var (
		total = repHeadLen + len(res.ErrCode) + len(res.ErrInfo) + len(res.Result)
		b     = make([]byte, 4+total)
	)

	binary.BigEndian.PutUint32(b[0:4], uint32(total))
	binary.BigEndian.PutUint32(b[4:8], res.Code)
	binary.BigEndian.PutUint32(b[8:12], uint32(len(res.ErrCode)))
	binary.BigEndian.PutUint32(b[12:16], uint32(len(res.ErrInfo)))
	binary.BigEndian.PutUint32(b[16:20], uint32(len(res.Result)))

	p := b[20:]
	p = p[copy(p, res.ErrCode):]
	p = p[copy(p, res.ErrInfo):]
	copy(p, res.Result)

	return b
}

// DecodeReply parses one reply frame body (the bytes following the total
// length prefix).
func DecodeReply(b []byte) (Result, error) {
	if len(b) < repHeadLen {
		return Result{}, fmt.Errorf("reply frame too short: %d bytes", len(b))
	}

	var (
		code = binary.BigEndian.Uint32(b[0:4])
		ecl  = binary.BigEndian.Uint32(b[4:8])
		eil  = binary.BigEndian.Uint32(b[8:12])
		rsl  = binary.BigEndian.Uint32(b[12:16])
	)

	if uint64(repHeadLen)+uint64(ecl)+uint64(eil)+uint64(rsl) != uint64(len(b)) {
		return Result{}, fmt.Errorf("reply frame length mismatch")
	}

	p := b[repHeadLen:]

	return Result{
		Code:    code,
		ErrCode: string(p[:ecl]),
		ErrInfo: string(p[ecl : ecl+eil]),
		Result:  string(p[ecl+eil:]),
	}, nil
}
