/*******************************************************************************
* Copyright (C) 2026 the Eclipse Ibeji Authors
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

package intercept

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// frameHeaderLen is the fixed gRPC message framing prefix: one compression
// flag byte followed by a 4-byte big-endian payload length.
const frameHeaderLen = 5

// ErrTruncatedFrame marks a byte stream that ends inside a frame header or
// payload.
var ErrTruncatedFrame = errors.New("truncated gRPC frame")

// rewriteFrames applies transform to the payload of every gRPC frame in body
// and reassembles the stream. The rebuilt header keeps the original
// compression flag but its length field is always recomputed from the
// returned payload, so a transform may legally change the payload size.
func rewriteFrames(body []byte, transform func(payload []byte) ([]byte, error)) ([]byte, error) {
	out := make([]byte, 0, len(body))
	rest := body
	for len(rest) > 0 {
		if len(rest) < frameHeaderLen {
			return nil, fmt.Errorf("%w: %d bytes left, header needs %d", ErrTruncatedFrame, len(rest), frameHeaderLen)
		}
		flag := rest[0]
		length := binary.BigEndian.Uint32(rest[1:frameHeaderLen])
		end := frameHeaderLen + int(length)
		if len(rest) < end {
			return nil, fmt.Errorf("%w: header declares %d payload bytes, %d available", ErrTruncatedFrame, length, len(rest)-frameHeaderLen)
		}

		payload, err := transform(rest[frameHeaderLen:end])
		if err != nil {
			return nil, err
		}

		var header [frameHeaderLen]byte
		header[0] = flag
		binary.BigEndian.PutUint32(header[1:], uint32(len(payload)))
		out = append(out, header[:]...)
		out = append(out, payload...)

		rest = rest[end:]
	}
	return out, nil
}
