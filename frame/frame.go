// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package frame

import (
	"encoding/binary"
	"io"

	"github.com/bitmark-inc/floodcastd/fault"
)

// HeaderLength - number of bytes in the length prefix
const HeaderLength = 4

// Pack - prefix a payload with its big endian length
func Pack(payload []byte, maximum int) ([]byte, error) {
	if len(payload) > maximum {
		return nil, fault.FrameTooLarge
	}
	packed := make([]byte, HeaderLength+len(payload))
	binary.BigEndian.PutUint32(packed[:HeaderLength], uint32(len(payload)))
	copy(packed[HeaderLength:], payload)
	return packed, nil
}

// Unpack - extract one frame from the start of a buffer
//
// returns the payload and the number of bytes consumed
// a zero byte count with a nil error means the buffer does not yet hold
// a complete frame, retry after more bytes arrive
func Unpack(buffer []byte, maximum int) ([]byte, int, error) {
	if len(buffer) < HeaderLength {
		return nil, 0, nil
	}
	// compare before any int conversion, a declared length beyond
	// 2^31 must not wrap negative on 32 bit builds
	declared := binary.BigEndian.Uint32(buffer[:HeaderLength])
	if uint64(declared) > uint64(maximum) {
		return nil, 0, fault.FrameTooLarge
	}
	length := int(declared)
	if len(buffer) < HeaderLength+length {
		return nil, 0, nil
	}
	payload := make([]byte, length)
	copy(payload, buffer[HeaderLength:HeaderLength+length])
	return payload, HeaderLength + length, nil
}

// Reader - streaming frame decoder over an io.Reader
//
// each Read call consumes exactly one frame
type Reader struct {
	rd      io.Reader
	maximum int
	header  [HeaderLength]byte
}

// NewReader - create a frame reader with a maximum payload size
func NewReader(rd io.Reader, maximum int) *Reader {
	return &Reader{
		rd:      rd,
		maximum: maximum,
	}
}

// Read - read one frame returning its payload
//
// io.EOF signals a clean close at a frame boundary
// fault.MalformedPrefix - stream ended inside the length prefix
// fault.FrameTooLarge   - declared length above the maximum, no payload
//                         bytes are consumed
// fault.ChannelClosed   - stream ended inside the payload
func (r *Reader) Read() ([]byte, error) {
	_, err := io.ReadFull(r.rd, r.header[:])
	if io.EOF == err {
		return nil, io.EOF
	}
	if io.ErrUnexpectedEOF == err {
		return nil, fault.MalformedPrefix
	}
	if nil != err {
		return nil, err
	}

	declared := binary.BigEndian.Uint32(r.header[:])
	if uint64(declared) > uint64(r.maximum) {
		return nil, fault.FrameTooLarge
	}

	payload := make([]byte, int(declared))
	_, err = io.ReadFull(r.rd, payload)
	if io.EOF == err || io.ErrUnexpectedEOF == err {
		return nil, fault.ChannelClosed
	}
	if nil != err {
		return nil, err
	}
	return payload, nil
}
