// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package frame_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/floodcastd/fault"
	"github.com/bitmark-inc/floodcastd/frame"
)

const testMaximum = 1024

func TestPackUnpack(t *testing.T) {

	payloads := [][]byte{
		[]byte{},
		[]byte("x"),
		[]byte("a broadcast payload"),
		bytes.Repeat([]byte{0xa5}, testMaximum),
	}

	for i, payload := range payloads {
		packed, err := frame.Pack(payload, testMaximum)
		assert.NoError(t, err, "pack error: %d", i)
		assert.Equal(t, frame.HeaderLength+len(payload), len(packed), "packed length: %d", i)

		unpacked, used, err := frame.Unpack(packed, testMaximum)
		assert.NoError(t, err, "unpack error: %d", i)
		assert.Equal(t, len(packed), used, "bytes consumed: %d", i)
		assert.Equal(t, payload, unpacked, "payload mismatch: %d", i)
	}
}

func TestPackTooLarge(t *testing.T) {
	oversize := bytes.Repeat([]byte{0x55}, testMaximum+1)
	_, err := frame.Pack(oversize, testMaximum)
	assert.Equal(t, fault.FrameTooLarge, err, "oversize payload packed")
}

func TestUnpackIncomplete(t *testing.T) {

	packed, err := frame.Pack([]byte("incomplete"), testMaximum)
	assert.NoError(t, err, "pack error")

	// every prefix shorter than a full frame must report incomplete
	for n := 0; n < len(packed); n += 1 {
		payload, used, err := frame.Unpack(packed[:n], testMaximum)
		assert.NoError(t, err, "prefix %d", n)
		assert.Equal(t, 0, used, "prefix %d consumed bytes", n)
		assert.Nil(t, payload, "prefix %d produced payload", n)
	}
}

func TestUnpackResumable(t *testing.T) {

	one, _ := frame.Pack([]byte("first"), testMaximum)
	two, _ := frame.Pack([]byte("second"), testMaximum)
	buffer := append(append([]byte{}, one...), two...)

	payload, used, err := frame.Unpack(buffer, testMaximum)
	assert.NoError(t, err, "unpack error")
	assert.Equal(t, []byte("first"), payload)

	payload, used2, err := frame.Unpack(buffer[used:], testMaximum)
	assert.NoError(t, err, "unpack error")
	assert.Equal(t, []byte("second"), payload)
	assert.Equal(t, len(buffer), used+used2, "frames did not consume whole buffer")
}

func TestUnpackTooLarge(t *testing.T) {
	header := make([]byte, frame.HeaderLength)
	binary.BigEndian.PutUint32(header, uint32(testMaximum+1))
	_, used, err := frame.Unpack(header, testMaximum)
	assert.Equal(t, fault.FrameTooLarge, err, "oversize declared length accepted")
	assert.Equal(t, 0, used, "oversize frame consumed bytes")
}

func TestUnpackHugeDeclaredLength(t *testing.T) {

	// lengths at and beyond the int32 boundary must be rejected by
	// the maximum check, never reach allocation, and consume nothing
	for _, declared := range []uint32{0x80000000, 0xffffffff} {
		header := make([]byte, frame.HeaderLength)
		binary.BigEndian.PutUint32(header, declared)
		payload, used, err := frame.Unpack(header, testMaximum)
		assert.Equal(t, fault.FrameTooLarge, err, "declared length %#x accepted", declared)
		assert.Equal(t, 0, used, "declared length %#x consumed bytes", declared)
		assert.Nil(t, payload, "declared length %#x produced payload", declared)
	}
}

func TestReaderStream(t *testing.T) {

	buffer := &bytes.Buffer{}
	payloads := [][]byte{
		[]byte("m1"),
		[]byte(""),
		[]byte("m3 is a bit longer"),
	}
	for _, payload := range payloads {
		packed, err := frame.Pack(payload, testMaximum)
		assert.NoError(t, err, "pack error")
		buffer.Write(packed)
	}

	rd := frame.NewReader(buffer, testMaximum)
	for i, expected := range payloads {
		payload, err := rd.Read()
		assert.NoError(t, err, "read error: %d", i)
		assert.Equal(t, expected, payload, "payload mismatch: %d", i)
	}

	_, err := rd.Read()
	assert.Equal(t, io.EOF, err, "missing EOF at clean boundary")
}

func TestReaderTruncatedHeader(t *testing.T) {
	rd := frame.NewReader(bytes.NewReader([]byte{0x00, 0x00}), testMaximum)
	_, err := rd.Read()
	assert.Equal(t, fault.MalformedPrefix, err, "truncated header accepted")
}

func TestReaderTruncatedPayload(t *testing.T) {
	packed, _ := frame.Pack([]byte("truncated payload"), testMaximum)
	rd := frame.NewReader(bytes.NewReader(packed[:len(packed)-3]), testMaximum)
	_, err := rd.Read()
	assert.Equal(t, fault.ChannelClosed, err, "truncated payload accepted")
}

func TestReaderTooLarge(t *testing.T) {
	header := make([]byte, frame.HeaderLength)
	binary.BigEndian.PutUint32(header, uint32(testMaximum+1))
	rd := frame.NewReader(bytes.NewReader(header), testMaximum)
	_, err := rd.Read()
	assert.Equal(t, fault.FrameTooLarge, err, "oversize declared length accepted")
}

func TestReaderHugeDeclaredLength(t *testing.T) {
	for _, declared := range []uint32{0x80000000, 0xffffffff} {
		header := make([]byte, frame.HeaderLength)
		binary.BigEndian.PutUint32(header, declared)
		rd := frame.NewReader(bytes.NewReader(header), testMaximum)
		_, err := rd.Read()
		assert.Equal(t, fault.FrameTooLarge, err, "declared length %#x accepted", declared)
	}
}
