// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package frame - length prefixed binary framing for peer channels
//
// one frame on the wire is:
//
//   u32 length (big endian) || length bytes of opaque payload
//
// the payload is never interpreted here, a declared length above the
// configured maximum fails the frame before any payload is read
package frame
