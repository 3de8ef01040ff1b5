// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package channel - the per peer message channel handler
//
// one Channel owns the pair of long lived streams negotiated with a
// single peer: an outbound stream this node writes frames to and an
// inbound stream the remote writes frames to, negotiated once per
// connection so later messages cost no further handshake round trips
//
// outbound messages pass through a bounded queue, Send blocks while
// the queue is full so a slow peer can never force unbounded buffering
//
// any error on either stream terminates only this channel, the owner
// receives a single Gone notification for eviction
package channel
