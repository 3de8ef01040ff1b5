// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package messagebus - a queuing system for the host-facing event
// surface and internal control messages
//
// the Delivered queue carries one event per unique broadcast received
// from the network
//
// the Connector queue carries dial requests for the flood connector:
// Send("connect", multiaddr) where multiaddr is the textual form
// including the /p2p/ peer component; the host uses it to request
// connections beyond the configured static list
package messagebus
