// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package flood - the broadcast dispatcher
//
// the per node singleton that owns the peer table, applies
// de-duplication and floods every unique message to all open peer
// channels except the one it arrived on
//
// duplicates are counted and dropped silently, they are the normal
// termination condition of a flood not an error
package flood
