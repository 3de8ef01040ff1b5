// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package channel

// State - the lifecycle state of a peer channel
type State int

// lifecycle: Negotiating → Open → Closing → Closed
// Failed is terminal and reachable from any state
const (
	Negotiating State = iota
	Open
	Closing
	Closed
	Failed
)

// String - state represented as a string
func (state State) String() string {
	switch state {
	case Negotiating:
		return "Negotiating"
	case Open:
		return "Open"
	case Closing:
		return "Closing"
	case Closed:
		return "Closed"
	case Failed:
		return "Failed"
	default:
		return "*Unknown*"
	}
}
