// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package flood

// Metrics - dispatcher counters
type Metrics struct {
	Published    uint64 `json:"published"`
	Delivered    uint64 `json:"delivered"`
	Duplicates   uint64 `json:"duplicates"`
	Forwarded    uint64 `json:"forwarded"`
	SendFailures uint64 `json:"send_failures"`
	Peers        int    `json:"peers"`
	SeenCached   int    `json:"seen_cached"`
}

// GetMetrics - snapshot the dispatcher counters
func GetMetrics() Metrics {
	return globalData.metrics()
}

func (n *Node) metrics() Metrics {
	n.RLock()
	peers := len(n.channels)
	cached := n.seen.Size()
	n.RUnlock()
	return Metrics{
		Published:    n.published.Uint64(),
		Delivered:    n.delivered.Uint64(),
		Duplicates:   n.duplicates.Uint64(),
		Forwarded:    n.forwarded.Uint64(),
		SendFailures: n.sendFailures.Uint64(),
		Peers:        peers,
		SeenCached:   cached,
	}
}
