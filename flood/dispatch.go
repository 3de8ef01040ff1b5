// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package flood

import (
	"encoding/hex"
	"sync"

	"github.com/bitmark-inc/logger"
	peerlib "github.com/libp2p/go-libp2p-core/peer"
	"golang.org/x/crypto/sha3"

	"github.com/bitmark-inc/floodcastd/channel"
	"github.com/bitmark-inc/floodcastd/fault"
	"github.com/bitmark-inc/floodcastd/limitedset"
	"github.com/bitmark-inc/floodcastd/messagebus"
	"github.com/bitmark-inc/floodcastd/util"
)

// fingerprint - dedup key for a payload
func fingerprint(payload []byte) string {
	digest := sha3.Sum256(payload)
	return string(digest[:])
}

// configure - set up the dispatcher tables
// must be called before any channel is created
func (n *Node) configure(log *logger.L, limits channel.Limits, cacheSize int) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	n.log = log
	n.limits = limits
	n.channels = make(map[peerlib.ID]*channel.Channel)
	n.seen = limitedset.New(cacheSize)
	n.deliver = deliverToBus
}

// deliverToBus - default local delivery
func deliverToBus(peer peerlib.ID, payload []byte) {
	messagebus.Bus.Delivered.Send(peer.Pretty(), payload)
}

// publish - flood a locally originated payload
func (n *Node) publish(payload []byte) error {
	if len(payload) > n.limits.MaxFrameSize {
		return fault.MessageTooLarge
	}
	fp := fingerprint(payload)
	n.Lock()
	if n.seen.Exists(fp) {
		n.Unlock()
		n.duplicates.Increment()
		return nil
	}
	n.seen.Add(fp)
	targets := n.openChannelsLocked(nil)
	n.Unlock()

	n.published.Increment()
	util.LogDebug(n.log, util.CoWhite, "publish: "+shortFingerprint(fp))
	n.fanOut(targets, payload)
	return nil
}

// Received - a payload arrived from a peer channel
//
// a previously seen fingerprint terminates the flood here, otherwise
// the payload is delivered locally and forwarded to every open
// channel except the arrival one
func (n *Node) Received(from peerlib.ID, payload []byte) {
	fp := fingerprint(payload)
	n.Lock()
	if n.seen.Exists(fp) {
		n.Unlock()
		n.duplicates.Increment()
		return
	}
	n.seen.Add(fp)
	targets := n.openChannelsLocked(&from)
	n.Unlock()

	n.delivered.Increment()
	util.LogDebug(n.log, util.CoWhite, "received: "+shortFingerprint(fp)+" from: "+from.ShortString())
	n.deliver(from, payload)
	n.fanOut(targets, payload)
}

// Gone - a peer channel reached a terminal state
func (n *Node) Gone(peer peerlib.ID) {
	util.LogInfo(n.log, util.CoYellow, "gone: "+peer.ShortString())
	n.removeChannel(peer)
}

// fanOut - queue a payload to a set of channels
// a full queue blocks only its own goroutine, a dead channel only
// bumps the failure counter; one slow or broken peer never stalls
// another
func (n *Node) fanOut(targets []*channel.Channel, payload []byte) {
	var wg sync.WaitGroup
	for _, ch := range targets {
		wg.Add(1)
		go func(ch *channel.Channel) {
			defer wg.Done()
			if err := ch.Send(payload); nil != err {
				n.sendFailures.Increment()
				util.LogDebug(n.log, util.CoLightRed, "send to: "+ch.Peer().ShortString()+"  error: "+err.Error())
			} else {
				n.forwarded.Increment()
			}
		}(ch)
	}
	wg.Wait()
}

// addChannel - table a new channel
func (n *Node) addChannel(ch *channel.Channel) error {
	n.Lock()
	defer n.Unlock()
	if _, ok := n.channels[ch.Peer()]; ok {
		return fault.DuplicateChannel
	}
	n.channels[ch.Peer()] = ch
	return nil
}

// removeChannel - drop a channel from the table
func (n *Node) removeChannel(peer peerlib.ID) {
	n.Lock()
	delete(n.channels, peer)
	n.Unlock()
}

// channel - look up the channel for a peer
func (n *Node) channel(peer peerlib.ID) (*channel.Channel, bool) {
	n.RLock()
	ch, ok := n.channels[peer]
	n.RUnlock()
	return ch, ok
}

// allChannels - snapshot of the whole table
func (n *Node) allChannels() []*channel.Channel {
	n.RLock()
	defer n.RUnlock()
	channels := make([]*channel.Channel, 0, len(n.channels))
	for _, ch := range n.channels {
		channels = append(channels, ch)
	}
	return channels
}

// openChannelsLocked - snapshot of flood targets
// caller must hold the lock; exclude is the arrival edge, nil for a
// local publish
//
// only Open channels are targets, a Negotiating or Closing entry
// would just bump the failure counter
func (n *Node) openChannelsLocked(exclude *peerlib.ID) []*channel.Channel {
	targets := make([]*channel.Channel, 0, len(n.channels))
	for id, ch := range n.channels {
		if nil != exclude && util.IDEqual(id, *exclude) {
			continue
		}
		if channel.Open != ch.State() {
			continue
		}
		targets = append(targets, ch)
	}
	return targets
}

// shortFingerprint - abbreviated fingerprint for the log
func shortFingerprint(fp string) string {
	return hex.EncodeToString([]byte(fp)[:8])
}

var _ channel.Events = (*Node)(nil)
