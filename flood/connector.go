// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package flood

import (
	"context"
	"time"

	peerlib "github.com/libp2p/go-libp2p-core/peer"
	gocache "github.com/patrickmn/go-cache"

	"github.com/bitmark-inc/floodcastd/channel"
	"github.com/bitmark-inc/floodcastd/fault"
	"github.com/bitmark-inc/floodcastd/util"
)

// connectStatics - dial every configured static connection
// already tabled peers and peers inside their backoff window are
// skipped
func (n *Node) connectStatics() {
	n.RLock()
	connections := make([]peerlib.AddrInfo, len(n.connections))
	copy(connections, n.connections)
	n.RUnlock()
	for _, info := range connections {
		if err := n.connect(info); nil != err {
			util.LogDebug(n.log, util.CoLightRed, "connect: "+info.ID.ShortString()+"  error: "+err.Error())
		}
	}
}

// Reconnect - replace the static connection list
// used when the configuration file changes while running, the new
// list takes effect immediately and on every later redial pass
func Reconnect(statics []StaticConnection) error {
	if !globalData.initialised {
		return fault.NotInitialised
	}
	connections := make([]peerlib.AddrInfo, 0, len(statics))
	for _, static := range statics {
		info, err := staticAddrInfo(static)
		if nil != err {
			return err
		}
		connections = append(connections, *info)
	}
	globalData.Lock()
	globalData.connections = connections
	globalData.Unlock()
	go globalData.connectStatics()
	return nil
}

// connect - dial a peer and open its channel
func (n *Node) connect(info peerlib.AddrInfo) error {
	if util.IDEqual(info.ID, n.host.ID()) {
		return nil
	}
	if _, ok := n.channel(info.ID); ok {
		return nil
	}
	if _, found := n.backoff.Get(info.ID.Pretty()); found {
		return nil
	}

	cctx, cancel := context.WithTimeout(context.Background(), connectCancelTime)
	defer cancel()
	if err := n.host.Connect(cctx, info); nil != err {
		n.backoff.Set(info.ID.Pretty(), time.Now(), gocache.DefaultExpiration)
		return err
	}
	util.LogInfo(n.log, util.CoGreen, "connected: "+info.ID.ShortString())

	_, err := n.ensureChannel(info.ID)
	return err
}

// ensureChannel - table lookup with on demand creation
//
// the outbound stream is negotiated exactly once per peer, a
// concurrent inbound attach reuses the same channel
func (n *Node) ensureChannel(id peerlib.ID) (*channel.Channel, error) {
	n.Lock()
	if ch, ok := n.channels[id]; ok {
		n.Unlock()
		return ch, nil
	}
	ch := channel.New(id, n, n.log, n.limits)
	n.channels[id] = ch
	n.Unlock()

	cctx, cancel := context.WithTimeout(context.Background(), connectCancelTime)
	defer cancel()
	stream, err := n.host.NewStream(cctx, id, FloodProtocol)
	if nil != err {
		// never negotiated, drop the placeholder
		ch.Close()
		return nil, err
	}
	if err := ch.Open(stream); nil != err {
		stream.Reset()
		return nil, err
	}
	return ch, nil
}
