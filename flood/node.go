// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package flood

import (
	"context"
	"fmt"
	"time"

	libp2p "github.com/libp2p/go-libp2p"
	connmgr "github.com/libp2p/go-libp2p-connmgr"
	crypto "github.com/libp2p/go-libp2p-core/crypto"
	"github.com/libp2p/go-libp2p-core/network"
	peerlib "github.com/libp2p/go-libp2p-core/peer"
	tls "github.com/libp2p/go-libp2p-tls"
	ma "github.com/multiformats/go-multiaddr"
	gocache "github.com/patrickmn/go-cache"

	"github.com/bitmark-inc/floodcastd/channel"
	"github.com/bitmark-inc/floodcastd/fault"
	"github.com/bitmark-inc/floodcastd/util"
)

// connection manager bounds
const (
	minimumConnections = 20
	maximumConnections = 100
	connectionGrace    = 2 * time.Minute
)

// setup - configure the host and tables from the configuration block
func (n *Node) setup(configuration *Configuration, version string) error {
	n.version = version

	limits := channel.Limits{
		MaxFrameSize: configuration.MaxFrameSize,
		QueueSize:    configuration.QueueSize,
		MessageRate:  configuration.MessageRate,
		Burst:        configuration.MessageBurst,
	}
	if limits.MaxFrameSize <= 0 {
		limits.MaxFrameSize = channel.DefaultMaxFrameSize
	}
	n.configure(n.log, limits, configuration.CacheSize)

	listenIPPorts := util.DualStackAddrToIPV4IPV6(configuration.Listen)
	if 0 == len(listenIPPorts) {
		return fault.NoListenAddrs
	}
	maAddrs := util.IPPortToMultiAddr(listenIPPorts)
	if 0 == len(maAddrs) {
		return fault.NoListenAddrs
	}

	prvKey, err := util.DecodePrivKeyFromHex(configuration.PrivateKey)
	if nil != err {
		return err
	}

	if err := n.newHost(maAddrs, prvKey); nil != err {
		return err
	}

	n.announce = util.IPPortToMultiAddr(util.DualStackAddrToIPV4IPV6(configuration.Announce))
	util.LogInfo(n.log, util.CoGreen, fmt.Sprintf("version: %s  announce: %s", n.version, util.PrintMaAddrs(n.announce)))

	for _, static := range configuration.Connect {
		info, err := staticAddrInfo(static)
		if nil != err {
			util.LogWarn(n.log, util.CoLightRed, fmt.Sprintf("static connection peer: %q address: %q error: %v", static.PeerID, static.Address, err))
			return err
		}
		n.connections = append(n.connections, *info)
	}

	n.backoff = gocache.New(dialBackoffTime, 2*dialBackoffTime)

	n.listen()
	return nil
}

// newHost - create the libp2p host
func (n *Node) newHost(listenAddrs []ma.Multiaddr, prvKey crypto.PrivKey) error {
	options := []libp2p.Option{
		libp2p.Identity(prvKey),
		libp2p.Security(tls.ID, tls.New),
		libp2p.ListenAddrs(listenAddrs...),
		libp2p.ConnectionManager(connmgr.NewConnManager(minimumConnections, maximumConnections, connectionGrace)),
	}
	newHost, err := libp2p.New(context.Background(), options...)
	if nil != err {
		return err
	}
	n.host = newHost
	for _, a := range newHost.Addrs() {
		n.log.Infof("host address: %s/%v/%s", a, nodeProtocol, newHost.ID())
	}
	newHost.Network().Notify(&network.NotifyBundle{
		DisconnectedF: n.onDisconnected,
	})
	return nil
}

// listen - register the stream handler
func (n *Node) listen() {
	n.host.SetStreamHandler(FloodProtocol, n.handleStream)
}

// handleStream - attach an inbound stream to the peer's channel
// the channel is created on demand so an inbound only peer still
// gets a lazily negotiated outbound stream for forwarding
func (n *Node) handleStream(stream network.Stream) {
	id := stream.Conn().RemotePeer()
	util.LogInfo(n.log, util.CoGreen, "inbound stream from: "+id.ShortString())
	ch, err := n.ensureChannel(id)
	if nil != err {
		util.LogWarn(n.log, util.CoLightRed, "inbound stream from: "+id.ShortString()+"  error: "+err.Error())
		stream.Reset()
		return
	}
	if err := ch.AttachInbound(stream); nil != err {
		// a second inbound stream from the same peer
		util.LogWarn(n.log, util.CoLightRed, "inbound stream from: "+id.ShortString()+"  error: "+err.Error())
		stream.Reset()
	}
}

// onDisconnected - libp2p notifiee callback
func (n *Node) onDisconnected(net network.Network, conn network.Conn) {
	id := conn.RemotePeer()
	if ch, ok := n.channel(id); ok {
		util.LogInfo(n.log, util.CoYellow, "disconnected: "+id.ShortString())
		ch.Close()
	}
}

// staticAddrInfo - convert a configuration entry to dialing info
func staticAddrInfo(static StaticConnection) (*peerlib.AddrInfo, error) {
	if "" == static.Address {
		return nil, fault.NoConnectAddress
	}
	maAddrs := util.IPPortToMultiAddr(util.DualStackAddrToIPV4IPV6([]string{static.Address}))
	if 0 == len(maAddrs) {
		return nil, fault.NoAddress
	}
	id, err := peerlib.IDB58Decode(static.PeerID)
	if nil != err {
		return nil, err
	}
	return &peerlib.AddrInfo{ID: id, Addrs: maAddrs}, nil
}
