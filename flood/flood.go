// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package flood

import (
	"fmt"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	host "github.com/libp2p/go-libp2p-core/host"
	peerlib "github.com/libp2p/go-libp2p-core/peer"
	protocol "github.com/libp2p/go-libp2p-core/protocol"
	ma "github.com/multiformats/go-multiaddr"
	gocache "github.com/patrickmn/go-cache"

	"github.com/bitmark-inc/floodcastd/background"
	"github.com/bitmark-inc/floodcastd/channel"
	"github.com/bitmark-inc/floodcastd/counter"
	"github.com/bitmark-inc/floodcastd/fault"
	"github.com/bitmark-inc/floodcastd/limitedset"
	"github.com/bitmark-inc/floodcastd/messagebus"
	"github.com/bitmark-inc/floodcastd/mode"
	"github.com/bitmark-inc/floodcastd/util"
)

// const
const (
	// time intervals
	connectorInitial  = 5 * time.Second // startup delay before first dial pass
	connectorInterval = 1 * time.Minute // regular redial pass
	connectCancelTime = 30 * time.Second
	dialBackoffTime   = 30 * time.Second

	// default bound on the seen message cache
	DefaultCacheSize = 65536
)

// FloodProtocol - the protocol identifier negotiated once per stream
const FloodProtocol = protocol.ID("/floodcast/1.0.0")

// nodeProtocol - multiaddr protocol name for logging full addresses
var nodeProtocol = ma.ProtocolWithCode(ma.P_P2P).Name

// StaticConnection - hardwired connections
// this is read from the configuration file
type StaticConnection struct {
	PeerID  string `gluamapper:"peer_id" json:"peer_id"`
	Address string `gluamapper:"address" json:"address"`
}

// Configuration - a block of configuration data
// this is read from the configuration file
type Configuration struct {
	Listen       []string           `gluamapper:"listen" json:"listen"`
	Announce     []string           `gluamapper:"announce" json:"announce"`
	PrivateKey   string             `gluamapper:"private_key" json:"private_key"`
	Connect      []StaticConnection `gluamapper:"connect" json:"connect,omitempty"`
	MaxFrameSize int                `gluamapper:"max_frame_size" json:"max_frame_size"`
	QueueSize    int                `gluamapper:"queue_size" json:"queue_size"`
	CacheSize    int                `gluamapper:"cache_size" json:"cache_size"`
	MessageRate  float64            `gluamapper:"message_rate" json:"message_rate"`
	MessageBurst int                `gluamapper:"message_burst" json:"message_burst"`
}

// Node - the flood dispatcher
type Node struct {
	sync.RWMutex // to allow locking

	log     *logger.L
	version string

	host        host.Host
	announce    []ma.Multiaddr
	limits      channel.Limits
	channels    map[peerlib.ID]*channel.Channel
	seen        *limitedset.LimitedSet
	connections []peerlib.AddrInfo
	backoff     *gocache.Cache

	// host event surface, swappable for testing
	deliver func(peer peerlib.ID, payload []byte)

	// for background
	background *background.T

	// set once during initialise
	initialised bool

	// counters
	published    counter.Counter
	delivered    counter.Counter
	duplicates   counter.Counter
	forwarded    counter.Counter
	sendFailures counter.Counter
}

// global data
var globalData Node

// Initialise - initialise the flood module
func Initialise(configuration *Configuration, version string) error {
	globalData.Lock()
	defer globalData.Unlock()
	if globalData.initialised {
		return fault.AlreadyInitialised
	}
	globalData.log = logger.New("flood")
	globalData.log.Info("starting…")

	if err := globalData.setup(configuration, version); err != nil {
		return err
	}

	globalData.log.Info("start background…")
	processes := background.Processes{
		&globalData,
	}
	globalData.background = background.Start(processes, nil)
	globalData.initialised = true
	return nil
}

// Run - background connector loop
// dials the static connect list and any dial requests from the
// connector queue
func (n *Node) Run(args interface{}, shutdown <-chan struct{}) {
	log := n.log
	log.Info("starting…")
	queue := messagebus.Bus.Connector.Chan()
	delay := time.After(connectorInitial)
loop:
	for {
		select {
		case <-shutdown:
			break loop
		case item := <-queue:
			switch item.Command {
			case "connect":
				if 1 != len(item.Parameters) {
					util.LogWarn(log, util.CoLightRed, fmt.Sprintf("connect: parameters: %d expected: 1", len(item.Parameters)))
					continue loop
				}
				maAddr, err := ma.NewMultiaddr(string(item.Parameters[0]))
				if nil != err {
					util.LogWarn(log, util.CoLightRed, fmt.Sprintf("connect: bad multiaddr: %q error: %v", item.Parameters[0], err))
					continue loop
				}
				info, err := util.MaAddrToAddrInfo(maAddr)
				if nil != err {
					util.LogWarn(log, util.CoLightRed, fmt.Sprintf("connect: no peer info in: %q error: %v", item.Parameters[0], err))
					continue loop
				}
				go n.connect(*info)
			default:
				// ignore anything else
			}
		case <-delay:
			delay = time.After(connectorInterval)
			n.connectStatics()
		}
	}
	log.Info("shutting down…")
}

// Finalise - stop all background tasks
func Finalise() error {
	if !globalData.initialised {
		return fault.NotInitialised
	}
	globalData.log.Info("shutting down…")
	globalData.log.Flush()

	// stop background
	globalData.background.Stop()

	// close all peer channels
	for _, ch := range globalData.allChannels() {
		ch.Close()
	}

	if nil != globalData.host {
		globalData.host.Close()
	}

	// finally...
	globalData.initialised = false
	globalData.log.Info("finished")
	globalData.log.Flush()
	return nil
}

// Publish - flood a locally originated message to all connected peers
//
// returns after the message is queued to every open channel, waiting
// only on full per peer queues never on remote delivery
//
// the duplicate fingerprint is the SHA3-256 of the payload, so a
// byte identical payload published twice inside the dedup window
// floods only once, whoever originated it
func Publish(payload []byte) error {
	if mode.IsNot(mode.Normal) {
		return fault.NotAvailable
	}
	return globalData.publish(payload)
}

// ID - this node's host ID
func ID() peerlib.ID {
	return globalData.host.ID()
}

// Connected - representation of a connected peer
type Connected struct {
	Server  string   `json:"server"`
	Address []string `json:"address"`
	State   string   `json:"state"`
}

// GetAllPeers - obtain the list of currently tabled peers
func GetAllPeers() []*Connected {
	var peers []*Connected
	for _, ch := range globalData.allChannels() {
		id := ch.Peer()
		addrs := []string{}
		if nil != globalData.host {
			for _, addr := range globalData.host.Peerstore().PeerInfo(id).Addrs {
				addrs = append(addrs, addr.String())
			}
		}
		peers = append(peers, &Connected{
			Server:  id.Pretty(),
			Address: addrs,
			State:   ch.State().String(),
		})
	}
	return peers
}
