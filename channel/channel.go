// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package channel

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	peerlib "github.com/libp2p/go-libp2p-core/peer"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/floodcastd/counter"
	"github.com/bitmark-inc/floodcastd/fault"
	"github.com/bitmark-inc/floodcastd/frame"
	"github.com/bitmark-inc/floodcastd/util"
)

// defaults when a limit is left zero
const (
	DefaultQueueSize    = 256
	DefaultMaxFrameSize = 4 * 1024 * 1024 // 4 MiB
)

// bound on the best effort drain during an orderly close
const drainTimeout = 5 * time.Second

// Events - callbacks into the owner of a channel
//
// Received is called once per inbound frame in receipt order
// Gone is called exactly once when the channel reaches a terminal
// state, the owner must evict the channel from its table
type Events interface {
	Received(peer peerlib.ID, payload []byte)
	Gone(peer peerlib.ID)
}

// Limits - per channel bounds
//
// a zero MessageRate disables inbound throttling
type Limits struct {
	MaxFrameSize int     // bytes, bound on one payload
	QueueSize    int     // outbound queue depth
	MessageRate  float64 // inbound frames per second
	Burst        int     // inbound burst allowance
}

// Channel - the handler for one connected peer
type Channel struct {
	sync.RWMutex

	peer   peerlib.ID
	log    *logger.L
	events Events
	limits Limits

	state    State
	out      chan []byte
	quit     chan struct{}
	outbound io.WriteCloser
	inbound  io.ReadCloser
	limiter  *rate.Limiter

	stopOnce sync.Once
	goneOnce sync.Once

	framesIn  counter.Counter
	framesOut counter.Counter
}

// New - create a channel for a peer in Negotiating state
func New(peer peerlib.ID, events Events, log *logger.L, limits Limits) *Channel {
	if limits.MaxFrameSize <= 0 {
		limits.MaxFrameSize = DefaultMaxFrameSize
	}
	if limits.QueueSize <= 0 {
		limits.QueueSize = DefaultQueueSize
	}
	limit := rate.Inf
	burst := 1
	if limits.MessageRate > 0 {
		limit = rate.Limit(limits.MessageRate)
		burst = limits.Burst
		if burst <= 0 {
			burst = 1
		}
	}
	return &Channel{
		peer:    peer,
		log:     log,
		events:  events,
		limits:  limits,
		state:   Negotiating,
		out:     make(chan []byte, limits.QueueSize),
		quit:    make(chan struct{}),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Peer - the remote peer this channel serves
func (ch *Channel) Peer() peerlib.ID {
	return ch.peer
}

// State - current lifecycle state
func (ch *Channel) State() State {
	ch.RLock()
	defer ch.RUnlock()
	return ch.state
}

// Open - attach the negotiated outbound stream and start writing
//
// called exactly once after the transport reports the stream for this
// protocol, a second call is a protocol violation
func (ch *Channel) Open(outbound io.WriteCloser) error {
	ch.Lock()
	switch ch.state {
	case Negotiating:
		// drop through
	case Open:
		ch.Unlock()
		return fault.ChannelAlreadyOpen
	default:
		ch.Unlock()
		return fault.ChannelClosed
	}
	ch.state = Open
	ch.outbound = outbound
	ch.Unlock()

	util.LogDebug(ch.log, util.CoGreen, fmt.Sprintf("open: %s", ch.peer.ShortString()))
	go ch.writeLoop()
	return nil
}

// AttachInbound - attach the stream the remote opened towards us and
// start the read loop
//
// the remote may open its stream at any time after the connection is
// up, a second attachment is a protocol violation
func (ch *Channel) AttachInbound(inbound io.ReadCloser) error {
	ch.Lock()
	switch ch.state {
	case Closed, Failed:
		ch.Unlock()
		return fault.ChannelClosed
	default:
	}
	if nil != ch.inbound {
		ch.Unlock()
		return fault.InboundAlreadySet
	}
	ch.inbound = inbound
	ch.Unlock()

	util.LogDebug(ch.log, util.CoGreen, fmt.Sprintf("inbound attached: %s", ch.peer.ShortString()))
	go ch.readLoop(inbound)
	return nil
}

// Send - queue one payload for delivery to the peer
//
// blocks while the bounded queue is full, this backpressure is the
// only flow control so callers must expect to wait on a slow peer
func (ch *Channel) Send(payload []byte) error {
	if len(payload) > ch.limits.MaxFrameSize {
		return fault.MessageTooLarge
	}
	if Open != ch.State() {
		return fault.ChannelClosed
	}
	select {
	case ch.out <- payload:
		return nil
	case <-ch.quit:
		return fault.ChannelClosed
	}
}

// Close - begin an orderly shutdown
//
// queued outbound messages are drained best effort, then the channel
// becomes Closed and the owner is notified
func (ch *Channel) Close() {
	ch.Lock()
	switch ch.state {
	case Closed, Failed:
		ch.Unlock()
		return
	default:
	}
	writing := Open == ch.state
	ch.state = Closing
	inbound := ch.inbound
	outbound := ch.outbound
	ch.Unlock()

	ch.stopOnce.Do(func() { close(ch.quit) })

	// unblock the read loop promptly
	if nil != inbound {
		inbound.Close()
	}

	// no write loop to drain the queue, finish here
	if !writing {
		ch.finish(nil)
		return
	}

	// a peer that stops reading must not stall the drain forever
	time.AfterFunc(drainTimeout, func() {
		if Closing == ch.State() && nil != outbound {
			outbound.Close()
		}
	})
}

// FramesIn - count of frames received
func (ch *Channel) FramesIn() uint64 {
	return ch.framesIn.Uint64()
}

// FramesOut - count of frames sent
func (ch *Channel) FramesOut() uint64 {
	return ch.framesOut.Uint64()
}

// write frames from the queue to the outbound stream
func (ch *Channel) writeLoop() {
loop:
	for {
		select {
		case payload := <-ch.out:
			if err := ch.write(payload); nil != err {
				ch.fail("write", err)
				return
			}
		case <-ch.quit:
			break loop
		}
	}

	// drain whatever is already queued, best effort
drain:
	for {
		select {
		case payload := <-ch.out:
			if err := ch.write(payload); nil != err {
				break drain
			}
		default:
			break drain
		}
	}
	ch.finish(nil)
}

func (ch *Channel) write(payload []byte) error {
	packed, err := frame.Pack(payload, ch.limits.MaxFrameSize)
	if nil != err {
		return err
	}
	_, err = ch.outbound.Write(packed)
	if nil != err {
		return err
	}
	ch.framesOut.Increment()
	return nil
}

// decode inbound frames and hand them to the owner in receipt order
func (ch *Channel) readLoop(inbound io.ReadCloser) {
	rd := frame.NewReader(inbound, ch.limits.MaxFrameSize)
	for {
		payload, err := rd.Read()
		if nil != err {
			select {
			case <-ch.quit:
				// local shutdown already in progress
				return
			default:
			}
			if io.EOF == err {
				util.LogDebug(ch.log, util.CoLightGray, fmt.Sprintf("inbound closed by remote: %s", ch.peer.ShortString()))
				ch.Close()
			} else {
				ch.fail("read", err)
			}
			return
		}
		ch.throttle()
		ch.framesIn.Increment()
		ch.events.Received(ch.peer, payload)
	}
}

// hold back an inbound frame when the peer is over its message rate
func (ch *Channel) throttle() {
	r := ch.limiter.Reserve()
	if !r.OK() {
		return
	}
	time.Sleep(r.Delay())
}

// terminal failure of this channel only
func (ch *Channel) fail(direction string, err error) {
	util.LogWarn(ch.log, util.CoLightRed, fmt.Sprintf("%s: %s error: %v", direction, ch.peer.ShortString(), err))
	ch.finish(err)
}

// reach a terminal state, close both streams, notify the owner once
func (ch *Channel) finish(err error) {
	ch.Lock()
	if nil != err {
		ch.state = Failed
	} else if Failed != ch.state {
		ch.state = Closed
	}
	outbound := ch.outbound
	inbound := ch.inbound
	ch.Unlock()

	ch.stopOnce.Do(func() { close(ch.quit) })

	if nil != outbound {
		outbound.Close()
	}
	if nil != inbound {
		inbound.Close()
	}

	ch.goneOnce.Do(func() {
		util.LogInfo(ch.log, util.CoLightGray, fmt.Sprintf("gone: %s state: %s", ch.peer.ShortString(), ch.State()))
		ch.events.Gone(ch.peer)
	})
}
