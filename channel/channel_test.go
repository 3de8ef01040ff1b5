// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package channel

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	crypto "github.com/libp2p/go-libp2p-core/crypto"
	peerlib "github.com/libp2p/go-libp2p-core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/floodcastd/fault"
	"github.com/bitmark-inc/floodcastd/frame"
)

var testLog *logger.L

func TestMain(m *testing.M) {
	logConfig := logger.Configuration{
		Directory: os.TempDir(),
		File:      "channel_test.log",
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "error",
		},
	}
	if err := logger.Initialise(logConfig); err != nil {
		panic(fmt.Sprintf("logger initialisation failed: %s", err))
	}
	testLog = logger.New("channel")
	rc := m.Run()
	logger.Finalise()
	os.Exit(rc)
}

// event recorder implementing Events
type recorder struct {
	sync.Mutex
	received [][]byte
	gone     int
}

func (r *recorder) Received(peer peerlib.ID, payload []byte) {
	r.Lock()
	r.received = append(r.received, payload)
	r.Unlock()
}

func (r *recorder) Gone(peer peerlib.ID) {
	r.Lock()
	r.gone += 1
	r.Unlock()
}

func (r *recorder) payloads() [][]byte {
	r.Lock()
	defer r.Unlock()
	out := make([][]byte, len(r.received))
	copy(out, r.received)
	return out
}

func (r *recorder) goneCount() int {
	r.Lock()
	defer r.Unlock()
	return r.gone
}

func mockPeerID(t *testing.T) peerlib.ID {
	privKey, _, err := crypto.GenerateKeyPairWithReader(crypto.Ed25519, 0, rand.Reader)
	require.NoError(t, err, "generate key error")
	id, err := peerlib.IDFromPrivateKey(privKey)
	require.NoError(t, err, "id from key error")
	return id
}

func waitFor(t *testing.T, what string, condition func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for: %s", what)
}

func TestLifecycleStates(t *testing.T) {
	events := &recorder{}
	ch := New(mockPeerID(t), events, testLog, Limits{})

	assert.Equal(t, Negotiating, ch.State(), "wrong initial state")
	assert.Equal(t, fault.ChannelClosed, ch.Send([]byte("early")), "send accepted before open")

	local, _ := net.Pipe()
	assert.NoError(t, ch.Open(local), "open error")
	assert.Equal(t, Open, ch.State(), "wrong state after open")

	assert.Equal(t, fault.ChannelAlreadyOpen, ch.Open(local), "second open accepted")

	ch.Close()
	waitFor(t, "closed", func() bool { return Closed == ch.State() })
	assert.Equal(t, 1, events.goneCount(), "gone notification count")

	assert.Equal(t, fault.ChannelClosed, ch.Send([]byte("late")), "send accepted after close")
	assert.Equal(t, fault.ChannelClosed, ch.Open(local), "reopen accepted")
}

func TestSendFIFO(t *testing.T) {
	events := &recorder{}
	ch := New(mockPeerID(t), events, testLog, Limits{MaxFrameSize: 1024})

	local, remote := net.Pipe()
	require.NoError(t, ch.Open(local), "open error")

	done := make(chan [][]byte)
	go func() {
		rd := frame.NewReader(remote, 1024)
		var frames [][]byte
		for i := 0; i < 3; i += 1 {
			payload, err := rd.Read()
			if nil != err {
				break
			}
			frames = append(frames, payload)
		}
		done <- frames
	}()

	assert.NoError(t, ch.Send([]byte("m1")), "send error")
	assert.NoError(t, ch.Send([]byte("m2")), "send error")
	assert.NoError(t, ch.Send([]byte("m3")), "send error")

	frames := <-done
	require.Equal(t, 3, len(frames), "frame count")
	assert.Equal(t, []byte("m1"), frames[0])
	assert.Equal(t, []byte("m2"), frames[1])
	assert.Equal(t, []byte("m3"), frames[2])
	// the counter increments after the pipe write returns, so the
	// reader can observe the final frame just before the increment
	waitFor(t, "frames out counter", func() bool { return uint64(3) == ch.FramesOut() })
	assert.Equal(t, uint64(3), ch.FramesOut(), "frames out counter")

	ch.Close()
}

func TestReceiveFIFO(t *testing.T) {
	events := &recorder{}
	ch := New(mockPeerID(t), events, testLog, Limits{MaxFrameSize: 1024})

	local, remote := net.Pipe()
	require.NoError(t, ch.AttachInbound(local), "attach error")
	assert.Equal(t, fault.InboundAlreadySet, ch.AttachInbound(local), "second inbound accepted")

	for _, m := range []string{"r1", "r2", "r3"} {
		packed, err := frame.Pack([]byte(m), 1024)
		require.NoError(t, err, "pack error")
		_, err = remote.Write(packed)
		require.NoError(t, err, "write error")
	}

	waitFor(t, "3 received", func() bool { return 3 == len(events.payloads()) })
	payloads := events.payloads()
	assert.Equal(t, []byte("r1"), payloads[0])
	assert.Equal(t, []byte("r2"), payloads[1])
	assert.Equal(t, []byte("r3"), payloads[2])
	assert.Equal(t, uint64(3), ch.FramesIn(), "frames in counter")

	// remote end closing cleanly ends the channel
	remote.Close()
	waitFor(t, "closed", func() bool { return Closed == ch.State() })
	assert.Equal(t, 1, events.goneCount(), "gone notification count")
}

func TestBackpressure(t *testing.T) {
	events := &recorder{}
	ch := New(mockPeerID(t), events, testLog, Limits{MaxFrameSize: 1024, QueueSize: 1})

	local, remote := net.Pipe()
	require.NoError(t, ch.Open(local), "open error")

	// m1 is picked up by the write loop which then blocks on the pipe
	require.NoError(t, ch.Send([]byte("m1")), "send error")
	time.Sleep(20 * time.Millisecond)

	// m2 occupies the single queue slot
	require.NoError(t, ch.Send([]byte("m2")), "send error")

	// m3 must block until the remote drains a frame
	unblocked := make(chan struct{})
	go func() {
		ch.Send([]byte("m3"))
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("send did not block on a full queue")
	case <-time.After(100 * time.Millisecond):
	}

	// drain everything, the blocked send must proceed
	done := make(chan [][]byte)
	go func() {
		rd := frame.NewReader(remote, 1024)
		var frames [][]byte
		for i := 0; i < 3; i += 1 {
			payload, err := rd.Read()
			if nil != err {
				break
			}
			frames = append(frames, payload)
		}
		done <- frames
	}()

	select {
	case <-unblocked:
	case <-time.After(2 * time.Second):
		t.Fatal("send did not resume after drain")
	}

	frames := <-done
	require.Equal(t, 3, len(frames), "frame count")
	assert.Equal(t, []byte("m1"), frames[0])
	assert.Equal(t, []byte("m2"), frames[1])
	assert.Equal(t, []byte("m3"), frames[2])

	ch.Close()
}

func TestOversizeSend(t *testing.T) {
	events := &recorder{}
	ch := New(mockPeerID(t), events, testLog, Limits{MaxFrameSize: 16})

	local, _ := net.Pipe()
	require.NoError(t, ch.Open(local), "open error")

	err := ch.Send(make([]byte, 17))
	assert.Equal(t, fault.MessageTooLarge, err, "oversize payload queued")

	ch.Close()
}

func TestOversizeInboundFailsChannel(t *testing.T) {
	events := &recorder{}
	ch := New(mockPeerID(t), events, testLog, Limits{MaxFrameSize: 16})

	local, remote := net.Pipe()
	require.NoError(t, ch.AttachInbound(local), "attach error")

	// header declaring a frame far beyond the maximum
	header := make([]byte, frame.HeaderLength)
	binary.BigEndian.PutUint32(header, 0x01000000)
	_, err := remote.Write(header)
	require.NoError(t, err, "write error")

	waitFor(t, "failed", func() bool { return Failed == ch.State() })
	assert.Equal(t, 1, events.goneCount(), "gone notification count")
	assert.Equal(t, 0, len(events.payloads()), "payload delivered from bad frame")
}

func TestCloseDrainsQueue(t *testing.T) {
	events := &recorder{}
	ch := New(mockPeerID(t), events, testLog, Limits{MaxFrameSize: 1024, QueueSize: 4})

	local, remote := net.Pipe()
	require.NoError(t, ch.Open(local), "open error")

	received := make(chan []byte, 4)
	go func() {
		rd := frame.NewReader(remote, 1024)
		for {
			payload, err := rd.Read()
			if nil != err {
				close(received)
				return
			}
			received <- payload
		}
	}()

	require.NoError(t, ch.Send([]byte("queued")), "send error")
	ch.Close()

	select {
	case payload, ok := <-received:
		if ok {
			assert.Equal(t, []byte("queued"), payload, "wrong drained payload")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("queued frame was not drained on close")
	}

	waitFor(t, "closed", func() bool {
		state := ch.State()
		return Closed == state || Failed == state
	})
}
