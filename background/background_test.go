// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package background_test

import (
	"testing"
	"time"

	"github.com/bitmark-inc/floodcastd/background"
)

// a pump that counts ticks until shutdown then records a final marker
type pump struct {
	ticks int
	final int
}

const (
	finishedMarker = 0x600dbeef
)

func TestStartStop(t *testing.T) {

	p1 := &pump{}
	p2 := &pump{}

	processes := background.Processes{
		p1,
		p2,
	}

	register := background.Start(processes, t)
	time.Sleep(50 * time.Millisecond)
	register.Stop()

	if finishedMarker != p1.final {
		t.Fatalf("process 1 did not finish: final: 0x%x", p1.final)
	}
	if finishedMarker != p2.final {
		t.Fatalf("process 2 did not finish: final: 0x%x", p2.final)
	}
	if p1.ticks <= 0 || p2.ticks <= 0 {
		t.Fatalf("processes did not run: ticks: %d %d", p1.ticks, p2.ticks)
	}
}

func TestStopNil(t *testing.T) {
	var register *background.T
	register.Stop() // must not panic
}

func (p *pump) Run(args interface{}, shutdown <-chan struct{}) {

	t := args.(*testing.T)

loop:
	for {
		select {
		case <-shutdown:
			break loop
		default:
		}
		p.ticks += 1
		time.Sleep(time.Millisecond)
	}
	t.Logf("pump stopped after %d ticks", p.ticks)
	p.final = finishedMarker
}
