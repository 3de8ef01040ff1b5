// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package limitedset - a set that holds at most "n" items
//
// adding an item beyond the limit silently evicts the oldest item,
// re-adding an existing item refreshes its position so it becomes the
// newest again
package limitedset

import (
	"container/ring"
	"sync"
)

// LimitedSet - a bounded set of strings
type LimitedSet struct {
	sync.Mutex
	size  int
	count int
	ring  *ring.Ring
	hash  map[string]*ring.Ring
}

// New - create a new limited set that holds up to "n" items
func New(n int) *LimitedSet {
	return &LimitedSet{
		size: n,
		ring: ring.New(n),
		hash: make(map[string]*ring.Ring),
	}
}

// Add - add an item to the set evicting the oldest item if full
func (ls *LimitedSet) Add(item string) {
	ls.Lock()
	defer ls.Unlock()
	if r, ok := ls.hash[item]; ok {
		if r == ls.ring {
			// oldest item refreshed: move the eviction position past it
			ls.ring = ls.ring.Next()
			return
		}
		// refresh: move to the newest position
		r = r.Prev().Unlink(1)
		ls.ring.Prev().Link(r)
		return
	}
	if oldItem, ok := ls.ring.Value.(string); ok {
		delete(ls.hash, oldItem)
	} else {
		ls.count += 1
	}
	ls.ring.Value = item
	ls.hash[item] = ls.ring
	ls.ring = ls.ring.Next()
}

// Exists - check to see if item is in the set
func (ls *LimitedSet) Exists(item string) bool {
	ls.Lock()
	defer ls.Unlock()
	_, ok := ls.hash[item]
	return ok
}

// Size - current number of items held
func (ls *LimitedSet) Size() int {
	ls.Lock()
	defer ls.Unlock()
	return ls.count
}
