// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messagebus

import (
	"fmt"
	"reflect"
	"strconv"
)

// Message - message to put into a queue
type Message struct {
	Command    string   // type of packed data
	Parameters [][]byte // array of parameters
}

// Queue - a 1:1 queue
type Queue struct {
	c    chan Message
	size int
}

// busses - all of the queues
//
// the "size" tag sets the queue depth, a queue without a tag gets
// defaultQueueSize
type busses struct {
	Delivered *Queue `size:"1000"` // received broadcasts for the host
	Connector *Queue `size:"50"`   // dial requests for the connector
	TestQueue *Queue `size:"50"`   // for testing use
}

const defaultQueueSize = 100

// Bus - all available queues
var Bus busses

// create all queues
func init() {
	busType := reflect.TypeOf(Bus)
	busValue := reflect.ValueOf(&Bus).Elem()

	for i := 0; i < busType.NumField(); i += 1 {
		size := defaultQueueSize

		fieldInfo := busType.Field(i)
		sizeTag := fieldInfo.Tag.Get("size")
		if len(sizeTag) > 0 {
			s, err := strconv.Atoi(sizeTag)
			if nil != err {
				panic(fmt.Sprintf("queue: %s has invalid size: %q", fieldInfo.Name, sizeTag))
			}
			size = s
		}

		q := &Queue{
			c:    make(chan Message, size),
			size: size,
		}
		busValue.Field(i).Set(reflect.ValueOf(q))
	}
}

// Send - send a message to a queue
//
// blocks when the queue is full, the queue bound is the only buffering
func (q *Queue) Send(command string, parameters ...[]byte) {
	q.c <- Message{
		Command:    command,
		Parameters: parameters,
	}
}

// Chan - channel to read from a queue
func (q *Queue) Chan() <-chan Message {
	return q.c
}

// Release - drop all currently queued items
func (q *Queue) Release() {
loop:
	for {
		select {
		case <-q.c:
		default:
			break loop
		}
	}
}
