// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	curPath := os.TempDir()
	var logConfig = logger.Configuration{
		Directory: curPath,
		File:      "floodcastd_test.log",
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "error",
		},
	}
	if err := logger.Initialise(logConfig); nil != err {
		panic("logger setup failed with error: " + err.Error())
	}
	rc := m.Run()
	logger.Finalise()
	os.Exit(rc)
}

func newWatchedFile(t *testing.T) (string, string, WatcherChannel) {
	t.Helper()
	dir, err := ioutil.TempDir("", "watcher-test")
	assert.NoError(t, err, "create temporary directory error")

	fileName := filepath.Join(dir, "floodcastd.conf")
	err = ioutil.WriteFile(fileName, []byte("-- empty\n"), 0600)
	assert.NoError(t, err, "write file error")

	channels := WatcherChannel{
		change: make(chan struct{}, 1),
		remove: make(chan struct{}, 1),
	}
	watcher, err := newFileWatcher(fileName, logger.New("test-watcher"), channels)
	assert.NoError(t, err, "new watcher error")
	assert.NoError(t, watcher.Start(), "start error")
	return dir, fileName, channels
}

func expectEvent(t *testing.T, what string, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s event", what)
	}
}

func TestWatcherChangeEvent(t *testing.T) {
	dir, fileName, channels := newWatchedFile(t)
	defer os.RemoveAll(dir)

	err := ioutil.WriteFile(fileName, []byte("-- changed\n"), 0600)
	assert.NoError(t, err, "rewrite file error")

	expectEvent(t, "change", channels.change)
}

func TestWatcherRemoveEvent(t *testing.T) {
	dir, fileName, channels := newWatchedFile(t)
	defer os.RemoveAll(dir)

	assert.NoError(t, os.Remove(fileName), "remove file error")

	expectEvent(t, "remove", channels.remove)
}

func TestWatcherMissingFile(t *testing.T) {
	channels := WatcherChannel{
		change: make(chan struct{}, 1),
		remove: make(chan struct{}, 1),
	}
	_, err := newFileWatcher("/nonexistent/floodcastd.conf", logger.New("test-watcher"), channels)
	assert.Error(t, err, "missing file accepted")
}
