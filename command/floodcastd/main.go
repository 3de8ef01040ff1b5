// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/floodcastd/flood"
	"github.com/bitmark-inc/floodcastd/messagebus"
	"github.com/bitmark-inc/floodcastd/mode"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

// main program
func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "verbose", HasArg: getoptions.NO_ARGUMENT, Short: 'v'},
		{Long: "quiet", HasArg: getoptions.NO_ARGUMENT, Short: 'q'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "config-file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'c'},
	}

	program, options, arguments, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		exitwithstatus.Message("%s: version: %s", program, version)
	}

	if len(options["help"]) > 0 {
		exitwithstatus.Message("usage: %s [--help] [--verbose] [--quiet] --config-file=FILE [[command|help] arguments...]", program)
	}

	// these commands do not require the configuration file
	if len(arguments) > 0 && processSetupCommand(program, arguments) {
		return
	}

	if 1 != len(options["config-file"]) {
		exitwithstatus.Message("%s: only one config-file option is required, %d were detected", program, len(options["config-file"]))
	}

	// read options and parse the configuration file
	configurationFile := options["config-file"][0]

	masterConfiguration, err := getConfiguration(configurationFile)
	if nil != err {
		exitwithstatus.Message("%s: failed to read configuration from: %q  error: %s", program, configurationFile, err)
	}

	// start logging
	if err = logger.Initialise(masterConfiguration.Logging); nil != err {
		exitwithstatus.Message("%s: logger setup failed with error: %s", program, err)
	}
	defer logger.Finalise()

	// create a logger channel for the main program
	log := logger.New("main")
	defer log.Info("shutting down…")
	log.Info("starting…")
	log.Infof("version: %s", version)
	log.Debugf("masterConfiguration: %v", masterConfiguration)

	// ------------------
	// start of real main
	// ------------------

	// optional PID file
	// use if not running under a supervisor program like daemon(8)
	if "" != masterConfiguration.PidFile {
		lockFile, err := os.OpenFile(masterConfiguration.PidFile, os.O_WRONLY|os.O_EXCL|os.O_CREATE, os.ModeExclusive|0600)
		if err != nil {
			if os.IsExist(err) {
				exitwithstatus.Message("%s: another instance is already running", program)
			}
			exitwithstatus.Message("%s: PID file: %q creation failed, error: %s", program, masterConfiguration.PidFile, err)
		}
		fmt.Fprintf(lockFile, "%d\n", os.Getpid())
		lockFile.Close()
		defer os.Remove(masterConfiguration.PidFile)
	}

	// set the initial system mode - before any background tasks are started
	if err := mode.Initialise(); nil != err {
		log.Criticalf("mode initialise error: %s", err)
		exitwithstatus.Message("%s: mode initialise error: %s", program, err)
	}
	defer mode.Finalise()

	// the identity key must be present
	if "" == masterConfiguration.Flooding.PrivateKey {
		exitwithstatus.Message("%s: the flooding private_key must be specified", program)
	}

	// start the flood engine
	if err := flood.Initialise(&masterConfiguration.Flooding, version); nil != err {
		log.Criticalf("flood initialise error: %s", err)
		exitwithstatus.Message("%s: flood initialise error: %s", program, err)
	}
	defer flood.Finalise()

	log.Infof("host id: %s", flood.ID().Pretty())

	// watch the configuration file for changes to the static
	// connection list
	watcherChannel := WatcherChannel{
		change: make(chan struct{}, 1),
		remove: make(chan struct{}, 1),
	}
	watcher, err := newFileWatcher(configurationFile, logger.New(FileWatcherLoggerPrefix), watcherChannel)
	if nil != err {
		log.Criticalf("file watcher setup failed with error: %s", err)
		exitwithstatus.Message("%s: file watcher setup failed with error: %s", program, err)
	}
	if err := watcher.Start(); nil != err {
		log.Criticalf("file watcher start failed with error: %s", err)
		exitwithstatus.Message("%s: file watcher start failed with error: %s", program, err)
	}

	// local delivery consumer
	// the queue must always be drained or the dispatcher stalls
	deliveredLog := logger.New("delivered")
	go func() {
		for item := range messagebus.Bus.Delivered.Chan() {
			payload := []byte{}
			if len(item.Parameters) > 0 {
				payload = item.Parameters[0]
			}
			deliveredLog.Infof("from: %s  payload: %d bytes", item.Command, len(payload))
		}
	}()

	// all data structures ready, accept traffic
	mode.Set(mode.Normal)

	// wait for CTRL-C before shutting down to allow manual testing
	if 0 == len(options["quiet"]) {
		fmt.Printf("\n\nWaiting for CTRL-C (SIGINT) or 'kill <pid>' (SIGTERM)…")
	}

	// turn Signals into channel messages
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

loop:
	for {
		select {
		case sig := <-ch:
			log.Infof("received signal: %v", sig)
			if 0 == len(options["quiet"]) {
				fmt.Printf("\nreceived signal: %v\n", sig)
				fmt.Printf("\nshutting down...\n")
			}
			break loop

		case <-watcherChannel.remove:
			log.Warn("configuration file removed, keeping current settings")

		case <-watcherChannel.change:
			log.Info("reloading configuration…")
			newConfiguration, err := getConfiguration(configurationFile)
			if nil != err {
				log.Errorf("reload failed, keeping current settings  error: %s", err)
				continue loop
			}
			if err := flood.Reconnect(newConfiguration.Flooding.Connect); nil != err {
				log.Errorf("reconnect failed, keeping current settings  error: %s", err)
				continue loop
			}
			log.Infof("static connections updated: %d entries", len(newConfiguration.Flooding.Connect))
		}
	}
}
