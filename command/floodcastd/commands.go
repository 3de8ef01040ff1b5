// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io/ioutil"
	"path/filepath"

	"github.com/bitmark-inc/exitwithstatus"
	peerlib "github.com/libp2p/go-libp2p-core/peer"

	"github.com/bitmark-inc/floodcastd/util"
)

const (
	peerKeyFilename = "floodcastd.key"
)

// setup command handler
//
// commands that run to create the identity key file, these commands
// cannot access any internal state or the configuration file
func processSetupCommand(program string, arguments []string) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
		arguments = arguments[1:]
	}

	switch command {
	case "generate-identity", "id":
		keyFilename := getFilenameWithDirectory(arguments, peerKeyFilename)
		if util.EnsureFileExists(keyFilename) {
			fmt.Printf("key file: %q already exists\n", keyFilename)
			exitwithstatus.Exit(1)
		}

		prvKey, err := util.MakeEd25519PeerKey()
		if nil != err {
			fmt.Printf("error generating peer key: %v\n", err)
			exitwithstatus.Exit(1)
		}
		if err := ioutil.WriteFile(keyFilename, []byte(prvKey+"\n"), 0600); nil != err {
			fmt.Printf("cannot write key file: %q  error: %v\n", keyFilename, err)
			exitwithstatus.Exit(1)
		}
		fmt.Printf("generated peer key file: %q\n", keyFilename)

		decoded, err := util.DecodePrivKeyFromHex(prvKey)
		if nil != err {
			fmt.Printf("error decoding peer key: %v\n", err)
			exitwithstatus.Exit(1)
		}
		id, err := peerlib.IDFromPrivateKey(decoded)
		if nil != err {
			fmt.Printf("error deriving peer id: %v\n", err)
			exitwithstatus.Exit(1)
		}
		fmt.Printf("peer id: %s\n", id.Pretty())

	case "start", "run":
		return false // continue processing

	case "version", "v":
		fmt.Printf("%s\n", version)

	default:
		switch command {
		case "help", "h", "?":
		case "", " ":
			fmt.Printf("error: missing command\n")
		default:
			fmt.Printf("error: no such command: %v\n", command)
		}

		fmt.Printf("usage: %s [--help] [--verbose] [--quiet] --config-file=FILE [[command|help] arguments...]\n", program)

		fmt.Printf("supported commands:\n\n")
		fmt.Printf("  help                       (h)      - display this message\n\n")
		fmt.Printf("  version                    (v)      - display version string\n\n")

		fmt.Printf("  generate-identity [DIR]    (id)     - create the peer key in: %q\n", "DIR/"+peerKeyFilename)
		fmt.Printf("                                        and display the resulting peer id\n")
		fmt.Printf("\n")

		fmt.Printf("  start                      (run)    - just run the program, same as no arguments\n")
		fmt.Printf("                                        for convenience when passing script arguments\n")
		fmt.Printf("\n")

		exitwithstatus.Exit(1)
	}
	return true
}

// get the working directory; if not set in the arguments
// it's set to the current directory
func getFilenameWithDirectory(arguments []string, name string) string {
	dir := "."
	if len(arguments) >= 1 {
		dir = arguments[0]
	}

	return filepath.Join(dir, name)
}
