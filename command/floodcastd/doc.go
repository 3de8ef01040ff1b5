// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// the flood daemon
//
// reads a Lua configuration file, starts the flood engine and waits
// for a signal; the configuration file is watched so the static
// connection list can be changed without a restart
package main
