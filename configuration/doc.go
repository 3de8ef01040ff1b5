// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package configuration - read the configuration file
//
// a configuration file is a Lua script that leaves its result table
// on the top of the stack, the table is mapped onto a Go structure
// using the "gluamapper" struct tags
package configuration
