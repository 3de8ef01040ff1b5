// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import "github.com/bitmark-inc/logger"

// ANSI colour codes for terminal log output
const (
	CoReset = "\x1b[0m"

	CoRed     = "\x1b[31m"
	CoGreen   = "\x1b[32m"
	CoYellow  = "\x1b[33m"
	CoMagenta = "\x1b[35m"
	CoCyan    = "\x1b[36m"
	CoWhite   = "\x1b[37m"

	CoLightGray = "\x1b[90m"
	CoLightRed  = "\x1b[91m"
)

// LogDebug - print message in Debug level with assigned colour
func LogDebug(log *logger.L, colour string, message string) {
	log.Debugf("%s%s%s", colour, message, CoReset)
}

// LogInfo - print message in Info level with assigned colour
func LogInfo(log *logger.L, colour string, message string) {
	log.Infof("%s%s%s", colour, message, CoReset)
}

// LogWarn - print message in Warn level with assigned colour
func LogWarn(log *logger.L, colour string, message string) {
	log.Warnf("%s%s%s", colour, message, CoReset)
}

// LogError - print message in Error level with assigned colour
func LogError(log *logger.L, colour string, message string) {
	log.Errorf("%s%s%s", colour, message, CoReset)
}
