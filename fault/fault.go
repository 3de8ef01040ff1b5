// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

// GenericError - error base
type GenericError string

// to allow for different classes of errors
type ExistsError GenericError
type InvalidError GenericError
type LengthError GenericError
type NotFoundError GenericError
type ProcessError GenericError

// common errors - keep in alphabetic order
var (
	AddrInfoIsNil      = InvalidError("addr info is nil")
	AlreadyInitialised = ProcessError("already initialised")
	ChannelAlreadyOpen = ProcessError("channel is already open")
	ChannelClosed      = ProcessError("channel is closed")
	DuplicateChannel   = ExistsError("channel already exists for peer")
	FrameTooLarge      = LengthError("frame size exceeds maximum")
	InboundAlreadySet  = ProcessError("inbound stream is already attached")
	InvalidPortNumber  = InvalidError("invalid port number")
	InvalidPrivateKey  = InvalidError("invalid private key")
	MalformedPrefix    = InvalidError("frame length prefix is malformed")
	MessageTooLarge    = LengthError("message size exceeds frame maximum")
	MissingParameters  = LengthError("missing parameters")
	NoAddress          = NotFoundError("no address")
	NoConnectAddress   = InvalidError("static connection has no address")
	NoListenAddrs      = InvalidError("no listen addresses")
	NotAvailable       = ProcessError("not available unless mode is normal")
	NotInitialised     = ProcessError("not initialised")
	ProtocolViolation  = ProcessError("protocol violation")
	RequiredConfigFile = InvalidError("configuration file is required")
)

// Error - the error interface base method
func (e GenericError) Error() string { return string(e) }

// Error - the error interface methods
func (e ExistsError) Error() string   { return string(e) }
func (e InvalidError) Error() string  { return string(e) }
func (e LengthError) Error() string   { return string(e) }
func (e NotFoundError) Error() string { return string(e) }
func (e ProcessError) Error() string  { return string(e) }

// IsErrExists - determine the class of an error
func IsErrExists(e error) bool   { _, ok := e.(ExistsError); return ok }
func IsErrInvalid(e error) bool  { _, ok := e.(InvalidError); return ok }
func IsErrLength(e error) bool   { _, ok := e.(LengthError); return ok }
func IsErrNotFound(e error) bool { _, ok := e.(NotFoundError); return ok }
func IsErrProcess(e error) bool  { _, ok := e.(ProcessError); return ok }
