// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/floodcastd/util"
)

func TestPrivateKeyEncodeDecode(t *testing.T) {
	hexKey, err := util.MakeEd25519PeerKey()
	assert.NoError(t, err, "make key error")

	privKey, err := util.DecodePrivKeyFromHex(hexKey)
	assert.NoError(t, err, "decode key error")

	hexKey2, err := util.EncodePrivKeyToHex(privKey)
	assert.NoError(t, err, "encode key error")
	assert.Equal(t, hexKey, hexKey2, "key round trip mismatch")
}

func TestDecodeInvalidKey(t *testing.T) {
	_, err := util.DecodePrivKeyFromHex("not-hex-at-all")
	assert.Error(t, err, "garbage accepted as a private key")
}
