// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	peerlib "github.com/libp2p/go-libp2p-core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/bitmark-inc/floodcastd/fault"
)

// IDEqual - check if 2 peer id are equal
func IDEqual(ida, idb peerlib.ID) bool {
	return ida.String() == idb.String()
}

// ParseHostPort - parse host:port, return version(ip4/ip6), ip, port, error
func ParseHostPort(hostPort string) (string, string, string, error) {
	host, port, err := net.SplitHostPort(hostPort)
	if nil != err {
		return "", "", "", err
	}
	ip := strings.Trim(host, " ")
	numericPort, err := strconv.Atoi(strings.Trim(port, " "))
	if nil != err {
		return "", "", "", err
	}
	if numericPort < 1 || numericPort > 65535 {
		return "", "", "", fault.InvalidPortNumber
	}
	netIP := net.ParseIP(ip)
	if nil == netIP {
		return "", "", "", fault.NoAddress
	}
	var ver string
	if nil != netIP.To4() {
		ver = "ip4"
	} else {
		ver = "ip6"
	}
	return ver, ip, strconv.Itoa(numericPort), nil
}

// IPPortToMultiAddr - generate multiaddrs from an array of host:port strings
// entries that do not parse are skipped
func IPPortToMultiAddr(addrsStr []string) []ma.Multiaddr {
	var maAddrs []ma.Multiaddr
loop:
	for _, ipPort := range addrsStr {
		ver, ip, port, err := ParseHostPort(ipPort)
		if err != nil {
			continue loop
		}
		addr, err := ma.NewMultiaddr(fmt.Sprintf("/%s/%s/tcp/%s", ver, ip, port))
		if err != nil {
			continue loop
		}
		maAddrs = append(maAddrs, addr)
	}
	return maAddrs
}

// DualStackAddrToIPV4IPV6 - expand dual stack address "*:port" into
// 0.0.0.0:port and [::]:port, merging duplicates
func DualStackAddrToIPV4IPV6(ipPorts []string) []string {
	uniqIPs := make(map[string]bool)
	for _, ipPort := range ipPorts {
		sep := strings.Split(ipPort, ":")
		if len(sep) == 2 && "*" == sep[0] {
			uniqIPs["0.0.0.0:"+sep[1]] = true
			uniqIPs["[::]:"+sep[1]] = true
		} else {
			uniqIPs[ipPort] = true
		}
	}
	out := make([]string, 0, len(uniqIPs))
	for key := range uniqIPs {
		out = append(out, key)
	}
	return out
}

// MaAddrToAddrInfo - convert multiaddr to peer.AddrInfo, must include ID
func MaAddrToAddrInfo(maAddr ma.Multiaddr) (*peerlib.AddrInfo, error) {
	info, err := peerlib.AddrInfoFromP2pAddr(maAddr)
	if err != nil {
		return nil, err
	}
	if nil == info {
		return nil, fault.AddrInfoIsNil
	}
	return info, nil
}

// PrintMaAddrs - concatenate multiaddrs into one printable string
func PrintMaAddrs(addrs []ma.Multiaddr) string {
	var sb strings.Builder
	for i, a := range addrs {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(a.String())
	}
	return sb.String()
}
