// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package zt

import (
	"encoding/hex"
	"strings"
)

const (
	nwidHexLen = 16
	nodeHexLen = 10
)

// RFC4193Address derives a member's RFC4193 IPv6 address from the
// 16-hex-character network id and 10-hex-character node id:
// fd + nwid + 9993 + nodeID, formatted as 8 colon-separated groups.
// Returns false when either identifier has the wrong length.
func RFC4193Address(nwid, nodeID string) (string, bool) {
	if len(nwid) != nwidHexLen || len(nodeID) != nodeHexLen {
		return "", false
	}
	return groupColons("fd" + nwid + "9993" + nodeID), true
}

// SixPlaneAddress derives a member's 6PLANE IPv6 address. The network
// id is folded to 4 bytes by XORing byte i with byte i+4, then:
// fc + folded(8 hex) + nodeID + 000000000001, formatted as 8 groups.
// Returns false when either identifier has the wrong length or the
// network id is not valid hex.
func SixPlaneAddress(nwid, nodeID string) (string, bool) {
	if len(nwid) != nwidHexLen || len(nodeID) != nodeHexLen {
		return "", false
	}
	raw, err := hex.DecodeString(nwid)
	if err != nil {
		return "", false
	}
	var folded [4]byte
	for i := 0; i < 4; i++ {
		folded[i] = raw[i] ^ raw[i+4]
	}
	return groupColons("fc" + hex.EncodeToString(folded[:]) + nodeID + "000000000001"), true
}

// groupColons splits a 32-character hex string into 8 colon-separated
// groups of 4.
func groupColons(full string) string {
	var b strings.Builder
	b.Grow(len(full) + 7)
	for i := 0; i < len(full); i += 4 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(full[i : i+4])
	}
	return b.String()
}
