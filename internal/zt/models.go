// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

// Package zt holds the ZeroTier control API data model, the HTTP client
// for a node's local control endpoint, and the derived-address helpers.
//
// The types mirror the JSON shapes served by the node at /status and
// /controller/*. Rule, capability and tag blobs are passed through
// uninterpreted. All types compare structurally with reflect.DeepEqual,
// which the synchronization engine relies on for change detection.
package zt

import (
	"fmt"

	"github.com/goccy/go-json"
)

// NodeStatus is the local node's status as served by GET /status.
type NodeStatus struct {
	Address           string          `json:"address"`
	PublicIdentity    string          `json:"publicIdentity,omitempty"`
	Online            bool            `json:"online"`
	TCPFallbackActive bool            `json:"tcpFallbackActive,omitempty"`
	Version           string          `json:"version"`
	Clock             int64           `json:"clock,omitempty"`
	Config            json.RawMessage `json:"config,omitempty"`
}

// ControllerNetwork is one managed network as served by
// GET /controller/network/{nwid}.
type ControllerNetwork struct {
	ID              string `json:"id,omitempty"`
	Nwid            string `json:"nwid,omitempty"`
	Name            string `json:"name"`
	Private         *bool  `json:"private,omitempty"`
	EnableBroadcast bool   `json:"enableBroadcast"`

	V4AssignMode V4AssignMode `json:"v4AssignMode"`
	V6AssignMode V6AssignMode `json:"v6AssignMode"`

	MTU            uint32 `json:"mtu,omitempty"`
	MulticastLimit uint32 `json:"multicastLimit,omitempty"`
	CreationTime   int64  `json:"creationTime,omitempty"`
	Revision       uint64 `json:"revision,omitempty"`

	Routes            []Route            `json:"routes"`
	IPAssignmentPools []IPAssignmentPool `json:"ipAssignmentPools"`
	DNS               DNSConfig          `json:"dns"`

	// Flow rules and their definitions are opaque to TierDrop; the
	// controller owns their semantics.
	Rules        json.RawMessage `json:"rules,omitempty"`
	Capabilities json.RawMessage `json:"capabilities,omitempty"`
	Tags         json.RawMessage `json:"tags,omitempty"`
}

// DisplayID returns the canonical network identifier: nwid when set,
// else id, else "unknown".
func (n *ControllerNetwork) DisplayID() string {
	if n.Nwid != "" {
		return n.Nwid
	}
	if n.ID != "" {
		return n.ID
	}
	return "unknown"
}

// IsPrivate reports whether the network requires member authorization.
// Absent means private; public networks are an explicit opt-in.
func (n *ControllerNetwork) IsPrivate() bool {
	if n.Private == nil {
		return true
	}
	return *n.Private
}

// V4AssignMode configures IPv4 auto-assignment.
type V4AssignMode struct {
	ZT bool `json:"zt"`
}

// V6AssignMode configures IPv6 auto-assignment.
type V6AssignMode struct {
	SixPlane bool `json:"6plane"`
	RFC4193  bool `json:"rfc4193"`
	ZT       bool `json:"zt"`
}

// Route is one managed route entry. An empty Via means the target is
// reachable directly on the network.
type Route struct {
	Target string `json:"target"`
	Via    string `json:"via,omitempty"`
}

// IPAssignmentPool is one address range used for auto-assignment.
type IPAssignmentPool struct {
	IPRangeStart string `json:"ipRangeStart"`
	IPRangeEnd   string `json:"ipRangeEnd"`
}

// DNSConfig is the push-DNS configuration for a network.
type DNSConfig struct {
	Domain  string   `json:"domain"`
	Servers []string `json:"servers"`
}

// ControllerMember is one device's membership record as served by
// GET /controller/network/{nwid}/member/{id}.
type ControllerMember struct {
	ID            string   `json:"id,omitempty"`
	Address       string   `json:"address,omitempty"`
	Nwid          string   `json:"nwid,omitempty"`
	Authorized    bool     `json:"authorized"`
	ActiveBridge  bool     `json:"activeBridge"`
	Identity      string   `json:"identity,omitempty"`
	IPAssignments []string `json:"ipAssignments"`
	Revision      uint64   `json:"revision,omitempty"`

	VMajor int `json:"vMajor"`
	VMinor int `json:"vMinor"`
	VRev   int `json:"vRev"`
	VProto int `json:"vProto"`

	NoAutoAssignIPs bool `json:"noAutoAssignIps"`

	CreationTime         int64 `json:"creationTime,omitempty"`
	LastAuthorizedTime   int64 `json:"lastAuthorizedTime,omitempty"`
	LastDeauthorizedTime int64 `json:"lastDeauthorizedTime,omitempty"`
}

// DisplayID returns the canonical member identifier: the node address
// when set, else id, else "unknown".
func (m *ControllerMember) DisplayID() string {
	if m.Address != "" {
		return m.Address
	}
	if m.ID != "" {
		return m.ID
	}
	return "unknown"
}

// VersionString renders the client version as MAJ.MIN.REV, or "-" when
// the controller has not seen the member yet (fields are -1).
func (m *ControllerMember) VersionString() string {
	if m.VMajor < 0 || m.VMinor < 0 || m.VRev < 0 {
		return "-"
	}
	return fmt.Sprintf("%d.%d.%d", m.VMajor, m.VMinor, m.VRev)
}

// RFC4193Address computes the member's RFC4193 IPv6 address, when the
// identifiers have the expected lengths.
func (m *ControllerMember) RFC4193Address() (string, bool) {
	return RFC4193Address(m.Nwid, m.DisplayID())
}

// SixPlaneAddress computes the member's 6PLANE IPv6 address, when the
// identifiers have the expected lengths.
func (m *ControllerMember) SixPlaneAddress() (string, bool) {
	return SixPlaneAddress(m.Nwid, m.DisplayID())
}
