// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/cinerieus/tierdrop/internal/zt"
)

// NetworkSummary is one row of the network list.
type NetworkSummary struct {
	zt.ControllerNetwork
	MemberCount     int `json:"member_count"`
	AuthorizedCount int `json:"authorized_count"`
}

// NetworkDetail is the full view of one network.
type NetworkDetail struct {
	Network zt.ControllerNetwork `json:"network"`
	Members []MemberView         `json:"members"`
}

// MemberView decorates a member record with the derived fields the
// dashboard renders.
type MemberView struct {
	zt.ControllerMember
	Version string `json:"version"`
	RFC4193 string `json:"rfc4193_address,omitempty"`
	SixPlane string `json:"sixplane_address,omitempty"`
}

// memberView builds the decorated view. Derived v6 addresses are only
// included when the network has that assignment mode enabled.
func memberView(network *zt.ControllerNetwork, member zt.ControllerMember) MemberView {
	view := MemberView{
		ControllerMember: member,
		Version:          member.VersionString(),
	}
	nwid := ""
	if network != nil {
		nwid = network.DisplayID()
	}
	if network != nil && network.V6AssignMode.RFC4193 {
		if addr, ok := zt.RFC4193Address(nwid, member.DisplayID()); ok {
			view.RFC4193 = addr
		}
	}
	if network != nil && network.V6AssignMode.SixPlane {
		if addr, ok := zt.SixPlaneAddress(nwid, member.DisplayID()); ok {
			view.SixPlane = addr
		}
	}
	return view
}

// Networks returns the snapshot's network list with member counts.
func (h *Handler) Networks(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	snap := h.store.Current()

	summaries := make([]NetworkSummary, 0, len(snap.Networks))
	for _, network := range snap.Networks {
		members := snap.Members[network.DisplayID()]
		authorized := 0
		for i := range members {
			if members[i].Authorized {
				authorized++
			}
		}
		summaries = append(summaries, NetworkSummary{
			ControllerNetwork: network,
			MemberCount:       len(members),
			AuthorizedCount:   authorized,
		})
	}
	rw.Success(summaries)
}

// NetworkByID returns one network with its decorated member list, from
// the snapshot. 404 when the network is not in the current network
// list, even if stale member data lingers in the member map.
func (h *Handler) NetworkByID(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	nwid := chi.URLParam(r, "nwid")
	if !validNetworkID(nwid) {
		rw.BadRequest("network id must be 16 hex characters")
		return
	}

	snap := h.store.Current()
	network := snap.Network(nwid)
	if network == nil {
		rw.NotFound("network not found")
		return
	}

	members := snap.Members[nwid]
	views := make([]MemberView, 0, len(members))
	for _, member := range members {
		views = append(views, memberView(network, member))
	}
	rw.Success(NetworkDetail{Network: *network, Members: views})
}

// CreateNetwork creates a network on the controller and fires the
// trigger. The node's own address prefixes the generated network id,
// so the node status must have been polled at least once.
func (h *Handler) CreateNetwork(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireClient(rw) {
		return
	}

	var req CreateNetworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if details := validateRequest(&req); details != nil {
		rw.ValidationFailed("invalid network", details)
		return
	}

	snap := h.store.Current()
	if snap.Status == nil || snap.Status.Address == "" {
		rw.ServiceUnavailable("node address not known yet")
		return
	}

	created, err := h.client.CreateNetwork(r.Context(), snap.Status.Address)
	if err != nil {
		rw.UpstreamFailed(err)
		return
	}

	// The controller mints the network with defaults; the chosen name is
	// applied with a follow-up update.
	named, err := h.client.UpdateNetwork(r.Context(), created.DisplayID(), map[string]any{"name": req.Name})
	if err != nil {
		rw.UpstreamFailed(err)
		return
	}

	h.triggerSync()
	rw.Created(named)
}

// UpdateNetwork applies a partial update to a network and fires the
// trigger. Only fields present in the body are sent to the controller.
func (h *Handler) UpdateNetwork(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireClient(rw) {
		return
	}

	nwid := chi.URLParam(r, "nwid")
	if !validNetworkID(nwid) {
		rw.BadRequest("network id must be 16 hex characters")
		return
	}

	var req UpdateNetworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if details := validateRequest(&req); details != nil {
		rw.ValidationFailed("invalid network update", details)
		return
	}

	// Only fields present in the request go into the patch; the
	// controller merges and keeps everything else.
	patch := map[string]any{}
	if req.Name != nil {
		patch["name"] = *req.Name
	}
	if req.Private != nil {
		patch["private"] = *req.Private
	}
	if req.EnableBroadcast != nil {
		patch["enableBroadcast"] = *req.EnableBroadcast
	}
	if req.MulticastLimit != nil {
		patch["multicastLimit"] = *req.MulticastLimit
	}
	if req.MTU != nil {
		patch["mtu"] = *req.MTU
	}
	if req.V4AssignMode != nil {
		patch["v4AssignMode"] = *req.V4AssignMode
	}
	if req.V6AssignMode != nil {
		patch["v6AssignMode"] = *req.V6AssignMode
	}
	if req.Routes != nil {
		patch["routes"] = req.Routes
	}
	if req.IPAssignmentPools != nil {
		patch["ipAssignmentPools"] = req.IPAssignmentPools
	}
	if req.DNS != nil {
		patch["dns"] = *req.DNS
	}

	updated, err := h.client.UpdateNetwork(r.Context(), nwid, patch)
	if err != nil {
		rw.UpstreamFailed(err)
		return
	}

	h.triggerSync()
	rw.Success(updated)
}

// DeleteNetwork removes a network from the controller and fires the
// trigger.
func (h *Handler) DeleteNetwork(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireClient(rw) {
		return
	}

	nwid := chi.URLParam(r, "nwid")
	if !validNetworkID(nwid) {
		rw.BadRequest("network id must be 16 hex characters")
		return
	}

	if err := h.client.DeleteNetwork(r.Context(), nwid); err != nil {
		rw.UpstreamFailed(err)
		return
	}

	h.triggerSync()
	rw.NoContent()
}
