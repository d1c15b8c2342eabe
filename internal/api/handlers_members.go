// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// NetworkMembers returns the decorated member list for one network,
// from the snapshot.
func (h *Handler) NetworkMembers(w http.ResponseWriter, r *http.Request) {
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
	rw.Success(views)
}

// AddMember pre-authorizes a device on a network by writing its member
// record before the device first knocks, then fires the trigger.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireClient(rw) {
		return
	}

	nwid := chi.URLParam(r, "nwid")
	if !validNetworkID(nwid) {
		rw.BadRequest("network id must be 16 hex characters")
		return
	}

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if details := validateRequest(&req); details != nil {
		rw.ValidationFailed("invalid member", details)
		return
	}

	member, err := h.client.UpdateMember(r.Context(), nwid, req.Address, map[string]any{"authorized": true})
	if err != nil {
		rw.UpstreamFailed(err)
		return
	}

	h.triggerSync()
	rw.Created(member)
}

// UpdateMember applies a partial update to a member record and fires
// the trigger. Absent fields are left untouched on the controller.
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireClient(rw) {
		return
	}

	nwid := chi.URLParam(r, "nwid")
	memberID := chi.URLParam(r, "memberID")
	if !validNetworkID(nwid) {
		rw.BadRequest("network id must be 16 hex characters")
		return
	}
	if !validMemberID(memberID) {
		rw.BadRequest("member id must be 10 hex characters")
		return
	}

	var req UpdateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if details := validateRequest(&req); details != nil {
		rw.ValidationFailed("invalid member update", details)
		return
	}

	patch := map[string]any{}
	if req.Authorized != nil {
		patch["authorized"] = *req.Authorized
	}
	if req.ActiveBridge != nil {
		patch["activeBridge"] = *req.ActiveBridge
	}
	if req.IPAssignments != nil {
		patch["ipAssignments"] = req.IPAssignments
	}
	if len(patch) == 0 {
		rw.BadRequest("no fields to update")
		return
	}

	member, err := h.client.UpdateMember(r.Context(), nwid, memberID, patch)
	if err != nil {
		rw.UpstreamFailed(err)
		return
	}

	h.triggerSync()
	rw.Success(member)
}

// DeleteMember removes a member record from a network and fires the
// trigger.
func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireClient(rw) {
		return
	}

	nwid := chi.URLParam(r, "nwid")
	memberID := chi.URLParam(r, "memberID")
	if !validNetworkID(nwid) {
		rw.BadRequest("network id must be 16 hex characters")
		return
	}
	if !validMemberID(memberID) {
		rw.BadRequest("member id must be 10 hex characters")
		return
	}

	if err := h.client.DeleteMember(r.Context(), nwid, memberID); err != nil {
		rw.UpstreamFailed(err)
		return
	}

	h.triggerSync()
	rw.NoContent()
}
