// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package zt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
)

func newTestNode(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "testtoken")
}

func TestClientStatus(t *testing.T) {
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-ZT1-Auth"); got != "testtoken" {
			t.Errorf("expected auth header, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(NodeStatus{
			Address: "abcdef0123",
			Online:  true,
			Version: "1.14.2",
		})
	})

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Address != "abcdef0123" || !status.Online {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestClientStatusErrorStatuses(t *testing.T) {
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	if _, err := client.Status(context.Background()); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestClientNetworkIDs(t *testing.T) {
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/controller/network" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]string{"8056c2e21c000001", "8056c2e21c000002"})
	})

	ids, err := client.NetworkIDs(context.Background())
	if err != nil {
		t.Fatalf("NetworkIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "8056c2e21c000001" {
		t.Errorf("unexpected ids %v", ids)
	}
}

func TestClientCreateNetwork(t *testing.T) {
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/controller/network/abcdef0123______" {
			t.Errorf("unexpected create path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(ControllerNetwork{Nwid: "abcdef012300cafe"})
	})

	network, err := client.CreateNetwork(context.Background(), "abcdef0123")
	if err != nil {
		t.Fatalf("CreateNetwork() error = %v", err)
	}
	if network.Nwid != "abcdef012300cafe" {
		t.Errorf("unexpected nwid %q", network.Nwid)
	}
}

func TestClientUpdateNetwork(t *testing.T) {
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			t.Fatalf("failed to decode patch: %v", err)
		}
		if patch["name"] != "renamed" {
			t.Errorf("expected name patch, got %v", patch)
		}
		_ = json.NewEncoder(w).Encode(ControllerNetwork{Nwid: "8056c2e21c000001", Name: "renamed"})
	})

	network, err := client.UpdateNetwork(context.Background(), "8056c2e21c000001", map[string]any{"name": "renamed"})
	if err != nil {
		t.Fatalf("UpdateNetwork() error = %v", err)
	}
	if network.Name != "renamed" {
		t.Errorf("unexpected name %q", network.Name)
	}
}

func TestClientMemberIDs(t *testing.T) {
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/controller/network/8056c2e21c000001/member" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]int64{"0123456789": 3, "aaaaaaaaaa": 1})
	})

	ids, err := client.MemberIDs(context.Background(), "8056c2e21c000001")
	if err != nil {
		t.Fatalf("MemberIDs() error = %v", err)
	}
	if len(ids) != 2 || ids["0123456789"] != 3 {
		t.Errorf("unexpected member ids %v", ids)
	}
}

func TestClientDeleteMember(t *testing.T) {
	var deleted bool
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete && r.URL.Path == "/controller/network/8056c2e21c000001/member/0123456789" {
			deleted = true
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	})

	if err := client.DeleteMember(context.Background(), "8056c2e21c000001", "0123456789"); err != nil {
		t.Fatalf("DeleteMember() error = %v", err)
	}
	if !deleted {
		t.Error("expected DELETE request to reach the node")
	}
}

func TestClientDeleteNetworkFailure(t *testing.T) {
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})

	if err := client.DeleteNetwork(context.Background(), "8056c2e21c000001"); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
