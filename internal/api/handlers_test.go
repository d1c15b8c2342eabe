// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	statesync "github.com/cinerieus/tierdrop/internal/sync"
	"github.com/cinerieus/tierdrop/internal/zt"
)

// stubClient records mutation calls; reads are unused because handlers
// answer reads from the snapshot.
type stubClient struct {
	createdFor   string
	networkPatch map[string]any
	memberPatch  map[string]any
	deletedNet   string
	deletedMem   string
	fail         error
}

func (s *stubClient) Status(ctx context.Context) (*zt.NodeStatus, error) {
	return nil, errors.New("not used")
}

func (s *stubClient) NetworkIDs(ctx context.Context) ([]string, error) {
	return nil, errors.New("not used")
}

func (s *stubClient) Network(ctx context.Context, nwid string) (*zt.ControllerNetwork, error) {
	return nil, errors.New("not used")
}

func (s *stubClient) CreateNetwork(ctx context.Context, nodeAddress string) (*zt.ControllerNetwork, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	s.createdFor = nodeAddress
	return &zt.ControllerNetwork{Nwid: nodeAddress + "000001"}, nil
}

func (s *stubClient) UpdateNetwork(ctx context.Context, nwid string, patch any) (*zt.ControllerNetwork, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	s.networkPatch, _ = patch.(map[string]any)
	network := &zt.ControllerNetwork{Nwid: nwid}
	if name, ok := s.networkPatch["name"].(string); ok {
		network.Name = name
	}
	return network, nil
}

func (s *stubClient) DeleteNetwork(ctx context.Context, nwid string) error {
	if s.fail != nil {
		return s.fail
	}
	s.deletedNet = nwid
	return nil
}

func (s *stubClient) MemberIDs(ctx context.Context, nwid string) (map[string]int64, error) {
	return nil, errors.New("not used")
}

func (s *stubClient) Member(ctx context.Context, nwid, memberID string) (*zt.ControllerMember, error) {
	return nil, errors.New("not used")
}

func (s *stubClient) UpdateMember(ctx context.Context, nwid, memberID string, patch any) (*zt.ControllerMember, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	s.memberPatch, _ = patch.(map[string]any)
	return &zt.ControllerMember{Address: memberID, Nwid: nwid}, nil
}

func (s *stubClient) DeleteMember(ctx context.Context, nwid, memberID string) error {
	if s.fail != nil {
		return s.fail
	}
	s.deletedMem = nwid + "/" + memberID
	return nil
}

var _ zt.ClientInterface = (*stubClient)(nil)

// countingTrigger counts TriggerNow calls.
type countingTrigger struct {
	count atomic.Int64
}

func (c *countingTrigger) TriggerNow() { c.count.Add(1) }

type testEnv struct {
	store   *statesync.Store
	bus     *statesync.Bus
	client  *stubClient
	trigger *countingTrigger
	server  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   statesync.NewStore(),
		bus:     statesync.NewBus(),
		client:  &stubClient{},
		trigger: &countingTrigger{},
	}
	handler := NewHandler(env.store, env.bus, env.client, env.trigger, nil, "test")
	router := NewRouter(handler, &MiddlewareConfig{RateLimitDisabled: true})
	env.server = httptest.NewServer(router.Setup())
	t.Cleanup(env.server.Close)
	return env
}

func (env *testEnv) seedSnapshot() {
	private := true
	env.store.Replace(&statesync.Snapshot{
		Status: &zt.NodeStatus{Address: "abcdef0123", Online: true, Version: "1.14.2"},
		Networks: []zt.ControllerNetwork{
			{
				Nwid:         "8056c2e21c000001",
				Name:         "lan",
				Private:      &private,
				V6AssignMode: zt.V6AssignMode{RFC4193: true, SixPlane: true},
			},
		},
		Members: map[string][]zt.ControllerMember{
			"8056c2e21c000001": {
				{Address: "0123456789", Nwid: "8056c2e21c000001", Authorized: true, VMajor: 1, VMinor: 14, VRev: 2},
				{Address: "9876543210", Nwid: "8056c2e21c000001", Authorized: false, VMajor: -1, VMinor: -1, VRev: -1},
			},
		},
		LastUpdated: time.Now(),
	})
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, APIResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var envelope APIResponse
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
	}
	return resp, envelope
}

func reencode(t *testing.T, data, out any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("re-unmarshal data: %v", err)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	// No cycle yet: degraded.
	resp, envelope := doJSON(t, http.MethodGet, env.server.URL+"/api/v1/health", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 before first cycle", resp.StatusCode)
	}
	var health HealthResponse
	reencode(t, envelope.Data, &health)
	if health.Status != "degraded" || health.ZTConnected {
		t.Errorf("health = %+v, want degraded/disconnected", health)
	}

	env.seedSnapshot()
	resp, envelope = doJSON(t, http.MethodGet, env.server.URL+"/api/v1/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 with snapshot", resp.StatusCode)
	}
	reencode(t, envelope.Data, &health)
	if health.Status != "healthy" || !health.ZTConnected || health.Version != "test" {
		t.Errorf("health = %+v, want healthy/connected/test", health)
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	env.seedSnapshot()

	resp, envelope := doJSON(t, http.MethodGet, env.server.URL+"/api/v1/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var status StatusResponse
	reencode(t, envelope.Data, &status)
	if status.Status == nil || status.Status.Address != "abcdef0123" {
		t.Errorf("node status = %+v", status.Status)
	}
	if status.LastUpdated.IsZero() {
		t.Error("last_updated missing")
	}
}

func TestNetworksList(t *testing.T) {
	env := newTestEnv(t)
	env.seedSnapshot()

	resp, envelope := doJSON(t, http.MethodGet, env.server.URL+"/api/v1/networks", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var networks []NetworkSummary
	reencode(t, envelope.Data, &networks)
	if len(networks) != 1 {
		t.Fatalf("got %d networks, want 1", len(networks))
	}
	if networks[0].MemberCount != 2 || networks[0].AuthorizedCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", networks[0].MemberCount, networks[0].AuthorizedCount)
	}
}

func TestNetworkByID(t *testing.T) {
	env := newTestEnv(t)
	env.seedSnapshot()

	resp, envelope := doJSON(t, http.MethodGet, env.server.URL+"/api/v1/networks/8056c2e21c000001", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var detail NetworkDetail
	reencode(t, envelope.Data, &detail)
	if detail.Network.Name != "lan" {
		t.Errorf("network name = %q", detail.Network.Name)
	}
	if len(detail.Members) != 2 {
		t.Fatalf("got %d members, want 2", len(detail.Members))
	}

	// Both v6 modes are on, so derived addresses are present.
	first := detail.Members[0]
	if first.RFC4193 != "fd80:56c2:e21c:0000:0199:9301:2345:6789" {
		t.Errorf("rfc4193 = %q", first.RFC4193)
	}
	if first.SixPlane != "fc9c:56c2:e301:2345:6789:0000:0000:0001" {
		t.Errorf("sixplane = %q", first.SixPlane)
	}
	if first.Version != "1.14.2" {
		t.Errorf("version = %q", first.Version)
	}
	if detail.Members[1].Version != "-" {
		t.Errorf("unseen member version = %q, want -", detail.Members[1].Version)
	}
}

func TestNetworkByIDNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.seedSnapshot()

	resp, envelope := doJSON(t, http.MethodGet, env.server.URL+"/api/v1/networks/ffffffffffffffff", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeNotFound {
		t.Errorf("error envelope = %+v", envelope.Error)
	}
}

func TestNetworkByIDInvalidID(t *testing.T) {
	env := newTestEnv(t)
	env.seedSnapshot()

	resp, _ := doJSON(t, http.MethodGet, env.server.URL+"/api/v1/networks/nothex", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateNetwork(t *testing.T) {
	env := newTestEnv(t)
	env.seedSnapshot()

	resp, envelope := doJSON(t, http.MethodPost, env.server.URL+"/api/v1/networks",
		map[string]string{"name": "new-lan"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%+v)", resp.StatusCode, envelope.Error)
	}
	if env.client.createdFor != "abcdef0123" {
		t.Errorf("created for node %q, want abcdef0123", env.client.createdFor)
	}
	if env.client.networkPatch["name"] != "new-lan" {
		t.Errorf("name patch = %v", env.client.networkPatch)
	}
	if env.trigger.count.Load() != 1 {
		t.Errorf("trigger fired %d times, want 1", env.trigger.count.Load())
	}
}

func TestCreateNetworkValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedSnapshot()

	resp, envelope := doJSON(t, http.MethodPost, env.server.URL+"/api/v1/networks",
		map[string]string{"name": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeValidationFailed {
		t.Errorf("error = %+v, want validation failure", envelope.Error)
	}
	if env.trigger.count.Load() != 0 {
		t.Error("trigger fired on rejected request")
	}
}

func TestCreateNetworkWithoutNodeAddress(t *testing.T) {
	env := newTestEnv(t)
	// No snapshot: node address unknown.

	resp, _ := doJSON(t, http.MethodPost, env.server.URL+"/api/v1/networks",
		map[string]string{"name": "lan"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestUpdateNetworkPartialPatch(t *testing.T) {
	env := newTestEnv(t)
	env.seedSnapshot()

	resp, _ := doJSON(t, http.MethodPost, env.server.URL+"/api/v1/networks/8056c2e21c000001",
		map[string]any{"name": "renamed", "private": false})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	patch := env.client.networkPatch
	if patch["name"] != "renamed" {
		t.Errorf("patch name = %v", patch["name"])
	}
	if patch["private"] != false {
		t.Errorf("patch private = %v", patch["private"])
	}
	// Absent fields must not be in the patch.
	for _, key := range []string{"enableBroadcast", "routes", "mtu", "dns"} {
		if _, present := patch[key]; present {
			t.Errorf("patch contains %s, which was not in the request", key)
		}
	}
	if env.trigger.count.Load() != 1 {
		t.Errorf("trigger fired %d times, want 1", env.trigger.count.Load())
	}
}

func TestDeleteNetwork(t *testing.T) {
	env := newTestEnv(t)
	env.seedSnapshot()

	resp, _ := doJSON(t, http.MethodDelete, env.server.URL+"/api/v1/networks/8056c2e21c000001", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if env.client.deletedNet != "8056c2e21c000001" {
		t.Errorf("deleted %q", env.client.deletedNet)
	}
	if env.trigger.count.Load() != 1 {
		t.Error("trigger not fired after delete")
	}
}

func TestMembersList(t *testing.T) {
	env := newTestEnv(t)
	env.seedSnapshot()

	resp, envelope := doJSON(t, http.MethodGet, env.server.URL+"/api/v1/networks/8056c2e21c000001/members", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var members []MemberView
	reencode(t, envelope.Data, &members)
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
}

func TestAddMemberPreAuthorizes(t *testing.T) {
	env := newTestEnv(t)
	env.seedSnapshot()

	resp, _ := doJSON(t, http.MethodPost, env.server.URL+"/api/v1/networks/8056c2e21c000001/members",
		map[string]string{"address": "aabbccddee"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if env.client.memberPatch["authorized"] != true {
		t.Errorf("member patch = %v, want authorized true", env.client.memberPatch)
	}
	if env.trigger.count.Load() != 1 {
		t.Error("trigger not fired")
	}
}

func TestUpdateMember(t *testing.T) {
	env := newTestEnv(t)
	env.seedSnapshot()

	resp, _ := doJSON(t, http.MethodPost, env.server.URL+"/api/v1/networks/8056c2e21c000001/members/0123456789",
		map[string]any{"authorized": false})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if env.client.memberPatch["authorized"] != false {
		t.Errorf("patch = %v", env.client.memberPatch)
	}
	if _, present := env.client.memberPatch["activeBridge"]; present {
		t.Error("patch contains activeBridge, which was not requested")
	}
}

func TestUpdateMemberEmptyBody(t *testing.T) {
	env := newTestEnv(t)
	env.seedSnapshot()

	resp, _ := doJSON(t, http.MethodPost, env.server.URL+"/api/v1/networks/8056c2e21c000001/members/0123456789",
		map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for empty patch", resp.StatusCode)
	}
}

func TestDeleteMember(t *testing.T) {
	env := newTestEnv(t)
	env.seedSnapshot()

	resp, _ := doJSON(t, http.MethodDelete, env.server.URL+"/api/v1/networks/8056c2e21c000001/members/0123456789", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if env.client.deletedMem != "8056c2e21c000001/0123456789" {
		t.Errorf("deleted %q", env.client.deletedMem)
	}
}

func TestMutationsWithoutClient(t *testing.T) {
	store := statesync.NewStore()
	bus := statesync.NewBus()
	handler := NewHandler(store, bus, nil, nil, nil, "test")
	router := NewRouter(handler, &MiddlewareConfig{RateLimitDisabled: true})
	server := httptest.NewServer(router.Setup())
	defer server.Close()

	cases := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/api/v1/networks", map[string]string{"name": "lan"}},
		{http.MethodPost, "/api/v1/networks/8056c2e21c000001", map[string]any{"name": "x"}},
		{http.MethodDelete, "/api/v1/networks/8056c2e21c000001", nil},
		{http.MethodPost, "/api/v1/networks/8056c2e21c000001/members", map[string]string{"address": "aabbccddee"}},
		{http.MethodDelete, "/api/v1/networks/8056c2e21c000001/members/0123456789", nil},
	}
	for _, tc := range cases {
		resp, _ := doJSON(t, tc.method, server.URL+tc.path, tc.body)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s %s: status = %d, want 503", tc.method, tc.path, resp.StatusCode)
		}
	}

	// Reads still work.
	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/v1/networks", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /networks without client: status = %d, want 200", resp.StatusCode)
	}
}

func TestUpstreamFailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t)
	env.seedSnapshot()
	env.client.fail = errors.New("connection refused")

	resp, envelope := doJSON(t, http.MethodDelete, env.server.URL+"/api/v1/networks/8056c2e21c000001", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeExternalServiceFail {
		t.Errorf("error = %+v", envelope.Error)
	}
	if env.trigger.count.Load() != 0 {
		t.Error("trigger fired after failed mutation")
	}
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := doJSON(t, http.MethodGet, env.server.URL+"/api/v1/status", nil)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}
