// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package zt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// authHeader carries the control API secret on every request.
const authHeader = "X-ZT1-Auth"

// ClientInterface defines the controller operations consumed by the
// synchronization engine and the API handlers. Every call is a single
// HTTP round trip; there is no batching.
type ClientInterface interface {
	Status(ctx context.Context) (*NodeStatus, error)
	NetworkIDs(ctx context.Context) ([]string, error)
	Network(ctx context.Context, nwid string) (*ControllerNetwork, error)
	CreateNetwork(ctx context.Context, nodeAddress string) (*ControllerNetwork, error)
	UpdateNetwork(ctx context.Context, nwid string, patch any) (*ControllerNetwork, error)
	DeleteNetwork(ctx context.Context, nwid string) error
	MemberIDs(ctx context.Context, nwid string) (map[string]int64, error)
	Member(ctx context.Context, nwid, memberID string) (*ControllerMember, error)
	UpdateMember(ctx context.Context, nwid, memberID string, patch any) (*ControllerMember, error)
	DeleteMember(ctx context.Context, nwid, memberID string) error
}

// Ensure Client implements ClientInterface.
var _ ClientInterface = (*Client)(nil)

// Client talks to a ZeroTier node's local HTTP control API. It is
// stateless per call and safe for concurrent use.
//
// The underlying http.Client deliberately carries no timeout: the
// synchronization engine never starts a new cycle while calls from the
// previous one are in flight, and a hung call must stall only its own
// cycle, never fail it.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a control API client for the node at baseURL,
// authenticating with the given secret token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Status fetches the local node's status.
func (c *Client) Status(ctx context.Context) (*NodeStatus, error) {
	var status NodeStatus
	if err := c.getJSON(ctx, "/status", &status); err != nil {
		return nil, fmt.Errorf("failed to fetch node status: %w", err)
	}
	return &status, nil
}

// NetworkIDs lists the ids of all networks this node controls. Fails
// when the node does not run the controller service.
func (c *Client) NetworkIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := c.getJSON(ctx, "/controller/network", &ids); err != nil {
		return nil, fmt.Errorf("failed to list controller networks: %w", err)
	}
	return ids, nil
}

// Network fetches one network's full body.
func (c *Client) Network(ctx context.Context, nwid string) (*ControllerNetwork, error) {
	var network ControllerNetwork
	if err := c.getJSON(ctx, "/controller/network/"+nwid, &network); err != nil {
		return nil, fmt.Errorf("failed to fetch network %s: %w", nwid, err)
	}
	return &network, nil
}

// CreateNetwork asks the controller to mint a new network id owned by
// nodeAddress. The trailing ______ placeholder is the controller's
// create contract.
func (c *Client) CreateNetwork(ctx context.Context, nodeAddress string) (*ControllerNetwork, error) {
	var network ControllerNetwork
	path := "/controller/network/" + nodeAddress + "______"
	if err := c.postJSON(ctx, path, map[string]any{}, &network); err != nil {
		return nil, fmt.Errorf("failed to create network: %w", err)
	}
	return &network, nil
}

// UpdateNetwork applies a partial update to a network and returns the
// resulting body.
func (c *Client) UpdateNetwork(ctx context.Context, nwid string, patch any) (*ControllerNetwork, error) {
	var network ControllerNetwork
	if err := c.postJSON(ctx, "/controller/network/"+nwid, patch, &network); err != nil {
		return nil, fmt.Errorf("failed to update network %s: %w", nwid, err)
	}
	return &network, nil
}

// DeleteNetwork removes a network from the controller.
func (c *Client) DeleteNetwork(ctx context.Context, nwid string) error {
	if err := c.delete(ctx, "/controller/network/"+nwid); err != nil {
		return fmt.Errorf("failed to delete network %s: %w", nwid, err)
	}
	return nil
}

// MemberIDs lists member ids for a network, mapped to their revision
// counters.
func (c *Client) MemberIDs(ctx context.Context, nwid string) (map[string]int64, error) {
	var ids map[string]int64
	if err := c.getJSON(ctx, "/controller/network/"+nwid+"/member", &ids); err != nil {
		return nil, fmt.Errorf("failed to list members of %s: %w", nwid, err)
	}
	return ids, nil
}

// Member fetches one member's full record.
func (c *Client) Member(ctx context.Context, nwid, memberID string) (*ControllerMember, error) {
	var member ControllerMember
	if err := c.getJSON(ctx, "/controller/network/"+nwid+"/member/"+memberID, &member); err != nil {
		return nil, fmt.Errorf("failed to fetch member %s/%s: %w", nwid, memberID, err)
	}
	return &member, nil
}

// UpdateMember applies a partial update to a member record and returns
// the result.
func (c *Client) UpdateMember(ctx context.Context, nwid, memberID string, patch any) (*ControllerMember, error) {
	var member ControllerMember
	if err := c.postJSON(ctx, "/controller/network/"+nwid+"/member/"+memberID, patch, &member); err != nil {
		return nil, fmt.Errorf("failed to update member %s/%s: %w", nwid, memberID, err)
	}
	return &member, nil
}

// DeleteMember removes a member record from a network.
func (c *Client) DeleteMember(ctx context.Context, nwid, memberID string) error {
	if err := c.delete(ctx, "/controller/network/"+nwid+"/member/"+memberID); err != nil {
		return fmt.Errorf("failed to delete member %s/%s: %w", nwid, memberID, err)
	}
	return nil
}

// getJSON performs a GET and decodes the response body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return decodeResponse(resp, out)
}

// postJSON performs a POST with a JSON body and decodes the response
// into out.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return decodeResponse(resp, out)
}

// delete performs a DELETE and checks only the status code.
func (c *Client) delete(ctx context.Context, path string) error {
	resp, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// do builds and sends one authenticated request.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(authHeader, c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// decodeResponse checks the status code and decodes a JSON body.
func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			return fmt.Errorf("unexpected status %d (failed to read body)", resp.StatusCode)
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
