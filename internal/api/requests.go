// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package api

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/cinerieus/tierdrop/internal/zt"
)

// validate is the shared validator instance; validator instances cache
// struct metadata, so one per package is the intended usage.
var validate = validator.New()

// CreateNetworkRequest is the body for POST /networks. Only the name is
// taken from the caller; everything else starts from controller
// defaults and is changed with a follow-up update.
type CreateNetworkRequest struct {
	Name string `json:"name" validate:"required,min=1,max=127"`
}

// UpdateNetworkRequest is the body for POST /networks/{nwid}. All
// fields are optional; absent fields are left untouched on the
// controller (the update is a JSON merge on its side).
type UpdateNetworkRequest struct {
	Name            *string `json:"name,omitempty" validate:"omitempty,min=1,max=127"`
	Private         *bool   `json:"private,omitempty"`
	EnableBroadcast *bool   `json:"enableBroadcast,omitempty"`
	MulticastLimit  *uint32 `json:"multicastLimit,omitempty"`
	MTU             *uint32 `json:"mtu,omitempty" validate:"omitempty,min=1280,max=10000"`

	V4AssignMode *zt.V4AssignMode `json:"v4AssignMode,omitempty"`
	V6AssignMode *zt.V6AssignMode `json:"v6AssignMode,omitempty"`

	Routes            []zt.Route            `json:"routes,omitempty" validate:"omitempty,dive"`
	IPAssignmentPools []zt.IPAssignmentPool `json:"ipAssignmentPools,omitempty" validate:"omitempty,dive"`
	DNS               *zt.DNSConfig         `json:"dns,omitempty"`
}

// AddMemberRequest is the body for POST /networks/{nwid}/members. The
// new member is pre-authorized by writing its record before the device
// ever knocks.
type AddMemberRequest struct {
	Address string `json:"address" validate:"required,len=10,hexadecimal"`
}

// UpdateMemberRequest is the body for POST /networks/{nwid}/members/{id}.
// All fields optional, merge semantics as with networks.
type UpdateMemberRequest struct {
	Authorized    *bool    `json:"authorized,omitempty"`
	ActiveBridge  *bool    `json:"activeBridge,omitempty"`
	IPAssignments []string `json:"ipAssignments,omitempty" validate:"omitempty,dive,ip|cidr"`
}

// fieldError is one validation failure in an error response.
type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// validateRequest runs validator tags and flattens failures into
// response-ready details. Returns nil details on success.
func validateRequest(req interface{}) []fieldError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []fieldError{{Field: "", Rule: err.Error()}}
	}

	details := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return details
}

// validNetworkID reports whether s looks like a 16-hex-digit network id.
func validNetworkID(s string) bool {
	return validHex(s, 16)
}

// validMemberID reports whether s looks like a 10-hex-digit node address.
func validMemberID(s string) bool {
	return validHex(s, 10)
}

func validHex(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
