package model

import (
	"encoding/json"

	"rfpdesk/api/internal/apperr"
)

type IntegrationKind string

const (
	IntegrationConnection IntegrationKind = "connection"
	IntegrationMapping    IntegrationKind = "mapping"
	IntegrationAssetLink  IntegrationKind = "asset_link"
	IntegrationCache      IntegrationKind = "cache"
)

func (k IntegrationKind) Valid() bool {
	switch k {
	case IntegrationConnection, IntegrationMapping, IntegrationAssetLink, IntegrationCache:
		return true
	}
	return false
}

// IntegrationRecord links an owner to an external design tool. Data is opaque
// provider payload.
type IntegrationRecord struct {
	OwnerKind string          `json:"ownerKind"`
	OwnerID   string          `json:"ownerId"`
	Provider  string          `json:"provider"`
	Kind      IntegrationKind `json:"kind"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data,omitempty"`
	ExpiresAt string          `json:"expiresAt,omitempty"`
	UpdatedAt string          `json:"updatedAt"`
}

func (r IntegrationRecord) Validate() error {
	if r.OwnerKind == "" || r.OwnerID == "" {
		return apperr.Validation("integration owner is required")
	}
	if r.Provider == "" || r.Name == "" {
		return apperr.Validation("integration provider and name are required")
	}
	if !r.Kind.Valid() {
		return apperr.Validation("unknown integration kind")
	}
	return nil
}

// Expired reports whether a cache record has lapsed at now.
func (r IntegrationRecord) Expired(now string) bool {
	return r.ExpiresAt != "" && r.ExpiresAt <= now
}
