package types

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// LookupID identifies one audited API lookup.
// UUIDv7 time-ordering keeps sequential inserts clustered in B-tree pages.
type LookupID string

// APIKeyID identifies an issued API key row.
type APIKeyID string

// NewLookupID generates a UUIDv7 lookup identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewLookupID() LookupID {
	return LookupID(uuid.Must(uuid.NewV7()).String())
}

// NewAPIKeyID generates a UUIDv7 API key row identifier.
func NewAPIKeyID() APIKeyID {
	return APIKeyID(uuid.Must(uuid.NewV7()).String())
}

// NewSecretID generates an HMAC secret identifier: a UUIDv7 rendered as
// 32 lowercase hex chars without hyphens.
func NewSecretID() string {
	u := uuid.Must(uuid.NewV7())
	return hex.EncodeToString(u[:])
}
