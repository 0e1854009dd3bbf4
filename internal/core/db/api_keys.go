package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/solatis/ukpostcode/internal/types"
)

// APIKey is an issued key. Only the HMAC of the key is stored.
type APIKey struct {
	ID         types.APIKeyID `db:"api_key_id"`
	TenantID   string         `db:"tenant_id"`
	Name       string         `db:"name"`
	SecretID   string         `db:"secret_id"`
	CreatedAt  time.Time      `db:"created_at"`
	LastUsedAt sql.NullTime   `db:"last_used_at"`
	RevokedAt  sql.NullTime   `db:"revoked_at"`
}

// APIKeyStore manages api_keys rows.
type APIKeyStore struct {
	queries *Queries
}

// NewAPIKeyStore wraps loaded queries.
func NewAPIKeyStore(queries *Queries) *APIKeyStore {
	return &APIKeyStore{queries: queries}
}

// Insert stores a new key with its HMAC.
func (s *APIKeyStore) Insert(ctx context.Context, key *APIKey, keyHash []byte) error {
	if key.ID == "" {
		key.ID = types.NewAPIKeyID()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	_, err := s.queries.Exec(ctx, "insert-api-key",
		string(key.ID), key.TenantID, key.Name, key.SecretID, keyHash, key.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert api key: %w", err)
	}
	return nil
}

// Revoke marks a key revoked. Returns sql.ErrNoRows when the key does not
// exist or is already revoked.
func (s *APIKeyStore) Revoke(ctx context.Context, id types.APIKeyID) error {
	res, err := s.queries.Exec(ctx, "revoke-api-key", time.Now().UTC(), string(id))
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByTenant returns a tenant's keys ordered by ID, which is creation order.
func (s *APIKeyStore) ListByTenant(ctx context.Context, tenantID string) ([]APIKey, error) {
	var keys []APIKey
	if err := s.queries.Select(ctx, "list-api-keys-by-tenant", &keys, tenantID); err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}
