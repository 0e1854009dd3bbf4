// Package auth authenticates lookup API callers with HMAC-signed API keys.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type contextKey string

const (
	tenantIDKey       = contextKey("tenant_id")
	tenantRecorderKey = contextKey("tenant_recorder")
)

// APIKeyHeader is the metadata key carrying the API key.
const APIKeyHeader = "x-api-key"

// lastUsedThrottle limits last_used_at writes for busy keys.
const lastUsedThrottle = time.Minute

// Queries is the subset of *db.Queries used for key verification.
type Queries interface {
	Get(ctx context.Context, name string, dest any, args ...any) error
	Exec(ctx context.Context, name string, args ...any) (sql.Result, error)
}

// Authenticator verifies API keys against stored HMAC digests.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries

	// publicPrefixes lists method prefixes served without a key.
	publicPrefixes []string
}

// NewAuthenticator creates an authenticator over the configured secrets.
// The health service stays reachable without a key.
func NewAuthenticator(secrets map[string][]byte, queries Queries) *Authenticator {
	return &Authenticator{
		secrets:        secrets,
		queries:        queries,
		publicPrefixes: []string{"/grpc.health.v1.Health/"},
	}
}

// Authenticate returns the tenant owning apiKey.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (string, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	var row struct {
		APIKeyID   string       `db:"api_key_id"`
		TenantID   string       `db:"tenant_id"`
		LastUsedAt sql.NullTime `db:"last_used_at"`
		RevokedAt  sql.NullTime `db:"revoked_at"`
	}

	// key_hash is unique, so a match identifies exactly one key.
	err = a.queries.Get(ctx, "get-api-key-by-hash", &row, ComputeHMAC(secret, apiKey))
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if row.RevokedAt.Valid {
		return "", ErrKeyRevoked
	}

	if !row.LastUsedAt.Valid || time.Since(row.LastUsedAt.Time) > lastUsedThrottle {
		_, _ = a.queries.Exec(ctx, "update-last-used", time.Now().UTC(), row.APIKeyID)
	}

	return row.TenantID, nil
}

// UnaryInterceptor authenticates each call and stores the tenant in the context.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		for _, prefix := range a.publicPrefixes {
			if strings.HasPrefix(info.FullMethod, prefix) {
				return handler(ctx, req)
			}
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		apiKeys := md.Get(APIKeyHeader)
		if len(apiKeys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		tenantID, err := a.Authenticate(ctx, apiKeys[0])
		switch {
		case err == nil:
		case errors.Is(err, ErrKeyRevoked):
			return nil, status.Error(codes.PermissionDenied, err.Error())
		case errors.Is(err, ErrDatabase):
			return nil, status.Error(codes.Unavailable, err.Error())
		default:
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		if dst, ok := ctx.Value(tenantRecorderKey).(*string); ok {
			*dst = tenantID
		}
		return handler(WithTenantID(ctx, tenantID), req)
	}
}

// WithTenantID returns a context carrying tenantID.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// WithTenantRecorder returns a context in which successful authentication
// also writes the tenant to *dst. Outer interceptors use it to see the
// tenant after the handler returns.
func WithTenantRecorder(ctx context.Context, dst *string) context.Context {
	return context.WithValue(ctx, tenantRecorderKey, dst)
}

// TenantIDFromContext returns the authenticated tenant, or "" if none.
func TenantIDFromContext(ctx context.Context) string {
	if tenantID, ok := ctx.Value(tenantIDKey).(string); ok {
		return tenantID
	}
	return ""
}
