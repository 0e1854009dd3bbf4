package auth

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/ukpostcode/internal/core/db"
	"github.com/solatis/ukpostcode/internal/types"
)

type fixture struct {
	secrets map[string][]byte
	queries *db.Queries
	keys    *db.APIKeyStore
	auth    *Authenticator
	issuer  *Issuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	_, err = db.MigrateUp(database)
	require.NoError(t, err)

	queries, err := db.LoadQueries(database)
	require.NoError(t, err)

	secrets := map[string][]byte{
		types.NewSecretID(): []byte(strings.Repeat("k", 32)),
	}
	keys := db.NewAPIKeyStore(queries)
	issuer, err := NewIssuer(secrets, keys)
	require.NoError(t, err)

	return &fixture{
		secrets: secrets,
		queries: queries,
		keys:    keys,
		auth:    NewAuthenticator(secrets, queries),
		issuer:  issuer,
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	apiKey, record, err := f.issuer.Issue(ctx, "acme", "ci")
	require.NoError(t, err)
	assert.Equal(t, f.issuer.SecretID(), record.SecretID)

	tenant, err := f.auth.Authenticate(ctx, apiKey)
	require.NoError(t, err)
	assert.Equal(t, "acme", tenant)

	keys, err := f.keys.ListByTenant(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.True(t, keys[0].LastUsedAt.Valid, "first use records last_used_at")

	t.Run("malformed", func(t *testing.T) {
		_, err := f.auth.Authenticate(ctx, "nope")
		assert.ErrorIs(t, err, ErrInvalidKeyFormat)
	})

	t.Run("unknown secret", func(t *testing.T) {
		other, err := GenerateAPIKey(types.NewSecretID())
		require.NoError(t, err)
		_, err = f.auth.Authenticate(ctx, other)
		assert.ErrorIs(t, err, ErrUnknownKey)
	})

	t.Run("never issued", func(t *testing.T) {
		forged, err := GenerateAPIKey(f.issuer.SecretID())
		require.NoError(t, err)
		_, err = f.auth.Authenticate(ctx, forged)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("revoked", func(t *testing.T) {
		require.NoError(t, f.keys.Revoke(ctx, record.ID))
		_, err := f.auth.Authenticate(ctx, apiKey)
		assert.ErrorIs(t, err, ErrKeyRevoked)
	})
}

type failingQueries struct{}

func (failingQueries) Get(context.Context, string, any, ...any) error {
	return errors.New("connection refused")
}

func (failingQueries) Exec(context.Context, string, ...any) (sql.Result, error) {
	return nil, errors.New("connection refused")
}

func TestAuthenticate_DatabaseError(t *testing.T) {
	secrets := map[string][]byte{testSecretID: []byte(strings.Repeat("k", 32))}
	a := NewAuthenticator(secrets, failingQueries{})

	key, err := GenerateAPIKey(testSecretID)
	require.NoError(t, err)

	_, err = a.Authenticate(context.Background(), key)
	assert.ErrorIs(t, err, ErrDatabase)
}

func TestUnaryInterceptor(t *testing.T) {
	f := newFixture(t)
	apiKey, record, err := f.issuer.Issue(context.Background(), "acme", "")
	require.NoError(t, err)

	interceptor := f.auth.UnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/ukpostcode.v1.PostcodeService/Validate"}
	handler := func(ctx context.Context, req any) (any, error) {
		return TenantIDFromContext(ctx), nil
	}
	withKey := func(key string) context.Context {
		return metadata.NewIncomingContext(context.Background(), metadata.Pairs(APIKeyHeader, key))
	}

	got, err := interceptor(withKey(apiKey), nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, "acme", got)

	_, err = interceptor(context.Background(), nil, info, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = interceptor(metadata.NewIncomingContext(context.Background(), metadata.MD{}), nil, info, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = interceptor(withKey("pc-v1-garbage"), nil, info, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	health := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	got, err = interceptor(context.Background(), nil, health, handler)
	require.NoError(t, err)
	assert.Equal(t, "", got, "health checks carry no tenant")

	require.NoError(t, f.keys.Revoke(context.Background(), record.ID))
	_, err = interceptor(withKey(apiKey), nil, info, handler)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestUnaryInterceptor_DatabaseUnavailable(t *testing.T) {
	secrets := map[string][]byte{testSecretID: []byte(strings.Repeat("k", 32))}
	a := NewAuthenticator(secrets, failingQueries{})
	key, err := GenerateAPIKey(testSecretID)
	require.NoError(t, err)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(APIKeyHeader, key))
	_, err = a.UnaryInterceptor()(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/x/y"}, func(context.Context, any) (any, error) {
		t.Fatal("handler must not run")
		return nil, nil
	})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestNewIssuer(t *testing.T) {
	_, err := NewIssuer(nil, nil)
	assert.ErrorIs(t, err, ErrNoSecrets)

	older := "0190000000007000800000000000000a"
	newer := "0199000000007000800000000000000a"
	issuer, err := NewIssuer(map[string][]byte{older: []byte("a"), newer: []byte("b")}, nil)
	require.NoError(t, err)
	assert.Equal(t, newer, issuer.SecretID())

	_, _, err = issuer.Issue(context.Background(), "", "x")
	assert.Error(t, err)
}

func TestTenantIDFromContext(t *testing.T) {
	assert.Equal(t, "", TenantIDFromContext(context.Background()))
	assert.Equal(t, "acme", TenantIDFromContext(WithTenantID(context.Background(), "acme")))
}

func TestWithTenantRecorder(t *testing.T) {
	f := newFixture(t)
	apiKey, _, err := f.issuer.Issue(context.Background(), "acme", "")
	require.NoError(t, err)

	var recorded string
	ctx := WithTenantRecorder(context.Background(), &recorded)
	ctx = metadata.NewIncomingContext(ctx, metadata.Pairs(APIKeyHeader, apiKey))

	_, err = f.auth.UnaryInterceptor()(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/x/y"}, func(context.Context, any) (any, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "acme", recorded)
}
