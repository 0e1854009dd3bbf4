package server

import (
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/ukpostcode/internal/core/api"
	"github.com/solatis/ukpostcode/internal/core/auth"
	"github.com/solatis/ukpostcode/internal/core/config"
	"github.com/solatis/ukpostcode/internal/core/db"
	"github.com/solatis/ukpostcode/internal/core/metrics"
	"github.com/solatis/ukpostcode/internal/types"
)

type harness struct {
	conn   *grpc.ClientConn
	client *api.PostcodeServiceClient
	apiKey string
	logs   *observer.ObservedLogs
}

func (h *harness) authed() context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), auth.APIKeyHeader, h.apiKey)
}

// startServer runs the full stack over an in-memory listener.
func startServer(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	database, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	_, err = db.MigrateUp(database)
	require.NoError(t, err)
	queries, err := db.LoadQueries(database)
	require.NoError(t, err)

	secrets := map[string][]byte{types.NewSecretID(): []byte(strings.Repeat("s", 32))}
	issuer, err := auth.NewIssuer(secrets, db.NewAPIKeyStore(queries))
	require.NoError(t, err)
	apiKey, _, err := issuer.Issue(ctx, "acme", "test")
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	cfg := config.DefaultLookupAPIConfig()
	cfg.MetricsAddr = ""
	cfg.MaxBatchSize = 3
	m := metrics.New()

	svc, err := api.NewLookupService(cfg, db.NewLookupStore(queries), m, logger)
	require.NoError(t, err)
	srv, err := NewGRPCServer(cfg, svc, auth.NewAuthenticator(secrets, queries), m, logger)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, srv.Shutdown(shutdownCtx))
		assert.NoError(t, <-done)
	})

	return &harness{conn: conn, client: api.NewPostcodeServiceClient(conn), apiKey: apiKey, logs: logs}
}

func TestNewGRPCServer_NilArgs(t *testing.T) {
	cfg := config.DefaultLookupAPIConfig()
	_, err := NewGRPCServer(nil, nil, nil, nil, nil)
	assert.Error(t, err)
	_, err = NewGRPCServer(cfg, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestLookupOverGRPC(t *testing.T) {
	h := startServer(t)
	ctx := h.authed()

	valid, err := h.client.Validate(ctx, wrapperspb.String("ec1a 1bb"))
	require.NoError(t, err)
	assert.True(t, valid.GetValue())

	formatted, err := h.client.Format(ctx, wrapperspb.String("kY1 1234"))
	require.NoError(t, err)
	assert.Equal(t, "KY1-1234", formatted.GetValue())

	parsed, err := h.client.Parse(ctx, wrapperspb.String("gx111aa"))
	require.NoError(t, err)
	assert.Equal(t, "GX11 1AA", parsed.AsMap()["formatted"])
	assert.Equal(t, "special_case", parsed.AsMap()["shape"])

	_, err = h.client.Format(ctx, wrapperspb.String("12345"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	batch, err := structpb.NewList([]any{"M1 1AA", true})
	require.NoError(t, err)
	results, err := h.client.ParseBatch(ctx, batch)
	require.NoError(t, err)
	require.Len(t, results.GetValues(), 2)
	assert.Equal(t, types.ErrTypeMismatch.Error(), results.AsSlice()[1].(map[string]any)["error"])

	tooBig, err := structpb.NewList([]any{"a", "b", "c", "d"})
	require.NoError(t, err)
	_, err = h.client.ParseBatch(ctx, tooBig)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	stats, err := h.client.Stats(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	// Validate, Format, Parse, failed Format and two batch items
	assert.Equal(t, 6.0, stats.AsMap()["total"])
}

func TestLookupOverGRPC_Unauthenticated(t *testing.T) {
	h := startServer(t)

	_, err := h.client.Validate(context.Background(), wrapperspb.String("M1 1AA"))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), auth.APIKeyHeader, "pc-v1-nope")
	_, err = h.client.Validate(bad, wrapperspb.String("M1 1AA"))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestHealthWithoutKey(t *testing.T) {
	h := startServer(t)
	healthClient := grpc_health_v1.NewHealthClient(h.conn)

	for _, service := range []string{"", api.ServiceName} {
		resp, err := healthClient.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
	}
}

func TestLoggingInterceptor_RecordsTenant(t *testing.T) {
	h := startServer(t)

	_, err := h.client.Validate(h.authed(), wrapperspb.String("M1 1AA"))
	require.NoError(t, err)
	_, err = h.client.Validate(context.Background(), wrapperspb.String("M1 1AA"))
	require.Error(t, err)

	entries := h.logs.FilterField(zap.String("method", "/ukpostcode.v1.PostcodeService/Validate")).All()
	require.Len(t, entries, 2)

	ok := entries[0].ContextMap()
	assert.Equal(t, "OK", ok["code"])
	assert.Equal(t, "acme", ok["tenant_id"])

	failed := entries[1].ContextMap()
	assert.Equal(t, "Unauthenticated", failed["code"])
	assert.NotContains(t, failed, "tenant_id")
}

func TestTimeoutInterceptor(t *testing.T) {
	interceptor := TimeoutInterceptor(50 * time.Millisecond)
	info := &grpc.UnaryServerInfo{FullMethod: "/x/y"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, _ any) (any, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
		return nil, nil
	})
	require.NoError(t, err)

	_, err = TimeoutInterceptor(0)(context.Background(), nil, info, func(ctx context.Context, _ any) (any, error) {
		_, ok := ctx.Deadline()
		assert.False(t, ok)
		return nil, nil
	})
	require.NoError(t, err)
}
