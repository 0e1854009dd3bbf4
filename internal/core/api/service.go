// Package api implements the gRPC postcode lookup service.
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/ukpostcode/internal/core/auth"
	"github.com/solatis/ukpostcode/internal/core/config"
	"github.com/solatis/ukpostcode/internal/core/db"
	"github.com/solatis/ukpostcode/internal/core/metrics"
	"github.com/solatis/ukpostcode/internal/postcode"
	"github.com/solatis/ukpostcode/internal/types"
)

// LookupStore is the audit log used by the service.
type LookupStore interface {
	Record(ctx context.Context, l *db.Lookup) error
	CountByShape(ctx context.Context, tenantID string) ([]db.ShapeCount, error)
}

// LookupService implements PostcodeServiceServer.
// Stateless apart from the audit store; safe for concurrent use.
type LookupService struct {
	cfg     *config.LookupAPIConfig
	store   LookupStore
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewLookupService wires the service. metrics may be nil.
func NewLookupService(cfg *config.LookupAPIConfig, store LookupStore, m *metrics.Metrics, logger *zap.Logger) (*LookupService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LookupService{cfg: cfg, store: store, metrics: m, logger: logger}, nil
}

var _ PostcodeServiceServer = (*LookupService)(nil)

// Validate reports whether the postcode is recognized. Unrecognized input is
// a false result, not an error; blank input is rejected.
func (s *LookupService) Validate(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	defer s.track(methodValidate)()

	raw := req.GetValue()
	c, err := lookup(raw)
	switch {
	case err == nil:
		s.observe(ctx, methodValidate, raw, &c, nil)
		return wrapperspb.Bool(true), nil
	case errors.Is(err, types.ErrInvalidPostcode):
		s.observe(ctx, methodValidate, raw, nil, err)
		return wrapperspb.Bool(false), nil
	default:
		s.observe(ctx, methodValidate, raw, nil, err)
		return nil, toStatus(err)
	}
}

// Format returns the canonical display form.
func (s *LookupService) Format(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	defer s.track(methodFormat)()

	c, err := lookup(req.GetValue())
	if err != nil {
		s.observe(ctx, methodFormat, req.GetValue(), nil, err)
		return nil, toStatus(err)
	}
	s.observe(ctx, methodFormat, req.GetValue(), &c, nil)
	return wrapperspb.String(c.Formatted), nil
}

// Parse returns every component of the postcode.
func (s *LookupService) Parse(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	defer s.track(methodParse)()

	c, err := lookup(req.GetValue())
	if err != nil {
		s.observe(ctx, methodParse, req.GetValue(), nil, err)
		return nil, toStatus(err)
	}
	s.observe(ctx, methodParse, req.GetValue(), &c, nil)

	out, err := structpb.NewStruct(componentsMap(c))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// ParseBatch parses each list item independently. Items that are not
// strings fail with a type mismatch in their own result; the call only
// fails when the batch exceeds MaxBatchSize.
func (s *LookupService) ParseBatch(ctx context.Context, req *structpb.ListValue) (*structpb.ListValue, error) {
	defer s.track(methodParseBatch)()

	items := req.GetValues()
	if len(items) > s.cfg.MaxBatchSize {
		return nil, toStatus(fmt.Errorf("%w: %d items, maximum %d", types.ErrBatchTooLarge, len(items), s.cfg.MaxBatchSize))
	}
	s.metrics.ObserveBatch(len(items))

	results := make([]any, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, toStatus(err)
		}
		results[i] = s.parseItem(ctx, item)
	}

	out, err := structpb.NewList(results)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *LookupService) parseItem(ctx context.Context, item *structpb.Value) map[string]any {
	input := item.AsInterface()
	result := map[string]any{"input": input, "valid": false}

	raw, isString := input.(string)
	var (
		c   types.Components
		err error
	)
	if isString {
		c, err = lookup(raw)
	} else {
		_, err = postcode.FromValue(input)
	}
	if err != nil {
		s.observe(ctx, methodParseBatch, raw, nil, err)
		result["error"] = err.Error()
		return result
	}
	s.observe(ctx, methodParseBatch, raw, &c, nil)

	result["valid"] = true
	result["components"] = componentsMap(c)
	return result
}

// Stats returns the caller's audited lookup counts per shape.
func (s *LookupService) Stats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	counts, err := s.store.CountByShape(ctx, auth.TenantIDFromContext(ctx))
	if err != nil {
		return nil, toStatus(fmt.Errorf("%w: %v", auth.ErrDatabase, err))
	}

	shapes := make(map[string]any, len(counts))
	var total int64
	for _, c := range counts {
		shapes[c.Shape] = float64(c.Total)
		total += c.Total
	}
	out, err := structpb.NewStruct(map[string]any{
		"total":  float64(total),
		"shapes": shapes,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// lookup bounds the raw input before parsing it.
func lookup(raw string) (types.Components, error) {
	if len(raw) > types.MaxInputLength {
		return types.Components{}, fmt.Errorf("%w: %d bytes, maximum %d", types.ErrInputTooLong, len(raw), types.MaxInputLength)
	}
	return postcode.Parse(raw)
}

// track returns a func that records the elapsed time for method.
func (s *LookupService) track(method string) func() {
	start := time.Now()
	return func() { s.metrics.ObserveLatency(method, time.Since(start)) }
}

// observe updates metrics and, when enabled, appends to the audit log.
// Audit failures are logged and never fail the lookup.
func (s *LookupService) observe(ctx context.Context, method, raw string, c *types.Components, lookupErr error) {
	outcome, shape := metrics.OutcomeInvalid, types.ShapeInvalid.String()
	switch {
	case c != nil:
		outcome, shape = metrics.OutcomeValid, c.Shape.String()
	case lookupErr != nil && !errors.Is(lookupErr, types.ErrInvalidPostcode):
		outcome = metrics.OutcomeError
	}
	s.metrics.ObserveLookup(method, outcome, shape)

	if !s.cfg.AuditLookups {
		return
	}

	normalized := ""
	if c != nil {
		normalized = c.Normalized
	} else if n, err := postcode.Normalize(raw); err == nil {
		normalized = n
	}
	if len(normalized) > types.MaxInputLength {
		normalized = normalized[:types.MaxInputLength]
	}

	tenantID := auth.TenantIDFromContext(ctx)
	err := s.store.Record(ctx, &db.Lookup{
		TenantID:   tenantID,
		Method:     method,
		Normalized: normalized,
		Shape:      shape,
		Valid:      c != nil,
	})
	if err != nil {
		s.logger.Warn("failed to audit lookup",
			zap.String("method", method),
			zap.String("tenant_id", tenantID),
			zap.Error(err))
	}
}

// componentsMap renders components with the same field names as their JSON form.
func componentsMap(c types.Components) map[string]any {
	m := map[string]any{
		"normalized": c.Normalized,
		"formatted":  c.Formatted,
		"shape":      c.Shape.String(),
		"outward":    c.Outward,
		"area":       c.Area,
		"district":   c.District,
		"has_inward": c.HasInward,
	}
	if c.HasInward {
		m["inward"] = c.Inward
		m["sector"] = c.Sector
		m["unit"] = c.Unit
	}
	return m
}
