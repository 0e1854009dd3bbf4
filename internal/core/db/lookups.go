package db

import (
	"context"
	"fmt"
	"time"

	"github.com/solatis/ukpostcode/internal/types"
)

// Lookup is one audited API lookup.
type Lookup struct {
	ID         types.LookupID `db:"lookup_id"`
	TenantID   string         `db:"tenant_id"`
	Method     string         `db:"method"`
	Normalized string         `db:"normalized"`
	Shape      string         `db:"shape"`
	Valid      bool           `db:"valid"`
	CreatedAt  time.Time      `db:"created_at"`
}

// ShapeCount is one row of CountByShape.
type ShapeCount struct {
	Shape string `db:"shape"`
	Total int64  `db:"total"`
}

// LookupStore persists the lookup audit log.
type LookupStore struct {
	queries *Queries
}

// NewLookupStore wraps loaded queries.
func NewLookupStore(queries *Queries) *LookupStore {
	return &LookupStore{queries: queries}
}

// Record inserts l, assigning an ID and timestamp when unset.
func (s *LookupStore) Record(ctx context.Context, l *Lookup) error {
	if l.ID == "" {
		l.ID = types.NewLookupID()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := s.queries.Exec(ctx, "insert-lookup",
		string(l.ID), l.TenantID, l.Method, l.Normalized, l.Shape, l.Valid, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record lookup: %w", err)
	}
	return nil
}

// CountByShape totals a tenant's lookups per shape, ordered by shape name.
func (s *LookupStore) CountByShape(ctx context.Context, tenantID string) ([]ShapeCount, error) {
	var counts []ShapeCount
	if err := s.queries.Select(ctx, "count-lookups-by-shape", &counts, tenantID); err != nil {
		return nil, fmt.Errorf("failed to count lookups: %w", err)
	}
	return counts, nil
}

// Recent returns a tenant's latest lookups, newest first.
func (s *LookupStore) Recent(ctx context.Context, tenantID string, limit int) ([]Lookup, error) {
	var lookups []Lookup
	if err := s.queries.Select(ctx, "list-lookups-by-tenant", &lookups, tenantID, limit); err != nil {
		return nil, fmt.Errorf("failed to list lookups: %w", err)
	}
	return lookups, nil
}
