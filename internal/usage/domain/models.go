// Package domain contains the usage ledger models and contracts.
package domain

import (
	"context"
	"errors"
	"math"
	"time"
)

// Record is one (tenant, metric, period) ledger document stored in the fast
// store. Periods accumulate indefinitely until explicitly reset.
type Record struct {
	TenantID  string             `json:"tenant_id"`
	Metric    string             `json:"metric"`
	Period    string             `json:"period"` // YYYY-MM
	Current   float64            `json:"current"`
	Limit     float64            `json:"limit"`
	Daily     map[string]float64 `json:"daily,omitempty"` // YYYY-MM-DD -> value
	UpdatedAt time.Time          `json:"updated_at"`
}

// Percentage derives consumption as a whole percent, capped at 100.
func (r *Record) Percentage() int {
	if r == nil || r.Limit <= 0 {
		return 0
	}
	pct := int(math.Round(r.Current / r.Limit * 100))
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// OverLimit reports whether the record has consumed its full quota. The
// boundary current == limit counts as over.
func (r *Record) OverLimit() bool {
	if r == nil || r.Limit <= 0 {
		return false
	}
	return r.Current >= r.Limit
}

// Response is the caller-facing record shape with the derived percentage.
type Response struct {
	Record
	Percentage int `json:"percentage"`
}

type RecordRequest struct {
	TenantID string  `json:"tenant_id"`
	Metric   string  `json:"metric"`
	Value    float64 `json:"value"`
	Limit    float64 `json:"limit,omitempty"`
	Period   string  `json:"period,omitempty"`
}

type IncrementRequest struct {
	TenantID string  `json:"tenant_id"`
	Metric   string  `json:"metric"`
	Amount   float64 `json:"amount"`
	Limit    float64 `json:"limit,omitempty"`
	Period   string  `json:"period,omitempty"`
}

// Ledger tracks monotonically-accumulating counters per tenant, metric and
// billing period.
type Ledger interface {
	// Get returns the record for a period, or ErrNotFound. Reads reconcile
	// limit drift against the tenant's current plan.
	Get(ctx context.Context, tenantID, metric, period string) (*Response, error)

	// Record overwrites the accumulated total for the period.
	Record(ctx context.Context, req RecordRequest) (*Response, error)

	// Increment adds to the accumulated total. The add is read-then-write,
	// not atomic; see the implementation note.
	Increment(ctx context.Context, req IncrementRequest) (*Response, error)

	// IsOverLimit reports whether current >= limit for the period. A missing
	// record is never over limit.
	IsOverLimit(ctx context.Context, tenantID, metric, period string) (bool, error)

	// List returns every period record the tenant owns.
	List(ctx context.Context, tenantID string) ([]Response, error)

	// Reset deletes one period record.
	Reset(ctx context.Context, tenantID, metric, period string) error
}

var (
	ErrNotFound      = errors.New("not_found")
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidMetric = errors.New("invalid_metric")
	ErrInvalidValue  = errors.New("invalid_value")
	ErrInvalidPeriod = errors.New("invalid_period")
)
