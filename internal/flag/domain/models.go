// Package domain contains the feature flag models and contracts.
package domain

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusEnabled  Status = "enabled"
	StatusDisabled Status = "disabled"
	StatusBeta     Status = "beta"
)

func (s Status) Valid() bool {
	switch s {
	case StatusEnabled, StatusDisabled, StatusBeta:
		return true
	}
	return false
}

type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopePlan   Scope = "plan"
	ScopeTenant Scope = "tenant"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeGlobal, ScopePlan, ScopeTenant:
		return true
	}
	return false
}

// Flag is a feature flag document stored in the fast store under flag:<key>.
// Allow and deny lists hold tenant identifiers; Plans holds entitled plan
// names. RolloutPercentage is nil when no percentage rollout is declared.
type Flag struct {
	Key               string    `json:"key"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	Scope             Scope     `json:"scope"`
	Status            Status    `json:"status"`
	AllowTenants      []string  `json:"allow_tenants,omitempty"`
	DenyTenants       []string  `json:"deny_tenants,omitempty"`
	Plans             []string  `json:"plans,omitempty"`
	RolloutPercentage *int      `json:"rollout_percentage,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type UpsertRequest struct {
	Key               string   `json:"key"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	Scope             Scope    `json:"scope,omitempty"`
	Status            Status   `json:"status,omitempty"`
	AllowTenants      []string `json:"allow_tenants,omitempty"`
	DenyTenants       []string `json:"deny_tenants,omitempty"`
	Plans             []string `json:"plans,omitempty"`
	RolloutPercentage *int     `json:"rollout_percentage,omitempty"`
}

type ListRequest struct {
	Status Status
	Scope  Scope
	Order  string
	Offset int
	Limit  int
}

type Evaluator interface {
	// IsEnabled resolves enablement of a flag for a tenant. A missing flag
	// and a failing backend both evaluate to false; evaluation never
	// surfaces backend errors to the caller.
	IsEnabled(ctx context.Context, flagKey, tenantIdentifier, planName string) bool
}

type Service interface {
	Evaluator

	Upsert(ctx context.Context, req UpsertRequest) (*Flag, error)
	Get(ctx context.Context, key string) (*Flag, error)
	List(ctx context.Context, req ListRequest) ([]Flag, error)
	Delete(ctx context.Context, key string) error
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidKey     = errors.New("invalid_key")
	ErrInvalidStatus  = errors.New("invalid_status")
	ErrInvalidScope   = errors.New("invalid_scope")
	ErrInvalidRollout = errors.New("invalid_rollout")
)
