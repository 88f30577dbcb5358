package domain

import (
	"context"
	"errors"

	"github.com/innkeephq/innkeep/pkg/db/pagination"
)

type CreateRequest struct {
	Name     string         `json:"name"`
	Plan     string         `json:"plan"`
	Status   *Status        `json:"status,omitempty"`
	MRR      float64        `json:"mrr"`
	Settings map[string]any `json:"settings,omitempty"`
}

type UpdateRequest struct {
	ID       string         `json:"id"`
	Name     *string        `json:"name,omitempty"`
	Plan     *string        `json:"plan,omitempty"`
	Status   *Status        `json:"status,omitempty"`
	MRR      *float64       `json:"mrr,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}

type ListRequest struct {
	pagination.Pagination
	Plan   string
	Status *Status
	Name   string
}

type ListResponse struct {
	pagination.PageInfo
	Tenants []Record `json:"tenants"`
}

type Service interface {
	// Resolve maps any identifier form (fast-store key, relational UUID,
	// external code) to the canonical record. A miss returns ErrNotFound
	// with SourceNone; it is a 404-class outcome, not a failure.
	Resolve(ctx context.Context, identifier string) (*Record, Source, error)

	Create(ctx context.Context, req CreateRequest) (*Record, error)
	Update(ctx context.Context, req UpdateRequest) (*Record, error)
	Delete(ctx context.Context, identifier string) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrNotFound          = errors.New("not_found")
	ErrExternalCodeTaken = errors.New("external_code_taken")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidPlan       = errors.New("invalid_plan")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidPageToken  = errors.New("invalid_page_token")
)
