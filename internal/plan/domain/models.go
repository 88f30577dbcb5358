// Package domain contains the plan catalog models and contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Known plan names. Tenant records carry one of these.
const (
	PlanBasic      = "basic"
	PlanStandard   = "standard"
	PlanPremium    = "premium"
	PlanEnterprise = "enterprise"
)

// Plan is a relational catalog row. Limits maps metric name to the
// per-period quota for that metric.
type Plan struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	Name        string            `gorm:"type:text;not null;uniqueIndex:ux_plans_name"`
	DisplayName string            `gorm:"type:text;not null"`
	Limits      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

type Repository interface {
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Plan, error)
	List(ctx context.Context, db *gorm.DB) ([]Plan, error)
}

type Response struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	DisplayName string             `json:"display_name"`
	Limits      map[string]float64 `json:"limits"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type Service interface {
	// LimitFor resolves the per-period quota for a metric under a plan,
	// falling back to the default limit profiles when the catalog row
	// declares no explicit value. Returns 0 when nothing is known.
	LimitFor(ctx context.Context, planName, metric string) float64

	Get(ctx context.Context, name string) (*Response, error)
	List(ctx context.Context) ([]Response, error)

	// IsKnown reports whether name is a valid plan.
	IsKnown(name string) bool
}

var (
	ErrNotFound    = errors.New("not_found")
	ErrInvalidPlan = errors.New("invalid_plan")
)
