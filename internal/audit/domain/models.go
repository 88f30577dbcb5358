// Package domain contains the append-only audit trail models and contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/innkeephq/innkeep/pkg/db/pagination"
)

// AuditLog is one immutable append record. Rows are never mutated or deleted
// here; retention sweeps live outside this service.
type AuditLog struct {
	ID           snowflake.ID      `gorm:"primaryKey"`
	Action       string            `gorm:"type:text;not null;index"`
	ResourceType string            `gorm:"type:text;not null;index"`
	ResourceID   string            `gorm:"type:text;not null;index"`
	Actor        string            `gorm:"type:text;not null"`
	Before       datatypes.JSONMap `gorm:"type:jsonb"`
	After        datatypes.JSONMap `gorm:"type:jsonb"`
	IPAddress    *string           `gorm:"type:text"`
	UserAgent    *string           `gorm:"type:text"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListRequest, cursor *pagination.Cursor, limit int) ([]AuditLog, error)
}

type ListRequest struct {
	pagination.Pagination
	Action       string
	ResourceType string
	ResourceID   string
	Actor        string
	StartAt      *time.Time
	EndAt        *time.Time
}

type ListResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	// Record appends one entry. Failures are returned so BestEffort callers
	// can decide to log-and-continue.
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

// Entry is the caller-facing shape of one audit record.
type Entry struct {
	Action       string
	ResourceType string
	ResourceID   string
	Actor        string
	Before       map[string]any
	After        map[string]any
}

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
