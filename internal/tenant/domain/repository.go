package domain

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/innkeephq/innkeep/pkg/db/pagination"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Tenant, error)
	// FindByExternalCode matches on the external_code path inside the JSON
	// settings column.
	FindByExternalCode(ctx context.Context, db *gorm.DB, code string) (*Tenant, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest, cursor *pagination.Cursor, limit int) ([]Tenant, error)
	Update(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) error

	// NextExternalCode advances the shared tenant counter and returns the
	// new value. Codes are monotonic and never reused.
	NextExternalCode(ctx context.Context, db *gorm.DB) (int64, error)
}
