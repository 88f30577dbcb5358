package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/innkeephq/innkeep/internal/tenant/domain"
	pkgdb "github.com/innkeephq/innkeep/pkg/db"
	"github.com/innkeephq/innkeep/pkg/db/pagination"
)

const externalCodeCounter = "tenant_external_code"

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, tenant *domain.Tenant) error {
	if err := db.WithContext(ctx).Create(tenant).Error; err != nil {
		// The unique index on the settings external_code enforces at most
		// one live tenant per code.
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.ErrExternalCodeTaken
		}
		return err
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*domain.Tenant, error) {
	var t domain.Tenant
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == uuid.Nil {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) FindByExternalCode(ctx context.Context, db *gorm.DB, code string) (*domain.Tenant, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	var t domain.Tenant
	err := db.WithContext(ctx).
		Where(datatypes.JSONQuery("settings").Equals(code, domain.SettingExternalCode)).
		Limit(1).
		Find(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == uuid.Nil {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest, cursor *pagination.Cursor, limit int) ([]domain.Tenant, error) {
	stmt := db.WithContext(ctx).Model(&domain.Tenant{})

	if plan := strings.TrimSpace(filter.Plan); plan != "" {
		stmt = stmt.Where("plan = ?", plan)
	}
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+name+"%")
	}
	if cursor != nil && cursor.ID != "" {
		if id, err := uuid.Parse(cursor.ID); err == nil {
			stmt = stmt.Where("(created_at, id) > (SELECT created_at, id FROM tenants WHERE id = ?)", id)
		}
	}

	var items []domain.Tenant
	err := stmt.
		Order("created_at ASC, id ASC").
		Limit(limit + 1). // overfetch one row to detect has_more
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, tenant *domain.Tenant) error {
	result := db.WithContext(ctx).
		Model(&domain.Tenant{}).
		Where("id = ?", tenant.ID).
		Updates(map[string]any{
			"name":       tenant.Name,
			"plan":       tenant.Plan,
			"status":     tenant.Status,
			"mrr":        tenant.MRR,
			"settings":   tenant.Settings,
			"updated_at": tenant.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Tenant{}).Error
}

func (r *repo) NextExternalCode(ctx context.Context, db *gorm.DB) (int64, error) {
	var next int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(`UPDATE counters SET value = value + 1 WHERE name = ?`, externalCodeCounter)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.New("tenant counter row missing")
		}
		return tx.Raw(`SELECT value FROM counters WHERE name = ?`, externalCodeCounter).
			Scan(&next).Error
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}
