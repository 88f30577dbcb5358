package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/innkeephq/innkeep/internal/audit/domain"
	"github.com/innkeephq/innkeep/pkg/db/pagination"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (
			id, action, resource_type, resource_id, actor, before, after, ip_address, user_agent, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.Actor,
		entry.Before,
		entry.After,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest, cursor *pagination.Cursor, limit int) ([]domain.AuditLog, error) {
	stmt := db.WithContext(ctx).Model(&domain.AuditLog{})

	if action := strings.TrimSpace(filter.Action); action != "" {
		stmt = stmt.Where("action = ?", action)
	}
	if resourceType := strings.TrimSpace(filter.ResourceType); resourceType != "" {
		stmt = stmt.Where("resource_type = ?", resourceType)
	}
	if resourceID := strings.TrimSpace(filter.ResourceID); resourceID != "" {
		stmt = stmt.Where("resource_id = ?", resourceID)
	}
	if actor := strings.TrimSpace(filter.Actor); actor != "" {
		stmt = stmt.Where("actor = ?", actor)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", *filter.StartAt)
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", *filter.EndAt)
	}
	if cursor != nil && cursor.ID != "" {
		if id, err := snowflake.ParseString(cursor.ID); err == nil {
			stmt = stmt.Where("id < ?", int64(id))
		}
	}

	var items []domain.AuditLog
	err := stmt.
		Order("id DESC").
		Limit(limit + 1). // overfetch one row to detect has_more
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
