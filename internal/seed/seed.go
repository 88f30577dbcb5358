// Package seed bootstraps the rows a fresh install needs before the first
// request: the external-code counter and the plan catalog.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	plandomain "github.com/innkeephq/innkeep/internal/plan/domain"
	"github.com/innkeephq/innkeep/internal/plan/limits"
	tenantdomain "github.com/innkeephq/innkeep/internal/tenant/domain"
)

const externalCodeCounter = "tenant_external_code"

// EnsureDefaults is idempotent; it only fills in what is missing and never
// overwrites operator edits to plan limits.
func EnsureDefaults(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureCounter(ctx, tx); err != nil {
			return err
		}
		return ensurePlanCatalog(ctx, tx, node)
	})
}

func ensureCounter(ctx context.Context, tx *gorm.DB) error {
	counter := tenantdomain.Counter{Name: externalCodeCounter, Value: 0}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&counter).Error
}

func ensurePlanCatalog(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	titler := cases.Title(language.English)
	now := time.Now().UTC()

	for name, quotas := range limits.DefaultLimitProfiles() {
		planLimits := datatypes.JSONMap{}
		for metric, quota := range quotas {
			planLimits[metric] = quota
		}

		row := plandomain.Plan{
			ID:          node.Generate(),
			Name:        name,
			DisplayName: titler.String(name),
			Limits:      planLimits,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		err := tx.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).
			Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}
