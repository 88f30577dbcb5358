package service

import (
	"context"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/innkeephq/innkeep/internal/plan/domain"
	"github.com/innkeephq/innkeep/internal/plan/limits"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	Profiles *limits.Holder
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	profiles *limits.Holder
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("plan.service"),
		repo:     p.Repo,
		profiles: p.Profiles,
	}
}

func (s *Service) LimitFor(ctx context.Context, planName, metric string) float64 {
	planName = strings.ToLower(strings.TrimSpace(planName))
	metric = strings.TrimSpace(metric)
	if planName == "" || metric == "" {
		return 0
	}

	// The catalog row wins; a lookup failure degrades to the profile table.
	row, err := s.repo.FindByName(ctx, s.db, planName)
	if err != nil {
		s.log.Warn("plan lookup failed, using default profiles",
			zap.String("plan", planName), zap.Error(err))
	} else if row != nil {
		if raw, ok := row.Limits[metric]; ok {
			if limit, ok := toFloat(raw); ok {
				return limit
			}
		}
	}

	if metrics, ok := s.profiles.Profiles()[planName]; ok {
		return metrics[metric]
	}
	return 0
}

func (s *Service) Get(ctx context.Context, name string) (*domain.Response, error) {
	row, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(row)
	return &resp, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Response, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) IsKnown(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case domain.PlanBasic, domain.PlanStandard, domain.PlanPremium, domain.PlanEnterprise:
		return true
	}
	return false
}

func toResponse(row *domain.Plan) domain.Response {
	limits := make(map[string]float64, len(row.Limits))
	for metric, raw := range row.Limits {
		if limit, ok := toFloat(raw); ok {
			limits[metric] = limit
		}
	}
	return domain.Response{
		ID:          row.ID.String(),
		Name:        row.Name,
		DisplayName: row.DisplayName,
		Limits:      limits,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

// toFloat normalizes the numeric types a JSONMap round-trip can produce.
func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
