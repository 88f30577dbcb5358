package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/innkeephq/innkeep/internal/audit"
	auditdomain "github.com/innkeephq/innkeep/internal/audit/domain"
	"github.com/innkeephq/innkeep/internal/clock"
	"github.com/innkeephq/innkeep/internal/flag/domain"
	"github.com/innkeephq/innkeep/internal/kvstore"
	"github.com/innkeephq/innkeep/internal/observability/metrics"
	"github.com/innkeephq/innkeep/pkg/listquery"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	KV      kvstore.Store
	Clock   clock.Clock
	Audit   auditdomain.Service `optional:"true"`
	Metrics *metrics.Metrics    `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	kv      kvstore.Store
	clock   clock.Clock
	audit   auditdomain.Service
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("flag.service"),
		kv:      p.KV,
		clock:   p.Clock,
		audit:   p.Audit,
		metrics: p.Metrics,
	}
}

// Upsert creates or replaces a flag document. The key is slugified so flag
// keys stay usable inside the colon-delimited keyspace.
func (s *Service) Upsert(ctx context.Context, req domain.UpsertRequest) (*domain.Flag, error) {
	key := slug.Make(strings.TrimSpace(req.Key))
	if key == "" {
		return nil, domain.ErrInvalidKey
	}

	status := req.Status
	if status == "" {
		status = domain.StatusDisabled
	}
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	scope := req.Scope
	if scope == "" {
		scope = domain.ScopeGlobal
	}
	if !scope.Valid() {
		return nil, domain.ErrInvalidScope
	}

	if req.RolloutPercentage != nil {
		if pct := *req.RolloutPercentage; pct < 0 || pct > 100 {
			return nil, domain.ErrInvalidRollout
		}
	}

	existing, err := s.loadFlag(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	flag := &domain.Flag{
		Key:               key,
		Name:              strings.TrimSpace(req.Name),
		Description:       strings.TrimSpace(req.Description),
		Scope:             scope,
		Status:            status,
		AllowTenants:      dedupe(req.AllowTenants),
		DenyTenants:       dedupe(req.DenyTenants),
		Plans:             dedupe(req.Plans),
		RolloutPercentage: req.RolloutPercentage,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if flag.Name == "" {
		flag.Name = key
	}

	action := "flag.create"
	var before map[string]any
	if existing != nil {
		action = "flag.update"
		flag.CreatedAt = existing.CreatedAt
		before = flagPayload(existing)
	}

	raw, err := json.Marshal(flag)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, kvstore.FlagKey(key), raw); err != nil {
		return nil, err
	}

	audit.BestEffort(ctx, s.audit, s.log, auditdomain.Entry{
		Action:       action,
		ResourceType: "feature_flag",
		ResourceID:   key,
		Before:       before,
		After:        flagPayload(flag),
	})

	return flag, nil
}

func (s *Service) Get(ctx context.Context, key string) (*domain.Flag, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.ErrInvalidKey
	}
	return s.loadFlag(ctx, key)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Flag, error) {
	values, err := s.kv.GetByPrefix(ctx, kvstore.FlagPrefix())
	if err != nil {
		return nil, err
	}

	flags := make([]domain.Flag, 0, len(values))
	for _, raw := range values {
		var flag domain.Flag
		if err := json.Unmarshal(raw, &flag); err != nil {
			s.log.Warn("skipping corrupt flag document", zap.Error(err))
			continue
		}
		flags = append(flags, flag)
	}

	flags = listquery.Filter(flags,
		func(f domain.Flag) bool { return req.Status == "" || f.Status == req.Status },
		func(f domain.Flag) bool { return req.Scope == "" || f.Scope == req.Scope },
	)
	listquery.SortBy(flags, listquery.ParseOrder(req.Order), func(a, b domain.Flag) bool {
		return a.Key < b.Key
	})
	return listquery.Page(flags, req.Offset, req.Limit), nil
}

func (s *Service) Delete(ctx context.Context, key string) error {
	flag, err := s.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := s.kv.Del(ctx, kvstore.FlagKey(flag.Key)); err != nil {
		return err
	}

	audit.BestEffort(ctx, s.audit, s.log, auditdomain.Entry{
		Action:       "flag.delete",
		ResourceType: "feature_flag",
		ResourceID:   flag.Key,
		Before:       flagPayload(flag),
	})
	return nil
}

func (s *Service) loadFlag(ctx context.Context, key string) (*domain.Flag, error) {
	raw, err := s.kv.Get(ctx, kvstore.FlagKey(key))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var flag domain.Flag
	if err := json.Unmarshal(raw, &flag); err != nil {
		return nil, err
	}
	return &flag, nil
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func flagPayload(flag *domain.Flag) map[string]any {
	payload := map[string]any{
		"name":   flag.Name,
		"scope":  string(flag.Scope),
		"status": string(flag.Status),
	}
	if flag.RolloutPercentage != nil {
		payload["rollout_percentage"] = *flag.RolloutPercentage
	}
	return payload
}
