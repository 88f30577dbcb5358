package service

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/innkeephq/innkeep/internal/clock"
	"github.com/innkeephq/innkeep/internal/kvstore"
	"github.com/innkeephq/innkeep/internal/observability/metrics"
	plandomain "github.com/innkeephq/innkeep/internal/plan/domain"
	tenantdomain "github.com/innkeephq/innkeep/internal/tenant/domain"
	"github.com/innkeephq/innkeep/internal/usage/domain"
	"github.com/innkeephq/innkeep/pkg/listquery"
)

var periodShape = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

type Params struct {
	fx.In

	Log       *zap.Logger
	KV        kvstore.Store
	Clock     clock.Clock
	TenantSvc tenantdomain.Service
	PlanSvc   plandomain.Service
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	kv        kvstore.Store
	clock     clock.Clock
	tenantSvc tenantdomain.Service
	planSvc   plandomain.Service
	metrics   *metrics.Metrics
}

func New(p Params) domain.Ledger {
	return &Service{
		log:       p.Log.Named("usage.service"),
		kv:        p.KV,
		clock:     p.Clock,
		tenantSvc: p.TenantSvc,
		planSvc:   p.PlanSvc,
		metrics:   p.Metrics,
	}
}

func (s *Service) Get(ctx context.Context, tenantID, metric, period string) (*domain.Response, error) {
	tenantID, metric, period, err := s.normalize(tenantID, metric, period)
	if err != nil {
		return nil, err
	}

	record, err := s.load(ctx, tenantID, metric, period)
	if err != nil {
		return nil, err
	}

	// Read paths reconcile limit drift against the tenant's current plan.
	// The increment path deliberately does not; see Record.
	if s.reconcileLimit(ctx, record) {
		s.persist(ctx, record)
	}

	return toResponse(record), nil
}

// Record overwrites the period's accumulated total. On the first write of a
// period the limit is captured from, in order: an existing record (sticky),
// the explicit limit argument, the tenant's current plan. Later plan changes
// do not rewrite an existing period's limit on this path.
func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (*domain.Response, error) {
	tenantID, metric, period, err := s.normalize(req.TenantID, req.Metric, req.Period)
	if err != nil {
		return nil, err
	}
	if req.Value < 0 {
		return nil, domain.ErrInvalidValue
	}

	record, err := s.writeTotal(ctx, tenantID, metric, period, req.Value, req.Limit)
	if err != nil {
		return nil, err
	}
	return toResponse(record), nil
}

// Increment reads the current total and records the new one. The two steps
// are not atomic: the fast store offers no compare-and-swap here, so two
// concurrent increments against the same (tenant, metric, period) can lose
// an update. Accepted under the single-writer-per-tenant-request assumption.
func (s *Service) Increment(ctx context.Context, req domain.IncrementRequest) (*domain.Response, error) {
	tenantID, metric, period, err := s.normalize(req.TenantID, req.Metric, req.Period)
	if err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidValue
	}

	current := 0.0
	existing, err := s.load(ctx, tenantID, metric, period)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		current = existing.Current
	}

	record, err := s.writeTotal(ctx, tenantID, metric, period, current+req.Amount, req.Limit)
	if err != nil {
		return nil, err
	}
	return toResponse(record), nil
}

func (s *Service) IsOverLimit(ctx context.Context, tenantID, metric, period string) (bool, error) {
	tenantID, metric, period, err := s.normalize(tenantID, metric, period)
	if err != nil {
		return false, err
	}

	record, err := s.load(ctx, tenantID, metric, period)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return record.OverLimit(), nil
}

func (s *Service) List(ctx context.Context, tenantID string) ([]domain.Response, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, domain.ErrInvalidTenant
	}

	values, err := s.kv.GetByPrefix(ctx, kvstore.UsagePrefix(tenantID))
	if err != nil {
		return nil, err
	}

	records := make([]*domain.Record, 0, len(values))
	for _, raw := range values {
		var record domain.Record
		if err := json.Unmarshal(raw, &record); err != nil {
			s.log.Warn("skipping corrupt usage record",
				zap.String("tenant_id", tenantID), zap.Error(err))
			continue
		}
		if s.reconcileLimit(ctx, &record) {
			s.persist(ctx, &record)
		}
		records = append(records, &record)
	}

	// Newest period first, metrics alphabetical within a period.
	listquery.SortBy(records, listquery.OrderAsc, func(a, b *domain.Record) bool {
		if a.Period != b.Period {
			return a.Period > b.Period
		}
		return a.Metric < b.Metric
	})

	resp := make([]domain.Response, 0, len(records))
	for _, record := range records {
		resp = append(resp, *toResponse(record))
	}
	return resp, nil
}

func (s *Service) Reset(ctx context.Context, tenantID, metric, period string) error {
	tenantID, metric, period, err := s.normalize(tenantID, metric, period)
	if err != nil {
		return err
	}
	return s.kv.Del(ctx, kvstore.UsageKey(tenantID, period, metric))
}

// writeTotal persists the new accumulated total, stamping today's value into
// the daily breakdown (last write wins within a day).
func (s *Service) writeTotal(ctx context.Context, tenantID, metric, period string, total, explicitLimit float64) (*domain.Record, error) {
	existing, err := s.load(ctx, tenantID, metric, period)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	record := &domain.Record{
		TenantID: tenantID,
		Metric:   metric,
		Period:   period,
		Daily:    map[string]float64{},
	}
	if existing != nil {
		record.Limit = existing.Limit
		for day, value := range existing.Daily {
			record.Daily[day] = value
		}
	}

	// Sticky limit: only derive when the record has never captured one.
	if record.Limit <= 0 {
		if explicitLimit > 0 {
			record.Limit = explicitLimit
		} else {
			record.Limit = s.planLimit(ctx, tenantID, metric)
		}
	}

	now := s.clock.Now()
	record.Current = total
	record.Daily[clock.Day(now)] = total
	record.UpdatedAt = now

	if err := s.persistErr(ctx, record); err != nil {
		return nil, err
	}
	s.metrics.RecordUsageWrite(metric)
	return record, nil
}

// planLimit derives the quota from the tenant's current plan. Resolution
// failures degrade to "no limit known".
func (s *Service) planLimit(ctx context.Context, tenantID, metric string) float64 {
	record, _, err := s.tenantSvc.Resolve(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, tenantdomain.ErrNotFound) {
			s.log.Warn("tenant resolution failed during limit derivation",
				zap.String("tenant_id", tenantID), zap.Error(err))
		}
		return 0
	}
	return s.planSvc.LimitFor(ctx, record.Plan, metric)
}

// reconcileLimit rewrites a stale limit when the tenant's plan quota has
// drifted from the one captured at first write. Returns true when changed.
func (s *Service) reconcileLimit(ctx context.Context, record *domain.Record) bool {
	planLimit := s.planLimit(ctx, record.TenantID, record.Metric)
	if planLimit <= 0 || planLimit == record.Limit {
		return false
	}
	record.Limit = planLimit
	record.UpdatedAt = s.clock.Now()
	return true
}

func (s *Service) load(ctx context.Context, tenantID, metric, period string) (*domain.Record, error) {
	raw, err := s.kv.Get(ctx, kvstore.UsageKey(tenantID, period, metric))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var record domain.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Service) persist(ctx context.Context, record *domain.Record) {
	if err := s.persistErr(ctx, record); err != nil {
		s.log.Warn("usage record rewrite failed",
			zap.String("tenant_id", record.TenantID),
			zap.String("metric", record.Metric),
			zap.String("period", record.Period),
			zap.Error(err))
	}
}

func (s *Service) persistErr(ctx context.Context, record *domain.Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, kvstore.UsageKey(record.TenantID, record.Period, record.Metric), raw)
}

func (s *Service) normalize(tenantID, metric, period string) (string, string, string, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", "", "", domain.ErrInvalidTenant
	}
	metric = strings.TrimSpace(metric)
	if metric == "" {
		return "", "", "", domain.ErrInvalidMetric
	}

	period = strings.TrimSpace(period)
	if period == "" {
		// Period rollover is implicit: the first write after a month
		// boundary lands in a fresh record.
		period = clock.Period(s.clock.Now())
	} else if !periodShape.MatchString(period) {
		return "", "", "", domain.ErrInvalidPeriod
	}

	return tenantID, metric, period, nil
}

func toResponse(record *domain.Record) *domain.Response {
	return &domain.Response{
		Record:     *record,
		Percentage: record.Percentage(),
	}
}
