package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/innkeephq/innkeep/internal/audit"
	auditdomain "github.com/innkeephq/innkeep/internal/audit/domain"
	"github.com/innkeephq/innkeep/internal/clock"
	"github.com/innkeephq/innkeep/internal/kvstore"
	"github.com/innkeephq/innkeep/internal/observability/metrics"
	plandomain "github.com/innkeephq/innkeep/internal/plan/domain"
	"github.com/innkeephq/innkeep/internal/tenant/domain"
	usagedomain "github.com/innkeephq/innkeep/internal/usage/domain"
	"github.com/innkeephq/innkeep/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	KV      kvstore.Store
	Clock   clock.Clock
	Repo    domain.Repository
	PlanSvc plandomain.Service
	Audit   auditdomain.Service `optional:"true"`
	Metrics *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	kv      kvstore.Store
	clock   clock.Clock
	repo    domain.Repository
	planSvc plandomain.Service
	audit   auditdomain.Service
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("tenant.service"),
		kv:      p.KV,
		clock:   p.Clock,
		repo:    p.Repo,
		planSvc: p.PlanSvc,
		audit:   p.Audit,
		metrics: p.Metrics,
	}
}

// Create allocates the next external code and writes both backends. The two
// writes are not transactional: the relational row is the system of record
// and the fast-store document is best-effort.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Record, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	planName := strings.ToLower(strings.TrimSpace(req.Plan))
	if planName == "" {
		planName = plandomain.PlanBasic
	}
	if !s.planSvc.IsKnown(planName) {
		return nil, domain.ErrInvalidPlan
	}

	status := domain.StatusActive
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		status = *req.Status
	}

	next, err := s.repo.NextExternalCode(ctx, s.db)
	if err != nil {
		return nil, err
	}
	externalCode := fmt.Sprintf("T-%d", next)

	settings := datatypes.JSONMap{}
	for key, value := range req.Settings {
		if key == "" {
			continue
		}
		settings[key] = value
	}
	settings[domain.SettingExternalCode] = externalCode
	settings[domain.SettingSlug] = slug.Make(name)

	now := s.clock.Now()
	row := domain.Tenant{
		ID:        uuid.New(),
		Name:      name,
		Plan:      planName,
		Status:    status,
		MRR:       req.MRR,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, s.db, &row); err != nil {
		return nil, err
	}

	record := row.ToRecord()
	s.writeFastRecord(ctx, &record)

	audit.BestEffort(ctx, s.audit, s.log, auditdomain.Entry{
		Action:       "tenant.create",
		ResourceType: "tenant",
		ResourceID:   record.ID,
		After: map[string]any{
			"external_code": record.ExternalCode,
			"name":          record.Name,
			"plan":          record.Plan,
			"status":        string(record.Status),
		},
	})

	return &record, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Record, error) {
	record, _, err := s.Resolve(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	row, err := s.loadRow(ctx, record)
	if err != nil {
		return nil, err
	}
	before := row.ToRecord()

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		row.Name = name
		// Re-derive the slug on rename. An explicit slug in req.Settings
		// still wins in the merge below.
		row.Settings[domain.SettingSlug] = slug.Make(name)
	}
	if req.Plan != nil {
		planName := strings.ToLower(strings.TrimSpace(*req.Plan))
		if !s.planSvc.IsKnown(planName) {
			return nil, domain.ErrInvalidPlan
		}
		row.Plan = planName
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		row.Status = *req.Status
	}
	if req.MRR != nil {
		row.MRR = *req.MRR
	}
	for key, value := range req.Settings {
		// The external code is immutable once assigned.
		if key == "" || key == domain.SettingExternalCode {
			continue
		}
		if value == nil {
			delete(row.Settings, key)
			continue
		}
		row.Settings[key] = value
	}
	row.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, row); err != nil {
		return nil, err
	}

	updated := row.ToRecord()
	s.writeFastRecord(ctx, &updated)

	audit.BestEffort(ctx, s.audit, s.log, auditdomain.Entry{
		Action:       "tenant.update",
		ResourceType: "tenant",
		ResourceID:   updated.ID,
		Before:       recordPayload(before),
		After:        recordPayload(updated),
	})

	return &updated, nil
}

// Delete removes the relational row and purges every fast-store key under
// the tenant's prefixes. The relational row is never removed without the
// purge.
func (s *Service) Delete(ctx context.Context, identifier string) error {
	record, _, err := s.Resolve(ctx, identifier)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(record.ID)
	if err != nil {
		return domain.ErrInvalidID
	}

	if err := s.purgeFastKeys(ctx, record); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, s.db, id); err != nil {
		return err
	}

	audit.BestEffort(ctx, s.audit, s.log, auditdomain.Entry{
		Action:       "tenant.delete",
		ResourceType: "tenant",
		ResourceID:   record.ID,
		Before:       recordPayload(*record),
	})

	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	var cursor *pagination.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		cursor = decoded
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.repo.List(ctx, s.db, req, cursor, limit)
	if err != nil {
		return domain.ListResponse{}, err
	}

	records := make([]domain.Record, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].ToRecord())
	}

	pageInfo, records := pagination.BuildCursorPageInfo(records, limit, func(r domain.Record) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: r.ID})
		return token
	})

	return domain.ListResponse{
		PageInfo: *pageInfo,
		Tenants:  records,
	}, nil
}

// loadRow fetches the mutable relational row behind a resolved record.
func (s *Service) loadRow(ctx context.Context, record *domain.Record) (*domain.Tenant, error) {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	row, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	if row.Settings == nil {
		row.Settings = datatypes.JSONMap{}
	}
	return row, nil
}

// writeFastRecord mirrors the normalized record into the fast store.
// Failures are logged and swallowed; the relational row already holds the
// truth.
func (s *Service) writeFastRecord(ctx context.Context, record *domain.Record) {
	if record.ExternalCode == "" {
		return
	}
	raw, err := json.Marshal(record)
	if err != nil {
		s.log.Warn("tenant record marshal failed", zap.String("tenant_id", record.ID), zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, kvstore.TenantKey(record.ExternalCode), raw); err != nil {
		s.log.Warn("fast store tenant write failed",
			zap.String("tenant_id", record.ID),
			zap.String("external_code", record.ExternalCode),
			zap.Error(err))
	}
}

// purgeFastKeys removes the tenant document and every usage ledger entry the
// tenant owns. Usage keys are rebuilt from identity fields embedded in the
// scanned values.
func (s *Service) purgeFastKeys(ctx context.Context, record *domain.Record) error {
	keys := []string{}
	if record.ExternalCode != "" {
		keys = append(keys, kvstore.TenantKey(record.ExternalCode))
	}

	values, err := s.kv.GetByPrefix(ctx, kvstore.UsagePrefix(record.ID))
	if err != nil {
		return err
	}
	for _, raw := range values {
		var usage usagedomain.Record
		if err := json.Unmarshal(raw, &usage); err != nil {
			s.log.Warn("skipping corrupt usage record during purge",
				zap.String("tenant_id", record.ID), zap.Error(err))
			continue
		}
		keys = append(keys, kvstore.UsageKey(usage.TenantID, usage.Period, usage.Metric))
	}

	return s.kv.MDel(ctx, keys...)
}

func recordPayload(record domain.Record) map[string]any {
	return map[string]any{
		"external_code": record.ExternalCode,
		"name":          record.Name,
		"plan":          record.Plan,
		"status":        string(record.Status),
		"mrr":           record.MRR,
	}
}
