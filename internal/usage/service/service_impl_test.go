package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/innkeephq/innkeep/internal/clock"
	"github.com/innkeephq/innkeep/internal/kvstore"
	plandomain "github.com/innkeephq/innkeep/internal/plan/domain"
	tenantdomain "github.com/innkeephq/innkeep/internal/tenant/domain"
	"github.com/innkeephq/innkeep/internal/usage/domain"
)

type stubTenantService struct {
	records map[string]*tenantdomain.Record
	err     error
}

func (s *stubTenantService) Resolve(_ context.Context, identifier string) (*tenantdomain.Record, tenantdomain.Source, error) {
	if s.err != nil {
		return nil, tenantdomain.SourceNone, s.err
	}
	if record, ok := s.records[identifier]; ok {
		return record, tenantdomain.SourceFast, nil
	}
	return nil, tenantdomain.SourceNone, tenantdomain.ErrNotFound
}

func (s *stubTenantService) Create(context.Context, tenantdomain.CreateRequest) (*tenantdomain.Record, error) {
	panic("not used")
}

func (s *stubTenantService) Update(context.Context, tenantdomain.UpdateRequest) (*tenantdomain.Record, error) {
	panic("not used")
}

func (s *stubTenantService) Delete(context.Context, string) error { panic("not used") }

func (s *stubTenantService) List(context.Context, tenantdomain.ListRequest) (tenantdomain.ListResponse, error) {
	panic("not used")
}

type stubPlanService struct {
	limits map[string]map[string]float64
}

func (s *stubPlanService) LimitFor(_ context.Context, planName, metric string) float64 {
	return s.limits[planName][metric]
}

func (s *stubPlanService) Get(context.Context, string) (*plandomain.Response, error) {
	panic("not used")
}

func (s *stubPlanService) List(context.Context) ([]plandomain.Response, error) { panic("not used") }

func (s *stubPlanService) IsKnown(name string) bool { return name != "" }

func newTestLedger(t *testing.T, now time.Time) (domain.Ledger, *kvstore.MemoryStore, *clock.FakeClock, *stubPlanService, *stubTenantService) {
	t.Helper()

	kv := kvstore.NewMemoryStore()
	fake := clock.NewFakeClock(now)
	plans := &stubPlanService{limits: map[string]map[string]float64{
		"basic":    {"api_calls": 100, "bookings": 50},
		"standard": {"api_calls": 1000, "bookings": 500},
	}}
	tenants := &stubTenantService{records: map[string]*tenantdomain.Record{
		"tenant-1": {ID: "tenant-1", ExternalCode: "T-1", Plan: "basic"},
	}}

	ledger := New(Params{
		Log:       zap.NewNop(),
		KV:        kv,
		Clock:     fake,
		TenantSvc: tenants,
		PlanSvc:   plans,
	})
	return ledger, kv, fake, plans, tenants
}

func TestLedger_RecordFirstWrite(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ledger, _, _, _, _ := newTestLedger(t, now)

	resp, err := ledger.Record(context.Background(), domain.RecordRequest{
		TenantID: "tenant-1",
		Metric:   "api_calls",
		Value:    50,
	})
	require.NoError(t, err)

	assert.Equal(t, "2026-03", resp.Period)
	assert.Equal(t, 50.0, resp.Current)
	assert.Equal(t, 100.0, resp.Limit, "limit derived from the tenant's plan")
	assert.Equal(t, 50, resp.Percentage)
	assert.Equal(t, map[string]float64{"2026-03-10": 50}, resp.Daily)
}

func TestLedger_IncrementAccumulates(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ledger, _, _, _, _ := newTestLedger(t, now)

	ctx := context.Background()
	_, err := ledger.Increment(ctx, domain.IncrementRequest{TenantID: "tenant-1", Metric: "api_calls", Amount: 5})
	require.NoError(t, err)

	resp, err := ledger.Increment(ctx, domain.IncrementRequest{TenantID: "tenant-1", Metric: "api_calls", Amount: 3})
	require.NoError(t, err)

	assert.Equal(t, 8.0, resp.Current)
	assert.Equal(t, 8, resp.Percentage)
}

func TestLedger_PeriodRollover(t *testing.T) {
	now := time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)
	ledger, _, fake, _, _ := newTestLedger(t, now)

	ctx := context.Background()
	_, err := ledger.Increment(ctx, domain.IncrementRequest{TenantID: "tenant-1", Metric: "api_calls", Amount: 90})
	require.NoError(t, err)

	// Cross the month boundary; the next write starts a fresh record.
	fake.Advance(2 * time.Hour)

	resp, err := ledger.Increment(ctx, domain.IncrementRequest{TenantID: "tenant-1", Metric: "api_calls", Amount: 10})
	require.NoError(t, err)
	assert.Equal(t, "2026-04", resp.Period)
	assert.Equal(t, 10.0, resp.Current)

	// The old period is untouched and still addressable.
	old, err := ledger.Get(ctx, "tenant-1", "api_calls", "2026-03")
	require.NoError(t, err)
	assert.Equal(t, 90.0, old.Current)
}

func TestLedger_StickyLimit(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ledger, _, _, plans, _ := newTestLedger(t, now)

	ctx := context.Background()
	_, err := ledger.Record(ctx, domain.RecordRequest{TenantID: "tenant-1", Metric: "api_calls", Value: 10})
	require.NoError(t, err)

	// Plan quota changes mid-period; the write path keeps the captured limit.
	plans.limits["basic"]["api_calls"] = 500

	resp, err := ledger.Increment(ctx, domain.IncrementRequest{TenantID: "tenant-1", Metric: "api_calls", Amount: 10})
	require.NoError(t, err)
	assert.Equal(t, 100.0, resp.Limit, "increment keeps the sticky limit")

	// The read path reconciles the drift and persists the rewrite.
	got, err := ledger.Get(ctx, "tenant-1", "api_calls", "")
	require.NoError(t, err)
	assert.Equal(t, 500.0, got.Limit)

	again, err := ledger.Increment(ctx, domain.IncrementRequest{TenantID: "tenant-1", Metric: "api_calls", Amount: 1})
	require.NoError(t, err)
	assert.Equal(t, 500.0, again.Limit, "reconciled limit sticks for later writes")
}

func TestLedger_ExplicitLimitWins(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ledger, _, _, _, _ := newTestLedger(t, now)

	resp, err := ledger.Record(context.Background(), domain.RecordRequest{
		TenantID: "tenant-1",
		Metric:   "api_calls",
		Value:    1,
		Limit:    42,
	})
	require.NoError(t, err)
	assert.Equal(t, 42.0, resp.Limit)
}

func TestLedger_IsOverLimit(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ledger, _, _, _, _ := newTestLedger(t, now)
	ctx := context.Background()

	over, err := ledger.IsOverLimit(ctx, "tenant-1", "api_calls", "")
	require.NoError(t, err)
	assert.False(t, over, "missing record is never over limit")

	_, err = ledger.Record(ctx, domain.RecordRequest{TenantID: "tenant-1", Metric: "api_calls", Value: 99})
	require.NoError(t, err)
	over, err = ledger.IsOverLimit(ctx, "tenant-1", "api_calls", "")
	require.NoError(t, err)
	assert.False(t, over)

	// current == limit counts as over.
	_, err = ledger.Record(ctx, domain.RecordRequest{TenantID: "tenant-1", Metric: "api_calls", Value: 100})
	require.NoError(t, err)
	over, err = ledger.IsOverLimit(ctx, "tenant-1", "api_calls", "")
	require.NoError(t, err)
	assert.True(t, over)
}

func TestLedger_PercentageCaps(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ledger, _, _, _, _ := newTestLedger(t, now)

	resp, err := ledger.Record(context.Background(), domain.RecordRequest{
		TenantID: "tenant-1",
		Metric:   "api_calls",
		Value:    250,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, resp.Percentage)
}

func TestLedger_UnknownTenantHasNoLimit(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ledger, _, _, _, _ := newTestLedger(t, now)

	resp, err := ledger.Record(context.Background(), domain.RecordRequest{
		TenantID: "ghost",
		Metric:   "api_calls",
		Value:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, resp.Limit)
	assert.Equal(t, 0, resp.Percentage)

	over, err := ledger.IsOverLimit(context.Background(), "ghost", "api_calls", "")
	require.NoError(t, err)
	assert.False(t, over, "zero limit means unlimited")
}

func TestLedger_DailyBreakdown(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ledger, _, fake, _, _ := newTestLedger(t, now)
	ctx := context.Background()

	_, err := ledger.Increment(ctx, domain.IncrementRequest{TenantID: "tenant-1", Metric: "api_calls", Amount: 5})
	require.NoError(t, err)

	fake.Advance(24 * time.Hour)
	resp, err := ledger.Increment(ctx, domain.IncrementRequest{TenantID: "tenant-1", Metric: "api_calls", Amount: 7})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		"2026-03-10": 5,
		"2026-03-11": 12,
	}, resp.Daily)
}

func TestLedger_ListAndReset(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ledger, kv, _, _, _ := newTestLedger(t, now)
	ctx := context.Background()

	_, err := ledger.Record(ctx, domain.RecordRequest{TenantID: "tenant-1", Metric: "bookings", Value: 3})
	require.NoError(t, err)
	_, err = ledger.Record(ctx, domain.RecordRequest{TenantID: "tenant-1", Metric: "api_calls", Value: 5, Period: "2026-02"})
	require.NoError(t, err)
	_, err = ledger.Record(ctx, domain.RecordRequest{TenantID: "tenant-1", Metric: "api_calls", Value: 9})
	require.NoError(t, err)

	list, err := ledger.List(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "2026-03", list[0].Period)
	assert.Equal(t, "api_calls", list[0].Metric)
	assert.Equal(t, "bookings", list[1].Metric)
	assert.Equal(t, "2026-02", list[2].Period)

	require.NoError(t, ledger.Reset(ctx, "tenant-1", "api_calls", "2026-03"))
	list, err = ledger.List(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// Reset removed exactly one key.
	assert.Equal(t, 2, kv.Len())

	_, err = ledger.Get(ctx, "tenant-1", "api_calls", "2026-03")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedger_Validation(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ledger, _, _, _, _ := newTestLedger(t, now)
	ctx := context.Background()

	_, err := ledger.Record(ctx, domain.RecordRequest{Metric: "api_calls", Value: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)

	_, err = ledger.Record(ctx, domain.RecordRequest{TenantID: "tenant-1", Value: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidMetric)

	_, err = ledger.Record(ctx, domain.RecordRequest{TenantID: "tenant-1", Metric: "api_calls", Value: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidValue)

	_, err = ledger.Increment(ctx, domain.IncrementRequest{TenantID: "tenant-1", Metric: "api_calls", Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidValue)

	_, err = ledger.Get(ctx, "tenant-1", "api_calls", "2026-3")
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)

	_, err = ledger.Get(ctx, "tenant-1", "api_calls", "2026-13")
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}
