package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditrepository "github.com/innkeephq/innkeep/internal/audit/repository"
	auditservice "github.com/innkeephq/innkeep/internal/audit/service"
	"github.com/innkeephq/innkeep/internal/clock"
	"github.com/innkeephq/innkeep/internal/config"
	flagservice "github.com/innkeephq/innkeep/internal/flag/service"
	"github.com/innkeephq/innkeep/internal/kvstore"
	"github.com/innkeephq/innkeep/internal/migration"
	"github.com/innkeephq/innkeep/internal/plan/limits"
	planrepository "github.com/innkeephq/innkeep/internal/plan/repository"
	planservice "github.com/innkeephq/innkeep/internal/plan/service"
	"github.com/innkeephq/innkeep/internal/seed"
	tenantrepository "github.com/innkeephq/innkeep/internal/tenant/repository"
	tenantservice "github.com/innkeephq/innkeep/internal/tenant/service"
	usageservice "github.com/innkeephq/innkeep/internal/usage/service"
)

// newTestServer wires the full stack over an in-memory database and fast
// store, without the fx container.
func newTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))
	require.NoError(t, seed.EnsureDefaults(db))

	log := zap.NewNop()
	kv := kvstore.NewMemoryStore()
	fake := clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	holder, err := limits.NewHolder(log)
	require.NoError(t, err)

	auditSvc := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Clock: fake, Repo: auditrepository.Provide(),
	})
	planSvc := planservice.New(planservice.Params{
		DB: db, Log: log, Repo: planrepository.Provide(), Profiles: holder,
	})
	tenantSvc := tenantservice.New(tenantservice.Params{
		DB: db, Log: log, KV: kv, Clock: fake,
		Repo: tenantrepository.Provide(), PlanSvc: planSvc, Audit: auditSvc,
	})
	usageSvc := usageservice.New(usageservice.Params{
		Log: log, KV: kv, Clock: fake, TenantSvc: tenantSvc, PlanSvc: planSvc,
	})
	flagSvc := flagservice.New(flagservice.Params{
		Log: log, KV: kv, Clock: fake, Audit: auditSvc,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:       engine,
		Cfg:       config.Config{Environment: "test"},
		DB:        db,
		TenantSvc: tenantSvc,
		UsageSvc:  usageSvc,
		FlagSvc:   flagSvc,
		PlanSvc:   planSvc,
		AuditSvc:  auditSvc,
	})
	return srv, engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestTenantEndpoints(t *testing.T) {
	_, engine := newTestServer(t)

	w := doJSON(t, engine, http.MethodPost, "/admin/api/tenants", map[string]any{
		"name": "Harbor View Inn",
		"plan": "standard",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody(t, w)
	assert.Equal(t, "T-1", created["external_code"])
	tenantID := created["id"].(string)

	// Any identifier form resolves to the same tenant.
	for _, identifier := range []string{"T-1", tenantID} {
		w = doJSON(t, engine, http.MethodGet, "/admin/api/tenants/"+identifier, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		tenant := body["tenant"].(map[string]any)
		assert.Equal(t, tenantID, tenant["id"])
	}

	w = doJSON(t, engine, http.MethodGet, "/admin/api/tenants/T-404", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeBody(t, w)["error"].(map[string]any)["type"])

	w = doJSON(t, engine, http.MethodPost, "/admin/api/tenants", map[string]any{
		"name": "Bad Plan Inn", "plan": "platinum",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decodeBody(t, w)["error"].(map[string]any)["type"])

	w = doJSON(t, engine, http.MethodDelete, "/admin/api/tenants/T-1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/admin/api/tenants/T-1", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUsageEndpoints(t *testing.T) {
	_, engine := newTestServer(t)

	w := doJSON(t, engine, http.MethodPost, "/admin/api/tenants", map[string]any{
		"name": "Harbor View Inn",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/admin/api/tenants/T-1/usage/api_calls/increment", map[string]any{
		"amount": 5,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, engine, http.MethodPost, "/admin/api/tenants/T-1/usage/api_calls/increment", map[string]any{
		"amount": 3,
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, 8.0, body["current"])
	assert.Equal(t, 10000.0, body["limit"], "limit derived from the basic plan catalog row")

	w = doJSON(t, engine, http.MethodGet, "/admin/api/tenants/T-1/usage/api_calls", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2026-03", decodeBody(t, w)["period"])

	w = doJSON(t, engine, http.MethodGet, "/admin/api/tenants/T-1/usage/api_calls/over_limit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["over"])

	w = doJSON(t, engine, http.MethodGet, "/admin/api/tenants/T-1/usage", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["usage"], 1)

	w = doJSON(t, engine, http.MethodDelete, "/admin/api/tenants/T-1/usage/api_calls?period=2026-03", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/admin/api/tenants/T-1/usage/api_calls", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlagEndpoints(t *testing.T) {
	_, engine := newTestServer(t)

	w := doJSON(t, engine, http.MethodPost, "/admin/api/tenants", map[string]any{
		"name": "Harbor View Inn", "plan": "premium",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, engine, http.MethodPut, "/admin/api/flags/new-dashboard", map[string]any{
		"status": "enabled",
		"plans":  []string{"premium"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, engine, http.MethodGet, "/admin/api/flags/new-dashboard/evaluate?tenant=T-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["enabled"])

	w = doJSON(t, engine, http.MethodGet, "/admin/api/flags", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["flags"], 1)

	w = doJSON(t, engine, http.MethodGet, "/admin/api/flags?offset=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["flags"])

	w = doJSON(t, engine, http.MethodGet, "/admin/api/flags?limit=abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, engine, http.MethodPut, "/admin/api/flags/bad", map[string]any{
		"status": "enabled", "rollout_percentage": 250,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, engine, http.MethodDelete, "/admin/api/flags/new-dashboard", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/admin/api/flags/new-dashboard", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlanAndAuditEndpoints(t *testing.T) {
	_, engine := newTestServer(t)

	w := doJSON(t, engine, http.MethodGet, "/admin/api/plans", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["plans"], 4)

	w = doJSON(t, engine, http.MethodGet, "/admin/api/plans/basic", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "basic", decodeBody(t, w)["name"])

	w = doJSON(t, engine, http.MethodPost, "/admin/api/tenants", map[string]any{
		"name": "Harbor View Inn",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/admin/api/audit_logs?action=tenant.create", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["audit_logs"], 1)
}
