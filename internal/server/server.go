package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/innkeephq/innkeep/internal/audit"
	auditdomain "github.com/innkeephq/innkeep/internal/audit/domain"
	"github.com/innkeephq/innkeep/internal/clock"
	"github.com/innkeephq/innkeep/internal/config"
	"github.com/innkeephq/innkeep/internal/flag"
	flagdomain "github.com/innkeephq/innkeep/internal/flag/domain"
	"github.com/innkeephq/innkeep/internal/kvstore"
	"github.com/innkeephq/innkeep/internal/observability"
	obslogger "github.com/innkeephq/innkeep/internal/observability/logger"
	obsmetrics "github.com/innkeephq/innkeep/internal/observability/metrics"
	"github.com/innkeephq/innkeep/internal/plan"
	plandomain "github.com/innkeephq/innkeep/internal/plan/domain"
	"github.com/innkeephq/innkeep/internal/tenant"
	tenantdomain "github.com/innkeephq/innkeep/internal/tenant/domain"
	"github.com/innkeephq/innkeep/internal/usage"
	usagedomain "github.com/innkeephq/innkeep/internal/usage/domain"
)

var Module = fx.Module("http.server",
	config.Module,
	observability.Module,
	clock.Module,
	kvstore.Module,
	audit.Module,
	plan.Module,
	tenant.Module,
	usage.Module,
	flag.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, metrics *obsmetrics.Metrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           !cfg.IsProduction(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obsmetrics.GinMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, metrics *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(cfg, metrics)
}

func run(lc fx.Lifecycle, log *zap.Logger, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	db        *gorm.DB
	tenantSvc tenantdomain.Service
	usageSvc  usagedomain.Ledger
	flagSvc   flagdomain.Service
	planSvc   plandomain.Service
	auditSvc  auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	DB        *gorm.DB
	TenantSvc tenantdomain.Service
	UsageSvc  usagedomain.Ledger
	FlagSvc   flagdomain.Service
	PlanSvc   plandomain.Service
	AuditSvc  auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		db:        p.DB,
		tenantSvc: p.TenantSvc,
		usageSvc:  p.UsageSvc,
		flagSvc:   p.FlagSvc,
		planSvc:   p.PlanSvc,
		auditSvc:  p.AuditSvc,
	}

	svc.registerAdminRoutes()

	return svc
}

func (s *Server) registerAdminRoutes() {
	api := s.engine.Group("/admin/api")

	// -------- Tenants --------
	api.GET("/tenants", s.ListTenants)
	api.POST("/tenants", s.CreateTenant)
	api.GET("/tenants/:identifier", s.GetTenant)
	api.PATCH("/tenants/:identifier", s.UpdateTenant)
	api.DELETE("/tenants/:identifier", s.DeleteTenant)

	// -------- Usage --------
	api.GET("/tenants/:identifier/usage", s.ListTenantUsage)
	api.GET("/tenants/:identifier/usage/:metric", s.GetTenantUsage)
	api.GET("/tenants/:identifier/usage/:metric/over_limit", s.TenantUsageOverLimit)
	api.POST("/tenants/:identifier/usage/:metric", s.RecordTenantUsage)
	api.POST("/tenants/:identifier/usage/:metric/increment", s.IncrementTenantUsage)
	api.DELETE("/tenants/:identifier/usage/:metric", s.ResetTenantUsage)

	// -------- Feature flags --------
	api.GET("/flags", s.ListFlags)
	api.PUT("/flags/:key", s.UpsertFlag)
	api.GET("/flags/:key", s.GetFlag)
	api.DELETE("/flags/:key", s.DeleteFlag)
	api.GET("/flags/:key/evaluate", s.EvaluateFlag)

	// -------- Plans --------
	api.GET("/plans", s.ListPlans)
	api.GET("/plans/:name", s.GetPlan)

	// -------- Audit trail --------
	api.GET("/audit_logs", s.ListAuditLogs)
}
