package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	tenantdomain "github.com/innkeephq/innkeep/internal/tenant/domain"
	usagedomain "github.com/innkeephq/innkeep/internal/usage/domain"
)

// resolveTenant maps the path identifier to the canonical record before any
// ledger call, so the ledger only ever sees canonical tenant IDs.
func (s *Server) resolveTenant(c *gin.Context) (*tenantdomain.Record, bool) {
	record, _, err := s.tenantSvc.Resolve(c.Request.Context(), c.Param("identifier"))
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	return record, true
}

func (s *Server) GetTenantUsage(c *gin.Context) {
	record, ok := s.resolveTenant(c)
	if !ok {
		return
	}

	resp, err := s.usageSvc.Get(c.Request.Context(), record.ID, c.Param("metric"), c.Query("period"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) TenantUsageOverLimit(c *gin.Context) {
	record, ok := s.resolveTenant(c)
	if !ok {
		return
	}

	over, err := s.usageSvc.IsOverLimit(c.Request.Context(), record.ID, c.Param("metric"), c.Query("period"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tenant_id": record.ID,
		"metric":    c.Param("metric"),
		"over":      over,
	})
}

func (s *Server) ListTenantUsage(c *gin.Context) {
	record, ok := s.resolveTenant(c)
	if !ok {
		return
	}

	list, err := s.usageSvc.List(c.Request.Context(), record.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"usage": list})
}

type usageWriteRequest struct {
	Value  float64 `json:"value"`
	Amount float64 `json:"amount"`
	Limit  float64 `json:"limit,omitempty"`
	Period string  `json:"period,omitempty"`
}

func (s *Server) RecordTenantUsage(c *gin.Context) {
	record, ok := s.resolveTenant(c)
	if !ok {
		return
	}

	var req usageWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.usageSvc.Record(c.Request.Context(), usagedomain.RecordRequest{
		TenantID: record.ID,
		Metric:   c.Param("metric"),
		Value:    req.Value,
		Limit:    req.Limit,
		Period:   req.Period,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) IncrementTenantUsage(c *gin.Context) {
	record, ok := s.resolveTenant(c)
	if !ok {
		return
	}

	var req usageWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.usageSvc.Increment(c.Request.Context(), usagedomain.IncrementRequest{
		TenantID: record.ID,
		Metric:   c.Param("metric"),
		Amount:   req.Amount,
		Limit:    req.Limit,
		Period:   req.Period,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ResetTenantUsage(c *gin.Context) {
	record, ok := s.resolveTenant(c)
	if !ok {
		return
	}

	period := strings.TrimSpace(c.Query("period"))
	if err := s.usageSvc.Reset(c.Request.Context(), record.ID, c.Param("metric"), period); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
