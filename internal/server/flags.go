package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	flagdomain "github.com/innkeephq/innkeep/internal/flag/domain"
)

func (s *Server) UpsertFlag(c *gin.Context) {
	var req flagdomain.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.Key = c.Param("key")

	result, err := s.flagSvc.Upsert(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) GetFlag(c *gin.Context) {
	result, err := s.flagSvc.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) ListFlags(c *gin.Context) {
	req := flagdomain.ListRequest{
		Status: flagdomain.Status(strings.TrimSpace(c.Query("status"))),
		Scope:  flagdomain.Scope(strings.TrimSpace(c.Query("scope"))),
		Order:  c.Query("order"),
	}
	if req.Status != "" && !req.Status.Valid() {
		AbortWithError(c, flagdomain.ErrInvalidStatus)
		return
	}
	if req.Scope != "" && !req.Scope.Valid() {
		AbortWithError(c, flagdomain.ErrInvalidScope)
		return
	}

	var err error
	if req.Offset, err = parseNonNegativeInt(c.Query("offset")); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if req.Limit, err = parseNonNegativeInt(c.Query("limit")); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	flags, err := s.flagSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"flags": flags})
}

func (s *Server) DeleteFlag(c *gin.Context) {
	if err := s.flagSvc.Delete(c.Request.Context(), c.Param("key")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EvaluateFlag answers enablement for one tenant. The tenant identifier is
// resolved first so allow/deny lists and rollout bucketing always see the
// canonical ID, and the plan gate sees the tenant's current plan.
func (s *Server) EvaluateFlag(c *gin.Context) {
	identifier := strings.TrimSpace(c.Query("tenant"))
	if identifier == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	record, _, err := s.tenantSvc.Resolve(c.Request.Context(), identifier)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	enabled := s.flagSvc.IsEnabled(c.Request.Context(), c.Param("key"), record.ID, record.Plan)
	c.JSON(http.StatusOK, gin.H{
		"key":       c.Param("key"),
		"tenant_id": record.ID,
		"enabled":   enabled,
	})
}
