package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	tenantdomain "github.com/innkeephq/innkeep/internal/tenant/domain"
)

func (s *Server) CreateTenant(c *gin.Context) {
	var req tenantdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	record, err := s.tenantSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// GetTenant resolves any identifier form. The response carries the record
// plus which backend answered.
func (s *Server) GetTenant(c *gin.Context) {
	record, source, err := s.tenantSvc.Resolve(c.Request.Context(), c.Param("identifier"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tenant": record,
		"source": source.String(),
	})
}

func (s *Server) UpdateTenant(c *gin.Context) {
	var req tenantdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.ID = c.Param("identifier")

	record, err := s.tenantSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) DeleteTenant(c *gin.Context) {
	if err := s.tenantSvc.Delete(c.Request.Context(), c.Param("identifier")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListTenants(c *gin.Context) {
	var req tenantdomain.ListRequest
	if err := c.ShouldBindQuery(&req.Pagination); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	req.Plan = strings.TrimSpace(c.Query("plan"))
	req.Name = strings.TrimSpace(c.Query("name"))
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := tenantdomain.Status(raw)
		if !status.Valid() {
			AbortWithError(c, tenantdomain.ErrInvalidStatus)
			return
		}
		req.Status = &status
	}

	resp, err := s.tenantSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
