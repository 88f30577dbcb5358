package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/innkeephq/innkeep/internal/audit/domain"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	var req auditdomain.ListRequest
	if err := c.ShouldBindQuery(&req.Pagination); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	req.Action = strings.TrimSpace(c.Query("action"))
	req.ResourceType = strings.TrimSpace(c.Query("resource_type"))
	req.ResourceID = strings.TrimSpace(c.Query("resource_id"))
	req.Actor = strings.TrimSpace(c.Query("actor"))

	startAt, err := parseOptionalTime(c.Query("start_at"), false)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	endAt, err := parseOptionalTime(c.Query("end_at"), true)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.StartAt = startAt
	req.EndAt = endAt

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
