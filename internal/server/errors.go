package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	auditdomain "github.com/innkeephq/innkeep/internal/audit/domain"
	flagdomain "github.com/innkeephq/innkeep/internal/flag/domain"
	plandomain "github.com/innkeephq/innkeep/internal/plan/domain"
	tenantdomain "github.com/innkeephq/innkeep/internal/tenant/domain"
	usagedomain "github.com/innkeephq/innkeep/internal/usage/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrNotFound           = errors.New("not_found")
	ErrInternal           = errors.New("internal_error")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// ErrorHandlingMiddleware renders the last collected error once the handler
// chain finishes, unless a handler already wrote a response.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: validationErrorField(code), Code: code, Message: "invalid value"},
			},
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, tenantdomain.ErrInvalidName),
		errors.Is(err, tenantdomain.ErrInvalidPlan),
		errors.Is(err, tenantdomain.ErrInvalidStatus),
		errors.Is(err, tenantdomain.ErrInvalidID),
		errors.Is(err, tenantdomain.ErrInvalidPageToken),
		errors.Is(err, usagedomain.ErrInvalidTenant),
		errors.Is(err, usagedomain.ErrInvalidMetric),
		errors.Is(err, usagedomain.ErrInvalidValue),
		errors.Is(err, usagedomain.ErrInvalidPeriod),
		errors.Is(err, flagdomain.ErrInvalidKey),
		errors.Is(err, flagdomain.ErrInvalidStatus),
		errors.Is(err, flagdomain.ErrInvalidScope),
		errors.Is(err, flagdomain.ErrInvalidRollout),
		errors.Is(err, plandomain.ErrInvalidPlan),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, tenantdomain.ErrExternalCodeTaken),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, tenantdomain.ErrNotFound),
		errors.Is(err, usagedomain.ErrNotFound),
		errors.Is(err, flagdomain.ErrNotFound),
		errors.Is(err, plandomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_name":
		return "name"
	case "invalid_plan":
		return "plan"
	case "invalid_status":
		return "status"
	case "invalid_id":
		return "id"
	case "invalid_page_token":
		return "page_token"
	case "invalid_tenant":
		return "tenant_id"
	case "invalid_metric":
		return "metric"
	case "invalid_value":
		return "value"
	case "invalid_period":
		return "period"
	case "invalid_key":
		return "key"
	case "invalid_scope":
		return "scope"
	case "invalid_rollout":
		return "rollout_percentage"
	case "invalid_time_range":
		return "start_at"
	default:
		return "request"
	}
}

// classifyErrorForLog tags request-log lines with an error family and code.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case isValidationError(err):
		return "validation_error", err.Error()
	case isNotFoundError(err):
		return "not_found", "not_found"
	case isConflictError(err):
		return "conflict", err.Error()
	case errors.Is(err, ErrServiceUnavailable):
		return "service_unavailable", "service_unavailable"
	default:
		return "internal_error", "internal_error"
	}
}
