package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	tenantdomain "github.com/innkeephq/innkeep/internal/tenant/domain"
	usagedomain "github.com/innkeephq/innkeep/internal/usage/domain"
)

func TestMapError(t *testing.T) {
	status, payload := mapError(tenantdomain.ErrInvalidName)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", payload.Type)
	assert.Equal(t, "name", payload.Errors[0].Field)

	status, payload = mapError(usagedomain.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", payload.Type)

	status, payload = mapError(tenantdomain.ErrExternalCodeTaken)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", payload.Type)

	status, _ = mapError(gorm.ErrDuplicatedKey)
	assert.Equal(t, http.StatusConflict, status)

	status, payload = mapError(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", payload.Type)
}

func TestClassifyErrorForLog(t *testing.T) {
	family, code := classifyErrorForLog(tenantdomain.ErrExternalCodeTaken)
	assert.Equal(t, "conflict", family)
	assert.Equal(t, "external_code_taken", code)

	family, _ = classifyErrorForLog(assert.AnError)
	assert.Equal(t, "internal_error", family)
}
