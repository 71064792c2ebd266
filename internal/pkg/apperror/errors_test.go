package apperror

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, ErrReportNotFound.HTTPStatus)
	assert.Equal(t, http.StatusForbidden, ErrForbidden.HTTPStatus)
	assert.Equal(t, http.StatusConflict, Conflict("x").HTTPStatus)
	assert.Equal(t, http.StatusBadRequest, Validation("x").HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, New(ErrCodeDatabaseError, "x").HTTPStatus)
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("report usecase: %w", ErrReportNotFound)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
	assert.ErrorIs(t, wrapped, ErrReportNotFound)
	assert.True(t, IsForbidden(ErrEmailNotVerified))
	assert.Equal(t, ErrCodeInternal, CodeOf(fmt.Errorf("boom")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, ErrCodeDatabaseError, "не удалось сохранить заявку")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
