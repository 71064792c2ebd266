package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ok := PingFunc(func(ctx context.Context) error { return nil })
	down := PingFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	t.Run("all healthy", func(t *testing.T) {
		r := gin.New()
		r.GET("/health", NewHealthHandler(map[string]Pinger{"database": ok}).Health)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("one dependency down", func(t *testing.T) {
		r := gin.New()
		r.GET("/health", NewHealthHandler(map[string]Pinger{"database": ok, "redis": down}).Health)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, "healthy", resp.Checks["database"])
		assert.Contains(t, resp.Checks["redis"], "connection refused")
	})
}

func TestWSHandler_RejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewWSHandler(nil, nil, nil)
	r.GET("/api/ws", h.Handle)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ws", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
