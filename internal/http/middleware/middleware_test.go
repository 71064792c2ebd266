package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/wheelitin-backend/internal/pkg/apperror"
)

type stubParser struct {
	id  uuid.UUID
	err error
}

func (s stubParser) ParseAccess(token string) (uuid.UUID, string, error) {
	if token != "good" {
		return uuid.Nil, "", errors.New("bad token")
	}
	return s.id, "user", s.err
}

func serve(r *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()

	r := gin.New()
	r.Use(AuthMiddleware(stubParser{id: userID}))
	r.GET("/me", func(c *gin.Context) {
		got, _ := c.Get(ContextUserIDKey)
		c.String(http.StatusOK, got.(uuid.UUID).String())
	})

	w := serve(r, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer good"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())
}

func TestRateLimitMiddleware_PerUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store, err := NewRateLimitStore(nil)
	require.NoError(t, err)

	first, second := uuid.New(), uuid.New()
	current := first

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserIDKey, current)
		c.Next()
	})
	r.Use(RateLimitMiddleware(store, 2, time.Minute))
	r.POST("/reports", func(c *gin.Context) { c.Status(http.StatusCreated) })

	assert.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/reports", nil).Code)
	assert.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/reports", nil).Code)

	w := serve(r, http.MethodPost, "/reports", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	current = second
	assert.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/reports", nil).Code)
}

func TestUUIDValidator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/reports/:id", UUIDValidator("id"), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/reports/abc", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/reports/"+uuid.NewString(), nil).Code)
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.example"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/x", map[string]string{"Origin": "https://app.example"})
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, http.MethodGet, "/x", map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, http.MethodOptions, "/x", map[string]string{"Origin": "https://app.example"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/missing", func(c *gin.Context) { _ = c.Error(apperror.ErrReportNotFound) })
	r.GET("/boom", func(c *gin.Context) { _ = c.Error(errors.New("sql: connection reset")) })

	w := serve(r, http.MethodGet, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "sql:")
}
