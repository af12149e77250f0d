//go:build unit

package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tourism-booking/internal/domain/user"
	"tourism-booking/internal/handler/httperr"
	"tourism-booking/internal/handler/middleware"
	"tourism-booking/internal/pkg/config"
	"tourism-booking/internal/pkg/errs"
	usecasemock "tourism-booking/tests/mock/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	validator := usecasemock.NewMockTokenValidator(ctrl)
	auth := middleware.NewAuthMiddleware(validator)

	engine := gin.New()
	engine.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		id, _ := middleware.GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id.String(), "admin": middleware.IsAdmin(c)})
	})

	t.Run("missing bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Basic abc")

		rec := serve(engine, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		validator.EXPECT().ValidateToken("bad").Return(uuid.Nil, user.Role(""), errs.New("invalid token"))

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer bad")

		rec := serve(engine, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid admin token", func(t *testing.T) {
		id := uuid.New()
		validator.EXPECT().ValidateToken("good").Return(id, user.RoleAdmin, nil)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer  good ")

		rec := serve(engine, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			ID    string `json:"id"`
			Admin bool   `json:"admin"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, id.String(), body.ID)
		assert.True(t, body.Admin)
	})
}

func TestIsAdmin_WithoutRole(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.False(t, middleware.IsAdmin(c))
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	logger := middleware.NewLogger(config.NewTestConfig().Log)

	engine := gin.New()
	engine.Use(logger.LoggingMiddleware())
	engine.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, middleware.GetRequestID(c))
	})

	t.Run("keeps an upstream id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(middleware.RequestIDHeader, "edge-123")

		rec := serve(engine, req)
		assert.Equal(t, "edge-123", rec.Body.String())
		assert.Equal(t, "edge-123", rec.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("replaces an unusable upstream id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(middleware.RequestIDHeader, strings.Repeat("x", 65))

		rec := serve(engine, req)
		got := rec.Header().Get(middleware.RequestIDHeader)
		assert.NotEmpty(t, got)
		assert.NotEqual(t, strings.Repeat("x", 65), got)
		assert.Equal(t, got, rec.Body.String())
	})
}

func TestErrorHandler(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.ErrorHandler())
	engine.GET("/deferred", func(c *gin.Context) {
		resp := httperr.Response{Status: http.StatusConflict}
		resp.Error.Message = "slot taken"
		_ = c.Error(gin.Error{Err: errs.New("conflict"), Type: gin.ErrorTypePublic, Meta: resp})
	})
	engine.GET("/private", func(c *gin.Context) {
		_ = c.Error(errs.New("boom"))
	})

	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/deferred", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "slot taken")

	rec = serve(engine, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestCustomRecovery(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.CustomRecovery())
	engine.GET("/panic", func(*gin.Context) { panic("kaboom") })

	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp httperr.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal", resp.Error.Code)
	assert.NotContains(t, rec.Body.String(), "kaboom")
}

type observation struct {
	method, route string
	status        int
}

type recordingObserver struct {
	mu  sync.Mutex
	got []observation
}

func (r *recordingObserver) ObserveHTTP(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, observation{method, route, status})
}

func TestRequestMetrics(t *testing.T) {
	obs := &recordingObserver{}
	engine := gin.New()
	engine.Use(middleware.RequestMetrics(obs))
	engine.GET("/api/reservations/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	serve(engine, httptest.NewRequest(http.MethodGet, "/api/reservations/"+uuid.NewString(), nil))
	serve(engine, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, []observation{
		{http.MethodGet, "/api/reservations/:id", http.StatusNoContent},
		{http.MethodGet, "unmatched", http.StatusNotFound},
	}, obs.got)
}
