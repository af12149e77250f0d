//go:build unit

package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	nethttptest "net/http/httptest"
	"testing"

	"tourism-booking/internal/domain/user"
	"tourism-booking/internal/handler/httperr"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const adminHeader = "X-Test-Admin"

// fakeAuth stands in for the JWT middleware: any bearer token authenticates as userID,
// and the admin header upgrades the role.
func fakeAuth(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Unauthorized"}})
			return
		}
		role := user.RoleUser
		if c.GetHeader(adminHeader) != "" {
			role = user.RoleAdmin
		}
		c.Set("user_id", userID)
		c.Set("user_role", role)
		c.Next()
	}
}

func decodeError(t *testing.T, rec *nethttptest.ResponseRecorder) httperr.Response {
	t.Helper()
	var resp httperr.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	gin.EnableJsonDecoderDisallowUnknownFields()
	return gin.New()
}

// performWithHeaders authenticates with a dummy bearer token and adds extra headers.
func performWithHeaders(t *testing.T, router *gin.Engine, method, path string, body io.Reader, headers map[string]string) *nethttptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = http.NoBody
	}
	req := nethttptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer bearer-token")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := nethttptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func performCallback(t *testing.T, router *gin.Engine, path string, body any, headers map[string]string) *nethttptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := nethttptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := nethttptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
