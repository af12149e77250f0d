//go:build unit

package httperr_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tourism-booking/internal/handler/httperr"
	"tourism-booking/internal/pkg/errs"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func abortWith(t *testing.T, err error) (int, httperr.Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	httperr.AbortWithKind(c, err)

	var resp httperr.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestAbortWithKind(t *testing.T) {
	gatewayTimeout := errs.Mark(errs.Wrap(errs.Mark(errs.New("deadline"), errs.ErrTimeout), "initiate payment"), errs.ErrPaymentInitiationFailed)
	gatewayReject := errs.Mark(errs.Wrap(errs.Mark(errs.New("bad request"), errs.ErrGatewayRequest), "initiate payment"), errs.ErrPaymentInitiationFailed)

	testCases := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{name: "not found", err: errs.Mark(errs.New("reservation not found"), errs.ErrNotFound), status: http.StatusNotFound, code: "not_found"},
		{name: "invalid range", err: errs.Mark(errs.New("end before start"), errs.ErrInvalidRange), status: http.StatusBadRequest, code: "invalid_range"},
		{name: "validation", err: errs.Mark(errs.New("too many guests"), errs.ErrValidation), status: http.StatusBadRequest, code: "validation_failed"},
		{name: "conflict", err: errs.Mark(errs.New("dates taken"), errs.ErrConflict), status: http.StatusConflict, code: "conflict"},
		{name: "forbidden", err: errs.Mark(errs.New("not yours"), errs.ErrForbidden), status: http.StatusForbidden, code: "forbidden"},
		{name: "invalid state", err: errs.Mark(errs.New("already paid"), errs.ErrInvalidState), status: http.StatusConflict, code: "invalid_state"},
		{name: "initiation timeout", err: gatewayTimeout, status: http.StatusGatewayTimeout, code: "payment_initiation_failed", retryable: true},
		{name: "initiation rejected", err: gatewayReject, status: http.StatusBadGateway, code: "payment_initiation_failed", retryable: true},
		{name: "status timeout", err: errs.Mark(errs.New("query deadline"), errs.ErrTimeout), status: http.StatusGatewayTimeout, code: "gateway_timeout", retryable: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := abortWith(t, tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, resp.Error.Code)
			assert.Equal(t, tc.retryable, resp.Error.Retryable)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestAbortWithKind_HidesUnclassified(t *testing.T) {
	status, resp := abortWith(t, errs.New("pq: connection refused on 10.0.0.3"))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", resp.Error.Message)
	assert.Empty(t, resp.Error.Code)
}

func TestAbortWithError_KeepsCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	httperr.AbortWithError(c, http.StatusBadRequest, errs.New("bad date"), "Invalid date format", map[string]string{"field": "startDate"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":{"message":"Invalid date format"},"detail":{"field":"startDate"}}`, rec.Body.String())
	require.Len(t, c.Errors, 1)
	assert.True(t, c.IsAborted())
}
