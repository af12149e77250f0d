package httperr

import (
	"net/http"

	"tourism-booking/internal/pkg/errs"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Message   string `json:"message"`
		Code      string `json:"code,omitempty"`
		Retryable bool   `json:"retryable,omitempty"`
	} `json:"error"`
	Detail any `json:"detail,omitempty"`
}

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, err error, msg string, detail any) {
	if err == nil {
		panic("AbortWithError: err cannot be nil")
	}

	resp := Response{Status: status}
	resp.Error.Message = msg
	resp.Detail = detail

	abort(c, err, resp)
}

type classification struct {
	kind   error
	status int
	code   string
}

// Order matters: initiation failures also carry the gateway kind that caused them.
var classifications = []classification{
	{errs.ErrNotFound, http.StatusNotFound, "not_found"},
	{errs.ErrInvalidRange, http.StatusBadRequest, "invalid_range"},
	{errs.ErrValidation, http.StatusBadRequest, "validation_failed"},
	{errs.ErrConflict, http.StatusConflict, "conflict"},
	{errs.ErrForbidden, http.StatusForbidden, "forbidden"},
	{errs.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{errs.ErrPaymentInitiationFailed, http.StatusBadGateway, "payment_initiation_failed"},
	{errs.ErrTimeout, http.StatusGatewayTimeout, "gateway_timeout"},
	{errs.ErrGatewayAuth, http.StatusBadGateway, "gateway_auth"},
	{errs.ErrGatewayRequest, http.StatusBadGateway, "gateway_request"},
}

// AbortWithKind maps a use case error to its HTTP status by kind. Unclassified
// errors become a 500 without leaking their message.
func AbortWithKind(c *gin.Context, err error) {
	if err == nil {
		panic("AbortWithKind: err cannot be nil")
	}

	resp := Response{Status: http.StatusInternalServerError}
	resp.Error.Message = "Internal server error"

	for _, cl := range classifications {
		if !errs.Is(err, cl.kind) {
			continue
		}
		resp.Status = cl.status
		resp.Error.Message = err.Error()
		resp.Error.Code = cl.code
		resp.Error.Retryable = errs.IsRetryable(err)
		if cl.kind == errs.ErrPaymentInitiationFailed && errs.Is(err, errs.ErrTimeout) {
			resp.Status = http.StatusGatewayTimeout
		}
		if details := errs.Details(err); len(details) > 0 {
			resp.Detail = details
		}
		break
	}

	abort(c, err, resp)
}

func abort(c *gin.Context, err error, resp Response) {
	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(resp.Status, resp)
}
