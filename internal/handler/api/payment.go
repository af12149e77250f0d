package api

import (
	"io"
	"log/slog"
	"net/http"

	reqdto "tourism-booking/internal/handler/dto/request"
	resdto "tourism-booking/internal/handler/dto/response"
	"tourism-booking/internal/handler/httperr"
	"tourism-booking/internal/handler/middleware"
	"tourism-booking/internal/usecase/commands"
	"tourism-booking/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CallbackTokenHeader = "X-Callback-Token"
	callbackTokenQuery  = "token"
	maxCallbackBody     = 64 << 10
)

type PaymentHandler struct {
	cmds commands.PaymentCommands
	q    queries.PaymentQueries
}

func NewPaymentHandler(cmds commands.PaymentCommands, q queries.PaymentQueries) *PaymentHandler {
	return &PaymentHandler{cmds: cmds, q: q}
}

// @Summary Initiate payment
// @Description Send an M-Pesa push prompt to the payer's phone for a reservation
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.InitiatePaymentRequest true "Payment request"
// @Success 201 {object} resdto.InitiatePaymentResponse
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 502 {object} httperr.Response
// @Failure 504 {object} httperr.Response
// @Router /api/payments [post]
func (h *PaymentHandler) Initiate(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errUnauthenticated, "Unauthorized", nil)
		return
	}

	var req reqdto.InitiatePaymentRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request", nil)
		return
	}

	result, err := h.cmds.Initiate(c.Request.Context(), commands.InitiateInput{
		ReservationID: req.ReservationID,
		CallerID:      userID,
		CallerIsAdmin: middleware.IsAdmin(c),
		PhoneNumber:   req.PhoneNumber,
	})
	if err != nil {
		httperr.AbortWithKind(c, err)
		return
	}
	c.JSON(http.StatusCreated, resdto.FromInitiateResult(result))
}

// @Summary Payment status
// @Description Poll the provider for a pending payment and reconcile the answer
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param checkoutRequestId path string true "Checkout request ID"
// @Success 200 {object} resdto.PaymentResponse
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 504 {object} httperr.Response
// @Router /api/payments/status/{checkoutRequestId} [get]
func (h *PaymentHandler) Status(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errUnauthenticated, "Unauthorized", nil)
		return
	}
	checkoutID := c.Param("checkoutRequestId")

	p, err := h.cmds.CheckStatus(c.Request.Context(), checkoutID, userID, middleware.IsAdmin(c))
	if err != nil {
		httperr.AbortWithKind(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromPayment(p))
}

// @Summary List a user's payments
// @Description Newest first, keyset paginated. Self or admin only.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param after query string false "Cursor from the previous page"
// @Param limit query int false "Page size (1-100)"
// @Success 200 {object} resdto.PaymentListResponse
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Router /api/users/{id}/payments [get]
func (h *PaymentHandler) ListByUser(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errUnauthenticated, "Unauthorized", nil)
		return
	}
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid user id", nil)
		return
	}
	var q reqdto.PageQuery
	if bindErr := c.ShouldBindQuery(&q); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request", nil)
		return
	}

	var after *queries.Cursor
	if q.After != "" {
		after = &queries.Cursor{After: q.After}
	}
	views, next, err := h.q.ListByUser(c.Request.Context(), callerID, middleware.IsAdmin(c), userID, after, q.Limit)
	if err != nil {
		httperr.AbortWithKind(c, err)
		return
	}

	items, err := resdto.FromPaymentViews(views)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	resp := resdto.PaymentListResponse{Payments: items}
	if next != nil {
		resp.NextCursor = &next.After
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary M-Pesa callback
// @Description Provider webhook. Always acknowledged; failures are only logged.
// @Tags payments
// @Accept json
// @Produce json
// @Success 200 {object} commands.CallbackAck
// @Router /api/payments/callback [post]
func (h *PaymentHandler) Callback(c *gin.Context) {
	token := c.GetHeader(CallbackTokenHeader)
	if token == "" {
		token = c.Query(callbackTokenQuery)
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxCallbackBody))
	if err != nil {
		slog.Warn("payment callback body unreadable", "error", err.Error())
		c.JSON(http.StatusOK, commands.SuccessAck)
		return
	}

	c.JSON(http.StatusOK, h.cmds.HandleCallback(c.Request.Context(), body, token))
}
