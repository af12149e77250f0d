package api

import (
	"net/http"

	"tourism-booking/internal/domain/reservation"
	reqdto "tourism-booking/internal/handler/dto/request"
	resdto "tourism-booking/internal/handler/dto/response"
	"tourism-booking/internal/handler/httperr"
	"tourism-booking/internal/pkg/config"
	"tourism-booking/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ResourceHandler struct {
	reservations commands.ReservationCommands
	currency     string
}

func NewResourceHandler(reservations commands.ReservationCommands, cfg config.Config) *ResourceHandler {
	return &ResourceHandler{
		reservations: reservations,
		currency:     cfg.Booking.Currency,
	}
}

// @Summary Quote a stay
// @Description Price a stay without reserving it
// @Tags resources
// @Produce json
// @Param id path string true "Resource ID"
// @Param start query string true "Check-in date (YYYY-MM-DD or RFC 3339)"
// @Param end query string true "Check-out date (YYYY-MM-DD or RFC 3339)"
// @Success 200 {object} resdto.QuoteResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /api/resources/{id}/quote [get]
func (h *ResourceHandler) Quote(c *gin.Context) {
	resourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid resource id", nil)
		return
	}

	var q reqdto.QuoteQuery
	if bindErr := c.ShouldBindQuery(&q); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request", nil)
		return
	}
	start, end, err := q.Range()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid date format", nil)
		return
	}

	total, err := h.reservations.Quote(c.Request.Context(), resourceID, start, end)
	if err != nil {
		httperr.AbortWithKind(c, err)
		return
	}

	// Quote already validated the range.
	stay, _ := reservation.NewStay(start, end)
	c.JSON(http.StatusOK, resdto.NewQuoteResponse(resourceID, start, end, stay.Nights(), total, h.currency))
}
