package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"tourism-booking/internal/handler/api"
	"tourism-booking/internal/handler/middleware"
	"tourism-booking/internal/infra/metrics"
	"tourism-booking/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

type Handlers struct {
	Resource    *api.ResourceHandler
	Reservation *api.ReservationHandler
	Payment     *api.PaymentHandler
}

func NewHandlers(resource *api.ResourceHandler, reservation *api.ReservationHandler, payment *api.PaymentHandler) Handlers {
	return Handlers{Resource: resource, Reservation: reservation, Payment: payment}
}

func NewRouter(
	engine *gin.Engine,
	cfg config.Config,
	logger *middleware.Logger,
	prom *metrics.Prometheus,
	handlers Handlers,
	authMiddleware *middleware.AuthMiddleware,
) {
	setupMiddleware(engine, cfg, logger, prom)
	setupRoutes(engine, prom, handlers, authMiddleware)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config, logger *middleware.Logger, prom *metrics.Prometheus) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(logger.LoggingMiddleware())
	engine.Use(middleware.RequestMetrics(prom))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, prom *metrics.Prometheus, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	engine.GET("/health", healthCheck)
	engine.GET("/metrics", gin.WrapH(prom.Handler()))

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	requireAuth := authMiddleware.RequireAuth()

	apiGroup := engine.Group("/api")
	{
		resources := apiGroup.Group("/resources")
		addRoutes(resources, []route{
			{Method: http.MethodGet, Path: "/:id/quote", Handler: h.Resource.Quote},
			{Method: http.MethodPost, Path: "/:id/reservations", Handler: h.Reservation.Create, Mw: []gin.HandlerFunc{requireAuth}},
		})

		reservations := apiGroup.Group("/reservations")
		reservations.Use(requireAuth)
		{
			addRoutes(reservations, []route{
				{Method: http.MethodGet, Path: "/:id", Handler: h.Reservation.Get},
				{Method: http.MethodPost, Path: "/:id/cancel", Handler: h.Reservation.Cancel},
			})
		}

		payments := apiGroup.Group("/payments")
		{
			// The provider calls back without a user token.
			addRoutes(payments, []route{
				{Method: http.MethodPost, Path: "/callback", Handler: h.Payment.Callback},
				{Method: http.MethodPost, Path: "", Handler: h.Payment.Initiate, Mw: []gin.HandlerFunc{requireAuth}},
				{Method: http.MethodGet, Path: "/status/:checkoutRequestId", Handler: h.Payment.Status, Mw: []gin.HandlerFunc{requireAuth}},
			})
		}

		users := apiGroup.Group("/users")
		users.Use(requireAuth)
		{
			addRoutes(users, []route{
				{Method: http.MethodGet, Path: "/:id/reservations", Handler: h.Reservation.ListByUser},
				{Method: http.MethodGet, Path: "/:id/payments", Handler: h.Payment.ListByUser},
			})
		}
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
