package api

import (
	"github.com/gin-gonic/gin"
)

// setupRoutes configures the API routes
func (s *Server) setupRoutes(h *Handlers) {
	s.router.Use(ErrorMiddleware())
	s.router.Use(LoggingMiddleware())
	if s.metricsRecorder != nil {
		s.router.Use(MetricsMiddleware(s.metricsRecorder))
	}
	s.router.Use(CORSMiddleware(s.config.CORS))
	if s.config.RateLimit.RequestsPerSecond > 0 {
		s.router.Use(RateLimitMiddleware(s.config.RateLimit))
	}

	api := s.router.Group("/api/v1")
	api.GET("/health", h.HealthCheckHandler)

	pricing := api.Group("/pricing")
	pricing.POST("/price", h.PriceHandler)
	pricing.POST("/greeks", h.GreeksHandler)
	pricing.POST("/implied-volatility", h.ImpliedVolatilityHandler)

	api.POST("/simulation/paths", h.SimulatePathsHandler)
	api.POST("/montecarlo/estimate", h.EstimateHandler)

	risk := api.Group("/risk")
	risk.POST("/summary", h.RiskSummaryHandler)
	risk.POST("/report", h.RiskReportHandler)

	if s.metricsRecorder != nil {
		s.router.GET("/metrics", gin.WrapH(s.metricsRecorder.Handler()))
	}

	s.router.NoRoute(h.NotFoundHandler)
}
