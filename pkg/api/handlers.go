package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rzzdr/quant-options-lab/pkg/models"
	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
	"github.com/rzzdr/quant-options-lab/pkg/utils/logger"
)

// Calculator is the set of operations the API exposes
type Calculator interface {
	Price(ctx context.Context, c models.OptionContract) (*models.PriceResult, error)
	Greeks(ctx context.Context, c models.OptionContract) (*models.Greeks, error)
	ImpliedVolatility(ctx context.Context, req models.ImpliedVolatilityRequest) (*models.ImpliedVolatilityResult, error)
	Simulate(ctx context.Context, req models.SimulateRequest) (*models.SimulateResult, error)
	Estimate(ctx context.Context, req models.EstimateRequest) (*models.MonteCarloResult, error)
	RiskSummary(ctx context.Context, req models.RiskSummaryRequest) (*models.RiskSummary, error)
	RiskReport(ctx context.Context, req models.RiskReportRequest) (*models.RiskReport, error)
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	calculator Calculator
	started    time.Time
	log        *logger.Logger
}

// CreateHandlers creates new API handlers
func CreateHandlers(calculator Calculator) *Handlers {
	return &Handlers{
		calculator: calculator,
		started:    time.Now(),
		log:        logger.GetLogger("api.handlers"),
	}
}

// HealthCheckHandler handles health check requests
func (h *Handlers) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	})
}

// PriceHandler returns the closed-form price of a contract
func (h *Handlers) PriceHandler(c *gin.Context) {
	handle(h, c, h.calculator.Price)
}

// GreeksHandler returns the closed-form sensitivities of a contract
func (h *Handlers) GreeksHandler(c *gin.Context) {
	handle(h, c, h.calculator.Greeks)
}

// ImpliedVolatilityHandler solves for the volatility of a quoted price
func (h *Handlers) ImpliedVolatilityHandler(c *gin.Context) {
	handle(h, c, h.calculator.ImpliedVolatility)
}

// SimulatePathsHandler returns simulated GBM paths
func (h *Handlers) SimulatePathsHandler(c *gin.Context) {
	handle(h, c, h.calculator.Simulate)
}

// EstimateHandler returns a Monte Carlo price with its standard error
func (h *Handlers) EstimateHandler(c *gin.Context) {
	handle(h, c, h.calculator.Estimate)
}

// RiskSummaryHandler returns mean, volatility and tail risk of returns
func (h *Handlers) RiskSummaryHandler(c *gin.Context) {
	handle(h, c, h.calculator.RiskSummary)
}

// RiskReportHandler returns the full risk metric suite of returns
func (h *Handlers) RiskReportHandler(c *gin.Context) {
	handle(h, c, h.calculator.RiskReport)
}

// NotFoundHandler answers unknown routes
func (h *Handlers) NotFoundHandler(c *gin.Context) {
	RespondError(c, errors.NotFound("route "+c.Request.Method+" "+c.Request.URL.Path+" not found"))
}

// handle binds the JSON body into Req, runs call and writes its result
func handle[Req any, Res any](h *Handlers, c *gin.Context, call func(context.Context, Req) (Res, error)) {
	var req Req
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, errors.InvalidArgumentf("invalid request body: %v", err))
		return
	}

	result, err := call(c.Request.Context(), req)
	if err != nil {
		if StatusCode(err) >= http.StatusInternalServerError {
			h.log.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		}
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// StatusCode maps an error to the HTTP status it is reported with
func StatusCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}

	switch errors.TypeOf(err) {
	case errors.ErrorTypeInvalidArgument:
		return http.StatusBadRequest
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeNumerical:
		return http.StatusUnprocessableEntity
	case errors.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as {"error": message, "type": kind}
func RespondError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(StatusCode(err), gin.H{
		"error": err.Error(),
		"type":  errors.TypeOf(err).String(),
	})
}
