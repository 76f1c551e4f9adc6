package models

import (
	"encoding/json"
	"time"
)

// Operation names a calculation that can be requested over HTTP or Kafka
type Operation string

const (
	OperationPrice             Operation = "price"
	OperationGreeks            Operation = "greeks"
	OperationImpliedVolatility Operation = "implied_volatility"
	OperationSimulate          Operation = "simulate"
	OperationEstimate          Operation = "estimate"
	OperationRiskSummary       Operation = "risk_summary"
	OperationRiskReport        Operation = "risk_report"
)

// ImpliedVolatilityRequest asks for the volatility that reproduces MarketPrice.
// The contract's Volatility field is ignored.
type ImpliedVolatilityRequest struct {
	OptionContract
	MarketPrice float64 `json:"market_price"`
}

// SimulateRequest describes a batch of GBM paths
type SimulateRequest struct {
	Spot       float64 `json:"spot"`
	Rate       float64 `json:"rate"`
	Volatility float64 `json:"volatility"`
	Horizon    float64 `json:"horizon"`
	Steps      int     `json:"steps"`
	Paths      int     `json:"paths"`
	Seed       *int64  `json:"seed,omitempty"`
}

// EstimateRequest describes a Monte Carlo estimation. An absent Trials or a
// zero Steps falls back to the configured default; an empty Payoff means
// "european".
type EstimateRequest struct {
	OptionContract
	Trials *int   `json:"trials,omitempty"`
	Steps  int    `json:"steps"`
	Payoff string `json:"payoff,omitempty"`
	Seed   *int64 `json:"seed,omitempty"`
}

// RiskSummaryRequest asks for mean, volatility and tail risk of a series.
// A zero ConfidenceLevel falls back to the configured default.
type RiskSummaryRequest struct {
	Returns         []float64 `json:"returns"`
	ConfidenceLevel float64   `json:"confidence_level"`
}

// RiskReportRequest asks for the full metric suite. Zero values fall back to
// configured defaults. Seed drives the simulated VaR.
type RiskReportRequest struct {
	Returns        []float64 `json:"returns"`
	Alpha          float64   `json:"alpha"`
	Horizon        int       `json:"horizon"`
	PeriodsPerYear float64   `json:"periods_per_year"`
	RequiredReturn *float64  `json:"required_return,omitempty"`
	Seed           *int64    `json:"seed,omitempty"`
}

// PriceResult wraps a closed-form price
type PriceResult struct {
	Price float64 `json:"price"`
}

// ImpliedVolatilityResult wraps a solved volatility
type ImpliedVolatilityResult struct {
	ImpliedVolatility float64 `json:"implied_volatility"`
}

// SimulateResult holds simulated paths
type SimulateResult struct {
	Paths [][]float64 `json:"paths"`
}

// Request is the envelope consumed from the request topic
type Request struct {
	ID        string          `json:"id"`
	Operation Operation       `json:"operation"`
	Payload   json.RawMessage `json:"payload"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Response is the envelope published to the result topic
type Response struct {
	ID        string      `json:"id"`
	Operation Operation   `json:"operation"`
	Result    interface{} `json:"result,omitempty"`
	Error     *ErrorBody  `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
