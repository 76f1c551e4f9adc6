package models

import "encoding/json"

// RiskSummary holds the basic statistics of a return series
type RiskSummary struct {
	Mean            float64 `json:"mean"`
	Volatility      float64 `json:"volatility"`
	TailRisk        float64 `json:"tail_risk"`
	ConfidenceLevel float64 `json:"confidence_level"`
	Observations    int     `json:"observations"`
}

// Drawdown is the deepest peak-to-trough fall of a wealth index
type Drawdown struct {
	Depth       float64 `json:"depth"`
	PeakIndex   int     `json:"peak_index"`
	TroughIndex int     `json:"trough_index"`
}

// RiskReport is the full suite of risk and performance metrics of a return
// series. Ratios can be infinite and are reported as null in JSON.
type RiskReport struct {
	Alpha          float64  `json:"alpha"`
	Horizon        int      `json:"horizon"`
	Observations   int      `json:"observations"`
	Mean           float64  `json:"mean"`
	Volatility     float64  `json:"volatility"`
	ParametricVaR  float64  `json:"parametric_var"`
	HistoricalVaR  float64  `json:"historical_var"`
	ParametricCVaR float64  `json:"parametric_cvar"`
	HistoricalCVaR float64  `json:"historical_cvar"`
	MonteCarloVaR  float64  `json:"monte_carlo_var"`
	MaxDrawdown    Drawdown `json:"max_drawdown"`
	MeanOverStd    float64  `json:"mean_over_std"`
	CAGR           float64  `json:"cagr"`
	Calmar         float64  `json:"calmar"`
	Sortino        float64  `json:"sortino"`
	MaxReturnToVol float64  `json:"max_return_to_vol"`
	Skewness       float64  `json:"skewness"`
	ExcessKurtosis float64  `json:"excess_kurtosis"`
}

// MarshalJSON replaces non-finite values by null
func (r RiskReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"alpha":             r.Alpha,
		"horizon":           r.Horizon,
		"observations":      r.Observations,
		"mean":              Finite(r.Mean),
		"volatility":        Finite(r.Volatility),
		"parametric_var":    Finite(r.ParametricVaR),
		"historical_var":    Finite(r.HistoricalVaR),
		"parametric_cvar":   Finite(r.ParametricCVaR),
		"historical_cvar":   Finite(r.HistoricalCVaR),
		"monte_carlo_var":   Finite(r.MonteCarloVaR),
		"max_drawdown":      r.MaxDrawdown,
		"mean_over_std":     Finite(r.MeanOverStd),
		"cagr":              Finite(r.CAGR),
		"calmar":            Finite(r.Calmar),
		"sortino":           Finite(r.Sortino),
		"max_return_to_vol": Finite(r.MaxReturnToVol),
		"skewness":          Finite(r.Skewness),
		"excess_kurtosis":   Finite(r.ExcessKurtosis),
	})
}
