package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
)

// OptionType is the exercise right of a European option. The zero value is
// not a valid option type.
type OptionType int

const (
	OptionTypeCall OptionType = iota + 1
	OptionTypePut
)

// ParseOptionType converts "call" or "put" (case-insensitive) to an OptionType
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return OptionTypeCall, nil
	case "put", "p":
		return OptionTypePut, nil
	default:
		return 0, errors.InvalidArgumentf("unsupported option type %q", s)
	}
}

// Valid reports whether t is one of the two defined option types
func (t OptionType) Valid() bool {
	return t == OptionTypeCall || t == OptionTypePut
}

func (t OptionType) String() string {
	switch t {
	case OptionTypeCall:
		return "call"
	case OptionTypePut:
		return "put"
	default:
		return fmt.Sprintf("OptionType(%d)", int(t))
	}
}

// MarshalText encodes the option type as "call" or "put"
func (t OptionType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, errors.InvalidArgumentf("unsupported option type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes "call" or "put"
func (t *OptionType) UnmarshalText(text []byte) error {
	parsed, err := ParseOptionType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// OptionContract holds the market parameters of a single European option
// pricing call. Time is in years, Rate and Volatility are annualized.
type OptionContract struct {
	Spot         float64    `json:"spot"`
	Strike       float64    `json:"strike"`
	TimeToExpiry float64    `json:"time"`
	RiskFreeRate float64    `json:"rate"`
	Volatility   float64    `json:"volatility"`
	Type         OptionType `json:"type"`
}

// Validate checks the contract invariants shared by every pricing component
func (c OptionContract) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"spot", c.Spot},
		{"strike", c.Strike},
		{"time", c.TimeToExpiry},
		{"rate", c.RiskFreeRate},
		{"volatility", c.Volatility},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return errors.InvalidArgumentf("%s must be finite, got %v", f.name, f.value)
		}
	}

	switch {
	case c.Spot <= 0:
		return errors.InvalidArgumentf("spot must be positive, got %v", c.Spot)
	case c.Strike <= 0:
		return errors.InvalidArgumentf("strike must be positive, got %v", c.Strike)
	case c.Volatility < 0:
		return errors.InvalidArgumentf("volatility must be non-negative, got %v", c.Volatility)
	case c.TimeToExpiry <= 0:
		return errors.InvalidArgumentf("time to expiry must be positive, got %v", c.TimeToExpiry)
	case !c.Type.Valid():
		return errors.InvalidArgumentf("unsupported option type %d", int(c.Type))
	}
	return nil
}

// Greeks are the first-order sensitivities of an option price (plus gamma).
// Theta is per calendar day, Vega per volatility point and Rho per rate point.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// MonteCarloResult is the output of one Monte Carlo estimation
type MonteCarloResult struct {
	Price         float64 `json:"price"`
	StandardError float64 `json:"standard_error"`
	Trials        int     `json:"trials"`
	Steps         int     `json:"steps"`
	Payoff        string  `json:"payoff"`
	Seed          *int64  `json:"seed,omitempty"`
}

// ConfidenceInterval95 returns price ± 1.96 standard errors
func (r MonteCarloResult) ConfidenceInterval95() (float64, float64) {
	half := 1.96 * r.StandardError
	return r.Price - half, r.Price + half
}

// MarshalJSON writes an undefined standard error (single trial) as null
func (r MonteCarloResult) MarshalJSON() ([]byte, error) {
	lo, hi := r.ConfidenceInterval95()
	return json.Marshal(struct {
		Price         float64  `json:"price"`
		StandardError *float64 `json:"standard_error"`
		Trials        int      `json:"trials"`
		Steps         int      `json:"steps"`
		Payoff        string   `json:"payoff"`
		Seed          *int64   `json:"seed,omitempty"`
		CILow         *float64 `json:"ci95_low"`
		CIHigh        *float64 `json:"ci95_high"`
	}{
		Price:         r.Price,
		StandardError: Finite(r.StandardError),
		Trials:        r.Trials,
		Steps:         r.Steps,
		Payoff:        r.Payoff,
		Seed:          r.Seed,
		CILow:         Finite(lo),
		CIHigh:        Finite(hi),
	})
}

// Finite returns a pointer to v, or nil when v is NaN or infinite
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
