package montecarlo

import (
	"math"
	"strings"

	"github.com/rzzdr/quant-options-lab/pkg/models"
	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
)

// Payoff evaluates an option's exercise value on one simulated path
type Payoff interface {
	Name() string
	// Value receives the full path including the spot at index 0
	Value(path []float64) float64
	PathDependent() bool
}

// EuropeanPayoff pays max(S_T - K, 0) for calls and max(K - S_T, 0) for puts
type EuropeanPayoff struct {
	Type   models.OptionType
	Strike float64
}

func (p EuropeanPayoff) Name() string { return "european" }

func (p EuropeanPayoff) PathDependent() bool { return false }

func (p EuropeanPayoff) Value(path []float64) float64 {
	return vanilla(p.Type, path[len(path)-1], p.Strike)
}

// AsianPayoff pays on the arithmetic average of the monitored prices, which
// are all path points after the spot.
type AsianPayoff struct {
	Type   models.OptionType
	Strike float64
}

func (p AsianPayoff) Name() string { return "asian" }

func (p AsianPayoff) PathDependent() bool { return true }

func (p AsianPayoff) Value(path []float64) float64 {
	monitored := path[1:]
	if len(monitored) == 0 {
		monitored = path
	}
	var sum float64
	for _, v := range monitored {
		sum += v
	}
	return vanilla(p.Type, sum/float64(len(monitored)), p.Strike)
}

// NewPayoff builds the named payoff for a contract; an empty name selects
// the European payoff.
func NewPayoff(name string, c models.OptionContract) (Payoff, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "european":
		return EuropeanPayoff{Type: c.Type, Strike: c.Strike}, nil
	case "asian":
		return AsianPayoff{Type: c.Type, Strike: c.Strike}, nil
	default:
		return nil, errors.InvalidArgumentf("unsupported payoff %q", name)
	}
}

func vanilla(t models.OptionType, underlying, strike float64) float64 {
	if t == models.OptionTypeCall {
		return math.Max(underlying-strike, 0)
	}
	return math.Max(strike-underlying, 0)
}
