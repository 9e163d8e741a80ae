package cost

import "github.com/sells-group/lab-assistant/internal/config"

// Rates maps model IDs to token pricing.
type Rates map[string]ModelRate

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// RatesFromConfig converts configured pricing into Rates.
func RatesFromConfig(p config.PricingConfig) Rates {
	rates := make(Rates, len(p.Models))
	for model, mp := range p.Models {
		rates[model] = ModelRate{Input: mp.Input, Output: mp.Output}
	}
	return rates
}

// Completion computes the cost of one chat completion. Unknown models cost 0.
func (c *Calculator) Completion(model string, input, output int) float64 {
	if c == nil {
		return 0
	}
	rate, ok := c.rates[model]
	if !ok {
		return 0
	}
	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	return inCost + outCost
}

// Known reports whether pricing exists for model.
func (c *Calculator) Known(model string) bool {
	if c == nil {
		return false
	}
	_, ok := c.rates[model]
	return ok
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		"llama3-70b-8192":            {Input: 0.59, Output: 0.79},
		"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
		"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
	}
}
