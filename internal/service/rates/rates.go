package rates

import (
	"errors"
)

var ErrRateNotFound = errors.New("conversion rate not found")

// Converter converts amounts between currency codes using a directed rate
// table. The table is not assumed symmetric or transitively closed: either
// the exact rate[from][to] entry exists or the conversion fails.
type Converter struct {
	rates map[string]map[string]float64
}

func New(rates map[string]map[string]float64) *Converter {
	return &Converter{rates: rates}
}

func (c *Converter) Convert(amount float64, from, to string) (float64, error) {
	if from == to {
		return amount, nil
	}

	rate, ok := c.rates[from][to]
	if !ok {
		return 0, ErrRateNotFound
	}

	return amount * rate, nil
}
