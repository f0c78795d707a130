package feecalc

import (
	"errors"
	"math"

	"github.com/otabekdev/exchangebot/internal/config"
	"go.uber.org/zap"
)

var ErrNoFeeTier = errors.New("amount below fee schedule")

type Converter interface {
	Convert(amount float64, from, to string) (float64, error)
}

// Calculator computes the service fee for a payout amount. Two policies:
// currencies listed in PercentFeeCurrencies pay a percentage of the amount
// clamped to [MinServiceFee, MaxServiceFee] in the base currency, everything
// else pays a fixed fee from the tier table.
type Calculator struct {
	cfg               config.Exchange
	converter         Converter
	percentCurrencies map[string]struct{}
}

func New(cfg config.Exchange, converter Converter) *Calculator {
	percent := make(map[string]struct{}, len(cfg.PercentFeeCurrencies))
	for _, currency := range cfg.PercentFeeCurrencies {
		percent[currency] = struct{}{}
	}
	return &Calculator{
		cfg:               cfg,
		converter:         converter,
		percentCurrencies: percent,
	}
}

func (c *Calculator) Fee(amount float64, currency string) (float64, error) {
	if _, ok := c.percentCurrencies[currency]; ok {
		return c.percentageFee(amount, currency)
	}
	return c.tieredFee(amount)
}

func (c *Calculator) tieredFee(amount float64) (float64, error) {
	for _, tier := range c.cfg.FeeTiers {
		if amount >= tier.Min && amount <= tier.Max {
			return tier.Fee, nil
		}
	}

	if len(c.cfg.FeeTiers) > 0 && amount < c.cfg.FeeTiers[0].Min {
		zap.L().Warn("amount below fee schedule", zap.Float64("amount", amount))
		return 0, ErrNoFeeTier
	}

	return math.Min(amount*c.cfg.OverflowPercent, c.cfg.OverflowCap), nil
}

func (c *Calculator) percentageFee(amount float64, currency string) (float64, error) {
	base := c.cfg.BaseCurrency

	amountInBase, err := c.converter.Convert(amount, currency, base)
	if err != nil {
		return 0, err
	}

	fee := amountInBase * c.cfg.ServicePercentage
	fee = math.Max(fee, c.cfg.MinServiceFee)
	fee = math.Min(fee, c.cfg.MaxServiceFee)

	return c.converter.Convert(fee, base, currency)
}
