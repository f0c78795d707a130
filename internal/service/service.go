package service

import (
	"github.com/otabekdev/exchangebot/internal/config"
	"github.com/otabekdev/exchangebot/internal/repo"
	feecalc "github.com/otabekdev/exchangebot/internal/service/feecalc"
	orderservice "github.com/otabekdev/exchangebot/internal/service/orderservice"
	rates "github.com/otabekdev/exchangebot/internal/service/rates"
	reviewservice "github.com/otabekdev/exchangebot/internal/service/reviewservice"
)

type Services struct {
	Rates  *rates.Converter
	Fees   *feecalc.Calculator
	Orders *orderservice.Service
	Review *reviewservice.Service
}

func New(cfg *config.Config, repo *repo.Repositories) *Services {
	converter := rates.New(cfg.Exchange.Rates)
	calculator := feecalc.New(cfg.Exchange, converter)
	orderService := orderservice.New(repo.Orders, repo.Accounts, calculator, cfg.Exchange)
	reviewService := reviewservice.New(repo.Orders)

	return &Services{
		Rates:  converter,
		Fees:   calculator,
		Orders: orderService,
		Review: reviewService,
	}
}
