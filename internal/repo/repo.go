package repo

import (
	"github.com/otabekdev/exchangebot/internal/pg"
	accountrepo "github.com/otabekdev/exchangebot/internal/repo/account-repo"
	orderrepo "github.com/otabekdev/exchangebot/internal/repo/order-repo"
)

type Repositories struct {
	Accounts *accountrepo.Repository
	Orders   *orderrepo.Repository
}

func New(conn pg.Database, txManager pg.TXManager) *Repositories {
	accounts := accountrepo.New(conn)
	orders := orderrepo.New(conn, txManager)

	return &Repositories{
		Accounts: accounts,
		Orders:   orders,
	}
}
