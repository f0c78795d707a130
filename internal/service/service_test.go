package service

import (
	"testing"

	"github.com/otabekdev/exchangebot/internal/config"
	"github.com/otabekdev/exchangebot/internal/pg"
	"github.com/otabekdev/exchangebot/internal/repo"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"
)

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mockDB.Close()
	mockTxManager := pg.NewMockTXManager(ctrl)

	cfg := &config.Config{Exchange: config.DefaultExchange()}
	repos := repo.New(mockDB, mockTxManager)

	services := New(cfg, repos)

	assert.NotNil(t, services.Rates)
	assert.NotNil(t, services.Fees)
	assert.NotNil(t, services.Orders)
	assert.NotNil(t, services.Review)
}
