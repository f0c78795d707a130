package accountrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/otabekdev/exchangebot/internal/domain"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
)

var (
	accountRows = []string{"id", "username", "first_name", "last_name", "balance", "subscribed", "selected_currency", "selected_method", "created_at"}
	selectSQL   = regexp.QuoteMeta("SELECT " + accountColumns)
)

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	defer mockDB.Close()

	return repo, mockDB
}

func addAccountRow(rows *pgxmock.Rows, account domain.Account) *pgxmock.Rows {
	return rows.AddRow(
		account.ID, account.Username, account.FirstName, account.LastName,
		account.Balance, account.Subscribed,
		account.SelectedCurrency, account.SelectedMethod, account.CreatedAt,
	)
}

func TestRepository_Upsert(t *testing.T) {
	repo, mock := NewMock(t)
	timeNow := time.Now()

	tests := []struct {
		name      string
		account   *domain.Account
		mockSetup func()
		expectErr bool
	}{
		{
			name:    "New account created",
			account: &domain.Account{ID: 7, Username: "johndoe", FirstName: "John", LastName: "Doe"},
			mockSetup: func() {
				rows := addAccountRow(pgxmock.NewRows(accountRows), domain.Account{
					ID: 7, Username: "johndoe", FirstName: "John", LastName: "Doe", CreatedAt: timeNow,
				})
				mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO accounts")).
					WithArgs(int64(7), "johndoe", "John", "Doe").
					WillReturnRows(rows)
			},
		},
		{
			name:    "Database error",
			account: &domain.Account{ID: 7, Username: "johndoe"},
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO accounts")).
					WithArgs(int64(7), "johndoe", "", "").
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			saved, err := repo.Upsert(context.Background(), tt.account)
			if tt.expectErr {
				assert.Error(t, err)
				assert.Nil(t, saved)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.account.ID, saved.ID)
				assert.Equal(t, tt.account.Username, saved.Username)
			}
		})
	}
}

func TestRepository_FindByID(t *testing.T) {
	repo, mock := NewMock(t)
	timeNow := time.Now()
	currency := "USDT"

	tests := []struct {
		name      string
		accountID int64
		mockSetup func()
		expectErr bool
		result    *domain.Account
	}{
		{
			name:      "Account exists",
			accountID: 7,
			mockSetup: func() {
				rows := addAccountRow(pgxmock.NewRows(accountRows), domain.Account{
					ID: 7, Username: "johndoe", FirstName: "John", Balance: 50000,
					Subscribed: true, SelectedCurrency: &currency, CreatedAt: timeNow,
				})
				mock.ExpectQuery(selectSQL).WithArgs(int64(7)).WillReturnRows(rows)
			},
			result: &domain.Account{
				ID: 7, Username: "johndoe", FirstName: "John", Balance: 50000,
				Subscribed: true, SelectedCurrency: &currency, CreatedAt: timeNow,
			},
		},
		{
			name:      "Account does not exist",
			accountID: 99,
			mockSetup: func() {
				mock.ExpectQuery(selectSQL).WithArgs(int64(99)).WillReturnError(pgx.ErrNoRows)
			},
			result: nil,
		},
		{
			name:      "Database error",
			accountID: 7,
			mockSetup: func() {
				mock.ExpectQuery(selectSQL).WithArgs(int64(7)).WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			result, err := repo.FindByID(context.Background(), tt.accountID)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.result, result)
			}
		})
	}
}

func TestRepository_SetSubscribed(t *testing.T) {
	repo, mock := NewMock(t)

	mock.ExpectExec(regexp.QuoteMeta("SET subscribed = $1")).
		WithArgs(true, int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.SetSubscribed(context.Background(), 7, true)

	assert.NoError(t, err)
}

func TestRepository_Selection(t *testing.T) {
	repo, mock := NewMock(t)

	mock.ExpectExec(regexp.QuoteMeta("SET selected_currency = $1")).
		WithArgs("USDT", int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	assert.NoError(t, repo.SetSelectedCurrency(context.Background(), 7, "USDT"))

	mock.ExpectExec(regexp.QuoteMeta("SET selected_method = $1")).
		WithArgs("HUMO Card", int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	assert.NoError(t, repo.SetSelectedMethod(context.Background(), 7, "HUMO Card"))

	mock.ExpectExec(regexp.QuoteMeta("SET selected_currency = NULL, selected_method = NULL")).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	assert.NoError(t, repo.ClearSelection(context.Background(), 7))
}

func TestRepository_ListIDs(t *testing.T) {
	repo, mock := NewMock(t)

	rows := pgxmock.NewRows([]string{"id"}).AddRow(int64(7)).AddRow(int64(8)).AddRow(int64(9))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id")).WillReturnRows(rows)

	ids, err := repo.ListIDs(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, []int64{7, 8, 9}, ids)
}

func TestRepository_ListRecent(t *testing.T) {
	repo, mock := NewMock(t)
	timeNow := time.Now()

	rows := pgxmock.NewRows(accountRows)
	rows = addAccountRow(rows, domain.Account{ID: 9, Username: "latest", CreatedAt: timeNow})
	rows = addAccountRow(rows, domain.Account{ID: 8, Username: "earlier", CreatedAt: timeNow.Add(-time.Hour)})

	mock.ExpectQuery(selectSQL).WithArgs(10).WillReturnRows(rows)

	accounts, err := repo.ListRecent(context.Background(), 10)

	assert.NoError(t, err)
	assert.Len(t, accounts, 2)
	assert.Equal(t, int64(9), accounts[0].ID)
}

func TestRepository_Count(t *testing.T) {
	repo, mock := NewMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM accounts")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.Count(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 42, count)
}
