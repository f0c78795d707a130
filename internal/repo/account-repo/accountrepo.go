package accountrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/otabekdev/exchangebot/internal/domain"
	"github.com/otabekdev/exchangebot/internal/pg"
	"go.uber.org/zap"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

const accountColumns = "id, username, first_name, last_name, balance, subscribed, selected_currency, selected_method, created_at"

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.ID, &account.Username, &account.FirstName, &account.LastName,
		&account.Balance, &account.Subscribed,
		&account.SelectedCurrency, &account.SelectedMethod, &account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Upsert creates the account on first contact and refreshes the profile
// fields on every later one. Balance, subscription and selection are left
// untouched on conflict.
func (r *Repository) Upsert(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	query := `
        INSERT INTO accounts (id, username, first_name, last_name)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE
        SET username = EXCLUDED.username, first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name
        RETURNING ` + accountColumns
	row := r.db.QueryRow(ctx, query, account.ID, account.Username, account.FirstName, account.LastName)

	saved, err := scanAccount(row)
	if err != nil {
		zap.L().Error("can't upsert account", zap.Error(err))
		return nil, err
	}
	return saved, nil
}

func (r *Repository) FindByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	query := `
        SELECT ` + accountColumns + `
        FROM accounts
        WHERE id = $1
    `
	row := r.db.QueryRow(ctx, query, accountID)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find account", zap.Error(err))
		return nil, err
	}
	return account, nil
}

func (r *Repository) SetSubscribed(ctx context.Context, accountID int64, subscribed bool) error {
	query := `
        UPDATE accounts
        SET subscribed = $1
        WHERE id = $2
    `
	_, err := r.db.Exec(ctx, query, subscribed, accountID)
	if err != nil {
		zap.L().Error("can't update subscription flag", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) SetSelectedCurrency(ctx context.Context, accountID int64, currency string) error {
	query := `
        UPDATE accounts
        SET selected_currency = $1
        WHERE id = $2
    `
	_, err := r.db.Exec(ctx, query, currency, accountID)
	if err != nil {
		zap.L().Error("can't set selected currency", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) SetSelectedMethod(ctx context.Context, accountID int64, method string) error {
	query := `
        UPDATE accounts
        SET selected_method = $1
        WHERE id = $2
    `
	_, err := r.db.Exec(ctx, query, method, accountID)
	if err != nil {
		zap.L().Error("can't set selected method", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) ClearSelection(ctx context.Context, accountID int64) error {
	query := `
        UPDATE accounts
        SET selected_currency = NULL, selected_method = NULL
        WHERE id = $1
    `
	_, err := r.db.Exec(ctx, query, accountID)
	if err != nil {
		zap.L().Error("can't clear selection", zap.Error(err))
		return err
	}
	return nil
}

// ListIDs returns every account id in registration order; the broadcast
// dispatcher feeds on it.
func (r *Repository) ListIDs(ctx context.Context) ([]int64, error) {
	query := `
        SELECT id
        FROM accounts
        ORDER BY created_at ASC
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		zap.L().Error("can't list account ids", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			zap.L().Error("can't scan account id", zap.Error(err))
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *Repository) ListRecent(ctx context.Context, limit int) ([]domain.Account, error) {
	query := `
        SELECT ` + accountColumns + `
        FROM accounts
        ORDER BY created_at DESC
        LIMIT $1
    `
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		zap.L().Error("can't list recent accounts", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var account domain.Account
		err := rows.Scan(
			&account.ID, &account.Username, &account.FirstName, &account.LastName,
			&account.Balance, &account.Subscribed,
			&account.SelectedCurrency, &account.SelectedMethod, &account.CreatedAt,
		)
		if err != nil {
			zap.L().Error("can't scan account row", zap.Error(err))
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count)
	if err != nil {
		zap.L().Error("can't count accounts", zap.Error(err))
		return 0, err
	}
	return count, nil
}
