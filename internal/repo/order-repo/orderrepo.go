package orderrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/otabekdev/exchangebot/internal/domain"
	"github.com/otabekdev/exchangebot/internal/pg"
	"go.uber.org/zap"
)

type Repository struct {
	db        pg.Database
	txManager pg.TXManager
}

func New(db pg.Database, txManager pg.TXManager) *Repository {
	return &Repository{
		db:        db,
		txManager: txManager,
	}
}

const orderColumns = "id, account_id, pay_in_method, pay_out_currency, amount, fee, total_payable, payment_details, proof_ref, status, review_message_id, created_at"

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID, &order.AccountID, &order.PayInMethod, &order.PayOutCurrency,
		&order.Amount, &order.Fee, &order.TotalPayable, &order.PaymentDetails,
		&order.ProofRef, &order.Status, &order.ReviewMessageID, &order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) Save(ctx context.Context, order *domain.Order) error {
	query := `
        INSERT INTO orders (account_id, pay_in_method, pay_out_currency, amount, fee, total_payable, payment_details, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `
	err := r.db.QueryRow(ctx, query,
		order.AccountID, order.PayInMethod, order.PayOutCurrency,
		order.Amount, order.Fee, order.TotalPayable,
		order.PaymentDetails, order.Status, order.CreatedAt,
	).Scan(&order.ID)
	if err != nil {
		zap.L().Error("can't save order", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, orderID int64) (*domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE id = $1
    `
	order, err := scanOrder(r.db.QueryRow(ctx, query, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find order", zap.Error(err))
		return nil, err
	}
	return order, nil
}

func (r *Repository) FindByAccountID(ctx context.Context, accountID int64, limit int) ([]domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE account_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, accountID, limit)
	if err != nil {
		zap.L().Error("can't get account orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return collectOrders(rows)
}

func (r *Repository) FindPending(ctx context.Context, limit int) ([]domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE status = 'pending'
        ORDER BY created_at ASC
        LIMIT $1
    `
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		zap.L().Error("can't get pending orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			zap.L().Error("can't scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// ClaimForProof attaches the proof to the account's oldest pending order that
// has none yet. The subselect and the update run as one statement inside a
// transaction, so two concurrent submissions claim two distinct orders.
// Returns nil when no order qualifies.
func (r *Repository) ClaimForProof(ctx context.Context, accountID int64, proofRef string) (*domain.Order, error) {
	query := `
        UPDATE orders
        SET proof_ref = $1
        WHERE id = (
            SELECT id FROM orders
            WHERE account_id = $2 AND status = 'pending' AND proof_ref IS NULL
            ORDER BY created_at ASC
            LIMIT 1
            FOR UPDATE SKIP LOCKED
        )
        RETURNING ` + orderColumns

	var claimed *domain.Order
	err := r.txManager.Begin(ctx, func(ctx context.Context) error {
		order, err := scanOrder(r.db.QueryRow(ctx, query, proofRef, accountID))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			zap.L().Error("can't claim order for proof", zap.Error(err))
			return err
		}
		claimed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *Repository) SetReviewMessageID(ctx context.Context, orderID, messageID int64) error {
	query := `
        UPDATE orders
        SET review_message_id = $1
        WHERE id = $2
    `
	_, err := r.db.Exec(ctx, query, messageID, orderID)
	if err != nil {
		zap.L().Error("can't set review message id", zap.Error(err))
		return err
	}
	return nil
}

// Decide transitions the order out of pending and, for an approval, credits
// the account balance in the same transaction. The status change is a
// conditional update: when it matches no row, the follow-up lookup
// distinguishes a missing order (nil order) from an already decided one
// (applied == false).
func (r *Repository) Decide(ctx context.Context, orderID int64, status string) (*domain.Order, bool, error) {
	decideQuery := `
        UPDATE orders
        SET status = $1
        WHERE id = $2 AND status = 'pending'
        RETURNING ` + orderColumns
	creditQuery := `
        UPDATE accounts
        SET balance = balance + $1
        WHERE id = $2
    `

	var (
		decided *domain.Order
		applied bool
	)
	err := r.txManager.Begin(ctx, func(ctx context.Context) error {
		order, err := scanOrder(r.db.QueryRow(ctx, decideQuery, status, orderID))
		if errors.Is(err, pgx.ErrNoRows) {
			existing, err := r.FindByID(ctx, orderID)
			if err != nil {
				return err
			}
			decided = existing
			return nil
		}
		if err != nil {
			zap.L().Error("can't update order status", zap.Error(err))
			return err
		}

		if status == "approved" {
			if _, err := r.db.Exec(ctx, creditQuery, order.Amount, order.AccountID); err != nil {
				zap.L().Error("can't credit account balance", zap.Error(err))
				return err
			}
		}

		decided = order
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return decided, applied, nil
}

func (r *Repository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count)
	if err != nil {
		zap.L().Error("can't count orders", zap.Error(err))
		return 0, err
	}
	return count, nil
}

func (r *Repository) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE status = $1`, status).Scan(&count)
	if err != nil {
		zap.L().Error("can't count orders by status", zap.Error(err))
		return 0, err
	}
	return count, nil
}

// CountInWindow counts orders created in [since, until]. An empty status
// matches every order.
func (r *Repository) CountInWindow(ctx context.Context, status string, since, until time.Time) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM orders
        WHERE ($1 = '' OR status = $1) AND created_at >= $2 AND created_at <= $3
    `
	var count int
	err := r.db.QueryRow(ctx, query, status, since, until).Scan(&count)
	if err != nil {
		zap.L().Error("can't count orders in window", zap.Error(err))
		return 0, err
	}
	return count, nil
}

func (r *Repository) SumAmountInWindow(ctx context.Context, status string, since, until time.Time) (float64, error) {
	query := `
        SELECT COALESCE(SUM(amount), 0)
        FROM orders
        WHERE ($1 = '' OR status = $1) AND created_at >= $2 AND created_at <= $3
    `
	var sum float64
	err := r.db.QueryRow(ctx, query, status, since, until).Scan(&sum)
	if err != nil {
		zap.L().Error("can't sum order amounts in window", zap.Error(err))
		return 0, err
	}
	return sum, nil
}
