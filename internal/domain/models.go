package domain

import "time"

type Account struct {
	ID               int64     `db:"id"`
	Username         string    `db:"username"`
	FirstName        string    `db:"first_name"`
	LastName         string    `db:"last_name"`
	Balance          float64   `db:"balance"`
	Subscribed       bool      `db:"subscribed"`
	SelectedCurrency *string   `db:"selected_currency"`
	SelectedMethod   *string   `db:"selected_method"`
	CreatedAt        time.Time `db:"created_at"`
}

// HasSelection reports whether the account holds a complete currency+method
// pair, i.e. the next numeric message from the user is an order amount.
func (a *Account) HasSelection() bool {
	return a.SelectedCurrency != nil && a.SelectedMethod != nil
}

type Order struct {
	ID              int64     `db:"id"`
	AccountID       int64     `db:"account_id"`
	PayInMethod     string    `db:"pay_in_method"`
	PayOutCurrency  string    `db:"pay_out_currency"`
	Amount          float64   `db:"amount"`
	Fee             float64   `db:"fee"`
	TotalPayable    float64   `db:"total_payable"`
	PaymentDetails  string    `db:"payment_details"`
	ProofRef        *string   `db:"proof_ref"`
	Status          string    `db:"status"`
	ReviewMessageID *int64    `db:"review_message_id"`
	CreatedAt       time.Time `db:"created_at"`
}
