package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var errNoPayment = errors.New("no payment record")

// Payment links a store to its stripe connected account.
type Payment struct {
	ID               string     `json:"id" db:"payment_id"`
	StoreID          string     `json:"storeId" db:"store_id"`
	StripeAccountID  string     `json:"stripeAccountId" db:"stripe_account_id"`
	DetailsSubmitted bool       `json:"detailsSubmitted" db:"details_submitted"`
	AccountCreatedAt *time.Time `json:"stripeAccountCreatedAt" db:"stripe_account_created_at"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time  `json:"updatedAt" db:"updated_at"`
}

func FetchPayment(ctx context.Context, db sqlx.ExtContext, storeID string) (Payment, error) {
	q := `
	SELECT
		payment_id, store_id, stripe_account_id, details_submitted,
		stripe_account_created_at, created_at, updated_at
	FROM payments
	WHERE store_id = $1`

	var p Payment
	if err := sqlx.GetContext(ctx, db, &p, q, storeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Payment{}, errNoPayment
		}
		return Payment{}, fmt.Errorf("selecting payment of store[%s]: %w", storeID, err)
	}
	return p, nil
}

// SavePayment inserts the store's payment record or points the existing one
// at a new account.
func SavePayment(ctx context.Context, db sqlx.ExtContext, p Payment) error {
	q := `
	INSERT INTO payments
		(payment_id, store_id, stripe_account_id, details_submitted, stripe_account_created_at, created_at, updated_at)
	VALUES
		(:payment_id, :store_id, :stripe_account_id, :details_submitted, :stripe_account_created_at, :created_at, :updated_at)
	ON CONFLICT (store_id) DO UPDATE SET
		stripe_account_id = EXCLUDED.stripe_account_id,
		details_submitted = EXCLUDED.details_submitted,
		stripe_account_created_at = EXCLUDED.stripe_account_created_at,
		updated_at = EXCLUDED.updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("saving payment of store[%s]: %w", p.StoreID, err)
	}
	return nil
}

func MarkDetailsSubmitted(ctx context.Context, db sqlx.ExtContext, storeID string, accountCreatedAt time.Time) error {
	q := `
	UPDATE payments SET
		details_submitted = TRUE,
		stripe_account_created_at = $2,
		updated_at = $3
	WHERE store_id = $1`

	if _, err := db.ExecContext(ctx, q, storeID, accountCreatedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("updating payment of store[%s]: %w", storeID, err)
	}
	return nil
}
