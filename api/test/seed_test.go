package test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type seedStore struct {
	ID        string
	UserID    string
	AccountID string
}

// createStore inserts a store. A non-empty account makes it a store that
// finished stripe onboarding.
func createStore(t *testing.T, db *sqlx.DB, userID string, accountID string) seedStore {
	t.Helper()
	ctx := context.Background()

	s := seedStore{ID: uuid.NewString(), UserID: userID, AccountID: accountID}

	var acct *string
	if accountID != "" {
		acct = &accountID
	}

	const q = `
	INSERT INTO stores (store_id, user_id, name, stripe_account_id, active)
	VALUES ($1, $2, $3, $4, $5)`

	if _, err := db.ExecContext(ctx, q, s.ID, userID, "store "+s.ID[:8], acct, acct != nil); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	if acct != nil {
		const qp = `
		INSERT INTO payments (payment_id, store_id, stripe_account_id, details_submitted, stripe_account_created_at)
		VALUES ($1, $2, $3, TRUE, NOW())`

		if _, err := db.ExecContext(ctx, qp, uuid.NewString(), s.ID, accountID); err != nil {
			t.Fatalf("seeding payment: %v", err)
		}
	}
	return s
}

func createProduct(t *testing.T, db *sqlx.DB, storeID string, price string, inventory int) string {
	t.Helper()

	id := uuid.NewString()
	createNamedProduct(t, db, seedProduct{
		ID:         id,
		Name:       "product " + id[:8],
		CategoryID: createCategory(t, db),
		StoreID:    storeID,
		Price:      price,
		Inventory:  inventory,
	})
	return id
}

// createCategory inserts a category whose id is also its slug.
func createCategory(t *testing.T, db *sqlx.DB) string {
	t.Helper()

	id := uuid.NewString()
	const q = `INSERT INTO categories (category_id, name, slug) VALUES ($1, $2, $3)`
	if _, err := db.ExecContext(context.Background(), q, id, "category "+id, id); err != nil {
		t.Fatalf("seeding category: %v", err)
	}
	return id
}

type seedProduct struct {
	ID         string
	Name       string
	CategoryID string
	StoreID    string
	Price      string
	Inventory  int
	Rating     int
}

func createNamedProduct(t *testing.T, db *sqlx.DB, p seedProduct) {
	t.Helper()

	const q = `
	INSERT INTO products (product_id, name, category_id, price, inventory, rating, store_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := db.ExecContext(context.Background(), q, p.ID, p.Name, p.CategoryID, p.Price, p.Inventory, p.Rating, p.StoreID); err != nil {
		t.Fatalf("seeding product: %v", err)
	}
}
