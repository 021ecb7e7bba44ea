package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func FetchProduct(ctx context.Context, db sqlx.ExtContext, id string) (Product, error) {
	q := `
	SELECT
		product_id, name, description, images, category_id, subcategory_id,
		price, inventory, rating, store_id, created_at, updated_at
	FROM products
	WHERE product_id = $1`

	var p Product
	if err := sqlx.GetContext(ctx, db, &p, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("selecting product[%s]: %w", id, err)
	}
	return p, nil
}

// FetchSnapshots returns the live snapshots of the given products, optionally
// restricted to one store. Missing products are absent from the result.
func FetchSnapshots(ctx context.Context, db sqlx.ExtContext, ids []string, storeID string) ([]Snapshot, error) {
	if len(ids) == 0 {
		return []Snapshot{}, nil
	}

	q := `
	SELECT
		p.product_id, p.name, p.images, c.name AS category, sc.name AS subcategory,
		p.price, p.inventory, p.store_id, s.name AS store_name,
		s.stripe_account_id AS store_stripe_account_id, p.created_at
	FROM products p
	LEFT JOIN stores s ON s.store_id = p.store_id
	LEFT JOIN categories c ON c.category_id = p.category_id
	LEFT JOIN subcategories sc ON sc.subcategory_id = p.subcategory_id
	WHERE p.product_id IN (?)`
	args := []any{ids}

	if storeID != "" {
		q += ` AND p.store_id = ?`
		args = append(args, storeID)
	}
	q += ` ORDER BY s.stripe_account_id DESC NULLS LAST, p.created_at ASC`

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, fmt.Errorf("expanding snapshot query: %w", err)
	}
	q = db.Rebind(q)

	var snaps []Snapshot
	if err := sqlx.SelectContext(ctx, db, &snaps, q, args...); err != nil {
		return nil, fmt.Errorf("selecting product snapshots: %w", err)
	}
	if snaps == nil {
		snaps = []Snapshot{}
	}
	return snaps, nil
}

func FetchStoreIDs(ctx context.Context, db sqlx.ExtContext, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	q, args, err := sqlx.In(`SELECT DISTINCT store_id FROM products WHERE product_id IN (?) ORDER BY store_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("expanding store ids query: %w", err)
	}

	storeIDs := []string{}
	if err := sqlx.SelectContext(ctx, db, &storeIDs, db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("selecting store ids: %w", err)
	}
	return storeIDs, nil
}

func FetchStore(ctx context.Context, db sqlx.ExtContext, id string) (Store, error) {
	q := `
	SELECT store_id, user_id, name, description, stripe_account_id, active, created_at
	FROM stores
	WHERE store_id = $1`

	var s Store
	if err := sqlx.GetContext(ctx, db, &s, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Store{}, ErrNotFound
		}
		return Store{}, fmt.Errorf("selecting store[%s]: %w", id, err)
	}
	return s, nil
}

func UpdateStoreConnection(ctx context.Context, db sqlx.ExtContext, id string, stripeAccountID *string, active bool) error {
	q := `
	UPDATE stores SET
		stripe_account_id = $2,
		active = $3
	WHERE store_id = $1`

	if _, err := db.ExecContext(ctx, q, id, stripeAccountID, active); err != nil {
		return fmt.Errorf("updating store[%s]: %w", id, err)
	}
	return nil
}

func FetchCategories(ctx context.Context, db sqlx.ExtContext) ([]Category, error) {
	var cats []Category
	q := `SELECT category_id, name, slug, description FROM categories ORDER BY name`
	if err := sqlx.SelectContext(ctx, db, &cats, q); err != nil {
		return nil, fmt.Errorf("selecting categories: %w", err)
	}

	var subs []Subcategory
	q = `SELECT subcategory_id, category_id, name, slug, description FROM subcategories ORDER BY name`
	if err := sqlx.SelectContext(ctx, db, &subs, q); err != nil {
		return nil, fmt.Errorf("selecting subcategories: %w", err)
	}

	byCat := make(map[string][]Subcategory, len(cats))
	for _, s := range subs {
		byCat[s.CategoryID] = append(byCat[s.CategoryID], s)
	}

	out := make([]Category, 0, len(cats))
	for _, c := range cats {
		c.Subcategories = byCat[c.ID]
		if c.Subcategories == nil {
			c.Subcategories = []Subcategory{}
		}
		out = append(out, c)
	}
	return out, nil
}

// FetchFeatured returns the newest products of connected stores.
func FetchFeatured(ctx context.Context, db sqlx.ExtContext, limit int) ([]Product, error) {
	q := `
	SELECT
		p.product_id, p.name, p.description, p.images, p.category_id, p.subcategory_id,
		p.price, p.inventory, p.rating, p.store_id, p.created_at, p.updated_at
	FROM products p
	JOIN stores s ON s.store_id = p.store_id
	WHERE s.active
	ORDER BY p.created_at DESC
	LIMIT $1`

	prods := []Product{}
	if err := sqlx.SelectContext(ctx, db, &prods, q, limit); err != nil {
		return nil, fmt.Errorf("selecting featured products: %w", err)
	}
	return prods, nil
}
