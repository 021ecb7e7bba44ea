package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Store persists carts. Update must only succeed when the stored version
// equals c.Version, and must then bump it.
type Store interface {
	Fetch(ctx context.Context, id string) (Cart, error)
	Create(ctx context.Context, c Cart) error
	Update(ctx context.Context, c Cart) error
	Delete(ctx context.Context, id string) error
}

type PGStore struct {
	db *sqlx.DB
}

func NewPGStore(db *sqlx.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Fetch(ctx context.Context, id string) (Cart, error) {
	return Fetch(ctx, s.db, id)
}

func (s *PGStore) Create(ctx context.Context, c Cart) error {
	return Create(ctx, s.db, c)
}

func (s *PGStore) Update(ctx context.Context, c Cart) error {
	return Update(ctx, s.db, c)
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	return Delete(ctx, s.db, id)
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Cart, error) {
	q := `
	SELECT
		cart_id, items, closed, payment_intent_id, client_secret, intents,
		created_at, updated_at, version
	FROM carts
	WHERE cart_id = $1`

	var c Cart
	if err := sqlx.GetContext(ctx, db, &c, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, fmt.Errorf("selecting cart[%s]: %w", id, err)
	}
	return c, nil
}

func Create(ctx context.Context, db sqlx.ExtContext, c Cart) error {
	q := `
	INSERT INTO carts
		(cart_id, items, closed, payment_intent_id, client_secret, intents, created_at, updated_at, version)
	VALUES
		(:cart_id, :items, :closed, :payment_intent_id, :client_secret, :intents, :created_at, :updated_at, :version)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting cart[%s]: %w", c.ID, err)
	}
	return nil
}

func Update(ctx context.Context, db sqlx.ExtContext, c Cart) error {
	q := `
	UPDATE carts SET
		items = :items,
		closed = :closed,
		payment_intent_id = :payment_intent_id,
		client_secret = :client_secret,
		intents = :intents,
		updated_at = :updated_at,
		version = version + 1
	WHERE cart_id = :cart_id AND version = :version`

	res, err := sqlx.NamedExecContext(ctx, db, q, c)
	if err != nil {
		return fmt.Errorf("updating cart[%s]: %w", c.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update of cart[%s]: %w", c.ID, err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	q := `DELETE FROM carts WHERE cart_id = $1`

	if _, err := db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("deleting cart[%s]: %w", id, err)
	}
	return nil
}
