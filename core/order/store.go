package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/irsalhamdi/e-commerce-storefront/database"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	defaultPerPage   = 10
	maxPerPage       = 100
	customersPerPage = 5
)

// Record inserts an order. Recording the same payment intent twice is a
// no-op.
func Record(ctx context.Context, db sqlx.ExtContext, o Order) error {
	q := `
	INSERT INTO orders
		(order_id, store_id, items, quantity, amount, stripe_payment_intent_id,
		status, name, email, postal_code, created_at)
	VALUES
		(:order_id, :store_id, :items, :quantity, :amount, :stripe_payment_intent_id,
		:status, :name, :email, :postal_code, :created_at)
	ON CONFLICT (stripe_payment_intent_id) DO NOTHING`

	if _, err := sqlx.NamedExecContext(ctx, db, q, o); err != nil {
		return fmt.Errorf("inserting order for payment[%s]: %w", o.StripePaymentIntentID, err)
	}
	return nil
}

func FetchByIntentID(ctx context.Context, db sqlx.ExtContext, intentID string) (Order, error) {
	q := `
	SELECT
		order_id, store_id, items, quantity, amount, stripe_payment_intent_id,
		status, name, email, postal_code, created_at
	FROM orders
	WHERE stripe_payment_intent_id = $1`

	var o Order
	if err := sqlx.GetContext(ctx, db, &o, q, intentID); err != nil {
		return Order{}, fmt.Errorf("selecting order for payment[%s]: %w", intentID, err)
	}
	return o, nil
}

type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, fmt.Sprintf("$%d", len(w.args))))
}

func (w *where) String() string {
	return "WHERE " + strings.Join(w.conds, " AND ")
}

func (w *where) next() string {
	return fmt.Sprintf("$%d", len(w.args)+1)
}

func List(ctx context.Context, db sqlx.ExtContext, f Filter) (Page, error) {
	order, err := orderBy(f.Sort)
	if err != nil {
		return Page{}, err
	}

	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return Page{}, ErrInvalidRange
	}

	page, perPage := f.Page, f.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	var w where
	w.add("store_id = %s", f.StoreID)
	if f.Customer != "" {
		w.add("email ILIKE %s", database.Contains(f.Customer))
	}
	if len(f.Statuses) > 0 {
		st := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			st = append(st, string(s))
		}
		w.add("status = ANY(%s)", pq.Array(st))
	}
	if f.From != nil {
		w.add("created_at >= %s", *f.From)
	}
	if f.To != nil {
		w.add("created_at <= %s", *f.To)
	}

	var total int
	q := `SELECT COUNT(*) FROM orders ` + w.String()
	if err := sqlx.GetContext(ctx, db, &total, q, w.args...); err != nil {
		return Page{}, fmt.Errorf("counting orders of store[%s]: %w", f.StoreID, err)
	}

	limit := w.next()
	offset := fmt.Sprintf("$%d", len(w.args)+2)
	q = `
	SELECT
		order_id, store_id, items, quantity, amount, stripe_payment_intent_id,
		status, name, email, postal_code, created_at
	FROM orders ` + w.String() + ` ` + order + ` LIMIT ` + limit + ` OFFSET ` + offset

	args := append(w.args, perPage, (page-1)*perPage)

	orders := []Order{}
	if err := sqlx.SelectContext(ctx, db, &orders, q, args...); err != nil {
		return Page{}, fmt.Errorf("selecting orders of store[%s]: %w", f.StoreID, err)
	}

	return Page{
		Orders:    orders,
		PageCount: pageCount(total, perPage),
	}, nil
}

func Analytics(ctx context.Context, db sqlx.ExtContext, f AnalyticsFilter) (Summary, error) {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return Summary{}, ErrInvalidRange
	}

	page := f.Page
	if page < 1 {
		page = 1
	}

	var w where
	w.add("store_id = %s", f.StoreID)
	if f.From != nil {
		w.add("created_at >= %s", *f.From)
	}
	if f.To != nil {
		w.add("created_at <= %s", *f.To)
	}

	var totals struct {
		Revenue   decimal.Decimal `db:"revenue"`
		Orders    int             `db:"orders"`
		Sales     int             `db:"sales"`
		Customers int             `db:"customers"`
	}
	q := `
	SELECT
		COALESCE(SUM(amount), 0) AS revenue,
		COUNT(*) AS orders,
		COALESCE(SUM(quantity), 0) AS sales,
		COUNT(DISTINCT email) AS customers
	FROM orders ` + w.String()
	if err := sqlx.GetContext(ctx, db, &totals, q, w.args...); err != nil {
		return Summary{}, fmt.Errorf("summing orders of store[%s]: %w", f.StoreID, err)
	}

	series := []SalesPoint{}
	q = `
	SELECT
		date_trunc('month', created_at) AS month,
		SUM(amount) AS revenue,
		SUM(quantity) AS sales
	FROM orders ` + w.String() + `
	GROUP BY 1
	ORDER BY 1`
	if err := sqlx.SelectContext(ctx, db, &series, q, w.args...); err != nil {
		return Summary{}, fmt.Errorf("selecting sales of store[%s]: %w", f.StoreID, err)
	}

	customers := []Customer{}
	q = `
	SELECT
		email,
		MAX(name) AS name,
		COUNT(*) AS orders,
		SUM(amount) AS total_spent
	FROM orders ` + w.String() + `
	GROUP BY email
	ORDER BY total_spent DESC, email ASC
	LIMIT ` + w.next() + ` OFFSET ` + fmt.Sprintf("$%d", len(w.args)+2)
	args := append(w.args, customersPerPage, (page-1)*customersPerPage)
	if err := sqlx.SelectContext(ctx, db, &customers, q, args...); err != nil {
		return Summary{}, fmt.Errorf("selecting customers of store[%s]: %w", f.StoreID, err)
	}

	return Summary{
		Revenue:           totals.Revenue,
		Orders:            totals.Orders,
		Sales:             totals.Sales,
		Series:            series,
		Customers:         customers,
		CustomerPageCount: pageCount(totals.Customers, customersPerPage),
		Display:           newSummaryDisplay(totals.Revenue, totals.Orders, totals.Sales),
	}, nil
}

func pageCount(total, perPage int) int {
	return (total + perPage - 1) / perPage
}

// Recorder records orders through a database handle.
type Recorder struct {
	db *sqlx.DB
}

func NewRecorder(db *sqlx.DB) *Recorder {
	return &Recorder{db: db}
}

func (r *Recorder) Record(ctx context.Context, o Order) error {
	return Record(ctx, r.db, o)
}
