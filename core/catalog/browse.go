package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/irsalhamdi/e-commerce-storefront/database"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

var ErrInvalidRange = errors.New("minimum price is above the maximum")

// Filter narrows a product listing. Empty fields match everything.
type Filter struct {
	Categories    []string
	Subcategories []string
	StoreIDs      []string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	Sort          string
	Page          int
	PerPage       int
}

// Listing is a product with the name of its category.
type Listing struct {
	Product
	Category *string `json:"category" db:"category"`
}

type ProductPage struct {
	Products  []Listing `json:"products"`
	PageCount int       `json:"pageCount"`
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
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// ListProducts returns one page of the products matching f and the number of
// pages.
func ListProducts(ctx context.Context, db sqlx.ExtContext, f Filter) (ProductPage, error) {
	order, err := orderBy(f.Sort)
	if err != nil {
		return ProductPage{}, err
	}

	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return ProductPage{}, ErrInvalidRange
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
	if len(f.Categories) > 0 {
		w.add("c.slug = ANY(%s)", pq.Array(f.Categories))
	}
	if len(f.Subcategories) > 0 {
		w.add("p.subcategory_id = ANY(%s)", pq.Array(f.Subcategories))
	}
	if len(f.StoreIDs) > 0 {
		w.add("p.store_id = ANY(%s)", pq.Array(f.StoreIDs))
	}
	if f.MinPrice != nil {
		w.add("p.price >= %s", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		w.add("p.price <= %s", *f.MaxPrice)
	}

	from := `
	FROM products p
	LEFT JOIN categories c ON c.category_id = p.category_id ` + w.String()

	var total int
	if err := sqlx.GetContext(ctx, db, &total, `SELECT COUNT(*)`+from, w.args...); err != nil {
		return ProductPage{}, fmt.Errorf("counting products: %w", err)
	}

	q := `
	SELECT
		p.product_id, p.name, p.description, p.images, p.category_id, p.subcategory_id,
		p.price, p.inventory, p.rating, p.store_id, p.created_at, p.updated_at,
		c.name AS category` + from + ` ` + order +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(w.args)+1, len(w.args)+2)

	args := append(w.args, perPage, (page-1)*perPage)

	prods := []Listing{}
	if err := sqlx.SelectContext(ctx, db, &prods, q, args...); err != nil {
		return ProductPage{}, fmt.Errorf("selecting products: %w", err)
	}

	return ProductPage{
		Products:  prods,
		PageCount: (total + perPage - 1) / perPage,
	}, nil
}

type SearchResult struct {
	ID   string `json:"id" db:"product_id"`
	Name string `json:"name" db:"name"`
}

// SearchGroup is a category with the products in it matching a search.
type SearchGroup struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Products []SearchResult `json:"products"`
}

// Search finds products whose name contains query, grouped by category.
func Search(ctx context.Context, db sqlx.ExtContext, query string, limit int) ([]SearchGroup, error) {
	groups := []SearchGroup{}
	if query == "" {
		return groups, nil
	}

	q := `
	SELECT
		p.product_id, p.name, c.category_id, c.name AS category
	FROM products p
	JOIN categories c ON c.category_id = p.category_id
	WHERE p.name ILIKE $1
	ORDER BY c.name, p.name, p.product_id
	LIMIT $2`

	var rows []struct {
		SearchResult
		CategoryID string `db:"category_id"`
		Category   string `db:"category"`
	}
	if err := sqlx.SelectContext(ctx, db, &rows, q, database.Contains(query), limit); err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}

	for _, r := range rows {
		if n := len(groups); n == 0 || groups[n-1].ID != r.CategoryID {
			groups = append(groups, SearchGroup{ID: r.CategoryID, Name: r.Category})
		}
		last := &groups[len(groups)-1]
		last.Products = append(last.Products, r.SearchResult)
	}
	return groups, nil
}

type Banner struct {
	ID          string    `json:"id" db:"banner_id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description" db:"description"`
	ImageURL    string    `json:"imageUrl" db:"image_url"`
	Link        *string   `json:"link" db:"link"`
	StartDate   time.Time `json:"startDate" db:"start_date"`
	EndDate     time.Time `json:"endDate" db:"end_date"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// FetchActiveBanners returns the enabled banners whose schedule covers now,
// newest first.
func FetchActiveBanners(ctx context.Context, db sqlx.ExtContext, now time.Time) ([]Banner, error) {
	q := `
	SELECT
		banner_id, title, description, image_url, link, start_date, end_date, created_at
	FROM banners
	WHERE is_active AND start_date <= $1 AND end_date >= $1
	ORDER BY created_at DESC, banner_id`

	banners := []Banner{}
	if err := sqlx.SelectContext(ctx, db, &banners, q, now); err != nil {
		return nil, fmt.Errorf("selecting banners: %w", err)
	}
	return banners, nil
}
