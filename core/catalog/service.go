package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/e-commerce-storefront/cache"
	"github.com/jmoiron/sqlx"
)

// Tag groups every cached catalog entry. Cart writes invalidate it.
const Tag = "/"

const (
	featuredLimit = 8
	searchLimit   = 50
)

// Catalog serves product data to the cart and checkout. Reads that decide
// stock or amounts go to the database; listings go through the cache.
type Catalog struct {
	db    *sqlx.DB
	cache *cache.Cache
}

func New(db *sqlx.DB, c *cache.Cache) *Catalog {
	return &Catalog{db: db, cache: c}
}

func (c *Catalog) Product(ctx context.Context, id string) (Product, error) {
	return FetchProduct(ctx, c.db, id)
}

func (c *Catalog) Snapshots(ctx context.Context, ids []string, storeID string) ([]Snapshot, error) {
	return FetchSnapshots(ctx, c.db, ids, storeID)
}

func (c *Catalog) StoreIDs(ctx context.Context, ids []string) ([]string, error) {
	return FetchStoreIDs(ctx, c.db, ids)
}

func (c *Catalog) Store(ctx context.Context, id string) (Store, error) {
	return FetchStore(ctx, c.db, id)
}

func (c *Catalog) Categories(ctx context.Context) ([]Category, error) {
	var cats []Category
	err := c.cache.Remember(ctx, "catalog:categories", &cats, func(ctx context.Context) (any, error) {
		return FetchCategories(ctx, c.db)
	}, Tag)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	return cats, nil
}

func (c *Catalog) Featured(ctx context.Context) ([]Product, error) {
	var prods []Product
	key := fmt.Sprintf("catalog:featured:%d", featuredLimit)
	err := c.cache.Remember(ctx, key, &prods, func(ctx context.Context) (any, error) {
		return FetchFeatured(ctx, c.db, featuredLimit)
	}, Tag)
	if err != nil {
		return nil, fmt.Errorf("loading featured products: %w", err)
	}
	return prods, nil
}

// Products lists products straight from the database so stock and prices are
// current.
func (c *Catalog) Products(ctx context.Context, f Filter) (ProductPage, error) {
	return ListProducts(ctx, c.db, f)
}

func (c *Catalog) Search(ctx context.Context, query string) ([]SearchGroup, error) {
	return Search(ctx, c.db, query, searchLimit)
}

func (c *Catalog) Banners(ctx context.Context) ([]Banner, error) {
	return FetchActiveBanners(ctx, c.db, time.Now().UTC())
}
