package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/irsalhamdi/e-commerce-storefront/api/web"
	"github.com/irsalhamdi/e-commerce-storefront/api/weberr"
	"github.com/shopspring/decimal"
)

const maxQueryLen = 100

func HandleListCategories(c *Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		cats, err := c.Categories(ctx)
		if err != nil {
			return fmt.Errorf("listing categories: %w", err)
		}

		return web.Respond(ctx, w, cats, http.StatusOK)
	}
}

func HandleListFeatured(c *Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		prods, err := c.Featured(ctx)
		if err != nil {
			return fmt.Errorf("listing featured products: %w", err)
		}

		return web.Respond(ctx, w, prods, http.StatusOK)
	}
}

func HandleListProducts(c *Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		page, err := web.QueryInt(r, "page", 1)
		if err != nil {
			return weberr.BadRequest(err)
		}

		perPage, err := web.QueryInt(r, "per_page", defaultPerPage)
		if err != nil {
			return weberr.BadRequest(err)
		}

		minPrice, maxPrice, err := parsePriceRange(web.Query(r, "price_range"))
		if err != nil {
			return weberr.BadRequest(err)
		}

		f := Filter{
			Categories:    splitList(web.Query(r, "categories")),
			Subcategories: splitList(web.Query(r, "subcategories")),
			StoreIDs:      splitList(web.Query(r, "store_ids")),
			MinPrice:      minPrice,
			MaxPrice:      maxPrice,
			Sort:          web.Query(r, "sort"),
			Page:          page,
			PerPage:       perPage,
		}

		p, err := c.Products(ctx, f)
		if err != nil {
			if errors.Is(err, ErrInvalidSort) || errors.Is(err, ErrInvalidRange) {
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}
			return fmt.Errorf("listing products: %w", err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func HandleSearch(c *Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		q := strings.TrimSpace(web.Query(r, "q"))
		if len(q) > maxQueryLen {
			err := fmt.Errorf("query must be at most %d characters", maxQueryLen)
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		groups, err := c.Search(ctx, q)
		if err != nil {
			return fmt.Errorf("searching products for %q: %w", q, err)
		}

		return web.Respond(ctx, w, groups, http.StatusOK)
	}
}

func HandleListBanners(c *Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		banners, err := c.Banners(ctx)
		if err != nil {
			return fmt.Errorf("listing banners: %w", err)
		}

		return web.Respond(ctx, w, banners, http.StatusOK)
	}
}

// splitList splits a dot separated query value.
func splitList(s string) []string {
	if s == "" {
		return nil
	}

	var out []string
	for _, v := range strings.Split(s, ".") {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parsePriceRange parses "min-max", where either bound may be left out.
func parsePriceRange(s string) (lo *decimal.Decimal, hi *decimal.Decimal, err error) {
	if s == "" {
		return nil, nil, nil
	}

	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return nil, nil, fmt.Errorf("price range %q is not of the form min-max", s)
	}

	if lo, err = parsePrice(from); err != nil {
		return nil, nil, fmt.Errorf("parsing minimum price: %w", err)
	}
	if hi, err = parsePrice(to); err != nil {
		return nil, nil, fmt.Errorf("parsing maximum price: %w", err)
	}
	return lo, hi, nil
}

func parsePrice(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("price %s is negative", s)
	}
	return &d, nil
}
