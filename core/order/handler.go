package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/irsalhamdi/e-commerce-storefront/api/web"
	"github.com/irsalhamdi/e-commerce-storefront/api/weberr"
	"github.com/jmoiron/sqlx"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		storeID := web.Param(r, "store_id")

		page, err := web.QueryInt(r, "page", 1)
		if err != nil {
			return weberr.BadRequest(err)
		}

		perPage, err := web.QueryInt(r, "per_page", defaultPerPage)
		if err != nil {
			return weberr.BadRequest(err)
		}

		from, to, err := parseRange(r)
		if err != nil {
			return weberr.BadRequest(err)
		}

		f := Filter{
			StoreID:  storeID,
			Page:     page,
			PerPage:  perPage,
			Sort:     web.Query(r, "sort"),
			Customer: web.Query(r, "customer"),
			From:     from,
			To:       to,
		}
		if st := web.Query(r, "status"); st != "" {
			for _, s := range strings.Split(st, ".") {
				f.Statuses = append(f.Statuses, Status(s))
			}
		}

		p, err := List(ctx, db, f)
		if err != nil {
			if errors.Is(err, ErrInvalidSort) || errors.Is(err, ErrInvalidRange) {
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}
			return fmt.Errorf("listing orders of store[%s]: %w", storeID, err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func HandleAnalytics(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		storeID := web.Param(r, "store_id")

		page, err := web.QueryInt(r, "page", 1)
		if err != nil {
			return weberr.BadRequest(err)
		}

		from, to, err := parseRange(r)
		if err != nil {
			return weberr.BadRequest(err)
		}

		s, err := Analytics(ctx, db, AnalyticsFilter{
			StoreID: storeID,
			From:    from,
			To:      to,
			Page:    page,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidRange) {
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}
			return fmt.Errorf("summarizing orders of store[%s]: %w", storeID, err)
		}

		return web.Respond(ctx, w, s, http.StatusOK)
	}
}

func parseRange(r *http.Request) (from *time.Time, to *time.Time, err error) {
	if from, err = parseTime(web.Query(r, "from")); err != nil {
		return nil, nil, fmt.Errorf("parsing from: %w", err)
	}
	if to, err = parseTime(web.Query(r, "to")); err != nil {
		return nil, nil, fmt.Errorf("parsing to: %w", err)
	}
	return from, to, nil
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%q is neither a date nor a RFC 3339 timestamp", s)
}
