package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/e-commerce-storefront/api/web"
	"github.com/irsalhamdi/e-commerce-storefront/api/weberr"
	"github.com/irsalhamdi/e-commerce-storefront/core/catalog"
	"github.com/irsalhamdi/e-commerce-storefront/core/claims"
	"github.com/jmoiron/sqlx"
)

// Authenticate rejects requests without a logged in seller and exposes the
// seller's claims to the handler.
func Authenticate(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			userID := sm.GetString(ctx, userIDKey)
			if userID == "" {
				return weberr.NotAuthorized(errors.New("no user in session"))
			}

			ctx = claims.Set(ctx, claims.Claims{
				UserID: userID,
				Email:  sm.GetString(ctx, emailKey),
				Role:   sm.GetString(ctx, roleKey),
			})

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// StoreFetcher loads the store named in a request path.
type StoreFetcher func(ctx context.Context, id string) (catalog.Store, error)

// FetchStoreFrom is the StoreFetcher backed by the database.
func FetchStoreFrom(db *sqlx.DB) StoreFetcher {
	return func(ctx context.Context, id string) (catalog.Store, error) {
		return catalog.FetchStore(ctx, db, id)
	}
}

// OwnStore only lets through requests from the owner of the {store_id} in
// the path. It must run after Authenticate.
func OwnStore(fetch StoreFetcher) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			storeID := web.Param(r, "store_id")

			s, err := fetch(ctx, storeID)
			if err != nil {
				if errors.Is(err, catalog.ErrNotFound) {
					return weberr.NotFound(fmt.Errorf("store[%s]: %w", storeID, err))
				}
				return fmt.Errorf("fetching store[%s]: %w", storeID, err)
			}

			if !claims.IsOwner(ctx, s.UserID) && !claims.IsAdmin(ctx) {
				return weberr.Forbidden(fmt.Errorf("store[%s] is not owned by the caller", storeID))
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// Login binds the seller to a fresh session token.
func Login(ctx context.Context, sm *scs.SessionManager, c claims.Claims) error {
	if err := sm.RenewToken(ctx); err != nil {
		return fmt.Errorf("renewing session token: %w", err)
	}
	sm.Put(ctx, userIDKey, c.UserID)
	sm.Put(ctx, emailKey, c.Email)
	sm.Put(ctx, roleKey, c.Role)
	return nil
}

func HandleLogout(sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := sm.Destroy(ctx); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
