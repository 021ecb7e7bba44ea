package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/e-commerce-storefront/api/web"
	"github.com/irsalhamdi/e-commerce-storefront/api/weberr"
	"github.com/irsalhamdi/e-commerce-storefront/validate"
)

func HandleShow(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		items := svc.Get(ctx, TokenFromRequest(r), web.Query(r, "storeId"))
		return web.Respond(ctx, w, items, http.StatusOK)
	}
}

func HandleListStores(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ids := svc.UniqueStoreIDs(ctx, TokenFromRequest(r))
		return web.Respond(ctx, w, ids, http.StatusOK)
	}
}

func HandleCreateItem(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in ItemNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		token := TokenFromRequest(r)
		newToken, items, err := svc.AddItem(ctx, token, in.ProductID, in.Quantity)
		if err != nil {
			if errors.Is(err, ErrCartNotFound) {
				ExpireToken(w)
			}
			return toWebErr(err, token)
		}

		if newToken != token {
			SetToken(w, newToken)
		}

		return web.Respond(ctx, w, items, http.StatusOK)
	}
}

func HandleUpdateItem(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		productID := web.Param(r, "product_id")

		var in ItemUp
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		token := TokenFromRequest(r)
		if err := svc.SetItemQuantity(ctx, token, productID, *in.Quantity); err != nil {
			return toWebErr(err, token)
		}

		return web.Respond(ctx, w, svc.Get(ctx, token, ""), http.StatusOK)
	}
}

func HandleDeleteItem(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		productID := web.Param(r, "product_id")

		token := TokenFromRequest(r)
		if err := svc.RemoveItem(ctx, token, productID); err != nil {
			return toWebErr(err, token)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleDeleteItems(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in ItemsDel
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		token := TokenFromRequest(r)
		if err := svc.RemoveItems(ctx, token, in.ProductIDs); err != nil {
			return toWebErr(err, token)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleDelete(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		token := TokenFromRequest(r)
		if err := svc.Clear(ctx, token); err != nil {
			return toWebErr(err, token)
		}

		ExpireToken(w)
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func toWebErr(err error, token string) error {
	fields := weberr.WithFields(map[string]interface{}{"cart": token})

	switch {
	case errors.Is(err, ErrCartNotFound),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrProductNotFound):
		return weberr.NewError(err, err.Error(), http.StatusNotFound, fields)
	case errors.Is(err, ErrOutOfStock):
		return weberr.Conflict(err, err.Error(), fields)
	case errors.Is(err, ErrVersionConflict):
		return weberr.Conflict(err, "the cart was modified concurrently, please try again", fields)
	case errors.Is(err, ErrInvalidQuantity):
		return weberr.BadRequest(err, fields)
	}
	return err
}
