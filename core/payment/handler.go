package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/irsalhamdi/e-commerce-storefront/api/web"
	"github.com/irsalhamdi/e-commerce-storefront/api/weberr"
	"github.com/irsalhamdi/e-commerce-storefront/core/cart"
	"github.com/irsalhamdi/e-commerce-storefront/core/checkout"
	"github.com/irsalhamdi/e-commerce-storefront/core/claims"
	"github.com/irsalhamdi/e-commerce-storefront/validate"
	"github.com/stripe/stripe-go/v74/webhook"
)

const maxListLimit = 100

type VerifyInput struct {
	DeliveryPostalCode string `json:"deliveryPostalCode" validate:"max=16"`
}

func HandleCreateIntent(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		storeID := web.Param(r, "store_id")
		if err := validate.CheckID(storeID); err != nil {
			return weberr.NotFound(fmt.Errorf("store[%s]: %w", storeID, err))
		}

		in, err := svc.CreateOrUpdateIntent(ctx, cart.TokenFromRequest(r), storeID)
		if err != nil {
			return toWebErr(err)
		}

		return web.Respond(ctx, w, in, http.StatusOK)
	}
}

func HandleVerifyIntent(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		storeID := web.Param(r, "store_id")
		intentID := web.Param(r, "id")
		if err := validate.CheckID(storeID); err != nil {
			return weberr.NotFound(fmt.Errorf("store[%s]: %w", storeID, err))
		}

		var in VerifyInput
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		intent, err := svc.CompleteCheckout(ctx, storeID, intentID, cart.TokenFromRequest(r), in.DeliveryPostalCode)
		if err != nil {
			return toWebErr(err)
		}
		intent.ClientSecret = ""

		return web.Respond(ctx, w, intent, http.StatusOK)
	}
}

func HandleListIntents(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		storeID := web.Param(r, "store_id")

		limit, err := web.QueryInt(r, "limit", 10)
		if err != nil {
			return weberr.BadRequest(err)
		}
		if limit < 1 || limit > maxListLimit {
			err := fmt.Errorf("limit must be between 1 and %d", maxListLimit)
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		intents, more := svc.ListIntents(ctx, storeID, limit)
		resp := struct {
			Intents []IntentSummary `json:"paymentIntents"`
			HasMore bool            `json:"hasMore"`
		}{intents, more}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleConnect(acc *Accounts) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		url, err := acc.CreateAccountLink(ctx, clm.UserID, web.Param(r, "store_id"))
		if err != nil {
			return toWebErr(err)
		}

		resp := struct {
			URL string `json:"url"`
		}{url}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleShowAccount(acc *Accounts) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		conn := acc.Account(ctx, web.Param(r, "store_id"), true)
		return web.Respond(ctx, w, conn, http.StatusOK)
	}
}

func HandleManagePlan(b *Billing) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var in PlanInput
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}
		in.UserID = clm.UserID

		url, err := b.ManagePlan(ctx, in)
		if err != nil {
			return toWebErr(err)
		}

		resp := struct {
			URL string `json:"url"`
		}{url}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleWebhook(svc *Service, secret string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 65536))
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			return weberr.BadRequest(errors.New("received stripe event is not signed"))
		}

		event, err := webhook.ConstructEvent(b, sig, secret)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot construct stripe event: %w", err))
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			return fmt.Errorf("handling stripe event[%s]: %w", event.ID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func toWebErr(err error) error {
	var pe *ProviderError

	switch {
	case errors.Is(err, ErrStoreNotFound),
		errors.Is(err, ErrIntentNotFound),
		errors.Is(err, cart.ErrCartNotFound):
		return weberr.NewError(err, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrStoreNotConnected),
		errors.Is(err, ErrAlreadyConnected),
		errors.Is(err, ErrPaymentPending),
		errors.Is(err, cart.ErrVersionConflict):
		return weberr.Conflict(err, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return weberr.Forbidden(err)
	case errors.Is(err, ErrMismatch),
		errors.Is(err, ErrNotSucceeded),
		errors.Is(err, checkout.ErrInvalidAmount):
		return weberr.Unprocessable(err, err.Error())
	case errors.As(err, &pe):
		return weberr.BadGateway(err, weberr.WithFields(map[string]interface{}{"op": pe.Op}))
	}
	return err
}
