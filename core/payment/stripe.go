package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/e-commerce-storefront/config"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

// NewStripeClient builds a stripe client that never retries on its own;
// creates are made safe to repeat through idempotency keys instead.
func NewStripeClient(cfg config.Stripe) *stripecl.API {
	bc := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.URL != "" {
		bc.URL = stripe.String(cfg.URL)
	}

	strp := &stripecl.API{}
	strp.Init(cfg.APISecret, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, bc),
		Connect: stripe.GetBackend(stripe.ConnectBackend),
		Uploads: stripe.GetBackend(stripe.UploadsBackend),
	})
	return strp
}

type Stripe struct {
	api *stripecl.API
}

func NewStripe(api *stripecl.API) *Stripe {
	return &Stripe{api: api}
}

func (s *Stripe) CreateIntent(ctx context.Context, p IntentParams) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:               stripe.Int64(p.Amount),
		Currency:             stripe.String(p.Currency),
		ApplicationFeeAmount: stripe.Int64(p.Fee),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetStripeAccount(p.AccountID)
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, err
	}
	return toIntent(pi), nil
}

func (s *Stripe) UpdateIntent(ctx context.Context, id string, p IntentParams) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:               stripe.Int64(p.Amount),
		ApplicationFeeAmount: stripe.Int64(p.Fee),
	}
	params.Context = ctx
	params.SetStripeAccount(p.AccountID)
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.api.PaymentIntents.Update(id, params)
	if err != nil {
		return Intent{}, err
	}
	return toIntent(pi), nil
}

func (s *Stripe) GetIntent(ctx context.Context, accountID string, id string) (Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.SetStripeAccount(accountID)

	pi, err := s.api.PaymentIntents.Get(id, params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.Code == stripe.ErrorCodeResourceMissing {
			return Intent{}, fmt.Errorf("intent[%s] of account[%s]: %w", id, accountID, ErrIntentNotFound)
		}
		return Intent{}, err
	}
	return toIntent(pi), nil
}

// ListIntents returns the first page of the account's intents.
func (s *Stripe) ListIntents(ctx context.Context, accountID string, limit int) ([]Intent, bool, error) {
	params := &stripe.PaymentIntentListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(int64(limit))
	params.SetStripeAccount(accountID)

	it := s.api.PaymentIntents.List(params)

	intents := make([]Intent, 0, limit)
	for len(intents) < limit && it.Next() {
		intents = append(intents, toIntent(it.PaymentIntent()))
	}
	if err := it.Err(); err != nil {
		return nil, false, err
	}

	var more bool
	if meta := it.Meta(); meta != nil {
		more = meta.HasMore
	}
	return intents, more, nil
}

func (s *Stripe) CreateAccount(ctx context.Context, p AccountParams) (Account, error) {
	params := &stripe.AccountParams{
		Type:         stripe.String(string(stripe.AccountTypeStandard)),
		Country:      stripe.String("US"),
		BusinessType: stripe.String(string(stripe.AccountBusinessTypeIndividual)),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.Context = ctx
	params.AddMetadata("storeId", p.StoreID)
	params.AddMetadata("userId", p.UserID)

	acct, err := s.api.Accounts.New(params)
	if err != nil {
		return Account{}, err
	}
	return toAccount(acct), nil
}

func (s *Stripe) GetAccount(ctx context.Context, id string) (Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := s.api.Accounts.GetByID(id, params)
	if err != nil {
		return Account{}, err
	}
	return toAccount(acct), nil
}

func (s *Stripe) DeleteAccount(ctx context.Context, id string) error {
	params := &stripe.AccountParams{}
	params.Context = ctx

	_, err := s.api.Accounts.Del(id, params)
	return err
}

func (s *Stripe) CreateAccountLink(ctx context.Context, accountID string, refreshURL string, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := s.api.AccountLinks.New(params)
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

func (s *Stripe) CreateSubscriptionCheckout(ctx context.Context, p SubscriptionParams) (string, error) {
	params := &stripe.CheckoutSessionParams{
		SuccessURL:               stripe.String(p.SuccessURL),
		CancelURL:                stripe.String(p.CancelURL),
		PaymentMethodTypes:       stripe.StringSlice([]string{"card"}),
		Mode:                     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		BillingAddressCollection: stripe.String("auto"),
		CustomerEmail:            stripe.String(p.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(p.PriceID),
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx
	params.AddMetadata("userId", p.UserID)

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func (s *Stripe) CreatePortalSession(ctx context.Context, customerID string, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := s.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func toIntent(pi *stripe.PaymentIntent) Intent {
	in := Intent{
		ID:           pi.ID,
		Status:       Status(pi.Status),
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Fee:          pi.ApplicationFeeAmount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
		Email:        pi.ReceiptEmail,
		Created:      time.Unix(pi.Created, 0).UTC(),
	}

	if sh := pi.Shipping; sh != nil {
		in.Name = sh.Name
		if sh.Address != nil {
			in.PostalCode = sh.Address.PostalCode
		}
	}
	return in
}

func toAccount(a *stripe.Account) Account {
	return Account{
		ID:               a.ID,
		DetailsSubmitted: a.DetailsSubmitted,
		ChargesEnabled:   a.ChargesEnabled,
		Email:            a.Email,
		Created:          time.Unix(a.Created, 0).UTC(),
	}
}
