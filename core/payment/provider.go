package payment

import (
	"context"
	"time"
)

// Provider is the slice of the payment provider the service drives. All
// intent calls are scoped to a connected account.
type Provider interface {
	CreateIntent(ctx context.Context, p IntentParams) (Intent, error)
	UpdateIntent(ctx context.Context, id string, p IntentParams) (Intent, error)
	GetIntent(ctx context.Context, accountID string, id string) (Intent, error)
	ListIntents(ctx context.Context, accountID string, limit int) ([]Intent, bool, error)

	CreateAccount(ctx context.Context, p AccountParams) (Account, error)
	GetAccount(ctx context.Context, id string) (Account, error)
	DeleteAccount(ctx context.Context, id string) error
	CreateAccountLink(ctx context.Context, accountID string, refreshURL string, returnURL string) (string, error)

	CreateSubscriptionCheckout(ctx context.Context, p SubscriptionParams) (string, error)
	CreatePortalSession(ctx context.Context, customerID string, returnURL string) (string, error)
}

type Intent struct {
	ID           string            `json:"id"`
	Status       Status            `json:"status"`
	ClientSecret string            `json:"clientSecret,omitempty"`
	Amount       int64             `json:"amount"`
	Fee          int64             `json:"fee"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"-"`
	PostalCode   string            `json:"-"`
	Name         string            `json:"-"`
	Email        string            `json:"-"`
	Created      time.Time         `json:"created"`
}

type IntentParams struct {
	AccountID      string
	Amount         int64
	Fee            int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

type Account struct {
	ID               string    `json:"id"`
	DetailsSubmitted bool      `json:"detailsSubmitted"`
	ChargesEnabled   bool      `json:"chargesEnabled"`
	Email            string    `json:"email"`
	Created          time.Time `json:"created"`
}

type AccountParams struct {
	StoreID string
	UserID  string
}

type SubscriptionParams struct {
	UserID     string
	Email      string
	PriceID    string
	SuccessURL string
	CancelURL  string
}
