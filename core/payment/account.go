package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/e-commerce-storefront/core/catalog"
	"github.com/irsalhamdi/e-commerce-storefront/database"
	"github.com/irsalhamdi/e-commerce-storefront/validate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Accounts manages the stripe connected accounts of stores.
type Accounts struct {
	db       *sqlx.DB
	provider Provider
	log      logrus.FieldLogger
	baseURL  string
}

func NewAccounts(db *sqlx.DB, p Provider, log logrus.FieldLogger, baseURL string) *Accounts {
	return &Accounts{db: db, provider: p, log: log, baseURL: baseURL}
}

type Connection struct {
	Connected bool     `json:"isConnected"`
	Account   *Account `json:"account"`
	Payment   *Payment `json:"payment"`
}

// Connection returns the payment record of a store that finished stripe
// onboarding.
func (a *Accounts) Connection(ctx context.Context, storeID string) (Payment, error) {
	p, err := FetchPayment(ctx, a.db, storeID)
	if err != nil {
		if errors.Is(err, errNoPayment) {
			return Payment{}, ErrStoreNotConnected
		}
		return Payment{}, err
	}

	if !p.DetailsSubmitted || p.StripeAccountID == "" {
		return Payment{}, ErrStoreNotConnected
	}
	return p, nil
}

// Account reports the stripe connection of a store, syncing the local record
// once the provider reports onboarding as complete. Any failure reads as not
// connected.
func (a *Accounts) Account(ctx context.Context, storeID string, retrieve bool) Connection {
	log := a.log.WithField("store", storeID)

	if _, err := catalog.FetchStore(ctx, a.db, storeID); err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			log.Errorf("fetching store: %v", err)
		}
		return Connection{}
	}

	p, err := FetchPayment(ctx, a.db, storeID)
	if err != nil {
		if !errors.Is(err, errNoPayment) {
			log.Errorf("fetching payment: %v", err)
		}
		return Connection{}
	}
	if p.StripeAccountID == "" {
		return Connection{}
	}

	if !retrieve {
		return Connection{Connected: true, Payment: &p}
	}

	acct, err := a.provider.GetAccount(ctx, p.StripeAccountID)
	if err != nil {
		log.WithField("account", p.StripeAccountID).Errorf("stripe: retrieving account: %v", err)
		return Connection{}
	}

	if acct.DetailsSubmitted && !p.DetailsSubmitted {
		err := database.Transaction(a.db, func(tx sqlx.ExtContext) error {
			if err := MarkDetailsSubmitted(ctx, tx, storeID, acct.Created); err != nil {
				return err
			}
			return catalog.UpdateStoreConnection(ctx, tx, storeID, &acct.ID, true)
		})
		if err != nil {
			log.Errorf("syncing stripe onboarding: %v", err)
		} else {
			p.DetailsSubmitted = true
			p.AccountCreatedAt = &acct.Created
		}
	}

	conn := Connection{Connected: p.DetailsSubmitted, Payment: &p}
	if acct.DetailsSubmitted {
		conn.Account = &acct
	}
	return conn
}

// CreateAccountLink starts stripe onboarding for a store owned by userID and
// returns the url the owner must visit.
func (a *Accounts) CreateAccountLink(ctx context.Context, userID string, storeID string) (string, error) {
	store, err := catalog.FetchStore(ctx, a.db, storeID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return "", ErrStoreNotFound
		}
		return "", fmt.Errorf("fetching store[%s]: %w", storeID, err)
	}

	if store.UserID != userID {
		return "", ErrUnauthorized
	}

	conn := a.Account(ctx, storeID, true)
	if conn.Connected {
		return "", ErrAlreadyConnected
	}

	log := a.log.WithFields(logrus.Fields{"store": storeID, "user": userID})

	// an account that never finished onboarding is replaced
	if p, err := FetchPayment(ctx, a.db, storeID); err == nil && p.StripeAccountID != "" && !p.DetailsSubmitted {
		if err := a.provider.DeleteAccount(ctx, p.StripeAccountID); err != nil {
			log.WithField("account", p.StripeAccountID).Warnf("stripe: deleting unfinished account: %v", err)
		}
	}

	acct, err := a.provider.CreateAccount(ctx, AccountParams{StoreID: storeID, UserID: userID})
	if err != nil {
		log.Errorf("stripe: creating account: %v", err)
		return "", &ProviderError{Op: "create account", Err: err}
	}

	now := time.Now().UTC()
	err = database.Transaction(a.db, func(tx sqlx.ExtContext) error {
		p := Payment{
			ID:              validate.GenerateID(),
			StoreID:         storeID,
			StripeAccountID: acct.ID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := SavePayment(ctx, tx, p); err != nil {
			return err
		}
		return catalog.UpdateStoreConnection(ctx, tx, storeID, &acct.ID, false)
	})
	if err != nil {
		return "", fmt.Errorf("saving stripe account of store[%s]: %w", storeID, err)
	}

	back := fmt.Sprintf("%s/store/%s", a.baseURL, storeID)
	url, err := a.provider.CreateAccountLink(ctx, acct.ID, back, back)
	if err != nil {
		log.Errorf("stripe: creating account link: %v", err)
		return "", &ProviderError{Op: "create account link", Err: err}
	}
	return url, nil
}
