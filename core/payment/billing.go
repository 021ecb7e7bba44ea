package payment

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// PlanInput describes the seller asking to manage their subscription.
type PlanInput struct {
	UserID         string `json:"-"`
	Email          string `json:"email" validate:"required,email"`
	PriceID        string `json:"priceId" validate:"required"`
	CustomerID     string `json:"customerId"`
	SubscriptionID string `json:"subscriptionId"`
	IsSubscribed   bool   `json:"isSubscribed"`
	IsCurrentPlan  bool   `json:"isCurrentPlan"`
}

type Billing struct {
	provider Provider
	log      logrus.FieldLogger
	baseURL  string
}

func NewBilling(p Provider, log logrus.FieldLogger, baseURL string) *Billing {
	return &Billing{provider: p, log: log, baseURL: baseURL}
}

// ManagePlan returns where the seller should go: the billing portal when they
// already pay for this plan, a subscription checkout otherwise.
func (b *Billing) ManagePlan(ctx context.Context, in PlanInput) (string, error) {
	billingURL := b.baseURL + "/dashboard/billing"
	log := b.log.WithField("user", in.UserID)

	if in.IsSubscribed && in.CustomerID != "" && in.IsCurrentPlan {
		url, err := b.provider.CreatePortalSession(ctx, in.CustomerID, billingURL)
		if err != nil {
			log.Errorf("stripe: creating portal session: %v", err)
			return "", &ProviderError{Op: "create portal session", Err: err}
		}
		return url, nil
	}

	url, err := b.provider.CreateSubscriptionCheckout(ctx, SubscriptionParams{
		UserID:     in.UserID,
		Email:      in.Email,
		PriceID:    in.PriceID,
		SuccessURL: billingURL,
		CancelURL:  billingURL,
	})
	if err != nil {
		log.Errorf("stripe: creating subscription checkout: %v", err)
		return "", &ProviderError{Op: "create checkout session", Err: fmt.Errorf("price[%s]: %w", in.PriceID, err)}
	}
	return url, nil
}
