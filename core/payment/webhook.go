package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
)

const eventIntentSucceeded = "payment_intent.succeeded"

// HandleEvent fulfills the checkout paid by a succeeded payment intent.
// Other events are ignored.
func (s *Service) HandleEvent(ctx context.Context, evt stripe.Event) error {
	if evt.Type != eventIntentSucceeded {
		return nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
		return fmt.Errorf("decoding payment intent: %w", err)
	}

	in := toIntent(&pi)
	if in.Status != Succeeded {
		s.log.WithFields(logrus.Fields{"intent": in.ID, "status": in.Status}).Warn("succeeded event carries an unpaid intent, ignoring")
		return nil
	}

	storeID := in.Metadata[metaStoreID]
	if storeID == "" {
		s.log.WithField("intent", in.ID).Warn("succeeded intent carries no store, ignoring")
		return nil
	}

	if err := s.fulfill(ctx, storeID, in); err != nil {
		return fmt.Errorf("fulfilling payment[%s] of store[%s]: %w", in.ID, storeID, err)
	}
	return nil
}
