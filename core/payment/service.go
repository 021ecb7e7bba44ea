package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/irsalhamdi/e-commerce-storefront/core/cart"
	"github.com/irsalhamdi/e-commerce-storefront/core/checkout"
	"github.com/irsalhamdi/e-commerce-storefront/core/money"
	"github.com/irsalhamdi/e-commerce-storefront/core/order"
	"github.com/irsalhamdi/e-commerce-storefront/validate"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Stripe rejects metadata values longer than this.
const maxMetadataValue = 500

const (
	metaCartID  = "cartId"
	metaStoreID = "storeId"
	metaItems   = "items"
)

// Carts is what the service needs from the cart engine.
type Carts interface {
	Cart(ctx context.Context, token string) (cart.Cart, error)
	Get(ctx context.Context, token string, storeID string) []cart.LineItem
	AttachIntent(ctx context.Context, token string, storeID string, intentID string, clientSecret string) error
	Close(ctx context.Context, token string) error
}

// Connections resolves the connected account a store is paid through.
type Connections interface {
	Connection(ctx context.Context, storeID string) (Payment, error)
}

type Orders interface {
	Record(ctx context.Context, o order.Order) error
}

type Config struct {
	FeeRate  decimal.Decimal
	Currency string
}

type Service struct {
	provider Provider
	carts    Carts
	conns    Connections
	orders   Orders
	cfg      Config
	log      logrus.FieldLogger
}

func NewService(p Provider, carts Carts, conns Connections, orders Orders, cfg Config, log logrus.FieldLogger) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Service{
		provider: p,
		carts:    carts,
		conns:    conns,
		orders:   orders,
		cfg:      cfg,
		log:      log,
	}
}

// CreateOrUpdateIntent returns the payment intent paying for the part of the
// cart sold by storeID. Every store keeps its own intent on the cart. One
// still awaiting a payment method is updated in place and one mid-payment is
// left alone. A settled or missing one is replaced by a new intent.
func (s *Service) CreateOrUpdateIntent(ctx context.Context, token string, storeID string) (Intent, error) {
	conn, err := s.conns.Connection(ctx, storeID)
	if err != nil {
		return Intent{}, err
	}

	if token == "" {
		return Intent{}, cart.ErrCartNotFound
	}

	c, err := s.carts.Cart(ctx, token)
	if err != nil {
		return Intent{}, err
	}
	if c.Closed {
		return Intent{}, cart.ErrCartNotFound
	}

	items := s.carts.Get(ctx, token, storeID)
	amount, err := checkout.CalculateOrderAmount(checkoutItems(items), s.cfg.FeeRate)
	if err != nil {
		return Intent{}, err
	}

	params := IntentParams{
		AccountID: conn.StripeAccountID,
		Amount:    amount.Total,
		Fee:       amount.Fee,
		Currency:  s.cfg.Currency,
		Metadata:  s.metadata(token, storeID, items),
	}

	log := s.log.WithFields(logrus.Fields{
		"cart":  token,
		"store": storeID,
	})

	if ref, ok := c.Intent(storeID); ok {
		cur, err := s.provider.GetIntent(ctx, conn.StripeAccountID, ref.ID)
		switch {
		case errors.Is(err, ErrIntentNotFound):
			log.WithField("intent", ref.ID).Warn("intent not found under the store's account, creating a new one")
		case err != nil:
			return Intent{}, s.providerErr(log, "retrieve intent", err)
		case cur.Metadata[metaStoreID] != storeID:
			log.WithField("intent", cur.ID).Warnf("intent belongs to store[%s], creating a new one", cur.Metadata[metaStoreID])
		case cur.Status.Updatable():
			in, err := s.provider.UpdateIntent(ctx, cur.ID, params)
			if err != nil {
				return Intent{}, s.providerErr(log, "update intent", err)
			}

			in.ClientSecret = ref.ClientSecret
			in.Fee = amount.Fee
			return in, nil
		case cur.Status.Terminal():
			log.WithField("intent", cur.ID).Infof("intent in status %q, creating a new one", cur.Status)
		default:
			return Intent{}, ErrPaymentPending
		}
	}

	params.IdempotencyKey = fmt.Sprintf("cart-%s-v%d-%s", token, c.Version, storeID)

	in, err := s.provider.CreateIntent(ctx, params)
	if err != nil {
		return Intent{}, s.providerErr(log, "create intent", err)
	}

	if err := s.carts.AttachIntent(ctx, token, storeID, in.ID, in.ClientSecret); err != nil {
		return Intent{}, fmt.Errorf("attaching intent[%s] to cart: %w", in.ID, err)
	}

	in.Fee = amount.Fee
	return in, nil
}

// VerifyIntent checks that a succeeded intent belongs to the caller: either
// it was created for their cart or it ships to the postal code they gave.
func (s *Service) VerifyIntent(ctx context.Context, storeID string, intentID string, token string, postalCode string) (Intent, error) {
	conn, err := s.conns.Connection(ctx, storeID)
	if err != nil {
		return Intent{}, err
	}

	in, err := s.provider.GetIntent(ctx, conn.StripeAccountID, intentID)
	if err != nil {
		if errors.Is(err, ErrIntentNotFound) {
			return Intent{}, err
		}
		log := s.log.WithFields(logrus.Fields{"store": storeID, "intent": intentID})
		return Intent{}, s.providerErr(log, "retrieve intent", err)
	}

	if in.Status != Succeeded {
		return Intent{}, ErrNotSucceeded
	}

	ownCart := token != "" && in.Metadata[metaCartID] == token
	samePostal := postalCode != "" && stripSpaces(in.PostalCode) == stripSpaces(postalCode)
	if !ownCart && !samePostal {
		return Intent{}, ErrMismatch
	}

	return in, nil
}

// CompleteCheckout verifies the intent, records its order and closes the
// cart it paid for. It can be repeated safely.
func (s *Service) CompleteCheckout(ctx context.Context, storeID string, intentID string, token string, postalCode string) (Intent, error) {
	in, err := s.VerifyIntent(ctx, storeID, intentID, token, postalCode)
	if err != nil {
		return Intent{}, err
	}

	if err := s.fulfill(ctx, storeID, in); err != nil {
		return Intent{}, err
	}
	return in, nil
}

func (s *Service) fulfill(ctx context.Context, storeID string, in Intent) error {
	if in.Status != Succeeded {
		return fmt.Errorf("payment[%s] in status %q: %w", in.ID, in.Status, ErrNotSucceeded)
	}

	ord, err := s.newOrder(storeID, in)
	if err != nil {
		return fmt.Errorf("building order for payment[%s]: %w", in.ID, err)
	}

	if err := s.orders.Record(ctx, ord); err != nil {
		return fmt.Errorf("recording order for payment[%s]: %w", in.ID, err)
	}

	token := in.Metadata[metaCartID]
	if token == "" {
		return nil
	}

	if err := s.carts.Close(ctx, token); err != nil && !errors.Is(err, cart.ErrCartNotFound) {
		return fmt.Errorf("closing cart paid by payment[%s]: %w", in.ID, err)
	}
	return nil
}

// ListIntents returns the store's most recent intents. Failures yield an
// empty page.
func (s *Service) ListIntents(ctx context.Context, storeID string, limit int) ([]IntentSummary, bool) {
	out := []IntentSummary{}

	conn, err := s.conns.Connection(ctx, storeID)
	if err != nil {
		return out, false
	}

	intents, more, err := s.provider.ListIntents(ctx, conn.StripeAccountID, limit)
	if err != nil {
		s.log.WithField("store", storeID).Errorf("listing intents: %v", err)
		return out, false
	}

	for _, in := range intents {
		out = append(out, IntentSummary{
			ID:      in.ID,
			Amount:  money.FormatPrice(money.FromMinor(in.Amount), in.Currency),
			Status:  in.Status,
			CartID:  in.Metadata[metaCartID],
			Created: in.Created,
		})
	}
	return out, more
}

type IntentSummary struct {
	ID      string    `json:"id"`
	Amount  string    `json:"amount"`
	Status  Status    `json:"status"`
	CartID  string    `json:"cartId"`
	Created time.Time `json:"created"`
}

type metaItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func (s *Service) metadata(token string, storeID string, items []cart.LineItem) map[string]string {
	md := map[string]string{
		metaCartID:  token,
		metaStoreID: storeID,
	}

	mi := make([]metaItem, 0, len(items))
	for _, it := range items {
		mi = append(mi, metaItem{ProductID: it.ID, Quantity: it.Quantity, Price: it.Price})
	}

	b, err := json.Marshal(mi)
	if err != nil || len(b) > maxMetadataValue {
		s.log.WithField("cart", token).Warnf("item snapshot left out of intent metadata (%d bytes)", len(b))

		// An empty value unsets the key on an intent being updated.
		md[metaItems] = ""
		return md
	}

	md[metaItems] = string(b)
	return md
}

func (s *Service) newOrder(storeID string, in Intent) (order.Order, error) {
	var items order.Items
	if raw := in.Metadata[metaItems]; raw != "" {
		var mi []metaItem
		if err := json.Unmarshal([]byte(raw), &mi); err != nil {
			return order.Order{}, fmt.Errorf("decoding item snapshot: %w", err)
		}
		for _, it := range mi {
			items = append(items, order.Item{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
		}
	}

	return order.Order{
		ID:                    validate.GenerateID(),
		StoreID:               storeID,
		Items:                 items,
		Quantity:              items.Quantity(),
		Amount:                money.FromMinor(in.Amount),
		StripePaymentIntentID: in.ID,
		Status:                order.Status(in.Status),
		Name:                  in.Name,
		Email:                 in.Email,
		PostalCode:            in.PostalCode,
		CreatedAt:             time.Now().UTC(),
	}, nil
}

func (s *Service) providerErr(log logrus.FieldLogger, op string, err error) error {
	log.WithField("op", op).Errorf("stripe: %v", err)
	return &ProviderError{Op: op, Err: err}
}

// checkoutItems converts live line items, priced in major units, into
// calculator input.
func checkoutItems(items []cart.LineItem) []checkout.Item {
	out := make([]checkout.Item, 0, len(items))
	for _, it := range items {
		out = append(out, checkout.Item{
			ProductID: it.ID,
			Price:     money.ToMinor(it.Price),
			Quantity:  it.Quantity,
		})
	}
	return out
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
