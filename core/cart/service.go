package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/e-commerce-storefront/core/catalog"
	"github.com/irsalhamdi/e-commerce-storefront/validate"
	"github.com/sirupsen/logrus"
)

const maxAttempts = 3

// Catalog is the read side the cart needs from the product catalog.
type Catalog interface {
	Product(ctx context.Context, id string) (catalog.Product, error)
	Snapshots(ctx context.Context, ids []string, storeID string) ([]catalog.Snapshot, error)
	StoreIDs(ctx context.Context, ids []string) ([]string, error)
}

// Invalidator drops cached views derived from cart contents.
type Invalidator interface {
	Invalidate(ctx context.Context, tags ...string) error
}

type Service struct {
	store   Store
	catalog Catalog
	inv     Invalidator
	log     logrus.FieldLogger

	now      func() time.Time
	newToken func() string
}

func NewService(store Store, cat Catalog, inv Invalidator, log logrus.FieldLogger) *Service {
	return &Service{
		store:    store,
		catalog:  cat,
		inv:      inv,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		newToken: validate.GenerateID,
	}
}

var (
	errClosed   = errors.New("cart closed")
	errNoChange = errors.New("no change")
)

// Cart returns the persisted cart behind token.
func (s *Service) Cart(ctx context.Context, token string) (Cart, error) {
	if token == "" {
		return Cart{}, ErrCartNotFound
	}
	return s.store.Fetch(ctx, token)
}

// Get returns the cart's items joined with their live products, optionally
// scoped to one store. It never fails: a missing cart or a failed lookup
// yields an empty list.
func (s *Service) Get(ctx context.Context, token string, storeID string) []LineItem {
	items := []LineItem{}
	if token == "" {
		return items
	}

	c, err := s.store.Fetch(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrCartNotFound) {
			s.log.WithField("cart", token).Errorf("fetching cart: %v", err)
		}
		return items
	}
	if len(c.Items) == 0 {
		return items
	}

	snaps, err := s.catalog.Snapshots(ctx, c.Items.ProductIDs(), storeID)
	if err != nil {
		s.log.WithField("cart", token).Errorf("fetching cart products: %v", err)
		return items
	}

	qty := make(map[string]int, len(c.Items))
	for _, it := range c.Items {
		qty[it.ProductID] = it.Quantity
	}

	for _, sn := range snaps {
		q, ok := qty[sn.ID]
		if !ok {
			continue
		}
		items = append(items, LineItem{Snapshot: sn, Quantity: q})
	}
	return items
}

// UniqueStoreIDs returns the stores selling the products in the cart.
func (s *Service) UniqueStoreIDs(ctx context.Context, token string) []string {
	ids := []string{}
	if token == "" {
		return ids
	}

	c, err := s.store.Fetch(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrCartNotFound) {
			s.log.WithField("cart", token).Errorf("fetching cart: %v", err)
		}
		return ids
	}
	if len(c.Items) == 0 {
		return ids
	}

	storeIDs, err := s.catalog.StoreIDs(ctx, c.Items.ProductIDs())
	if err != nil {
		s.log.WithField("cart", token).Errorf("fetching cart stores: %v", err)
		return ids
	}
	return storeIDs
}

// AddItem adds quantity units of a product to the cart behind token. When a
// new cart had to be created its token is returned in place of the old one.
func (s *Service) AddItem(ctx context.Context, token string, productID string, quantity int) (string, []LineItem, error) {
	if quantity < 1 {
		return token, nil, ErrInvalidQuantity
	}

	p, err := s.catalog.Product(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return token, nil, ErrProductNotFound
		}
		return token, nil, fmt.Errorf("fetching product[%s]: %w", productID, err)
	}

	if p.Inventory < quantity {
		return token, nil, ErrOutOfStock
	}

	if token == "" {
		token, err = s.create(ctx, Item{ProductID: productID, Quantity: quantity})
		if err != nil {
			return "", nil, err
		}
		s.invalidate(ctx)
		return token, s.Get(ctx, token, ""), nil
	}

	err = s.mutate(ctx, token, func(c *Cart) error {
		if c.Closed {
			return errClosed
		}

		if i := c.Items.find(productID); i >= 0 {
			c.Items[i].Quantity += quantity
		} else {
			c.Items = append(c.Items, Item{ProductID: productID, Quantity: quantity})
		}
		return nil
	})

	switch {
	case err == nil:

	case errors.Is(err, errClosed):
		if err := s.store.Delete(ctx, token); err != nil {
			return token, nil, fmt.Errorf("recycling closed cart: %w", err)
		}

		token, err = s.create(ctx, Item{ProductID: productID, Quantity: quantity})
		if err != nil {
			return "", nil, err
		}

	case errors.Is(err, ErrCartNotFound):
		if err := s.store.Delete(ctx, token); err != nil {
			s.log.WithField("cart", token).Errorf("deleting stale cart: %v", err)
		}
		return "", nil, ErrCartNotFound

	default:
		return token, nil, fmt.Errorf("adding product[%s] to cart: %w", productID, err)
	}

	s.invalidate(ctx)
	return token, s.Get(ctx, token, ""), nil
}

// SetItemQuantity replaces the quantity of a cart item. A zero quantity
// removes it.
func (s *Service) SetItemQuantity(ctx context.Context, token string, productID string, quantity int) error {
	if token == "" {
		return ErrCartNotFound
	}
	if quantity < 0 {
		return ErrInvalidQuantity
	}

	err := s.mutate(ctx, token, func(c *Cart) error {
		if c.Closed {
			return ErrCartNotFound
		}

		i := c.Items.find(productID)
		if i < 0 {
			return ErrItemNotFound
		}

		if quantity == 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Quantity = quantity
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

// RemoveItem removes a product from the cart. Removing an absent product is
// a no-op.
func (s *Service) RemoveItem(ctx context.Context, token string, productID string) error {
	return s.RemoveItems(ctx, token, []string{productID})
}

func (s *Service) RemoveItems(ctx context.Context, token string, productIDs []string) error {
	if token == "" {
		return ErrCartNotFound
	}

	drop := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		drop[id] = true
	}

	err := s.mutate(ctx, token, func(c *Cart) error {
		if c.Closed {
			return errNoChange
		}

		kept := make(Items, 0, len(c.Items))
		for _, it := range c.Items {
			if !drop[it.ProductID] {
				kept = append(kept, it)
			}
		}

		if len(kept) == len(c.Items) {
			return errNoChange
		}
		c.Items = kept
		return nil
	})
	if errors.Is(err, ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

// Clear deletes the cart behind token.
func (s *Service) Clear(ctx context.Context, token string) error {
	if token == "" {
		return ErrCartNotFound
	}

	if err := s.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}

	s.invalidate(ctx)
	return nil
}

// Close marks the cart as paid. Closing a closed cart is a no-op.
func (s *Service) Close(ctx context.Context, token string) error {
	if token == "" {
		return ErrCartNotFound
	}

	err := s.mutate(ctx, token, func(c *Cart) error {
		if c.Closed {
			return errNoChange
		}
		c.Closed = true
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

// AttachIntent stores the payment intent created for storeID's items. The
// cart's own intent fields track the latest one attached.
func (s *Service) AttachIntent(ctx context.Context, token string, storeID string, intentID string, clientSecret string) error {
	if token == "" {
		return ErrCartNotFound
	}

	return s.mutate(ctx, token, func(c *Cart) error {
		if c.Intents == nil {
			c.Intents = Intents{}
		}
		c.Intents[storeID] = IntentRef{ID: intentID, ClientSecret: clientSecret}
		c.PaymentIntentID = &intentID
		c.ClientSecret = &clientSecret
		return nil
	})
}

func (s *Service) create(ctx context.Context, first Item) (string, error) {
	now := s.now()
	c := Cart{
		ID:        s.newToken(),
		Items:     Items{first},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, c); err != nil {
		return "", fmt.Errorf("creating cart: %w", err)
	}
	return c.ID, nil
}

// mutate applies fn to the latest stored cart and writes it back, reloading
// and reapplying fn when another writer got there first. fn returning
// errNoChange skips the write.
func (s *Service) mutate(ctx context.Context, token string, fn func(c *Cart) error) error {
	for attempt := 1; ; attempt++ {
		c, err := s.store.Fetch(ctx, token)
		if err != nil {
			return err
		}

		if err := fn(&c); err != nil {
			if errors.Is(err, errNoChange) {
				return nil
			}
			return err
		}

		c.UpdatedAt = s.now()
		err = s.store.Update(ctx, c)
		if err == nil {
			return nil
		}

		if !errors.Is(err, ErrVersionConflict) || attempt >= maxAttempts {
			return err
		}

		s.log.WithFields(logrus.Fields{
			"cart":    token,
			"attempt": attempt,
		}).Debug("cart version conflict, retrying")
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.inv.Invalidate(ctx, catalog.Tag); err != nil {
		s.log.Warnf("invalidating catalog cache: %v", err)
	}
}
