package cart

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/e-commerce-storefront/core/catalog"
	"github.com/irsalhamdi/e-commerce-storefront/validate"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrProductNotFound = errors.New("product not found")
	ErrOutOfStock      = errors.New("product is out of stock")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrVersionConflict = errors.New("cart was modified concurrently")
)

type Cart struct {
	ID              string    `json:"id" db:"cart_id"`
	Items           Items     `json:"items" db:"items"`
	Closed          bool      `json:"closed" db:"closed"`
	PaymentIntentID *string   `json:"paymentIntentId" db:"payment_intent_id"`
	ClientSecret    *string   `json:"-" db:"client_secret"`
	Intents         Intents   `json:"-" db:"intents"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
	Version         int       `json:"-" db:"version"`
}

type Item struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

// Items is the jsonb column holding a cart's line items. It is validated on
// both read and write.
type Items []Item

type itemList struct {
	Items []Item `validate:"dive"`
}

func (it Items) Value() (driver.Value, error) {
	if err := validate.Check(itemList{it}); err != nil {
		return nil, fmt.Errorf("invalid cart items: %w", err)
	}
	if it == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(it)
}

func (it *Items) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*it = Items{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into cart items", src)
	}

	var items Items
	if err := json.Unmarshal(b, &items); err != nil {
		return fmt.Errorf("decoding cart items: %w", err)
	}
	if err := validate.Check(itemList{items}); err != nil {
		return fmt.Errorf("invalid cart items: %w", err)
	}
	if items == nil {
		items = Items{}
	}
	*it = items
	return nil
}

func (it Items) find(productID string) int {
	for i := range it {
		if it[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (it Items) ProductIDs() []string {
	ids := make([]string, 0, len(it))
	for _, i := range it {
		ids = append(ids, i.ProductID)
	}
	return ids
}

// IntentRef points at the payment intent paying for one store's share of a
// cart.
type IntentRef struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
}

// Intents is the jsonb column mapping store ids to their intent.
type Intents map[string]IntentRef

func (in Intents) Value() (driver.Value, error) {
	if in == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(in)
}

func (in *Intents) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*in = Intents{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into cart intents", src)
	}

	var m Intents
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("decoding cart intents: %w", err)
	}
	if m == nil {
		m = Intents{}
	}
	*in = m
	return nil
}

// Intent returns the intent opened for storeID's items, if any.
func (c Cart) Intent(storeID string) (IntentRef, bool) {
	ref, ok := c.Intents[storeID]
	return ref, ok
}

// LineItem is a cart item joined with the live product it references.
type LineItem struct {
	catalog.Snapshot
	Quantity int `json:"quantity"`
}

type ItemNew struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=1000"`
}

type ItemUp struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=1000"`
}

type ItemsDel struct {
	ProductIDs []string `json:"productIds" validate:"required,min=1,dive,required"`
}
