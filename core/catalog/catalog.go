package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

type Product struct {
	ID            string          `json:"id" db:"product_id"`
	Name          string          `json:"name" db:"name"`
	Description   string          `json:"description" db:"description"`
	Images        Images          `json:"images" db:"images"`
	CategoryID    string          `json:"categoryId" db:"category_id"`
	SubcategoryID *string         `json:"subcategoryId" db:"subcategory_id"`
	Price         decimal.Decimal `json:"price" db:"price"`
	Inventory     int             `json:"inventory" db:"inventory"`
	Rating        int             `json:"rating" db:"rating"`
	StoreID       string          `json:"storeId" db:"store_id"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// Snapshot is a product joined with the names of its store and categories, as
// seen at read time.
type Snapshot struct {
	ID                   string          `json:"id" db:"product_id"`
	Name                 string          `json:"name" db:"name"`
	Images               Images          `json:"images" db:"images"`
	Category             *string         `json:"category" db:"category"`
	Subcategory          *string         `json:"subcategory" db:"subcategory"`
	Price                decimal.Decimal `json:"price" db:"price"`
	Inventory            int             `json:"inventory" db:"inventory"`
	StoreID              string          `json:"storeId" db:"store_id"`
	StoreName            *string         `json:"storeName" db:"store_name"`
	StoreStripeAccountID *string         `json:"storeStripeAccountId" db:"store_stripe_account_id"`
	CreatedAt            time.Time       `json:"-" db:"created_at"`
}

type Store struct {
	ID              string    `json:"id" db:"store_id"`
	UserID          string    `json:"userId" db:"user_id"`
	Name            string    `json:"name" db:"name"`
	Description     *string   `json:"description" db:"description"`
	StripeAccountID *string   `json:"stripeAccountId" db:"stripe_account_id"`
	Active          bool      `json:"active" db:"active"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

type Category struct {
	ID            string        `json:"id" db:"category_id"`
	Name          string        `json:"name" db:"name"`
	Slug          string        `json:"slug" db:"slug"`
	Description   *string       `json:"description" db:"description"`
	Subcategories []Subcategory `json:"subcategories" db:"-"`
}

type Subcategory struct {
	ID          string  `json:"id" db:"subcategory_id"`
	CategoryID  string  `json:"-" db:"category_id"`
	Name        string  `json:"name" db:"name"`
	Slug        string  `json:"slug" db:"slug"`
	Description *string `json:"description" db:"description"`
}

type Image struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Images is stored as a jsonb array.
type Images []Image

func (im Images) Value() (driver.Value, error) {
	if im == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(im)
}

func (im *Images) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*im = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into images", src)
	}
	return json.Unmarshal(b, im)
}
