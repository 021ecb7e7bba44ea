package order

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/e-commerce-storefront/core/money"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSort  = errors.New("invalid sort")
	ErrInvalidRange = errors.New("invalid date range")
)

type Status string

const (
	Pending   Status = "processing"
	Succeeded Status = "succeeded"
	Canceled  Status = "canceled"
)

type Order struct {
	ID                    string          `json:"id" db:"order_id"`
	StoreID               string          `json:"storeId" db:"store_id"`
	Items                 Items           `json:"items" db:"items"`
	Quantity              int             `json:"quantity" db:"quantity"`
	Amount                decimal.Decimal `json:"amount" db:"amount"`
	StripePaymentIntentID string          `json:"stripePaymentIntentId" db:"stripe_payment_intent_id"`
	Status                Status          `json:"status" db:"status"`
	Name                  string          `json:"name" db:"name"`
	Email                 string          `json:"email" db:"email"`
	PostalCode            string          `json:"postalCode" db:"postal_code"`
	CreatedAt             time.Time       `json:"createdAt" db:"created_at"`
}

type Item struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type Items []Item

func (it Items) Value() (driver.Value, error) {
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
		return fmt.Errorf("cannot scan %T into order items", src)
	}
	return json.Unmarshal(b, it)
}

// Quantity is the number of units across all items.
func (it Items) Quantity() int {
	var n int
	for _, i := range it {
		n += i.Quantity
	}
	return n
}

type Filter struct {
	StoreID  string
	Page     int
	PerPage  int
	Sort     string
	Customer string
	Statuses []Status
	From     *time.Time
	To       *time.Time
}

type Page struct {
	Orders    []Order `json:"orders"`
	PageCount int     `json:"pageCount"`
}

type AnalyticsFilter struct {
	StoreID string
	From    *time.Time
	To      *time.Time
	Page    int
}

type Summary struct {
	Revenue           decimal.Decimal `json:"revenue"`
	Orders            int             `json:"orders"`
	Sales             int             `json:"sales"`
	Series            []SalesPoint    `json:"series"`
	Customers         []Customer      `json:"customers"`
	CustomerPageCount int             `json:"customerPageCount"`
	Display           SummaryDisplay  `json:"display"`
}

// SummaryDisplay holds the summary totals formatted for the dashboard cards.
type SummaryDisplay struct {
	Revenue string `json:"revenue"`
	Orders  string `json:"orders"`
	Sales   string `json:"sales"`
}

func newSummaryDisplay(revenue decimal.Decimal, orders int, sales int) SummaryDisplay {
	return SummaryDisplay{
		Revenue: money.FormatPrice(revenue, "usd"),
		Orders:  money.FormatNumber(int64(orders)),
		Sales:   money.FormatNumber(int64(sales)),
	}
}

type SalesPoint struct {
	Month   time.Time       `json:"month" db:"month"`
	Revenue decimal.Decimal `json:"revenue" db:"revenue"`
	Sales   int             `json:"sales" db:"sales"`
}

type Customer struct {
	Name       string          `json:"name" db:"name"`
	Email      string          `json:"email" db:"email"`
	Orders     int             `json:"orders" db:"orders"`
	TotalSpent decimal.Decimal `json:"totalSpent" db:"total_spent"`
}
