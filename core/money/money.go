// Package money converts between decimal prices and provider minor units and
// formats amounts for display.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MinorExp is the number of decimal places between a major unit and the
// minor unit the payment provider charges in (dollars to cents).
const MinorExp = 2

var ErrInvalidRate = errors.New("fee rate must be within [0, 1)")

func ToMinor(major decimal.Decimal) decimal.Decimal {
	return major.Shift(MinorExp)
}

func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -MinorExp)
}

// Fee is the platform share of total, floored to whole minor units.
func Fee(total int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(total).Mul(rate).Floor().IntPart()
}

func ParseRate(s string) (decimal.Decimal, error) {
	r, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing fee rate %q: %w", s, err)
	}
	if err := CheckRate(r); err != nil {
		return decimal.Zero, err
	}
	return r, nil
}

func CheckRate(r decimal.Decimal) error {
	if r.IsNegative() || r.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return ErrInvalidRate
	}
	return nil
}

// FormatPrice renders a major-unit amount with the currency symbol and the
// grouping rules of English, e.g. "$1,234.50".
func FormatPrice(amount decimal.Decimal, iso string) string {
	unit, err := currency.ParseISO(iso)
	if err != nil {
		unit = currency.USD
	}
	scale, _ := currency.Standard.Rounding(unit)

	f, _ := amount.Round(int32(scale)).Float64()
	p := message.NewPrinter(language.English)
	return p.Sprintf("%v%v", currency.NarrowSymbol(unit), number.Decimal(f, number.Scale(scale)))
}

func FormatNumber(n int64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%v", number.Decimal(n))
}
