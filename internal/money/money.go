// Package money normalizes caller-supplied amounts at the boundary of the
// ledger. Balances and amounts are fixed-point decimals with scale 2;
// rounding is half-even and applied exactly once, on the way in.
package money

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/ray-cod/pocket-bank/internal/errors"
)

// Scale is the number of decimal places every stored amount carries.
const Scale = 2

// currency symbols and grouping separators tolerated in raw input
const strippedRunes = "$€£R¥,'   "

// Parse turns raw amount text into a normalized positive decimal. It is
// tolerant of currency symbols, grouping separators, and surrounding
// whitespace, and rejects anything non-numeric or not strictly positive.
func Parse(raw string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(strippedRunes, r) {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if cleaned == "" {
		return decimal.Zero, apperrors.ErrInvalidAmount.WithDetails("amount is empty")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, apperrors.ErrInvalidAmount.WithDetails(err.Error())
	}

	d = Normalize(d)
	if !d.IsPositive() {
		return decimal.Zero, apperrors.ErrInvalidAmount
	}
	return d, nil
}

// Normalize coerces a decimal to scale 2 using banker's rounding. It is
// idempotent: normalizing an already-2-decimal value is a no-op.
func Normalize(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Scale)
}

// Amount is a normalized decimal that always renders at scale 2. Decimal's
// own String trims trailing zeros ("2450.00" becomes "2450"), so the bare
// type cannot cross the JSON boundary.
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: Normalize(d)}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.StringFixed(Scale))), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	if err := a.Decimal.UnmarshalJSON(data); err != nil {
		return apperrors.ErrInvalidAmount.WithDetails(err.Error())
	}
	a.Decimal = Normalize(a.Decimal)
	return nil
}
