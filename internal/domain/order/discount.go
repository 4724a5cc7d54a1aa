package order

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ManualDiscount is the order-wide discount overlay. Only the percentage
// is stored; the monetary amount is recomputed from the current
// post-promotion subtotal on every read, so it tracks item changes
// automatically. An order holds at most one: applying a new discount fully
// replaces the previous one.
type ManualDiscount struct {
	Percent   decimal.Decimal
	Reason    string
	AppliedBy uuid.UUID
	AppliedAt time.Time
}

// NewManualDiscount validates the percentage (0 < pct <= 100) and the
// applying user.
func NewManualDiscount(percent decimal.Decimal, reason string, appliedBy uuid.UUID, appliedAt time.Time) (ManualDiscount, error) {
	if percent.LessThanOrEqual(decimal.Zero) || percent.GreaterThan(hundred) {
		return ManualDiscount{}, errors.Errorf("manual discount: percentage must be in (0, 100], got %s", percent)
	}
	if appliedBy == uuid.Nil {
		return ManualDiscount{}, errors.New("manual discount: applying user is required")
	}
	return ManualDiscount{
		Percent:   percent,
		Reason:    reason,
		AppliedBy: appliedBy,
		AppliedAt: appliedAt,
	}, nil
}

// AmountOn computes the monetary amount against the given base.
func (d ManualDiscount) AmountOn(base decimal.Decimal) decimal.Decimal {
	if base.IsNegative() {
		return decimal.Zero
	}
	return base.Mul(d.Percent).Div(hundred).Round(2)
}
