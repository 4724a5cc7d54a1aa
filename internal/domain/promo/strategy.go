package promo

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// StrategyKind identifies a strategy variant for persistence.
type StrategyKind string

const (
	KindQuantityDiscount StrategyKind = "quantity_discount"
	KindDirectDiscount   StrategyKind = "direct_discount"
	KindConditionalCombo StrategyKind = "conditional_combo"
	KindFixedPricePack   StrategyKind = "fixed_price_pack"
)

// DiscountMode selects how a DirectDiscount interprets its value.
type DiscountMode string

const (
	ModePercentage  DiscountMode = "percentage"
	ModeFixedAmount DiscountMode = "fixed_amount"
)

// Strategy is the discount-calculation rule attached to a promotion.
// It is a closed union: the variants below are the only implementations,
// and the engine dispatches over them exhaustively.
type Strategy interface {
	Kind() StrategyKind
	Validate() error

	sealedStrategy()
}

// QuantityDiscount is the NxM strategy: take Buy units, pay for Pay.
// Every full group of Buy units makes Buy-Pay of them free; any remainder
// below Buy is charged in full. The fulfillment quantity is never reduced.
type QuantityDiscount struct {
	Buy int
	Pay int
}

func (s QuantityDiscount) Kind() StrategyKind { return KindQuantityDiscount }

func (s QuantityDiscount) Validate() error {
	if s.Pay < 0 {
		return errors.New("quantity discount: pay must be >= 0")
	}
	if s.Buy <= s.Pay {
		return errors.Errorf("quantity discount: buy (%d) must exceed pay (%d)", s.Buy, s.Pay)
	}
	return nil
}

func (QuantityDiscount) sealedStrategy() {}

// DirectDiscount cuts a percentage or a fixed amount off a line.
type DirectDiscount struct {
	Mode  DiscountMode
	Value decimal.Decimal
}

func (s DirectDiscount) Kind() StrategyKind { return KindDirectDiscount }

func (s DirectDiscount) Validate() error {
	switch s.Mode {
	case ModePercentage:
		if s.Value.LessThanOrEqual(decimal.Zero) || s.Value.GreaterThan(hundred) {
			return errors.Errorf("direct discount: percentage must be in (0, 100], got %s", s.Value)
		}
	case ModeFixedAmount:
		if s.Value.IsNegative() {
			return errors.Errorf("direct discount: fixed amount must be >= 0, got %s", s.Value)
		}
	default:
		return errors.Errorf("direct discount: unknown mode %q", s.Mode)
	}
	return nil
}

func (DirectDiscount) sealedStrategy() {}

// ConditionalCombo grants BenefitPercent off the target line when some other
// line in the order matches a TRIGGER scope entry with at least
// MinTriggerQuantity units. The trigger line itself never gets the benefit.
type ConditionalCombo struct {
	MinTriggerQuantity int
	BenefitPercent     decimal.Decimal
}

func (s ConditionalCombo) Kind() StrategyKind { return KindConditionalCombo }

func (s ConditionalCombo) Validate() error {
	if s.MinTriggerQuantity < 1 {
		return errors.New("conditional combo: minimum trigger quantity must be >= 1")
	}
	if s.BenefitPercent.LessThanOrEqual(decimal.Zero) || s.BenefitPercent.GreaterThan(hundred) {
		return errors.Errorf("conditional combo: benefit percent must be in (0, 100], got %s", s.BenefitPercent)
	}
	return nil
}

func (ConditionalCombo) sealedStrategy() {}

// FixedPricePack sells every full group of ActivationQuantity units at
// PackPrice; units beyond the last full pack are charged at the plain unit
// price, never at a pro-rated pack rate.
type FixedPricePack struct {
	ActivationQuantity int
	PackPrice          decimal.Decimal
}

func (s FixedPricePack) Kind() StrategyKind { return KindFixedPricePack }

func (s FixedPricePack) Validate() error {
	if s.ActivationQuantity < 2 {
		return errors.New("fixed price pack: activation quantity must be >= 2")
	}
	if s.PackPrice.LessThanOrEqual(decimal.Zero) {
		return errors.Errorf("fixed price pack: pack price must be > 0, got %s", s.PackPrice)
	}
	return nil
}

func (FixedPricePack) sealedStrategy() {}
