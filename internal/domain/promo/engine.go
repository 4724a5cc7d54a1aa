package promo

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is one order line as seen by the engine: product identity, captured
// unit price, real quantity, and whether the line carries priced extras.
type Line struct {
	ProductID  uuid.UUID
	CategoryID *uuid.UUID
	UnitPrice  decimal.Decimal
	Quantity   int
	// Personalized marks a line with at least one priced extra. Such
	// lines never receive a promotion; this is a business rule, not a
	// simplification.
	Personalized bool
}

// subtotal is the pre-discount line amount.
func (l Line) subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Assignment is the engine's verdict for one line. The zero value means
// "no promotion applies" — that is the default outcome, never an error.
type Assignment struct {
	PromotionID   uuid.UUID
	PromotionName string
	Discount      decimal.Decimal
}

// Applied reports whether a promotion was assigned to the line.
func (a Assignment) Applied() bool { return a.PromotionName != "" }

// Evaluate runs the full rule evaluation over every line of an order and
// returns one Assignment per line, index-aligned with lines.
//
// The function is pure: identical inputs always produce identical output,
// nothing is mutated, and the current instant is a parameter (already in
// the tenant's time zone). Callers invoke it over the entire line set after
// every order mutation, because combo benefits depend on lines other than
// the one that changed.
//
// Winner-take-all: at most one promotion applies per line — the candidate
// with the highest priority. Ties keep the earliest candidate in slice
// order, which the promotion repository makes stable; discounts are never
// summed.
func Evaluate(lines []Line, promotions []Promotion, now time.Time) []Assignment {
	out := make([]Assignment, len(lines))

	for i, line := range lines {
		if line.Personalized || line.Quantity <= 0 {
			out[i].Discount = decimal.Zero
			continue
		}

		ctx := Context{Now: now, Lines: lines, LineIndex: i}

		var (
			winner   *Promotion
			winAmt   decimal.Decimal
			winPrio  int
			haveProm bool
		)
		for j := range promotions {
			p := &promotions[j]
			if !eligible(p, line) {
				continue
			}
			if !triggersHold(p, ctx) {
				continue
			}
			amount := strategyDiscount(p, line, ctx)
			if !amount.IsPositive() {
				continue
			}
			if !haveProm || p.Priority > winPrio {
				winner, winAmt, winPrio, haveProm = p, amount, p.Priority, true
			}
		}

		if !haveProm {
			out[i].Discount = decimal.Zero
			continue
		}

		out[i] = Assignment{
			PromotionID:   winner.ID,
			PromotionName: winner.Name,
			Discount:      clampDiscount(winAmt, line),
		}
	}

	return out
}

// eligible reports whether the promotion can touch this line at all: it is
// active and either its scope targets the line's product or category, or a
// content trigger lists the product.
func eligible(p *Promotion, line Line) bool {
	if !p.Active() {
		return false
	}
	if p.Scope.TargetsProduct(line.ProductID) {
		return true
	}
	if line.CategoryID != nil && p.Scope.TargetsCategory(*line.CategoryID) {
		return true
	}
	for _, t := range p.Triggers {
		if ct, ok := t.(ContentTrigger); ok && ct.Lists(line.ProductID) {
			return true
		}
	}
	return false
}

// triggersHold evaluates the conjunctive trigger list, short-circuiting on
// the first unsatisfied trigger.
func triggersHold(p *Promotion, ctx Context) bool {
	for _, t := range p.Triggers {
		if !t.SatisfiedBy(ctx) {
			return false
		}
	}
	return true
}

// strategyDiscount computes the raw benefit of the promotion's strategy for
// the line. A zero result disqualifies the promotion as a candidate.
func strategyDiscount(p *Promotion, line Line, ctx Context) decimal.Decimal {
	switch s := p.Strategy.(type) {
	case QuantityDiscount:
		cycles := line.Quantity / s.Buy
		free := cycles * (s.Buy - s.Pay)
		return line.UnitPrice.Mul(decimal.NewFromInt(int64(free)))

	case DirectDiscount:
		if s.Mode == ModePercentage {
			return line.subtotal().Mul(s.Value).Div(hundred).Round(2)
		}
		return decimal.Min(s.Value, line.subtotal())

	case ConditionalCombo:
		if !comboTriggerPresent(p, s, ctx) {
			return decimal.Zero
		}
		return line.subtotal().Mul(s.BenefitPercent).Div(hundred).Round(2)

	case FixedPricePack:
		cycles := line.Quantity / s.ActivationQuantity
		if cycles == 0 {
			return decimal.Zero
		}
		perCycle := line.UnitPrice.Mul(decimal.NewFromInt(int64(s.ActivationQuantity))).Sub(s.PackPrice)
		if !perCycle.IsPositive() {
			return decimal.Zero
		}
		return perCycle.Mul(decimal.NewFromInt(int64(cycles)))
	}

	return decimal.Zero
}

// comboTriggerPresent checks that some other line matches a TRIGGER scope
// entry with enough quantity. The benefit goes to the target line only, so
// the line under evaluation is excluded from the count.
func comboTriggerPresent(p *Promotion, s ConditionalCombo, ctx Context) bool {
	for _, triggerID := range p.Scope.TriggerProductIDs() {
		if ctx.OtherQuantityOf(triggerID) >= s.MinTriggerQuantity {
			return true
		}
	}
	return false
}

// clampDiscount keeps the snapshot inside [0, quantity x unitPrice].
func clampDiscount(amount decimal.Decimal, line Line) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(amount, line.subtotal()).Round(2)
}
