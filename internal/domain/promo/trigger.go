package promo

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TriggerKind identifies a trigger variant for persistence.
type TriggerKind string

const (
	KindTemporal      TriggerKind = "temporal"
	KindContent       TriggerKind = "content"
	KindMinimumAmount TriggerKind = "minimum_amount"
)

// Context is the snapshot a trigger is evaluated against: the instant in
// the tenant's time zone, all current order lines, and the index of the
// line under evaluation.
type Context struct {
	Now       time.Time
	Lines     []Line
	LineIndex int
}

// Subtotal returns the pre-discount sum of quantity x unit price over every
// line, including the one under evaluation.
func (c Context) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// OtherQuantityOf returns the total quantity of the given product across
// all lines except the one under evaluation.
func (c Context) OtherQuantityOf(productID uuid.UUID) int {
	total := 0
	for i, l := range c.Lines {
		if i == c.LineIndex {
			continue
		}
		if l.ProductID == productID {
			total += l.Quantity
		}
	}
	return total
}

// Trigger is a precondition for a promotion to be eligible. A promotion's
// trigger list is conjunctive: every trigger must hold. Closed union like
// Strategy.
type Trigger interface {
	Kind() TriggerKind
	Validate() error
	// SatisfiedBy reports whether the precondition holds for the given
	// order snapshot and instant.
	SatisfiedBy(ctx Context) bool

	sealedTrigger()
}

// TimeOfDay is a clock time expressed as minutes since midnight.
type TimeOfDay int

// ClockTime builds a TimeOfDay from hour and minute.
func ClockTime(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

func timeOfDay(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// TemporalTrigger restricts a promotion to a date range, optionally to a
// set of weekdays, and optionally to an hour-of-day window. All bounds are
// inclusive and evaluated in the tenant's time zone (the engine receives
// the instant already localized).
type TemporalTrigger struct {
	From  time.Time
	Until time.Time
	// Weekdays is the set of allowed weekdays; empty means every day.
	Weekdays []time.Weekday
	// HourFrom/HourUntil bound the time of day; nil means all day.
	HourFrom  *TimeOfDay
	HourUntil *TimeOfDay
}

func (t TemporalTrigger) Kind() TriggerKind { return KindTemporal }

func (t TemporalTrigger) Validate() error {
	if t.From.IsZero() || t.Until.IsZero() {
		return errors.New("temporal trigger: date range is required")
	}
	if dateOrd(t.From) > dateOrd(t.Until) {
		return errors.New("temporal trigger: range start is after range end")
	}
	if (t.HourFrom == nil) != (t.HourUntil == nil) {
		return errors.New("temporal trigger: hour window needs both bounds")
	}
	if t.HourFrom != nil && *t.HourFrom > *t.HourUntil {
		return errors.New("temporal trigger: hour window start is after end")
	}
	return nil
}

func (t TemporalTrigger) SatisfiedBy(ctx Context) bool {
	day := dateOrd(ctx.Now)
	if day < dateOrd(t.From) || day > dateOrd(t.Until) {
		return false
	}
	if len(t.Weekdays) > 0 && !containsWeekday(t.Weekdays, ctx.Now.Weekday()) {
		return false
	}
	if t.HourFrom != nil {
		tod := timeOfDay(ctx.Now)
		if tod < *t.HourFrom || tod > *t.HourUntil {
			return false
		}
	}
	return true
}

func (TemporalTrigger) sealedTrigger() {}

// dateOrd collapses a time to a comparable calendar-day ordinal in its own
// location, so date range checks ignore the time of day.
func dateOrd(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

func containsWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, w := range days {
		if w == d {
			return true
		}
	}
	return false
}

// ContentRequirement demands a minimum quantity of one product among the
// order's other lines.
type ContentRequirement struct {
	ProductID   uuid.UUID
	MinQuantity int
}

// ContentTrigger holds iff every required product is present, with the
// required total quantity, among the lines other than the one under
// evaluation.
type ContentTrigger struct {
	Requirements []ContentRequirement
}

func (t ContentTrigger) Kind() TriggerKind { return KindContent }

func (t ContentTrigger) Validate() error {
	if len(t.Requirements) == 0 {
		return errors.New("content trigger: at least one requirement is needed")
	}
	for _, r := range t.Requirements {
		if r.ProductID == uuid.Nil {
			return errors.New("content trigger: requirement product id is empty")
		}
		if r.MinQuantity < 1 {
			return errors.Errorf("content trigger: minimum quantity must be >= 1, got %d", r.MinQuantity)
		}
	}
	return nil
}

func (t ContentTrigger) SatisfiedBy(ctx Context) bool {
	for _, r := range t.Requirements {
		if ctx.OtherQuantityOf(r.ProductID) < r.MinQuantity {
			return false
		}
	}
	return true
}

// Lists reports whether the trigger names the given product as required
// content. The engine uses it to widen candidate collection.
func (t ContentTrigger) Lists(productID uuid.UUID) bool {
	for _, r := range t.Requirements {
		if r.ProductID == productID {
			return true
		}
	}
	return false
}

func (ContentTrigger) sealedTrigger() {}

// MinimumAmountTrigger holds iff the order's pre-discount item subtotal
// reaches the threshold. The subtotal counts every current line, including
// the one being evaluated: the engine always runs after the mutation, so
// the just-added line is part of the order state.
type MinimumAmountTrigger struct {
	Threshold decimal.Decimal
}

func (t MinimumAmountTrigger) Kind() TriggerKind { return KindMinimumAmount }

func (t MinimumAmountTrigger) Validate() error {
	if t.Threshold.LessThanOrEqual(decimal.Zero) {
		return errors.Errorf("minimum amount trigger: threshold must be > 0, got %s", t.Threshold)
	}
	return nil
}

func (t MinimumAmountTrigger) SatisfiedBy(ctx Context) bool {
	return ctx.Subtotal().GreaterThanOrEqual(t.Threshold)
}

func (MinimumAmountTrigger) sealedTrigger() {}
