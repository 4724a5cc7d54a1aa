package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foodflow/comandas/internal/domain/promo"
)

// Strategy and trigger values are closed unions in the domain; the JSONB
// columns store them as flat records tagged with a kind discriminator.

type strategyRecord struct {
	Kind promo.StrategyKind `json:"kind"`

	Buy int `json:"buy,omitempty"`
	Pay int `json:"pay,omitempty"`

	Mode  promo.DiscountMode `json:"mode,omitempty"`
	Value *decimal.Decimal   `json:"value,omitempty"`

	MinTriggerQuantity int              `json:"min_trigger_quantity,omitempty"`
	BenefitPercent     *decimal.Decimal `json:"benefit_percent,omitempty"`

	ActivationQuantity int              `json:"activation_quantity,omitempty"`
	PackPrice          *decimal.Decimal `json:"pack_price,omitempty"`
}

func encodeStrategy(s promo.Strategy) ([]byte, error) {
	rec := strategyRecord{Kind: s.Kind()}
	switch v := s.(type) {
	case promo.QuantityDiscount:
		rec.Buy, rec.Pay = v.Buy, v.Pay
	case promo.DirectDiscount:
		rec.Mode, rec.Value = v.Mode, &v.Value
	case promo.ConditionalCombo:
		rec.MinTriggerQuantity, rec.BenefitPercent = v.MinTriggerQuantity, &v.BenefitPercent
	case promo.FixedPricePack:
		rec.ActivationQuantity, rec.PackPrice = v.ActivationQuantity, &v.PackPrice
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", s.Kind())
	}
	return json.Marshal(rec)
}

func decodeStrategy(data []byte) (promo.Strategy, error) {
	var rec strategyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding strategy: %w", err)
	}
	switch rec.Kind {
	case promo.KindQuantityDiscount:
		return promo.QuantityDiscount{Buy: rec.Buy, Pay: rec.Pay}, nil
	case promo.KindDirectDiscount:
		return promo.DirectDiscount{Mode: rec.Mode, Value: deref(rec.Value)}, nil
	case promo.KindConditionalCombo:
		return promo.ConditionalCombo{MinTriggerQuantity: rec.MinTriggerQuantity, BenefitPercent: deref(rec.BenefitPercent)}, nil
	case promo.KindFixedPricePack:
		return promo.FixedPricePack{ActivationQuantity: rec.ActivationQuantity, PackPrice: deref(rec.PackPrice)}, nil
	}
	return nil, fmt.Errorf("unknown strategy kind %q", rec.Kind)
}

type triggerRecord struct {
	Kind promo.TriggerKind `json:"kind"`

	From      *time.Time       `json:"from,omitempty"`
	Until     *time.Time       `json:"until,omitempty"`
	Weekdays  []time.Weekday   `json:"weekdays,omitempty"`
	HourFrom  *promo.TimeOfDay `json:"hour_from,omitempty"`
	HourUntil *promo.TimeOfDay `json:"hour_until,omitempty"`

	Requirements []contentRequirementRecord `json:"requirements,omitempty"`

	Threshold *decimal.Decimal `json:"threshold,omitempty"`
}

type contentRequirementRecord struct {
	ProductID   string `json:"product_id"`
	MinQuantity int    `json:"min_quantity"`
}

func encodeTriggers(triggers []promo.Trigger) ([]byte, error) {
	recs := make([]triggerRecord, 0, len(triggers))
	for _, t := range triggers {
		switch v := t.(type) {
		case promo.TemporalTrigger:
			from, until := v.From, v.Until
			recs = append(recs, triggerRecord{
				Kind:      v.Kind(),
				From:      &from,
				Until:     &until,
				Weekdays:  v.Weekdays,
				HourFrom:  v.HourFrom,
				HourUntil: v.HourUntil,
			})
		case promo.ContentTrigger:
			reqs := make([]contentRequirementRecord, len(v.Requirements))
			for i, r := range v.Requirements {
				reqs[i] = contentRequirementRecord{ProductID: r.ProductID.String(), MinQuantity: r.MinQuantity}
			}
			recs = append(recs, triggerRecord{Kind: v.Kind(), Requirements: reqs})
		case promo.MinimumAmountTrigger:
			threshold := v.Threshold
			recs = append(recs, triggerRecord{Kind: v.Kind(), Threshold: &threshold})
		default:
			return nil, fmt.Errorf("unknown trigger kind %q", t.Kind())
		}
	}
	return json.Marshal(recs)
}

func decodeTriggers(data []byte) ([]promo.Trigger, error) {
	var recs []triggerRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decoding triggers: %w", err)
	}
	out := make([]promo.Trigger, 0, len(recs))
	for _, rec := range recs {
		switch rec.Kind {
		case promo.KindTemporal:
			t := promo.TemporalTrigger{
				Weekdays:  rec.Weekdays,
				HourFrom:  rec.HourFrom,
				HourUntil: rec.HourUntil,
			}
			if rec.From != nil {
				t.From = *rec.From
			}
			if rec.Until != nil {
				t.Until = *rec.Until
			}
			out = append(out, t)
		case promo.KindContent:
			reqs := make([]promo.ContentRequirement, len(rec.Requirements))
			for i, r := range rec.Requirements {
				id, err := uuid.Parse(r.ProductID)
				if err != nil {
					return nil, fmt.Errorf("decoding content requirement: %w", err)
				}
				reqs[i] = promo.ContentRequirement{ProductID: id, MinQuantity: r.MinQuantity}
			}
			out = append(out, promo.ContentTrigger{Requirements: reqs})
		case promo.KindMinimumAmount:
			out = append(out, promo.MinimumAmountTrigger{Threshold: deref(rec.Threshold)})
		default:
			return nil, fmt.Errorf("unknown trigger kind %q", rec.Kind)
		}
	}
	return out, nil
}

type scopeItemRecord struct {
	Kind  promo.RefKind   `json:"kind"`
	RefID string          `json:"ref_id"`
	Role  promo.ScopeRole `json:"role"`
}

func encodeScope(s promo.Scope) ([]byte, error) {
	recs := make([]scopeItemRecord, len(s.Items))
	for i, it := range s.Items {
		recs[i] = scopeItemRecord{Kind: it.Kind, RefID: it.RefID.String(), Role: it.Role}
	}
	return json.Marshal(recs)
}

func decodeScope(data []byte) (promo.Scope, error) {
	var recs []scopeItemRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return promo.Scope{}, fmt.Errorf("decoding scope: %w", err)
	}
	items := make([]promo.ScopeItem, len(recs))
	for i, rec := range recs {
		id, err := uuid.Parse(rec.RefID)
		if err != nil {
			return promo.Scope{}, fmt.Errorf("decoding scope item: %w", err)
		}
		items[i] = promo.ScopeItem{Kind: rec.Kind, RefID: id, Role: rec.Role}
	}
	return promo.Scope{Items: items}, nil
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
