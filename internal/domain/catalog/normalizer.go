package catalog

// NormalizeResult holds the outcome of variant normalization: the product
// that will actually be priced and the extras that survived absorption.
type NormalizeResult struct {
	Product  Product
	Extras   []Product
	Promoted bool
}

// NormalizeVariant collapses a base product plus selected extras into a
// canonical product identity before pricing.
//
// While the extras still contain at least one structural extra and a sibling
// exists at exactly the current level + 1, one structural extra is consumed
// and the item steps up to that sibling. The walk stops at the top of the
// chain or when no structural extras remain. Unconsumed extras, structural
// or not, stay on the item as ordinary priced extras, in their original
// order.
//
// The function is pure and idempotent for a given input; callers run it once
// per add operation and never against items already on an order.
func NormalizeVariant(base Product, extras []Product, siblings []Product) NormalizeResult {
	if !base.InVariantGroup() || len(extras) == 0 {
		return NormalizeResult{Product: base, Extras: extras}
	}

	byLevel := make(map[int]Product, len(siblings))
	for _, s := range siblings {
		if s.InVariantGroup() && *s.VariantGroupID == *base.VariantGroupID {
			byLevel[s.Level()] = s
		}
	}

	current := base
	remaining := append([]Product(nil), extras...)
	promoted := false

	for {
		next, ok := byLevel[current.Level()+1]
		if !ok {
			break
		}
		idx := indexStructural(remaining)
		if idx < 0 {
			break
		}
		remaining = append(remaining[:idx], remaining[idx+1:]...)
		current = next
		promoted = true
	}

	return NormalizeResult{Product: current, Extras: remaining, Promoted: promoted}
}

func indexStructural(extras []Product) int {
	for i, e := range extras {
		if e.IsStructural {
			return i
		}
	}
	return -1
}
