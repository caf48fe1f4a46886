package market

import (
	"regexp"
	"strconv"
	"strings"

	"PriceSentinel/internal/units"
)

var (
	// 500g, 1.5kg, 2L x 3, 500ml*2. The trailing class keeps "1 large" and "500gram" out.
	weightRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(kg|ml|g|l)(?:\s*[x×*]\s*(\d+))?(?:[^a-wyz]|$)`)
	countRe  = regexp.MustCompile(`(\d+)\s*(단|망|박스|개|포기|모|봉)`)
)

var countUnits = []string{"단", "망", "박스", "개", "포기", "모", "봉"}

// Quantity is an amount parsed out of free text, in g/ml when it was a measure.
type Quantity struct {
	Amount float64
	Unit   string
}

// ParseQuantity extracts the quantity a listing title advertises.
// Explicit weight/volume wins over a counted unit, which wins over a bare unit token.
// Piece-like counts are expanded to grams when itemName has a standard weight.
func ParseQuantity(title, itemName string, weights units.StandardWeights) (Quantity, bool) {
	if q, ok := ParseMeasure(title); ok {
		return q, true
	}

	if m := countRe.FindStringSubmatch(title); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err == nil && n > 0 {
			return expandCount(n, m[2], itemName, weights), true
		}
	}

	for _, f := range strings.Fields(title) {
		for _, u := range countUnits {
			if f == u {
				return expandCount(1, u, itemName, weights), true
			}
		}
	}
	return Quantity{}, false
}

// ParseMeasure finds the first explicit weight or volume in s, converted to g or ml.
func ParseMeasure(s string) (Quantity, bool) {
	m := weightRe.FindStringSubmatch(s)
	if m == nil {
		return Quantity{}, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil || n <= 0 {
		return Quantity{}, false
	}
	if m[3] != "" {
		if mult, err := strconv.ParseFloat(m[3], 64); err == nil && mult > 0 {
			n *= mult
		}
	}
	unit := strings.ToLower(m[2])
	switch unit {
	case "kg":
		return Quantity{Amount: n * 1000, Unit: units.Gram}, true
	case "l":
		return Quantity{Amount: n * 1000, Unit: units.Milliliter}, true
	case "ml":
		return Quantity{Amount: n, Unit: units.Milliliter}, true
	default:
		return Quantity{Amount: n, Unit: units.Gram}, true
	}
}

func expandCount(n float64, unit, itemName string, weights units.StandardWeights) Quantity {
	if weights != nil && units.IsPieceUnit(unit) {
		if g, ok := weights.StandardWeight(itemName); ok {
			return Quantity{Amount: n * g, Unit: units.Gram}
		}
	}
	return Quantity{Amount: n, Unit: unit}
}
