// Package units converts purchase quantities into per-base-unit prices.
package units

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"PriceSentinel/internal/model"
)

// Base units.
const (
	Gram       = "g"
	Milliliter = "ml"
)

type conversion struct {
	base   string
	factor float64 // base units per one source unit
}

var conversions = map[string]conversion{
	"g":     {Gram, 1},
	"그램":    {Gram, 1},
	"kg":    {Gram, 1000},
	"킬로":    {Gram, 1000},
	"킬로그램":  {Gram, 1000},
	"돈":     {Gram, 3.75},
	"근":     {Gram, 600},
	"ml":    {Milliliter, 1},
	"밀리리터":  {Milliliter, 1},
	"l":     {Milliliter, 1000},
	"liter": {Milliliter, 1000},
	"리터":    {Milliliter, 1000},
}

var pieceUnitRe = regexp.MustCompile(`(개|ea|piece|모|봉|단|포기|피스)`)

// Normalizer turns (price, amount, unit) into a price per gram, milliliter or piece.
type Normalizer struct {
	Weights StandardWeights
}

// NewNormalizer creates a Normalizer; nil weights falls back to DefaultWeights.
func NewNormalizer(weights StandardWeights) *Normalizer {
	if weights == nil {
		weights = DefaultWeights
	}
	return &Normalizer{Weights: weights}
}

// Normalize never fails: unknown units come back unchanged with a per-unit price.
func (n *Normalizer) Normalize(price, amount float64, unit, itemName string) model.NormalizedPrice {
	if amount <= 0 {
		amount = 1
	}
	raw := price / amount
	u := strings.ToLower(strings.TrimSpace(unit))

	if c, ok := conversions[u]; ok {
		return model.NormalizedPrice{
			UnitPrice: Round2(raw / c.factor),
			Unit:      c.base,
			Amount:    amount * c.factor,
		}
	}

	if IsPieceUnit(u) && n.Weights != nil {
		if grams, ok := n.Weights.StandardWeight(itemName); ok {
			return model.NormalizedPrice{
				UnitPrice: Round2(raw / grams),
				Unit:      Gram,
				Amount:    amount * grams,
			}
		}
	}

	return model.NormalizedPrice{
		UnitPrice: Round2(raw),
		Unit:      strings.TrimSpace(unit),
		Amount:    amount,
	}
}

// IsPieceUnit reports whether unit counts pieces or bundles rather than measuring weight/volume.
func IsPieceUnit(unit string) bool {
	return pieceUnitRe.MatchString(strings.ToLower(strings.TrimSpace(unit)))
}

// IsMeasureUnit reports whether unit converts directly to g or ml.
func IsMeasureUnit(unit string) bool {
	_, ok := conversions[strings.ToLower(strings.TrimSpace(unit))]
	return ok
}

// BaseFactor returns base units per one original unit of a normalized quantity.
func BaseFactor(originalAmount float64, n model.NormalizedPrice) float64 {
	if originalAmount <= 0 {
		originalAmount = 1
	}
	return n.Amount / originalAmount
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
