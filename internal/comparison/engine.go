// Package comparison aligns a user's purchase price with market candidates in a common base unit.
package comparison

import (
	"strings"
	"time"

	"PriceSentinel/internal/market"
	"PriceSentinel/internal/model"
	"PriceSentinel/internal/units"
)

// StatusThreshold is the absolute totalDiff (KRW) separating GOOD from BEST/BAD.
const StatusThreshold = 100.0

// DefaultSmallUnitRatio: an unquantified listing cheaper than this share of the
// expected bulk price is read as a per-unit price. Heuristic; genuine bulk
// discounts below the ratio are misread.
const DefaultSmallUnitRatio = 0.3

// Input is one purchase to compare.
type Input struct {
	UserPrice  float64
	UserAmount float64
	UserUnit   string
	ItemName   string
	Query      string
}

// Engine computes MarketAnalysis results.
type Engine struct {
	Normalizer     *units.Normalizer
	SmallUnitRatio float64
	Now            func() time.Time
}

// NewEngine creates an Engine. A non-positive ratio selects DefaultSmallUnitRatio.
func NewEngine(n *units.Normalizer, smallUnitRatio float64) *Engine {
	if n == nil {
		n = units.NewNormalizer(nil)
	}
	if smallUnitRatio <= 0 {
		smallUnitRatio = DefaultSmallUnitRatio
	}
	return &Engine{Normalizer: n, SmallUnitRatio: smallUnitRatio, Now: time.Now}
}

// Classify maps totalDiff to a status.
func Classify(totalDiff float64) model.Status {
	switch {
	case totalDiff <= -StatusThreshold:
		return model.StatusBest
	case totalDiff >= StatusThreshold:
		return model.StatusBad
	default:
		return model.StatusGood
	}
}

// Compare prices every candidate per base unit and compares the user against the cheapest comparable one.
func (e *Engine) Compare(in Input, candidates []model.MarketCandidate) model.Result {
	if len(candidates) == 0 {
		return model.NoData("no market data")
	}

	userAmount := in.UserAmount
	if userAmount <= 0 {
		userAmount = 1
	}
	user := e.Normalizer.Normalize(in.UserPrice, userAmount, in.UserUnit, in.ItemName)
	factor := units.BaseFactor(userAmount, user)

	p := pricer{
		engine:   e,
		in:       in,
		user:     user,
		factor:   factor,
		userRate: in.UserPrice / user.Amount,
	}
	if target, ok := market.ParseMeasure(in.Query); ok && sameUnit(target.Unit, user.Unit) {
		p.target = &target
	}

	priced := make([]model.MarketCandidate, len(candidates))
	best := -1
	for i, c := range candidates {
		c.UnitPrice, c.Comparable = p.unitPrice(c)
		priced[i] = c
		if !c.Comparable || c.UnitPrice <= 0 {
			continue
		}
		if best < 0 || c.UnitPrice < priced[best].UnitPrice ||
			(c.UnitPrice == priced[best].UnitPrice && c.Price < priced[best].Price) {
			best = i
		}
	}
	if best < 0 {
		return model.NoData("no comparable market candidate")
	}

	chosen := priced[best]
	marketTotal := units.Round2(chosen.UnitPrice * user.Amount)
	totalDiff := units.Round2(in.UserPrice - marketTotal)

	return model.Analyzed(&model.MarketAnalysis{
		CheapestSource:           chosen.Source,
		Price:                    chosen.Price,
		Status:                   Classify(totalDiff),
		Diff:                     units.Round2((user.UnitPrice - chosen.UnitPrice) * factor),
		TotalDiff:                totalDiff,
		MarketUnitPrice:          chosen.UnitPrice,
		UserUnitPrice:            user.UnitPrice,
		BaseUnit:                 user.Unit,
		MarketTotalForUserAmount: marketTotal,
		Link:                     chosen.Link,
		Query:                    in.Query,
		Candidates:               priced,
		AnalyzedAt:               e.Now(),
	})
}

type pricer struct {
	engine   *Engine
	in       Input
	user     model.NormalizedPrice
	factor   float64
	userRate float64 // unrounded user price per base unit
	target   *market.Quantity
}

// unitPrice returns the candidate's price per base unit and whether it shares the user's base unit.
func (p pricer) unitPrice(c model.MarketCandidate) (float64, bool) {
	if c.ParsedAmount != nil && *c.ParsedAmount > 0 {
		n := p.engine.Normalizer.Normalize(c.Price, *c.ParsedAmount, c.ParsedUnit, p.in.ItemName)
		return n.UnitPrice, sameUnit(n.Unit, p.user.Unit)
	}
	if p.target != nil {
		expectedFull := p.userRate * p.target.Amount
		if c.Price < p.engine.SmallUnitRatio*expectedFull {
			return units.Round2(c.Price / p.factor), true
		}
		return units.Round2(c.Price / p.target.Amount), true
	}
	return units.Round2(c.Price / p.factor), true
}

func sameUnit(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
