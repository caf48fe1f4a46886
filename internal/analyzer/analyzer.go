// Package analyzer runs the normalize → search → compare pipeline for single items and batches.
package analyzer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"PriceSentinel/internal/comparison"
	"PriceSentinel/internal/model"
	"PriceSentinel/internal/report"
	"PriceSentinel/internal/units"
)

// DefaultWorkers bounds concurrent market lookups in a batch.
const DefaultWorkers = 4

// MarketSearcher looks up market candidates; nil means no data.
type MarketSearcher interface {
	SearchMarket(ctx context.Context, query, itemName string) []model.MarketCandidate
}

// Analyzer wires the normalizer, market search and comparison engine together.
type Analyzer struct {
	Normalizer *units.Normalizer
	Market     MarketSearcher
	Engine     *comparison.Engine
	Workers    int
}

// New creates an Analyzer.
func New(n *units.Normalizer, m MarketSearcher, e *comparison.Engine, workers int) *Analyzer {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Analyzer{Normalizer: n, Market: m, Engine: e, Workers: workers}
}

// ItemResult is the outcome of analyzing one purchase item.
type ItemResult struct {
	Item       model.PurchaseItem    `json:"item"`
	Normalized model.NormalizedPrice `json:"normalized"`
	Query      string                `json:"query"`
	Result     model.Result          `json:"result"`
}

// BuildQuery appends the purchased quantity for weight/volume units, e.g. "양파 15kg".
func BuildQuery(item model.PurchaseItem) string {
	name := strings.TrimSpace(item.Name)
	unit := strings.TrimSpace(item.Unit)
	if item.Amount > 1 && units.IsMeasureUnit(unit) {
		return fmt.Sprintf("%s %s%s", name, strconv.FormatFloat(item.Amount, 'f', -1, 64), unit)
	}
	return name
}

// AnalyzeItem runs the pipeline for one item. Missing market data is a NoData result, never an error.
func (a *Analyzer) AnalyzeItem(ctx context.Context, item model.PurchaseItem) ItemResult {
	res := ItemResult{
		Item:       item,
		Normalized: a.Normalizer.Normalize(item.Price, item.Amount, item.Unit, item.Name),
		Query:      BuildQuery(item),
	}
	if res.Query == "" {
		res.Result = model.NoData("empty item name")
		return res
	}

	candidates := a.Market.SearchMarket(ctx, res.Query, item.Name)
	if candidates == nil {
		res.Result = model.NoData("no market data")
		return res
	}
	res.Result = a.Engine.Compare(comparison.Input{
		UserPrice:  item.Price,
		UserAmount: item.Amount,
		UserUnit:   item.Unit,
		ItemName:   item.Name,
		Query:      res.Query,
	}, candidates)
	return res
}

// AnalyzeBatch analyzes items concurrently. Results keep input order; a failed item
// degrades to NoData without affecting the others.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, items []model.PurchaseItem) []ItemResult {
	results := make([]ItemResult, len(items))
	for i, it := range items {
		results[i] = ItemResult{Item: it, Result: model.NoData("not analyzed")}
	}
	if len(items) == 0 {
		return results
	}

	pool := NewWorkerPool(a.Workers, len(items))
	pool.Start(ctx)
	for i := range items {
		i := i
		if err := pool.Submit(func(ctx context.Context) {
			results[i] = a.safeAnalyze(ctx, items[i])
		}); err != nil {
			log.Error().Err(err).Str("item", items[i].Name).Msg("submit analysis job")
		}
	}
	pool.Close()
	return results
}

func (a *Analyzer) safeAnalyze(ctx context.Context, item model.PurchaseItem) (res ItemResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("item", item.Name).Msg("item analysis failed")
			res = ItemResult{Item: item, Query: BuildQuery(item), Result: model.NoData("analysis failed")}
		}
	}()
	if err := ctx.Err(); err != nil {
		return ItemResult{Item: item, Query: BuildQuery(item), Result: model.NoData("cancelled")}
	}
	return a.AnalyzeItem(ctx, item)
}

// Report analyzes items and renders the savings narrative.
func (a *Analyzer) Report(ctx context.Context, items []model.PurchaseItem) ([]ItemResult, []string) {
	results := a.AnalyzeBatch(ctx, items)
	return results, report.Generate(ReportItems(results))
}

// ReportItems adapts batch results to the report generator's input.
func ReportItems(results []ItemResult) []model.ReportItem {
	out := make([]model.ReportItem, len(results))
	for i, r := range results {
		out[i] = model.ReportItem{
			Name:          r.Item.Name,
			Amount:        r.Item.Amount,
			Unit:          r.Item.Unit,
			OriginalPrice: r.Item.Price,
			Result:        r.Result,
		}
	}
	return out
}
