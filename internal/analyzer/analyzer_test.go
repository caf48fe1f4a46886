package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"PriceSentinel/internal/comparison"
	"PriceSentinel/internal/market"
	"PriceSentinel/internal/model"
	"PriceSentinel/internal/report"
	"PriceSentinel/internal/units"
)

// MockMarket is a mock implementation of MarketSearcher for testing
type MockMarket struct {
	mock.Mock
}

func (m *MockMarket) SearchMarket(ctx context.Context, query, itemName string) []model.MarketCandidate {
	args := m.Called(ctx, query, itemName)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.MarketCandidate)
}

func newAnalyzer(m MarketSearcher) *Analyzer {
	n := units.NewNormalizer(nil)
	return New(n, m, comparison.NewEngine(n, 0), 3)
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, "양파 15kg", BuildQuery(model.PurchaseItem{Name: " 양파 ", Amount: 15, Unit: "kg"}))
	assert.Equal(t, "소고기 500g", BuildQuery(model.PurchaseItem{Name: "소고기", Amount: 500, Unit: "g"}))
	assert.Equal(t, "양파", BuildQuery(model.PurchaseItem{Name: "양파", Amount: 1, Unit: "kg"}))
	assert.Equal(t, "두부", BuildQuery(model.PurchaseItem{Name: "두부", Amount: 3, Unit: "모"}))
}

func TestAnalyzeItem_Pipeline(t *testing.T) {
	m := new(MockMarket)
	m.On("SearchMarket", mock.Anything, "양파 15kg", "양파").
		Return([]model.MarketCandidate{{Title: "햇양파", Price: 4900, Source: "시장"}})

	res := newAnalyzer(m).AnalyzeItem(context.Background(), model.PurchaseItem{Name: "양파", Price: 20000, Amount: 15, Unit: "kg"})

	m.AssertExpectations(t)
	assert.Equal(t, "양파 15kg", res.Query)
	assert.Equal(t, model.NormalizedPrice{UnitPrice: 1.33, Unit: "g", Amount: 15000}, res.Normalized)
	require.True(t, res.Result.HasAnalysis())
	assert.Equal(t, model.StatusBest, res.Result.Analysis.Status)
}

func TestAnalyzeItem_NoMarketData(t *testing.T) {
	m := new(MockMarket)
	m.On("SearchMarket", mock.Anything, "망고스틴", "망고스틴").Return(nil)

	res := newAnalyzer(m).AnalyzeItem(context.Background(), model.PurchaseItem{Name: "망고스틴", Price: 9000, Amount: 3, Unit: "개"})
	assert.Equal(t, model.KindNoData, res.Result.Kind)
	assert.Equal(t, "개", res.Normalized.Unit)

	res = newAnalyzer(m).AnalyzeItem(context.Background(), model.PurchaseItem{Name: "  "})
	assert.Equal(t, model.NoData("empty item name"), res.Result)
	m.AssertNumberOfCalls(t, "SearchMarket", 1)
}

type panickyMarket struct{ inner MarketSearcher }

func (p panickyMarket) SearchMarket(ctx context.Context, query, itemName string) []model.MarketCandidate {
	if itemName == "폭탄" {
		panic("catalog exploded")
	}
	return p.inner.SearchMarket(ctx, query, itemName)
}

func TestAnalyzeBatch_IsolatesFailuresAndKeepsOrder(t *testing.T) {
	searcher := &market.MockSearcher{Listings: []model.Listing{
		{Title: "감자 1kg", Price: 2500, MallName: "a", Categories: []string{"식품"}},
		{Title: "두부 500g", Price: 4000, MallName: "b", Categories: []string{"식품"}},
	}}
	svc := market.NewService(searcher, nil, nil)
	a := newAnalyzer(panickyMarket{inner: svc})

	items := []model.PurchaseItem{
		{Name: "감자", Price: 6000, Amount: 2, Unit: "kg"},
		{Name: "폭탄", Price: 1000, Amount: 1, Unit: "개"},
		{Name: "두부", Price: 3000, Amount: 1, Unit: "모"},
		{Name: "당근", Price: 3000, Amount: 1, Unit: "kg"},
	}
	results := a.AnalyzeBatch(context.Background(), items)
	require.Len(t, results, 4)
	for i := range items {
		assert.Equal(t, items[i], results[i].Item)
	}
	require.True(t, results[0].Result.HasAnalysis())
	assert.Equal(t, 2.5, results[0].Result.Analysis.MarketUnitPrice)
	assert.Equal(t, model.NoData("analysis failed"), results[1].Result)
	require.True(t, results[2].Result.HasAnalysis())
	assert.Equal(t, 8.0, results[2].Result.Analysis.MarketUnitPrice)
	assert.Equal(t, model.KindNoData, results[3].Result.Kind)
}

func TestAnalyzeBatch_CancelledContext(t *testing.T) {
	m := new(MockMarket)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := newAnalyzer(m).AnalyzeBatch(ctx, []model.PurchaseItem{{Name: "양파", Price: 1000, Amount: 1, Unit: "kg"}})
	require.Len(t, results, 1)
	assert.Equal(t, model.KindNoData, results[0].Result.Kind)
	m.AssertNotCalled(t, "SearchMarket", mock.Anything, mock.Anything, mock.Anything)
}

func TestReport_EmptyBatch(t *testing.T) {
	results, lines := newAnalyzer(new(MockMarket)).Report(context.Background(), nil)
	assert.Empty(t, results)
	assert.Equal(t, []string{report.InsufficientDataMessage}, lines)
}

func TestReport_CombinesResults(t *testing.T) {
	m := new(MockMarket)
	m.On("SearchMarket", mock.Anything, "감자 2kg", "감자").
		Return([]model.MarketCandidate{{Price: 2500, ParsedAmount: ptr(1000), ParsedUnit: "g"}})

	_, lines := newAnalyzer(m).Report(context.Background(), []model.PurchaseItem{{Name: "감자", Price: 6000, Amount: 2, Unit: "kg"}})
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "감자(2kg)")
	assert.Contains(t, lines[2], "1,000원")
}

func ptr(v float64) *float64 { return &v }
