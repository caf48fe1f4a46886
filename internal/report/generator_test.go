package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceSentinel/internal/model"
)

func analyzed(name string, price, totalDiff float64) model.ReportItem {
	return model.ReportItem{
		Name:          name,
		Amount:        1,
		Unit:          "kg",
		OriginalPrice: price,
		Result: model.Analyzed(&model.MarketAnalysis{
			CheapestSource:           "산지직송",
			TotalDiff:                totalDiff,
			MarketTotalForUserAmount: price - totalDiff,
		}),
	}
}

func TestGenerate_InsufficientData(t *testing.T) {
	for _, items := range [][]model.ReportItem{
		nil,
		{{Name: "양파", Result: model.NoData("no market data")}},
	} {
		lines := Generate(items)
		require.Equal(t, []string{InsufficientDataMessage}, lines)
		assert.NotContains(t, lines[0], "한 달")
	}
}

func TestGenerate_ItemTemplates(t *testing.T) {
	lines := Generate([]model.ReportItem{
		analyzed("양파", 20000, -53500), // large win by amount
		analyzed("감자", 3000, -800),    // large win by ratio
		analyzed("당근", 30000, -1500),  // modest win
		analyzed("두부", 3000, 200),     // loss
		analyzed("마늘", 5000, 50),      // below threshold, no line
		{Name: "귤", Result: model.NoData("no market data")},
	})

	require.Len(t, lines, 6)
	assert.Equal(t, "📊 6개 품목 중 5개를 시장 최저가와 비교했어요.", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "🎉 양파(1kg)"), lines[1])
	assert.Contains(t, lines[1], "53,500원")
	assert.True(t, strings.HasPrefix(lines[2], "🎉 감자(1kg)"), lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "👍 당근(1kg)"), lines[3])
	assert.Contains(t, lines[3], "1,500원")
	assert.True(t, strings.HasPrefix(lines[4], "🔺 두부(1kg)"), lines[4])
	assert.Contains(t, lines[4], "산지직송에서는 2,800원")
	for _, l := range lines {
		assert.NotContains(t, l, "마늘")
	}
}

func TestGenerate_NetSavingsProjection(t *testing.T) {
	lines := Generate([]model.ReportItem{
		analyzed("양파", 20000, -3000),
		analyzed("두부", 3000, 500),
	})
	last := lines[len(lines)-1]
	assert.Contains(t, last, "총 2,500원을 아꼈어요")
	assert.Contains(t, last, "약 10,000원")
}

func TestGenerate_NetLossProjection(t *testing.T) {
	lines := Generate([]model.ReportItem{analyzed("두부", 3000, 1200)})
	last := lines[len(lines)-1]
	assert.Contains(t, last, "총 1,200원 더 지출")
	assert.Contains(t, last, "약 4,800원")
}

func TestGenerate_BreakEven(t *testing.T) {
	lines := Generate([]model.ReportItem{analyzed("양파", 3000, 0)})
	require.Len(t, lines, 2)
	assert.Equal(t, "⚖️ 이번 구매는 시장가와 거의 같은 수준이에요.", lines[1])
}

func TestSummarize(t *testing.T) {
	s := Summarize([]model.ReportItem{
		analyzed("a", 1000, -300),
		analyzed("b", 1000, 50),
		analyzed("c", 1000, -20),
	})
	assert.Equal(t, 3, s.Analyzed)
	assert.Equal(t, 320.0, s.Savings)
	assert.Equal(t, 50.0, s.Loss)
	assert.Equal(t, 1080.0, s.MonthlyProjection())
}
