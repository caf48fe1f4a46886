// Package report turns comparison results into savings/loss narratives.
package report

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"PriceSentinel/internal/model"
)

const (
	// NarrativeThreshold is the |totalDiff| (KRW) above which an item gets its own line.
	NarrativeThreshold = 100.0
	// LargeWinAmount and LargeWinRatio mark a saving as a large win.
	LargeWinAmount = 5000.0
	LargeWinRatio  = 0.20
	// WeeksPerMonth projects one shopping trip to a month, assuming weekly purchases.
	WeeksPerMonth = 4
)

// InsufficientDataMessage is emitted alone when no item had market data.
const InsufficientDataMessage = "📭 시장 가격 데이터가 부족해 이번 구매를 분석할 수 없어요. 품목명과 단위를 확인해 주세요."

// Summary holds the aggregate numbers behind a report.
type Summary struct {
	Analyzed int
	Savings  float64 // sum of |totalDiff| over items bought below market
	Loss     float64 // sum of totalDiff over items bought above market
}

// Net is savings minus loss; positive means money saved.
func (s Summary) Net() float64 { return s.Savings - s.Loss }

// MonthlyProjection extrapolates Net over a month of weekly purchases.
func (s Summary) MonthlyProjection() float64 { return s.Net() * WeeksPerMonth }

// Summarize accumulates savings and loss over items with market data.
func Summarize(items []model.ReportItem) Summary {
	var s Summary
	for _, it := range items {
		if !it.Result.HasAnalysis() {
			continue
		}
		s.Analyzed++
		td := it.Result.Analysis.TotalDiff
		if td < 0 {
			s.Savings += -td
		} else {
			s.Loss += td
		}
	}
	return s
}

// Generate builds the per-item and aggregate narrative lines. It performs no I/O.
func Generate(items []model.ReportItem) []string {
	s := Summarize(items)
	if s.Analyzed == 0 {
		return []string{InsufficientDataMessage}
	}

	lines := []string{fmt.Sprintf("📊 %d개 품목 중 %d개를 시장 최저가와 비교했어요.", len(items), s.Analyzed)}
	for _, it := range items {
		if line := itemLine(it); line != "" {
			lines = append(lines, line)
		}
	}

	net := s.Net()
	switch {
	case net > 0:
		lines = append(lines, fmt.Sprintf("💰 이번 구매로 총 %s원을 아꼈어요. 매주 이렇게 장을 보면 한 달에 약 %s원을 절약할 수 있어요.",
			won(net), won(s.MonthlyProjection())))
	case net < 0:
		lines = append(lines, fmt.Sprintf("📉 이번 구매는 시장가보다 총 %s원 더 지출했어요. 매주 반복되면 한 달에 약 %s원을 더 쓰게 돼요.",
			won(-net), won(-s.MonthlyProjection())))
	default:
		lines = append(lines, "⚖️ 이번 구매는 시장가와 거의 같은 수준이에요.")
	}
	return lines
}

func itemLine(it model.ReportItem) string {
	if !it.Result.HasAnalysis() {
		return ""
	}
	a := it.Result.Analysis
	td := a.TotalDiff
	if math.Abs(td) <= NarrativeThreshold {
		return ""
	}
	label := fmt.Sprintf("%s(%s%s)", it.Name, humanize.Ftoa(it.Amount), it.Unit)

	if td > 0 {
		return fmt.Sprintf("🔺 %s: 시장 최저가보다 %s원 비싸게 샀어요. %s에서는 %s원이면 살 수 있어요.",
			label, won(td), sourceName(a.CheapestSource), won(a.MarketTotalForUserAmount))
	}

	saving := -td
	if saving > LargeWinAmount || (it.OriginalPrice > 0 && saving > it.OriginalPrice*LargeWinRatio) {
		pct := 0.0
		if it.OriginalPrice > 0 {
			pct = saving / (it.OriginalPrice + saving) * 100
		}
		return fmt.Sprintf("🎉 %s: 시장가보다 %s원(%.0f%%) 싸게 샀어요. 아주 잘 사셨어요!", label, won(saving), pct)
	}
	return fmt.Sprintf("👍 %s: 시장가보다 %s원 저렴하게 구매했어요.", label, won(saving))
}

func sourceName(s string) string {
	if s == "" {
		return "온라인 최저가"
	}
	return s
}

func won(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}
