package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"PriceSentinel/internal/model"
)

// FormatWeeklyReport wraps report lines into a Telegram HTML message.
func FormatWeeklyReport(lines []string, from, to time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🛒 <b>PriceSentinel 주간 리포트</b> | %s ~ %s\n\n",
		from.Format("2006-01-02"), to.Format("2006-01-02")))
	if len(lines) == 0 {
		b.WriteString("이번 주에 기록된 구매가 없어요.\n")
		return b.String()
	}
	for _, l := range lines {
		b.WriteString(html.EscapeString(l))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatRefreshSummary describes the outcome of a refresh run.
func FormatRefreshSummary(refreshed, withData int) string {
	if refreshed == 0 {
		return "🔄 새로 분석할 구매가 없어요."
	}
	return fmt.Sprintf("🔄 <b>시장가 갱신 완료</b>\n%d건 재분석, %d건 시장 데이터 확보", refreshed, withData)
}

// FormatAnalysis renders one item's comparison for a chat reply.
func FormatAnalysis(item model.ReportItem) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>%s</b> %s%s · %s원\n",
		html.EscapeString(item.Name), humanize.Ftoa(item.Amount), html.EscapeString(item.Unit),
		humanize.Comma(int64(item.OriginalPrice))))
	if !item.Result.HasAnalysis() {
		b.WriteString(fmt.Sprintf("시장 데이터 없음 (%s)\n", html.EscapeString(item.Result.Reason)))
		return b.String()
	}
	a := item.Result.Analysis
	b.WriteString(fmt.Sprintf("상태: %s | 최저가 %s원 (%s)\n",
		a.Status, humanize.Comma(int64(a.Price)), html.EscapeString(a.CheapestSource)))
	b.WriteString(fmt.Sprintf("단가: 내 구매 %.2f원/%s vs 시장 %.2f원/%s\n",
		a.UserUnitPrice, a.BaseUnit, a.MarketUnitPrice, a.BaseUnit))
	b.WriteString(fmt.Sprintf("총액 차이: %+.0f원\n", a.TotalDiff))
	return b.String()
}

// HelpText lists supported bot commands.
const HelpText = "📖 <b>PriceSentinel 명령어</b>\n" +
	"/report - 최근 7일 구매 리포트\n" +
	"/refresh - 오래된 시장가 다시 분석\n" +
	"/compare 품목 가격 수량 - 시장가와 바로 비교 (예: /compare 양파 21000 15kg)\n" +
	"/help - 도움말"
