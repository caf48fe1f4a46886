// Package scheduler runs periodic market refreshes and weekly reports.
package scheduler

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"PriceSentinel/internal/analyzer"
	"PriceSentinel/internal/model"
	"PriceSentinel/internal/notifier"
	"PriceSentinel/internal/report"
)

// ReportWindow is the span of purchases covered by a report.
const ReportWindow = 7 * 24 * time.Hour

// compareUsage is the reply to a malformed /compare.
const compareUsage = "사용법: /compare <품목> <가격> <수량단위>\n예) /compare 양파 21000 15kg"

var quantityRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)(\D+)$`)

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Tracker  *analyzer.Tracker
	Notifier notifier.Notifier
	Ctx      context.Context
	Now      func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, tr *analyzer.Tracker, n notifier.Notifier) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Tracker:  tr,
		Notifier: n,
		Ctx:      ctx,
		Now:      time.Now,
	}
}

// RegisterAll registers the refresh and report tasks.
func (s *Scheduler) RegisterAll(refreshCron, reportCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunRefreshNow re-analyzes stale purchases and returns a chat summary.
func (s *Scheduler) RunRefreshNow(ctx context.Context) (string, error) {
	results, err := s.Tracker.RefreshStale(ctx)
	withData := 0
	for _, r := range results {
		if r.Result.HasAnalysis() {
			withData++
		}
	}
	log.Info().Int("refreshed", len(results)).Int("with_data", withData).Msg("refresh finished")
	return notifier.FormatRefreshSummary(len(results), withData), err
}

// BuildReport renders the report for purchases in the last ReportWindow.
func (s *Scheduler) BuildReport(ctx context.Context) (string, error) {
	to := s.Now()
	from := to.Add(-ReportWindow)
	items, err := s.Tracker.ReportSince(ctx, from)
	if err != nil {
		return "", err
	}
	var lines []string
	if len(items) > 0 {
		lines = report.Generate(items)
	}
	return notifier.FormatWeeklyReport(lines, from, to), nil
}

func (s *Scheduler) refreshTask() {
	log.Info().Msg("running refresh task")
	if _, err := s.RunRefreshNow(s.Ctx); err != nil {
		log.Error().Err(err).Msg("refresh task")
	}
}

func (s *Scheduler) reportTask() {
	log.Info().Msg("running report task")
	msg, err := s.BuildReport(s.Ctx)
	if err != nil {
		log.Error().Err(err).Msg("build report")
		s.trySend(fmt.Sprintf("❌ 주간 리포트 생성 실패: %v", err))
		return
	}
	s.trySend(msg)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/report", "리포트":
		msg, err := s.BuildReport(ctx)
		if err != nil {
			log.Error().Err(err).Msg("build report")
			return fmt.Sprintf("❌ 리포트 생성 실패: %v", err)
		}
		return msg
	case "/refresh", "갱신":
		msg, err := s.RunRefreshNow(ctx)
		if err != nil {
			log.Error().Err(err).Msg("refresh command")
			return fmt.Sprintf("❌ 갱신 중 오류: %v", err)
		}
		return msg
	case "/compare", "비교":
		item, ok := parseCompareArgs(fields[1:])
		if !ok {
			return compareUsage
		}
		res := s.Tracker.Analyzer.AnalyzeItem(ctx, item)
		return notifier.FormatAnalysis(model.ReportItem{
			Name:          item.Name,
			Amount:        item.Amount,
			Unit:          item.Unit,
			OriginalPrice: item.Price,
			Result:        res.Result,
		})
	default:
		return notifier.HelpText
	}
}

// parseCompareArgs reads "<name...> <price> <amount><unit>", e.g. "청양 고추 9000 1kg".
func parseCompareArgs(args []string) (model.PurchaseItem, bool) {
	if len(args) < 3 {
		return model.PurchaseItem{}, false
	}
	n := len(args)
	price, err := strconv.ParseFloat(strings.ReplaceAll(args[n-2], ",", ""), 64)
	if err != nil || price <= 0 {
		return model.PurchaseItem{}, false
	}
	m := quantityRe.FindStringSubmatch(args[n-1])
	if m == nil {
		return model.PurchaseItem{}, false
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil || amount <= 0 {
		return model.PurchaseItem{}, false
	}
	return model.PurchaseItem{
		Name:   strings.Join(args[:n-2], " "),
		Price:  price,
		Amount: amount,
		Unit:   m[2],
	}, true
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
