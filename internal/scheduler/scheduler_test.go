package scheduler

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"PriceSentinel/internal/analyzer"
	"PriceSentinel/internal/comparison"
	"PriceSentinel/internal/model"
	"PriceSentinel/internal/notifier"
	"PriceSentinel/internal/recorder"
	"PriceSentinel/internal/units"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	return m.Called(ctx, text, maxRetries).Error(0)
}

type fixedMarket map[string][]model.MarketCandidate

func (f fixedMarket) SearchMarket(_ context.Context, _ string, itemName string) []model.MarketCandidate {
	return f[itemName]
}

func newTestScheduler(t *testing.T, n notifier.Notifier) *Scheduler {
	t.Helper()
	rec, err := recorder.NewSQLRecorder(recorder.DriverSQLite, filepath.Join(t.TempDir(), "sched.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	amount := 1000.0
	market := fixedMarket{
		"감자": {{Price: 2500, Source: "농협몰", ParsedAmount: &amount, ParsedUnit: "g"}},
	}
	norm := units.NewNormalizer(nil)
	a := analyzer.New(norm, market, comparison.NewEngine(norm, 0), 2)
	return NewScheduler(context.Background(), analyzer.NewTracker(a, rec, time.Hour), n)
}

func TestRegisterAll(t *testing.T) {
	s := newTestScheduler(t, new(MockNotifier))
	require.NoError(t, s.RegisterAll("0 0 6 * * *", "0 0 9 * * 1"))
	assert.Len(t, s.Cron.Entries(), 2)

	assert.Error(t, s.RegisterAll("not a cron", "0 0 9 * * 1"))
}

func TestHandleCommand_Help(t *testing.T) {
	s := newTestScheduler(t, new(MockNotifier))
	assert.Equal(t, notifier.HelpText, s.HandleCommand(context.Background(), "/start"))
	assert.Equal(t, notifier.HelpText, s.HandleCommand(context.Background(), "hello"))
}

func TestHandleCommand_RefreshThenReport(t *testing.T) {
	s := newTestScheduler(t, new(MockNotifier))
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/refresh"), "새로 분석할 구매가 없어요")

	_, err := s.Tracker.Record(ctx, model.PurchaseItem{Name: "감자", Price: 6000, Amount: 2, Unit: "kg"}, time.Time{})
	require.NoError(t, err)
	_, err = s.Tracker.Record(ctx, model.PurchaseItem{Name: "망고스틴", Price: 9000, Amount: 3, Unit: "개"}, time.Time{})
	require.NoError(t, err)

	reply := s.HandleCommand(ctx, "/refresh@PriceSentinelBot")
	assert.Contains(t, reply, "2건 재분석, 1건 시장 데이터 확보")

	reply = s.HandleCommand(ctx, "/report")
	assert.Contains(t, reply, "주간 리포트")
	assert.Contains(t, reply, "2개 품목 중 1개")
}

func TestHandleCommand_Compare(t *testing.T) {
	s := newTestScheduler(t, new(MockNotifier))
	ctx := context.Background()

	reply := s.HandleCommand(ctx, "/compare 감자 6,000 2kg")
	assert.Contains(t, reply, "<b>감자</b> 2kg · 6,000원")
	assert.Contains(t, reply, "상태: BAD")
	assert.Contains(t, reply, "총액 차이: +1000원")

	reply = s.HandleCommand(ctx, "/compare@PriceSentinelBot 망고스틴 9000 3개")
	assert.Contains(t, reply, "시장 데이터 없음")

	for _, bad := range []string{"/compare", "/compare 감자 6000", "/compare 감자 싸게 2kg", "/compare 감자 6000 kg"} {
		assert.Contains(t, s.HandleCommand(ctx, bad), "사용법", bad)
	}

	purchases, err := s.Tracker.Recorder.ListPurchases(ctx, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, purchases)
}

func TestParseCompareArgs(t *testing.T) {
	item, ok := parseCompareArgs([]string{"청양", "고추", "9000", "1.5kg"})
	require.True(t, ok)
	assert.Equal(t, model.PurchaseItem{Name: "청양 고추", Price: 9000, Amount: 1.5, Unit: "kg"}, item)

	_, ok = parseCompareArgs([]string{"감자", "0", "2kg"})
	assert.False(t, ok)
}

func TestReportTask_SendsWithRetry(t *testing.T) {
	n := new(MockNotifier)
	n.On("SendWithRetry", mock.Anything, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "구매가 없어요")
	}), 3).Return(nil).Once()

	s := newTestScheduler(t, n)
	s.reportTask()
	n.AssertExpectations(t)
}

func TestRefreshTask_DoesNotNotify(t *testing.T) {
	n := new(MockNotifier)
	s := newTestScheduler(t, n)
	s.refreshTask()
	n.AssertNotCalled(t, "SendWithRetry", mock.Anything, mock.Anything, mock.Anything)
}
