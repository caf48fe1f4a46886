package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"PriceSentinel/internal/model"
	"PriceSentinel/internal/recorder"
)

// DefaultStaleAfter is how long a stored snapshot stays current.
const DefaultStaleAfter = 24 * time.Hour

// Tracker keeps recorded purchases paired with a current market snapshot.
type Tracker struct {
	Analyzer   *Analyzer
	Recorder   recorder.Recorder
	StaleAfter time.Duration
	Now        func() time.Time
}

// NewTracker creates a Tracker. A non-positive staleAfter uses DefaultStaleAfter.
func NewTracker(a *Analyzer, rec recorder.Recorder, staleAfter time.Duration) *Tracker {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Tracker{Analyzer: a, Recorder: rec, StaleAfter: staleAfter, Now: time.Now}
}

// Record normalizes and stores a purchase.
func (t *Tracker) Record(ctx context.Context, item model.PurchaseItem, at time.Time) (*model.PurchaseRecord, error) {
	if at.IsZero() {
		at = t.Now()
	}
	p := &model.PurchaseRecord{
		ID:         uuid.New(),
		ItemName:   item.Name,
		TotalPrice: item.Price,
		Amount:     item.Amount,
		Unit:       item.Unit,
		RecordedAt: at,
		Normalized: t.Analyzer.Normalizer.Normalize(item.Price, item.Amount, item.Unit, item.Name),
	}
	if err := t.Recorder.SavePurchase(ctx, p); err != nil {
		return nil, fmt.Errorf("record purchase: %w", err)
	}
	return p, nil
}

// Refresh re-analyzes purchases and attaches the results. Attach failures are
// logged per purchase; the first one is returned after all purchases are tried.
func (t *Tracker) Refresh(ctx context.Context, purchases []model.PurchaseRecord) ([]ItemResult, error) {
	items := make([]model.PurchaseItem, len(purchases))
	for i, p := range purchases {
		items[i] = p.Item()
	}
	results := t.Analyzer.AnalyzeBatch(ctx, items)

	var firstErr error
	for i, r := range results {
		if err := t.Recorder.AttachAnalysis(ctx, purchases[i].ID, r.Result); err != nil {
			log.Error().Err(err).Str("purchase", purchases[i].ID.String()).Msg("attach analysis")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return results, firstErr
}

// RefreshOne re-analyzes a single stored purchase.
func (t *Tracker) RefreshOne(ctx context.Context, id uuid.UUID) (ItemResult, error) {
	p, err := t.Recorder.GetPurchase(ctx, id)
	if err != nil {
		return ItemResult{}, err
	}
	results, err := t.Refresh(ctx, []model.PurchaseRecord{*p})
	if len(results) == 0 {
		return ItemResult{}, err
	}
	return results[0], err
}

// RefreshStale re-analyzes every purchase whose snapshot is missing or older than StaleAfter.
func (t *Tracker) RefreshStale(ctx context.Context) ([]ItemResult, error) {
	stale, err := t.Recorder.StalePurchases(ctx, t.Now().Add(-t.StaleAfter))
	if err != nil {
		return nil, fmt.Errorf("find stale purchases: %w", err)
	}
	if len(stale) == 0 {
		return nil, nil
	}
	log.Info().Int("count", len(stale)).Msg("refreshing stale purchases")
	return t.Refresh(ctx, stale)
}

// IsStale reports whether a snapshot needs refreshing.
func (t *Tracker) IsStale(snap *model.Snapshot) bool {
	return snap == nil || t.Now().Sub(snap.CreatedAt) > t.StaleAfter
}

// Latest returns the stored snapshot of a purchase and whether it is stale.
// A purchase without any snapshot yields nil and stale=true.
func (t *Tracker) Latest(ctx context.Context, id uuid.UUID) (*model.Snapshot, bool, error) {
	if _, err := t.Recorder.GetPurchase(ctx, id); err != nil {
		return nil, false, err
	}
	snap, err := t.Recorder.LatestAnalysis(ctx, id)
	if errors.Is(err, recorder.ErrNotFound) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return snap, t.IsStale(snap), nil
}

// ReportSince builds report items for purchases recorded since the given time,
// using each purchase's stored snapshot.
func (t *Tracker) ReportSince(ctx context.Context, since time.Time) ([]model.ReportItem, error) {
	purchases, err := t.Recorder.ListPurchases(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	items := make([]model.ReportItem, 0, len(purchases))
	for _, p := range purchases {
		it := model.ReportItem{
			Name:          p.ItemName,
			Amount:        p.Amount,
			Unit:          p.Unit,
			OriginalPrice: p.TotalPrice,
			Result:        model.NoData("not analyzed"),
		}
		snap, err := t.Recorder.LatestAnalysis(ctx, p.ID)
		switch {
		case err == nil:
			it.Result = snap.Result
		case !errors.Is(err, recorder.ErrNotFound):
			return nil, fmt.Errorf("latest analysis: %w", err)
		}
		items = append(items, it)
	}
	return items, nil
}
