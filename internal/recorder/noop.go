package recorder

import (
	"context"
	"time"

	"github.com/google/uuid"

	"PriceSentinel/internal/model"
)

// NoopRecorder is used when no database is configured. Writes are dropped and reads find nothing.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) SavePurchase(_ context.Context, _ *model.PurchaseRecord) error { return nil }
func (n *NoopRecorder) GetPurchase(_ context.Context, _ uuid.UUID) (*model.PurchaseRecord, error) {
	return nil, ErrNotFound
}
func (n *NoopRecorder) ListPurchases(_ context.Context, _ time.Time) ([]model.PurchaseRecord, error) {
	return nil, nil
}
func (n *NoopRecorder) LatestPurchaseByItem(_ context.Context, _ string) (*model.PurchaseRecord, error) {
	return nil, ErrNotFound
}
func (n *NoopRecorder) AttachAnalysis(_ context.Context, _ uuid.UUID, _ model.Result) error {
	return nil
}
func (n *NoopRecorder) LatestAnalysis(_ context.Context, _ uuid.UUID) (*model.Snapshot, error) {
	return nil, ErrNotFound
}
func (n *NoopRecorder) StalePurchases(_ context.Context, _ time.Time) ([]model.PurchaseRecord, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
