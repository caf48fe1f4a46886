// Package recorder persists purchases and their market-analysis snapshots.
package recorder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"PriceSentinel/internal/model"
)

// ErrNotFound is returned when a purchase or snapshot does not exist.
var ErrNotFound = errors.New("not found")

// Recorder stores purchases and attaches analysis snapshots to them.
type Recorder interface {
	SavePurchase(ctx context.Context, p *model.PurchaseRecord) error
	GetPurchase(ctx context.Context, id uuid.UUID) (*model.PurchaseRecord, error)
	// ListPurchases returns purchases recorded at or after since, oldest first.
	ListPurchases(ctx context.Context, since time.Time) ([]model.PurchaseRecord, error)
	LatestPurchaseByItem(ctx context.Context, itemName string) (*model.PurchaseRecord, error)
	AttachAnalysis(ctx context.Context, purchaseID uuid.UUID, res model.Result) error
	LatestAnalysis(ctx context.Context, purchaseID uuid.UUID) (*model.Snapshot, error)
	// StalePurchases returns purchases whose latest snapshot is older than olderThan or missing.
	StalePurchases(ctx context.Context, olderThan time.Time) ([]model.PurchaseRecord, error)
	Close() error
}
