package model

import (
	"time"

	"github.com/google/uuid"
)

// NormalizedPrice is a purchase price expressed per base unit (g, ml or piece).
type NormalizedPrice struct {
	UnitPrice float64 `json:"unit_price"`
	Unit      string  `json:"unit"`
	Amount    float64 `json:"amount"`
}

// PurchaseRecord is one purchase event, entered by hand or taken from a parsed receipt.
type PurchaseRecord struct {
	ID         uuid.UUID       `json:"id"`
	ItemName   string          `json:"item_name"`
	TotalPrice float64         `json:"total_price"`
	Amount     float64         `json:"amount"`
	Unit       string          `json:"unit"`
	RecordedAt time.Time       `json:"recorded_at"`
	Normalized NormalizedPrice `json:"normalized"`
}

// PurchaseItem is a parsed line item awaiting analysis.
type PurchaseItem struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// Item returns the purchase as an analysis input.
func (p PurchaseRecord) Item() PurchaseItem {
	return PurchaseItem{Name: p.ItemName, Price: p.TotalPrice, Amount: p.Amount, Unit: p.Unit}
}
