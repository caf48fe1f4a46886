package model

// ReportItem is one analyzed purchase fed into the report generator.
type ReportItem struct {
	Name          string  `json:"name"`
	Amount        float64 `json:"amount"`
	Unit          string  `json:"unit"`
	OriginalPrice float64 `json:"original_price"`
	Result        Result  `json:"market_analysis"`
}
