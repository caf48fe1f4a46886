package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Listing is a raw shopping-search result before filtering.
type Listing struct {
	Title      string
	Price      float64
	Link       string
	MallName   string
	Categories []string // category1..category4, empty levels omitted
}

// MarketCandidate is a listing that survived filtering.
type MarketCandidate struct {
	Title        string   `json:"title"`
	Price        float64  `json:"price"`
	Source       string   `json:"source"`
	Link         string   `json:"link"`
	ParsedAmount *float64 `json:"parsed_amount,omitempty"`
	ParsedUnit   string   `json:"parsed_unit,omitempty"`
	UnitPrice    float64  `json:"unit_price"` // per base unit, set by the comparison engine
	Comparable   bool     `json:"comparable"`
}

// Status is the qualitative verdict of a comparison.
type Status string

const (
	StatusBest Status = "BEST"
	StatusGood Status = "GOOD"
	StatusBad  Status = "BAD"
)

// MarketAnalysis is a point-in-time comparison snapshot for one purchase.
type MarketAnalysis struct {
	CheapestSource           string            `json:"cheapest_source"`
	Price                    float64           `json:"price"`
	Status                   Status            `json:"status"`
	Diff                     float64           `json:"diff"`
	TotalDiff                float64           `json:"total_diff"`
	MarketUnitPrice          float64           `json:"market_unit_price"`
	UserUnitPrice            float64           `json:"user_unit_price"`
	BaseUnit                 string            `json:"base_unit"`
	MarketTotalForUserAmount float64           `json:"market_total_for_user_amount"`
	Link                     string            `json:"link"`
	Query                    string            `json:"query"`
	Candidates               []MarketCandidate `json:"candidates"`
	AnalyzedAt               time.Time         `json:"analyzed_at"`
}

// ResultKind tags a Result.
type ResultKind string

const (
	KindNoData   ResultKind = "no_data"
	KindAnalysis ResultKind = "analysis"
)

// Result is either NoData or an Analysis. Analysis is non-nil iff Kind is KindAnalysis.
type Result struct {
	Kind     ResultKind      `json:"kind"`
	Reason   string          `json:"reason,omitempty"`
	Analysis *MarketAnalysis `json:"analysis,omitempty"`
}

// NoData builds a NoData result.
func NoData(reason string) Result {
	return Result{Kind: KindNoData, Reason: reason}
}

// Analyzed wraps an analysis into a Result.
func Analyzed(a *MarketAnalysis) Result {
	if a == nil {
		return NoData("empty analysis")
	}
	return Result{Kind: KindAnalysis, Analysis: a}
}

// HasAnalysis reports whether r carries market data.
func (r Result) HasAnalysis() bool {
	return r.Kind == KindAnalysis && r.Analysis != nil
}

// UnmarshalJSON rejects unknown kinds so stored snapshots stay well-formed.
func (r *Result) UnmarshalJSON(data []byte) error {
	type raw Result
	var v raw
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.Kind {
	case KindNoData:
		v.Analysis = nil
	case KindAnalysis:
		if v.Analysis == nil {
			return fmt.Errorf("analysis result without payload")
		}
	default:
		return fmt.Errorf("unknown result kind %q", v.Kind)
	}
	*r = Result(v)
	return nil
}

// Snapshot is a stored Result attached to a purchase.
type Snapshot struct {
	PurchaseID string    `json:"purchase_id"`
	Result     Result    `json:"result"`
	CreatedAt  time.Time `json:"created_at"`
}
