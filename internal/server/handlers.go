package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"PriceSentinel/internal/analyzer"
	"PriceSentinel/internal/comparison"
	"PriceSentinel/internal/model"
	"PriceSentinel/internal/recipe"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "price-sentinel",
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

// NormalizeRequest is the body of POST /api/v1/normalize.
type NormalizeRequest struct {
	Price    float64 `json:"price"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
	ItemName string  `json:"item_name"`
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Price < 0 || req.Amount < 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "price and amount must not be negative")
		return
	}
	respondJSON(w, http.StatusOK, s.Analyzer.Normalizer.Normalize(req.Price, req.Amount, req.Unit, req.ItemName))
}

// MarketResponse lists filtered candidates for a query.
type MarketResponse struct {
	Query      string                  `json:"query"`
	Item       string                  `json:"item"`
	Candidates []model.MarketCandidate `json:"candidates"`
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}
	item := strings.TrimSpace(r.URL.Query().Get("item"))
	if item == "" {
		item = query
	}
	candidates := s.Analyzer.Market.SearchMarket(r.Context(), query, item)
	if candidates == nil {
		candidates = []model.MarketCandidate{}
	}
	respondJSON(w, http.StatusOK, MarketResponse{Query: query, Item: item, Candidates: candidates})
}

// CompareRequest is the body of POST /api/v1/compare. Query defaults to the item name plus quantity.
type CompareRequest struct {
	Price    float64 `json:"price"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
	ItemName string  `json:"item_name"`
	Query    string  `json:"query,omitempty"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item := model.PurchaseItem{Name: req.ItemName, Price: req.Price, Amount: req.Amount, Unit: req.Unit}
	if err := validateItem(item); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = analyzer.BuildQuery(item)
	}
	candidates := s.Analyzer.Market.SearchMarket(r.Context(), query, item.Name)
	if candidates == nil {
		respondJSON(w, http.StatusOK, model.NoData("no market data"))
		return
	}
	respondJSON(w, http.StatusOK, s.Analyzer.Engine.Compare(comparison.Input{
		UserPrice:  item.Price,
		UserAmount: item.Amount,
		UserUnit:   item.Unit,
		ItemName:   item.Name,
		Query:      query,
	}, candidates))
}

// AnalyzeRequest is the body of POST /api/v1/analyze.
type AnalyzeRequest struct {
	Items []model.PurchaseItem `json:"items"`
}

// AnalyzeResponse pairs per-item results with the rendered report.
type AnalyzeResponse struct {
	Results []analyzer.ItemResult `json:"results"`
	Report  []string              `json:"report"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Items) > MaxBatchItems {
		respondError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("at most %d items per request", MaxBatchItems))
		return
	}
	for i, it := range req.Items {
		if err := validateItem(it); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("items[%d]: %v", i, err))
			return
		}
	}
	results, lines := s.Analyzer.Report(r.Context(), req.Items)
	respondJSON(w, http.StatusOK, AnalyzeResponse{Results: results, Report: lines})
}

// CreatePurchaseRequest records a purchase and optionally analyzes it right away.
type CreatePurchaseRequest struct {
	model.PurchaseItem
	RecordedAt time.Time `json:"recorded_at,omitempty"`
	Analyze    bool      `json:"analyze,omitempty"`
}

// PurchaseResponse is a stored purchase with its analysis, if one was run.
type PurchaseResponse struct {
	Purchase *model.PurchaseRecord `json:"purchase"`
	Result   *model.Result         `json:"result,omitempty"`
}

func (s *Server) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req CreatePurchaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateItem(req.PurchaseItem); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	p, err := s.Tracker.Record(r.Context(), req.PurchaseItem, req.RecordedAt)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	s.Coster.InvalidateAll()

	resp := PurchaseResponse{Purchase: p}
	if req.Analyze {
		results, err := s.Tracker.Refresh(r.Context(), []model.PurchaseRecord{*p})
		if err != nil {
			respondStoreError(w, err)
			return
		}
		resp.Result = &results[0].Result
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "since must be RFC3339")
			return
		}
		since = t
	}
	purchases, err := s.Tracker.Recorder.ListPurchases(r.Context(), since)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if purchases == nil {
		purchases = []model.PurchaseRecord{}
	}
	respondJSON(w, http.StatusOK, purchases)
}

// AnalysisResponse is the latest stored snapshot of a purchase.
type AnalysisResponse struct {
	PurchaseID string          `json:"purchase_id"`
	Snapshot   *model.Snapshot `json:"snapshot"`
	Stale      bool            `json:"stale"`
}

func (s *Server) handlePurchaseAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := purchaseID(w, r)
	if !ok {
		return
	}
	snap, stale, err := s.Tracker.Latest(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, AnalysisResponse{PurchaseID: id.String(), Snapshot: snap, Stale: stale})
}

func (s *Server) handleRefreshPurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := purchaseID(w, r)
	if !ok {
		return
	}
	res, err := s.Tracker.RefreshOne(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleRecipeCost(w http.ResponseWriter, r *http.Request) {
	var req recipe.Recipe
	if !decodeJSON(w, r, &req) {
		return
	}
	costing, err := s.Coster.Cost(r.Context(), req)
	if errors.Is(err, recipe.ErrInvalidRecipe) {
		respondError(w, http.StatusBadRequest, "invalid_recipe", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "costing_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, costing)
}

func purchaseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "purchase id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func validateItem(it model.PurchaseItem) error {
	if strings.TrimSpace(it.Name) == "" {
		return errors.New("name is required")
	}
	if it.Price < 0 {
		return errors.New("price must not be negative")
	}
	if it.Amount < 0 {
		return errors.New("amount must not be negative")
	}
	return nil
}
