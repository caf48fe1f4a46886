// Package market queries the shopping-search API and turns raw listings into clean price candidates.
package market

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog/log"

	"PriceSentinel/internal/cache"
	"PriceSentinel/internal/model"
	"PriceSentinel/internal/units"
)

const (
	// SearchDisplay is how many results are requested per query.
	SearchDisplay = 100
	// MaxCandidates caps the returned list.
	MaxCandidates = 20
	// trimThreshold is the candidate count from which the extremes are dropped.
	trimThreshold = 5
)

// Service orchestrates search, filtering, quantity parsing and outlier trimming.
type Service struct {
	Searcher Searcher
	Weights  units.StandardWeights
	Cache    *cache.TTL[string, []model.MarketCandidate]
}

// NewService creates a Service. cache may be nil.
func NewService(searcher Searcher, weights units.StandardWeights, c *cache.TTL[string, []model.MarketCandidate]) *Service {
	if weights == nil {
		weights = units.DefaultWeights
	}
	return &Service{Searcher: searcher, Weights: weights, Cache: c}
}

// SearchMarket returns up to MaxCandidates food listings sorted by price, or nil when there is no usable market data.
func (s *Service) SearchMarket(ctx context.Context, query, itemName string) []model.MarketCandidate {
	key := query + "\x00" + itemName
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(key); ok {
			return cloneCandidates(cached)
		}
	}

	listings, err := s.Searcher.Search(ctx, query, SearchDisplay)
	if err != nil {
		if errors.Is(err, ErrMissingCredentials) {
			log.Debug().Str("searcher", s.Searcher.Name()).Msg("market search skipped: no credentials")
		} else {
			log.Warn().Err(err).Str("query", query).Msg("market search failed")
		}
		return nil
	}

	candidates := s.Candidates(query, itemName, listings)
	if len(candidates) == 0 {
		log.Info().Str("query", query).Int("listings", len(listings)).Msg("no market candidates after filtering")
		return nil
	}
	if s.Cache != nil {
		s.Cache.Set(key, candidates)
	}
	return cloneCandidates(candidates)
}

// Candidates filters, parses and trims listings without any I/O.
func (s *Service) Candidates(query, itemName string, listings []model.Listing) []model.MarketCandidate {
	f := NewFilter(query)
	var out []model.MarketCandidate
	for _, l := range listings {
		if ok, reason := f.Accept(l); !ok {
			log.Trace().Str("title", l.Title).Str("reason", reason).Msg("listing rejected")
			continue
		}
		c := model.MarketCandidate{
			Title:  l.Title,
			Price:  l.Price,
			Source: l.MallName,
			Link:   l.Link,
		}
		if q, ok := ParseQuantity(l.Title, itemName, s.Weights); ok {
			amount := q.Amount
			c.ParsedAmount = &amount
			c.ParsedUnit = q.Unit
		}
		out = append(out, c)
	}
	return TrimOutliers(out)
}

// TrimOutliers sorts ascending by price, drops the single cheapest and most expensive
// once there are at least five candidates, and caps the result at MaxCandidates.
func TrimOutliers(c []model.MarketCandidate) []model.MarketCandidate {
	sort.SliceStable(c, func(i, j int) bool { return c[i].Price < c[j].Price })
	if len(c) >= trimThreshold {
		c = c[1 : len(c)-1]
	}
	if len(c) > MaxCandidates {
		c = c[:MaxCandidates]
	}
	return c
}

func cloneCandidates(c []model.MarketCandidate) []model.MarketCandidate {
	out := make([]model.MarketCandidate, len(c))
	copy(out, c)
	return out
}
