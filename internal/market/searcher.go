package market

import (
	"context"
	"errors"
	"sync"

	"PriceSentinel/internal/model"
)

// ErrMissingCredentials is returned by searchers that have no API keys configured.
var ErrMissingCredentials = errors.New("shopping search credentials are not configured")

// Searcher defines the interface for querying a shopping-search API.
type Searcher interface {
	Search(ctx context.Context, query string, display int) ([]model.Listing, error)
	Name() string
}

// MockSearcher returns controllable fixed listings for development and testing.
type MockSearcher struct {
	Listings []model.Listing
	Err      error
	Calls    int

	mu sync.Mutex
}

func (m *MockSearcher) Name() string { return "mock" }

func (m *MockSearcher) Search(_ context.Context, _ string, display int) ([]model.Listing, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if display > 0 && len(m.Listings) > display {
		return m.Listings[:display], nil
	}
	return m.Listings, nil
}
