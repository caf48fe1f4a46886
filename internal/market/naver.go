package market

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"PriceSentinel/internal/model"
)

// DefaultNaverBaseURL is the Naver Open API host.
const DefaultNaverBaseURL = "https://openapi.naver.com"

// NaverSearcher implements Searcher using the Naver Shopping search API.
type NaverSearcher struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Client       *http.Client
}

// NewNaverSearcher creates a new searcher with optional proxy support.
func NewNaverSearcher(baseURL, clientID, clientSecret, proxyURL string) *NaverSearcher {
	if baseURL == "" {
		baseURL = DefaultNaverBaseURL
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &NaverSearcher{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (n *NaverSearcher) Name() string { return "naver" }

// naverShopResponse is the JSON shape of /v1/search/shop.json.
type naverShopResponse struct {
	Total int `json:"total"`
	Items []struct {
		Title     string `json:"title"`
		Link      string `json:"link"`
		LPrice    string `json:"lprice"`
		MallName  string `json:"mallName"`
		Category1 string `json:"category1"`
		Category2 string `json:"category2"`
		Category3 string `json:"category3"`
		Category4 string `json:"category4"`
	} `json:"items"`
}

// Search requests up to display results sorted by relevance.
func (n *NaverSearcher) Search(ctx context.Context, query string, display int) ([]model.Listing, error) {
	if n.ClientID == "" || n.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if display <= 0 || display > 100 {
		display = 100
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("display", strconv.Itoa(display))
	params.Set("sort", "sim")
	endpoint := fmt.Sprintf("%s/v1/search/shop.json?%s", n.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Naver-Client-Id", n.ClientID)
	req.Header.Set("X-Naver-Client-Secret", n.ClientSecret)

	resp, err := n.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("naver search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("naver search: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result naverShopResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode naver response: %w", err)
	}

	listings := make([]model.Listing, 0, len(result.Items))
	for _, it := range result.Items {
		price, err := strconv.ParseFloat(strings.TrimSpace(it.LPrice), 64)
		if err != nil {
			continue // unpriced listing
		}
		var cats []string
		for _, c := range []string{it.Category1, it.Category2, it.Category3, it.Category4} {
			if c = strings.TrimSpace(c); c != "" {
				cats = append(cats, c)
			}
		}
		listings = append(listings, model.Listing{
			Title:      CleanTitle(it.Title),
			Price:      price,
			Link:       it.Link,
			MallName:   strings.TrimSpace(it.MallName),
			Categories: cats,
		})
	}
	return listings, nil
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

// CleanTitle strips the highlight markup and HTML entities Naver embeds in titles.
func CleanTitle(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
