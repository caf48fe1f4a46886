package units

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// StandardWeights resolves the assumed gram weight of one piece/bundle of an item.
type StandardWeights interface {
	StandardWeight(itemName string) (grams float64, ok bool)
}

// StaticWeights maps an ingredient keyword to grams per piece.
// Lookup matches the longest keyword contained in the item name, so "양배추" wins over "배추".
// One-character keywords such as "무" must be a whole word of the name.
type StaticWeights map[string]float64

// DefaultWeights is the built-in standard-weight table.
var DefaultWeights = StaticWeights{
	"두부":   350,
	"양파":   200,
	"마늘":   5,
	"감자":   150,
	"고구마":  200,
	"당근":   200,
	"애호박":  300,
	"오이":   200,
	"무":    1500,
	"배추":   2500,
	"양배추":  1500,
	"대파":   1000,
	"쪽파":   500,
	"계란":   60,
	"달걀":   60,
	"사과":   250,
	"레몬":   120,
	"토마토":  200,
	"파프리카": 200,
	"피망":   100,
	"고추":   10,
	"청양고추": 10,
	"브로콜리": 300,
	"시금치":  300,
}

func (w StaticWeights) StandardWeight(itemName string) (float64, bool) {
	name := strings.TrimSpace(itemName)
	if name == "" {
		return 0, false
	}
	words := strings.Fields(name)
	best := ""
	for k := range w {
		if !matchesKeyword(name, words, k) {
			continue
		}
		if len(k) > len(best) || (len(k) == len(best) && k < best) {
			best = k
		}
	}
	if best == "" {
		return 0, false
	}
	g := w[best]
	if g <= 0 {
		return 0, false
	}
	return g, true
}

func matchesKeyword(name string, words []string, k string) bool {
	if utf8.RuneCountInString(k) > 1 {
		return strings.Contains(name, k)
	}
	for _, w := range words {
		if w == k {
			return true
		}
	}
	return false
}

// Merge returns a new table with overrides layered on top of w.
func (w StaticWeights) Merge(overrides StaticWeights) StaticWeights {
	out := make(StaticWeights, len(w)+len(overrides))
	for k, v := range w {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// LoadWeights reads a JSON object of {"item": grams} and merges it over DefaultWeights.
// A missing file yields the defaults.
func LoadWeights(path string) (StaticWeights, error) {
	if path == "" {
		return DefaultWeights, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultWeights, nil
		}
		return nil, fmt.Errorf("read standard weights: %w", err)
	}
	var overrides StaticWeights
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse standard weights: %w", err)
	}
	for k, v := range overrides {
		if v <= 0 {
			return nil, fmt.Errorf("standard weight for %q must be positive", k)
		}
	}
	return DefaultWeights.Merge(overrides), nil
}
