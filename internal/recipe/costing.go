// Package recipe costs menu recipes from the latest recorded ingredient prices.
package recipe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"PriceSentinel/internal/cache"
	"PriceSentinel/internal/model"
	"PriceSentinel/internal/units"
)

// ErrInvalidRecipe is returned for recipes that cannot be costed at all.
var ErrInvalidRecipe = errors.New("invalid recipe")

// Ingredient is one line of a recipe, in the amount used for the whole batch.
type Ingredient struct {
	ItemName string  `json:"item_name"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
}

// Recipe yields Servings portions sold at SellingPrice each.
type Recipe struct {
	Name         string       `json:"name"`
	SellingPrice float64      `json:"selling_price"`
	Servings     int          `json:"servings"`
	Ingredients  []Ingredient `json:"ingredients"`
}

// Line is the cost of one ingredient.
type Line struct {
	ItemName  string  `json:"item_name"`
	Amount    float64 `json:"amount"` // in BaseUnit
	BaseUnit  string  `json:"base_unit"`
	UnitPrice float64 `json:"unit_price"`
	Cost      float64 `json:"cost"`
}

// Missing names an ingredient that could not be priced.
type Missing struct {
	ItemName string `json:"item_name"`
	Reason   string `json:"reason"`
}

// Costing is the result for a whole recipe.
type Costing struct {
	Recipe         string    `json:"recipe"`
	TotalCost      float64   `json:"total_cost"`
	CostPerServing float64   `json:"cost_per_serving"`
	FoodCostRatio  float64   `json:"food_cost_ratio"` // percent of selling price
	Margin         float64   `json:"margin"`          // per serving
	Lines          []Line    `json:"lines"`
	Missing        []Missing `json:"missing,omitempty"`
}

// PriceSource looks up the most recent purchase of an item.
type PriceSource interface {
	LatestPurchaseByItem(ctx context.Context, itemName string) (*model.PurchaseRecord, error)
}

// Coster prices recipes. Results are cached per recipe body, so two recipes
// sharing a name but not their ingredients are costed separately.
type Coster struct {
	Prices     PriceSource
	Normalizer *units.Normalizer
	Cache      *cache.TTL[string, Costing]
}

func NewCoster(prices PriceSource, n *units.Normalizer, c *cache.TTL[string, Costing]) *Coster {
	if n == nil {
		n = units.NewNormalizer(nil)
	}
	return &Coster{Prices: prices, Normalizer: n, Cache: c}
}

// Cost prices every ingredient. Unpriced ingredients are reported in Missing rather than failing the costing.
func (c *Coster) Cost(ctx context.Context, r Recipe) (Costing, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return Costing{}, fmt.Errorf("%w: name is required", ErrInvalidRecipe)
	}
	if len(r.Ingredients) == 0 {
		return Costing{}, fmt.Errorf("%w: no ingredients", ErrInvalidRecipe)
	}
	key := cacheKey(name, r)
	if c.Cache != nil {
		if cached, ok := c.Cache.Get(key); ok {
			return cached, nil
		}
	}

	out := Costing{Recipe: name, Lines: make([]Line, 0, len(r.Ingredients))}
	total := decimal.Zero

	for _, ing := range r.Ingredients {
		line, reason := c.costLine(ctx, ing)
		if reason != "" {
			out.Missing = append(out.Missing, Missing{ItemName: ing.ItemName, Reason: reason})
			continue
		}
		out.Lines = append(out.Lines, line)
		total = total.Add(decimal.NewFromFloat(line.Cost))
	}

	servings := r.Servings
	if servings <= 0 {
		servings = 1
	}
	perServing := total.Div(decimal.NewFromInt(int64(servings)))

	out.TotalCost = total.Round(2).InexactFloat64()
	out.CostPerServing = perServing.Round(2).InexactFloat64()
	if r.SellingPrice > 0 {
		price := decimal.NewFromFloat(r.SellingPrice)
		out.FoodCostRatio = perServing.Div(price).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		out.Margin = price.Sub(perServing).Round(2).InexactFloat64()
	}

	if len(out.Missing) > 0 {
		log.Warn().Str("recipe", name).Int("missing", len(out.Missing)).Msg("recipe costed with missing ingredients")
	}
	if c.Cache != nil {
		c.Cache.Set(key, out)
	}
	return out, nil
}

func (c *Coster) costLine(ctx context.Context, ing Ingredient) (Line, string) {
	if strings.TrimSpace(ing.ItemName) == "" {
		return Line{}, "missing item name"
	}
	if ing.Amount <= 0 {
		return Line{}, "non-positive amount"
	}
	if c.Prices == nil {
		return Line{}, "no price source"
	}

	p, err := c.Prices.LatestPurchaseByItem(ctx, ing.ItemName)
	if err != nil || p == nil {
		if err != nil {
			log.Debug().Err(err).Str("item", ing.ItemName).Msg("no purchase for ingredient")
		}
		return Line{}, "no recorded purchase"
	}

	bought := p.Normalized
	if bought.Unit == "" {
		bought = c.Normalizer.Normalize(p.TotalPrice, p.Amount, p.Unit, p.ItemName)
	}
	used := c.Normalizer.Normalize(0, ing.Amount, ing.Unit, ing.ItemName)
	if !strings.EqualFold(bought.Unit, used.Unit) {
		return Line{}, fmt.Sprintf("unit mismatch: bought per %s, used in %s", bought.Unit, used.Unit)
	}

	cost := decimal.NewFromFloat(bought.UnitPrice).Mul(decimal.NewFromFloat(used.Amount))
	return Line{
		ItemName:  ing.ItemName,
		Amount:    used.Amount,
		BaseUnit:  used.Unit,
		UnitPrice: bought.UnitPrice,
		Cost:      cost.Round(2).InexactFloat64(),
	}, ""
}

// cacheKey is the recipe name followed by a digest of everything that affects the costing.
func cacheKey(name string, r Recipe) string {
	body, _ := json.Marshal(struct {
		SellingPrice float64      `json:"p"`
		Servings     int          `json:"s"`
		Ingredients  []Ingredient `json:"i"`
	}{r.SellingPrice, r.Servings, r.Ingredients})
	sum := sha256.Sum256(body)
	return name + "#" + hex.EncodeToString(sum[:8])
}

// Invalidate drops every cached costing of the named recipe.
func (c *Coster) Invalidate(name string) {
	if c.Cache == nil {
		return
	}
	prefix := strings.TrimSpace(name) + "#"
	c.Cache.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, prefix) })
}

// InvalidateAll drops every cached costing, e.g. after a new purchase changes a latest price.
func (c *Coster) InvalidateAll() {
	if c != nil && c.Cache != nil {
		c.Cache.Clear()
	}
}
