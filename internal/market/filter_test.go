package market

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"PriceSentinel/internal/model"
)

func food(title string, price float64) model.Listing {
	return model.Listing{
		Title:      title,
		Price:      price,
		MallName:   "농협몰",
		Categories: []string{"식품", "농산물", "채소"},
	}
}

func TestFilter_RejectsNoise(t *testing.T) {
	f := NewFilter("양파")
	tests := []struct {
		name    string
		listing model.Listing
	}{
		{"placeholder price", food("국산 양파 1kg", 99)},
		{"sauce", food("양파 소스 500g", 5000)},
		{"tool", food("양파 채칼 다지기", 12000)},
		{"snack", food("양파링 과자", 1500)},
		{"container", food("양파 보관용기", 8000)},
		{"seedling", food("양파 모종 50주", 9000)},
		{"meal kit", food("양파 볶음밥 밀키트", 7000)},
		{"operator listing", model.Listing{Title: "양파 3kg", Price: 5000, MallName: "네이버", Categories: []string{"식품"}}},
		{"excluded category", model.Listing{Title: "양파 망", Price: 3000, MallName: "a", Categories: []string{"식품", "주방용품"}}},
		{"non-food top category", model.Listing{Title: "양파 3kg", Price: 5000, MallName: "a", Categories: []string{"생활/건강"}}},
		{"no category", model.Listing{Title: "양파 3kg", Price: 5000, MallName: "a"}},
		{"beverage", food("양파즙 100포", 30000)},
		{"missing token", food("햇감자 3kg", 9000)},
	}
	for _, tt := range tests {
		ok, reason := f.Accept(tt.listing)
		assert.False(t, ok, tt.name)
		assert.NotEmpty(t, reason, tt.name)
	}
}

func TestFilter_SauceNeverAccepted(t *testing.T) {
	for _, query := range []string{"돈까스", "돈까스 소스", "굴소스"} {
		f := NewFilter(query)
		for _, price := range []float64{100, 5000, 1e6} {
			for _, cats := range [][]string{{"식품"}, {"식품", "소스/드레싱"}, {"농산물"}} {
				ok, _ := f.Accept(model.Listing{Title: "수제 돈까스 소스", Price: price, MallName: "a", Categories: cats})
				assert.False(t, ok, query)
			}
		}
	}

	ok, reason := NewFilter("굴소스").Accept(food("이금기 굴소스 510g", 6000))
	assert.False(t, ok)
	assert.Equal(t, "denylisted keyword 소스", reason)
}

func TestFilter_AcceptsFood(t *testing.T) {
	f := NewFilter("양파 15kg")
	ok, reason := f.Accept(food("<국내산> 햇 양파 15kg 대", 21000))
	assert.True(t, ok, reason)

	ok, _ = f.Accept(model.Listing{Title: "무안 양파 10kg", Price: 15000, MallName: "산지직송", Categories: []string{"농산물"}})
	assert.True(t, ok)
}

func TestFilter_ConjunctiveTokensIgnoreSpacing(t *testing.T) {
	f := NewFilter("청양 고추")
	ok, _ := f.Accept(food("국산청양고추 1kg", 9000))
	assert.True(t, ok)

	ok, _ = f.Accept(food("꽈리고추 1kg", 9000))
	assert.False(t, ok)
}

func TestFilter_BeverageGuard(t *testing.T) {
	f := NewFilter("배추")
	ok, _ := f.Accept(model.Listing{Title: "해남 절임배추 20kg", Price: 35000, MallName: "a", Categories: []string{"식품", "음료"}})
	assert.True(t, ok, "produce term rescues a beverage-looking category")

	f = NewFilter("당근")
	ok, _ = f.Accept(food("당근 주스 1L", 5000))
	assert.False(t, ok)

	f = NewFilter("당근 주스")
	ok, _ = f.Accept(food("당근 주스 1L", 5000))
	assert.True(t, ok, "beverage queries keep beverages")
}

func TestFilter_GroundStapleIsNotNoise(t *testing.T) {
	f := NewFilter("고춧가루")
	ok, reason := f.Accept(food("국산 고춧가루 1kg", 35000))
	assert.True(t, ok, reason)

	ok, reason = f.Accept(food("고춧가루 양념 세트 1kg", 20000))
	assert.False(t, ok)
	assert.Equal(t, "denylisted keyword 양념", reason)

	ok, _ = NewFilter("고추").Accept(food("고춧가루 1kg", 35000))
	assert.False(t, ok)
}

func TestFilter_SearchedDenylistWordStaysNoise(t *testing.T) {
	for query, title := range map[string]string{
		"만두":  "고기 만두 1kg",
		"튀김":  "오징어 튀김 1kg",
		"양념":  "소불고기 양념 500g",
		"시즈닝": "스테이크 시즈닝 100g",
	} {
		ok, _ := NewFilter(query).Accept(food(title, 9000))
		assert.False(t, ok, query)
	}
}

func TestQueryTokens(t *testing.T) {
	assert.Equal(t, []string{"양파"}, QueryTokens("양파 15kg"))
	assert.Equal(t, []string{"국산", "두부"}, QueryTokens(" 국산 두부 3모 "))
	assert.Empty(t, QueryTokens(""))
}
