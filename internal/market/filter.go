package market

import (
	"strings"
	"unicode"

	"PriceSentinel/internal/model"
)

// MinListingPrice is the lowest price treated as a real offer; cheaper listings are placeholders.
const MinListingPrice = 100

// OperatorMallName is the marketplace operator's own catalog listing.
const OperatorMallName = "네이버"

// Denylisted title keywords, grouped by what they catch.
var (
	toolKeywords      = []string{"식칼", "가위", "도마", "채칼", "다지기", "필러", "슬라이서", "강판", "절구", "모종삽"}
	snackKeywords     = []string{"과자", "스낵", "칩", "젤리", "사탕", "쿠키", "초콜릿", "말랭이"}
	flavoringKeywords = []string{"소스", "양념", "분말", "가루", "시즈닝", "엑기스", "농축", "진액", "드레싱", "페이스트"}
	packagingKeywords = []string{"용기", "보관함", "케이스", "포장지", "봉투", "밀폐", "바구니", "트레이"}
	nonFoodKeywords   = []string{"모종", "씨앗", "종자", "비료", "화분", "장난감", "인형", "키링", "스티커", "향초", "디퓨저", "비누"}
	mealKeywords      = []string{"도시락", "밀키트", "볶음밥", "만두", "즉석", "냉동피자", "튀김"}
)

// DenyKeywords is the flattened title denylist.
var DenyKeywords = concat(toolKeywords, snackKeywords, flavoringKeywords, packagingKeywords, nonFoodKeywords, mealKeywords)

// ExcludedCategories rejects a listing when any category level contains one of them.
var ExcludedCategories = []string{"주방용품", "원예", "문구", "완구", "반려동물", "생활용품", "가구", "화장품", "세제", "캠핑", "공구", "건강식품"}

// AllowedTopCategories lists the category1 values kept.
var AllowedTopCategories = []string{"식품", "출산/육아", "농산물", "축산물", "수산물"}

var (
	beverageKeywords   = []string{"주스", "쥬스", "음료", "즙", "드링크", "스무디", "에이드", "라떼", "티백", "원액", "탄산"}
	beverageCategories = []string{"음료", "커피", "차류", "생수"}
	// produceTerms rescue real produce whose listing trips a beverage match.
	produceTerms = []string{"배추", "고추"}
	// groundIngredients are staple ingredients whose name embeds a flavoring keyword.
	groundIngredients = []string{"고춧가루", "밀가루", "쌀가루", "찹쌀가루", "콩가루", "들깻가루", "전분가루"}
)

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Filter applies the noise rules for one query.
type Filter struct {
	queryTokens   []string
	beverageQuery bool
	// staples are groundIngredients named in the query; they may appear in titles.
	staples []string
}

// NewFilter prepares the filter for query.
func NewFilter(query string) *Filter {
	f := &Filter{
		queryTokens:   QueryTokens(query),
		beverageQuery: containsAny(query, beverageKeywords),
	}
	compact := strings.ReplaceAll(strings.ToLower(query), " ", "")
	for _, g := range groundIngredients {
		if strings.Contains(compact, g) {
			f.staples = append(f.staples, g)
		}
	}
	return f
}

// QueryTokens lowercases the query and drops quantity tokens such as "15kg" or "3개".
func QueryTokens(query string) []string {
	var tokens []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		r := []rune(f)
		if unicode.IsDigit(r[0]) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Accept reports whether l is a plausible food offer for the query, with the rejection reason otherwise.
func (f *Filter) Accept(l model.Listing) (bool, string) {
	if l.Price < MinListingPrice {
		return false, "price below minimum"
	}
	title := strings.ToLower(l.Title)
	for _, g := range f.staples {
		title = strings.ReplaceAll(title, g, " ")
	}
	if kw := firstContained(title, DenyKeywords); kw != "" {
		return false, "denylisted keyword " + kw
	}
	for _, c := range l.Categories {
		if kw := firstContained(c, ExcludedCategories); kw != "" {
			return false, "excluded category " + kw
		}
	}
	if l.MallName == OperatorMallName {
		return false, "operator listing"
	}
	if len(l.Categories) == 0 || !oneOf(l.Categories[0], AllowedTopCategories) {
		return false, "non-food top category"
	}
	if !f.beverageQuery && f.looksLikeBeverage(l) {
		return false, "beverage"
	}
	compact := strings.ToLower(strings.Join(strings.Fields(l.Title), ""))
	for _, tok := range f.queryTokens {
		if !strings.Contains(compact, tok) {
			return false, "missing query token " + tok
		}
	}
	return true, ""
}

func (f *Filter) looksLikeBeverage(l model.Listing) bool {
	hit := containsAny(l.Title, beverageKeywords)
	if !hit {
		for _, c := range l.Categories {
			if containsAny(c, beverageCategories) {
				hit = true
				break
			}
		}
	}
	if !hit {
		return false
	}
	return !containsAny(l.Title, produceTerms)
}

func containsAny(s string, keywords []string) bool {
	return firstContained(s, keywords) != ""
}

func firstContained(s string, keywords []string) string {
	s = strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return kw
		}
	}
	return ""
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
