package listing

import (
	"strings"

	"realestate/internal/database"
)

// Filter 用于缩小房源集合，字段为 nil 时不做限制。
type Filter struct {
	CategoryID *uint `form:"category" json:"category,omitempty"`
	PriceID    *uint `form:"price" json:"price,omitempty"`
}

// Predicate 决定房源是否保留在结果中。
type Predicate func(*database.Listing) bool

// ByCategory 匹配指定分类的房源，id 为 nil 时全部匹配。
func ByCategory(id *uint) Predicate {
	return func(l *database.Listing) bool {
		return id == nil || l.CategoryID == *id
	}
}

// ByPrice 匹配指定价格区间的房源，id 为 nil 时全部匹配。
func ByPrice(id *uint) Predicate {
	return func(l *database.Listing) bool {
		return id == nil || l.PriceID == *id
	}
}

// Where 按原顺序保留满足 p 的房源。
func Where(listings []database.Listing, p Predicate) []database.Listing {
	out := make([]database.Listing, 0, len(listings))
	for i := range listings {
		if p(&listings[i]) {
			out = append(out, listings[i])
		}
	}
	return out
}

// Apply 依次应用分类与价格条件。
func Apply(listings []database.Listing, f Filter) []database.Listing {
	return Where(Where(listings, ByCategory(f.CategoryID)), ByPrice(f.PriceID))
}

// MatchesTerm 判断 term 是否出现在标题或描述中，忽略大小写。
// 空关键词不匹配任何房源。
func MatchesTerm(l *database.Listing, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(l.Title), term) ||
		strings.Contains(strings.ToLower(l.Description), term)
}

// SearchIn 保留匹配 term 的房源。
func SearchIn(listings []database.Listing, term string) []database.Listing {
	return Where(listings, func(l *database.Listing) bool { return MatchesTerm(l, term) })
}
