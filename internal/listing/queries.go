package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"realestate/internal/database"
)

// ErrPageOutOfRange 由 ListOwned 在页码超出范围时返回。
var ErrPageOutOfRange = errors.New("page out of range")

// Page 选取有序结果中的一段，Number 从 1 开始。
type Page struct {
	Number int
	Size   int
}

func (p Page) offset() int { return (p.Number - 1) * p.Size }

// OwnedListing 是控制台中的一行。
type OwnedListing struct {
	database.Listing
	MessageCount int64 `json:"message_count"`
}

// Paged 是房主控制台的一页。
type Paged struct {
	Items   []OwnedListing `json:"items"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	Pages   int            `json:"pages"`
	PerPage int            `json:"per_page"`
}

// ListOwned 按时间倒序返回房主的房源及留言数。
func (s *Service) ListOwned(ctx context.Context, ownerID uint, page Page) (*Paged, error) {
	if page.Number < 1 || page.Size < 1 {
		return nil, ErrPageOutOfRange
	}
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&database.Listing{}).Where("owner_id = ?", ownerID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count listings: %w", err)
	}
	pages := int((total + int64(page.Size) - 1) / int64(page.Size))
	if page.Number > max(pages, 1) {
		return nil, ErrPageOutOfRange
	}

	var rows []database.Listing
	if err := db.Preload("Category").Preload("Price").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").Order("id DESC").
		Limit(page.Size).Offset(page.offset()).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list owned listings: %w", err)
	}

	counts, err := s.messageCounts(ctx, rows)
	if err != nil {
		return nil, err
	}
	items := make([]OwnedListing, 0, len(rows))
	for _, l := range rows {
		items = append(items, OwnedListing{Listing: l, MessageCount: counts[l.ID]})
	}

	return &Paged{Items: items, Total: total, Page: page.Number, Pages: pages, PerPage: page.Size}, nil
}

func (s *Service) messageCounts(ctx context.Context, rows []database.Listing) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(rows))
	if len(rows) == 0 {
		return counts, nil
	}
	ids := make([]uint, 0, len(rows))
	for _, l := range rows {
		ids = append(ids, l.ID)
	}
	var grouped []struct {
		ListingID uint
		Count     int64
	}
	if err := s.db.WithContext(ctx).Model(&database.Message{}).
		Select("listing_id, COUNT(*) AS count").
		Where("listing_id IN ?", ids).
		Group("listing_id").
		Scan(&grouped).Error; err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	for _, g := range grouped {
		counts[g.ListingID] = g.Count
	}
	return counts, nil
}

// LatestByCategory 返回某分类最新发布的至多 limit 个房源。
func (s *Service) LatestByCategory(ctx context.Context, categoryID uint, limit int) ([]database.Listing, error) {
	var out []database.Listing
	err := s.published(ctx).
		Where("category_id = ?", categoryID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("latest listings: %w", err)
	}
	return out, nil
}

// ByCategory 返回某分类下全部已发布房源。
func (s *Service) ByCategory(ctx context.Context, categoryID uint) ([]database.Listing, error) {
	var out []database.Listing
	if err := s.published(ctx).Where("category_id = ?", categoryID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listings by category: %w", err)
	}
	return out, nil
}

// PublishedAll 返回全部已发布房源及其分类和价格，供地图使用。
func (s *Service) PublishedAll(ctx context.Context) ([]database.Listing, error) {
	var out []database.Listing
	if err := s.published(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("published listings: %w", err)
	}
	return out, nil
}

// Search 返回标题或描述包含 term 的已发布房源，忽略大小写。
// 空关键词不匹配任何房源。
func (s *Service) Search(ctx context.Context, term string) ([]database.Listing, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	var out []database.Listing
	err := s.published(ctx).
		Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}
	return out, nil
}

// Categories 返回分类表。
func (s *Service) Categories(ctx context.Context) ([]database.Category, error) {
	var out []database.Category
	if err := s.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// Prices 返回价格区间表。
func (s *Service) Prices(ctx context.Context) ([]database.Price, error) {
	var out []database.Price
	if err := s.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	return out, nil
}

// Category 加载单个分类。
func (s *Service) Category(ctx context.Context, id uint) (*database.Category, error) {
	var c database.Category
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load category: %w", err)
	}
	return &c, nil
}

// ImageNames 返回所有被房源引用的图片名。
func (s *Service) ImageNames(ctx context.Context) (map[string]struct{}, error) {
	var names []string
	if err := s.db.WithContext(ctx).Unscoped().Model(&database.Listing{}).
		Where("image <> ?", "").
		Pluck("image", &names).Error; err != nil {
		return nil, fmt.Errorf("list image names: %w", err)
	}
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out, nil
}

func (s *Service) published(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Category").Preload("Price").Where("published = ?", true)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
