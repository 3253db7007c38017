package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realestate/internal/api/middleware"
	"realestate/internal/database"
	"realestate/internal/listing"
	"realestate/internal/messaging"
	"realestate/internal/validation"
)

const latestPerCategory = 3

// PublicHandler 处理公开页面与留言提交。
type PublicHandler struct {
	listings *listing.Service
	messages *messaging.Service
	views    viewBuilder
}

// NewPublicHandler 创建处理器。
func NewPublicHandler(listings *listing.Service, messages *messaging.Service, views viewBuilder) *PublicHandler {
	return &PublicHandler{listings: listings, messages: messages, views: views}
}

// Home 展示各分类最新发布的房源。
func (h *PublicHandler) Home(c *gin.Context) {
	ctx := c.Request.Context()
	categories, err := h.listings.Categories(ctx)
	if err != nil {
		internalError(c, "load categories", err)
		return
	}
	prices, err := h.listings.Prices(ctx)
	if err != nil {
		internalError(c, "load prices", err)
		return
	}

	sections := make([]gin.H, 0, len(categories))
	for _, cat := range categories {
		latest, err := h.listings.LatestByCategory(ctx, cat.ID, latestPerCategory)
		if err != nil {
			internalError(c, "load latest listings", err)
			return
		}
		sections = append(sections, gin.H{"category": cat, "listings": h.views.listings(ctx, latest)})
	}

	Page(c, http.StatusOK, "Home", gin.H{
		"categories": categories,
		"prices":     prices,
		"sections":   sections,
	})
}

// Category 列出某一分类下已发布的房源。
func (h *PublicHandler) Category(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := paramID(c)
	if !ok {
		Redirect(c, notFoundPath)
		return
	}
	cat, err := h.listings.Category(ctx, id)
	if err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			Redirect(c, notFoundPath)
			return
		}
		internalError(c, "load category", err)
		return
	}
	ls, err := h.listings.ByCategory(ctx, cat.ID)
	if err != nil {
		internalError(c, "load category listings", err)
		return
	}
	Page(c, http.StatusOK, "Category: "+cat.Name, gin.H{"category": cat, "listings": h.views.listings(ctx, ls)})
}

// Search 在标题或描述中匹配关键词，关键词为空时回到首页。
func (h *PublicHandler) Search(c *gin.Context) {
	term := strings.TrimSpace(c.PostForm("term"))
	if term == "" {
		Redirect(c, homePath)
		return
	}
	ls, err := h.listings.Search(c.Request.Context(), term)
	if err != nil {
		internalError(c, "search listings", err)
		return
	}
	Page(c, http.StatusOK, "Search results", gin.H{"term": term, "listings": h.views.listings(c.Request.Context(), ls)})
}

// Listing 展示单个房源，草稿仅对房主可见。
func (h *PublicHandler) Listing(c *gin.Context) {
	l, ok := h.visible(c)
	if !ok {
		return
	}
	Page(c, http.StatusOK, l.Title, h.listingPayload(c, l, nil))
}

// PostMessage 保存已登录访客对房源的留言。
func (h *PublicHandler) PostMessage(c *gin.Context) {
	l, ok := h.visible(c)
	if !ok {
		return
	}
	viewer := middleware.IdentityFromContext(c)
	body := c.PostForm("message")

	if _, err := h.messages.Post(c.Request.Context(), l.ID, viewer.ID, body); err != nil {
		switch {
		case errors.Is(err, messaging.ErrNotFound):
			Redirect(c, notFoundPath)
		default:
			if verrs, ok := validation.As(err); ok {
				ValidationFailed(c, l.Title, verrs, gin.H{"message": body}, h.listingPayload(c, l, nil))
				return
			}
			internalError(c, "post message", err)
		}
		return
	}

	middleware.LoggerFromContext(c).Info("message sent", slog.Uint64("listing_id", uint64(l.ID)))
	Page(c, http.StatusCreated, l.Title, h.listingPayload(c, l, gin.H{"sent": true}))
}

// NotFoundPage 是公开资源不存在时的落地页。
func (h *PublicHandler) NotFoundPage(c *gin.Context) {
	Page(c, http.StatusNotFound, "Not found", nil)
}

// PublishedListings 返回所有已发布房源及其分类和价格。
// 地图在客户端筛选；?category= 与 ?price= 可在服务端缩小结果集。
func (h *PublicHandler) PublishedListings(c *gin.Context) {
	var filter listing.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		BadRequest(c, "category and price must be numeric ids")
		return
	}
	ls, err := h.listings.PublishedAll(c.Request.Context())
	if err != nil {
		internalError(c, "load published listings", err)
		return
	}
	c.JSON(http.StatusOK, h.views.listings(c.Request.Context(), listing.Apply(ls, filter)))
}

func (h *PublicHandler) visible(c *gin.Context) (*database.Listing, bool) {
	id, ok := paramID(c)
	if !ok {
		Redirect(c, notFoundPath)
		return nil, false
	}
	l, err := h.listings.Get(c.Request.Context(), id, middleware.IdentityFromContext(c), true)
	if err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			Redirect(c, notFoundPath)
			return nil, false
		}
		internalError(c, "load listing", err)
		return nil, false
	}
	return l, true
}

func (h *PublicHandler) listingPayload(c *gin.Context, l *database.Listing, extra gin.H) gin.H {
	viewer := middleware.IdentityFromContext(c)
	data := gin.H{
		"listing":       h.views.listing(c.Request.Context(), l),
		"authenticated": !viewer.IsAnonymous(),
		"seller":        l.IsOwnedBy(viewer.ID),
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

func internalError(c *gin.Context, op string, err error) {
	middleware.LoggerFromContext(c).Error(op+" failed", slog.Any("error", err))
	Internal(c, "internal error")
}
