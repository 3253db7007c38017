package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"realestate/internal/api/middleware"
	"realestate/internal/database"
	"realestate/internal/errcode"
	"realestate/internal/listing"
	"realestate/internal/messaging"
	"realestate/internal/metrics"
	"realestate/internal/validation"
)

// ListingHandler 处理房源生命周期中房主一侧的操作。
type ListingHandler struct {
	listings *listing.Service
	messages *messaging.Service
	views    viewBuilder
	pageSize int
	logger   *slog.Logger
}

// NewListingHandler 创建处理器。
func NewListingHandler(listings *listing.Service, messages *messaging.Service, views viewBuilder, pageSize int, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{listings: listings, messages: messages, views: views, pageSize: pageSize, logger: logger}
}

// Dashboard 按 ?page=N 分页列出房主的房源。
func (h *ListingHandler) Dashboard(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		Redirect(c, dashboardPath+"?page=1")
		return
	}

	paged, err := h.listings.ListOwned(c.Request.Context(), userID, listing.Page{Number: page, Size: h.pageSize})
	if err != nil {
		if errors.Is(err, listing.ErrPageOutOfRange) {
			Redirect(c, dashboardPath+"?page=1")
			return
		}
		internalError(c, "list owned listings", err)
		return
	}

	Page(c, http.StatusOK, "My listings", gin.H{
		"listings": h.views.owned(c.Request.Context(), paged.Items),
		"total":    paged.Total,
		"pages":    paged.Pages,
		"current":  paged.Page,
		"per_page": paged.PerPage,
	})
}

// CreateForm 渲染空白房源表单。
func (h *ListingHandler) CreateForm(c *gin.Context) {
	h.renderForm(c, http.StatusOK, "Create listing", listing.Fields{}, nil)
}

// Create 保存草稿并跳转到上传图片步骤。
func (h *ListingHandler) Create(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	fields, err := bindListingFields(c)
	if err != nil {
		BadRequest(c, "invalid listing form")
		return
	}

	l, err := h.listings.Create(c.Request.Context(), userID, fields)
	if err != nil {
		if verrs, ok := validation.As(err); ok {
			h.renderForm(c, http.StatusUnprocessableEntity, "Create listing", fields, verrs)
			return
		}
		internalError(c, "create listing", err)
		return
	}

	metrics.ListingTransition("created")
	Redirect(c, fmt.Sprintf("/listings/%d/image", l.ID))
}

// ImageForm 为未发布房源渲染上传图片步骤。
func (h *ListingHandler) ImageForm(c *gin.Context) {
	l, ok := h.ownedForForm(c)
	if !ok {
		return
	}
	if l.Published {
		Redirect(c, dashboardPath)
		return
	}
	Page(c, http.StatusOK, "Add image: "+l.Title, gin.H{"listing": h.views.listing(c.Request.Context(), l)})
}

// AttachImage 保存上传的图片并发布房源。
func (h *ListingHandler) AttachImage(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	id, ok := paramID(c)
	if !ok {
		Redirect(c, dashboardPath)
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		errs := &validation.Errors{}
		errs.Add("image", "is required")
		ValidationFailed(c, "Add image", errs, nil, nil)
		return
	}
	f, err := file.Open()
	if err != nil {
		internalError(c, "open upload", err)
		return
	}
	defer f.Close()

	l, err := h.listings.AttachImageAndPublish(c.Request.Context(), id, userID, f)
	if err != nil {
		if verrs, ok := validation.As(err); ok {
			ValidationFailed(c, "Add image", verrs, nil, nil)
			return
		}
		h.lifecycleFailed(c, "attach image", err)
		return
	}

	metrics.ListingTransition("published")
	middleware.LoggerFromContext(c).Info("listing published",
		slog.Uint64("listing_id", uint64(l.ID)),
		slog.String("image", l.Image),
	)
	Redirect(c, dashboardPath)
}

// EditForm 渲染预填房源字段的表单。
func (h *ListingHandler) EditForm(c *gin.Context) {
	l, ok := h.ownedForForm(c)
	if !ok {
		return
	}
	h.renderForm(c, http.StatusOK, "Edit listing: "+l.Title, listing.FieldsOf(l), nil)
}

// Edit 保存房源字段。
func (h *ListingHandler) Edit(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	id, ok := paramID(c)
	if !ok {
		Redirect(c, dashboardPath)
		return
	}
	fields, err := bindListingFields(c)
	if err != nil {
		BadRequest(c, "invalid listing form")
		return
	}

	if _, err := h.listings.Edit(c.Request.Context(), id, userID, fields); err != nil {
		if verrs, ok := validation.As(err); ok {
			h.renderForm(c, http.StatusUnprocessableEntity, "Edit listing", fields, verrs)
			return
		}
		h.lifecycleFailed(c, "edit listing", err)
		return
	}

	metrics.ListingTransition("edited")
	Redirect(c, dashboardPath)
}

// Delete 删除房源及其图片和留言。
func (h *ListingHandler) Delete(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	id, ok := paramID(c)
	if !ok {
		Redirect(c, dashboardPath)
		return
	}

	if err := h.listings.Delete(c.Request.Context(), id, userID); err != nil {
		h.lifecycleFailed(c, "delete listing", err)
		return
	}

	metrics.ListingTransition("deleted")
	middleware.LoggerFromContext(c).Info("listing deleted", slog.Uint64("listing_id", uint64(id)))
	Redirect(c, dashboardPath)
}

// Toggle 切换发布状态，为控制台的开关返回 JSON。
func (h *ListingHandler) Toggle(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	id, ok := paramID(c)
	if !ok {
		NotFound(c, "listing not found")
		return
	}

	published, err := h.listings.Toggle(c.Request.Context(), id, userID)
	if err != nil {
		switch {
		case errors.Is(err, listing.ErrNotFound), errors.Is(err, listing.ErrForbidden):
			NotFound(c, "listing not found")
		case errors.Is(err, listing.ErrImageRequired):
			Conflict(c, errcode.ImageRequired, "add an image before publishing")
		default:
			h.logger.Error("toggle listing failed", slog.Any("error", err))
			Internal(c, "internal error")
		}
		return
	}

	metrics.ListingTransition("toggled")
	c.JSON(http.StatusOK, gin.H{"result": true, "published": published})
}

// Messages 展示房主某个房源下的留言。
func (h *ListingHandler) Messages(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	id, ok := paramID(c)
	if !ok {
		Redirect(c, dashboardPath)
		return
	}

	views, err := h.messages.ListFor(c.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, messaging.ErrNotFound) || errors.Is(err, messaging.ErrForbidden) {
			Redirect(c, dashboardPath)
			return
		}
		internalError(c, "list messages", err)
		return
	}
	Page(c, http.StatusOK, "Messages", gin.H{"listing_id": id, "messages": views})
}

func (h *ListingHandler) ownedForForm(c *gin.Context) (*database.Listing, bool) {
	userID, _ := middleware.UserIDFromContext(c)
	id, ok := paramID(c)
	if !ok {
		Redirect(c, dashboardPath)
		return nil, false
	}
	l, err := h.listings.ForOwnerEdit(c.Request.Context(), id, userID)
	if err != nil {
		h.lifecycleFailed(c, "load listing", err)
		return nil, false
	}
	return l, true
}

func (h *ListingHandler) renderForm(c *gin.Context, status int, title string, fields listing.Fields, errs *validation.Errors) {
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
	extra := gin.H{"categories": categories, "prices": prices}
	if errs != nil {
		ValidationFailed(c, title, errs, fields, extra)
		return
	}
	extra["data"] = fields
	Page(c, status, title, extra)
}

// lifecycleFailed 映射房源错误：不存在、非本人、已发布的房源
// 一律跳回控制台，不加区分。
func (h *ListingHandler) lifecycleFailed(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, listing.ErrNotFound),
		errors.Is(err, listing.ErrForbidden),
		errors.Is(err, listing.ErrAlreadyPublished):
		Redirect(c, dashboardPath)
	case errors.Is(err, listing.ErrStorage):
		middleware.LoggerFromContext(c).Error(op+" failed: storage", slog.Any("error", err))
		Error(c, http.StatusInternalServerError, errcode.StorageError, "image storage unavailable, try again later")
	default:
		internalError(c, op, err)
	}
}
