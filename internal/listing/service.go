// Package listing 实现房源生命周期：创建、上传图片并发布、编辑、切换发布状态、删除，
// 以及公开查询与内存筛选。
package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gorm.io/gorm"

	"realestate/internal/auth"
	"realestate/internal/database"
	"realestate/internal/storage"
	"realestate/internal/validation"
)

// Service 负责房源状态流转，所有修改操作仅限房主。
type Service struct {
	db            *gorm.DB
	images        storage.ImageStore
	scanner       storage.Scanner
	validator     *validation.Validator
	maxImageBytes int64
	logger        *slog.Logger
}

// NewService 组装 Service，scanner 可为 nil。
func NewService(db *gorm.DB, images storage.ImageStore, scanner storage.Scanner, maxImageBytes int64, logger *slog.Logger) *Service {
	if scanner == nil {
		scanner = storage.NopScanner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:            db,
		images:        images,
		scanner:       scanner,
		validator:     validation.New(),
		maxImageBytes: maxImageBytes,
		logger:        logger,
	}
}

// Create 保存一个未发布、无图片的新房源。
func (s *Service) Create(ctx context.Context, ownerID uint, f Fields) (*database.Listing, error) {
	if err := s.validate(ctx, &f); err != nil {
		return nil, err
	}
	l := database.Listing{
		Title:       f.Title,
		Description: f.Description,
		CategoryID:  f.CategoryID,
		PriceID:     f.PriceID,
		Rooms:       f.Rooms,
		Parking:     f.Parking,
		Bathrooms:   f.Bathrooms,
		Street:      f.Street,
		Lat:         f.Lat,
		Lng:         f.Lng,
		OwnerID:     ownerID,
	}
	if err := s.db.WithContext(ctx).Omit("Price", "Category", "Owner", "Messages").Create(&l).Error; err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}
	return &l, nil
}

// ForOwnerEdit 为房主的表单加载房源。
func (s *Service) ForOwnerEdit(ctx context.Context, id, requesterID uint) (*database.Listing, error) {
	return s.owned(ctx, s.db.WithContext(ctx), id, requesterID)
}

// AttachImageAndPublish 清洗上传的图片，保存后发布房源。
// 已发布的房源保留原有图片。
func (s *Service) AttachImageAndPublish(ctx context.Context, id, requesterID uint, upload io.Reader) (*database.Listing, error) {
	l, err := s.owned(ctx, s.db.WithContext(ctx), id, requesterID)
	if err != nil {
		return nil, err
	}
	if l.Published {
		return nil, ErrAlreadyPublished
	}

	img, err := storage.SanitizeImage(upload, s.maxImageBytes)
	if err != nil {
		return nil, imageError(err)
	}
	if err := s.scanner.Scan(ctx, img.Reader()); err != nil {
		if errors.Is(err, storage.ErrInfected) {
			return nil, imageError(err)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := s.images.Store(ctx, img.Name, img.Reader(), img.Size(), img.ContentType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	res := s.db.WithContext(ctx).Model(&database.Listing{}).
		Where("id = ? AND owner_id = ? AND published = ?", id, requesterID, false).
		Updates(map[string]any{"image": img.Name, "published": true})
	if res.Error != nil || res.RowsAffected == 0 {
		if rmErr := s.images.Remove(ctx, img.Name); rmErr != nil {
			s.logger.Error("remove unused image", slog.String("image", img.Name), slog.String("error", rmErr.Error()))
		}
		if res.Error != nil {
			return nil, fmt.Errorf("publish listing: %w", res.Error)
		}
		return nil, ErrAlreadyPublished
	}

	if l.Image != "" && l.Image != img.Name {
		if err := s.images.Remove(ctx, l.Image); err != nil {
			s.logger.Warn("remove replaced image", slog.String("image", l.Image), slog.String("error", err.Error()))
		}
	}

	l.Image = img.Name
	l.Published = true
	return l, nil
}

// Edit 更新房源字段，不改变发布状态。
func (s *Service) Edit(ctx context.Context, id, requesterID uint, f Fields) (*database.Listing, error) {
	l, err := s.owned(ctx, s.db.WithContext(ctx), id, requesterID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, &f); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(l).Updates(f.columns()).Error; err != nil {
		return nil, fmt.Errorf("update listing: %w", err)
	}
	return s.owned(ctx, s.db.WithContext(ctx), id, requesterID)
}

// Toggle 切换发布状态并返回新值。
// 没有图片的房源不能切换为已发布。
func (s *Service) Toggle(ctx context.Context, id, requesterID uint) (bool, error) {
	var published bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := s.owned(ctx, tx, id, requesterID)
		if err != nil {
			return err
		}
		res := tx.Model(&database.Listing{}).
			Where("id = ? AND owner_id = ?", id, requesterID).
			Where("(published = ? OR image <> ?)", true, "").
			Update("published", gorm.Expr("NOT published"))
		if res.Error != nil {
			return fmt.Errorf("toggle listing: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			if l.Image == "" {
				return ErrImageRequired
			}
			return ErrNotFound
		}
		return tx.Model(&database.Listing{}).Select("published").Where("id = ?", id).Scan(&published).Error
	})
	if err != nil {
		return false, err
	}
	return published, nil
}

// Delete 先删除图片，再删除房源及其留言。
// 图片删除失败时保留记录并返回 ErrStorage。
func (s *Service) Delete(ctx context.Context, id, requesterID uint) error {
	l, err := s.owned(ctx, s.db.WithContext(ctx), id, requesterID)
	if err != nil {
		return err
	}
	if l.Image != "" {
		if err := s.images.Remove(ctx, l.Image); err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("listing_id = ?", id).Delete(&database.Message{}).Error; err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		res := tx.Unscoped().Where("owner_id = ?", requesterID).Delete(&database.Listing{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete listing: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Get 返回用于公开展示的房源。未发布的房源仅房主可见，
// 其他人得到 ErrNotFound。
func (s *Service) Get(ctx context.Context, id uint, viewer auth.Identity, includeRelations bool) (*database.Listing, error) {
	q := s.db.WithContext(ctx)
	if includeRelations {
		q = withRelations(q)
	}
	l, err := find(q, id)
	if err != nil {
		return nil, err
	}
	if !l.Published && !viewer.Is(l.OwnerID) {
		return nil, ErrNotFound
	}
	return l, nil
}

func (s *Service) owned(ctx context.Context, db *gorm.DB, id, requesterID uint) (*database.Listing, error) {
	l, err := find(db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if !l.IsOwnedBy(requesterID) {
		return nil, ErrForbidden
	}
	return l, nil
}

func find(db *gorm.DB, id uint) (*database.Listing, error) {
	if id == 0 {
		return nil, ErrNotFound
	}
	var l database.Listing
	if err := db.First(&l, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load listing: %w", err)
	}
	return &l, nil
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Category").Preload("Price").
		Preload("Owner", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name") })
}

func imageError(err error) error {
	errs := &validation.Errors{}
	switch {
	case errors.Is(err, storage.ErrImageTooLarge):
		errs.Add("image", "is too large")
	case errors.Is(err, storage.ErrInfected):
		errs.Add("image", "was rejected by the virus scanner")
	default:
		errs.Add("image", "must be a JPEG, PNG or GIF image")
	}
	return errs
}
