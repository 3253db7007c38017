package listing

import (
	"context"
	"fmt"
	"strings"

	"realestate/internal/database"
	"realestate/internal/validation"
)

// Fields 是房源中可编辑的部分，创建与编辑共用。
type Fields struct {
	Title       string `form:"title" json:"title" validate:"required,max=100"`
	Description string `form:"description" json:"description" validate:"required,max=250"`
	CategoryID  uint   `form:"category" json:"category" validate:"required"`
	PriceID     uint   `form:"price" json:"price" validate:"required"`
	Rooms       int    `form:"rooms" json:"rooms" validate:"gte=1,lte=10"`
	Parking     int    `form:"parking" json:"parking" validate:"gte=0,lte=10"`
	Bathrooms   int    `form:"bathrooms" json:"bathrooms" validate:"gte=1,lte=10"`
	Street      string `form:"street" json:"street" validate:"required,max=60"`
	Lat         string `form:"lat" json:"lat" validate:"required,latitude"`
	Lng         string `form:"lng" json:"lng" validate:"required,longitude"`
}

// FieldsOf 返回 l 的可编辑字段，用于预填编辑表单。
func FieldsOf(l *database.Listing) Fields {
	return Fields{
		Title:       l.Title,
		Description: l.Description,
		CategoryID:  l.CategoryID,
		PriceID:     l.PriceID,
		Rooms:       l.Rooms,
		Parking:     l.Parking,
		Bathrooms:   l.Bathrooms,
		Street:      l.Street,
		Lat:         l.Lat,
		Lng:         l.Lng,
	}
}

func (f *Fields) normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Street = strings.TrimSpace(f.Street)
	f.Lat = strings.TrimSpace(f.Lat)
	f.Lng = strings.TrimSpace(f.Lng)
}

func (f Fields) columns() map[string]any {
	return map[string]any{
		"title":       f.Title,
		"description": f.Description,
		"category_id": f.CategoryID,
		"price_id":    f.PriceID,
		"rooms":       f.Rooms,
		"parking":     f.Parking,
		"bathrooms":   f.Bathrooms,
		"street":      f.Street,
		"lat":         f.Lat,
		"lng":         f.Lng,
	}
}

// validate 收集全部字段错误，包括不存在的分类和价格 id。
func (s *Service) validate(ctx context.Context, f *Fields) error {
	f.normalize()

	errs := &validation.Errors{}
	if err := s.validator.Struct(*f); err != nil {
		verrs, ok := validation.As(err)
		if !ok {
			return err
		}
		errs = verrs
	}

	if f.CategoryID != 0 && !errs.Has("category") {
		ok, err := s.exists(ctx, &database.Category{}, f.CategoryID)
		if err != nil {
			return err
		}
		if !ok {
			errs.Add("category", "is invalid")
		}
	}
	if f.PriceID != 0 && !errs.Has("price") {
		ok, err := s.exists(ctx, &database.Price{}, f.PriceID)
		if err != nil {
			return err
		}
		if !ok {
			errs.Add("price", "is invalid")
		}
	}
	return errs.OrNil()
}

func (s *Service) exists(ctx context.Context, model any, id uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("lookup reference: %w", err)
	}
	return count > 0, nil
}
