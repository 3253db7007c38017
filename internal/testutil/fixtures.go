package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"gorm.io/gorm"

	"realestate/internal/database"
)

// PNG 返回一张合法的小 PNG 图片。
func PNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(2, 2, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// CreateListing 在分类 1、价格 1 下插入指定状态的房源。
func CreateListing(t *testing.T, db *gorm.DB, ownerID uint, title string, published bool, image string) database.Listing {
	t.Helper()
	l := database.Listing{
		Title:       title,
		Description: "A quiet place near the park",
		Rooms:       2,
		Parking:     1,
		Bathrooms:   1,
		Street:      "Main St 1",
		Lat:         "19.4326",
		Lng:         "-99.1332",
		Image:       image,
		Published:   published,
		CategoryID:  1,
		PriceID:     1,
		OwnerID:     ownerID,
	}
	if err := db.Omit("Price", "Category", "Owner", "Messages").Create(&l).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return l
}
