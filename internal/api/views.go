package api

import (
	"context"
	"log/slog"
	"time"

	"realestate/internal/database"
	"realestate/internal/listing"
	"realestate/internal/storage"
)

type listingView struct {
	ID          uint               `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Rooms       int                `json:"rooms"`
	Parking     int                `json:"parking"`
	Bathrooms   int                `json:"bathrooms"`
	Street      string             `json:"street"`
	Lat         string             `json:"lat"`
	Lng         string             `json:"lng"`
	Image       string             `json:"image"`
	ImageURL    string             `json:"image_url,omitempty"`
	Published   bool               `json:"published"`
	CategoryID  uint               `json:"category_id"`
	PriceID     uint               `json:"price_id"`
	OwnerID     uint               `json:"owner_id"`
	Category    *database.Category `json:"category,omitempty"`
	Price       *database.Price    `json:"price,omitempty"`
	Owner       *ownerView         `json:"owner,omitempty"`
	Messages    *int64             `json:"message_count,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type ownerView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type viewBuilder struct {
	images storage.ImageStore
	logger *slog.Logger
}

func (b viewBuilder) listing(ctx context.Context, l *database.Listing) listingView {
	v := listingView{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		Rooms:       l.Rooms,
		Parking:     l.Parking,
		Bathrooms:   l.Bathrooms,
		Street:      l.Street,
		Lat:         l.Lat,
		Lng:         l.Lng,
		Image:       l.Image,
		Published:   l.Published,
		CategoryID:  l.CategoryID,
		PriceID:     l.PriceID,
		OwnerID:     l.OwnerID,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if l.Category.ID != 0 {
		cat := l.Category
		v.Category = &cat
	}
	if l.Price.ID != 0 {
		price := l.Price
		v.Price = &price
	}
	if l.Owner.ID != 0 {
		v.Owner = &ownerView{ID: l.Owner.ID, Name: l.Owner.Name}
	}
	if l.Image != "" && b.images != nil {
		url, err := b.images.URL(ctx, l.Image)
		if err != nil {
			b.logger.Warn("build image url failed", slog.String("image", l.Image), slog.Any("error", err))
		} else {
			v.ImageURL = url
		}
	}
	return v
}

func (b viewBuilder) listings(ctx context.Context, ls []database.Listing) []listingView {
	out := make([]listingView, 0, len(ls))
	for i := range ls {
		out = append(out, b.listing(ctx, &ls[i]))
	}
	return out
}

func (b viewBuilder) owned(ctx context.Context, items []listing.OwnedListing) []listingView {
	out := make([]listingView, 0, len(items))
	for i := range items {
		v := b.listing(ctx, &items[i].Listing)
		count := items[i].MessageCount
		v.Messages = &count
		out = append(out, v)
	}
	return out
}
