// Package messaging 让用户对房源留言，
// 并让房主查看这些留言。
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"realestate/internal/database"
	"realestate/internal/validation"
)

const (
	MinBodyLength = 10
	MaxBodyLength = 250
)

var (
	ErrNotFound  = errors.New("listing not found")
	ErrForbidden = errors.New("only the owner may read messages")
)

// Author 是留言附带的公开资料。
type Author struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// MessageView 是展示给房主的留言。
type MessageView struct {
	ID        uint      `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Author    Author    `json:"author"`
}

// Event 在收到新留言时发布到房主的频道。
type Event struct {
	ListingID uint        `json:"listing_id"`
	Title     string      `json:"title"`
	Message   MessageView `json:"message"`
}

// Service 保存留言并通知房主。
type Service struct {
	db     *gorm.DB
	rdb    redis.UniversalClient
	logger *slog.Logger
}

// NewService 组装 Service。rdb 可为 nil，此时不发布实时事件。
func NewService(db *gorm.DB, rdb redis.UniversalClient, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, rdb: rdb, logger: logger}
}

// OwnerChannel 返回 ownerID 的实时事件所在的 Redis 频道。
func OwnerChannel(ownerID uint) string {
	return fmt.Sprintf("listing:owner:%d", ownerID)
}

// ValidateBody 去除首尾空白并按字符数检查长度。
func ValidateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	n := utf8.RuneCountInString(body)
	errs := &validation.Errors{}
	switch {
	case n == 0:
		errs.Add("message", "is required")
	case n < MinBodyLength || n > MaxBodyLength:
		errs.Add("message", fmt.Sprintf("must be between %d and %d characters", MinBodyLength, MaxBodyLength))
	}
	return body, errs.OrNil()
}

// Post 保存 authorID 对已发布房源的留言。
func (s *Service) Post(ctx context.Context, listingID, authorID uint, body string) (*database.Message, error) {
	l, err := s.listing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !l.Published && l.OwnerID != authorID {
		return nil, ErrNotFound
	}
	body, err = ValidateBody(body)
	if err != nil {
		return nil, err
	}

	msg := database.Message{Body: body, ListingID: l.ID, AuthorID: authorID}
	if err := s.db.WithContext(ctx).Omit("Author").Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	s.publish(ctx, l, &msg)
	return &msg, nil
}

// ListFor 按时间正序返回房源的留言，仅房主可查看。
func (s *Service) ListFor(ctx context.Context, listingID, requesterID uint) ([]MessageView, error) {
	l, err := s.listing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !l.IsOwnedBy(requesterID) {
		return nil, ErrForbidden
	}

	var rows []database.Message
	err = s.db.WithContext(ctx).
		Preload("Author", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name") }).
		Where("listing_id = ?", l.ID).
		Order("created_at").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]MessageView, 0, len(rows))
	for _, m := range rows {
		out = append(out, view(&m))
	}
	return out, nil
}

func (s *Service) listing(ctx context.Context, id uint) (*database.Listing, error) {
	var l database.Listing
	if err := s.db.WithContext(ctx).Select("id", "title", "owner_id", "published").First(&l, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load listing: %w", err)
	}
	return &l, nil
}

// publish 尽力而为：留言此时已经保存。
func (s *Service) publish(ctx context.Context, l *database.Listing, msg *database.Message) {
	if s.rdb == nil || l.OwnerID == msg.AuthorID {
		return
	}
	var author database.User
	if err := s.db.WithContext(ctx).Select("id", "name").First(&author, msg.AuthorID).Error; err == nil {
		msg.Author = author
	}
	payload, err := json.Marshal(Event{ListingID: l.ID, Title: l.Title, Message: view(msg)})
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, OwnerChannel(l.OwnerID), payload).Err(); err != nil {
		s.logger.Warn("publish message event",
			slog.Uint64("listing_id", uint64(l.ID)),
			slog.String("error", err.Error()),
		)
	}
}

func view(m *database.Message) MessageView {
	return MessageView{
		ID:        m.ID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
		Author:    Author{ID: m.Author.ID, Name: m.Author.Name},
	}
}
