package database

import (
	"gorm.io/gorm"
)

// TokenPurpose 标记待用令牌属于哪个一次性流程。
type TokenPurpose string

const (
	TokenNone    TokenPurpose = ""
	TokenConfirm TokenPurpose = "confirm"
	TokenReset   TokenPurpose = "reset"
)

// User 表示可以发布房源和留言的账号。
type User struct {
	gorm.Model
	Name         string       `gorm:"size:120;not null"`
	Email        string       `gorm:"uniqueIndex;size:320;not null"`
	PasswordHash string       `gorm:"size:255;not null" json:"-"`
	Confirmed    bool         `gorm:"not null;default:false"`
	TokenPurpose TokenPurpose `gorm:"size:16" json:"-"`
	Token        *string      `gorm:"uniqueIndex;size:64" json:"-"`
}

// Category 表示房源分类（独栋、公寓等）。
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:30;not null" json:"name"`
}

// Price 表示房源所属的价格区间。
type Price struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:30;not null" json:"name"`
}

// Listing 表示待售的房产。
// 已发布的房源必有图片（Image 非空）。
type Listing struct {
	gorm.Model
	Title       string    `gorm:"size:100;not null"`
	Description string    `gorm:"type:text;not null"`
	Rooms       int       `gorm:"not null"`
	Parking     int       `gorm:"not null"`
	Bathrooms   int       `gorm:"not null"`
	Street      string    `gorm:"size:60"`
	Lat         string    `gorm:"size:32;not null"`
	Lng         string    `gorm:"size:32;not null"`
	Image       string    `gorm:"size:255;not null;default:''"`
	Published   bool      `gorm:"not null;default:false;index"`
	PriceID     uint      `gorm:"index"`
	Price       Price     `gorm:"constraint:OnDelete:RESTRICT"`
	CategoryID  uint      `gorm:"index"`
	Category    Category  `gorm:"constraint:OnDelete:RESTRICT"`
	OwnerID     uint      `gorm:"index"`
	Owner       User      `gorm:"constraint:OnDelete:CASCADE"`
	Messages    []Message `gorm:"constraint:OnDelete:CASCADE"`
}

// IsOwnedBy 判断 userID 是否为房主。
func (l *Listing) IsOwnedBy(userID uint) bool {
	return userID != 0 && l.OwnerID == userID
}

// Message 表示用户对房源的留言，写入后不再修改。
type Message struct {
	gorm.Model
	Body      string `gorm:"size:250;not null"`
	ListingID uint   `gorm:"index"`
	AuthorID  uint   `gorm:"index"`
	Author    User   `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}
