package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultCategories 是初始安装自带的分类。
var DefaultCategories = []Category{
	{ID: 1, Name: "House"},
	{ID: 2, Name: "Apartment"},
	{ID: 3, Name: "Warehouse"},
	{ID: 4, Name: "Land"},
	{ID: 5, Name: "Cabin"},
}

// DefaultPrices 是初始安装自带的价格区间。
var DefaultPrices = []Price{
	{ID: 1, Name: "0 - $10,000 USD"},
	{ID: 2, Name: "$10,000 - $30,000 USD"},
	{ID: 3, Name: "$30,000 - $50,000 USD"},
	{ID: 4, Name: "$50,000 - $75,000 USD"},
	{ID: 5, Name: "$75,000 - $100,000 USD"},
	{ID: 6, Name: "$100,000 - $150,000 USD"},
	{ID: 7, Name: "$150,000 - $200,000 USD"},
	{ID: 8, Name: "$200,000 - $300,000 USD"},
	{ID: 9, Name: "$300,000 - $500,000 USD"},
	{ID: 10, Name: "+ $500,000 USD"},
}

// SeedReferenceData 写入分类与价格区间，已存在的行会跳过。
func SeedReferenceData(db *gorm.DB) error {
	categories := append([]Category(nil), DefaultCategories...)
	prices := append([]Price(nil), DefaultPrices...)
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&categories).Error; err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&prices).Error; err != nil {
			return fmt.Errorf("seed prices: %w", err)
		}
		return nil
	})
}

// Wipe 删除应用的全部数据表，供 seed 命令的 -e 参数使用。
func Wipe(db *gorm.DB) error {
	if err := db.Migrator().DropTable(&Message{}, &Listing{}, &User{}, &Price{}, &Category{}); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	return nil
}
