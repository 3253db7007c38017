// Package testutil 提供各包测试共用的数据构造。
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"realestate/internal/database"
)

// NewDB 打开独立的内存 sqlite 数据库，包含完整表结构和基础数据。
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.SeedReferenceData(db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

// CreateUser 插入一个已确认的用户，密码哈希为占位值。
func CreateUser(t *testing.T, db *gorm.DB, name, email string) database.User {
	t.Helper()
	user := database.User{Name: name, Email: email, PasswordHash: "x", Confirmed: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}
