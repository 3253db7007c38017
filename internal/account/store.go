// Package account 负责用户记录的持久化，以及一次性令牌流程
//（账号确认与密码重置）。
package account

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"realestate/internal/auth"
	"realestate/internal/database"
	"realestate/internal/validation"
)

var (
	ErrDuplicateEmail = errors.New("email already registered")
	ErrInvalidToken   = errors.New("invalid or used token")
	ErrUserNotFound   = errors.New("user not found")
	ErrNotConfirmed   = errors.New("account not confirmed")
	ErrWrongPassword  = errors.New("wrong password")
)

// RegisterInput 是注册表单。
type RegisterInput struct {
	Name           string `form:"name" json:"name" validate:"required,max=120"`
	Email          string `form:"email" json:"email" validate:"required,email,max=320"`
	Password       string `form:"password" json:"-" validate:"required,min=6,max=72"`
	RepeatPassword string `form:"repeat_password" json:"-" validate:"eqfield=Password"`
}

type resetInput struct {
	Password string `form:"password" validate:"required,min=6,max=72"`
}

// Store 是账号凭据存储。
type Store struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewStore 基于 db 创建 Store。
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, validator: validation.New()}
}

// Register 创建未确认账号，并生成新的确认令牌。
func (s *Store) Register(ctx context.Context, in RegisterInput) (*database.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	var count int64
	// 软删除的账号仍占用邮箱，唯一索引依旧生效。
	if err := s.db.WithContext(ctx).Unscoped().Model(&database.User{}).
		Where("email = ?", in.Email).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateEmail
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	user := database.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hashed,
		TokenPurpose: database.TokenConfirm,
		Token:        &token,
	}
	if err := s.insert(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// insert 覆盖邮箱检查与 INSERT 之间的窗口：
// 并发注册会在唯一索引上失败。
func (s *Store) insert(ctx context.Context, user *database.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// VerifyPassword 将明文密码与用户保存的哈希比对。
func (s *Store) VerifyPassword(user *database.User, raw string) bool {
	return auth.CheckPasswordHash(raw, user.PasswordHash)
}

// Authenticate 依次检查：账号存在、已确认、密码正确。
func (s *Store) Authenticate(ctx context.Context, email, password string) (*database.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.Confirmed {
		return nil, ErrNotConfirmed
	}
	if !s.VerifyPassword(user, password) {
		return nil, ErrWrongPassword
	}
	return user, nil
}

// FindByEmail 按邮箱加载用户。
func (s *Store) FindByEmail(ctx context.Context, email string) (*database.User, error) {
	var user database.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// PublicIdentity 实现 auth.UserLookup，不查询密码哈希。
func (s *Store) PublicIdentity(ctx context.Context, userID uint) (auth.Identity, error) {
	var user database.User
	err := s.db.WithContext(ctx).Select("id", "name").First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return auth.Anonymous, auth.ErrUserNotFound
		}
		return auth.Anonymous, fmt.Errorf("load identity: %w", err)
	}
	return auth.Identity{ID: user.ID, Name: user.Name}, nil
}

// IssueResetToken 用新的重置令牌覆盖用户现有的任何令牌。
func (s *Store) IssueResetToken(ctx context.Context, email string) (*database.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]any{
		"token":         token,
		"token_purpose": database.TokenReset,
	}).Error; err != nil {
		return nil, fmt.Errorf("store reset token: %w", err)
	}
	user.Token = &token
	user.TokenPurpose = database.TokenReset
	return user, nil
}

// CheckToken 查找持有指定用途令牌的用户，不消费令牌。
func (s *Store) CheckToken(ctx context.Context, token string, purpose database.TokenPurpose) (*database.User, error) {
	return findByToken(s.db.WithContext(ctx), token, purpose)
}

func findByToken(db *gorm.DB, token string, purpose database.TokenPurpose) (*database.User, error) {
	if token == "" || purpose == database.TokenNone {
		return nil, ErrInvalidToken
	}
	var user database.User
	err := db.Where("token = ? AND token_purpose = ?", token, purpose).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	return &user, nil
}

// Confirm 消费确认令牌并将账号标记为已确认。
func (s *Store) Confirm(ctx context.Context, token string) (*database.User, error) {
	return s.consumeToken(ctx, token, database.TokenConfirm, map[string]any{"confirmed": true})
}

// ResetPassword 消费重置令牌并保存新的密码哈希。
func (s *Store) ResetPassword(ctx context.Context, token, newPassword string) (*database.User, error) {
	if err := s.validator.Struct(resetInput{Password: newPassword}); err != nil {
		return nil, err
	}
	hashed, err := auth.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	return s.consumeToken(ctx, token, database.TokenReset, map[string]any{"password_hash": hashed})
}

// consumeToken 在一条条件 UPDATE 中写入更新并清空令牌，
// 同一令牌的两次并发使用只有一次能成功。
func (s *Store) consumeToken(ctx context.Context, token string, purpose database.TokenPurpose, updates map[string]any) (*database.User, error) {
	var consumed database.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := findByToken(tx, token, purpose)
		if err != nil {
			return err
		}

		updates["token"] = nil
		updates["token_purpose"] = database.TokenNone
		res := tx.Model(&database.User{}).
			Where("id = ? AND token = ? AND token_purpose = ?", user.ID, token, purpose).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("consume token: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInvalidToken
		}
		return tx.First(&consumed, user.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &consumed, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
