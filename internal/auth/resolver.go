package auth

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidSession 表示请求携带了不可信的会话令牌：
// 签名错误、已过期、已吊销，或对应的用户已不存在。
var ErrInvalidSession = errors.New("invalid session")

// ErrUserNotFound 由 UserLookup 在 id 不存在时返回。
var ErrUserNotFound = errors.New("user not found")

// UserLookup 加载用户的公开信息。
type UserLookup interface {
	PublicIdentity(ctx context.Context, userID uint) (Identity, error)
}

// RevocationChecker 判断令牌 id 是否已被吊销（退出登录）。
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Resolver 将原始会话令牌解析为 Identity。
type Resolver struct {
	tokens  *AuthService
	users   UserLookup
	revoked RevocationChecker
}

// NewResolver 创建 Resolver，revoked 可为 nil。
func NewResolver(tokens *AuthService, users UserLookup, revoked RevocationChecker) *Resolver {
	return &Resolver{tokens: tokens, users: users, revoked: revoked}
}

// Resolve 对空令牌返回 Anonymous，对校验失败的令牌返回 ErrInvalidSession，
// 不会把无效令牌降级为匿名。
func (r *Resolver) Resolve(ctx context.Context, raw string) (Identity, error) {
	if raw == "" {
		return Anonymous, nil
	}

	claims, err := r.tokens.ValidateToken(raw)
	if err != nil {
		return Anonymous, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	if r.revoked != nil && claims.ID != "" {
		revoked, err := r.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return Anonymous, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return Anonymous, fmt.Errorf("%w: token revoked", ErrInvalidSession)
		}
	}

	identity, err := r.users.PublicIdentity(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Anonymous, fmt.Errorf("%w: user %d no longer exists", ErrInvalidSession, claims.UserID)
		}
		return Anonymous, fmt.Errorf("load user: %w", err)
	}
	return identity, nil
}
