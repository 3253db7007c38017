package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthService 负责会话令牌的签发与校验，以及密码哈希。
type AuthService struct {
	secret     []byte
	sessionTTL time.Duration
}

// SessionClaims 表示会话 Cookie 中携带的业务字段。
type SessionClaims struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// NewAuthService 构造使用 secret 进行 HS256 签名的服务实例。
func NewAuthService(secret []byte, sessionTTL time.Duration) (*AuthService, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	if sessionTTL <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &AuthService{secret: secret, sessionTTL: sessionTTL}, nil
}

// HashPassword 使用 bcrypt 生成密码哈希。
func (s *AuthService) HashPassword(password string) (string, error) {
	return HashPassword(password)
}

// CheckPasswordHash 校验密码是否匹配哈希。
func (s *AuthService) CheckPasswordHash(password, hash string) bool {
	return CheckPasswordHash(password, hash)
}

// IssueSession 为用户创建签名的会话令牌。
func (s *AuthService) IssueSession(userID uint, name string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID: userID,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken 解析并验证会话令牌。
func (s *AuthService) ValidateToken(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, errors.New("token string is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID == 0 {
		return nil, errors.New("token has no subject")
	}

	return claims, nil
}

// SessionTTL 暴露会话有效期。
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}
