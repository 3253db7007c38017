package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"realestate/internal/auth"
)

const (
	identityKey = "identity"
	userIDKey   = "userID"

	// LoginPath 是匿名或无效会话被重定向到的地址。
	LoginPath = "/auth/login"
)

// SessionCookie 描述承载会话令牌的 Cookie。
type SessionCookie struct {
	Name   string
	Domain string
	Secure bool
}

// Set 将令牌写入 Cookie，有效期为 ttl。
func (sc SessionCookie) Set(c *gin.Context, token string, ttl time.Duration) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sc.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		Domain:   strings.TrimSpace(sc.Domain),
		Secure:   sc.secure(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear 删除客户端的 Cookie。
func (sc SessionCookie) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sc.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Domain:   strings.TrimSpace(sc.Domain),
		Secure:   sc.secure(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read 返回原始令牌，Cookie 不存在时返回 ""。
func (sc SessionCookie) Read(c *gin.Context) string {
	token, err := c.Cookie(sc.Name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(token)
}

func (sc SessionCookie) secure(c *gin.Context) bool {
	if sc.Secure {
		return true
	}
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}

// IdentityResolver 由 auth.Resolver 实现。
type IdentityResolver interface {
	Resolve(ctx context.Context, raw string) (auth.Identity, error)
}

// Identify 在每个请求上解析会话 Cookie。没有 Cookie 视为匿名访客；
// Cookie 无效时清除它并跳转登录。
func Identify(resolver IdentityResolver, cookie SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := resolver.Resolve(c.Request.Context(), cookie.Read(c))
		if err != nil {
			log := LoggerFromContext(c)
			if errors.Is(err, auth.ErrInvalidSession) {
				log.Info("invalid session, forcing login", "error", err.Error())
				cookie.Clear(c)
				c.Redirect(http.StatusFound, LoginPath)
				c.Abort()
				return
			}
			log.Error("resolve session failed", "error", err.Error())
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set(identityKey, identity)
		if !identity.IsAnonymous() {
			c.Set(userIDKey, identity.ID)
		}
		c.Next()
	}
}

// RequireIdentity 将匿名访客重定向到登录页。
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := auth.Require(IdentityFromContext(c)); err != nil {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RedirectAuthenticated 将已登录的访客重定向到 target。
// 用于登录页和注册页。
func RedirectAuthenticated(target string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IdentityFromContext(c).IsAnonymous() {
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Next()
	}
}

// IdentityFromContext 返回 Identify 设置的身份，没有则为 Anonymous。
func IdentityFromContext(c *gin.Context) auth.Identity {
	if value, ok := c.Get(identityKey); ok {
		if identity, ok := value.(auth.Identity); ok {
			return identity
		}
	}
	return auth.Anonymous
}

// UserIDFromContext 返回已登录用户的 id。
func UserIDFromContext(c *gin.Context) (uint, bool) {
	value, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	return auth.ParseUserID(value)
}
