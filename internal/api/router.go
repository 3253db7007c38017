package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"realestate/internal/account"
	"realestate/internal/api/middleware"
	"realestate/internal/auth"
	"realestate/internal/config"
	"realestate/internal/listing"
	"realestate/internal/messaging"
	"realestate/internal/metrics"
	"realestate/internal/notify"
	"realestate/internal/storage"
)

// Dependencies 是构建 HTTP 层所需的服务集合。
type Dependencies struct {
	Config   *config.Config
	Redis    redis.UniversalClient // 可选
	Sessions *auth.AuthService
	Accounts *account.Store
	Listings *listing.Service
	Messages *messaging.Service
	Images   storage.ImageStore
	Notifier notify.Notifier
	// Uploads 在图片存放于本地磁盘时通过 /uploads 提供访问。
	Uploads http.FileSystem
	Logger  *slog.Logger
}

// NewRouter 创建 gin 引擎，挂载公共中间件链和全部路由。
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()

	var (
		revoker SessionRevoker
		checker auth.RevocationChecker
	)
	if deps.Redis != nil {
		revocations := auth.NewRedisRevocations(deps.Redis)
		revoker, checker = revocations, revocations
	}
	cfg := deps.Config.API
	cookie := middleware.SessionCookie{Name: cfg.CookieName, Domain: cfg.CookieDomain, Secure: cfg.CookieSecure}
	resolver := auth.NewResolver(deps.Sessions, deps.Accounts, checker)

	router.Use(
		gin.Recovery(),
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(deps.Logger),
		metrics.GinMiddleware(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", middleware.BearerSecretMiddleware(cfg.MetricsToken), gin.WrapH(promhttp.Handler()))
	if deps.Uploads != nil {
		router.StaticFS("/uploads", deps.Uploads)
	}

	views := viewBuilder{images: deps.Images, logger: deps.Logger}
	var limiter *loginLimiter
	if deps.Redis != nil {
		limiter = &loginLimiter{
			redis:     deps.Redis,
			perHour:   cfg.LoginRateLimitPerHour,
			threshold: cfg.LoginLockThreshold,
			lockTTL:   cfg.LoginLockTTL,
		}
	}

	registerRoutes(router, routeHandlers{
		auth:     NewAuthHandler(deps.Accounts, deps.Sessions, revoker, deps.Notifier, cookie, limiter, deps.Logger),
		listings: NewListingHandler(deps.Listings, deps.Messages, views, cfg.PageSize, deps.Logger),
		public:   NewPublicHandler(deps.Listings, deps.Messages, views),
		ws:       NewWsHandler(deps.Redis, deps.Logger, cfg.AllowedOrigins),
	}, middleware.Identify(resolver, cookie))

	return router
}
