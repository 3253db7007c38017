package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"realestate/internal/account"
	"realestate/internal/api/middleware"
	"realestate/internal/auth"
	"realestate/internal/database"
	"realestate/internal/errcode"
	"realestate/internal/notify"
	"realestate/internal/validation"
)

// SessionRevoker 将会话 id 拉黑直到其原本的过期时间。
type SessionRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// AuthHandler 处理登录、退出、注册、账号确认与密码重置。
type AuthHandler struct {
	accounts  *account.Store
	sessions  *auth.AuthService
	revoker   SessionRevoker
	notifier  notify.Notifier
	cookie    middleware.SessionCookie
	limiter   *loginLimiter
	validator *validation.Validator
	logger    *slog.Logger
}

// NewAuthHandler 创建处理器，revoker 与 limiter 可为 nil。
func NewAuthHandler(
	accounts *account.Store,
	sessions *auth.AuthService,
	revoker SessionRevoker,
	notifier notify.Notifier,
	cookie middleware.SessionCookie,
	limiter *loginLimiter,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts:  accounts,
		sessions:  sessions,
		revoker:   revoker,
		notifier:  notifier,
		cookie:    cookie,
		limiter:   limiter,
		validator: validation.New(),
		logger:    logger,
	}
}

type loginInput struct {
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"-" validate:"required"`
}

type emailInput struct {
	Email string `form:"email" json:"email" validate:"required,email"`
}

// LoginForm 渲染登录页。
func (h *AuthHandler) LoginForm(c *gin.Context) {
	Page(c, http.StatusOK, "Log in", nil)
}

// Login 校验凭据，写入会话 Cookie 后跳转到控制台。
func (h *AuthHandler) Login(c *gin.Context) {
	in := loginInput{Email: strings.TrimSpace(c.PostForm("email")), Password: c.PostForm("password")}
	echo := gin.H{"email": in.Email}
	if err := h.validator.Struct(in); err != nil {
		h.formFailed(c, "Log in", err, echo)
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.String("email", in.Email))

	switch h.limiter.check(ctx, c.ClientIP(), in.Email) {
	case limitRateExceeded:
		Error(c, http.StatusTooManyRequests, errcode.RateLimited, "too many login attempts, try again later")
		return
	case limitLocked:
		Error(c, http.StatusTooManyRequests, errcode.RateLimited, "account temporarily locked")
		return
	}

	user, err := h.accounts.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		errs := &validation.Errors{}
		switch {
		case errors.Is(err, account.ErrUserNotFound):
			errs.Add("email", "no account with this e-mail")
		case errors.Is(err, account.ErrNotConfirmed):
			errs.Add("email", "account not confirmed yet")
		case errors.Is(err, account.ErrWrongPassword):
			errs.Add("password", "wrong password")
		default:
			logger.Error("login lookup failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		logger.Info("login failed", slog.Any("reason", err))
		h.limiter.fail(ctx, in.Email)
		ValidationFailed(c, "Log in", errs, echo, nil)
		return
	}

	token, err := h.sessions.IssueSession(user.ID, user.Name)
	if err != nil {
		logger.Error("issue session failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	h.limiter.reset(ctx, in.Email)
	h.cookie.Set(c, token, h.sessions.SessionTTL())

	logger.Info("user logged in", slog.Uint64("user_id", uint64(user.ID)))
	Redirect(c, dashboardPath)
}

// Logout 吊销会话并清除 Cookie。
func (h *AuthHandler) Logout(c *gin.Context) {
	if raw := h.cookie.Read(c); raw != "" && h.revoker != nil {
		if claims, err := h.sessions.ValidateToken(raw); err == nil && claims.ID != "" && claims.ExpiresAt != nil {
			if err := h.revoker.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
				middleware.LoggerFromContext(c).Error("revoke session failed", slog.Any("error", err))
			}
		}
	}
	h.cookie.Clear(c)
	Redirect(c, middleware.LoginPath)
}

// RegisterForm 渲染注册页。
func (h *AuthHandler) RegisterForm(c *gin.Context) {
	Page(c, http.StatusOK, "Create account", nil)
}

// Register 创建账号并投递确认邮件任务。
func (h *AuthHandler) Register(c *gin.Context) {
	in := account.RegisterInput{
		Name:           c.PostForm("name"),
		Email:          c.PostForm("email"),
		Password:       c.PostForm("password"),
		RepeatPassword: c.PostForm("repeat_password"),
	}
	echo := gin.H{"name": strings.TrimSpace(in.Name), "email": strings.TrimSpace(in.Email)}

	user, err := h.accounts.Register(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			errs := &validation.Errors{}
			errs.Add("email", "this e-mail is already registered")
			ValidationFailed(c, "Create account", errs, echo, gin.H{"code": errcode.DuplicateEmail})
			return
		}
		h.formFailed(c, "Create account", err, echo)
		return
	}

	h.notifier.SendConfirmation(c.Request.Context(), recipient(c, user))
	middleware.LoggerFromContext(c).Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	Page(c, http.StatusCreated, "Account created", gin.H{
		"message": "We sent a confirmation e-mail, follow the link to activate your account",
	})
}

// Confirm 激活持有该令牌的账号。
func (h *AuthHandler) Confirm(c *gin.Context) {
	user, err := h.accounts.Confirm(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, account.ErrInvalidToken) {
			Page(c, http.StatusBadRequest, "Confirm account", gin.H{
				"error":   true,
				"code":    errcode.InvalidToken,
				"message": "the confirmation link is invalid or was already used",
			})
			return
		}
		middleware.LoggerFromContext(c).Error("confirm account failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	middleware.LoggerFromContext(c).Info("account confirmed", slog.Uint64("user_id", uint64(user.ID)))
	Page(c, http.StatusOK, "Confirm account", gin.H{
		"error":   false,
		"message": "your account is confirmed, you can log in now",
	})
}

// ForgotForm 渲染找回密码页。
func (h *AuthHandler) ForgotForm(c *gin.Context) {
	Page(c, http.StatusOK, "Recover access", nil)
}

// Forgot 签发重置令牌并投递重置邮件任务。
func (h *AuthHandler) Forgot(c *gin.Context) {
	in := emailInput{Email: strings.TrimSpace(c.PostForm("email"))}
	echo := gin.H{"email": in.Email}
	if err := h.validator.Struct(in); err != nil {
		h.formFailed(c, "Recover access", err, echo)
		return
	}

	user, err := h.accounts.IssueResetToken(c.Request.Context(), in.Email)
	if err != nil {
		if errors.Is(err, account.ErrUserNotFound) {
			errs := &validation.Errors{}
			errs.Add("email", "no account with this e-mail")
			ValidationFailed(c, "Recover access", errs, echo, nil)
			return
		}
		middleware.LoggerFromContext(c).Error("issue reset token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.notifier.SendPasswordReset(c.Request.Context(), recipient(c, user))
	Page(c, http.StatusOK, "Recover access", gin.H{
		"message": "We sent you an e-mail with instructions",
	})
}

// ResetForm 在重置令牌有效时展示新密码表单。
func (h *AuthHandler) ResetForm(c *gin.Context) {
	if _, err := h.accounts.CheckToken(c.Request.Context(), c.Param("token"), database.TokenReset); err != nil {
		h.tokenFailed(c, err)
		return
	}
	Page(c, http.StatusOK, "Choose a new password", nil)
}

// Reset 保存新密码并作废令牌。
func (h *AuthHandler) Reset(c *gin.Context) {
	_, err := h.accounts.ResetPassword(c.Request.Context(), c.Param("token"), c.PostForm("password"))
	if err != nil {
		if _, ok := validation.As(err); ok {
			h.formFailed(c, "Choose a new password", err, nil)
			return
		}
		h.tokenFailed(c, err)
		return
	}
	Page(c, http.StatusOK, "Password saved", gin.H{
		"message": "your password was changed, you can log in now",
	})
}

func (h *AuthHandler) tokenFailed(c *gin.Context, err error) {
	if errors.Is(err, account.ErrInvalidToken) {
		Page(c, http.StatusBadRequest, "Recover access", gin.H{
			"error":   true,
			"code":    errcode.InvalidToken,
			"message": "the link is invalid or was already used, request a new one",
		})
		return
	}
	middleware.LoggerFromContext(c).Error("token lookup failed", slog.Any("error", err))
	Internal(c, "internal error")
}

func (h *AuthHandler) formFailed(c *gin.Context, title string, err error, echo any) {
	if verrs, ok := validation.As(err); ok {
		ValidationFailed(c, title, verrs, echo, nil)
		return
	}
	middleware.LoggerFromContext(c).Error("form handling failed", slog.Any("error", err))
	Internal(c, "internal error")
}

func recipient(c *gin.Context, user *database.User) notify.Recipient {
	r := notify.Recipient{
		Name:          user.Name,
		Email:         user.Email,
		CorrelationID: middleware.GetCorrelationID(c),
	}
	if user.Token != nil {
		r.Token = *user.Token
	}
	return r
}
