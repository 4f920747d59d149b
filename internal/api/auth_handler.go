package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cvbuilder/internal/auth"
	"cvbuilder/internal/database"
	"cvbuilder/internal/session"
)

// AuthHandler 处理注册、登录与 Google 登录。
type AuthHandler struct {
	db          *gorm.DB
	authService *auth.AuthService
	limiter     *loginLimiter
	logger      *slog.Logger
}

// NewAuthHandler 构造认证处理器；redisClient 为 nil 时不做登录限流。
func NewAuthHandler(db *gorm.DB, authService *auth.AuthService, redisClient redis.UniversalClient, limits LoginLimits, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		db:          db,
		authService: authService,
		limiter:     &loginLimiter{redis: redisClient, limits: limits},
		logger:      logger,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type googleLoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" binding:"required"`
	GoogleID string `json:"googleId" binding:"required"`
}

type authResponse struct {
	User  session.User `json:"user"`
	Token string       `json:"token"`
	Msg   string       `json:"msg,omitempty"`
}

func publicUser(u database.User) session.User {
	return session.User{
		ID:       strconv.FormatUint(uint64(u.ID), 10),
		Username: u.Username,
		Email:    u.Email,
	}
}

// Register 创建新账号并直接签发令牌。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if msg := auth.ValidateRegistration(req.Username, req.Email, req.Contact, req.Password); msg != "" {
		Message(c, http.StatusBadRequest, msg)
		return
	}

	ctx := c.Request.Context()
	logger := loggerFromContext(c, h.logger).With(slog.String("email", req.Email))

	var existing database.User
	if err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&existing).Error; err == nil {
		logger.Info("register conflict: user already exists")
		Message(c, http.StatusConflict, "User already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("register lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	user := database.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        req.Email,
		Contact:      req.Contact,
		PasswordHash: hashed,
	}
	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	token, err := h.authService.GenerateToken(user.ID)
	if err != nil {
		logger.Error("generate token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	c.JSON(http.StatusCreated, authResponse{
		User:  publicUser(user),
		Token: token,
		Msg:   "User registered successfully",
	})
}

// Login 校验邮箱与口令并返回令牌。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "email and password are required")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx := c.Request.Context()
	logger := loggerFromContext(c, h.logger).With(slog.String("email", req.Email))

	if reason := h.limiter.check(ctx, c.ClientIP(), req.Email); reason != "" {
		logger.Warn("login rejected", slog.String("reason", reason))
		TooManyRequests(c, reason)
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("login failed: user not found")
			h.limiter.fail(ctx, req.Email)
			Error(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !h.authService.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		h.limiter.fail(ctx, req.Email)
		Error(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.limiter.reset(ctx, req.Email)
	h.replyWithToken(c, logger, user)
}

// GoogleLogin 信任浏览器端 Google SDK 给出的身份，首次出现时创建账号。
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req googleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "email and googleId are required")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx := c.Request.Context()
	logger := loggerFromContext(c, h.logger).With(slog.String("email", req.Email))

	var user database.User
	err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error
	switch {
	case err == nil:
		if user.GoogleID == "" {
			if err := h.db.WithContext(ctx).Model(&user).Update("google_id", req.GoogleID).Error; err != nil {
				logger.Error("link google id failed", slog.Any("error", err))
				Internal(c, "internal error")
				return
			}
		} else if user.GoogleID != req.GoogleID {
			logger.Warn("google id mismatch", slog.Uint64("user_id", uint64(user.ID)))
			Error(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// 第三方账号没有口令，写入随机占位哈希，防止口令登录。
		placeholder, err := auth.RandomPassword(24)
		if err != nil {
			logger.Error("generate placeholder password failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		hashed, err := h.authService.HashPassword(placeholder)
		if err != nil {
			logger.Error("hash placeholder password failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		username := strings.TrimSpace(req.Username)
		if username == "" {
			username = strings.SplitN(req.Email, "@", 2)[0]
		}
		user = database.User{
			Username:     username,
			Email:        req.Email,
			GoogleID:     req.GoogleID,
			PasswordHash: hashed,
		}
		if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
			logger.Error("create google user failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		logger.Info("google user created", slog.Uint64("user_id", uint64(user.ID)))
	default:
		logger.Error("google login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithToken(c, logger, user)
}

func (h *AuthHandler) replyWithToken(c *gin.Context, logger *slog.Logger, user database.User) {
	token, err := h.authService.GenerateToken(user.ID)
	if err != nil {
		logger.Error("generate token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, authResponse{User: publicUser(user), Token: token})
}
