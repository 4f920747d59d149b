package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/api/middleware"
)

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), v != 0
	default:
		return 0, false
	}
}

func loggerFromContext(c *gin.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := middleware.LoggerFromContextOK(c); ok {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
