package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cvbuilder/internal/database"
	"cvbuilder/internal/layout"
)

// LayoutHandler 提供可选版式列表。
type LayoutHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewLayoutHandler(db *gorm.DB, logger *slog.Logger) *LayoutHandler {
	return &LayoutHandler{db: db, logger: logger}
}

// GET /api/layouts
// 返回数据库中的版式；表为空或查询失败时退回内置版式。
func (h *LayoutHandler) ListLayouts(c *gin.Context) {
	logger := loggerFromContext(c, h.logger)

	var rows []database.Layout
	if err := h.db.WithContext(c.Request.Context()).Order("id ASC").Find(&rows).Error; err != nil {
		logger.Warn("list layouts failed, serving built-in catalog", slog.Any("error", err))
		c.JSON(http.StatusOK, layout.DefaultCatalog())
		return
	}

	items := make([]layout.Descriptor, 0, len(rows))
	for _, row := range rows {
		d, err := row.ToDescriptor()
		if err != nil {
			logger.Warn("skip undecodable layout", slog.String("slug", row.Slug), slog.Any("error", err))
			continue
		}
		items = append(items, d)
	}
	if len(items) == 0 {
		items = layout.DefaultCatalog()
	}
	c.JSON(http.StatusOK, items)
}
