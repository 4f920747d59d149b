package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"cvbuilder/internal/database"
	"cvbuilder/internal/layout"
	"cvbuilder/internal/storage"
	"cvbuilder/internal/tasks"
)

const (
	previewQuality    = 80
	previewPresignTTL = 7 * 24 * time.Hour
)

// Screenshotter 截取 HTML 的首屏图片，由 export.Browser 实现。
type Screenshotter interface {
	Screenshot(ctx context.Context, html string, widthPx, quality int) ([]byte, error)
}

// PreviewStore 上传缩略图并生成长期可读的地址。
type PreviewStore interface {
	Uploader
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
}

// LayoutPreviewHandler 负责版式缩略图生成任务：用示例简历渲染版式并截图。
type LayoutPreviewHandler struct {
	db      *gorm.DB
	shooter Screenshotter
	storage PreviewStore
	logger  *slog.Logger
}

func NewLayoutPreviewHandler(db *gorm.DB, shooter Screenshotter, storageClient PreviewStore, logger *slog.Logger) *LayoutPreviewHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LayoutPreviewHandler{
		db:      db,
		shooter: shooter,
		storage: storageClient,
		logger:  logger,
	}
}

func (h *LayoutPreviewHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	log := h.logger

	var payload tasks.LayoutPreviewPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal layout preview payload failed", slog.Any("error", err))
		return fmt.Errorf("unmarshal layout preview payload: %w: %w", err, asynq.SkipRetry)
	}

	log = log.With(
		slog.Uint64("layout_id", uint64(payload.LayoutID)),
		slog.String("correlation_id", payload.CorrelationID),
	)
	log.Info("starting layout preview task")

	var row database.Layout
	if err := h.db.WithContext(ctx).First(&row, payload.LayoutID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("layout not found, skipping task")
			return nil
		}
		log.Error("query layout failed", slog.Any("error", err))
		return err
	}

	descriptor, err := row.ToDescriptor()
	if err != nil {
		log.Error("decode layout failed", slog.Any("error", err))
		return err
	}

	html, err := layout.RenderHTML(layout.Preview(descriptor), layout.DefaultWidthPx)
	if err != nil {
		log.Error("render layout preview failed", slog.Any("error", err))
		return err
	}

	shot, err := h.shooter.Screenshot(ctx, html, layout.DefaultWidthPx, previewQuality)
	if err != nil {
		log.Error("capture layout screenshot failed", slog.Any("error", err))
		return err
	}

	objectName := storage.LayoutPreviewKey(row.Slug)
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(shot), int64(len(shot)), "image/jpeg"); err != nil {
		log.Error("upload layout preview failed", slog.Any("error", err))
		return err
	}

	url, err := h.storage.GeneratePresignedURL(ctx, objectName, previewPresignTTL)
	if err != nil {
		log.Error("generate layout preview url failed", slog.Any("error", err))
		return err
	}

	if err := h.db.WithContext(ctx).Model(&row).Update("preview_image_url", url).Error; err != nil {
		log.Error("update layout preview url failed", slog.Any("error", err))
		return err
	}

	log.Info("layout preview task completed")
	return nil
}
