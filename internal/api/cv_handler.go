package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"cvbuilder/internal/api/middleware"
	"cvbuilder/internal/cv"
	"cvbuilder/internal/database"
	"cvbuilder/internal/export"
	"cvbuilder/internal/layout"
	"cvbuilder/internal/payment"
	"cvbuilder/internal/storage"
	"cvbuilder/internal/tasks"
)

const (
	defaultPage  = 1
	defaultLimit = 5
	maxLimit     = 50
)

// TaskEnqueuer 是 asynq.Client 的最小接口。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ObjectStore 是导出文件所需的对象存储能力。
type ObjectStore interface {
	GenerateDownloadURL(ctx context.Context, objectKey, filename string, duration time.Duration) (string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// CVOptions 控制简历接口的限额与导出参数。
type CVOptions struct {
	MaxCVsPerUser int
	DownloadTTL   time.Duration
	WidthPx       int
}

// CVHandler 负责简历的增删改查、公开页与导出。
type CVHandler struct {
	db     *gorm.DB
	queue  TaskEnqueuer
	store  ObjectStore
	opts   CVOptions
	logger *slog.Logger
}

// NewCVHandler 构造 CVHandler。
func NewCVHandler(db *gorm.DB, queue TaskEnqueuer, store ObjectStore, opts CVOptions, logger *slog.Logger) *CVHandler {
	if opts.DownloadTTL <= 0 {
		opts.DownloadTTL = 15 * time.Minute
	}
	if opts.WidthPx <= 0 {
		opts.WidthPx = layout.DefaultWidthPx
	}
	return &CVHandler{db: db, queue: queue, store: store, opts: opts, logger: logger}
}

var errInvalidCVID = errors.New("invalid cv id")

// ListCVs 分页返回当前用户的简历，按创建时间倒序。
func (h *CVHandler) ListCVs(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	page := positiveQuery(c, "page", defaultPage)
	limit := positiveQuery(c, "limit", defaultLimit)
	if limit > maxLimit {
		limit = maxLimit
	}

	var records []database.CV
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error; err != nil {
		loggerFromContext(c, h.logger).Error("list cvs failed", slog.Any("error", err))
		Internal(c, "failed to list cvs")
		return
	}

	docs := make([]cv.Document, 0, len(records))
	for _, r := range records {
		doc, err := r.ToDocument()
		if err != nil {
			loggerFromContext(c, h.logger).Warn("skip undecodable cv", slog.Uint64("cv_id", uint64(r.ID)), slog.Any("error", err))
			continue
		}
		docs = append(docs, doc)
	}
	c.JSON(http.StatusOK, docs)
}

// GetCV 返回单份简历。
func (h *CVHandler) GetCV(c *gin.Context) {
	record, ok := h.ownedCV(c)
	if !ok {
		return
	}
	doc, err := record.ToDocument()
	if err != nil {
		loggerFromContext(c, h.logger).Error("decode cv failed", slog.Any("error", err))
		Internal(c, "failed to load cv")
		return
	}
	c.JSON(http.StatusOK, doc)
}

// CreateCV 保存新简历，超过限额时拒绝。
func (h *CVHandler) CreateCV(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	doc, ok := bindDocument(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	logger := loggerFromContext(c, h.logger).With(slog.Uint64("user_id", uint64(userID)))

	if h.opts.MaxCVsPerUser > 0 {
		var count int64
		if err := h.db.WithContext(ctx).Model(&database.CV{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			logger.Error("count cvs failed", slog.Any("error", err))
			Internal(c, "failed to count cvs")
			return
		}
		if count >= int64(h.opts.MaxCVsPerUser) {
			Forbidden(c, "CV limit reached")
			return
		}
	}

	record, err := database.NewCV(userID, doc)
	if err != nil {
		logger.Error("encode cv failed", slog.Any("error", err))
		Internal(c, "failed to save cv")
		return
	}
	if err := h.db.WithContext(ctx).Create(&record).Error; err != nil {
		logger.Error("create cv failed", slog.Any("error", err))
		Internal(c, "failed to save cv")
		return
	}

	saved, err := record.ToDocument()
	if err != nil {
		Internal(c, "failed to save cv")
		return
	}
	logger.Info("cv created", slog.Uint64("cv_id", uint64(record.ID)))
	c.JSON(http.StatusCreated, saved)
}

// UpdateCV 覆盖整份文档。
func (h *CVHandler) UpdateCV(c *gin.Context) {
	record, ok := h.ownedCV(c)
	if !ok {
		return
	}
	doc, ok := bindDocument(c)
	if !ok {
		return
	}

	logger := loggerFromContext(c, h.logger).With(slog.Uint64("cv_id", uint64(record.ID)))
	if err := record.SetDocument(doc); err != nil {
		logger.Error("encode cv failed", slog.Any("error", err))
		Internal(c, "failed to update cv")
		return
	}
	// 文档变更后旧的导出文件不再对应当前内容。
	record.ExportStatus = database.ExportStatusNone
	record.PdfObjectKey = ""
	record.ExportJobID = ""
	if err := h.db.WithContext(c.Request.Context()).Save(record).Error; err != nil {
		logger.Error("update cv failed", slog.Any("error", err))
		Internal(c, "failed to update cv")
		return
	}

	saved, err := record.ToDocument()
	if err != nil {
		Internal(c, "failed to update cv")
		return
	}
	c.JSON(http.StatusOK, saved)
}

// DeleteCV 删除简历及其导出文件。
func (h *CVHandler) DeleteCV(c *gin.Context) {
	record, ok := h.ownedCV(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	logger := loggerFromContext(c, h.logger).With(slog.Uint64("cv_id", uint64(record.ID)))

	if err := h.db.WithContext(ctx).Delete(record).Error; err != nil {
		logger.Error("delete cv failed", slog.Any("error", err))
		Internal(c, "failed to delete cv")
		return
	}
	if h.store != nil {
		if err := h.store.DeletePrefix(ctx, storage.ExportPrefix(record.UserID, record.ID)); err != nil {
			logger.Warn("delete cv exports failed", slog.Any("error", err))
		}
	}

	Message(c, http.StatusOK, "CV deleted successfully")
}

// PublicView 渲染分享链接指向的只读页面，无需登录。
func (h *CVHandler) PublicView(c *gin.Context) {
	id, err := database.ParseID(c.Param("id"))
	if err != nil {
		NotFound(c, "CV not found")
		return
	}

	var record database.CV
	if err := h.db.WithContext(c.Request.Context()).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "CV not found")
			return
		}
		Internal(c, "failed to load cv")
		return
	}

	doc, err := record.ToDocument()
	if err == nil {
		var html string
		html, err = layout.RenderHTML(doc, h.opts.WidthPx)
		if err == nil {
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
			return
		}
	}
	loggerFromContext(c, h.logger).Error("render public cv failed", slog.Uint64("cv_id", uint64(id)), slog.Any("error", err))
	Internal(c, "failed to render cv")
}

// RequestExport 在已付费的前提下投递服务端导出任务。
func (h *CVHandler) RequestExport(c *gin.Context) {
	record, ok := h.ownedCV(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	logger := loggerFromContext(c, h.logger).With(slog.Uint64("cv_id", uint64(record.ID)))

	if !h.requirePaid(c, logger, record) {
		return
	}
	if h.queue == nil {
		Internal(c, "export queue unavailable")
		return
	}

	jobID := uuid.NewString()
	task, err := tasks.NewCVExportTask(record.ID, record.UserID, jobID, middleware.GetCorrelationID(c))
	if err != nil {
		logger.Error("build export task failed", slog.Any("error", err))
		Internal(c, "failed to queue export")
		return
	}
	if err := h.db.WithContext(ctx).Model(record).Updates(map[string]any{
		"export_status": database.ExportStatusQueued,
		"export_job_id": jobID,
	}).Error; err != nil {
		logger.Error("mark export queued failed", slog.Any("error", err))
		Internal(c, "failed to queue export")
		return
	}
	if _, err := h.queue.EnqueueContext(ctx, task); err != nil {
		logger.Error("enqueue export failed", slog.Any("error", err))
		_ = h.db.WithContext(ctx).Model(record).Update("export_status", database.ExportStatusFailed).Error
		Internal(c, "failed to queue export")
		return
	}

	logger.Info("export queued")
	c.JSON(http.StatusAccepted, gin.H{"status": database.ExportStatusQueued})
}

// GetDownloadLink 返回已完成导出的临时下载地址。
func (h *CVHandler) GetDownloadLink(c *gin.Context) {
	record, ok := h.ownedCV(c)
	if !ok {
		return
	}

	logger := loggerFromContext(c, h.logger).With(slog.Uint64("cv_id", uint64(record.ID)))
	if !h.requirePaid(c, logger, record) {
		return
	}
	if record.ExportStatus != database.ExportStatusCompleted || record.PdfObjectKey == "" {
		Conflict(c, "export not ready")
		return
	}
	if h.store == nil {
		Internal(c, "storage unavailable")
		return
	}

	doc, err := record.ToDocument()
	if err != nil {
		Internal(c, "failed to load cv")
		return
	}
	url, err := h.store.GenerateDownloadURL(c.Request.Context(), record.PdfObjectKey, export.Filename(doc), h.opts.DownloadTTL)
	if err != nil {
		logger.Error("generate download url failed", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        url,
		"expires_in": int(h.opts.DownloadTTL.Seconds()),
	})
}

func (h *CVHandler) requirePaid(c *gin.Context, logger *slog.Logger, record *database.CV) bool {
	paid, err := hasPaidOrder(c.Request.Context(), h.db, record.UserID, record.ID, payment.PurposeDownload)
	if err != nil {
		logger.Error("check payment failed", slog.Any("error", err))
		Internal(c, "failed to check payment")
		return false
	}
	if !paid {
		PaymentRequired(c, "Payment required")
		return false
	}
	return true
}

// ownedCV 读取路径中的简历，非本人的简历按不存在处理。
func (h *CVHandler) ownedCV(c *gin.Context) (*database.CV, bool) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return nil, false
	}

	record, err := findCVForUser(c.Request.Context(), h.db, c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, errInvalidCVID):
			BadRequest(c, "invalid cv id")
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "CV not found")
		default:
			loggerFromContext(c, h.logger).Error("query cv failed", slog.Any("error", err))
			Internal(c, "failed to query cv")
		}
		return nil, false
	}
	return record, true
}

func findCVForUser(ctx context.Context, db *gorm.DB, rawID string, userID uint) (*database.CV, error) {
	id, err := database.ParseID(rawID)
	if err != nil {
		return nil, errInvalidCVID
	}
	var record database.CV
	if err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// bindDocument 解析并校验请求体中的文档，失败时已写出响应。
func bindDocument(c *gin.Context) (cv.Document, bool) {
	doc := cv.New()
	if err := c.ShouldBindJSON(&doc); err != nil {
		BadRequest(c, "invalid cv document")
		return cv.Document{}, false
	}
	doc = doc.Normalize()
	if err := doc.Validate(); err != nil {
		var verr *cv.ValidationError
		if errors.As(err, &verr) {
			BadRequest(c, verr.Message)
		} else {
			BadRequest(c, err.Error())
		}
		return cv.Document{}, false
	}
	return doc, true
}

func positiveQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
