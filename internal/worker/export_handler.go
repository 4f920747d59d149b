package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"cvbuilder/internal/cv"
	"cvbuilder/internal/database"
	"cvbuilder/internal/errcode"
	"cvbuilder/internal/export"
	"cvbuilder/internal/storage"
	"cvbuilder/internal/tasks"
)

// Exporter 把文档导出为 PDF，由 export.Pipeline 实现。
type Exporter interface {
	Export(ctx context.Context, doc cv.Document) (*export.Artifact, error)
}

// Uploader 是对象存储的上传端，由 storage.Client 实现。
type Uploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
}

// ExportTaskHandler 消费服务端导出任务：导出、上传、回写记录并通知浏览器。
type ExportTaskHandler struct {
	db        *gorm.DB
	exporter  Exporter
	storage   Uploader
	publisher Publisher
	logger    *slog.Logger

	finalAttempt func(context.Context) bool
}

// NewExportTaskHandler 创建任务处理器。
func NewExportTaskHandler(db *gorm.DB, exporter Exporter, storage Uploader, publisher Publisher, logger *slog.Logger) *ExportTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportTaskHandler{
		db:           db,
		exporter:     exporter,
		storage:      storage,
		publisher:    publisher,
		logger:       logger,
		finalAttempt: isFinalAsynqAttempt,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.CVExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("unmarshal export payload: %w: %w", err, asynq.SkipRetry)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("cv_id", uint64(payload.CVID)),
		slog.Uint64("user_id", uint64(payload.UserID)),
	)
	log.Info("starting cv export task")

	var record database.CV
	if err := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", payload.CVID, payload.UserID).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("cv not found, skipping task")
			notify := tasks.ExportNotification{
				Status:        tasks.NotifyFailed,
				CVID:          payload.CVID,
				CorrelationID: payload.CorrelationID,
				ErrorCode:     errcode.ResourceMissing,
				ErrorMessage:  "cv not found",
			}
			if err := publishExportNotify(ctx, h.publisher, payload.UserID, notify); err != nil {
				log.Warn("publish missing cv notification failed", slog.Any("error", err))
			}
			return nil
		}
		log.Error("query cv failed", slog.Any("error", err))
		return err
	}

	if record.ExportJobID != payload.JobID {
		log.Info("export superseded, skipping task", slog.String("job_id", payload.JobID))
		return nil
	}
	// currentJob 只匹配仍属于本任务的记录：导出期间文档被修改或重新排队时，结果作废。
	currentJob := func() *gorm.DB {
		return h.db.WithContext(ctx).Model(&record).Where("export_job_id = ?", payload.JobID)
	}

	failCode := errcode.SystemError
	defer func() {
		if retErr == nil || !h.finalAttempt(ctx) {
			return
		}
		res := currentJob().Update("export_status", database.ExportStatusFailed)
		if res.Error != nil {
			log.Error("mark export failed", slog.Any("error", res.Error))
		} else if res.RowsAffected == 0 {
			log.Info("export superseded, failure not reported")
			return
		}
		notify := tasks.ExportNotification{
			Status:        tasks.NotifyFailed,
			CVID:          record.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     failCode,
			ErrorMessage:  export.FailureMessage,
		}
		if err := publishExportNotify(ctx, h.publisher, record.UserID, notify); err != nil {
			log.Error("publish export error notification failed", slog.Any("error", err))
		}
	}()

	doc, err := record.ToDocument()
	if err != nil {
		log.Error("decode cv failed", slog.Any("error", err))
		return err
	}

	artifact, err := h.exporter.Export(ctx, doc)
	if err != nil {
		failCode = errcode.RenderFailed
		log.Error("export cv failed", slog.Any("error", err))
		return err
	}

	objectName := storage.ExportKey(record.UserID, record.ID, uuid.NewString())
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(artifact.Data), int64(len(artifact.Data)), artifact.ContentType); err != nil {
		failCode = errcode.UploadFailed
		log.Error("upload pdf failed", slog.Any("error", err))
		return err
	}

	res := currentJob().Updates(map[string]any{
		"pdf_object_key": objectName,
		"export_status":  database.ExportStatusCompleted,
	})
	if res.Error != nil {
		log.Error("update cv failed", slog.Any("error", res.Error))
		return res.Error
	}
	if res.RowsAffected == 0 {
		// 对象留在该简历的导出前缀下，删除简历时一并清理。
		log.Warn("cv changed during export, discarding result", slog.String("object", objectName))
		return nil
	}

	notify := tasks.ExportNotification{
		Status:        tasks.NotifyCompleted,
		CVID:          record.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if err := publishExportNotify(ctx, h.publisher, record.UserID, notify); err != nil {
		// 文件已就绪，通知丢失时前端仍可通过 download-link 获取。
		log.Warn("publish export notification failed", slog.Any("error", err))
	}

	log.Info("cv export task completed", slog.Int("pages", artifact.Pages), slog.String("object", objectName))
	return nil
}
