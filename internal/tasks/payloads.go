package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeCVExport      = "cv:export"
	TypeLayoutPreview = "layout:preview"
)

// CVExportPayload 描述服务端导出一份简历所需的最小信息。
type CVExportPayload struct {
	CVID          uint   `json:"cv_id"`
	UserID        uint   `json:"user_id"`
	JobID         string `json:"job_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewCVExportTask 构造一个新的简历导出任务。jobID 须与记录上的 export_job_id 一致，任务结果才会生效。
func NewCVExportTask(cvID, userID uint, jobID, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(CVExportPayload{
		CVID:          cvID,
		UserID:        userID,
		JobID:         jobID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCVExport, payload, asynq.MaxRetry(3)), nil
}

// LayoutPreviewPayload 描述版式缩略图生成任务。
type LayoutPreviewPayload struct {
	LayoutID      uint   `json:"layout_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewLayoutPreviewTask 构造版式缩略图生成任务。
func NewLayoutPreviewTask(layoutID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(LayoutPreviewPayload{
		LayoutID:      layoutID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeLayoutPreview, payload), nil
}
