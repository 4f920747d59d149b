package tasks

import "fmt"

// 导出通知状态
const (
	NotifyCompleted = "completed"
	NotifyFailed    = "failed"
)

// NotifyChannel 返回用户的 Redis Pub/Sub 通知频道，/api/ws 订阅同一频道。
func NotifyChannel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}

// ExportNotification 是通过 WebSocket 推送给浏览器的导出结果。
// 字段名与前端解析保持一致。
type ExportNotification struct {
	Status        string `json:"status"`
	CVID          uint   `json:"cv_id"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message,omitempty"`
}
