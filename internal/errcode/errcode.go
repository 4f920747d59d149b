package errcode

// 导出通知中的错误码：
// - 0：成功
// - 4xxx：与单次任务相关、重新发起即可恢复的错误
// - 5xxx：系统错误
const (
	OK              = 0
	ResourceMissing = 4004
	SystemError     = 5000
	RenderFailed    = 5001
	UploadFailed    = 5002
)

// Recoverable 判断错误码是否属于可由用户重试恢复的类别。
func Recoverable(code int) bool {
	return code >= 4000 && code < 5000
}
