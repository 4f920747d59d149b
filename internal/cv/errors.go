package cv

import "errors"

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrUnknownSection  = errors.New("unknown section")
	ErrUnknownField    = errors.New("unknown field")
	ErrNotFound        = errors.New("cv not found")
)

// ValidationError 表示客户端校验失败，不得进入网络层。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// IsValidation 判断 err 链中是否包含 ValidationError。
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
