package errcode

import (
	"errors"
	"fmt"
)

// 错误码约定：
// - 4xxx：请求级错误，返回给客户端，进程继续运行
// - 5xxx：系统错误；只有 Fatal 级别才会终止进程，且只发生在启动阶段
const (
	Validation     = 4000
	NotFound       = 4004
	ImageRequired  = 4010
	DuplicateEmail = 4011
	InvalidToken   = 4012
	RateLimited    = 4029
	SystemError    = 5000
	StorageError   = 5001
)

// Severity 区分只影响单个请求的错误与需要结束进程的错误。
type Severity int

const (
	RequestError Severity = iota
	FatalError
)

// Error 在底层错误之外携带错误码与严重级别。
type Error struct {
	Code     int
	Severity Severity
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("error code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Fatal 将 err 标记为必须终止进程的错误。
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: SystemError, Severity: FatalError, Err: err}
}

// IsFatal 判断 err（或其包装链中的错误）是否为 FatalError。
func IsFatal(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Severity == FatalError
}
