package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// Error codes used across the synchronization pipeline.
const (
	CodeUnknown = iota
	// CodeValidation 生成结果不合法（缺少分段、start>=end、空文本、纯文本回复）
	CodeValidation
	// CodeDependencyMissing 请求配音时对应语言的字幕尚未生成
	CodeDependencyMissing
	// CodeGeneration 外部模型不可达、超时或未返回内容，可由调用方重试
	CodeGeneration
	// CodePlayback 播放降级告警，只记录不中断视频
	CodePlayback
	// CodeNotFound 资源不存在
	CodeNotFound
)

// Error represents a custom error with stack trace
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Err     error      `json:"-"` // 原始错误，不序列化
	Stack   string     `json:"stack,omitempty"`
	Context []KeyValue `json:"context,omitempty"`
}

// KeyValue represents a key-value pair for context
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Message != "" {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements the errors.Wrapper interface
func (e *Error) Unwrap() error {
	return e.Err
}

// WithCode creates a new error with code
func WithCode(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStack(),
	}
}

// WithCodef creates a new error with code and formatted message
func WithCodef(code int, format string, args ...interface{}) *Error {
	return WithCode(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error with a code and message. A nil err yields nil.
func Wrap(err error, code int, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
		Stack:   captureStack(),
	}
}

// Validation reports malformed generator output. It is never cached.
func Validation(format string, args ...interface{}) *Error {
	return WithCodef(CodeValidation, format, args...)
}

// DependencyMissing reports a dubbing request for a language that has no transcript yet.
func DependencyMissing(resourceID, language string) *Error {
	return WithCodef(CodeDependencyMissing,
		"no timestamped transcript found for %s; generate a transcript first", language).
		WithContext("resource_id", resourceID).
		WithContext("language", language)
}

// Generation wraps an external model failure. A nil cause is allowed.
func Generation(cause error, format string, args ...interface{}) *Error {
	e := WithCodef(CodeGeneration, format, args...)
	e.Err = cause
	return e
}

// PlaybackWarning wraps a contained playback failure.
func PlaybackWarning(cause error, message string) *Error {
	e := WithCode(CodePlayback, message)
	e.Err = cause
	return e
}

// NotFound reports a missing resource.
func NotFound(format string, args ...interface{}) *Error {
	return WithCodef(CodeNotFound, format, args...)
}

// WithContext adds context to an error
func (e *Error) WithContext(key, value string) *Error {
	if e == nil {
		return nil
	}

	// 创建新的错误实例以避免修改原始错误
	newErr := &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Stack:   e.Stack,
		Context: make([]KeyValue, len(e.Context), len(e.Context)+1),
	}
	copy(newErr.Context, e.Context)
	newErr.Context = append(newErr.Context, KeyValue{Key: key, Value: value})
	return newErr
}

// captureStack captures the current stack trace
func captureStack() string {
	buf := make([]byte, 1024)
	n := runtime.Stack(buf, false)
	stack := string(buf[:n])

	// 移除顶部几行（通常是 captureStack 和 Error 相关的调用）
	lines := strings.Split(stack, "\n")
	if len(lines) > 6 {
		stack = strings.Join(lines[6:], "\n")
	}

	return strings.TrimSpace(stack)
}

// GetCode returns the code of the first *Error in the chain, or CodeUnknown.
func GetCode(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// GetMessage returns the error message
func GetMessage(err error) string {
	var e *Error
	if stderrors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// IsValidation reports whether err carries CodeValidation.
func IsValidation(err error) bool { return GetCode(err) == CodeValidation }

// IsDependencyMissing reports whether err carries CodeDependencyMissing.
func IsDependencyMissing(err error) bool { return GetCode(err) == CodeDependencyMissing }

// IsGeneration reports whether err carries CodeGeneration.
func IsGeneration(err error) bool { return GetCode(err) == CodeGeneration }

// IsPlayback reports whether err carries CodePlayback.
func IsPlayback(err error) bool { return GetCode(err) == CodePlayback }

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool { return GetCode(err) == CodeNotFound }

// Retryable reports whether the caller may retry the failed operation as-is.
func Retryable(err error) bool { return IsGeneration(err) }

// Format implements fmt.Formatter
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s", e.Error())
			if e.Stack != "" {
				fmt.Fprintf(s, "\n%s", e.Stack)
			}
			return
		}
		fallthrough
	case 's':
		fmt.Fprintf(s, "%s", e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
