// Package errors 定义 marginalia 使用的结构化错误类型。
//
// 布局引擎本身没有 I/O，失败只来自输入校验与调用方契约违背，
// 因此错误码按校验类别划分：
//   - INVALID_*: 输入校验失败
//   - UNKNOWN_GROUP: 编辑操作引用了不存在的分组
//   - READ_ONLY: 只读会话拒绝编辑
//   - INTERNAL_ERROR: 不应出现的内部错误
//
// 用法：
//
//	err := errors.New(errors.ErrCodeInvalidSpan, "span %d 越界", i)
//	if errors.Is(err, errors.ErrCodeInvalidSpan) {
//	    // 处理校验错误
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code 是机器可读的错误码。
type Code string

const (
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidSpan     Code = "INVALID_SPAN"
	ErrCodeInvalidOptions  Code = "INVALID_OPTIONS"
	ErrCodeInvalidDocument Code = "INVALID_DOCUMENT"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"

	ErrCodeUnknownGroup Code = "UNKNOWN_GROUP"
	ErrCodeReadOnly     Code = "READ_ONLY"

	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error 携带错误码、说明以及可选的底层原因。
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap 返回底层原因，兼容标准库 errors.Is/As。
func (e *Error) Unwrap() error {
	return e.Cause
}

// New 使用格式化消息创建 Error。
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap 用错误码包装已有错误。
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is 沿错误链查找 *Error 并比较错误码。
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode 提取错误码，非 *Error 时返回空字符串。
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage 返回不带错误码前缀的消息，供 CLI 展示。
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
