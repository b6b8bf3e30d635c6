package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode 定义错误码类型
type ErrorCode int

// 定义系统级错误码 (1000-1999)
const (
	ErrInternal ErrorCode = 1000 + iota
	ErrDatabase
	ErrStorage
	ErrTimeout
	ErrOperationFailed
)

// 定义认证相关错误码 (2000-2999)
const (
	ErrUnauthorized ErrorCode = 2000 + iota
	ErrForbidden
	ErrInvalidToken
	ErrTokenExpired
)

// 定义请求相关错误码 (3000-3999)
const (
	ErrBadRequest ErrorCode = 3000 + iota
	ErrValidation
	ErrResourceNotFound
	ErrResourceExists
	ErrResourceConflict
)

// 定义业务相关错误码 (4000-4999)
const (
	ErrProfileNotFound ErrorCode = 4000 + iota
	ErrPostNotFound
	ErrEmptyMessage
	ErrPostTooLong
	ErrImageTooLarge
	ErrUnsupportedImage
	ErrSelfFollow
)

// 客户端前置校验失败的错误码，这些错误不会触发任何网络调用
var validationCodes = map[ErrorCode]bool{
	ErrBadRequest:       true,
	ErrValidation:       true,
	ErrEmptyMessage:     true,
	ErrPostTooLong:      true,
	ErrImageTooLarge:    true,
	ErrUnsupportedImage: true,
	ErrSelfFollow:       true,
}

// AppError 定义应用错误结构
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装已有错误
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// OperationFailed 包装网关调用失败；调用方不区分网络错误与存储端拒绝
func OperationFailed(op string, err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) && (validationCodes[appErr.Code] || appErr.Code == ErrOperationFailed) {
		return appErr
	}
	return Wrap(ErrOperationFailed, op+" failed", err)
}

// Code 获取错误码，非 AppError 一律视为内部错误
func Code(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsValidation 判断是否为前置校验失败
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	return validationCodes[Code(err)]
}

// IsOperationFailure 判断是否为网关调用失败
func IsOperationFailure(err error) bool {
	return err != nil && !IsValidation(err)
}
