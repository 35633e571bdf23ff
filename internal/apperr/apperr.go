// Package apperr 定义领域错误类型，HTTP 层据此映射状态码与提示文案
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别
type Kind int

const (
	KindUnknown      Kind = iota
	KindValidation        // 表单/参数校验失败
	KindUnauthorized      // 未登录或凭证无效
	KindNotFound          // 资源不存在
	KindUpstream          // 上游返回非 2xx
	KindNetwork           // 网络/传输失败
	KindUnrecognized      // 上游响应结构无法识别
	KindEmpty             // 上游响应为空
	KindGeolocation       // 定位不可用或被拒绝
	KindIdentity          // 身份服务错误
	KindRateLimited       // 请求过于频繁
	KindInternal          // 内部错误
)

// Error 带类别的领域错误
type Error struct {
	Kind    Kind
	Message string // 面向用户的提示
	Op      string
	Status  int // 上游 HTTP 状态码（仅 KindUpstream）
	Err     error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus 返回对应的 HTTP 状态码
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized, KindIdentity:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream, KindNetwork, KindUnrecognized, KindEmpty:
		return http.StatusBadGateway
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindGeolocation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// New 创建领域错误
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap 包装底层错误
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp 设置失败的操作名
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

func Validation(message string) *Error   { return New(KindValidation, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Internal(message string) *Error     { return New(KindInternal, message) }

// As 提取 *Error
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf 返回错误类别，非 *Error 返回 KindUnknown
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is 判断错误是否为指定类别
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
