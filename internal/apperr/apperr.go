// Package apperr 定义业务层错误分类，HTTP 层据此映射状态码。
package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类别。
type Kind int

const (
	KindInternal        Kind = iota // 未预期的存储或逻辑错误
	KindUnauthenticated             // 缺失/无效/过期的凭证
	KindForbidden                   // 已认证但不是资源所有者
	KindNotFound                    // 资源不存在（对当前所有者而言）
	KindConflict                    // 唯一字段冲突
	KindValidation                  // 输入格式或长度不合法
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// Error 是带类别的业务错误。
//
// Message 面向调用方，Err 仅用于日志，不会返回给客户端。
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New 创建指定类别的错误。
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Unauthenticated(op, message string) *Error {
	return New(KindUnauthenticated, op, message)
}

func Forbidden(op, message string) *Error {
	return New(KindForbidden, op, message)
}

func NotFound(op, message string) *Error {
	return New(KindNotFound, op, message)
}

func Conflict(op, message string) *Error {
	return New(KindConflict, op, message)
}

func Validation(op, message string) *Error {
	return New(KindValidation, op, message)
}

// Internal 包装底层错误，对外只暴露通用消息。
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Message: "internal error", Err: err}
}

// KindOf 返回错误类别；非 *Error 一律视为 KindInternal。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is 判断错误是否属于指定类别。
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// MessageOf 返回可以安全展示给客户端的消息。
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal && e.Message != "" {
		return e.Message
	}
	return "internal error"
}
