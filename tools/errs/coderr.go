package errs

import (
	"errors"
	"fmt"
	"strconv"
)

// CodeError 带业务码的错误，最终会作为 Error 帧回给客户端。
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	s := strconv.Itoa(e.Code) + " " + e.Msg
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}

func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

func (e *CodeError) WrapMsg(format string, args ...any) error {
	return e.WithDetail(fmt.Sprintf(format, args...))
}

func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == e.Code
}

// Code 取出错误里携带的业务码；不是 CodeError 时返回 ServerErr。
func Code(err error) int {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeServer
}

const (
	CodeServer          = 500
	CodeNotLoggedIn     = 1002 // 未登录就发业务命令
	CodeAlreadyLoggedIn = 1003 // 同一连接重复 Login
	CodeStoreFailed     = 1101 // presence/消息存储不可用
	CodeSendRejected    = 1102 // 落库失败，消息未入队
)

var (
	ErrNotLoggedIn     = NewCodeError(CodeNotLoggedIn, "not logged in")
	ErrAlreadyLoggedIn = NewCodeError(CodeAlreadyLoggedIn, "already logged in")
	ErrStoreFailed     = NewCodeError(CodeStoreFailed, "store unavailable")
	ErrSendRejected    = NewCodeError(CodeSendRejected, "message not queued")
)

func New(msg string) error { return errors.New(msg) }
