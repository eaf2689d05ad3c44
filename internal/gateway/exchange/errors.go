package exchange

import (
	"errors"
	"fmt"
)

// Kind 对网关错误做粗粒度分类，调用方按 Kind 决定重试或放弃。
type Kind int

const (
	KindTransient Kind = iota
	KindRejected
	KindNotFound
	KindAuth
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRejected:
		return "rejected"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Op   string
	Code int64
	Err  error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (code=%d): %v", e.Op, e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrCircuitOpen 熔断期间的快速失败，属于 KindTransient。
var ErrCircuitOpen = errors.New("exchange circuit open")

func NewError(kind Kind, op string, code int64, err error) *Error {
	return &Error{Kind: kind, Op: op, Code: code, Err: err}
}

// KindOf 返回错误分类；未分类的错误视为 KindTransient。
func KindOf(err error) Kind {
	if err == nil {
		return KindTransient
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}
