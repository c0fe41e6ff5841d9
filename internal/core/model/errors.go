package model

import (
	"errors"
	"fmt"
	"io"

	pkgerrors "github.com/pkg/errors"
)

// ValidationError 请求参数错误，在任何探测开始之前返回
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError 创建参数错误
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError 判断是否为参数错误
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AggregateFailure 结果汇总阶段的意外错误，整个请求失败
type AggregateFailure struct {
	Cause error
}

func (e *AggregateFailure) Error() string {
	return "aggregate failure: " + e.Cause.Error()
}

func (e *AggregateFailure) Unwrap() error {
	return e.Cause
}

// Format %+v 输出底层错误的调用栈
func (e *AggregateFailure) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "aggregate failure: %+v", e.Cause)
		return
	}
	io.WriteString(s, e.Error())
}

// NewAggregateFailure 创建汇总错误，附带调用栈
func NewAggregateFailure(format string, args ...interface{}) *AggregateFailure {
	return &AggregateFailure{Cause: pkgerrors.Errorf(format, args...)}
}

// WrapAggregateFailure 包装底层错误为汇总错误
func WrapAggregateFailure(err error, msg string) *AggregateFailure {
	return &AggregateFailure{Cause: pkgerrors.Wrap(err, msg)}
}

// IsAggregateFailure 判断是否为汇总错误
func IsAggregateFailure(err error) bool {
	var af *AggregateFailure
	return errors.As(err, &af)
}

// 探测阶段的失败原因，只用于日志，端口一律判定为 closed
var (
	ErrProbeTimeout = errors.New("probe timeout")
	ErrProbeFailed  = errors.New("probe error")
)
