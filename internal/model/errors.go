package model

import (
	"errors"
	"fmt"
)

// 错误分类：NotFound / Conversion 对该条日志致命，上游必须停住告警；
// Transaction / ChainAccessor 可用同一条日志重试（所有写入要么幂等要么按键精确一次）。

// NotFoundError 日志引用的 market / order / token 行不存在
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// ConversionError 定点数字段解析或换算失败
type ConversionError struct {
	Field string
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s: %v", e.Field, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// TransactionError 存储不可用或约束冲突，可重试
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// ChainAccessorError 链上状态读取失败，可重试
type ChainAccessorError struct {
	Op  string
	Err error
}

func (e *ChainAccessorError) Error() string {
	return fmt.Sprintf("chain accessor %s: %v", e.Op, e.Err)
}

func (e *ChainAccessorError) Unwrap() error { return e.Err }

// IsRetryable 判断错误是否可用同一条日志重试
func IsRetryable(err error) bool {
	var txErr *TransactionError
	var chainErr *ChainAccessorError
	return errors.As(err, &txErr) || errors.As(err, &chainErr)
}
