package errors

import (
	"errors"
	"fmt"
)

// ── 领域错误分类 ──

var (
	// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

	// ErrValidation 时间格式、星期、起止时间等输入非法
	ErrValidation = errors.New("validation error")
	// ErrLookupFailure 科目 / 辅导组无法被数据源解析（不存在或临时故障）
	ErrLookupFailure = errors.New("lookup failure")
	// ErrAssemblyFailure 整个课表生成无法进行（数据源对所有请求均不可达）
	ErrAssemblyFailure = errors.New("assembly failure")
)

// ValidationError 携带字段信息的校验错误，errors.Is(err, ErrValidation) 为 true
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

// NewValidationError 创建 ValidationError
func NewValidationError(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Unwrap 让 errors.Is 能匹配到 ErrValidation
func (e *ValidationError) Unwrap() error { return ErrValidation }

// LookupFailed 包装数据源错误为 LookupFailure
func LookupFailed(what, id string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s %s", ErrLookupFailure, what, id)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrLookupFailure, what, id, cause)
}
