package processor

import (
	"errors"
	"fmt"
)

// 错误码
const (
	CodeColumnNotFound    = "COLUMN_NOT_FOUND"
	CodePreconditionUnmet = "PRECONDITION_UNMET"
	CodeEmptySelection    = "EMPTY_SELECTION"
	CodeInternal          = "INTERNAL_ERROR"
)

// StepError 步骤错误，带错误码、所属步骤与相关列
type StepError struct {
	Code    string
	Step    StepName
	Column  string
	Message string
}

func (e *StepError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("[%s] %s: %s (column %q)", e.Code, e.Step, e.Message, e.Column)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Step, e.Message)
}

func newStepError(code string, step StepName, msg string) *StepError {
	return &StepError{Code: code, Step: step, Message: msg}
}

// ErrColumnNotFound 指定列不存在
func ErrColumnNotFound(step StepName, column string) *StepError {
	return &StepError{Code: CodeColumnNotFound, Step: step, Column: column, Message: "column not found"}
}

// ErrSplitRequired 需要先执行训练/测试划分
func ErrSplitRequired(step StepName) *StepError {
	return newStepError(CodePreconditionUnmet, step, "Run Train-Test Split first.")
}

func codeOf(err error) string {
	var se *StepError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func IsColumnNotFound(err error) bool {
	return codeOf(err) == CodeColumnNotFound
}

func IsPreconditionUnmet(err error) bool {
	return codeOf(err) == CodePreconditionUnmet
}

// IsEmptySelection 无可处理的列；这是提示信息而非失败
func IsEmptySelection(err error) bool {
	return codeOf(err) == CodeEmptySelection
}

func IsInternal(err error) bool {
	return codeOf(err) == CodeInternal
}
