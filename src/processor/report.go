package processor

import (
	"fmt"
	"strings"

	"DataPrep/src/dataset"
)

// StepName 步骤名称
type StepName string

const (
	StepMissingValues StepName = "missing_values"
	StepDuplicates    StepName = "remove_duplicates"
	StepSplit         StepName = "train_test_split"
	StepEncode        StepName = "encoding"
	StepScale         StepName = "scaling"
	StepClip          StepName = "outlier_clipping"
)

// Status 步骤结果状态
type Status string

const (
	StatusSuccess Status = "success"
	StatusInfo    Status = "info"
	StatusWarning Status = "warning"
)

// Report 每个步骤返回给展示层的结果
type Report struct {
	Step    StepName `json:"step"`
	Status  Status   `json:"status"`
	Message string   `json:"message"`
	Method  string   `json:"method,omitempty"`

	// 受影响的列
	Columns []string `json:"columns,omitempty"`
	// 缺失值处理前各列缺失数（只列出非零列）
	MissingCounts []dataset.ColumnCount `json:"missing_counts,omitempty"`
	// 去重删除的行数
	Removed int `json:"removed,omitempty"`
	// 划分后的形状
	TrainShape *dataset.Shape `json:"train_shape,omitempty"`
	TestShape  *dataset.Shape `json:"test_shape,omitempty"`
	// 截断的单元格数（训练集 + 测试集）
	Clipped map[string]int `json:"clipped,omitempty"`

	Warnings []string `json:"warnings,omitempty"`

	// Skipped 为 true 时数据未改变，Reason 说明原因
	Skipped bool  `json:"skipped,omitempty"`
	Reason  error `json:"-"`
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", r.Status, r.Message)
	if r.TrainShape != nil && r.TestShape != nil {
		fmt.Fprintf(&b, " Train shape: %s, Test shape: %s", r.TrainShape, r.TestShape)
	}
	for _, c := range r.MissingCounts {
		fmt.Fprintf(&b, "\n  %s: %d missing (%.2f%%)", c.Column, c.Count, c.Percent)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "\n  warning: %s", w)
	}
	return b.String()
}

func skipped(step StepName, msg string) *Report {
	return &Report{
		Step:    step,
		Status:  StatusInfo,
		Message: msg,
		Skipped: true,
		Reason:  newStepError(CodeEmptySelection, step, msg),
	}
}
