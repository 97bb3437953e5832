package processor

import (
	"fmt"
	"math"

	"DataPrep/src/dataset"
	"DataPrep/src/utils"
)

// IQRBounds 由训练值计算 [Q1 - k*IQR, Q3 + k*IQR]
func IQRBounds(xs []float64, factor float64) Bounds {
	q1 := quantile(xs, 0.25)
	q3 := quantile(xs, 0.75)
	iqr := q3 - q1
	return Bounds{Lower: q1 - factor*iqr, Upper: q3 + factor*iqr}
}

func (b Bounds) clip(v float64) float64 {
	return math.Min(math.Max(v, b.Lower), b.Upper)
}

// clipOutliers 边界只由 X_train 计算，同时作用于 X_train 与 X_test
func clipOutliers(st State, opts Options) (State, *Report, error) {
	if st.Split == nil {
		return st, nil, ErrSplitRequired(StepClip)
	}
	cols := dataset.ColumnsOfKind(st.Split.XTrain, dataset.KindNumeric)
	if len(cols) == 0 {
		return st, skipped(StepClip, "No numeric columns to clip."), nil
	}
	for _, c := range cols {
		if !utils.HasColumn(st.Split.XTest, c) {
			return st, nil, ErrColumnNotFound(StepClip, c)
		}
	}

	// 1. 计算边界；冻结模式下沿用第一次的边界
	bounds := make(map[string]Bounds, len(cols))
	var clipped []string
	var warnings []string
	for _, c := range cols {
		if prev, ok := st.ClipBounds[c]; ok && opts.FreezeClipBounds {
			bounds[c] = prev
			clipped = append(clipped, c)
			continue
		}
		xs := observed(st.Split.XTrain.Col(c))
		if len(xs) == 0 {
			warnings = append(warnings, fmt.Sprintf("column %q has no observed training values, left unchanged", c))
			continue
		}
		bounds[c] = IQRBounds(xs, opts.ClipFactor)
		clipped = append(clipped, c)
	}

	// 2. 统计并截断
	counts := make(map[string]int, len(clipped))
	for _, c := range clipped {
		b := bounds[c]
		for _, xs := range [][]float64{observed(st.Split.XTrain.Col(c)), observed(st.Split.XTest.Col(c))} {
			for _, v := range xs {
				if v < b.Lower || v > b.Upper {
					counts[c]++
				}
			}
		}
	}
	clip := func(col string, v float64) float64 { return bounds[col].clip(v) }
	train := transformFrame(st.Split.XTrain, clipped, clip)
	test := transformFrame(st.Split.XTest, clipped, clip)
	if train.Err != nil || test.Err != nil {
		return st, nil, fmt.Errorf("clip columns: %v %v", train.Err, test.Err)
	}

	next := st.withFeatures(train, test)
	next.ClipBounds = bounds
	return next, &Report{
		Step:     StepClip,
		Status:   StatusSuccess,
		Message:  "Outlier handling applied using IQR clipping.",
		Columns:  clipped,
		Clipped:  counts,
		Warnings: warnings,
	}, nil
}
