package processor

import (
	"fmt"
	"math"

	"DataPrep/src/dataset"
	"DataPrep/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Scaler 已拟合的数值缩放器，参数只来自 X_train
type Scaler interface {
	Method() ScalingMethod
	Columns() []string
	// Transform 缩放单个值，缺失值原样返回
	Transform(column string, v float64) float64
}

// ColumnScale 单列的平移与缩放：(v - Shift) / Scale
type ColumnScale struct {
	Shift float64 `json:"shift"`
	Scale float64 `json:"scale"`
}

type fittedScaler struct {
	method  ScalingMethod
	columns []string
	params  map[string]ColumnScale
}

func (s *fittedScaler) Method() ScalingMethod { return s.method }
func (s *fittedScaler) Columns() []string     { return append([]string(nil), s.columns...) }

// Params 返回某列的缩放参数
func (s *fittedScaler) Params(column string) (ColumnScale, bool) {
	p, ok := s.params[column]
	return p, ok
}

func (s *fittedScaler) Transform(column string, v float64) float64 {
	p, ok := s.params[column]
	if !ok || math.IsNaN(v) {
		return v
	}
	return (v - p.Shift) / p.Scale
}

// StandardScaler 减均值除以总体标准差
type StandardScaler struct{ fittedScaler }

// MinMaxScaler 映射到 [0,1]
type MinMaxScaler struct{ fittedScaler }

// FitScaler 在训练集的数值列上拟合
func FitScaler(method ScalingMethod, train dataframe.DataFrame, columns []string) Scaler {
	params := make(map[string]ColumnScale, len(columns))
	for _, c := range columns {
		xs := observed(train.Col(c))
		params[c] = fitColumn(method, xs)
	}
	base := fittedScaler{method: method, columns: append([]string(nil), columns...), params: params}
	if method == MinMaxScaling {
		return &MinMaxScaler{base}
	}
	return &StandardScaler{base}
}

func fitColumn(method ScalingMethod, xs []float64) ColumnScale {
	if len(xs) == 0 {
		return ColumnScale{Shift: 0, Scale: 1}
	}
	if method == MinMaxScaling {
		lo, hi := xs[0], xs[0]
		for _, x := range xs[1:] {
			lo = math.Min(lo, x)
			hi = math.Max(hi, x)
		}
		return ColumnScale{Shift: lo, Scale: unitIfZero(hi - lo)}
	}
	m, sd := popStd(xs)
	return ColumnScale{Shift: m, Scale: unitIfZero(sd)}
}

func unitIfZero(v float64) float64 {
	if v == 0 || math.IsNaN(v) {
		return 1
	}
	return v
}

// applyColumn 对一列逐值变换，输出浮点列，缺失值保持缺失
func applyColumn(col series.Series, fn func(float64) float64) series.Series {
	values := make([]float64, col.Len())
	for i := range values {
		e := col.Elem(i)
		if e.IsNA() {
			values[i] = math.NaN()
			continue
		}
		values[i] = fn(e.Float())
	}
	return series.New(values, series.Float, col.Name)
}

func transformFrame(df dataframe.DataFrame, columns []string, fn func(col string, v float64) float64) dataframe.DataFrame {
	for _, c := range columns {
		name := c
		df = df.Mutate(applyColumn(df.Col(name), func(v float64) float64 { return fn(name, v) }))
		if df.Err != nil {
			return df
		}
	}
	return df
}

// scale 在 X_train 上拟合，同一参数变换 X_train 与 X_test
func scale(st State, _ Options, method ScalingMethod) (State, *Report, error) {
	if st.Split == nil {
		return st, nil, ErrSplitRequired(StepScale)
	}
	cols := dataset.ColumnsOfKind(st.Split.XTrain, dataset.KindNumeric)
	if len(cols) == 0 {
		return st, skipped(StepScale, "No numeric columns to scale."), nil
	}
	for _, c := range cols {
		if !utils.HasColumn(st.Split.XTest, c) {
			return st, nil, ErrColumnNotFound(StepScale, c)
		}
	}

	scaler := FitScaler(method, st.Split.XTrain, cols)
	train := transformFrame(st.Split.XTrain, cols, scaler.Transform)
	test := transformFrame(st.Split.XTest, cols, scaler.Transform)
	if train.Err != nil || test.Err != nil {
		return st, nil, fmt.Errorf("scale columns: %v %v", train.Err, test.Err)
	}

	next := st.withFeatures(train, test)
	next.Scaler = scaler
	return next, &Report{
		Step:    StepScale,
		Status:  StatusSuccess,
		Message: fmt.Sprintf("%s applied successfully.", method),
		Method:  method.String(),
		Columns: cols,
	}, nil
}
