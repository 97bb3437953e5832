package processor

import (
	"DataPrep/src/dataset"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Split 训练/测试划分结果
type Split struct {
	Target string
	XTrain dataframe.DataFrame
	XTest  dataframe.DataFrame
	YTrain series.Series
	YTest  series.Series
}

func (s Split) TrainShape() dataset.Shape {
	r, c := s.XTrain.Dims()
	return dataset.Shape{Rows: r, Cols: c}
}

func (s Split) TestShape() dataset.Shape {
	r, c := s.XTest.Dims()
	return dataset.Shape{Rows: r, Cols: c}
}

// Bounds IQR 截断上下界
type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// State 流水线状态快照；步骤函数只读旧状态、返回新状态
type State struct {
	Dataset    *dataset.Dataset
	Split      *Split
	Encoders   map[string]Encoder
	Scaler     Scaler
	ClipBounds map[string]Bounds
}

// withSplit 返回划分替换后的状态，拟合过的编码器、缩放器与截断边界一并清空
func (s State) withSplit(sp *Split) State {
	return State{Dataset: s.Dataset, Split: sp}
}

// withFeatures 替换 X_train / X_test，其余保持
func (s State) withFeatures(train, test dataframe.DataFrame) State {
	sp := *s.Split
	sp.XTrain = train
	sp.XTest = test
	s.Split = &sp
	return s
}

// Options 流水线参数
type Options struct {
	TestSize         float64
	Seed             int64
	ClipFactor       float64
	FreezeClipBounds bool
	UnseenLabel      int
}

func DefaultOptions() Options {
	return Options{
		TestSize:    0.2,
		Seed:        42,
		ClipFactor:  1.5,
		UnseenLabel: -1,
	}
}
