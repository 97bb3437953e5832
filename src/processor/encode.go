package processor

import (
	"fmt"

	"DataPrep/src/dataset"
	"DataPrep/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// missingToken 标签编码时缺失值作为一个独立类别
const missingToken = "NaN"

// Encoder 已拟合的单列编码器
type Encoder interface {
	Column() string
	Method() EncodingMethod
}

// LabelEncoder 类别按字典序编号 0..k-1，类别集合只来自训练集
type LabelEncoder struct {
	column  string
	Classes []string
	index   map[string]int
}

func labelToken(e series.Element) string {
	if e.IsNA() {
		return missingToken
	}
	return e.String()
}

// FitLabelEncoder 在训练列上拟合
func FitLabelEncoder(col series.Series) *LabelEncoder {
	seen := make(map[string]struct{})
	for i := 0; i < col.Len(); i++ {
		seen[labelToken(col.Elem(i))] = struct{}{}
	}
	classes := utils.SortedKeys(seen)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &LabelEncoder{column: col.Name, Classes: classes, index: index}
}

func (e *LabelEncoder) Column() string         { return e.column }
func (e *LabelEncoder) Method() EncodingMethod { return LabelEncoding }

// Code 返回类别编号
func (e *LabelEncoder) Code(value string) (int, bool) {
	c, ok := e.index[value]
	return c, ok
}

// Transform 编码一列，未见过的类别记为 unseen
func (e *LabelEncoder) Transform(col series.Series, unseen int) series.Series {
	codes := make([]int, col.Len())
	for i := range codes {
		c, ok := e.index[labelToken(col.Elem(i))]
		if !ok {
			c = unseen
		}
		codes[i] = c
	}
	return series.New(codes, series.Int, col.Name)
}

// OneHotEncoder 记录某列的全部水平与被丢弃的第一个水平
type OneHotEncoder struct {
	column  string
	Levels  []string
	Dropped string
}

func (e *OneHotEncoder) Column() string         { return e.column }
func (e *OneHotEncoder) Method() EncodingMethod { return OneHotEncoding }

// OutputColumns 生成的指示列名
func (e *OneHotEncoder) OutputColumns() []string {
	if len(e.Levels) <= 1 {
		return nil
	}
	out := make([]string, 0, len(e.Levels)-1)
	for _, lv := range e.Levels[1:] {
		out = append(out, indicatorName(e.column, lv))
	}
	return out
}

func indicatorName(column, level string) string {
	return column + "_" + level
}

func fitOneHot(col series.Series) *OneHotEncoder {
	seen := make(map[string]struct{})
	for i := 0; i < col.Len(); i++ {
		e := col.Elem(i)
		if e.IsNA() {
			continue
		}
		seen[e.String()] = struct{}{}
	}
	levels := utils.SortedKeys(seen)
	enc := &OneHotEncoder{column: col.Name, Levels: levels}
	if len(levels) > 0 {
		enc.Dropped = levels[0]
	}
	return enc
}

// indicators 为除第一个水平外的每个水平生成布尔列；缺失值全部为 false
func (e *OneHotEncoder) indicators(col series.Series) []series.Series {
	if len(e.Levels) <= 1 {
		return nil
	}
	out := make([]series.Series, 0, len(e.Levels)-1)
	for _, lv := range e.Levels[1:] {
		flags := make([]bool, col.Len())
		for i := range flags {
			el := col.Elem(i)
			flags[i] = !el.IsNA() && el.String() == lv
		}
		out = append(out, series.New(flags, series.Bool, indicatorName(e.column, lv)))
	}
	return out
}

// encode 编码 X_train / X_test 中的全部类别列，重复执行会丢弃之前拟合的编码器
func encode(st State, opts Options, method EncodingMethod) (State, *Report, error) {
	if st.Split == nil {
		return st, nil, ErrSplitRequired(StepEncode)
	}
	cats := dataset.ColumnsOfKind(st.Split.XTrain, dataset.KindCategorical)
	if len(cats) == 0 {
		return st, skipped(StepEncode, "No categorical columns to encode."), nil
	}
	for _, c := range cats {
		if !utils.HasColumn(st.Split.XTest, c) {
			return st, nil, ErrColumnNotFound(StepEncode, c)
		}
	}

	if method == OneHotEncoding {
		return encodeOneHot(st, cats)
	}
	return encodeLabel(st, opts, cats)
}

func encodeLabel(st State, opts Options, cats []string) (State, *Report, error) {
	train, test := st.Split.XTrain, st.Split.XTest
	encoders := make(map[string]Encoder, len(cats))
	unseen := 0
	for _, c := range cats {
		enc := FitLabelEncoder(train.Col(c))
		testCol := test.Col(c)
		for i := 0; i < testCol.Len(); i++ {
			if _, ok := enc.Code(labelToken(testCol.Elem(i))); !ok {
				unseen++
			}
		}
		train = train.Mutate(enc.Transform(train.Col(c), opts.UnseenLabel))
		test = test.Mutate(enc.Transform(testCol, opts.UnseenLabel))
		if train.Err != nil || test.Err != nil {
			return st, nil, fmt.Errorf("encode column %s: %v %v", c, train.Err, test.Err)
		}
		encoders[c] = enc
	}

	next := st.withFeatures(train, test)
	next.Encoders = encoders
	report := &Report{
		Step:    StepEncode,
		Status:  StatusSuccess,
		Message: "Label Encoding applied.",
		Method:  LabelEncoding.String(),
		Columns: cats,
	}
	if unseen > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d test values were not seen in training and were encoded as %d", unseen, opts.UnseenLabel))
	}
	return next, report, nil
}

// encodeOneHot 训练集与测试集拼接后统一生成指示列，再按原行数切回两部分。
// 列集合由两部分共同决定，测试集独有的类别也会出现在训练集的列中，这是已知的信息泄露点。
func encodeOneHot(st State, cats []string) (State, *Report, error) {
	nTrain := st.Split.XTrain.Nrow()
	combined := st.Split.XTrain.RBind(st.Split.XTest)
	if combined.Err != nil {
		return st, nil, fmt.Errorf("combine train and test: %w", combined.Err)
	}
	total := combined.Nrow()

	var cols []series.Series
	for _, name := range combined.Names() {
		if !utils.Contains(cats, name) {
			cols = append(cols, combined.Col(name))
		}
	}
	encoders := make(map[string]Encoder, len(cats))
	for _, c := range cats {
		enc := fitOneHot(combined.Col(c))
		cols = append(cols, enc.indicators(combined.Col(c))...)
		encoders[c] = enc
	}
	if len(cols) == 0 {
		return st, nil, newStepError(CodePreconditionUnmet, StepEncode, "encoding would leave no feature columns")
	}

	out := dataframe.New(cols...)
	if out.Err != nil {
		return st, nil, fmt.Errorf("build encoded frame: %w", out.Err)
	}
	train := out.Subset(utils.SeqInts(0, nTrain))
	test := out.Subset(utils.SeqInts(nTrain, total))
	if train.Err != nil || test.Err != nil {
		return st, nil, fmt.Errorf("split encoded frame: %v %v", train.Err, test.Err)
	}

	next := st.withFeatures(train, test)
	next.Encoders = encoders
	return next, &Report{
		Step:     StepEncode,
		Status:   StatusSuccess,
		Message:  "One-Hot Encoding applied.",
		Method:   OneHotEncoding.String(),
		Columns:  cats,
		Warnings: []string{"one-hot columns were derived from train and test categories combined"},
	}, nil
}
