// Package processor 有状态的预处理流水线：缺失值、去重、划分、编码、缩放、异常值截断
package processor

import (
	"fmt"
	"sync"

	"DataPrep/src/dataset"
)

// Logger 流水线使用的日志接口，storage.Logger 满足该接口
type Logger interface {
	Info(message string)
	Warning(message string)
	Error(message string)
}

type nopLogger struct{}

func (nopLogger) Info(string)    {}
func (nopLogger) Warning(string) {}
func (nopLogger) Error(string)   {}

// Option 流水线配置项
type Option func(*Pipeline)

func WithTestSize(size float64) Option {
	return func(p *Pipeline) { p.opts.TestSize = size }
}

func WithSeed(seed int64) Option {
	return func(p *Pipeline) { p.opts.Seed = seed }
}

func WithClipFactor(k float64) Option {
	return func(p *Pipeline) { p.opts.ClipFactor = k }
}

// WithFrozenClipBounds 重复截断时沿用第一次计算的边界
func WithFrozenClipBounds(freeze bool) Option {
	return func(p *Pipeline) { p.opts.FreezeClipBounds = freeze }
}

// WithUnseenLabel 标签编码中测试集未见类别的编号
func WithUnseenLabel(code int) Option {
	return func(p *Pipeline) { p.opts.UnseenLabel = code }
}

func WithLogger(l Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pipeline 绑定一个数据集会话；每个步骤要么完整提交新状态，要么不改变任何状态
type Pipeline struct {
	mu     sync.RWMutex
	opts   Options
	state  State
	logger Logger
}

func NewPipeline(ds *dataset.Dataset, opts ...Option) *Pipeline {
	p := &Pipeline{
		opts:   DefaultOptions(),
		state:  State{Dataset: ds},
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run 执行一个步骤：panic 转为错误，校验列一致性，成功后才提交
func (p *Pipeline) run(step StepName, fn func(State, Options) (State, *Report, error)) (report *Report, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = &StepError{Code: CodeInternal, Step: step, Message: fmt.Sprint(r)}
		}
		if err != nil {
			p.logger.Error(fmt.Sprintf("步骤 %s 失败: %v", step, err))
		}
	}()

	next, report, err := fn(p.state, p.opts)
	if err != nil {
		return nil, err
	}
	if err := checkParity(step, next); err != nil {
		return nil, err
	}
	p.state = next

	if report.Skipped {
		p.logger.Info(fmt.Sprintf("步骤 %s 跳过: %s", step, report.Message))
	} else {
		p.logger.Info(fmt.Sprintf("步骤 %s 完成: %s", step, report.Message))
	}
	for _, w := range report.Warnings {
		p.logger.Warning(fmt.Sprintf("步骤 %s: %s", step, w))
	}
	return report, nil
}

// checkParity X_train 与 X_test 必须列名、列顺序完全一致
func checkParity(step StepName, st State) error {
	if st.Split == nil {
		return nil
	}
	a, b := st.Split.XTrain.Names(), st.Split.XTest.Names()
	if len(a) != len(b) {
		return &StepError{Code: CodeInternal, Step: step, Message: "train and test feature columns diverged"}
	}
	for i := range a {
		if a[i] != b[i] {
			return &StepError{Code: CodeInternal, Step: step, Column: a[i], Message: "train and test feature columns diverged"}
		}
	}
	return nil
}

// HandleMissingValues 填充当前数据集中的缺失值
func (p *Pipeline) HandleMissingValues(strategy FillStrategy) (*Report, error) {
	return p.run(StepMissingValues, func(st State, o Options) (State, *Report, error) {
		return handleMissing(st, o, strategy)
	})
}

// RemoveDuplicates 删除重复行
func (p *Pipeline) RemoveDuplicates() (*Report, error) {
	return p.run(StepDuplicates, removeDuplicates)
}

// TrainTestSplit 以 target 为标签划分训练/测试集；已拟合的编码器、缩放器随之清空
func (p *Pipeline) TrainTestSplit(target string) (*Report, error) {
	return p.run(StepSplit, func(st State, o Options) (State, *Report, error) {
		return trainTestSplit(st, o, target)
	})
}

// Encode 编码类别特征
func (p *Pipeline) Encode(method EncodingMethod) (*Report, error) {
	return p.run(StepEncode, func(st State, o Options) (State, *Report, error) {
		return encode(st, o, method)
	})
}

// Scale 缩放数值特征
func (p *Pipeline) Scale(method ScalingMethod) (*Report, error) {
	return p.run(StepScale, func(st State, o Options) (State, *Report, error) {
		return scale(st, o, method)
	})
}

// ClipOutliers IQR 截断数值特征
func (p *Pipeline) ClipOutliers() (*Report, error) {
	return p.run(StepClip, clipOutliers)
}

// State 返回当前状态快照
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st := p.state
	st.Encoders = copyMap(p.state.Encoders)
	st.ClipBounds = copyMap(p.state.ClipBounds)
	return st
}

func (p *Pipeline) Options() Options {
	return p.opts
}

func (p *Pipeline) Dataset() *dataset.Dataset {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Dataset
}

func (p *Pipeline) HasSplit() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Split != nil
}

// Split 返回划分结果的副本
func (p *Pipeline) Split() (Split, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state.Split == nil {
		return Split{}, false
	}
	return *p.state.Split, true
}

// Shapes 返回 X_train、X_test 的形状
func (p *Pipeline) Shapes() (train, test dataset.Shape, ok bool) {
	sp, ok := p.Split()
	if !ok {
		return train, test, false
	}
	return sp.TrainShape(), sp.TestShape(), true
}

func (p *Pipeline) Encoders() map[string]Encoder {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return copyMap(p.state.Encoders)
}

func (p *Pipeline) Scaler() Scaler {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Scaler
}

func (p *Pipeline) ClipBounds() map[string]Bounds {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return copyMap(p.state.ClipBounds)
}

func copyMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
