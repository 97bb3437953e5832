// Package session 绑定一个数据集与一条处理流水线，数据源内容变化时整体替换。
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"DataPrep/src/config"
	"DataPrep/src/dataset"
	"DataPrep/src/processor"
	"DataPrep/src/utils"

	"github.com/google/uuid"
)

// Notifier 步骤完成后的外部通知，例如钉钉群机器人
type Notifier interface {
	Notify(ctx context.Context, title, text string) error
}

// Entry 一条命令执行记录
type Entry struct {
	Time    time.Time         `json:"time"`
	Command string            `json:"command"`
	Report  *processor.Report `json:"report,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type Option func(*Session)

func WithLogger(l processor.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func WithNotifier(n Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// WithPipelineOptions 每次新建流水线都使用的参数
func WithPipelineOptions(opts ...processor.Option) Option {
	return func(s *Session) { s.pipelineOpts = append(s.pipelineOpts, opts...) }
}

// Session 当前数据集会话
type Session struct {
	mu           sync.RWMutex
	id           string
	started      time.Time
	pipeline     *processor.Pipeline
	pipelineOpts []processor.Option
	history      []Entry
	logger       processor.Logger
	notifier     Notifier
}

func New(ds *dataset.Dataset, opts ...Option) *Session {
	s := &Session{logger: nopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	s.reset(ds)
	return s
}

// reset 新建流水线并清空历史，调用方持有写锁或处于构造阶段
func (s *Session) reset(ds *dataset.Dataset) {
	popts := append([]processor.Option{processor.WithLogger(s.logger)}, s.pipelineOpts...)
	s.id = uuid.NewString()
	s.started = time.Now()
	s.pipeline = processor.NewPipeline(ds, popts...)
	s.history = nil
}

// Check 数据集与当前会话内容不同则开启新会话，返回是否替换
func (s *Session) Check(ds *dataset.Dataset) bool {
	if ds == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pipeline.Dataset().Equal(ds) {
		return false
	}
	old := s.id
	s.reset(ds)
	s.logger.Info(fmt.Sprintf("数据集已变化(%s)，会话 %s 替换为 %s", ds.Provenance().Source, old, s.id))
	return true
}

func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *Session) Pipeline() *processor.Pipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pipeline
}

func (s *Session) History() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.history...)
}

func (s *Session) record(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, e)
}

// Summary /state 接口返回的会话概况
type Summary struct {
	ID         string                `json:"id"`
	Started    time.Time             `json:"started"`
	Source     dataset.Provenance    `json:"source"`
	Shape      dataset.Shape         `json:"shape"`
	Columns    []dataset.ColumnInfo  `json:"columns"`
	Missing    []dataset.ColumnCount `json:"missing,omitempty"`
	Duplicates int                   `json:"duplicates"`
	HasSplit   bool                  `json:"has_split"`
	Target     string                `json:"target,omitempty"`
	TrainShape *dataset.Shape        `json:"train_shape,omitempty"`
	TestShape  *dataset.Shape        `json:"test_shape,omitempty"`
	Encoders   []string              `json:"encoders,omitempty"`
	Scaler     string                `json:"scaler,omitempty"`
	History    []Entry               `json:"history"`
}

func (s *Session) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.pipeline.State()
	ds := st.Dataset
	sum := Summary{
		ID:       s.id,
		Started:  s.started,
		History:  append([]Entry{}, s.history...),
		HasSplit: st.Split != nil,
	}
	if ds != nil {
		sum.Source = ds.Provenance()
		sum.Shape = ds.Shape()
		sum.Columns = ds.Columns()
		sum.Missing = ds.MissingCounts()
		sum.Duplicates = ds.DuplicateCount()
	}
	if sp := st.Split; sp != nil {
		train, test := sp.TrainShape(), sp.TestShape()
		sum.Target = sp.Target
		sum.TrainShape, sum.TestShape = &train, &test
	}
	for _, col := range utils.SortedKeys(st.Encoders) {
		sum.Encoders = append(sum.Encoders, fmt.Sprintf("%s:%s", col, st.Encoders[col].Method()))
	}
	if st.Scaler != nil {
		sum.Scaler = st.Scaler.Method().String()
	}
	return sum
}

// OptionsFromConfig 配置文件中的流水线参数
func OptionsFromConfig(c config.PipelineConfig) []processor.Option {
	var opts []processor.Option
	if c.TestSize > 0 {
		opts = append(opts, processor.WithTestSize(c.TestSize))
	}
	opts = append(opts, processor.WithSeed(c.RandomSeed))
	if c.ClipFactor > 0 {
		opts = append(opts, processor.WithClipFactor(c.ClipFactor))
	}
	opts = append(opts, processor.WithFrozenClipBounds(c.FreezeClipBounds))
	if c.UnseenLabel != nil {
		opts = append(opts, processor.WithUnseenLabel(*c.UnseenLabel))
	}
	return opts
}

type nopLogger struct{}

func (nopLogger) Info(string)    {}
func (nopLogger) Warning(string) {}
func (nopLogger) Error(string)   {}
