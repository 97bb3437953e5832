package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Config 结构体定义了应用程序的配置结构，支持 JSON 与 YAML
type Config struct {
	DataDir    string `json:"data_dir" yaml:"data_dir"`         // 附件、导出文件目录
	LogName    string `json:"log_name" yaml:"log_name"`         // 日志文件
	LogMaxSize string `json:"log_max_size" yaml:"log_max_size"` // 轮转阈值，形如 "10 * 1024 * 1024"
	LogLevel   string `json:"log_level" yaml:"log_level"`
	WebAddr    string `json:"web_addr" yaml:"web_addr"`

	Dataset  DatasetConfig  `json:"dataset" yaml:"dataset"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline"`
	Watch    WatchConfig    `json:"watch" yaml:"watch"`
	Email    EmailConfig    `json:"email" yaml:"email"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Push     PushConfig     `json:"push" yaml:"push"`
}

// DatasetConfig 数据集读取参数
type DatasetConfig struct {
	Path      string   `json:"path" yaml:"path"`
	SheetName string   `json:"sheet_name" yaml:"sheet_name"` // xlsx 工作表，空则取第一个
	HeaderRow int      `json:"header_row" yaml:"header_row"` // xlsx 表头所在行（从 0 开始）
	Encoding  string   `json:"encoding" yaml:"encoding"`     // utf-8 / gbk
	Delimiter string   `json:"delimiter" yaml:"delimiter"`
	NaNValues []string `json:"nan_values" yaml:"nan_values"`
}

// PipelineConfig 流水线参数
type PipelineConfig struct {
	TestSize         float64 `json:"test_size" yaml:"test_size"`
	RandomSeed       int64   `json:"random_seed" yaml:"random_seed"`
	ClipFactor       float64 `json:"clip_factor" yaml:"clip_factor"`
	FreezeClipBounds bool    `json:"freeze_clip_bounds" yaml:"freeze_clip_bounds"`
	UnseenLabel      *int    `json:"unseen_label" yaml:"unseen_label"`
}

// WatchConfig 数据源变化检测
type WatchConfig struct {
	Enabled       bool     `json:"enabled" yaml:"enabled"`
	CheckInterval Duration `json:"check_interval" yaml:"check_interval"`
}

type EmailConfig struct {
	Server        string   `json:"server" yaml:"server"`                 // 邮件服务器地址
	Username      string   `json:"username" yaml:"username"`             // 邮箱用户名
	Password      string   `json:"password" yaml:"password"`             // 邮箱密码
	TargetSubject string   `json:"target_subject" yaml:"target_subject"` // 需要匹配的邮件主题
	CheckInterval Duration `json:"check_interval" yaml:"check_interval"` // 检查新邮件的间隔时间
}

type DatabaseConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
	Query  string `json:"query" yaml:"query"`
}

// PushConfig 钉钉群机器人
type PushConfig struct {
	Webhook string `json:"webhook" yaml:"webhook"`
	Secret  string `json:"secret" yaml:"secret"`
}

// 可覆盖配置的环境变量
const (
	EnvDatasetPath   = "DATAPREP_DATASET_PATH"
	EnvEmailPassword = "DATAPREP_EMAIL_PASSWORD"
	EnvDatabaseDSN   = "DATAPREP_DB_DSN"
	EnvPushWebhook   = "DATAPREP_PUSH_WEBHOOK"
	EnvPushSecret    = "DATAPREP_PUSH_SECRET"
)

var (
	once     sync.Once
	instance *Config
	loadErr  error
)

// LoadConfig 只加载一次，之后返回同一实例
func LoadConfig(folder, file, envFile string) (*Config, error) {
	once.Do(func() {
		instance, loadErr = Load(folder, file, envFile)
	})
	return instance, loadErr
}

// Load 并发读取配置文件与 .env 文件，合并后校验
func Load(folder, file, envFile string) (*Config, error) {
	configFile := filepath.Join(folder, file)

	var (
		cfg *Config
		env map[string]string
	)
	var g errgroup.Group
	g.Go(func() error {
		data, err := readFile(configFile)
		if err != nil {
			return fmt.Errorf("读取配置文件失败: %w", err)
		}
		cfg, err = parseConfig(configFile, data)
		return err
	})
	g.Go(func() error {
		if envFile == "" {
			return nil
		}
		m, err := godotenv.Read(filepath.Join(folder, envFile))
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("读取环境变量文件失败: %w", err)
		}
		env = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	cfg.applyEnv(env)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

// parseConfig 按扩展名选择 YAML 或 JSON
func parseConfig(name string, data []byte) (*Config, error) {
	var cfg Config
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("解析YAML配置失败: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("解析JSON配置失败: %w", err)
		}
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.LogName == "" {
		c.LogName = "app.log"
	}
	if c.LogMaxSize == "" {
		c.LogMaxSize = "10 * 1024 * 1024"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.WebAddr == "" {
		c.WebAddr = ":8080"
	}
	if len(c.Dataset.NaNValues) == 0 {
		c.Dataset.NaNValues = []string{"", "NA", "NaN", "null", "<nil>"}
	}
	if c.Dataset.Delimiter == "" {
		c.Dataset.Delimiter = ","
	}
	if c.Pipeline.TestSize == 0 {
		c.Pipeline.TestSize = 0.2
	}
	if c.Pipeline.RandomSeed == 0 {
		c.Pipeline.RandomSeed = 42
	}
	if c.Pipeline.ClipFactor == 0 {
		c.Pipeline.ClipFactor = 1.5
	}
	if c.Pipeline.UnseenLabel == nil {
		unseen := -1
		c.Pipeline.UnseenLabel = &unseen
	}
	if c.Watch.CheckInterval == 0 {
		c.Watch.CheckInterval = Duration(30 * time.Second)
	}
	if c.Email.CheckInterval == 0 {
		c.Email.CheckInterval = Duration(5 * time.Minute)
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
}

// applyEnv 进程环境变量优先于 .env 文件
func (c *Config) applyEnv(file map[string]string) {
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}
	targets := map[string]*string{
		EnvDatasetPath:   &c.Dataset.Path,
		EnvEmailPassword: &c.Email.Password,
		EnvDatabaseDSN:   &c.Database.DSN,
		EnvPushWebhook:   &c.Push.Webhook,
		EnvPushSecret:    &c.Push.Secret,
	}
	for key, dst := range targets {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
}

// Validate 校验取值范围
func (c *Config) Validate() error {
	var errs []error
	if c.Pipeline.TestSize <= 0 || c.Pipeline.TestSize >= 1 {
		errs = append(errs, fmt.Errorf("pipeline.test_size 必须在 (0,1) 之间: %v", c.Pipeline.TestSize))
	}
	if c.Pipeline.ClipFactor <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.clip_factor 必须为正数: %v", c.Pipeline.ClipFactor))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warning", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("未知日志级别: %s", c.LogLevel))
	}
	if c.Watch.Enabled && c.Watch.CheckInterval.Duration() <= 0 {
		errs = append(errs, fmt.Errorf("watch.check_interval 必须为正数"))
	}
	return combineErrors(errs)
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	// 使用固定格式字符串
	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON/YAML序列化和反序列化
type Duration time.Duration

func (d Duration) Duration() time.Duration { return time.Duration(d) }

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.set(s)
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalYAML 实现yaml.Unmarshaler接口
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.set(s)
}

func (d *Duration) set(s string) error {
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}
