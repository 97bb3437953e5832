package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"DataPrep/src/dataset"
	"DataPrep/src/datasource/file"

	"github.com/robfig/cron"
)

// Loader 重新读取绑定的数据源
type Loader func() (*dataset.Dataset, error)

// Watcher 定时或在文件变化时重新读取数据源，并交给会话判断是否替换
type Watcher struct {
	session *Session
	load    Loader
	logger  interface {
		Info(string)
		Error(string)
	}

	mu      sync.Mutex
	cron    *cron.Cron
	monitor *file.FileMonitor
	cancel  context.CancelFunc
}

func NewWatcher(s *Session, load Loader) *Watcher {
	return &Watcher{session: s, load: load, logger: s.logger}
}

// Reload 读取一次数据源；读取失败时保留当前会话
func (w *Watcher) Reload() (bool, error) {
	ds, err := w.load()
	if err != nil {
		w.logger.Error(fmt.Sprintf("重新读取数据源失败: %v", err))
		return false, err
	}
	return w.session.Check(ds), nil
}

// Schedule 按固定间隔检查数据源
func (w *Watcher) Schedule(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("检查间隔必须大于 0")
	}
	cronSpec := fmt.Sprintf("@every %s", interval)

	c := cron.New()
	if err := c.AddFunc(cronSpec, func() {
		t1 := time.Now()
		replaced, err := w.Reload()
		if err == nil {
			w.logger.Info(fmt.Sprintf("定时检查完成(替换: %v, 耗时: %v)", replaced, time.Since(t1)))
		}
	}); err != nil {
		return fmt.Errorf("创建定时任务失败: %w", err)
	}

	w.mu.Lock()
	if w.cron != nil {
		w.cron.Stop()
	}
	w.cron = c
	w.mu.Unlock()

	c.Start()
	w.logger.Info(fmt.Sprintf("数据源定时检查已启动(间隔: %v)", interval))
	return nil
}

// WatchFile 文件修改后立即重新读取
func (w *Watcher) WatchFile(ctx context.Context, path string) error {
	m, err := file.NewFileMonitor(path)
	if err != nil {
		return fmt.Errorf("监听文件失败: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)

	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.monitor.Close()
	}
	w.monitor, w.cancel = m, cancel
	w.mu.Unlock()

	go func() {
		err := m.Watch(ctx, func(changed string) {
			w.logger.Info("数据文件已修改: " + changed)
			w.Reload()
		})
		if err != nil {
			w.logger.Error(fmt.Sprintf("文件监听中断: %v", err))
		}
	}()
	return nil
}

// Stop 停止定时任务与文件监听
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron != nil {
		w.cron.Stop()
		w.cron = nil
	}
	if w.cancel != nil {
		w.cancel()
		w.monitor.Close()
		w.cancel, w.monitor = nil, nil
	}
}
