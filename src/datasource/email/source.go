// source.go
package email

import (
	"errors"
	"fmt"
	"sync"

	"DataPrep/src/dataset"
)

// ErrNoTargetEmail 最近的邮件中没有主题匹配的邮件
var ErrNoTargetEmail = errors.New("没有找到目标邮件")

// DatasetWrapper 封装数据集并提供线程安全访问
type DatasetWrapper struct {
	ds *dataset.Dataset
	mu sync.RWMutex
}

// Get 获取当前数据集(线程安全)
func (d *DatasetWrapper) Get() *dataset.Dataset {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ds
}

// Set 设置当前数据集(线程安全)
func (d *DatasetWrapper) Set(ds *dataset.Dataset) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ds = ds
}

// Source 邮箱数据源：每次读取取主题匹配的最新一封邮件的附件
type Source struct {
	svc     MailService
	handler *DatasetAttachmentHandler
}

func NewSource(svc MailService, handler *DatasetAttachmentHandler) *Source {
	return &Source{svc: svc, handler: handler}
}

// Fetch 连接邮箱并返回最新的数据集；最新邮件已处理过时返回上一次读取的结果
func (s *Source) Fetch() (*dataset.Dataset, error) {
	if err := s.svc.Connect(); err != nil {
		return nil, err
	}
	defer s.svc.Disconnect()

	emails, err := s.svc.FetchRecentEmails()
	if err != nil {
		return nil, err
	}

	latest := filterLatestTargetEmail(emails, s.handler.TargetSubject)
	if latest == nil {
		if ds := s.handler.Latest(); ds != nil {
			return ds, nil
		}
		return nil, ErrNoTargetEmail
	}

	if err := s.handler.Handle(latest); err != nil {
		return nil, fmt.Errorf("处理邮件 %q 失败: %w", latest.Subject, err)
	}
	ds := s.handler.Latest()
	if ds == nil {
		return nil, ErrNoTargetEmail
	}
	return ds, nil
}
