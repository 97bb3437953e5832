// email_handler.go
package email

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"DataPrep/src/dataset"
	"DataPrep/src/datasource/file"
)

// ErrNoDatasetAttachment 邮件中没有 csv / xlsx 附件
var ErrNoDatasetAttachment = errors.New("邮件中没有数据集附件")

// ====================== 邮件处理器实现 ======================

// DatasetAttachmentHandler 保存目标邮件的数据集附件并读取为数据集
type DatasetAttachmentHandler struct {
	TargetSubject string          // 目标邮件主题关键词
	DataDir       string          // 附件保存目录
	Options       file.Options    // 附件读取参数
	processedUIDs map[uint32]bool // 已处理邮件UID记录
	mu            sync.RWMutex    // 保护processedUIDs的读写锁
	latest        DatasetWrapper
	logf          func(format string, args ...interface{})
}

func NewDatasetAttachmentHandler(subject, dataDir string, opts file.Options) *DatasetAttachmentHandler {
	return &DatasetAttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		Options:       opts,
		processedUIDs: make(map[uint32]bool),
		logf:          func(string, ...interface{}) {},
	}
}

// SetLogf 设置处理过程的日志输出
func (h *DatasetAttachmentHandler) SetLogf(logf func(format string, args ...interface{})) {
	if logf != nil {
		h.logf = logf
	}
}

// Latest 最近一次成功读取的数据集
func (h *DatasetAttachmentHandler) Latest() *dataset.Dataset {
	return h.latest.Get()
}

// isProcessed 检查邮件是否已处理过（线程安全）
func (h *DatasetAttachmentHandler) isProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

// markAsProcessed 标记邮件为已处理（线程安全）
func (h *DatasetAttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 处理单个邮件：保存第一个 csv / xlsx 附件并读取
func (h *DatasetAttachmentHandler) Handle(email *Email) error {
	if h.isProcessed(email.UID) {
		return nil
	}

	if !strings.Contains(email.Subject, h.TargetSubject) {
		h.logf("跳过主题不匹配的邮件: %s", email.Subject)
		return nil
	}

	h.logf("处理邮件: %s 发件人: %s 日期: %s",
		email.Subject, email.From, email.Date.Format("2006-01-02 15:04:05"))

	att := pickDatasetAttachment(email.Attachments)
	if att == nil {
		return ErrNoDatasetAttachment
	}

	if h.DataDir != "" {
		if err := os.MkdirAll(h.DataDir, 0755); err != nil {
			return fmt.Errorf("创建目录失败: %w", err)
		}
		// 只取文件名，防止附件名带路径
		filePath := filepath.Join(h.DataDir, filepath.Base(att.Filename))
		if err := os.WriteFile(filePath, att.Content, 0644); err != nil {
			return fmt.Errorf("保存附件失败: %w", err)
		}
		h.logf("附件已保存到: %s", filePath)
	}

	ds, err := file.LoadBytes(att.Filename, att.Content, h.Options, dataset.Provenance{
		Kind:    dataset.SourceEmail,
		Source:  email.Subject,
		ModTime: email.Date,
	})
	if err != nil {
		return err
	}

	h.latest.Set(ds)
	h.markAsProcessed(email.UID)
	return nil
}

// pickDatasetAttachment 返回第一个 csv / xlsx 附件
func pickDatasetAttachment(atts []*Attachment) *Attachment {
	for _, att := range atts {
		switch strings.ToLower(filepath.Ext(att.Filename)) {
		case ".csv", ".xlsx":
			return att
		}
	}
	return nil
}
