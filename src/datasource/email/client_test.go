package email

import (
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"DataPrep/src/dataset"
	"DataPrep/src/datasource/file"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

const attachmentCSV = "age,city\n20,NY\n22,\n20,NY\n"

// fakeMailService 按顺序返回预置的邮件列表
type fakeMailService struct {
	batches     [][]*Email
	calls       int
	connectErr  error
	disconnects int
}

func (f *fakeMailService) Connect() error { return f.connectErr }

func (f *fakeMailService) Disconnect() { f.disconnects++ }

func (f *fakeMailService) FetchRecentEmails() ([]*Email, error) {
	if f.calls >= len(f.batches) {
		return nil, nil
	}
	b := f.batches[f.calls]
	f.calls++
	return b, nil
}

func gbkWord(t *testing.T, s string) string {
	t.Helper()
	raw, err := simplifiedchinese.GBK.NewEncoder().String(s)
	require.NoError(t, err)
	return "=?gbk?B?" + base64.StdEncoding.EncodeToString([]byte(raw)) + "?="
}

func rawMessage(t *testing.T) string {
	lines := []string{
		"From: " + gbkWord(t, "数据组") + " <data@example.com>",
		"Subject: " + gbkWord(t, "每日数据集"),
		"Date: Mon, 02 Jan 2006 15:04:05 +0800",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="XYZ"`,
		"",
		"--XYZ",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"see attachment",
		"--XYZ",
		"Content-Type: text/csv",
		`Content-Disposition: attachment; filename="data.csv"`,
		"",
		strings.TrimSuffix(attachmentCSV, "\n"),
		"--XYZ--",
		"",
	}
	return strings.Join(lines, "\r\n")
}

func TestParseMessage(t *testing.T) {
	email, err := ParseMessage(strings.NewReader(rawMessage(t)))
	require.NoError(t, err)

	assert.Equal(t, "每日数据集", email.Subject)
	assert.Contains(t, email.From, "数据组")
	assert.Equal(t, 2006, email.Date.Year())
	require.Len(t, email.Attachments, 1)
	assert.Equal(t, "data.csv", email.Attachments[0].Filename)
	assert.Contains(t, string(email.Attachments[0].Content), "age,city")
}

func TestCharsetReader(t *testing.T) {
	raw, err := simplifiedchinese.GBK.NewEncoder().String("航班")
	require.NoError(t, err)

	r, err := charsetReader("GB2312", strings.NewReader(raw))
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "航班", string(got))

	r, err = charsetReader("utf-8", strings.NewReader("plain"))
	require.NoError(t, err)
	got, _ = io.ReadAll(r)
	assert.Equal(t, "plain", string(got))

	assert.Equal(t, "no encoding", decodeHeader("no encoding"))
}

func TestFilterLatestTargetEmail(t *testing.T) {
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	emails := []*Email{
		{UID: 1, Subject: "数据集 v1", Date: base},
		{UID: 2, Subject: "周报", Date: base.Add(3 * time.Hour)},
		{UID: 3, Subject: "数据集 v2", Date: base.Add(time.Hour)},
	}

	got := filterLatestTargetEmail(emails, "数据集")
	require.NotNil(t, got)
	assert.Equal(t, uint32(3), got.UID)
	assert.Nil(t, filterLatestTargetEmail(emails, "不存在"))
	assert.Nil(t, filterLatestTargetEmail(nil, "数据集"))
}

func TestPickDatasetAttachment(t *testing.T) {
	atts := []*Attachment{
		{Filename: "readme.pdf"},
		{Filename: "DATA.XLSX"},
		{Filename: "data.csv"},
	}
	assert.Equal(t, "DATA.XLSX", pickDatasetAttachment(atts).Filename)
	assert.Nil(t, pickDatasetAttachment(atts[:1]))
}

func TestHandlerSavesAndLoadsAttachment(t *testing.T) {
	dir := t.TempDir()
	h := NewDatasetAttachmentHandler("数据集", dir, file.Options{})
	date := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	email := &Email{
		UID:     7,
		Subject: "数据集 v1",
		Date:    date,
		Attachments: []*Attachment{
			{Filename: "../data.csv", Content: []byte(attachmentCSV)},
		},
	}

	require.NoError(t, h.Handle(email))
	saved, err := os.ReadFile(filepath.Join(dir, "data.csv"))
	require.NoError(t, err)
	assert.Equal(t, attachmentCSV, string(saved))

	ds := h.Latest()
	require.NotNil(t, ds)
	assert.Equal(t, dataset.Shape{Rows: 3, Cols: 2}, ds.Shape())
	assert.Equal(t, dataset.SourceEmail, ds.Provenance().Kind)
	assert.Equal(t, "数据集 v1", ds.Provenance().Source)
	assert.Equal(t, date, ds.Provenance().ModTime)

	// 已处理的邮件不再读取
	email.Attachments[0].Content = []byte("broken")
	require.NoError(t, h.Handle(email))
	assert.Same(t, ds, h.Latest())
}

func TestHandlerRejectsMailWithoutDataset(t *testing.T) {
	h := NewDatasetAttachmentHandler("数据集", "", file.Options{})
	err := h.Handle(&Email{UID: 1, Subject: "数据集", Attachments: []*Attachment{{Filename: "a.pdf"}}})
	assert.ErrorIs(t, err, ErrNoDatasetAttachment)

	// 主题不匹配直接跳过
	assert.NoError(t, h.Handle(&Email{UID: 2, Subject: "周报"}))
	assert.Nil(t, h.Latest())
}

func TestSourceFetch(t *testing.T) {
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	first := &Email{UID: 1, Subject: "数据集", Date: base,
		Attachments: []*Attachment{{Filename: "d.csv", Content: []byte(attachmentCSV)}}}
	second := &Email{UID: 2, Subject: "数据集", Date: base.Add(time.Hour),
		Attachments: []*Attachment{{Filename: "d.csv", Content: []byte("age,city\n1,SF\n")}}}

	svc := &fakeMailService{batches: [][]*Email{{first}, {first}, {second, first}, {}}}
	src := NewSource(svc, NewDatasetAttachmentHandler("数据集", "", file.Options{}))

	ds1, err := src.Fetch()
	require.NoError(t, err)
	assert.Equal(t, 3, ds1.Nrow())

	again, err := src.Fetch()
	require.NoError(t, err)
	assert.Same(t, ds1, again, "same mail yields the same dataset")

	ds2, err := src.Fetch()
	require.NoError(t, err)
	assert.Equal(t, 1, ds2.Nrow())

	// 没有新邮件时保留上一次结果
	ds3, err := src.Fetch()
	require.NoError(t, err)
	assert.Same(t, ds2, ds3)
	assert.Equal(t, 4, svc.disconnects)
}

func TestSourceFetchErrors(t *testing.T) {
	svc := &fakeMailService{connectErr: errors.New("dial failed")}
	_, err := NewSource(svc, NewDatasetAttachmentHandler("数据集", "", file.Options{})).Fetch()
	assert.EqualError(t, err, "dial failed")

	svc = &fakeMailService{batches: [][]*Email{{{UID: 1, Subject: "周报"}}}}
	_, err = NewSource(svc, NewDatasetAttachmentHandler("数据集", "", file.Options{})).Fetch()
	assert.ErrorIs(t, err, ErrNoTargetEmail)
}
