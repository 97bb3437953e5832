package datapush

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// 常量定义
const (
	RETRY_TIMES     = 5
	RETRY_INTERVAL  = 2 * time.Second
	REQUEST_TIMEOUT = 10 * time.Second
)

// ErrNoWebhook 未配置机器人地址
var ErrNoWebhook = errors.New("未配置钉钉机器人 webhook")

// 钉钉 API 响应结构体
type DingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

type markdownMessage struct {
	MsgType  string `json:"msgtype"`
	Markdown struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"markdown"`
}

// Pusher 钉钉群机器人推送
type Pusher struct {
	webhook       string
	secret        string // 加签密钥，为空时不签名
	client        *http.Client
	retryTimes    int
	retryInterval time.Duration
	now           func() time.Time
}

func NewPusher(webhook, secret string) *Pusher {
	return &Pusher{
		webhook:       webhook,
		secret:        secret,
		client:        &http.Client{Timeout: REQUEST_TIMEOUT},
		retryTimes:    RETRY_TIMES,
		retryInterval: RETRY_INTERVAL,
		now:           time.Now,
	}
}

// SetRetry 调整重试次数与间隔
func (p *Pusher) SetRetry(times int, interval time.Duration) {
	if times < 1 {
		times = 1
	}
	p.retryTimes = times
	p.retryInterval = interval
}

// Notify 发送 markdown 消息，失败时重试
func (p *Pusher) Notify(ctx context.Context, title, text string) error {
	if p.webhook == "" {
		return ErrNoWebhook
	}
	var msg markdownMessage
	msg.MsgType = "markdown"
	msg.Markdown.Title = title
	msg.Markdown.Text = text

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化请求体失败: %w", err)
	}
	return retry(func() error {
		return p.send(ctx, payload)
	}, p.retryTimes, p.retryInterval)
}

func (p *Pusher) send(ctx context.Context, payload []byte) error {
	target, err := p.signedURL()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("推送失败: HTTP %d", resp.StatusCode)
	}

	var result DingTalkResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("发送消息失败: %s", result.ErrMsg)
	}
	return nil
}

// signedURL 有密钥时追加 timestamp 与 sign 参数
func (p *Pusher) signedURL() (string, error) {
	if p.secret == "" {
		return p.webhook, nil
	}
	u, err := url.Parse(p.webhook)
	if err != nil {
		return "", fmt.Errorf("webhook 地址无效: %w", err)
	}
	ts := strconv.FormatInt(p.now().UnixMilli(), 10)
	q := u.Query()
	q.Set("timestamp", ts)
	q.Set("sign", sign(ts, p.secret))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// sign 钉钉加签：base64(HmacSHA256(timestamp + "\n" + secret))
func sign(timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "\n" + secret))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// 重试函数
func retry(fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %w", times, err)
}
