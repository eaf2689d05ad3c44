package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTelegramURL = "https://api.telegram.org"

// Telegram 通过 Bot API 推送守护平仓、一键平仓与启动消息。
type Telegram struct {
	chatID string
	token  string
	client *resty.Client
}

// NewTelegram 创建通知器；baseURL 为空时使用官方地址，测试时可指向 httptest。
func NewTelegram(botToken, chatID, baseURL string) *Telegram {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultTelegramURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500 || r.StatusCode() == 429
		})
	return &Telegram{chatID: chatID, token: botToken, client: client}
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendText 发送一条 Markdown 消息。
func (t *Telegram) SendText(ctx context.Context, text string) error {
	if t.token == "" || t.chatID == "" {
		return fmt.Errorf("telegram config incomplete")
	}
	var out sendMessageResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetPathParam("token", t.token).
		SetBody(map[string]any{
			"chat_id":    t.chatID,
			"text":       text,
			"parse_mode": "Markdown",
		}).
		SetResult(&out).
		SetError(&out).
		Post("/bot{token}/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if resp.IsError() || !out.OK {
		return fmt.Errorf("telegram status=%d: %s", resp.StatusCode(), out.Description)
	}
	return nil
}

// Send 渲染并发送结构化消息。
func (t *Telegram) Send(ctx context.Context, msg Message) error {
	return t.SendText(ctx, msg.Render())
}
