package binance

import (
	"strings"
	"time"
)

type Config struct {
	APIKey        string
	APISecret     string
	Symbol        string
	RESTBaseURL   string
	StreamBaseURL string
	HTTPTimeout   time.Duration
	ProxyURL      string
	// RecvWindow 签名请求的有效窗口，毫秒。
	RecvWindow int64
}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimRight(strings.TrimSpace(out.RESTBaseURL), "/")
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = "https://testnet.binancefuture.com"
	}
	out.StreamBaseURL = strings.TrimRight(strings.TrimSpace(out.StreamBaseURL), "/")
	if out.StreamBaseURL == "" {
		out.StreamBaseURL = "wss://stream.binancefuture.com/ws"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	if out.RecvWindow <= 0 {
		out.RecvWindow = 5000
	}
	out.ProxyURL = strings.TrimSpace(out.ProxyURL)
	out.APIKey = strings.TrimSpace(out.APIKey)
	out.APISecret = strings.TrimSpace(out.APISecret)
	return out
}
