package config

import (
	"strings"
	"time"
)

// Config 是 mmbot 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app" yaml:"app"`
	Exchange ExchangeConfig `toml:"exchange" yaml:"exchange"`
	Trading  TradingConfig  `toml:"trading" yaml:"trading"`
	Analysis AnalysisConfig `toml:"analysis" yaml:"analysis"`
	Circuit  CircuitConfig  `toml:"circuit" yaml:"circuit"`
	Journal  JournalConfig  `toml:"journal" yaml:"journal"`
	Notify   NotifyConfig   `toml:"notify" yaml:"notify"`
}

type AppConfig struct {
	Env       string `toml:"env" yaml:"env"`
	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"` // "text" | "json"
	LogPath   string `toml:"log_path" yaml:"log_path"`
	HTTPAddr  string `toml:"http_addr" yaml:"http_addr"`
}

// ExchangeConfig 描述交易所连接参数，密钥可由环境变量覆盖。
type ExchangeConfig struct {
	Name               string `toml:"name" yaml:"name"`
	APIKey             string `toml:"api_key" yaml:"api_key"`
	APISecret          string `toml:"api_secret" yaml:"api_secret"`
	Testnet            bool   `toml:"testnet" yaml:"testnet"`
	RESTBaseURL        string `toml:"rest_base_url" yaml:"rest_base_url"`
	StreamBaseURL      string `toml:"stream_base_url" yaml:"stream_base_url"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds" yaml:"http_timeout_seconds"`
	ProxyURL           string `toml:"proxy_url" yaml:"proxy_url"`
}

func (e ExchangeConfig) HTTPTimeout() time.Duration {
	return time.Duration(e.HTTPTimeoutSeconds) * time.Second
}

// TradingConfig 控制报价节奏、库存上限与止盈止损阈值。
type TradingConfig struct {
	Symbol                 string  `toml:"symbol" yaml:"symbol"`
	BaseQty                float64 `toml:"base_qty" yaml:"base_qty"`
	MaxOpenOrders          int     `toml:"max_open_orders" yaml:"max_open_orders"`
	SpreadMultiplier       float64 `toml:"spread_multiplier" yaml:"spread_multiplier"`
	ProfitTargetUSD        float64 `toml:"profit_target_usd" yaml:"profit_target_usd"`
	StopLossUSD            float64 `toml:"stop_loss_usd" yaml:"stop_loss_usd"`
	QuotingIntervalSeconds int     `toml:"quoting_interval_seconds" yaml:"quoting_interval_seconds"`
	ControlTickMillis      int     `toml:"control_tick_ms" yaml:"control_tick_ms"`
	GuardPollMillis        int     `toml:"guard_poll_ms" yaml:"guard_poll_ms"`
	AutoStart              bool    `toml:"auto_start" yaml:"auto_start"`
}

func (t TradingConfig) QuotingInterval() time.Duration {
	return time.Duration(t.QuotingIntervalSeconds) * time.Second
}

func (t TradingConfig) ControlTick() time.Duration {
	return time.Duration(t.ControlTickMillis) * time.Millisecond
}

func (t TradingConfig) GuardPoll() time.Duration {
	return time.Duration(t.GuardPollMillis) * time.Millisecond
}

// AnalysisConfig 描述指标引擎的周期参数。
type AnalysisConfig struct {
	KlineInterval   string  `toml:"kline_interval" yaml:"kline_interval"`
	IntervalSeconds int     `toml:"interval_seconds" yaml:"interval_seconds"`
	ShortMAPeriod   int     `toml:"short_ma_period" yaml:"short_ma_period"`
	LongMAPeriod    int     `toml:"long_ma_period" yaml:"long_ma_period"`
	RSIPeriod       int     `toml:"rsi_period" yaml:"rsi_period"`
	RSIOversold     float64 `toml:"rsi_oversold" yaml:"rsi_oversold"`
	RSIOverbought   float64 `toml:"rsi_overbought" yaml:"rsi_overbought"`
	ATRPeriod       int     `toml:"atr_period" yaml:"atr_period"`
	MomentumPeriod  int     `toml:"momentum_period" yaml:"momentum_period"`
}

func (a AnalysisConfig) Interval() time.Duration {
	return time.Duration(a.IntervalSeconds) * time.Second
}

// CandleLimit 返回每次分析需要拉取的 K 线数量。
func (a AnalysisConfig) CandleLimit() int {
	return max(a.LongMAPeriod, a.RSIPeriod, a.ATRPeriod, a.MomentumPeriod) + 1
}

type CircuitConfig struct {
	Enabled        bool `toml:"enabled" yaml:"enabled"`
	Threshold      int  `toml:"threshold" yaml:"threshold"`
	TimeoutSeconds int  `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

func (c CircuitConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type JournalConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram" yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled" yaml:"enabled"`
	BotToken string `toml:"bot_token" yaml:"bot_token"`
	ChatID   string `toml:"chat_id" yaml:"chat_id"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
