package config

import (
	"fmt"
	"strings"

	"mmbot/internal/pkg/symbol"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Exchange.validate(); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Analysis.validate(); err != nil {
		return err
	}
	if err := c.Circuit.validate(); err != nil {
		return err
	}
	if err := c.Journal.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (e *ExchangeConfig) validate() error {
	if !strings.EqualFold(e.Name, "binance") {
		return fmt.Errorf("exchange.name only supports 'binance', got %s", e.Name)
	}
	if e.RESTBaseURL == "" {
		return fmt.Errorf("exchange.rest_base_url cannot be empty")
	}
	if e.StreamBaseURL == "" {
		return fmt.Errorf("exchange.stream_base_url cannot be empty")
	}
	if e.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("exchange.http_timeout_seconds must be > 0")
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("trading.symbol cannot be empty")
	}
	if !symbol.IsValid(t.Symbol) {
		return fmt.Errorf("trading.symbol has no recognised quote asset: %s", t.Symbol)
	}
	if t.BaseQty <= 0 {
		return fmt.Errorf("trading.base_qty must be > 0")
	}
	if t.MaxOpenOrders <= 0 {
		return fmt.Errorf("trading.max_open_orders must be > 0")
	}
	if t.SpreadMultiplier <= 0 {
		return fmt.Errorf("trading.spread_multiplier must be > 0")
	}
	if t.ProfitTargetUSD <= 0 {
		return fmt.Errorf("trading.profit_target_usd must be > 0")
	}
	if t.StopLossUSD <= 0 {
		return fmt.Errorf("trading.stop_loss_usd must be > 0")
	}
	if t.QuotingIntervalSeconds <= 0 {
		return fmt.Errorf("trading.quoting_interval_seconds must be > 0")
	}
	if t.ControlTickMillis < 100 {
		return fmt.Errorf("trading.control_tick_ms must be >= 100")
	}
	if t.GuardPollMillis < 100 {
		return fmt.Errorf("trading.guard_poll_ms must be >= 100")
	}
	return nil
}

func (a *AnalysisConfig) validate() error {
	if !IsValidInterval(a.KlineInterval) {
		return fmt.Errorf("analysis.kline_interval is invalid: %q", a.KlineInterval)
	}
	if a.IntervalSeconds <= 0 {
		return fmt.Errorf("analysis.interval_seconds must be > 0")
	}
	for name, p := range map[string]int{
		"short_ma_period": a.ShortMAPeriod,
		"long_ma_period":  a.LongMAPeriod,
		"rsi_period":      a.RSIPeriod,
		"atr_period":      a.ATRPeriod,
		"momentum_period": a.MomentumPeriod,
	} {
		if p <= 0 {
			return fmt.Errorf("analysis.%s must be > 0", name)
		}
	}
	if a.ShortMAPeriod >= a.LongMAPeriod {
		return fmt.Errorf("analysis.short_ma_period must be < long_ma_period")
	}
	if a.RSIOversold <= 0 || a.RSIOverbought >= 100 || a.RSIOversold >= a.RSIOverbought {
		return fmt.Errorf("analysis rsi thresholds must satisfy 0 < oversold < overbought < 100")
	}
	if a.CandleLimit() > 1500 {
		return fmt.Errorf("analysis periods require %d candles, exchange limit is 1500", a.CandleLimit())
	}
	return nil
}

func (c *CircuitConfig) validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Threshold <= 0 {
		return fmt.Errorf("circuit.threshold must be > 0")
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("circuit.timeout_seconds must be > 0")
	}
	return nil
}

func (j *JournalConfig) validate() error {
	if j.Enabled && strings.TrimSpace(j.Path) == "" {
		return fmt.Errorf("journal.path cannot be empty when journal is enabled")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
			return fmt.Errorf("telegram notification enabled but missing bot_token or chat_id")
		}
	}
	return nil
}

// IsValidInterval 简易校验：以数字开头，以 m/h/d/w 结尾
func IsValidInterval(s string) bool {
	if len(s) < 2 {
		return false
	}
	suf := s[len(s)-1]
	if suf != 'm' && suf != 'h' && suf != 'd' && suf != 'w' {
		return false
	}
	for i := 0; i < len(s)-1; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
