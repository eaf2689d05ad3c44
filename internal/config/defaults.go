package config

import (
	"strings"

	"mmbot/internal/pkg/symbol"
)

// 默认值常量
const (
	defaultAppEnv             = "dev"
	defaultAppLogLevel        = "info"
	defaultAppLogFormat       = "text"
	defaultAppHTTPAddr        = ":8000"
	defaultExchangeName       = "binance"
	defaultRESTMainnet        = "https://fapi.binance.com"
	defaultRESTTestnet        = "https://testnet.binancefuture.com"
	defaultStreamMainnet      = "wss://fstream.binance.com/ws"
	defaultStreamTestnet      = "wss://stream.binancefuture.com/ws"
	defaultHTTPTimeout        = 15
	defaultSymbol             = "BTCUSDT"
	defaultBaseQty            = 0.006
	defaultMaxOpenOrders      = 25
	defaultSpreadMultiplier   = 1.5
	defaultProfitTargetUSD    = 15.0
	defaultStopLossUSD        = 2.0
	defaultQuotingInterval    = 5
	defaultControlTickMillis  = 1000
	defaultGuardPollMillis    = 500
	defaultKlineInterval      = "1m"
	defaultAnalysisInterval   = 10
	defaultShortMAPeriod      = 20
	defaultLongMAPeriod       = 50
	defaultRSIPeriod          = 14
	defaultRSIOversold        = 30.0
	defaultRSIOverbought      = 70.0
	defaultATRPeriod          = 14
	defaultMomentumPeriod     = 10
	defaultCircuitThreshold   = 5
	defaultCircuitTimeoutSecs = 30
	defaultJournalPath        = "data/mmbot.db"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Exchange.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Analysis.applyDefaults(keys)
	c.Circuit.applyDefaults(keys)
	c.Journal.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (e *ExchangeConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	// 未显式配置时默认连测试网。
	applyFieldDefaults(keys, boolFieldDefault("exchange.testnet", &e.Testnet, true))
	rest, stream := defaultRESTMainnet, defaultStreamMainnet
	if e.Testnet {
		rest, stream = defaultRESTTestnet, defaultStreamTestnet
	}
	applyFieldDefaults(keys,
		stringFieldDefault("exchange.name", &e.Name, defaultExchangeName),
		stringFieldDefault("exchange.rest_base_url", &e.RESTBaseURL, rest),
		stringFieldDefault("exchange.stream_base_url", &e.StreamBaseURL, stream),
		intFieldDefault("exchange.http_timeout_seconds", &e.HTTPTimeoutSeconds, defaultHTTPTimeout),
	)
	e.RESTBaseURL = strings.TrimRight(strings.TrimSpace(e.RESTBaseURL), "/")
	e.StreamBaseURL = strings.TrimRight(strings.TrimSpace(e.StreamBaseURL), "/")
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("trading.symbol", &t.Symbol, defaultSymbol),
		floatFieldDefault("trading.base_qty", &t.BaseQty, defaultBaseQty),
		intFieldDefault("trading.max_open_orders", &t.MaxOpenOrders, defaultMaxOpenOrders),
		floatFieldDefault("trading.spread_multiplier", &t.SpreadMultiplier, defaultSpreadMultiplier),
		floatFieldDefault("trading.profit_target_usd", &t.ProfitTargetUSD, defaultProfitTargetUSD),
		floatFieldDefault("trading.stop_loss_usd", &t.StopLossUSD, defaultStopLossUSD),
		intFieldDefault("trading.quoting_interval_seconds", &t.QuotingIntervalSeconds, defaultQuotingInterval),
		intFieldDefault("trading.control_tick_ms", &t.ControlTickMillis, defaultControlTickMillis),
		intFieldDefault("trading.guard_poll_ms", &t.GuardPollMillis, defaultGuardPollMillis),
	)
	t.Symbol = symbol.ToBinance(t.Symbol)
}

func (a *AnalysisConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("analysis.kline_interval", &a.KlineInterval, defaultKlineInterval),
		intFieldDefault("analysis.interval_seconds", &a.IntervalSeconds, defaultAnalysisInterval),
		intFieldDefault("analysis.short_ma_period", &a.ShortMAPeriod, defaultShortMAPeriod),
		intFieldDefault("analysis.long_ma_period", &a.LongMAPeriod, defaultLongMAPeriod),
		intFieldDefault("analysis.rsi_period", &a.RSIPeriod, defaultRSIPeriod),
		floatFieldDefault("analysis.rsi_oversold", &a.RSIOversold, defaultRSIOversold),
		floatFieldDefault("analysis.rsi_overbought", &a.RSIOverbought, defaultRSIOverbought),
		intFieldDefault("analysis.atr_period", &a.ATRPeriod, defaultATRPeriod),
		intFieldDefault("analysis.momentum_period", &a.MomentumPeriod, defaultMomentumPeriod),
	)
	a.KlineInterval = strings.ToLower(strings.TrimSpace(a.KlineInterval))
}

func (c *CircuitConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("circuit.enabled", &c.Enabled, true),
		intFieldDefault("circuit.threshold", &c.Threshold, defaultCircuitThreshold),
		intFieldDefault("circuit.timeout_seconds", &c.TimeoutSeconds, defaultCircuitTimeoutSecs),
	)
}

func (j *JournalConfig) applyDefaults(keys keySet) {
	if j == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("journal.enabled", &j.Enabled, true),
		stringFieldDefault("journal.path", &j.Path, defaultJournalPath),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return target != nil && strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return target != nil && *target <= 0 },
		apply: func() { *target = def },
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return target != nil && *target <= 0 },
		apply: func() { *target = def },
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
