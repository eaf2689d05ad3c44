package app

import (
	"fmt"
	"strings"

	"mmbot/internal/config"
)

// StartupSummary 启动时打印的配置摘要，密钥不会出现在这里。
type StartupSummary struct {
	Env        string
	Exchange   string
	Testnet    bool
	RESTURL    string
	StreamURL  string
	Symbol     string
	Trading    config.TradingConfig
	Analysis   config.AnalysisConfig
	Circuit    config.CircuitConfig
	Journal    string
	Telegram   bool
	HTTPAddr   string
	ConfigPath string
}

func newStartupSummary(cfg *config.Config, path string) *StartupSummary {
	journal := "disabled"
	if cfg.Journal.Enabled {
		journal = cfg.Journal.Path
	}
	return &StartupSummary{
		Env:        cfg.App.Env,
		Exchange:   cfg.Exchange.Name,
		Testnet:    cfg.Exchange.Testnet,
		RESTURL:    cfg.Exchange.RESTBaseURL,
		StreamURL:  cfg.Exchange.StreamBaseURL,
		Symbol:     cfg.Trading.Symbol,
		Trading:    cfg.Trading,
		Analysis:   cfg.Analysis,
		Circuit:    cfg.Circuit,
		Journal:    journal,
		Telegram:   cfg.Notify.Telegram.Enabled,
		HTTPAddr:   cfg.App.HTTPAddr,
		ConfigPath: path,
	}
}

func (s *StartupSummary) String() string {
	var b strings.Builder
	line := strings.Repeat("=", 72)
	b.WriteString(line + "\n")
	b.WriteString("启动配置摘要 (STARTUP SUMMARY)\n")
	b.WriteString(line + "\n")

	fmt.Fprintf(&b, "[交易所 (EXCHANGE)]\n")
	fmt.Fprintf(&b, "  名称: %s  testnet: %v  env: %s\n", s.Exchange, s.Testnet, s.Env)
	fmt.Fprintf(&b, "  REST: %s\n  Stream: %s\n\n", s.RESTURL, s.StreamURL)

	t := s.Trading
	fmt.Fprintf(&b, "[报价 (QUOTING)]\n")
	fmt.Fprintf(&b, "  交易对: %s  数量: %g  挂单上限: %d\n", s.Symbol, t.BaseQty, t.MaxOpenOrders)
	fmt.Fprintf(&b, "  价差倍数(ATR): %g  报价间隔: %ds  控制循环: %dms\n", t.SpreadMultiplier, t.QuotingIntervalSeconds, t.ControlTickMillis)
	fmt.Fprintf(&b, "  止盈: %g USD  止损: %g USD  守护轮询: %dms  自动启动: %v\n\n", t.ProfitTargetUSD, t.StopLossUSD, t.GuardPollMillis, t.AutoStart)

	a := s.Analysis
	fmt.Fprintf(&b, "[指标 (INDICATORS)]\n")
	fmt.Fprintf(&b, "  K线: %s x %d  刷新: %ds\n", a.KlineInterval, a.CandleLimit(), a.IntervalSeconds)
	fmt.Fprintf(&b, "  MA %d/%d  RSI %d (%g/%g)  ATR %d  Momentum %d\n\n",
		a.ShortMAPeriod, a.LongMAPeriod, a.RSIPeriod, a.RSIOversold, a.RSIOverbought, a.ATRPeriod, a.MomentumPeriod)

	fmt.Fprintf(&b, "[运行 (RUNTIME)]\n")
	if s.Circuit.Enabled {
		fmt.Fprintf(&b, "  熔断: %d 次失败 / %ds\n", s.Circuit.Threshold, s.Circuit.TimeoutSeconds)
	} else {
		fmt.Fprintf(&b, "  熔断: disabled\n")
	}
	fmt.Fprintf(&b, "  journal: %s  telegram: %v\n", s.Journal, s.Telegram)
	fmt.Fprintf(&b, "  HTTP: %s", s.HTTPAddr)
	if s.ConfigPath != "" {
		fmt.Fprintf(&b, "  热更新: %s", s.ConfigPath)
	}
	b.WriteString("\n" + line)
	return b.String()
}

func (s *StartupSummary) Print() {
	fmt.Println(s.String())
}
