package app

import (
	"context"
	"fmt"
	"strings"

	"mmbot/internal/analysis/indicator"
	"mmbot/internal/config"
	"mmbot/internal/config/loader"
	"mmbot/internal/gateway/binance"
	"mmbot/internal/gateway/exchange"
	"mmbot/internal/gateway/notifier"
	"mmbot/internal/logger"
	"mmbot/internal/market"
	"mmbot/internal/metrics"
	"mmbot/internal/pkg/circuit"
	"mmbot/internal/store/sqlite"
	livehttp "mmbot/internal/transport/http/live"
	"mmbot/internal/trader"
)

// Exchange 是构建所需的交易所能力：REST 网关加逐笔成交流。
type Exchange interface {
	exchange.Gateway
	market.TradeSource
}

type AppBuilder struct {
	cfg        *config.Config
	configPath string

	exchangeFn func(config.Config) (Exchange, error)
	notifierFn func(config.TelegramConfig) notifier.TextNotifier
}

type AppBuilderOption func(*AppBuilder)

// WithConfigPath 启用配置文件热更新。
func WithConfigPath(path string) AppBuilderOption {
	return func(b *AppBuilder) { b.configPath = strings.TrimSpace(path) }
}

// WithExchange 替换交易所实现，测试时使用。
func WithExchange(fn func(config.Config) (Exchange, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.exchangeFn = fn
		}
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		exchangeFn: buildBinance,
		notifierFn: buildNotifier,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func buildBinance(cfg config.Config) (Exchange, error) {
	return binance.New(binance.Config{
		APIKey:        cfg.Exchange.APIKey,
		APISecret:     cfg.Exchange.APISecret,
		Symbol:        cfg.Trading.Symbol,
		RESTBaseURL:   cfg.Exchange.RESTBaseURL,
		StreamBaseURL: cfg.Exchange.StreamBaseURL,
		HTTPTimeout:   cfg.Exchange.HTTPTimeout(),
		ProxyURL:      cfg.Exchange.ProxyURL,
	})
}

func buildNotifier(cfg config.TelegramConfig) notifier.TextNotifier {
	if !cfg.Enabled {
		return nil
	}
	return notifier.NewTelegram(cfg.BotToken, cfg.ChatID, "")
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	app := &App{cfg: cfg}

	ex, err := b.exchangeFn(*cfg)
	if err != nil {
		return nil, fmt.Errorf("init exchange: %w", err)
	}
	if c, ok := ex.(interface{ Close() error }); ok {
		app.closers = append(app.closers, c.Close)
	}
	m := metrics.New(cfg.Trading.Symbol)

	var gw exchange.Gateway = ex
	if cfg.Circuit.Enabled {
		cb := circuit.NewCircuitBreaker(ex.Name(), cfg.Circuit.Threshold, cfg.Circuit.Timeout())
		cb.SetStateChangeHandler(func(name string, from, to circuit.State) {
			logger.Warnf("[circuit] %s %s -> %s", name, from, to)
			m.CircuitState(name, int(to))
		})
		gw = exchange.WithCircuit(ex, cb)
	}

	hooks := trader.Hooks{Recorder: m}
	var journal livehttp.JournalReader
	if cfg.Journal.Enabled {
		j, err := sqlite.Open(cfg.Journal.Path)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("open journal: %w", err)
		}
		app.closers = append(app.closers, j.Close)
		hooks.Journal = j
		journal = j
	}
	if n := b.notifierFn(cfg.Notify.Telegram); n != nil {
		hooks.Notifier = n
	}

	gate := &trader.Gate{}
	feed := market.NewFeed(cfg.Trading.Symbol, ex, gate, m)
	engine := indicator.NewEngine(gw, indicatorSettings(cfg.Analysis), cfg.Analysis.Interval(), gate, m)
	manager := trader.NewManager(trader.Options{
		Gateway:   gw,
		Gate:      gate,
		Prices:    feed,
		Signals:   engine,
		Params:    trader.ParamsFromConfig(cfg.Trading),
		GuardPoll: cfg.Trading.GuardPoll(),
		Hooks:     hooks,
	})
	app.bot = trader.NewBot(trader.BotOptions{
		Gateway:     gw,
		Feed:        feed,
		Engine:      engine,
		Manager:     manager,
		ControlTick: cfg.Trading.ControlTick(),
		AutoStart:   cfg.Trading.AutoStart,
		Hooks:       hooks,
	})

	srv, err := livehttp.NewServer(livehttp.ServerConfig{
		Addr:       cfg.App.HTTPAddr,
		Controller: app.bot,
		Journal:    journal,
		Metrics:    m.Handler(),
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.liveHTTP = srv

	if b.configPath != "" {
		tl, err := loader.NewTuningLoader(b.configPath, true)
		if err != nil {
			logger.Warnf("[config] hot reload disabled: %v", err)
		} else {
			app.tuning = tl
			tl.Subscribe(func(s loader.TuningSnapshot) {
				// 首个快照即启动时的配置
				if s.Version <= 1 {
					return
				}
				manager.ApplyTuning(s.Trading)
			})
		}
	}

	app.Summary = newStartupSummary(cfg, b.configPath)
	return app, nil
}

func indicatorSettings(a config.AnalysisConfig) indicator.Settings {
	return indicator.Settings{
		Interval:       a.KlineInterval,
		ShortMA:        a.ShortMAPeriod,
		LongMA:         a.LongMAPeriod,
		RSIPeriod:      a.RSIPeriod,
		RSIOversold:    a.RSIOversold,
		RSIOverbought:  a.RSIOverbought,
		ATRPeriod:      a.ATRPeriod,
		MomentumPeriod: a.MomentumPeriod,
	}
}
