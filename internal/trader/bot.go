package trader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mmbot/internal/analysis/indicator"
	"mmbot/internal/gateway/exchange"
	"mmbot/internal/gateway/notifier"
	"mmbot/internal/logger"
	"mmbot/internal/market"
	"mmbot/internal/pkg/symbol"
	"mmbot/internal/store/model"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	StatusStarted        = "Market making bot started. We are now the market."
	StatusAlreadyRunning = "Bot is already running."
	StatusStopped        = "Bot stopped. Awaiting new orders."
	StatusNotRunning     = "Bot is not running."
	StatusFlattened      = "All positions closed and bot halted."
)

type BotOptions struct {
	Gateway     exchange.Gateway
	Feed        *market.Feed
	Engine      *indicator.Engine
	Manager     *Manager
	ControlTick time.Duration
	AutoStart   bool
	Hooks       Hooks
}

// Bot 组装各循环，对外提供启停、一键平仓与状态查询。
type Bot struct {
	gw          exchange.Gateway
	feed        *market.Feed
	engine      *indicator.Engine
	manager     *Manager
	controlTick time.Duration
	autoStart   bool
	hooks       Hooks
	startedAt   time.Time
}

func NewBot(opts BotOptions) *Bot {
	return &Bot{
		gw:          opts.Gateway,
		feed:        opts.Feed,
		engine:      opts.Engine,
		manager:     opts.Manager,
		controlTick: opts.ControlTick,
		autoStart:   opts.AutoStart,
		hooks:       opts.Hooks,
	}
}

func (b *Bot) Manager() *Manager { return b.manager }

// Bootstrap 在任何循环启动前执行一次：鉴权、拉取交易规则、对账。
// 交易规则获取失败视为致命错误。
func (b *Bot) Bootstrap(ctx context.Context) error {
	if err := b.gw.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	inst, err := b.gw.FetchInstrument(ctx)
	if err != nil {
		return fmt.Errorf("fetch instrument %s: %w", b.gw.Symbol(), err)
	}
	b.manager.SetInstrument(inst)
	f := b.manager.Filter()
	logger.Infof("[bot] %s tick=%s (precision %d) step=%s (precision %d)",
		inst.Symbol, inst.TickSize, f.PricePrecision, inst.StepSize, f.QtyPrecision)

	if err := b.manager.Reconcile(ctx); err != nil {
		logger.Warnf("[bot] initial reconcile failed, will retry before quoting: %v", err)
	} else {
		logger.Infof("[bot] initial reconcile: %d open orders", b.manager.Orders().Count())
	}
	b.startedAt = time.Now()
	b.hooks.journal(ctx, model.JournalEntry{
		Kind:   model.KindStartup,
		Symbol: b.gw.Symbol(),
		Payload: map[string]any{
			"exchange":    b.gw.Name(),
			"tick_size":   inst.TickSize.String(),
			"step_size":   inst.StepSize.String(),
			"open_orders": b.manager.Orders().Count(),
			"auto_start":  b.autoStart,
		},
	})
	b.hooks.notify(notifier.Message{
		Icon:  "🚀",
		Title: "mmbot online " + symbol.Display(b.gw.Symbol()),
		Sections: []notifier.Section{{Lines: []string{
			"exchange: " + b.gw.Name(),
			fmt.Sprintf("auto start: %v", b.autoStart),
		}}},
	})
	if b.autoStart {
		b.manager.Gate().Enable()
		logger.Infof("[bot] auto start enabled")
	}
	return nil
}

// Run 启动行情、指标与控制循环，直到 ctx 结束或任一循环返回错误。
func (b *Bot) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.feed.Run(gctx) })
	g.Go(func() error { return b.engine.Run(gctx) })
	g.Go(func() error { return b.manager.Run(gctx, b.controlTick) })
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Start 打开启用开关。
func (b *Bot) Start(ctx context.Context) string {
	if !b.manager.Gate().Enable() {
		return StatusAlreadyRunning
	}
	logger.Infof("[bot] started")
	b.control(ctx, "start")
	return StatusStarted
}

// Stop 关闭启用开关，已有挂单与持仓保持不动。
func (b *Bot) Stop(ctx context.Context) string {
	if !b.manager.Gate().Disable() {
		return StatusNotRunning
	}
	b.feed.Reset()
	logger.Infof("[bot] stopped")
	b.control(ctx, "stop")
	return StatusStopped
}

func (b *Bot) Flatten(ctx context.Context) (string, FlattenResult, error) {
	logger.Infof("[bot] flatten requested, halting trading")
	res, err := b.manager.Flatten(ctx)
	b.feed.Reset()
	if err != nil {
		return "", res, err
	}
	return StatusFlattened, res, nil
}

func (b *Bot) control(ctx context.Context, action string) {
	b.hooks.journal(ctx, model.JournalEntry{Kind: model.KindControl, Symbol: b.gw.Symbol(), Reason: action})
}

// Status 是只读的运行状态快照。
type Status struct {
	IsRunning       bool             `json:"is_running"`
	Symbol          string           `json:"symbol"`
	CurrentPrice    *decimal.Decimal `json:"current_price"`
	MASignal        string           `json:"ma_signal"`
	RSISignal       string           `json:"rsi_signal"`
	MomentumSignal  string           `json:"momentum_signal"`
	VolumeSignal    bool             `json:"volume_signal"`
	Decision        string           `json:"decision"`
	ATR             *decimal.Decimal `json:"atr"`
	ATRReady        bool             `json:"atr_ready"`
	IndicatorsAt    *time.Time       `json:"indicators_at,omitempty"`
	OpenOrdersCount int              `json:"open_orders_count"`
	State           string           `json:"state"`
	GuardActive     bool             `json:"guard_active"`
	LastPlacement   *time.Time       `json:"last_placement,omitempty"`
	StartedAt       *time.Time       `json:"started_at,omitempty"`
	Feed            market.FeedStats `json:"feed"`
	Message         string           `json:"message"`
}

func (b *Bot) Status() Status {
	m := b.manager
	st := Status{
		IsRunning:       m.Gate().Enabled(),
		Symbol:          b.gw.Symbol(),
		MASignal:        "NONE",
		RSISignal:       "NONE",
		MomentumSignal:  "NONE",
		Decision:        "NONE",
		OpenOrdersCount: m.Orders().Count(),
		GuardActive:     m.Guard().Active(),
		Feed:            b.feed.Stats(),
		Message:         "We are making the market, not chasing it.",
	}
	if tick, ok := b.feed.Latest(); ok {
		px := tick.Price
		st.CurrentPrice = &px
	}
	if snap, ok := b.engine.Snapshot(); ok {
		st.MASignal = snap.MASignal.String()
		st.RSISignal = snap.RSISignal.String()
		st.MomentumSignal = snap.MomentumSignal.String()
		st.VolumeSignal = snap.VolumeConfirmed
		st.Decision = snap.Decision().String()
		st.ATRReady = snap.ATRReady
		if snap.ATRReady {
			atr := snap.ATR
			st.ATR = &atr
		}
		at := snap.ComputedAt
		st.IndicatorsAt = &at
	}
	if t, ok := m.LastPlacement(); ok {
		st.LastPlacement = &t
	}
	if !b.startedAt.IsZero() {
		t := b.startedAt
		st.StartedAt = &t
	}
	st.State = string(m.Phase())
	if !st.IsRunning {
		st.State = "stopped"
	}
	return st
}
