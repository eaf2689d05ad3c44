package indicator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"mmbot/internal/logger"
	"mmbot/internal/market"
	"mmbot/internal/scheduler"
)

// CandleSource 拉取最近 limit 根 K 线。
type CandleSource interface {
	FetchCandles(ctx context.Context, interval string, limit int) ([]market.Candle, error)
}

type Gate interface {
	Enabled() bool
}

// Recorder 记录每次计算的结果（ok / error / skipped），可为空。
type Recorder interface {
	IndicatorRun(result string)
}

// Engine 周期性刷新指标快照。计算失败时保留上一份快照。
type Engine struct {
	src      CandleSource
	cfg      Settings
	gate     Gate
	interval time.Duration
	recorder Recorder

	snap atomic.Pointer[Snapshot]
}

func NewEngine(src CandleSource, cfg Settings, interval time.Duration, gate Gate, recorder Recorder) *Engine {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Engine{
		src:      src,
		cfg:      cfg.withDefaults(),
		gate:     gate,
		interval: interval,
		recorder: recorder,
	}
}

// Snapshot 返回最近一次成功计算的快照；尚无结果时 ok=false。
func (e *Engine) Snapshot() (Snapshot, bool) {
	p := e.snap.Load()
	if p == nil {
		return Snapshot{}, false
	}
	return *p, true
}

// Refresh 拉取 K 线并计算，成功后整体替换快照。
func (e *Engine) Refresh(ctx context.Context) error {
	candles, err := e.src.FetchCandles(ctx, e.cfg.Interval, e.cfg.CandleLimit())
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	snap, err := Compute(candles, e.cfg)
	if err != nil {
		return fmt.Errorf("compute indicators: %w", err)
	}
	e.snap.Store(&snap)
	logger.Infof("[indicator] MA=%s RSI=%s(%.2f) Volume=%v Momentum=%s ATR=%s ready=%v decision=%s",
		snap.MASignal, snap.RSISignal, snap.RSI, snap.VolumeConfirmed, snap.MomentumSignal,
		snap.ATR.StringFixed(4), snap.ATRReady, snap.Decision())
	return nil
}

func (e *Engine) tick(ctx context.Context) {
	if e.gate != nil && !e.gate.Enabled() {
		e.record("skipped")
		return
	}
	if err := e.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Warnf("[indicator] tick skipped: %v", err)
		e.record("error")
		return
	}
	e.record("ok")
}

// Run 按固定间隔执行，直到 ctx 结束。
func (e *Engine) Run(ctx context.Context) error {
	s := scheduler.NewFixedScheduler("indicator", e.interval)
	s.RunImmediately = true
	return s.Run(ctx, e.tick)
}

func (e *Engine) record(result string) {
	if e.recorder != nil {
		e.recorder.IndicatorRun(result)
	}
}
