package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"mmbot/internal/logger"
)

// Gate 报告机器人当前是否处于启用状态。
type Gate interface {
	Enabled() bool
}

// Recorder 接收成交价用于指标统计，可为空。
type Recorder interface {
	TradeReceived(t Tick)
}

type FeedStats struct {
	Received    int64       `json:"received"`
	Dropped     int64       `json:"dropped"`
	LastTradeAt *time.Time  `json:"last_trade_at,omitempty"`
	Source      SourceStats `json:"source"`
}

// Feed 维护最新成交价。唯一写入者是 Run 所在的 goroutine，读取方通过 Latest 获得整值快照。
type Feed struct {
	symbol   string
	src      TradeSource
	gate     Gate
	recorder Recorder

	latest   atomic.Pointer[Tick]
	received atomic.Int64
	dropped  atomic.Int64

	mu      sync.Mutex
	running bool
}

func NewFeed(symbol string, src TradeSource, gate Gate, recorder Recorder) *Feed {
	return &Feed{symbol: symbol, src: src, gate: gate, recorder: recorder}
}

var ErrFeedRunning = errors.New("feed already running")

// Run 订阅成交流直到 ctx 结束。停用期间的推送会被丢弃，但订阅保持。
// ctx 结束后可以再次调用 Run 重新订阅。
func (f *Feed) Run(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return ErrFeedRunning
	}
	f.running = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.running = false
		f.mu.Unlock()
	}()

	ch, err := f.src.SubscribeTrades(ctx, f.symbol, SubscribeOptions{
		OnConnect: func() { logger.Infof("[feed] %s trade stream connected", f.symbol) },
		OnDisconnect: func(err error) {
			if err != nil {
				logger.Warnf("[feed] %s trade stream disconnected: %v", f.symbol, err)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("subscribe %s trades: %w", f.symbol, err)
	}
	for tick := range ch {
		f.handle(tick)
	}
	return ctx.Err()
}

func (f *Feed) handle(tick Tick) {
	if f.gate != nil && !f.gate.Enabled() {
		f.latest.Store(nil)
		f.dropped.Add(1)
		return
	}
	if !tick.Price.IsPositive() {
		f.dropped.Add(1)
		return
	}
	t := tick
	f.latest.Store(&t)
	f.received.Add(1)
	if f.recorder != nil {
		f.recorder.TradeReceived(t)
	}
}

// Reset 丢弃已缓存的价格，重新启用后须等到新的成交才会报价。
func (f *Feed) Reset() {
	f.latest.Store(nil)
}

// Latest 返回最新价格；尚未收到任何成交时 ok=false。
func (f *Feed) Latest() (Tick, bool) {
	p := f.latest.Load()
	if p == nil {
		return Tick{}, false
	}
	return *p, true
}

func (f *Feed) Stats() FeedStats {
	st := FeedStats{
		Received: f.received.Load(),
		Dropped:  f.dropped.Load(),
	}
	if p := f.latest.Load(); p != nil {
		ts := p.Time
		st.LastTradeAt = &ts
	}
	if f.src != nil {
		st.Source = f.src.Stats()
	}
	return st
}
