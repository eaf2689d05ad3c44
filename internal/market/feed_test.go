package market

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanSource struct {
	ch    chan Tick
	stats SourceStats
}

func (s *chanSource) SubscribeTrades(ctx context.Context, _ string, _ SubscribeOptions) (<-chan Tick, error) {
	out := make(chan Tick)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-s.ch:
				select {
				case out <- t:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *chanSource) Stats() SourceStats { return s.stats }

type flagGate struct{ on atomic.Bool }

func (g *flagGate) Enabled() bool { return g.on.Load() }

type countRecorder struct{ n atomic.Int32 }

func (r *countRecorder) TradeReceived(Tick) { r.n.Add(1) }

func tick(px string) Tick {
	return Tick{Symbol: "BTCUSDT", Price: decimal.RequireFromString(px), Time: time.Now()}
}

func TestFeedPublishesLatestPrice(t *testing.T) {
	src := &chanSource{ch: make(chan Tick), stats: SourceStats{Connected: true}}
	gate := &flagGate{}
	gate.on.Store(true)
	rec := &countRecorder{}
	feed := NewFeed("BTCUSDT", src, gate, rec)

	_, ok := feed.Latest()
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	src.ch <- tick("50000.10")
	src.ch <- tick("50000.20")
	require.Eventually(t, func() bool { return feed.Stats().Received == 2 }, time.Second, 5*time.Millisecond)
	latest, ok := feed.Latest()
	require.True(t, ok)
	assert.Equal(t, "50000.2", latest.Price.String())
	assert.Equal(t, int32(2), rec.n.Load())
	assert.True(t, feed.Stats().Source.Connected)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestFeedDropsWhileDisabled(t *testing.T) {
	src := &chanSource{ch: make(chan Tick)}
	gate := &flagGate{}
	feed := NewFeed("BTCUSDT", src, gate, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	src.ch <- tick("100")
	require.Eventually(t, func() bool { return feed.Stats().Dropped == 1 }, time.Second, 5*time.Millisecond)
	_, ok := feed.Latest()
	assert.False(t, ok)

	gate.on.Store(true)
	src.ch <- tick("101")
	require.Eventually(t, func() bool { return feed.Stats().Received == 1 }, time.Second, 5*time.Millisecond)
	latest, _ := feed.Latest()
	assert.Equal(t, "101", latest.Price.String())

	// 停用后的推送会清掉旧价格
	gate.on.Store(false)
	src.ch <- tick("102")
	require.Eventually(t, func() bool { return feed.Stats().Dropped == 2 }, time.Second, 5*time.Millisecond)
	_, ok = feed.Latest()
	assert.False(t, ok)
}

func TestFeedResetDropsCachedPrice(t *testing.T) {
	feed := NewFeed("BTCUSDT", &chanSource{}, nil, nil)
	feed.handle(tick("100"))
	_, ok := feed.Latest()
	require.True(t, ok)

	feed.Reset()
	_, ok = feed.Latest()
	assert.False(t, ok)
	assert.Nil(t, feed.Stats().LastTradeAt)
	assert.Equal(t, int64(1), feed.Stats().Received)
}

func TestFeedRestartable(t *testing.T) {
	src := &chanSource{ch: make(chan Tick)}
	gate := &flagGate{}
	gate.on.Store(true)
	feed := NewFeed("BTCUSDT", src, gate, nil)

	ctx1, cancel1 := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx1) }()
	require.Eventually(t, func() bool {
		feed.mu.Lock()
		defer feed.mu.Unlock()
		return feed.running
	}, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, feed.Run(context.Background()), ErrFeedRunning)
	cancel1()
	<-done

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	go feed.Run(ctx2)
	src.ch <- tick("42")
	require.Eventually(t, func() bool { return feed.Stats().Received == 1 }, time.Second, 5*time.Millisecond)
}
