package trader

import (
	"context"
	"sync"
	"time"

	"mmbot/internal/analysis/indicator"
	"mmbot/internal/decision"
	"mmbot/internal/gateway/exchange"
	"mmbot/internal/market"
	"mmbot/internal/store/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockGateway struct {
	mock.Mock
}

func newMockGateway() *mockGateway {
	g := &mockGateway{}
	g.On("Symbol").Return("BTCUSDT").Maybe()
	g.On("Name").Return("binance").Maybe()
	return g
}

func (m *mockGateway) Name() string   { return m.Called().String(0) }
func (m *mockGateway) Symbol() string { return m.Called().String(0) }

func (m *mockGateway) StreamTrades(ctx context.Context, opts market.SubscribeOptions) (<-chan market.Tick, error) {
	args := m.Called(ctx, opts)
	ch, _ := args.Get(0).(<-chan market.Tick)
	return ch, args.Error(1)
}

func (m *mockGateway) FetchCandles(ctx context.Context, interval string, limit int) ([]market.Candle, error) {
	args := m.Called(ctx, interval, limit)
	out, _ := args.Get(0).([]market.Candle)
	return out, args.Error(1)
}

func (m *mockGateway) FetchOpenOrders(ctx context.Context) ([]exchange.Order, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]exchange.Order)
	return out, args.Error(1)
}

func (m *mockGateway) FetchPosition(ctx context.Context) (exchange.Position, error) {
	args := m.Called(ctx)
	return args.Get(0).(exchange.Position), args.Error(1)
}

func (m *mockGateway) SubmitOrder(ctx context.Context, req exchange.OrderRequest) (exchange.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(exchange.Order), args.Error(1)
}

func (m *mockGateway) CancelOrder(ctx context.Context, orderID string) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *mockGateway) CancelAllOrders(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockGateway) FetchInstrument(ctx context.Context) (exchange.Instrument, error) {
	args := m.Called(ctx)
	return args.Get(0).(exchange.Instrument), args.Error(1)
}

func (m *mockGateway) Authenticate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type fixedPrice struct {
	price decimal.Decimal
	ok    bool
}

func (p fixedPrice) Latest() (market.Tick, bool) {
	return market.Tick{Symbol: "BTCUSDT", Price: p.price, Time: time.Now()}, p.ok
}

type fixedSignals struct {
	snap indicator.Snapshot
	ok   bool
}

func (s fixedSignals) Snapshot() (indicator.Snapshot, bool) { return s.snap, s.ok }

// buySnapshot 是 2:1 的 BUY 共识：MA、RSI 看多，动量看空。
func buySnapshot(atr string) indicator.Snapshot {
	return indicator.Snapshot{
		MASignal:       decision.SignalBuy,
		RSISignal:      decision.SignalBuy,
		MomentumSignal: decision.SignalSell,
		ATR:            decimal.RequireFromString(atr),
		ATRReady:       true,
	}
}

type memJournal struct {
	mu      sync.Mutex
	entries []model.JournalEntry
}

func (j *memJournal) Append(_ context.Context, e model.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func (j *memJournal) kinds() []model.JournalKind {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]model.JournalKind, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, e.Kind)
	}
	return out
}

type countRecorder struct {
	mu        sync.Mutex
	submitted int
	errors    map[string]int
	closes    map[string]int
	open      int
}

func newCountRecorder() *countRecorder {
	return &countRecorder{errors: map[string]int{}, closes: map[string]int{}}
}

func (r *countRecorder) OrderSubmitted(exchange.Side, exchange.OrderType) {
	r.mu.Lock()
	r.submitted++
	r.mu.Unlock()
}

func (r *countRecorder) OrderError(op string) {
	r.mu.Lock()
	r.errors[op]++
	r.mu.Unlock()
}

func (r *countRecorder) GuardClosed(reason string) {
	r.mu.Lock()
	r.closes[reason]++
	r.mu.Unlock()
}

func (r *countRecorder) OpenOrders(n int) {
	r.mu.Lock()
	r.open = n
	r.mu.Unlock()
}

func defaultParams() Params {
	return Params{
		BaseQty:          decimal.RequireFromString("0.006"),
		MaxOpenOrders:    25,
		SpreadMultiplier: decimal.RequireFromString("1.5"),
		QuotingInterval:  5 * time.Second,
		ProfitTarget:     decimal.RequireFromString("15"),
		StopLoss:         decimal.RequireFromString("2"),
	}
}

func btcInstrument() exchange.Instrument {
	return exchange.Instrument{
		Symbol:   "BTCUSDT",
		TickSize: decimal.RequireFromString("0.01"),
		StepSize: decimal.RequireFromString("0.001"),
	}
}

func flat() exchange.Position {
	return exchange.Position{Symbol: "BTCUSDT"}
}

func position(qty, pnl string) exchange.Position {
	return exchange.Position{
		Symbol:        "BTCUSDT",
		Quantity:      decimal.RequireFromString(qty),
		EntryPrice:    decimal.RequireFromString("50000"),
		UnrealizedPnL: decimal.RequireFromString(pnl),
	}
}

type managerFixture struct {
	gw       *mockGateway
	m        *Manager
	journal  *memJournal
	recorder *countRecorder
}

func newFixture(price string, signals fixedSignals, params Params) *managerFixture {
	gw := newMockGateway()
	j := &memJournal{}
	rec := newCountRecorder()
	m := NewManager(Options{
		Gateway:   gw,
		Prices:    fixedPrice{price: decimal.RequireFromString(price), ok: true},
		Signals:   signals,
		Params:    params,
		GuardPoll: 10 * time.Millisecond,
		Hooks:     Hooks{Journal: j, Recorder: rec},
	})
	m.SetInstrument(btcInstrument())
	m.Gate().Enable()
	return &managerFixture{gw: gw, m: m, journal: j, recorder: rec}
}
