package trader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"mmbot/internal/analysis/indicator"
	"mmbot/internal/config"
	"mmbot/internal/decision"
	"mmbot/internal/gateway/exchange"
	"mmbot/internal/gateway/notifier"
	"mmbot/internal/logger"
	"mmbot/internal/market"
	"mmbot/internal/pkg/trading"
	"mmbot/internal/store/model"

	"github.com/shopspring/decimal"
)

// PriceSource 提供最新成交价。
type PriceSource interface {
	Latest() (market.Tick, bool)
}

// SignalSource 提供最新指标快照。
type SignalSource interface {
	Snapshot() (indicator.Snapshot, bool)
}

// Params 报价与风控参数，可在运行中整体替换。
type Params struct {
	BaseQty          decimal.Decimal
	MaxOpenOrders    int
	SpreadMultiplier decimal.Decimal
	QuotingInterval  time.Duration
	ProfitTarget     decimal.Decimal
	StopLoss         decimal.Decimal
}

func ParamsFromConfig(t config.TradingConfig) Params {
	return Params{
		BaseQty:          decimal.NewFromFloat(t.BaseQty),
		MaxOpenOrders:    t.MaxOpenOrders,
		SpreadMultiplier: decimal.NewFromFloat(t.SpreadMultiplier),
		QuotingInterval:  t.QuotingInterval(),
		ProfitTarget:     decimal.NewFromFloat(t.ProfitTargetUSD),
		StopLoss:         decimal.NewFromFloat(t.StopLossUSD),
	}
}

// Phase 描述控制循环最近一次观察到的状态。
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseQuoting    Phase = "quoting"
	PhaseInPosition Phase = "in_position"
)

type Options struct {
	Gateway   exchange.Gateway
	Gate      *Gate
	Prices    PriceSource
	Signals   SignalSource
	Params    Params
	GuardPoll time.Duration
	Hooks     Hooks
}

// Manager 负责挂单生命周期：对账、报价、持仓时撤单并交给 Guard。
// Tick 与 Flatten 通过 mu 串行执行。
type Manager struct {
	gw      exchange.Gateway
	gate    *Gate
	prices  PriceSource
	signals SignalSource
	hooks   Hooks
	orders  *OrderSet
	guard   *Guard

	params atomic.Pointer[Params]
	filter atomic.Pointer[trading.Filter]
	phase  atomic.Value

	// 上次成功挂单的时间（UnixNano），0 表示可以立即报价。
	lastPlacement atomic.Int64
	now           func() time.Time

	mu sync.Mutex
}

func NewManager(opts Options) *Manager {
	gate := opts.Gate
	if gate == nil {
		gate = &Gate{}
	}
	m := &Manager{
		gw:      opts.Gateway,
		gate:    gate,
		prices:  opts.Prices,
		signals: opts.Signals,
		hooks:   opts.Hooks,
		orders:  NewOrderSet(),
		now:     time.Now,
	}
	params := opts.Params
	m.params.Store(&params)
	m.phase.Store(PhaseIdle)
	m.guard = newGuard(m, opts.GuardPoll)
	return m
}

func (m *Manager) Gate() *Gate { return m.gate }

func (m *Manager) Orders() *OrderSet { return m.orders }

func (m *Manager) Guard() *Guard { return m.guard }

func (m *Manager) Params() Params { return *m.params.Load() }

// SetInstrument 固定价格与数量精度，须在任何循环启动前调用。
func (m *Manager) SetInstrument(inst exchange.Instrument) {
	f := trading.NewFilter(inst.TickSize, inst.StepSize)
	m.filter.Store(&f)
}

func (m *Manager) Filter() trading.Filter {
	if f := m.filter.Load(); f != nil {
		return *f
	}
	return trading.Filter{}
}

// ApplyTuning 热更新风险与节奏参数，symbol 变更需要重启。
func (m *Manager) ApplyTuning(t config.TradingConfig) {
	if t.Symbol != "" && t.Symbol != m.gw.Symbol() {
		logger.Warnf("[orders] symbol change %s -> %s ignored until restart", m.gw.Symbol(), t.Symbol)
	}
	next := ParamsFromConfig(t)
	prev := m.params.Swap(&next)
	logger.Infof("[orders] params updated qty=%s cap=%d spread_x=%s tp=%s sl=%s interval=%s (was qty=%s cap=%d)",
		next.BaseQty, next.MaxOpenOrders, next.SpreadMultiplier, next.ProfitTarget, next.StopLoss,
		next.QuotingInterval, prev.BaseQty, prev.MaxOpenOrders)
}

func (m *Manager) Phase() Phase {
	p, _ := m.phase.Load().(Phase)
	return p
}

// LastPlacement 返回上次成功挂单时间；尚未挂单或已被重置时 ok=false。
func (m *Manager) LastPlacement() (time.Time, bool) {
	ns := m.lastPlacement.Load()
	if ns == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ns), true
}

func (m *Manager) resetPlacement() {
	m.lastPlacement.Store(0)
}

func (m *Manager) quoteDue(interval time.Duration) bool {
	last := m.lastPlacement.Load()
	if last == 0 {
		return true
	}
	return m.now().Sub(time.Unix(0, last)) >= interval
}

// Run 按固定节奏调用 Tick，单轮失败只记录日志。
func (m *Manager) Run(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.guard.Stop()
			return ctx.Err()
		case <-ticker.C:
			if err := m.Tick(ctx); err != nil && ctx.Err() == nil {
				logger.Errorf("[orders] tick failed: %v", err)
			}
		}
	}
}

// Tick 执行一轮控制逻辑。未启用或尚无价格时直接返回。
func (m *Manager) Tick(ctx context.Context) error {
	if !m.gate.Enabled() {
		return nil
	}
	tick, ok := m.prices.Latest()
	if !ok {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// 等锁期间可能已经被 Flatten 停用。
	if !m.gate.Enabled() {
		return nil
	}

	pos, err := m.gw.FetchPosition(ctx)
	if err != nil {
		m.hooks.orderError("fetch_position")
		return fmt.Errorf("fetch position: %w", err)
	}
	if !pos.IsFlat() {
		m.phase.Store(PhaseInPosition)
		m.holdPosition(ctx, pos)
		return nil
	}
	m.phase.Store(PhaseQuoting)

	params := m.Params()
	if !m.quoteDue(params.QuotingInterval) {
		return nil
	}
	if err := m.reconcile(ctx); err != nil {
		return err
	}
	return m.quote(ctx, tick.Price, params)
}

// holdPosition 持仓期间撤掉所有挂单并确保守护协程在运行。
func (m *Manager) holdPosition(ctx context.Context, pos exchange.Position) {
	if err := m.gw.CancelAllOrders(ctx); err != nil {
		m.hooks.orderError("cancel_all_orders")
		logger.Warnf("[orders] cancel all while in position failed: %v", err)
	} else if n := m.orders.Clear(); n > 0 {
		logger.Infof("[orders] position %s open, cancelled %d resting orders", pos.Quantity, n)
		m.hooks.openOrders(0)
		m.hooks.journal(ctx, model.JournalEntry{
			Kind:     model.KindOrdersCancelled,
			Symbol:   m.gw.Symbol(),
			Quantity: pos.Quantity.String(),
			Reason:   "position_open",
		})
	}
	if m.guard.Ensure(ctx) {
		logger.Infof("[guard] started for position %s pnl=%s", pos.Quantity, pos.UnrealizedPnL)
	}
}

// Reconcile 以交易所为准刷新本地挂单集合。
func (m *Manager) Reconcile(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconcile(ctx)
}

func (m *Manager) reconcile(ctx context.Context) error {
	live, err := m.gw.FetchOpenOrders(ctx)
	if err != nil {
		m.hooks.orderError("fetch_open_orders")
		return fmt.Errorf("fetch open orders: %w", err)
	}
	for _, id := range m.orders.Missing(live) {
		side, _ := m.orders.Side(id)
		if err := m.gw.CancelOrder(ctx, id); err != nil {
			if exchange.IsNotFound(err) {
				logger.Debugf("[orders] stale order %s already gone, likely filled", id)
			} else {
				logger.Warnf("[orders] cancel stale order %s failed, dropping: %v", id, err)
			}
		} else {
			logger.Infof("[orders] cancelled stale order %s", id)
		}
		m.hooks.journal(ctx, model.JournalEntry{
			Kind:    model.KindOrderPurged,
			Symbol:  m.gw.Symbol(),
			OrderID: id,
			Side:    string(side),
			Reason:  "missing_on_exchange",
		})
	}
	m.orders.Replace(live)
	m.hooks.openOrders(m.orders.Count())
	return nil
}

func (m *Manager) quote(ctx context.Context, price decimal.Decimal, params Params) error {
	count := m.orders.Count()
	if count >= params.MaxOpenOrders {
		logger.Debugf("[orders] cap reached (%d/%d), skip quote", count, params.MaxOpenOrders)
		return nil
	}
	snap, ok := m.signals.Snapshot()
	if !ok || !snap.ATRReady {
		logger.Debugf("[orders] ATR not ready, skip quote")
		return nil
	}
	spread := snap.ATR.Mul(params.SpreadMultiplier)

	var side exchange.Side
	var px decimal.Decimal
	switch snap.Decision() {
	case decision.SignalBuy:
		side, px = exchange.SideBuy, price.Sub(spread)
	case decision.SignalSell:
		side, px = exchange.SideSell, price.Add(spread)
	default:
		return nil
	}
	if !px.IsPositive() {
		logger.Warnf("[orders] computed %s price %s not positive, skip", side, px)
		return nil
	}

	filter := m.Filter()
	req := exchange.OrderRequest{
		Side:        side,
		Type:        exchange.OrderTypeLimit,
		Quantity:    filter.Quantity(params.BaseQty),
		Price:       filter.Price(px),
		TimeInForce: exchange.TimeInForceGTC,
	}
	if !positive(req.Quantity) {
		logger.Warnf("[orders] base qty %s rounds to %s with step %s, skip quote", params.BaseQty, req.Quantity, filter.StepSize)
		return nil
	}
	if !positive(req.Price) {
		logger.Warnf("[orders] price %s rounds to %s with tick %s, skip quote", px, req.Price, filter.TickSize)
		return nil
	}
	ord, err := m.gw.SubmitOrder(ctx, req)
	if err != nil {
		m.hooks.orderError("submit_order")
		return fmt.Errorf("submit %s limit %s@%s: %w", side, req.Quantity, req.Price, err)
	}
	m.orders.Add(ord.ID, side)
	m.lastPlacement.Store(m.now().UnixNano())
	logger.Infof("[orders] %s consensus, placed %s %s@%s id=%s spread=%s",
		side, side, req.Quantity, req.Price, ord.ID, spread.StringFixed(4))
	m.hooks.orderSubmitted(side, exchange.OrderTypeLimit)
	m.hooks.openOrders(m.orders.Count())
	m.hooks.journal(ctx, model.JournalEntry{
		Kind:      model.KindOrderSubmitted,
		Symbol:    m.gw.Symbol(),
		OrderID:   ord.ID,
		Side:      string(side),
		OrderType: string(exchange.OrderTypeLimit),
		Price:     req.Price,
		Quantity:  req.Quantity,
		Payload: map[string]any{
			"last_price": price.String(),
			"atr":        snap.ATR.String(),
			"spread":     spread.String(),
			"ma":         snap.MASignal.String(),
			"rsi":        snap.RSISignal.String(),
			"momentum":   snap.MomentumSignal.String(),
		},
	})
	return nil
}

// FlattenResult 汇总一键平仓的执行情况。
type FlattenResult struct {
	ClearedOrders int    `json:"cleared_orders"`
	Closed        bool   `json:"closed"`
	Side          string `json:"side,omitempty"`
	Quantity      string `json:"quantity,omitempty"`
}

// Flatten 停用机器人、停止守护、撤销全部挂单并市价平掉净头寸。
func (m *Manager) Flatten(ctx context.Context) (FlattenResult, error) {
	var res FlattenResult
	m.gate.Disable()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guard.Stop()

	if err := m.gw.CancelAllOrders(ctx); err != nil {
		m.hooks.orderError("cancel_all_orders")
		return res, fmt.Errorf("cancel all orders: %w", err)
	}
	res.ClearedOrders = m.orders.Clear()
	m.hooks.openOrders(0)

	pos, err := m.gw.FetchPosition(ctx)
	if err != nil {
		m.hooks.orderError("fetch_position")
		return res, fmt.Errorf("fetch position: %w", err)
	}
	if !pos.IsFlat() {
		req := m.closeRequest(pos)
		if _, err := m.gw.SubmitOrder(ctx, req); err != nil {
			m.hooks.orderError("flatten_close")
			return res, fmt.Errorf("close position %s: %w", pos.Quantity, err)
		}
		m.hooks.orderSubmitted(req.Side, exchange.OrderTypeMarket)
		res.Closed, res.Side, res.Quantity = true, string(req.Side), req.Quantity
	}
	m.resetPlacement()
	m.phase.Store(PhaseIdle)

	logger.Infof("[orders] flatten done: cleared=%d closed=%v %s %s", res.ClearedOrders, res.Closed, res.Side, res.Quantity)
	m.hooks.journal(ctx, model.JournalEntry{
		Kind:      model.KindFlatten,
		Symbol:    m.gw.Symbol(),
		Side:      res.Side,
		OrderType: string(exchange.OrderTypeMarket),
		Quantity:  res.Quantity,
		Payload:   map[string]any{"cleared_orders": res.ClearedOrders, "pnl": pos.UnrealizedPnL.String()},
	})
	m.hooks.notify(notifier.Message{
		Icon:  "🧹",
		Title: "Flatten " + m.gw.Symbol(),
		Sections: []notifier.Section{{Lines: []string{
			fmt.Sprintf("cleared orders: %d", res.ClearedOrders),
			fmt.Sprintf("closed: %v %s %s", res.Closed, res.Side, res.Quantity),
			"unrealized pnl: " + pos.UnrealizedPnL.String(),
		}}},
	})
	return res, nil
}

func positive(s string) bool {
	d, err := decimal.NewFromString(s)
	return err == nil && d.IsPositive()
}

// closeRequest 构造反向、仅减仓的市价单。
func (m *Manager) closeRequest(pos exchange.Position) exchange.OrderRequest {
	return exchange.OrderRequest{
		Side:       pos.CloseSide(),
		Type:       exchange.OrderTypeMarket,
		Quantity:   m.Filter().Quantity(pos.Quantity.Abs()),
		ReduceOnly: true,
	}
}
