package trader

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"mmbot/internal/gateway/exchange"
	"mmbot/internal/gateway/notifier"
	"mmbot/internal/logger"
	"mmbot/internal/store/model"
)

const (
	ReasonTakeProfit = "take_profit"
	ReasonStopLoss   = "stop_loss"
)

// Guard 监控净头寸的未实现盈亏，触发阈值后市价平仓。
// 同一时刻最多只有一个运行中的协程；持仓归零或平仓成功后自行退出。
type Guard struct {
	m    *Manager
	poll time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newGuard(m *Manager, poll time.Duration) *Guard {
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &Guard{m: m, poll: poll}
}

// Ensure 在没有运行中的守护协程时启动一个，返回是否新启动。
func (g *Guard) Ensure(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done != nil {
		return false
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	g.cancel, g.done = cancel, done
	go g.run(runCtx, done)
	return true
}

func (g *Guard) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done != nil
}

// Stop 取消运行中的守护协程并等待其退出。
func (g *Guard) Stop() {
	g.mu.Lock()
	cancel, done := g.cancel, g.done
	g.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (g *Guard) run(ctx context.Context, done chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[guard] panic: %v\n%s", r, debug.Stack())
		}
		g.mu.Lock()
		if g.done == done {
			g.cancel()
			g.cancel, g.done = nil, nil
		}
		g.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(g.poll)
	defer ticker.Stop()
	for {
		if g.Check(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			logger.Infof("[guard] cancelled")
			return
		case <-ticker.C:
		}
	}
}

// Check 执行一轮检查，返回 true 表示守护应当结束。
// 停用期间不访问交易所，但保持运行以便恢复后继续守护。
func (g *Guard) Check(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	m := g.m
	if !m.gate.Enabled() {
		return false
	}
	pos, err := m.gw.FetchPosition(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		m.hooks.orderError("guard_fetch_position")
		logger.Errorf("[guard] fetch position failed: %v", err)
		return false
	}
	if pos.IsFlat() {
		logger.Infof("[guard] position closed, stopping")
		return true
	}

	params := m.Params()
	var reason string
	switch {
	case pos.UnrealizedPnL.GreaterThanOrEqual(params.ProfitTarget):
		reason = ReasonTakeProfit
	case pos.UnrealizedPnL.LessThanOrEqual(params.StopLoss.Neg()):
		reason = ReasonStopLoss
	default:
		return false
	}

	req := m.closeRequest(pos)
	if reason == ReasonStopLoss {
		logger.Warnf("[guard] stop-loss triggered pnl=%s, closing %s %s", pos.UnrealizedPnL, req.Side, req.Quantity)
	} else {
		logger.Infof("[guard] take-profit triggered pnl=%s, closing %s %s", pos.UnrealizedPnL, req.Side, req.Quantity)
	}
	ord, err := m.gw.SubmitOrder(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		m.hooks.orderError("guard_close")
		logger.Errorf("[guard] close order failed, will retry: %v", err)
		return false
	}
	m.resetPlacement()
	m.hooks.orderSubmitted(req.Side, exchange.OrderTypeMarket)
	m.hooks.guardClosed(reason)
	m.hooks.journal(ctx, model.JournalEntry{
		Kind:      model.KindGuardClose,
		Symbol:    m.gw.Symbol(),
		OrderID:   ord.ID,
		Side:      string(req.Side),
		OrderType: string(exchange.OrderTypeMarket),
		Quantity:  req.Quantity,
		Reason:    reason,
		Payload: map[string]any{
			"pnl":         pos.UnrealizedPnL.String(),
			"entry_price": pos.EntryPrice.String(),
			"mark_price":  pos.MarkPrice.String(),
		},
	})
	m.hooks.notify(notifier.Message{
		Icon:  "🛡",
		Title: fmt.Sprintf("Guard %s %s", reason, m.gw.Symbol()),
		Sections: []notifier.Section{{Lines: []string{
			fmt.Sprintf("closed %s %s", req.Side, req.Quantity),
			"pnl: " + pos.UnrealizedPnL.String(),
			"entry: " + pos.EntryPrice.String(),
		}}},
	})
	logger.Infof("[guard] position closed by %s", reason)
	return true
}
