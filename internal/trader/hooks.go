package trader

import (
	"context"
	"time"

	"mmbot/internal/gateway/exchange"
	"mmbot/internal/gateway/notifier"
	"mmbot/internal/logger"
	"mmbot/internal/store/model"
)

// Journal 追加审计记录。
type Journal interface {
	Append(ctx context.Context, e model.JournalEntry) error
}

// Recorder 接收下单相关的计数。
type Recorder interface {
	OrderSubmitted(side exchange.Side, typ exchange.OrderType)
	OrderError(op string)
	GuardClosed(reason string)
	OpenOrders(n int)
}

// Hooks 汇总旁路副作用，任一字段为空即跳过；失败只记日志，不影响交易流程。
type Hooks struct {
	Journal  Journal
	Recorder Recorder
	Notifier notifier.TextNotifier
}

const notifyTimeout = 20 * time.Second

func (h Hooks) journal(ctx context.Context, e model.JournalEntry) {
	if h.Journal == nil {
		return
	}
	if err := h.Journal.Append(context.WithoutCancel(ctx), e); err != nil {
		logger.Warnf("[journal] append %s failed: %v", e.Kind, err)
	}
}

func (h Hooks) notify(msg notifier.Message) {
	if h.Notifier == nil {
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	text := msg.Render()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := h.Notifier.SendText(ctx, text); err != nil {
			logger.Warnf("[notify] send failed: %v", err)
		}
	}()
}

func (h Hooks) orderSubmitted(side exchange.Side, typ exchange.OrderType) {
	if h.Recorder != nil {
		h.Recorder.OrderSubmitted(side, typ)
	}
}

func (h Hooks) orderError(op string) {
	if h.Recorder != nil {
		h.Recorder.OrderError(op)
	}
}

func (h Hooks) guardClosed(reason string) {
	if h.Recorder != nil {
		h.Recorder.GuardClosed(reason)
	}
}

func (h Hooks) openOrders(n int) {
	if h.Recorder != nil {
		h.Recorder.OpenOrders(n)
	}
}
