package exchange

import (
	"context"
	"errors"

	"mmbot/internal/market"
	"mmbot/internal/pkg/circuit"
)

// guarded 在 REST 调用外包一层熔断器；只有 Transient/Fatal 计入失败次数。
// 持仓查询与 reduce-only 平仓属于保护路径，熔断打开时照常放行，结果仍计入熔断器。
type guarded struct {
	Gateway
	cb *circuit.CircuitBreaker
}

// WithCircuit 返回带熔断保护的网关。cb 为 nil 时原样返回。
func WithCircuit(g Gateway, cb *circuit.CircuitBreaker) Gateway {
	if cb == nil {
		return g
	}
	return &guarded{Gateway: g, cb: cb}
}

func countable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindFatal:
		return !errors.Is(err, context.Canceled)
	default:
		return false
	}
}

func (g *guarded) do(op string, fn func() error) error {
	err := g.cb.Do(fn, countable)
	if errors.Is(err, circuit.ErrOpen) {
		return NewError(KindTransient, op, 0, ErrCircuitOpen)
	}
	return err
}

func (g *guarded) protective(fn func() error) error {
	err := fn()
	if err != nil && countable(err) {
		g.cb.RecordFailure()
	} else {
		g.cb.RecordSuccess()
	}
	return err
}

func (g *guarded) StreamTrades(ctx context.Context, opts market.SubscribeOptions) (<-chan market.Tick, error) {
	return g.Gateway.StreamTrades(ctx, opts)
}

func (g *guarded) FetchCandles(ctx context.Context, interval string, limit int) ([]market.Candle, error) {
	var out []market.Candle
	err := g.do("fetch_candles", func() error {
		var err error
		out, err = g.Gateway.FetchCandles(ctx, interval, limit)
		return err
	})
	return out, err
}

func (g *guarded) FetchOpenOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	err := g.do("fetch_open_orders", func() error {
		var err error
		out, err = g.Gateway.FetchOpenOrders(ctx)
		return err
	})
	return out, err
}

func (g *guarded) FetchPosition(ctx context.Context) (Position, error) {
	var out Position
	err := g.protective(func() error {
		var err error
		out, err = g.Gateway.FetchPosition(ctx)
		return err
	})
	return out, err
}

func (g *guarded) SubmitOrder(ctx context.Context, req OrderRequest) (Order, error) {
	var out Order
	fn := func() error {
		var err error
		out, err = g.Gateway.SubmitOrder(ctx, req)
		return err
	}
	if req.ReduceOnly {
		return out, g.protective(fn)
	}
	return out, g.do("submit_order", fn)
}

func (g *guarded) CancelOrder(ctx context.Context, orderID string) error {
	return g.do("cancel_order", func() error {
		return g.Gateway.CancelOrder(ctx, orderID)
	})
}

func (g *guarded) CancelAllOrders(ctx context.Context) error {
	return g.do("cancel_all_orders", func() error {
		return g.Gateway.CancelAllOrders(ctx)
	})
}

func (g *guarded) FetchInstrument(ctx context.Context) (Instrument, error) {
	var out Instrument
	err := g.do("fetch_instrument", func() error {
		var err error
		out, err = g.Gateway.FetchInstrument(ctx)
		return err
	})
	return out, err
}
