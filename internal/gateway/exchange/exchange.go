// Package exchange defines the exchange abstraction used by the trading loops.
// Every call is bound to the single instrument the gateway was built for.
package exchange

import (
	"context"

	"mmbot/internal/market"
)

type Gateway interface {
	Name() string

	Symbol() string

	// StreamTrades 返回逐笔成交流，断线重连由实现负责。
	StreamTrades(ctx context.Context, opts market.SubscribeOptions) (<-chan market.Tick, error)

	FetchCandles(ctx context.Context, interval string, limit int) ([]market.Candle, error)

	FetchOpenOrders(ctx context.Context) ([]Order, error)

	// FetchPosition 每次都从交易所读取，不做缓存。
	FetchPosition(ctx context.Context) (Position, error)

	SubmitOrder(ctx context.Context, req OrderRequest) (Order, error)

	CancelOrder(ctx context.Context, orderID string) error

	CancelAllOrders(ctx context.Context) error

	FetchInstrument(ctx context.Context) (Instrument, error)

	// Authenticate 校验连通性与密钥，并同步服务器时间。
	Authenticate(ctx context.Context) error
}
