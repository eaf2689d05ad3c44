package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Tick 是逐笔成交推送中的一条价格。
type Tick struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Time   time.Time       `json:"time"`
}

type SubscribeOptions struct {
	Buffer       int
	OnConnect    func()
	OnDisconnect func(error)
}

type SourceStats struct {
	Connected       bool   `json:"connected"`
	Reconnects      int    `json:"reconnects"`
	SubscribeErrors int    `json:"subscribe_errors"`
	ParseErrors     int    `json:"parse_errors"`
	LastError       string `json:"last_error,omitempty"`
}

// TradeSource 提供逐笔成交流；返回的 channel 在 ctx 结束后关闭，断线重连由实现负责。
type TradeSource interface {
	SubscribeTrades(ctx context.Context, symbol string, opts SubscribeOptions) (<-chan Tick, error)

	Stats() SourceStats
}
