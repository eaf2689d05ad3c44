package exchange

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite 返回反向方向，用于平仓。
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

func ParseSide(s string) (Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return SideBuy, true
	case "SELL":
		return SideSell, true
	default:
		return "", false
	}
}

type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

type TimeInForce string

const TimeInForceGTC TimeInForce = "GTC"

// OrderRequest 中的价格与数量已按交易所精度格式化。
type OrderRequest struct {
	Side          Side
	Type          OrderType
	Quantity      string
	Price         string // 市价单为空
	TimeInForce   TimeInForce
	ReduceOnly    bool
	ClientOrderID string
}

type Order struct {
	ID            string          `json:"id"`
	ClientOrderID string          `json:"client_order_id,omitempty"`
	Side          Side            `json:"side"`
	Type          OrderType       `json:"type"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Position 单向持仓模式下的净头寸；Quantity 为正表示多头，为负表示空头。
type Position struct {
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	MarkPrice     decimal.Decimal `json:"mark_price"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

func (p Position) IsFlat() bool {
	return p.Quantity.IsZero()
}

// CloseSide 返回平掉当前头寸需要的下单方向。
func (p Position) CloseSide() Side {
	if p.Quantity.IsNegative() {
		return SideBuy
	}
	return SideSell
}

type Instrument struct {
	Symbol      string          `json:"symbol"`
	TickSize    decimal.Decimal `json:"tick_size"`
	StepSize    decimal.Decimal `json:"step_size"`
	MinQuantity decimal.Decimal `json:"min_quantity"`
}
