package decision

import "strings"

// Signal 是单个指标或共识给出的方向。
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalNone Signal = "NONE"
)

func (s Signal) String() string {
	if s == "" {
		return string(SignalNone)
	}
	return string(s)
}

func ParseSignal(s string) Signal {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return SignalBuy
	case "SELL":
		return SignalSell
	default:
		return SignalNone
	}
}

// FromSign 按数值符号映射方向：正数为 BUY，负数为 SELL，零为 NONE。
func FromSign(v float64) Signal {
	switch {
	case v > 0:
		return SignalBuy
	case v < 0:
		return SignalSell
	default:
		return SignalNone
	}
}
