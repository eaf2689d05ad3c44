package decision

// Votes 汇总一次共识计算的投票情况。
type Votes struct {
	Buy   int    `json:"buy"`
	Sell  int    `json:"sell"`
	None  int    `json:"none"`
	Final Signal `json:"final"`
}

// Quorum 是共识所需的最少同向票数。
const Quorum = 2

// Consensus 对 MA、RSI、动量三个信号做多数表决，至少两票同向才给出方向。
func Consensus(ma, rsi, momentum Signal) Signal {
	return Tally(ma, rsi, momentum).Final
}

// Tally 返回计票明细；成交量确认与 ATR 不参与投票。
func Tally(signals ...Signal) Votes {
	var v Votes
	for _, s := range signals {
		switch s {
		case SignalBuy:
			v.Buy++
		case SignalSell:
			v.Sell++
		default:
			v.None++
		}
	}
	switch {
	case v.Buy >= Quorum && v.Buy > v.Sell:
		v.Final = SignalBuy
	case v.Sell >= Quorum && v.Sell > v.Buy:
		v.Final = SignalSell
	default:
		v.Final = SignalNone
	}
	return v
}
