package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"

	"mmbot/internal/decision"
	"mmbot/internal/market"
)

// Settings 描述计算指标所需的周期与阈值。
type Settings struct {
	Interval       string
	ShortMA        int
	LongMA         int
	RSIPeriod      int
	RSIOversold    float64
	RSIOverbought  float64
	ATRPeriod      int
	MomentumPeriod int
}

func (s Settings) withDefaults() Settings {
	if s.Interval == "" {
		s.Interval = "1m"
	}
	if s.ShortMA <= 0 {
		s.ShortMA = 20
	}
	if s.LongMA <= 0 {
		s.LongMA = 50
	}
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = 14
	}
	if s.RSIOversold == 0 {
		s.RSIOversold = 30
	}
	if s.RSIOverbought == 0 {
		s.RSIOverbought = 70
	}
	if s.ATRPeriod <= 0 {
		s.ATRPeriod = 14
	}
	if s.MomentumPeriod <= 0 {
		s.MomentumPeriod = 10
	}
	return s
}

// CandleLimit 返回一次计算需要的 K 线数量。
func (s Settings) CandleLimit() int {
	s = s.withDefaults()
	return max(s.LongMA, s.RSIPeriod, s.ATRPeriod, s.MomentumPeriod) + 1
}

// Snapshot 是一次指标计算的完整结果，发布后只读。
// 信号与 ATR 基于未取整的数值，ShortMA 等展示字段保留 4 位小数。
type Snapshot struct {
	MASignal        decision.Signal `json:"ma_signal"`
	RSISignal       decision.Signal `json:"rsi_signal"`
	MomentumSignal  decision.Signal `json:"momentum_signal"`
	VolumeConfirmed bool            `json:"volume_confirmed"`
	ATR             decimal.Decimal `json:"atr"`
	ATRReady        bool            `json:"atr_ready"`

	ShortMA    float64   `json:"short_ma"`
	LongMA     float64   `json:"long_ma"`
	RSI        float64   `json:"rsi"`
	Momentum   float64   `json:"momentum"`
	Volume     float64   `json:"volume"`
	MeanVolume float64   `json:"mean_volume"`
	Candles    int       `json:"candles"`
	ComputedAt time.Time `json:"computed_at"`
}

// Decision 返回三信号共识。
func (s Snapshot) Decision() decision.Signal {
	return decision.Consensus(s.MASignal, s.RSISignal, s.MomentumSignal)
}

// Compute 由 K 线计算全部信号。窗口不足以支撑某个指标时，该信号为 NONE。
func Compute(candles []market.Candle, cfg Settings) (Snapshot, error) {
	cfg = cfg.withDefaults()
	snap := Snapshot{
		MASignal:       decision.SignalNone,
		RSISignal:      decision.SignalNone,
		MomentumSignal: decision.SignalNone,
		ATR:            decimal.Zero,
		Candles:        len(candles),
		ComputedAt:     time.Now().UTC(),
	}
	if len(candles) == 0 {
		return snap, fmt.Errorf("no candles")
	}
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}

	// MA 交叉
	if len(closes) >= cfg.LongMA && len(closes) >= cfg.ShortMA {
		short := last(talib.Sma(closes, cfg.ShortMA))
		long := last(talib.Sma(closes, cfg.LongMA))
		snap.MASignal = decision.FromSign(short - long)
		snap.ShortMA, snap.LongMA = round4(short), round4(long)
	}

	// RSI
	if rsi, ok := RSI(closes, cfg.RSIPeriod); ok {
		snap.RSI = round4(rsi)
		switch {
		case rsi < cfg.RSIOversold:
			snap.RSISignal = decision.SignalBuy
		case rsi > cfg.RSIOverbought:
			snap.RSISignal = decision.SignalSell
		}
	}

	// 成交量确认
	snap.Volume = volumes[len(volumes)-1]
	snap.MeanVolume = mean(volumes)
	snap.VolumeConfirmed = snap.Volume > snap.MeanVolume

	// 动量
	if len(closes) > cfg.MomentumPeriod {
		mom := last(talib.Mom(closes, cfg.MomentumPeriod))
		snap.MomentumSignal = decision.FromSign(mom)
		snap.Momentum = round4(mom)
	}

	// ATR
	if atr, ok := ATR(highs, lows, closes, cfg.ATRPeriod); ok {
		snap.ATR = decimal.NewFromFloat(atr)
		snap.ATRReady = true
	}
	return snap, nil
}

// RSI 分别取整个窗口中最近 period 个上涨幅度与下跌幅度求均值；
// 某一侧不足 period 个时该侧均值记为 0，下跌均值为 0 时返回 100。
// 收盘价不足 period+1 个时 ok=false。
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}
	var gains, losses []float64
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		switch {
		case d > 0:
			gains = append(gains, d)
		case d < 0:
			losses = append(losses, -d)
		}
	}
	avgGain, avgLoss := tailMean(gains, period), tailMean(losses, period)
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// tailMean 返回最近 n 个值的均值，不足 n 个时为 0。
func tailMean(xs []float64, n int) float64 {
	if len(xs) < n {
		return 0
	}
	return mean(xs[len(xs)-n:])
}

// ATR 为最近 period 个真实波幅的简单均值，至少需要 period+1 根 K 线。
func ATR(highs, lows, closes []float64, period int) (float64, bool) {
	n := len(closes)
	if period <= 0 || n < period+1 || len(highs) != n || len(lows) != n {
		return 0, false
	}
	tr := talib.TRange(highs, lows, closes)
	v := mean(tr[n-period:])
	if math.IsNaN(v) || v < 0 {
		return 0, false
	}
	return v, true
}

func last(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i]
		}
	}
	return 0
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
