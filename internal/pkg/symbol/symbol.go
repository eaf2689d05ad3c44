package symbol

import (
	"strings"
)

// USDⓈ-M 合约的保证金币种，按长度降序匹配。
var marginAssets = []string{"FDUSD", "USDT", "USDC"}

// Pair 是拆分后的合约交易对。
type Pair struct {
	Base  string
	Quote string
}

func (p Pair) String() string {
	if p.Base == "" || p.Quote == "" {
		return ""
	}
	return p.Base + "/" + p.Quote
}

// Split 将 BTCUSDT、btc/usdt、BTC/USDT:USDT 拆为 base/quote，无法识别时 ok=false。
func Split(s string) (Pair, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	if base, quote, found := strings.Cut(s, "/"); found {
		base, quote = strings.TrimSpace(base), strings.TrimSpace(quote)
		return Pair{Base: base, Quote: quote}, base != "" && isMarginAsset(quote)
	}
	for _, quote := range marginAssets {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Pair{Base: s[:len(s)-len(quote)], Quote: quote}, true
		}
	}
	return Pair{}, false
}

func isMarginAsset(q string) bool {
	for _, m := range marginAssets {
		if q == m {
			return true
		}
	}
	return false
}

// Display 返回 BASE/QUOTE，用于日志与通知；无法识别时原样大写返回。
func Display(s string) string {
	if p, ok := Split(s); ok {
		return p.String()
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

func IsValid(s string) bool {
	_, ok := Split(s)
	return ok
}
