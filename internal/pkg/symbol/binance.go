package symbol

import "strings"

// ToBinance 将 BTC/USDT、btcusdt 等写法统一为 BTCUSDT。
func ToBinance(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "/", "")
}

// StreamName 返回行情 websocket 使用的 stream 名称，例如 btcusdt@trade。
func StreamName(s, channel string) string {
	return strings.ToLower(ToBinance(s)) + "@" + channel
}
