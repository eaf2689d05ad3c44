package trader

import "sync/atomic"

// Gate 是全局启停开关。所有循环在每轮开始时读取它。
type Gate struct {
	enabled atomic.Bool
}

// Enable 返回 true 表示状态发生了变化。
func (g *Gate) Enable() bool {
	return g.enabled.CompareAndSwap(false, true)
}

// Disable 返回 true 表示状态发生了变化。
func (g *Gate) Disable() bool {
	return g.enabled.CompareAndSwap(true, false)
}

func (g *Gate) Enabled() bool {
	return g.enabled.Load()
}
