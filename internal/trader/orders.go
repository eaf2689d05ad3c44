package trader

import (
	"sort"
	"sync"

	"mmbot/internal/gateway/exchange"
)

// OrderSet 本地跟踪的挂单：orderId -> side。每次对账后与交易所镜像一致。
type OrderSet struct {
	mu     sync.Mutex
	orders map[string]exchange.Side
}

func NewOrderSet() *OrderSet {
	return &OrderSet{orders: make(map[string]exchange.Side)}
}

func (s *OrderSet) Add(id string, side exchange.Side) {
	s.mu.Lock()
	s.orders[id] = side
	s.mu.Unlock()
}

func (s *OrderSet) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// IDs 返回排序后的订单号副本。
func (s *OrderSet) IDs() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.orders))
	for id := range s.orders {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)
	return ids
}

func (s *OrderSet) Side(id string) (exchange.Side, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	side, ok := s.orders[id]
	return side, ok
}

// Missing 返回本地有而 live 中没有的订单号。
func (s *OrderSet) Missing(live []exchange.Order) []string {
	seen := make(map[string]struct{}, len(live))
	for _, o := range live {
		seen[o.ID] = struct{}{}
	}
	var out []string
	for _, id := range s.IDs() {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Replace 用交易所返回的挂单整体替换本地集合，未知方向的订单被忽略。
func (s *OrderSet) Replace(live []exchange.Order) {
	next := make(map[string]exchange.Side, len(live))
	for _, o := range live {
		if side, ok := exchange.ParseSide(string(o.Side)); ok {
			next[o.ID] = side
		}
	}
	s.mu.Lock()
	s.orders = next
	s.mu.Unlock()
}

// Clear 清空集合并返回清掉的数量。
func (s *OrderSet) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.orders)
	s.orders = make(map[string]exchange.Side)
	return n
}
