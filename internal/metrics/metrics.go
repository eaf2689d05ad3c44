// Package metrics exposes the bot's Prometheus collectors.
package metrics

import (
	"net/http"

	"mmbot/internal/gateway/exchange"
	"mmbot/internal/market"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 持有独立的 registry，避免测试间共享全局状态。
type Metrics struct {
	registry *prometheus.Registry

	trades        prometheus.Counter
	orders        *prometheus.CounterVec
	orderErrors   *prometheus.CounterVec
	guardCloses   *prometheus.CounterVec
	indicatorRuns *prometheus.CounterVec
	openOrders    prometheus.Gauge
	lastPrice     prometheus.Gauge
	circuitState  *prometheus.GaugeVec
}

func New(symbol string) *Metrics {
	constLabels := prometheus.Labels{"symbol": symbol}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		trades: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mmbot_trades_total", Help: "Trade ticks ingested from the stream", ConstLabels: constLabels,
		}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mmbot_orders_total", Help: "Orders accepted by the exchange", ConstLabels: constLabels,
		}, []string{"side", "type"}),
		orderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mmbot_order_errors_total", Help: "Failed exchange calls by operation", ConstLabels: constLabels,
		}, []string{"op"}),
		guardCloses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mmbot_guard_closes_total", Help: "Positions closed by the guard", ConstLabels: constLabels,
		}, []string{"reason"}),
		indicatorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mmbot_indicator_runs_total", Help: "Indicator refresh outcomes", ConstLabels: constLabels,
		}, []string{"result"}),
		openOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mmbot_open_orders", Help: "Locally tracked resting orders", ConstLabels: constLabels,
		}),
		lastPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mmbot_last_price", Help: "Last traded price", ConstLabels: constLabels,
		}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mmbot_circuit_state", Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		}, []string{"name"}),
	}
	m.registry.MustRegister(
		m.trades, m.orders, m.orderErrors, m.guardCloses, m.indicatorRuns,
		m.openOrders, m.lastPrice, m.circuitState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) TradeReceived(t market.Tick) {
	m.trades.Inc()
	m.lastPrice.Set(t.Price.InexactFloat64())
}

func (m *Metrics) IndicatorRun(result string) {
	m.indicatorRuns.WithLabelValues(result).Inc()
}

func (m *Metrics) OrderSubmitted(side exchange.Side, typ exchange.OrderType) {
	m.orders.WithLabelValues(string(side), string(typ)).Inc()
}

func (m *Metrics) OrderError(op string) {
	m.orderErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) GuardClosed(reason string) {
	m.guardCloses.WithLabelValues(reason).Inc()
}

func (m *Metrics) OpenOrders(n int) {
	m.openOrders.Set(float64(n))
}

// CircuitState 记录熔断器状态，state 取值与 circuit.State 一致。
func (m *Metrics) CircuitState(name string, state int) {
	m.circuitState.WithLabelValues(name).Set(float64(state))
}
