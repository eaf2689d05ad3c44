package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mmbot/internal/gateway/exchange"
	"mmbot/internal/market"

	"github.com/adshao/go-binance/v2/common"
	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{
		APIKey:        "k",
		APISecret:     "s",
		Symbol:        "btcusdt",
		RESTBaseURL:   srv.URL,
		StreamBaseURL: "ws" + strings.TrimPrefix(srv.URL, "http"),
		HTTPTimeout:   2 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func TestFetchCandles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fapi/v1/klines", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))
		assert.Equal(t, "51", r.URL.Query().Get("limit"))
		w.Write([]byte(`[[1700000000000,"100.0","101.5","99.5","101.0","12.5",1700000059999,"0",42,"0","0","0"]]`))
	})
	c := newTestClient(t, mux)

	candles, err := c.FetchCandles(context.Background(), "1m", 51)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 101.5, candles[0].High)
	assert.Equal(t, 101.0, candles[0].Close)
	assert.Equal(t, 12.5, candles[0].Volume)
	assert.Equal(t, int64(42), candles[0].Trades)
}

func TestFetchInstrument(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fapi/v1/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols":[
			{"symbol":"ETHUSDT","filters":[]},
			{"symbol":"BTCUSDT","filters":[
				{"filterType":"PRICE_FILTER","minPrice":"0.10","maxPrice":"1000000","tickSize":"0.10"},
				{"filterType":"LOT_SIZE","minQty":"0.001","maxQty":"1000","stepSize":"0.001"}
			]}]}`))
	})
	c := newTestClient(t, mux)

	inst, err := c.FetchInstrument(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.1", inst.TickSize.String())
	assert.Equal(t, "0.001", inst.StepSize.String())
}

func TestFetchInstrumentMissingSymbolIsFatal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fapi/v1/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols":[]}`))
	})
	c := newTestClient(t, mux)

	_, err := c.FetchInstrument(context.Background())
	assert.Equal(t, exchange.KindFatal, exchange.KindOf(err))
}

func TestCancelUnknownOrderIsNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fapi/v1/order", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-2011,"msg":"Unknown order sent."}`))
	})
	c := newTestClient(t, mux)

	err := c.CancelOrder(context.Background(), "12345")
	require.Error(t, err)
	assert.True(t, exchange.IsNotFound(err))

	err = c.CancelOrder(context.Background(), "not-a-number")
	assert.True(t, exchange.IsNotFound(err))
}

func TestSubmitOrderRequiresPriceForLimit(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())
	_, err := c.SubmitOrder(context.Background(), exchange.OrderRequest{
		Side: exchange.SideBuy, Type: exchange.OrderTypeLimit, Quantity: "0.006",
	})
	assert.Equal(t, exchange.KindRejected, exchange.KindOf(err))
}

func TestClassify(t *testing.T) {
	cases := map[int64]exchange.Kind{
		-1003: exchange.KindTransient,
		-2011: exchange.KindNotFound,
		-2013: exchange.KindNotFound,
		-2015: exchange.KindAuth,
		-1022: exchange.KindAuth,
		-2019: exchange.KindRejected,
		-4131: exchange.KindRejected,
		-1111: exchange.KindRejected,
		-1121: exchange.KindFatal,
		-9999: exchange.KindTransient,
	}
	for code, want := range cases {
		err := classify("op", &common.APIError{Code: code, Message: "x"})
		assert.Equal(t, want, exchange.KindOf(err), "code %d", code)
	}
	assert.Equal(t, exchange.KindTransient, exchange.KindOf(classify("op", errors.New("dial tcp: refused"))))
	assert.Equal(t, exchange.KindTransient, exchange.KindOf(classify("op", context.DeadlineExceeded)))
	assert.NoError(t, classify("op", nil))
}

func TestParseTrade(t *testing.T) {
	tick, ok := parseTrade([]byte(`{"e":"trade","E":1700000000100,"T":1700000000099,"s":"BTCUSDT","t":1,"p":"50000.10","q":"0.010","X":"MARKET","m":true}`))
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", tick.Symbol)
	assert.Equal(t, "50000.1", tick.Price.String())
	assert.Equal(t, int64(1700000000099), tick.Time.UnixMilli())

	_, ok = parseTrade([]byte(`{"e":"aggTrade","p":"1"}`))
	assert.False(t, ok)
	_, ok = parseTrade([]byte(`{"e":"trade","p":"abc"}`))
	assert.False(t, ok)
	_, ok = parseTrade([]byte(`not json`))
	assert.False(t, ok)
}

func TestNextDelayCapped(t *testing.T) {
	d := time.Second
	for i := 0; i < 10; i++ {
		d = nextDelay(d)
	}
	assert.Equal(t, 30*time.Second, d)
	assert.Equal(t, 2*time.Second, nextDelay(time.Second))
}

func TestNewClientOrderIDLength(t *testing.T) {
	id := NewClientOrderID()
	assert.LessOrEqual(t, len(id), 36)
	assert.True(t, strings.HasPrefix(id, "mm-"))
}

func TestStreamTradesReconnects(t *testing.T) {
	upgrader := websocket.Upgrader{}
	conns := make(chan struct{}, 4)
	mux := http.NewServeMux()
	mux.HandleFunc("/btcusdt@trade", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- struct{}{}
		conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"e":"trade","T":1700000000000,"s":"BTCUSDT","p":"42000.5"}`))
		conn.Close()
	})
	c := newTestClient(t, mux)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := c.StreamTrades(ctx, market.SubscribeOptions{})
	require.NoError(t, err)

	select {
	case tick := <-ch:
		assert.Equal(t, "42000.5", tick.Price.String())
	case <-time.After(3 * time.Second):
		t.Fatal("no tick received")
	}
	select {
	case <-conns:
	case <-time.After(time.Second):
	}
	select {
	case <-conns:
	case <-time.After(4 * time.Second):
		t.Fatal("stream did not reconnect")
	}
	assert.GreaterOrEqual(t, c.Stats().Reconnects, 1)
	assert.GreaterOrEqual(t, c.Stats().ParseErrors, 1)

	cancel()
	for range ch {
	}
}
