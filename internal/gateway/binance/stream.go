package binance

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mmbot/internal/logger"
	"mmbot/internal/market"
	symbolpkg "mmbot/internal/pkg/symbol"

	"github.com/fasthttp/websocket"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	streamReadTimeout = 2 * time.Minute
	maxReconnectDelay = 30 * time.Second
)

// StreamTrades 实现 exchange.Gateway。
func (c *Client) StreamTrades(ctx context.Context, opts market.SubscribeOptions) (<-chan market.Tick, error) {
	return c.SubscribeTrades(ctx, c.symbol, opts)
}

// SubscribeTrades 订阅 <symbol>@trade 原始成交流，断线后按 1s 起步、翻倍、封顶 30s 的间隔重连。
// 同一 Client 只保留一个订阅，重复调用会取消前一个。
func (c *Client) SubscribeTrades(ctx context.Context, sym string, opts market.SubscribeOptions) (<-chan market.Tick, error) {
	sym = symbolpkg.ToBinance(sym)
	if sym == "" {
		return nil, fmt.Errorf("symbol is required for trade subscription")
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 1024
	}
	out := make(chan market.Tick, buffer)
	subCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.tradeCancel != nil {
		c.tradeCancel()
	}
	c.tradeCancel = cancel
	c.mu.Unlock()

	wsURL := c.cfg.StreamBaseURL + "/" + symbolpkg.StreamName(sym, "trade")
	go func() {
		defer close(out)
		c.runTradeLoop(subCtx, wsURL, out, opts)
	}()
	return out, nil
}

func (c *Client) dialer() *websocket.Dialer {
	d := &websocket.Dialer{
		HandshakeTimeout: c.cfg.HTTPTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	if c.proxy != nil {
		d.Proxy = http.ProxyURL(c.proxy)
	}
	return d
}

func (c *Client) runTradeLoop(ctx context.Context, wsURL string, out chan<- market.Tick, opts market.SubscribeOptions) {
	delay := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := c.dialer().DialContext(ctx, wsURL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.recordSubscribeError(err)
			if opts.OnDisconnect != nil {
				opts.OnDisconnect(err)
			}
			if !sleepWithContext(ctx, delay) {
				return
			}
			delay = nextDelay(delay)
			continue
		}
		delay = time.Second
		c.setConnected(true)
		if opts.OnConnect != nil {
			opts.OnConnect()
		}
		readErr := c.readTrades(ctx, conn, out)
		c.setConnected(false)
		if ctx.Err() != nil {
			return
		}
		c.recordReconnect(readErr)
		if opts.OnDisconnect != nil {
			opts.OnDisconnect(readErr)
		}
		if !sleepWithContext(ctx, delay) {
			return
		}
		delay = nextDelay(delay)
	}
}

func (c *Client) readTrades(ctx context.Context, conn *websocket.Conn, out chan<- market.Tick) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
			conn.Close()
		}
	}()
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})
	for {
		_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		tick, ok := parseTrade(message)
		if !ok {
			c.recordParseError()
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- tick:
		default:
			logger.Warnf("[binance] trade channel full, drop %s", tick.Symbol)
		}
	}
}

// parseTrade 解析 trade 推送中的价格 p 与成交时间 T。
func parseTrade(message []byte) (market.Tick, bool) {
	if !gjson.ValidBytes(message) {
		return market.Tick{}, false
	}
	res := gjson.ParseBytes(message)
	if e := res.Get("e"); e.Exists() && e.String() != "trade" {
		return market.Tick{}, false
	}
	px, err := decimal.NewFromString(res.Get("p").String())
	if err != nil || !px.IsPositive() {
		return market.Tick{}, false
	}
	ts := res.Get("T").Int()
	if ts <= 0 {
		ts = res.Get("E").Int()
	}
	return market.Tick{
		Symbol: strings.ToUpper(res.Get("s").String()),
		Price:  px,
		Time:   time.UnixMilli(ts).UTC(),
	}, true
}

func (c *Client) Stats() market.SourceStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextDelay(current time.Duration) time.Duration {
	if current <= 0 {
		return time.Second
	}
	next := current * 2
	if next > maxReconnectDelay {
		next = maxReconnectDelay
	}
	return next
}

func (c *Client) setConnected(v bool) {
	c.statsMu.Lock()
	c.stats.Connected = v
	if v {
		c.stats.LastError = ""
	}
	c.statsMu.Unlock()
}

func (c *Client) recordSubscribeError(err error) {
	if err == nil {
		return
	}
	c.statsMu.Lock()
	c.stats.SubscribeErrors++
	c.stats.LastError = err.Error()
	c.statsMu.Unlock()
}

func (c *Client) recordParseError() {
	c.statsMu.Lock()
	c.stats.ParseErrors++
	c.statsMu.Unlock()
}

func (c *Client) recordReconnect(err error) {
	c.statsMu.Lock()
	c.stats.Reconnects++
	if err != nil && err.Error() != "" {
		c.stats.LastError = err.Error()
	}
	c.statsMu.Unlock()
}
