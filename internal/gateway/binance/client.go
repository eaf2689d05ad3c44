package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"mmbot/internal/gateway/exchange"
	"mmbot/internal/logger"
	"mmbot/internal/market"
	symbolpkg "mmbot/internal/pkg/symbol"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxHistoryLimit = 1500

// Client 基于 go-binance SDK 实现 exchange.Gateway，绑定单一合约。
type Client struct {
	cfg    Config
	symbol string
	client *futures.Client
	proxy  *url.URL

	mu          sync.Mutex
	tradeCancel context.CancelFunc

	statsMu sync.Mutex
	stats   market.SourceStats
}

func New(cfg Config) (*Client, error) {
	final := cfg.withDefaults()
	sym := symbolpkg.ToBinance(final.Symbol)
	if sym == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	client := futures.NewClient(final.APIKey, final.APISecret)
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	var proxyURL *url.URL
	if final.ProxyURL != "" {
		u, err := url.Parse(final.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(u)
		httpClient.Transport = transport
		proxyURL = u
	}
	client.HTTPClient = httpClient
	return &Client{
		cfg:    final,
		symbol: sym,
		client: client,
		proxy:  proxyURL,
	}, nil
}

func (c *Client) Name() string { return "binance" }

func (c *Client) Symbol() string { return c.symbol }

// Authenticate ping → 同步服务器时间 → 签名读取持仓，任何一步失败即返回。
func (c *Client) Authenticate(ctx context.Context) error {
	if err := c.client.NewPingService().Do(ctx); err != nil {
		return classify("ping", err)
	}
	offset, err := c.client.NewSetServerTimeService().Do(ctx)
	if err != nil {
		return classify("server_time", err)
	}
	logger.Infof("[binance] server time offset %dms", offset)
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return exchange.NewError(exchange.KindAuth, "authenticate", 0, fmt.Errorf("api key or secret missing"))
	}
	if _, err := c.FetchPosition(ctx); err != nil {
		return err
	}
	return nil
}

func (c *Client) FetchCandles(ctx context.Context, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, exchange.NewError(exchange.KindFatal, "fetch_candles", 0, fmt.Errorf("interval is required"))
	}
	kls, err := c.client.NewKlinesService().Symbol(c.symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, classify("fetch_candles", err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	return out, nil
}

func (c *Client) FetchOpenOrders(ctx context.Context) ([]exchange.Order, error) {
	orders, err := c.client.NewListOpenOrdersService().Symbol(c.symbol).Do(ctx, futures.WithRecvWindow(c.cfg.RecvWindow))
	if err != nil {
		return nil, classify("fetch_open_orders", err)
	}
	out := make([]exchange.Order, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		out = append(out, exchange.Order{
			ID:            strconv.FormatInt(o.OrderID, 10),
			ClientOrderID: o.ClientOrderID,
			Side:          exchange.Side(o.Side),
			Type:          exchange.OrderType(o.Type),
			Price:         parseDecimal(o.Price),
			Quantity:      parseDecimal(o.OrigQuantity),
			Status:        string(o.Status),
			CreatedAt:     time.UnixMilli(o.Time).UTC(),
		})
	}
	return out, nil
}

// FetchPosition 汇总该合约所有持仓方向，得到单向模式下的净头寸。
func (c *Client) FetchPosition(ctx context.Context) (exchange.Position, error) {
	risks, err := c.client.NewGetPositionRiskService().Symbol(c.symbol).Do(ctx, futures.WithRecvWindow(c.cfg.RecvWindow))
	if err != nil {
		return exchange.Position{}, classify("fetch_position", err)
	}
	pos := exchange.Position{Symbol: c.symbol}
	for _, r := range risks {
		if r == nil || !strings.EqualFold(r.Symbol, c.symbol) {
			continue
		}
		amt := parseDecimal(r.PositionAmt)
		pos.Quantity = pos.Quantity.Add(amt)
		pos.UnrealizedPnL = pos.UnrealizedPnL.Add(parseDecimal(r.UnRealizedProfit))
		pos.MarkPrice = parseDecimal(r.MarkPrice)
		if !amt.IsZero() {
			pos.EntryPrice = parseDecimal(r.EntryPrice)
		}
	}
	return pos, nil
}

func (c *Client) SubmitOrder(ctx context.Context, req exchange.OrderRequest) (exchange.Order, error) {
	if req.Quantity == "" {
		return exchange.Order{}, exchange.NewError(exchange.KindRejected, "submit_order", 0, fmt.Errorf("quantity is required"))
	}
	clientID := req.ClientOrderID
	if clientID == "" {
		clientID = NewClientOrderID()
	}
	svc := c.client.NewCreateOrderService().
		Symbol(c.symbol).
		Side(futures.SideType(req.Side)).
		Type(futures.OrderType(req.Type)).
		Quantity(req.Quantity).
		NewClientOrderID(clientID)
	if req.Type == exchange.OrderTypeLimit {
		if req.Price == "" {
			return exchange.Order{}, exchange.NewError(exchange.KindRejected, "submit_order", 0, fmt.Errorf("limit order requires price"))
		}
		tif := req.TimeInForce
		if tif == "" {
			tif = exchange.TimeInForceGTC
		}
		svc = svc.Price(req.Price).TimeInForce(futures.TimeInForceType(tif))
	}
	if req.ReduceOnly {
		svc = svc.ReduceOnly(true)
	}
	res, err := svc.Do(ctx, futures.WithRecvWindow(c.cfg.RecvWindow))
	if err != nil {
		return exchange.Order{}, classify("submit_order", err)
	}
	return exchange.Order{
		ID:            strconv.FormatInt(res.OrderID, 10),
		ClientOrderID: res.ClientOrderID,
		Side:          exchange.Side(res.Side),
		Type:          exchange.OrderType(res.Type),
		Price:         parseDecimal(res.Price),
		Quantity:      parseDecimal(res.OrigQuantity),
		Status:        string(res.Status),
		CreatedAt:     time.UnixMilli(res.UpdateTime).UTC(),
	}, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(orderID), 10, 64)
	if err != nil {
		return exchange.NewError(exchange.KindNotFound, "cancel_order", 0, fmt.Errorf("invalid order id %q", orderID))
	}
	if _, err := c.client.NewCancelOrderService().Symbol(c.symbol).OrderID(id).Do(ctx, futures.WithRecvWindow(c.cfg.RecvWindow)); err != nil {
		return classify("cancel_order", err)
	}
	return nil
}

func (c *Client) CancelAllOrders(ctx context.Context) error {
	if err := c.client.NewCancelAllOpenOrdersService().Symbol(c.symbol).Do(ctx, futures.WithRecvWindow(c.cfg.RecvWindow)); err != nil {
		return classify("cancel_all_orders", err)
	}
	return nil
}

func (c *Client) FetchInstrument(ctx context.Context) (exchange.Instrument, error) {
	info, err := c.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return exchange.Instrument{}, classify("fetch_instrument", err)
	}
	for i := range info.Symbols {
		s := &info.Symbols[i]
		if !strings.EqualFold(s.Symbol, c.symbol) {
			continue
		}
		inst := exchange.Instrument{Symbol: s.Symbol}
		if pf := s.PriceFilter(); pf != nil {
			inst.TickSize = parseDecimal(pf.TickSize)
		}
		if lf := s.LotSizeFilter(); lf != nil {
			inst.StepSize = parseDecimal(lf.StepSize)
			inst.MinQuantity = parseDecimal(lf.MinQuantity)
		}
		if !inst.TickSize.IsPositive() || !inst.StepSize.IsPositive() {
			return exchange.Instrument{}, exchange.NewError(exchange.KindFatal, "fetch_instrument", 0,
				fmt.Errorf("%s is missing PRICE_FILTER or LOT_SIZE", c.symbol))
		}
		return inst, nil
	}
	return exchange.Instrument{}, exchange.NewError(exchange.KindFatal, "fetch_instrument", 0,
		fmt.Errorf("symbol %s not listed", c.symbol))
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tradeCancel != nil {
		c.tradeCancel()
		c.tradeCancel = nil
	}
	return nil
}

// NewClientOrderID 生成不超过 36 字符的客户端订单号。
func NewClientOrderID() string {
	return "mm-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}

func parseDecimal(v string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero
	}
	return d
}
