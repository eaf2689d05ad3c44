package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"mmbot/internal/market"
	"mmbot/internal/pkg/circuit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Name() string   { return "mock" }
func (m *mockGateway) Symbol() string { return "BTCUSDT" }
func (m *mockGateway) StreamTrades(ctx context.Context, opts market.SubscribeOptions) (<-chan market.Tick, error) {
	return nil, nil
}
func (m *mockGateway) FetchCandles(ctx context.Context, interval string, limit int) ([]market.Candle, error) {
	args := m.Called(ctx, interval, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]market.Candle), args.Error(1)
}
func (m *mockGateway) FetchOpenOrders(ctx context.Context) ([]Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Order), args.Error(1)
}
func (m *mockGateway) FetchPosition(ctx context.Context) (Position, error) {
	args := m.Called(ctx)
	return args.Get(0).(Position), args.Error(1)
}
func (m *mockGateway) SubmitOrder(ctx context.Context, req OrderRequest) (Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(Order), args.Error(1)
}
func (m *mockGateway) CancelOrder(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockGateway) CancelAllOrders(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
func (m *mockGateway) FetchInstrument(ctx context.Context) (Instrument, error) {
	args := m.Called(ctx)
	return args.Get(0).(Instrument), args.Error(1)
}
func (m *mockGateway) Authenticate(ctx context.Context) error { return nil }

func newBreaker(threshold int) *circuit.CircuitBreaker {
	cb := circuit.NewCircuitBreaker("test", threshold, time.Minute)
	cb.SetStateChangeHandler(func(string, circuit.State, circuit.State) {})
	return cb
}

func TestCircuitOpensOnTransientErrors(t *testing.T) {
	inner := new(mockGateway)
	netErr := NewError(KindTransient, "fetch_open_orders", 0, errors.New("timeout"))
	inner.On("FetchOpenOrders", mock.Anything).Return(nil, netErr).Twice()
	g := WithCircuit(inner, newBreaker(2))

	for i := 0; i < 2; i++ {
		_, err := g.FetchOpenOrders(context.Background())
		assert.ErrorIs(t, err, netErr)
	}
	_, err := g.FetchOpenOrders(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, KindTransient, KindOf(err))
	inner.AssertNumberOfCalls(t, "FetchOpenOrders", 2)
}

func TestRejectionsDoNotTrip(t *testing.T) {
	inner := new(mockGateway)
	rejected := NewError(KindRejected, "submit_order", -2019, errors.New("margin is insufficient"))
	inner.On("SubmitOrder", mock.Anything, mock.Anything).Return(Order{}, rejected)
	g := WithCircuit(inner, newBreaker(1))

	for i := 0; i < 3; i++ {
		_, err := g.SubmitOrder(context.Background(), OrderRequest{Side: SideBuy})
		assert.Equal(t, KindRejected, KindOf(err))
	}
	inner.AssertNumberOfCalls(t, "SubmitOrder", 3)
}

func TestProtectivePathBypassesOpenCircuit(t *testing.T) {
	inner := new(mockGateway)
	inner.On("CancelAllOrders", mock.Anything).Return(errors.New("boom")).Once()
	inner.On("FetchPosition", mock.Anything).Return(Position{Symbol: "BTCUSDT"}, nil)
	inner.On("SubmitOrder", mock.Anything, mock.MatchedBy(func(r OrderRequest) bool { return r.ReduceOnly })).
		Return(Order{ID: "9"}, nil)
	g := WithCircuit(inner, newBreaker(1))

	assert.Error(t, g.CancelAllOrders(context.Background()))
	assert.ErrorIs(t, g.CancelAllOrders(context.Background()), ErrCircuitOpen)

	pos, err := g.FetchPosition(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "BTCUSDT", pos.Symbol)
	ord, err := g.SubmitOrder(context.Background(), OrderRequest{Side: SideSell, Type: OrderTypeMarket, ReduceOnly: true})
	assert.NoError(t, err)
	assert.Equal(t, "9", ord.ID)
}

func TestWithCircuitNil(t *testing.T) {
	inner := new(mockGateway)
	assert.Same(t, inner, WithCircuit(inner, nil))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindTransient, KindOf(errors.New("x")))
	wrapped := errors.Join(errors.New("ctx"), NewError(KindNotFound, "cancel_order", -2011, errors.New("unknown order")))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, "auth", KindAuth.String())
}

func TestSideHelpers(t *testing.T) {
	assert.Equal(t, SideSell, SideBuy.Opposite())
	s, ok := ParseSide("sell")
	assert.True(t, ok)
	assert.Equal(t, SideSell, s)
	_, ok = ParseSide("hold")
	assert.False(t, ok)
}
