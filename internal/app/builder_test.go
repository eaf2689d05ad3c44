package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"mmbot/internal/config"
	"mmbot/internal/gateway/exchange"
	"mmbot/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExchange 只满足构建所需的接口，调用一律失败。
type stubExchange struct {
	exchange.Gateway
	closed bool
}

func (s *stubExchange) Name() string   { return "stub" }
func (s *stubExchange) Symbol() string { return "BTCUSDT" }

func (s *stubExchange) SubscribeTrades(ctx context.Context, _ string, _ market.SubscribeOptions) (<-chan market.Tick, error) {
	ch := make(chan market.Tick)
	go func() { <-ctx.Done(); close(ch) }()
	return ch, nil
}

func (s *stubExchange) Stats() market.SourceStats { return market.SourceStats{} }

func (s *stubExchange) Authenticate(context.Context) error { return errors.New("auth down") }

func (s *stubExchange) Close() error {
	s.closed = true
	return nil
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")
	return cfg
}

func TestBuildWiresComponents(t *testing.T) {
	stub := &stubExchange{}
	app, err := NewApp(testConfig(t), WithExchange(func(config.Config) (Exchange, error) { return stub, nil }))
	require.NoError(t, err)
	require.NotNil(t, app.Bot())
	require.NotNil(t, app.liveHTTP)
	assert.Nil(t, app.tuning)

	rec := httptest.NewRecorder()
	app.liveHTTP.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bot/journal", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	app.liveHTTP.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "mmbot_open_orders")

	st := app.Bot().Status()
	assert.Equal(t, "BTCUSDT", st.Symbol)
	assert.False(t, st.IsRunning)

	app.Close()
	assert.True(t, stub.closed)
}

func TestRunFailsWhenStartupChecksFail(t *testing.T) {
	cfg := testConfig(t)
	cfg.Journal.Enabled = false
	stub := &stubExchange{}
	app, err := NewApp(cfg, WithExchange(func(config.Config) (Exchange, error) { return stub, nil }))
	require.NoError(t, err)

	err = app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth down")
	assert.True(t, stub.closed)
}

func TestBuildPropagatesExchangeError(t *testing.T) {
	_, err := NewApp(testConfig(t), WithExchange(func(config.Config) (Exchange, error) {
		return nil, errors.New("bad proxy")
	}))
	require.Error(t, err)
}

func TestStartupSummaryHidesSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.Exchange.APIKey = "super-secret-key"
	out := newStartupSummary(cfg, "configs/config.yaml").String()
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "configs/config.yaml")
	assert.NotContains(t, out, "super-secret-key")
}

func TestNewAppRejectsNilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}
