package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	p, ok := Split("btcusdt")
	assert.True(t, ok)
	assert.Equal(t, Pair{Base: "BTC", Quote: "USDT"}, p)

	p, ok = Split("ETH/USDC:USDC")
	assert.True(t, ok)
	assert.Equal(t, "ETH/USDC", p.String())

	p, ok = Split("SOLFDUSD")
	assert.True(t, ok)
	assert.Equal(t, "SOL", p.Base)

	_, ok = Split("USDT")
	assert.False(t, ok)
	_, ok = Split("ETHBTC")
	assert.False(t, ok)
}

func TestValidAndDisplay(t *testing.T) {
	assert.True(t, IsValid("BTCUSDT"))
	assert.False(t, IsValid("XYZ"))
	assert.Equal(t, "BTC/USDT", Display("BTCUSDT"))
	assert.Equal(t, "XYZ", Display(" xyz "))
}

func TestBinanceNames(t *testing.T) {
	assert.Equal(t, "BTCUSDT", ToBinance("btc/usdt"))
	assert.Equal(t, "btcusdt@trade", StreamName("BTCUSDT", "trade"))
}
