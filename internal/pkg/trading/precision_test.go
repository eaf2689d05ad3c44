package trading

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPrecision(t *testing.T) {
	assert.Equal(t, 2, Precision(d("0.01")))
	assert.Equal(t, 1, Precision(d("0.1")))
	assert.Equal(t, 3, Precision(d("0.001")))
	assert.Equal(t, 0, Precision(d("1")))
	assert.Equal(t, 0, Precision(d("10")))
	assert.Equal(t, 0, Precision(decimal.Zero))
}

func TestQuantityRounding(t *testing.T) {
	f := NewFilter(d("0.10"), d("0.001"))
	assert.Equal(t, "0.006", f.Quantity(d("0.006")))
	assert.Equal(t, "0.006", f.Quantity(d("0.0057")))
	assert.Equal(t, "0.005", f.Quantity(d("0.0054")))
	assert.True(t, f.RoundQuantity(d("0.0057")).Equal(d("0.006")))
}

func TestPriceRounding(t *testing.T) {
	f := NewFilter(d("0.01"), d("0.001"))
	assert.Equal(t, "49997.00", f.Price(d("49997")))
	assert.Equal(t, "49997.12", f.Price(d("49997.1234")))

	coarse := NewFilter(d("0.1"), d("0.001"))
	assert.Equal(t, "100.2", coarse.Price(d("100.16")))
}

func TestRoundToStepZeroStep(t *testing.T) {
	assert.True(t, RoundToStep(d("1.2345"), decimal.Zero).Equal(d("1.2345")))
}
