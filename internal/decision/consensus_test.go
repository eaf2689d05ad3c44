package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var all = []Signal{SignalBuy, SignalSell, SignalNone}

func mirror(s Signal) Signal {
	switch s {
	case SignalBuy:
		return SignalSell
	case SignalSell:
		return SignalBuy
	default:
		return SignalNone
	}
}

func TestConsensusMajority(t *testing.T) {
	assert.Equal(t, SignalBuy, Consensus(SignalBuy, SignalBuy, SignalNone))
	assert.Equal(t, SignalBuy, Consensus(SignalBuy, SignalBuy, SignalSell))
	assert.Equal(t, SignalSell, Consensus(SignalNone, SignalSell, SignalSell))
	assert.Equal(t, SignalBuy, Consensus(SignalBuy, SignalBuy, SignalBuy))
}

func TestConsensusTies(t *testing.T) {
	assert.Equal(t, SignalNone, Consensus(SignalBuy, SignalSell, SignalNone))
	assert.Equal(t, SignalNone, Consensus(SignalNone, SignalNone, SignalNone))
	assert.Equal(t, SignalNone, Consensus(SignalBuy, SignalNone, SignalNone))
}

func TestConsensusSymmetricAndOrderFree(t *testing.T) {
	for _, a := range all {
		for _, b := range all {
			for _, c := range all {
				got := Consensus(a, b, c)
				assert.Equal(t, mirror(got), Consensus(mirror(a), mirror(b), mirror(c)), "%s %s %s", a, b, c)
				assert.Equal(t, got, Consensus(c, a, b))
				assert.Equal(t, got, Consensus(b, c, a))
			}
		}
	}
}

func TestTally(t *testing.T) {
	v := Tally(SignalBuy, SignalSell, SignalNone)
	assert.Equal(t, Votes{Buy: 1, Sell: 1, None: 1, Final: SignalNone}, v)
}

func TestSignalHelpers(t *testing.T) {
	assert.Equal(t, SignalBuy, FromSign(0.5))
	assert.Equal(t, SignalSell, FromSign(-2))
	assert.Equal(t, SignalNone, FromSign(0))
	assert.Equal(t, SignalSell, ParseSignal(" sell "))
	assert.Equal(t, SignalNone, ParseSignal("hold"))
	assert.Equal(t, "NONE", Signal("").String())
}
