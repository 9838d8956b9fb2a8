package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoinLookups(t *testing.T) {
	id, ok := CoinIDBySymbol("btc")
	assert.True(t, ok)
	assert.Equal(t, "bitcoin", id)

	sym, ok := SymbolByCoinID("Pocketcoin")
	assert.True(t, ok)
	assert.Equal(t, CoinSymbol("PKOIN"), sym)

	_, ok = CoinIDBySymbol("XRP")
	assert.False(t, ok)
	_, ok = SymbolByCoinID("ripple")
	assert.False(t, ok)
}

func TestLookupCoinReturnsCanonicalSymbol(t *testing.T) {
	coin, ok := LookupCoin("doge")
	assert.True(t, ok)
	assert.Equal(t, Coin{Symbol: "DOGE", ID: "dogecoin"}, coin)

	_, ok = LookupCoin("xrp")
	assert.False(t, ok)
}

func TestParseFiatCurrency(t *testing.T) {
	c, ok := ParseFiatCurrency("eur")
	assert.True(t, ok)
	assert.Equal(t, EUR, c)
	assert.Equal(t, "eur", c.Lower())

	_, ok = ParseFiatCurrency("GBP")
	assert.False(t, ok)
}

func TestSnapshotCloneIsIndependent(t *testing.T) {
	s := Snapshot{"bitcoin": {"usd": 50000}}
	c := s.Clone()
	c["bitcoin"]["usd"] = 1

	p, ok := s.Price("bitcoin", USD)
	assert.True(t, ok)
	assert.Equal(t, 50000.0, p)

	_, ok = s.Price("bitcoin", EUR)
	assert.False(t, ok)
	_, ok = s.Price("ethereum", USD)
	assert.False(t, ok)
	assert.Nil(t, Snapshot(nil).Clone())
}
