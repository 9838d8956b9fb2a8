package types

import "strings"

// CoinSymbol is the ticker shown on buttons, e.g. "BTC".
type CoinSymbol string

// FiatCurrency is a three letter display currency code.
type FiatCurrency string

const (
	USD FiatCurrency = "USD"
	EUR FiatCurrency = "EUR"
	RUB FiatCurrency = "RUB"

	DefaultCurrency = USD
)

// Coin pairs a ticker with its CoinGecko identifier.
type Coin struct {
	Symbol CoinSymbol
	ID     string
}

// SupportedCoins is ordered, keyboards render it as is.
var SupportedCoins = []Coin{
	{Symbol: "BTC", ID: "bitcoin"},
	{Symbol: "ETH", ID: "ethereum"},
	{Symbol: "TRX", ID: "tron"},
	{Symbol: "DOGE", ID: "dogecoin"},
	{Symbol: "SOL", ID: "solana"},
	{Symbol: "PKOIN", ID: "pocketcoin"},
}

var FiatCurrencies = []FiatCurrency{USD, EUR, RUB}

// Session holds per-user preferences.
type Session struct {
	SelectedCoin CoinSymbol   `json:"selected_coin,omitempty"`
	FiatCurrency FiatCurrency `json:"fiat_currency"`
}

// LookupCoin finds a supported coin by its ticker, case-insensitively.
// The returned Coin carries the canonical upper-case symbol.
func LookupCoin(symbol string) (Coin, bool) {
	for _, c := range SupportedCoins {
		if strings.EqualFold(string(c.Symbol), symbol) {
			return c, true
		}
	}
	return Coin{}, false
}

// CoinIDBySymbol looks a supported coin up by its ticker, case-insensitively.
func CoinIDBySymbol(symbol string) (string, bool) {
	c, ok := LookupCoin(symbol)
	return c.ID, ok
}

// SymbolByCoinID is the reverse of CoinIDBySymbol.
func SymbolByCoinID(id string) (CoinSymbol, bool) {
	for _, c := range SupportedCoins {
		if c.ID == strings.ToLower(id) {
			return c.Symbol, true
		}
	}
	return "", false
}

// ParseFiatCurrency accepts any letter case.
func ParseFiatCurrency(s string) (FiatCurrency, bool) {
	for _, c := range FiatCurrencies {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

func (c FiatCurrency) Lower() string {
	return strings.ToLower(string(c))
}

// Snapshot maps coin id to lower-case currency code to price, as returned by /simple/price.
type Snapshot map[string]map[string]float64

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for id, quotes := range s {
		q := make(map[string]float64, len(quotes))
		for cur, v := range quotes {
			q[cur] = v
		}
		out[id] = q
	}
	return out
}

// Price reports the quote of coinID in currency.
func (s Snapshot) Price(coinID string, currency FiatCurrency) (float64, bool) {
	quotes, ok := s[strings.ToLower(coinID)]
	if !ok {
		return 0, false
	}
	p, ok := quotes[currency.Lower()]
	return p, ok
}
