package commands

import (
	"coingecko-telegram-bot/internal/types"
	"coingecko-telegram-bot/lib/helpers"
	"coingecko-telegram-bot/lib/translation"
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrPriceNotFound means the API answered but had no quote for the coin.
var ErrPriceNotFound = errors.New("price not found")

// ErrUnknownSymbol means the ticker is not one of types.SupportedCoins.
var ErrUnknownSymbol = errors.New("unknown coin symbol")

// PriceFetcher is the part of price.Fetcher the commands need.
type PriceFetcher interface {
	FetchPrices(ctx context.Context, coinIDs []string, currency types.FiatCurrency) (types.Snapshot, error)
	Age(coinIDs []string, currency types.FiatCurrency) (int, bool)
}

// CommandPrice handles "/price id1 id2 ...". Without arguments it returns the usage text.
func CommandPrice(ctx context.Context, f PriceFetcher, argument string, currency types.FiatCurrency) (string, error) {
	log.Debugf("processing command /price with argument :%s", argument)

	args := strings.Fields(argument)
	if len(args) == 0 {
		return PriceUsage(), nil
	}

	coinIDs := make([]string, len(args))
	for i, arg := range args {
		coinIDs[i] = strings.ToLower(arg)
	}

	snap, err := f.FetchPrices(ctx, coinIDs, currency)
	if err != nil {
		return "", errors.Wrap(err, "command /price")
	}

	return FormatPriceResponse(snap, coinIDs, currency), nil
}

// CommandCoin renders the price card for one supported coin.
func CommandCoin(ctx context.Context, f PriceFetcher, symbol types.CoinSymbol, currency types.FiatCurrency) (string, error) {
	coin, ok := types.LookupCoin(string(symbol))
	if !ok {
		return "", errors.Wrapf(ErrUnknownSymbol, "%q", symbol)
	}
	symbol, coinID := coin.Symbol, coin.ID

	snap, err := f.FetchPrices(ctx, []string{coinID}, currency)
	if err != nil {
		return "", errors.Wrapf(err, "coin %s", symbol)
	}

	p, ok := snap.Price(coinID, currency)
	if !ok {
		return "", errors.Wrapf(ErrPriceNotFound, "%s in %s", coinID, currency)
	}

	age, known := f.Age([]string{coinID}, currency)
	return FormatSingleCoinResponse(symbol, p, currency, age, known), nil
}

// FormatPriceResponse lists the requested coins in request order.
// Coins missing from snap get a "not found" marker.
func FormatPriceResponse(snap types.Snapshot, coinIDs []string, currency types.FiatCurrency) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💰 *%s*\n\n", helpers.EscapeMarkdownV2(translation.Translate("Current prices"))))

	for _, id := range coinIDs {
		label := strings.ToUpper(id)
		if symbol, ok := types.SymbolByCoinID(id); ok {
			label = string(symbol)
		}

		if p, ok := snap.Price(id, currency); ok {
			b.WriteString(fmt.Sprintf("*%s*: %s\n",
				helpers.EscapeMarkdownV2(label),
				helpers.EscapeMarkdownV2(helpers.FormatPrice(p, currency)),
			))
		} else {
			b.WriteString(fmt.Sprintf("*%s*: ❌ %s\n",
				helpers.EscapeMarkdownV2(label),
				helpers.EscapeMarkdownV2(translation.Translate("Not found")),
			))
		}
	}

	return b.String()
}

// FormatSingleCoinResponse renders one price with the age of the data behind it.
// When the age is unknown the data is reported as fresh.
func FormatSingleCoinResponse(symbol types.CoinSymbol, price float64, currency types.FiatCurrency, ageSeconds int, ageKnown bool) string {
	timeAgo := translation.Translate("just now")
	if ageKnown {
		timeAgo = helpers.FormatTimeAgo(ageSeconds)
	}

	return fmt.Sprintf("💎 *%s*: %s\n\n⏱ %s: %s",
		helpers.EscapeMarkdownV2(string(symbol)),
		helpers.EscapeMarkdownV2(helpers.FormatPrice(price, currency)),
		helpers.EscapeMarkdownV2(translation.Translate("Updated")),
		helpers.EscapeMarkdownV2(timeAgo),
	)
}

// PriceUsage lists the supported coins for a bare /price.
func PriceUsage() string {
	var coins strings.Builder
	for _, c := range types.SupportedCoins {
		coins.WriteString(helpers.EscapeMarkdownV2(fmt.Sprintf("• %s (%s)", c.Symbol, c.ID)))
		coins.WriteString("\n")
	}

	return fmt.Sprintf("❌ *%s*\n\n%s `/price bitcoin ethereum tron`\n\n%s\n%s",
		helpers.EscapeMarkdownV2(translation.Translate("Specify coin ids")),
		helpers.EscapeMarkdownV2(translation.Translate("Example:")),
		helpers.EscapeMarkdownV2(translation.Translate("Supported coins:")),
		coins.String(),
	)
}
