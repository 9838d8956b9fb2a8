package telegram

import (
	"coingecko-telegram-bot/internal/types"
	"coingecko-telegram-bot/lib/helpers"
	"coingecko-telegram-bot/lib/translation"
	"fmt"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	coinsPerRow = 3

	callbackCoin        = "coin:"
	callbackRefresh     = "refresh:"
	callbackSetCurrency = "setcurrency:"
	callbackBack        = "back"
	callbackCurrency    = "currency"
)

// coinSelectionKeyboard lays the supported coins out in rows of three,
// followed by a button for switching the fiat currency.
func coinSelectionKeyboard(currency types.FiatCurrency) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for _, coin := range types.SupportedCoins {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(string(coin.Symbol), callbackCoin+string(coin.Symbol)))
		if len(row) == coinsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %s", helpers.CurrencyEmoji(currency), currency), callbackCurrency),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func coinDetailsKeyboard(symbol types.CoinSymbol) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(translation.Translate("🔄 Refresh"), callbackRefresh+string(symbol)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(translation.Translate("◀️ Choose another coin"), callbackBack),
		),
	)
}

func currencySelectionKeyboard() tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, currency := range types.FiatCurrencies {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%s %s", helpers.CurrencyEmoji(currency), currency),
			callbackSetCurrency+string(currency),
		))
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		row,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(translation.Translate("◀️ Back"), callbackBack),
		),
	)
}
