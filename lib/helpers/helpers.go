package helpers

import (
	"coingecko-telegram-bot/internal/types"
	"coingecko-telegram-bot/lib/translation"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"math"
	"strings"
)

var charactersToEscape = []string{"\\", ".", "-", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "=", "|", "{", "}", "!"}

func EscapeMarkdownV2(text string) string {
	for _, char := range charactersToEscape {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

func CurrencySymbol(currency types.FiatCurrency) string {
	switch currency {
	case types.EUR:
		return "€"
	case types.RUB:
		return "₽"
	default:
		return "$"
	}
}

func CurrencyEmoji(currency types.FiatCurrency) string {
	switch currency {
	case types.EUR:
		return "🇪🇺"
	case types.RUB:
		return "🇷🇺"
	default:
		return "🇺🇸"
	}
}

// FormatPrice renders price with the currency symbol and en-US grouping.
// Prices under one unit keep 4 to 6 fraction digits, everything else 2.
func FormatPrice(price float64, currency types.FiatCurrency) string {
	p := message.NewPrinter(language.English)

	var formatted string
	if math.Abs(price) < 1 {
		formatted = trimFraction(p.Sprintf("%.6f", price), 4)
	} else {
		formatted = p.Sprintf("%.2f", price)
	}

	return CurrencySymbol(currency) + formatted
}

// trimFraction drops trailing zeros but keeps at least minDigits after the point.
func trimFraction(s string, minDigits int) string {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s
	}
	end := len(s)
	for end > dot+1+minDigits && s[end-1] == '0' {
		end--
	}
	return s[:end]
}

// FormatTimeAgo turns an age in seconds into a short phrase.
func FormatTimeAgo(seconds int) string {
	if seconds < 60 {
		return translation.Translate("%d sec ago", seconds)
	}
	return translation.Translate("%d min ago", seconds/60)
}
