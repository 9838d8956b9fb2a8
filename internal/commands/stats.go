package commands

import (
	"coingecko-telegram-bot/internal/price"
	"coingecko-telegram-bot/lib/helpers"
	"coingecko-telegram-bot/lib/translation"
	"fmt"

	"github.com/dustin/go-humanize"
)

func CommandStats(stats price.Stats) string {
	last := translation.Translate("never")
	if !stats.LastRequest.IsZero() {
		last = humanize.Time(stats.LastRequest)
	}

	return fmt.Sprintf("📈 *%s*\n\n%s: `%s`\n%s: `%s`",
		helpers.EscapeMarkdownV2(translation.Translate("Bot statistics")),
		helpers.EscapeMarkdownV2(translation.Translate("API requests")),
		humanize.Comma(stats.Requests),
		helpers.EscapeMarkdownV2(translation.Translate("Last update")),
		last,
	)
}
