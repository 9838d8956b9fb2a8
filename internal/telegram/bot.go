package telegram

import (
	"bytes"
	"coingecko-telegram-bot/internal/commands"
	"coingecko-telegram-bot/internal/metrics"
	"coingecko-telegram-bot/internal/price"
	"coingecko-telegram-bot/internal/session"
	"coingecko-telegram-bot/internal/types"
	"coingecko-telegram-bot/lib/helpers"
	"coingecko-telegram-bot/lib/translation"
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/davecgh/go-spew/spew"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// NewBot creates new telegram bot
func NewBot(c BotConfig, prices Prices, sessions *session.Store, m *metrics.BotMetrics) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	api.Debug = c.Debug

	return NewBotWithClient(api, c, prices, sessions, m), nil
}

// NewBotWithClient wires a bot around an existing client.
func NewBotWithClient(client Client, c BotConfig, prices Prices, sessions *session.Store, m *metrics.BotMetrics) *Bot {
	return &Bot{
		Client:   client,
		Config:   c,
		prices:   prices,
		sessions: sessions,
		metrics:  m,
	}
}

// GetUpdatesChannel gets new updates updates
func (b *Bot) GetUpdatesChannel() (tgbotapi.UpdatesChannel, error) {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.Client.GetUpdatesChan(updatesConfig), nil
}

func (b *Bot) Stop() {
	b.Client.StopReceivingUpdates()
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if m.Keyboard != nil {
		msg.ReplyMarkup = *m.Keyboard
	}
	_, err := b.Client.Send(msg)
	return errors.Wrapf(err, "could not send message to chat %d", m.ChatID)
}

// Dispatch handles one update. A failure is logged and never stops the bot.
func (b *Bot) Dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.Panic()
			stackBuf := make([]byte, 4096)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.HandleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.metrics.MessageHandled(update.Message.Chat.ID, update.Message.Chat.Title)

		if err := b.SendMessage(b.HandleUpdate(ctx, update)); err != nil {
			log.Errorf("Failed to send message: %v", err)
			return
		}
		b.metrics.CommandProcessed()
	default:
		if log.IsLevelEnabled(log.DebugLevel) {
			log.Debugf("Received non-command update: %s", spew.Sdump(update))
		}
	}
}

// HandleUpdate processes a command message and returns the reply.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) Message {
	log.Debugf("received command: %s", u.Message.Command())

	reply := Message{
		ChatID:    u.Message.Chat.ID,
		MessageID: u.Message.MessageID,
		Text:      helpText(),
	}
	sess := b.sessions.Get(userID(u.Message.From, u.Message.Chat))

	switch u.Message.Command() {
	case "start":
		keyboard := coinSelectionKeyboard(sess.FiatCurrency)
		reply.Text = welcomeText()
		reply.Keyboard = &keyboard
	case "price":
		text, err := commands.CommandPrice(ctx, b.prices, u.Message.CommandArguments(), sess.FiatCurrency)
		if err != nil {
			log.Error(err)
			text = helpers.EscapeMarkdownV2(errorMessage(err))
		}
		reply.Text = text
	case "stats":
		reply.Text = commands.CommandStats(b.prices.Stats())
	}

	return reply
}

// HandleCallbackQuery reacts to inline keyboard presses.
func (b *Bot) HandleCallbackQuery(ctx context.Context, callbackQuery *tgbotapi.CallbackQuery) {
	data := callbackQuery.Data
	if callbackQuery.Message == nil {
		b.answerCallback(callbackQuery.ID, translation.Translate("This message is too old. Send /start again."), true)
		return
	}

	chatID := callbackQuery.Message.Chat.ID
	messageID := callbackQuery.Message.MessageID
	user := userID(callbackQuery.From, callbackQuery.Message.Chat)

	switch {
	case strings.HasPrefix(data, callbackCoin), strings.HasPrefix(data, callbackRefresh):
		refresh := strings.HasPrefix(data, callbackRefresh)
		symbol := types.CoinSymbol(strings.TrimPrefix(strings.TrimPrefix(data, callbackCoin), callbackRefresh))
		if coin, ok := types.LookupCoin(string(symbol)); ok {
			symbol = coin.Symbol
		}
		sess := b.sessions.Get(user)

		text, err := commands.CommandCoin(ctx, b.prices, symbol, sess.FiatCurrency)
		if err != nil {
			log.Error(err)
			b.answerCallback(callbackQuery.ID, errorMessage(err), true)
			return
		}
		b.sessions.SetSelectedCoin(user, symbol)

		b.editMessage(chatID, messageID, text, coinDetailsKeyboard(symbol))
		answer := ""
		if refresh {
			answer = translation.Translate("✅ Updated")
		}
		b.answerCallback(callbackQuery.ID, answer, false)

	case data == callbackBack:
		sess := b.sessions.Get(user)
		b.editMessage(chatID, messageID, selectCoinPrompt(), coinSelectionKeyboard(sess.FiatCurrency))
		b.answerCallback(callbackQuery.ID, "", false)

	case data == callbackCurrency:
		prompt := helpers.EscapeMarkdownV2(translation.Translate("💱 Choose a fiat currency:"))
		b.editMessage(chatID, messageID, prompt, currencySelectionKeyboard())
		b.answerCallback(callbackQuery.ID, "", false)

	case strings.HasPrefix(data, callbackSetCurrency):
		currency, ok := types.ParseFiatCurrency(strings.TrimPrefix(data, callbackSetCurrency))
		if !ok {
			b.answerCallback(callbackQuery.ID, translation.Translate("Unknown currency."), true)
			return
		}
		b.sessions.SetFiatCurrency(user, currency)

		text := fmt.Sprintf("✅ %s *%s*\n\n%s",
			helpers.EscapeMarkdownV2(translation.Translate("Currency changed to")),
			currency,
			selectCoinPrompt(),
		)
		b.editMessage(chatID, messageID, text, coinSelectionKeyboard(currency))
		b.answerCallback(callbackQuery.ID, translation.Translate("Currency: %s", currency), false)

	default:
		b.answerCallback(callbackQuery.ID, translation.Translate("Unknown action. Please try again."), false)
	}
}

func (b *Bot) editMessage(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	edit.ParseMode = tgbotapi.ModeMarkdownV2
	edit.DisableWebPagePreview = true

	if _, err := b.Client.Send(edit); err != nil {
		// a refresh inside the TTL renders the same text, Telegram rejects that edit
		if strings.Contains(err.Error(), "message is not modified") {
			log.Debugf("message %d in chat %d unchanged", messageID, chatID)
			return
		}
		log.Errorf("Failed to edit message %d in chat %d: %v", messageID, chatID, err)
	}
}

func (b *Bot) answerCallback(callbackID, text string, alert bool) {
	answer := tgbotapi.NewCallback(callbackID, text)
	answer.ShowAlert = alert
	if _, err := b.Client.Request(answer); err != nil {
		log.Errorf("Failed to answer callback %s: %v", callbackID, err)
	}
}

// errorMessage maps a failure to the text shown to the user.
func errorMessage(err error) string {
	var upstream *price.UpstreamError

	switch {
	case errors.Is(err, price.ErrTimeout):
		return translation.Translate("⏱️ The price API did not respond in time. Please try again later.")
	case errors.As(err, &upstream):
		return translation.Translate("🚫 The price API returned an error. Please try again later.")
	case errors.Is(err, price.ErrInvalidResponse):
		return translation.Translate("⚠️ The price API sent an unexpected response. Please try again later.")
	case errors.Is(err, price.ErrNetwork):
		return translation.Translate("❌ Could not fetch prices. Check the connection and try again.")
	case price.IsValidationError(err), errors.Is(err, commands.ErrUnknownSymbol):
		return translation.Translate("❌ Invalid coin id. Use lowercase ids such as bitcoin or ethereum.")
	case errors.Is(err, commands.ErrPriceNotFound):
		return translation.Translate("❌ Price not found.")
	default:
		return translation.Translate("❌ Something went wrong while fetching prices.")
	}
}

func welcomeText() string {
	return fmt.Sprintf("👋 *%s*\n\n📊 %s\n\n💡 %s\n`/price bitcoin ethereum tron`",
		helpers.EscapeMarkdownV2(translation.Translate("Welcome to the Crypto Price Bot!")),
		helpers.EscapeMarkdownV2(translation.Translate("Pick a coin to see its current price.")),
		helpers.EscapeMarkdownV2(translation.Translate("You can also use the command:")),
	)
}

func selectCoinPrompt() string {
	return helpers.EscapeMarkdownV2(translation.Translate("📊 Pick a coin to see its current price:"))
}

func helpText() string {
	return helpers.EscapeMarkdownV2(translation.Translate("Commands:\n/start - pick a coin\n/price <ids> - prices of the given coins\n/stats - API usage"))
}

// userID prefers the sender, channel posts have none and fall back to the chat.
func userID(from *tgbotapi.User, chat *tgbotapi.Chat) int64 {
	if from != nil {
		return from.ID
	}
	if chat != nil {
		return chat.ID
	}
	return 0
}
