package telegram

import (
	"coingecko-telegram-bot/internal/commands"
	"coingecko-telegram-bot/internal/metrics"
	"coingecko-telegram-bot/internal/price"
	"coingecko-telegram-bot/internal/session"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token          string
	Debug          bool
	UpdatesTimeout int
}

// Client is the subset of *tgbotapi.BotAPI the bot uses.
type Client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Prices is what the bot needs from price.Fetcher.
type Prices interface {
	commands.PriceFetcher
	Stats() price.Stats
}

// Bot telegram interaction client
type Bot struct {
	Client   Client
	Config   BotConfig
	prices   Prices
	sessions *session.Store
	metrics  *metrics.BotMetrics
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
	Keyboard  *tgbotapi.InlineKeyboardMarkup
}
