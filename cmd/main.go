package main

import (
	"coingecko-telegram-bot/config"
	"coingecko-telegram-bot/internal/cache"
	"coingecko-telegram-bot/internal/metrics"
	"coingecko-telegram-bot/internal/price"
	"coingecko-telegram-bot/internal/server"
	"coingecko-telegram-bot/internal/session"
	"coingecko-telegram-bot/internal/telegram"
	"coingecko-telegram-bot/lib/translation"
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

func init() {
	config.InitConfig()
	setupLogging()
}

func main() {
	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	translation.Configure("locales", config.GetString("lang"))
	log.Infof("Using language %s", translation.GetLanguage())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	botMetrics := metrics.NewBotMetrics(registry)

	fetcher := price.NewFetcher(price.Config{
		BaseURL: config.GetString("coingecko_api_url"),
		APIKey:  config.GetString("coingecko_api_key"),
		Timeout: config.GetDuration("request_timeout"),
	}, cache.New(), botMetrics)

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:          config.GetString("telegram_bot_token"),
		Debug:          config.GetBool("debug"),
		UpdatesTimeout: 60,
	}, fetcher, session.NewStore(), botMetrics)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	updates, err := bot.GetUpdatesChannel()
	if err != nil {
		log.Fatalf("Failed to get updates channel: %v", err)
	}

	metricsServer := server.New(config.GetInt("metrics_port"), registry)
	go func() {
		if err := metricsServer.Start(ctx); err != nil {
			log.Errorf("Metrics and health server stopped: %v", err)
		}
	}()

	log.Info("🚀 Bot started successfully")
	handleUpdates(ctx, bot, updates)
	log.Info("Shutting down...")
}

func setupLogging() {
	log.SetLevel(log.InfoLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting telegram bot...")
}

// handleUpdates runs every update on its own goroutine until ctx is done,
// then waits for the handlers still running.
func handleUpdates(ctx context.Context, bot *telegram.Bot, updates tgbotapi.UpdatesChannel) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			bot.Stop()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				bot.Dispatch(ctx, update)
			}()
		}
	}
}
