package metrics

import (
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	"sync"
	"time"
)

const (
	namespace = "coingecko"
	subsystem = "telegram_bot"
)

// Upstream outcomes used as the "outcome" label.
const (
	OutcomeOK           = "ok"
	OutcomeTimeout      = "timeout"
	OutcomeUpstream     = "upstream_error"
	OutcomeInvalid      = "invalid_response"
	OutcomeNetworkError = "network_error"
)

type BotMetrics struct {
	CommandsProcessed  prometheus.Counter
	MessagesHandled    prometheus.Counter
	HandlerPanics      prometheus.Counter
	ChannelsCount      prometheus.Gauge
	ChannelNames       *prometheus.CounterVec
	MessagesPerChannel *prometheus.CounterVec
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	UpstreamRequests   *prometheus.CounterVec
	UpstreamDuration   prometheus.Histogram

	channelsSet map[int64]string
	mutex       sync.Mutex
}

// NewBotMetrics creates the collectors and registers them on reg.
func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	m := &BotMetrics{
		CommandsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commands_processed",
			Help:      "The total number of processed commands",
		}),
		MessagesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_handled",
			Help:      "The total number of handled messages",
		}),
		HandlerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handler_panics",
			Help:      "The total number of recovered panics in update handlers",
		}),
		ChannelsCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "channels_count",
			Help:      "The current number of unique channels the bot is operating in",
		}),
		ChannelNames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "channel_names",
				Help:      "Tracks channels the bot has interacted with",
			},
			[]string{"chat_id", "chat_name"},
		),
		MessagesPerChannel: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "messages_per_channel",
				Help:      "The total number of messages handled per channel",
			},
			[]string{"chat_id", "chat_name"},
		),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "price_cache",
			Name:      "hits_total",
			Help:      "Price lookups answered from the cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "price_cache",
			Name:      "misses_total",
			Help:      "Price lookups that had to go upstream",
		}),
		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Requests sent to the price API by outcome",
			},
			[]string{"outcome"},
		),
		UpstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Latency of price API requests",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5},
		}),
		channelsSet: make(map[int64]string),
	}

	reg.MustRegister(
		m.CommandsProcessed,
		m.MessagesHandled,
		m.HandlerPanics,
		m.ChannelsCount,
		m.ChannelNames,
		m.MessagesPerChannel,
		m.CacheHits,
		m.CacheMisses,
		m.UpstreamRequests,
		m.UpstreamDuration,
	)

	return m
}

// The helpers below accept a nil receiver so components can run without metrics.

func (m *BotMetrics) CacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *BotMetrics) CacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

func (m *BotMetrics) ObserveUpstream(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(outcome).Inc()
	m.UpstreamDuration.Observe(took.Seconds())
}

func (m *BotMetrics) CommandProcessed() {
	if m != nil {
		m.CommandsProcessed.Inc()
	}
}

func (m *BotMetrics) Panic() {
	if m != nil {
		m.HandlerPanics.Inc()
	}
}

// MessageHandled counts a message and remembers the chat it came from.
func (m *BotMetrics) MessageHandled(chatID int64, chatName string) {
	if m == nil {
		return
	}
	if chatName == "" {
		chatName = fmt.Sprintf("%s-%d", "PrivateChat", chatID)
	}

	m.MessagesHandled.Inc()
	m.updateChannelsSet(chatID, chatName)
	m.MessagesPerChannel.WithLabelValues(fmt.Sprintf("%d", chatID), chatName).Inc()
}

func (m *BotMetrics) updateChannelsSet(chatID int64, chatName string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.channelsSet[chatID]; !exists {
		m.channelsSet[chatID] = chatName
		m.ChannelsCount.Set(float64(len(m.channelsSet)))

		m.ChannelNames.WithLabelValues(fmt.Sprintf("%d", chatID), chatName).Inc()
	}
}
