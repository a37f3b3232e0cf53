package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"statarb-systemv1/internal/model"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Exchange endpoints
	BinanceRESTURL   string
	BinanceStreamURL string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	APIAddr       string
	LogLevel      string

	// Notification channels, each optional
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string

	// Pairs to trade/backtest, comma-separated "BTCUSDT-ETHUSDT" entries.
	Pairs string

	// Strategy tuning
	Timeframe      string
	HistorySize    int
	BetaWindow     int
	ZScoreWindow   int
	ADXWindow      int
	EntryZScore    float64
	ExitZScore     float64
	BlowOutZScore  float64
	CommissionRate float64
	BaseQuantity   float64

	// Stop-loss tuning
	StopVolatilityWindow int
	StopMinSamples       int
	StopMultiplier       float64
	StopDrawdownBuffer   float64
	StopMinPercent       float64
	StopMaxPercent       float64

	// Availability gate
	MaxSingleLossPercent float64
	MaxWindowLossPercent float64
	MaxConsecutiveLosses int
	LossWindow           time.Duration
	BlockDuration        time.Duration

	// Backtest window, Unix ms
	BacktestStart int64
	BacktestEnd   int64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		BinanceRESTURL:   getEnv("BINANCE_REST_URL", ""),
		BinanceStreamURL: getEnv("BINANCE_STREAM_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/pairs.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		APIAddr:       getEnv("API_ADDR", ":8081"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		Pairs: getEnv("PAIRS", "BTCUSDT-ETHUSDT"),

		Timeframe:      getEnv("TIMEFRAME", "1m"),
		HistorySize:    getEnvInt("HISTORY_SIZE", 1440),
		BetaWindow:     getEnvInt("BETA_WINDOW", 60),
		ZScoreWindow:   getEnvInt("ZSCORE_WINDOW", 60),
		ADXWindow:      getEnvInt("ADX_WINDOW", 720),
		EntryZScore:    getEnvFloat("ENTRY_ZSCORE", 3.0),
		ExitZScore:     getEnvFloat("EXIT_ZSCORE", 0.0),
		BlowOutZScore:  getEnvFloat("BLOWOUT_ZSCORE", 5.0),
		CommissionRate: getEnvFloat("COMMISSION_RATE", 0.001),
		BaseQuantity:   getEnvFloat("BASE_QUANTITY", 1.0),

		StopVolatilityWindow: getEnvInt("STOP_VOLATILITY_WINDOW", 180),
		StopMinSamples:       getEnvInt("STOP_MIN_SAMPLES", 30),
		StopMultiplier:       getEnvFloat("STOP_MULTIPLIER", 2.0),
		StopDrawdownBuffer:   getEnvFloat("STOP_DRAWDOWN_BUFFER", 1.2),
		StopMinPercent:       getEnvFloat("STOP_MIN_PERCENT", 0.5),
		StopMaxPercent:       getEnvFloat("STOP_MAX_PERCENT", 3.0),

		MaxSingleLossPercent: getEnvFloat("MAX_SINGLE_LOSS_PERCENT", 1.0),
		MaxWindowLossPercent: getEnvFloat("MAX_WINDOW_LOSS_PERCENT", 0.5),
		MaxConsecutiveLosses: getEnvInt("MAX_CONSECUTIVE_LOSSES", 3),
		LossWindow:           getEnvDuration("LOSS_WINDOW", time.Hour),
		BlockDuration:        getEnvDuration("BLOCK_DURATION", time.Hour),

		BacktestStart: getEnvInt64("BACKTEST_START", 0),
		BacktestEnd:   getEnvInt64("BACKTEST_END", 0),
	}
}

// ParsePairs parses the Pairs string into pair models. Each entry is
// two symbols joined by a dash; both legs must share a known quote
// currency suffix, e.g. "BTCUSDT-ETHUSDT".
func (c *Config) ParsePairs() []model.Pair {
	parts := strings.Split(c.Pairs, ",")
	pairs := make([]model.Pair, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		legs := strings.Split(p, "-")
		if len(legs) != 2 {
			log.Printf("[config] skipping invalid pair entry: %q", p)
			continue
		}
		assetA, okA := splitSymbol(legs[0])
		assetB, okB := splitSymbol(legs[1])
		if !okA || !okB {
			log.Printf("[config] skipping pair with unknown quote currency: %q", p)
			continue
		}
		pairs = append(pairs, model.Pair{AssetA: assetA, AssetB: assetB})
	}
	return pairs
}

// quoteCurrencies are the suffixes tried when splitting a concatenated
// symbol into base and quote.
var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "BTC", "ETH", "BNB", "EUR", "TRY"}

func splitSymbol(symbol string) (model.Asset, bool) {
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return model.Asset{
				BaseAsset:  strings.TrimSuffix(symbol, quote),
				QuoteAsset: quote,
			}, true
		}
	}
	return model.Asset{}, false
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
