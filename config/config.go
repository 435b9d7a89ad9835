// Package config loads the bot configuration from environment variables
// and an optional strategy parameter file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gamesbykevin/TradingBot/internal/model"
	"github.com/gamesbykevin/TradingBot/internal/strategy"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Trading
	Funds             float64           `validate:"gt=0"`
	PaperTrading      bool
	Products          []string          `validate:"min=1,dive,required"`
	Timeframes        []model.Timeframe `validate:"min=1"`
	Strategy          string            `validate:"required"`
	ThreadDelay       time.Duration     `validate:"gt=0"`
	NotificationDelay time.Duration     `validate:"gte=0"`
	HardStopRatio     float64           `validate:"gt=0,lt=1"`
	SellLossRatio     float64           `validate:"gte=0,lt=1"`
	SellGainRatio     float64           `validate:"gte=0"`
	StopTradingRatio  float64           `validate:"gt=0,lt=1"`
	HistoryMin        int               `validate:"gt=0"`
	HistoryMax        int               `validate:"gtefield=HistoryMin"`
	MaxOrderAttempts  int               `validate:"gt=0"`
	FeeRate           float64           `validate:"gte=0,lt=1"`

	// Coinbase
	CoinbaseAPIURL     string `validate:"required,url"`
	CoinbaseWSURL      string `validate:"required,url"`
	CoinbaseKey        string `validate:"required_if=PaperTrading false"`
	CoinbaseSecret     string `validate:"required_if=PaperTrading false"`
	CoinbasePassphrase string `validate:"required_if=PaperTrading false"`

	// Infrastructure
	SQLitePath    string
	JournalPath   string
	RedisAddr     string
	RedisPassword string
	HistoryCache  string        `validate:"oneof=sqlite redis none"`
	HistoryDelay  time.Duration `validate:"gt=0"`
	HTTPAddr      string
	LogLevel      string

	// Notifications
	WebhookURL       string `validate:"omitempty,url"`
	TelegramBotToken string `validate:"required_with=TelegramChatID"`
	TelegramChatID   string `validate:"required_with=TelegramBotToken"`

	StrategyConfig string
	Params         strategy.Params `validate:"-"`
}

// Load reads configuration from environment variables with defaults,
// applies STRATEGY_CONFIG and validates the result.
func Load() (*Config, error) {
	var errs []error
	p := parser{errs: &errs}

	products := splitList(getEnv("TRADING_CURRENCIES", "BTC-USD"))
	tfs, err := model.ParseTimeframes(getEnv("TRADING_TIMEFRAMES", "60"))
	if err != nil {
		errs = append(errs, fmt.Errorf("TRADING_TIMEFRAMES: %w", err))
	}

	c := &Config{
		Funds:             p.float("FUNDS", 100),
		PaperTrading:      p.bool("PAPER_TRADING", true),
		Products:          products,
		Timeframes:        tfs,
		Strategy:          strings.ToUpper(getEnv("STRATEGY", strategy.NameMACS)),
		ThreadDelay:       time.Duration(p.int("THREAD_DELAY_SEC", 10)) * time.Second,
		NotificationDelay: time.Duration(p.int("NOTIFICATION_DELAY_MIN", 60)) * time.Minute,
		HardStopRatio:     p.float("HARD_STOP_RATIO", 0.01),
		SellLossRatio:     p.float("SELL_LOSS_RATIO", 0.05),
		SellGainRatio:     p.float("SELL_GAIN_RATIO", 0),
		StopTradingRatio:  p.float("STOP_TRADING_RATIO", 0.25),
		HistoryMin:        p.int("HISTORY_MINIMUM", 100),
		HistoryMax:        p.int("HISTORY_MAXIMUM", 300),
		MaxOrderAttempts:  p.int("MAX_ORDER_ATTEMPTS", 5),
		FeeRate:           p.float("FEE_RATE", 0.003),

		CoinbaseAPIURL:     getEnv("COINBASE_API_URL", "https://api.exchange.coinbase.com"),
		CoinbaseWSURL:      getEnv("COINBASE_WS_URL", "wss://ws-feed.exchange.coinbase.com"),
		CoinbaseKey:        getEnv("COINBASE_API_KEY", ""),
		CoinbaseSecret:     getEnv("COINBASE_API_SECRET", ""),
		CoinbasePassphrase: getEnv("COINBASE_API_PASSPHRASE", ""),

		SQLitePath:    getEnv("SQLITE_PATH", "data/history.db"),
		JournalPath:   getEnv("JOURNAL_PATH", "data/trades.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		HistoryCache:  strings.ToLower(getEnv("HISTORY_CACHE", "sqlite")),
		HistoryDelay:  time.Duration(p.int("HISTORY_DELAY_SEC", 120)) * time.Second,
		HTTPAddr:      getEnv("HTTP_ADDR", ":9090"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		StrategyConfig: getEnv("STRATEGY_CONFIG", ""),
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", model.ErrConfig, errors.Join(errs...))
	}

	params, err := strategy.LoadParams(c.StrategyConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: STRATEGY_CONFIG: %w", model.ErrConfig, err)
	}
	c.Params = params

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

var validate = validator.New()

// Validate checks field constraints, the strategy name and parameters.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("%w: %s", model.ErrConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", model.ErrConfig, err)
	}
	if _, err := strategy.New(c.Strategy, c.Params); err != nil {
		return err
	}
	return nil
}

type parser struct{ errs *[]error }

func (p parser) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return fallback
	}
	return f
}

func (p parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return fallback
	}
	return n
}

func (p parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return fallback
	}
	return b
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
