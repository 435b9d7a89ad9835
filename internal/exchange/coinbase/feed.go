package coinbase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

const (
	DefaultFeedURL = "wss://ws-feed.exchange.coinbase.com"

	defaultPingPeriod       = 15 * time.Second
	defaultWriteTimeout     = 5 * time.Second
	defaultReadLimit        = 1 << 20 // 1MB
	defaultHandshakeTimeout = 10 * time.Second
)

// errNotTicker marks messages on the feed other than ticker updates.
var errNotTicker = errors.New("coinbase: not a ticker message")

// FeedConfig holds configuration for the ticker feed.
type FeedConfig struct {
	URL        string
	ProductIDs []string

	PingPeriod time.Duration

	// Reconnect backoff: RetryDelay × RetryMultiplier^attempt, capped at MaxRetryDelay.
	RetryDelay      time.Duration
	RetryMultiplier int
	MaxRetryDelay   time.Duration
}

func (c *FeedConfig) defaults() {
	if c.URL == "" {
		c.URL = DefaultFeedURL
	}
	if c.PingPeriod == 0 {
		c.PingPeriod = defaultPingPeriod
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = time.Second
	}
	if c.RetryMultiplier < 1 {
		c.RetryMultiplier = 2
	}
	if c.MaxRetryDelay == 0 {
		c.MaxRetryDelay = time.Minute
	}
}

// Feed streams ticker updates from the Coinbase websocket feed and
// reconnects with exponential backoff until its context is cancelled.
type Feed struct {
	cfg      FeedConfig
	dialer   *websocket.Dialer
	validate *validator.Validate

	// Optional hooks
	OnConnect    func()
	OnDisconnect func(err error)
	OnReconnect  func()
}

// NewFeed creates a feed. At least one product id is required.
func NewFeed(cfg FeedConfig) (*Feed, error) {
	if len(cfg.ProductIDs) == 0 {
		return nil, fmt.Errorf("%w: coinbase feed needs at least one product", model.ErrConfig)
	}
	cfg.defaults()
	return &Feed{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		validate: validator.New(),
	}, nil
}

// tickerMessage is the ticker channel payload.
//
//	{"type":"ticker","product_id":"BTC-USD","price":"50000.01","time":"2026-01-01T12:00:00.123456Z", ...}
type tickerMessage struct {
	Type      string `json:"type" validate:"required,eq=ticker"`
	ProductID string `json:"product_id" validate:"required"`
	Price     string `json:"price" validate:"required,numeric"`
	Time      string `json:"time" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Message   string `json:"message"`
}

// Run connects and pushes tickers into out until ctx is cancelled.
// out is never closed by Run.
func (f *Feed) Run(ctx context.Context, out chan<- model.Ticker) error {
	attempt := 0
	for {
		err := f.session(ctx, out, &attempt)
		if ctx.Err() != nil {
			return nil
		}
		if f.OnDisconnect != nil {
			f.OnDisconnect(err)
		}

		delay := f.backoff(attempt)
		attempt++
		log.Printf("[coinbase] feed disconnected: %v (retry in %s)", err, delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		if f.OnReconnect != nil {
			f.OnReconnect()
		}
	}
}

func (f *Feed) backoff(attempt int) time.Duration {
	d := f.cfg.RetryDelay
	for i := 0; i < attempt; i++ {
		d *= time.Duration(f.cfg.RetryMultiplier)
		if d >= f.cfg.MaxRetryDelay {
			return f.cfg.MaxRetryDelay
		}
	}
	return d
}

// session runs one connection until it fails or ctx is cancelled.
func (f *Feed) session(ctx context.Context, out chan<- model.Ticker, attempt *int) error {
	conn, resp, err := f.dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial: %w (status %s)", err, resp.Status)
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	conn.SetReadLimit(defaultReadLimit)
	conn.SetReadDeadline(time.Now().Add(f.cfg.PingPeriod * 2))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(f.cfg.PingPeriod * 2))
	})

	sub, err := json.Marshal(map[string]any{
		"type":        "subscribe",
		"product_ids": f.cfg.ProductIDs,
		"channels":    []string{"ticker", "heartbeat"},
	})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	log.Printf("[coinbase] feed connected to %s, products=%v", f.cfg.URL, f.cfg.ProductIDs)
	*attempt = 0
	if f.OnConnect != nil {
		f.OnConnect()
	}

	// gorilla allows one concurrent writer; pings come from this goroutine only
	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(f.cfg.PingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-sessCtx.Done():
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(defaultWriteTimeout)); err != nil {
					log.Printf("[coinbase] ping error: %v", err)
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(f.cfg.PingPeriod * 2))

		t, err := f.parse(data)
		if err != nil {
			if !errors.Is(err, errNotTicker) {
				log.Printf("[coinbase] feed parse error: %v", err)
			}
			continue
		}
		select {
		case out <- t:
		default:
			log.Printf("[coinbase] ticker channel full, dropping %s", t.ProductID)
		}
	}
}

func (f *Feed) parse(raw []byte) (model.Ticker, error) {
	var msg tickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return model.Ticker{}, err
	}
	switch msg.Type {
	case "ticker":
	case "error":
		return model.Ticker{}, fmt.Errorf("feed error: %s", msg.Message)
	default:
		return model.Ticker{}, errNotTicker
	}
	if err := f.validate.Struct(&msg); err != nil {
		return model.Ticker{}, err
	}

	price, err := decimal.NewFromString(msg.Price)
	if err != nil {
		return model.Ticker{}, err
	}
	ts := time.Now().UTC()
	if msg.Time != "" {
		if ts, err = time.Parse(time.RFC3339Nano, msg.Time); err != nil {
			return model.Ticker{}, err
		}
	}
	return model.Ticker{ProductID: msg.ProductID, Price: price.InexactFloat64(), Time: ts}, nil
}
