// Package coinbase is the Coinbase Exchange collaborator: a REST client that
// serves as both model.MarketData and model.OrderVenue, and a websocket
// ticker feed.
package coinbase

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

const (
	DefaultAPIURL = "https://api.exchange.coinbase.com"

	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
)

// APIError is a non-2xx response from the REST API.
type APIError struct {
	Status  int
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coinbase: http %d: %s", e.Status, e.Message)
}

// Credentials authenticate private endpoints.
type Credentials struct {
	Key        string
	Secret     string // base64 as issued
	Passphrase string
}

func (c Credentials) empty() bool {
	return c.Key == "" || c.Secret == "" || c.Passphrase == ""
}

// Client talks to the Coinbase Exchange REST API.
type Client struct {
	baseURL  string
	http     *http.Client
	creds    Credentials
	secret   []byte
	validate *validator.Validate
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithClock overrides the request timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client for baseURL. Credentials may be empty when
// only public market data is needed.
func NewClient(baseURL string, creds Credentials, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("%w: coinbase api url: %v", model.ErrConfig, err)
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: defaultTimeout},
		creds:    creds,
		validate: validator.New(),
		now:      time.Now,
	}
	if !creds.empty() {
		secret, err := base64.StdEncoding.DecodeString(creds.Secret)
		if err != nil {
			return nil, fmt.Errorf("%w: coinbase api secret is not base64: %v", model.ErrConfig, err)
		}
		c.secret = secret
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ── Market data ──

// FetchPeriods returns the venue's recent candles for productID. Coinbase
// returns rows of [time, low, high, open, close, volume], newest first.
func (c *Client) FetchPeriods(ctx context.Context, productID string, tf model.Timeframe) ([]model.Period, error) {
	q := url.Values{}
	q.Set("granularity", strconv.Itoa(tf.Seconds()))

	var rows [][]float64
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(productID)+"/candles?"+q.Encode(), nil, false, &rows); err != nil {
		return nil, err
	}

	periods := make([]model.Period, 0, len(rows))
	for _, r := range rows {
		if len(r) < 6 {
			continue
		}
		periods = append(periods, model.Period{
			Time:   int64(r[0]),
			Low:    r[1],
			High:   r[2],
			Open:   r[3],
			Close:  r[4],
			Volume: r[5],
		})
	}
	return periods, nil
}

type tickerResponse struct {
	Price string `json:"price" validate:"required,numeric"`
	Time  string `json:"time"`
}

// CurrentPrice returns the last trade price from the product ticker.
func (c *Client) CurrentPrice(ctx context.Context, productID string) (float64, error) {
	var t tickerResponse
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(productID)+"/ticker", nil, false, &t); err != nil {
		return 0, err
	}
	if err := c.validate.Struct(&t); err != nil {
		return 0, fmt.Errorf("coinbase: ticker %s: %w", productID, err)
	}
	price, err := decimal.NewFromString(t.Price)
	if err != nil {
		return 0, fmt.Errorf("coinbase: ticker %s price %q: %w", productID, t.Price, err)
	}
	return price.InexactFloat64(), nil
}

// ── Orders ──

type orderRequest struct {
	Type      string `json:"type" validate:"required,eq=market"`
	Side      string `json:"side" validate:"required,oneof=buy sell"`
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size,omitempty" validate:"required_without=Funds"`
	Funds     string `json:"funds,omitempty" validate:"required_without=Size"`
	ClientOID string `json:"client_oid,omitempty"`
}

type orderResponse struct {
	ID            string    `json:"id"`
	ClientOID     string    `json:"client_oid"`
	ProductID     string    `json:"product_id"`
	Side          string    `json:"side"`
	Price         string    `json:"price"`
	Size          string    `json:"size"`
	Funds         string    `json:"funds"`
	Status        string    `json:"status"`
	DoneReason    string    `json:"done_reason"`
	RejectReason  string    `json:"reject_reason"`
	FillFees      string    `json:"fill_fees"`
	FilledSize    string    `json:"filled_size"`
	ExecutedValue string    `json:"executed_value"`
	CreatedAt     time.Time `json:"created_at"`
	DoneAt        time.Time `json:"done_at"`
}

// SubmitOrder places a market order. Buys spend Funds, sells spend Size.
func (c *Client) SubmitOrder(ctx context.Context, req model.OrderRequest) (model.Order, error) {
	body := orderRequest{
		Type:      "market",
		Side:      string(req.Side),
		ProductID: req.ProductID,
		ClientOID: req.ClientOID,
	}
	if req.Side == model.SideBuy {
		body.Funds = decimal.NewFromFloat(req.Funds).Truncate(8).String()
	} else {
		body.Size = decimal.NewFromFloat(req.Size).Truncate(8).String()
	}
	if err := c.validate.Struct(&body); err != nil {
		return model.Order{}, fmt.Errorf("%w: %v", model.ErrOrderRejected, err)
	}

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/orders", body, true, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			return model.Order{}, fmt.Errorf("%w: %v", model.ErrOrderRejected, err)
		}
		return model.Order{}, err
	}
	return resp.toModel(), nil
}

// PollOrder fetches the order's current state.
func (c *Client) PollOrder(ctx context.Context, orderID string) (model.Order, error) {
	var resp orderResponse
	err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, true, &resp)
	if err != nil {
		// cancelled orders with no fills are purged and come back as 404
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return model.Order{ID: orderID, Status: model.StatusCancelled, UpdatedAt: c.now()}, nil
		}
		return model.Order{}, err
	}
	return resp.toModel(), nil
}

// CancelOrder cancels an open order. An order that is already gone
// yields model.ErrOrderCancelled.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	err := c.do(ctx, http.MethodDelete, "/orders/"+url.PathEscape(orderID), nil, true, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: order %s not found", model.ErrOrderCancelled, orderID)
	}
	return err
}

func (r orderResponse) toModel() model.Order {
	o := model.Order{
		ID:           r.ID,
		ClientOID:    r.ClientOID,
		ProductID:    r.ProductID,
		Side:         model.Side(r.Side),
		Status:       normalizeStatus(r.Status, r.DoneReason),
		Price:        r.Price,
		Size:         r.Size,
		FilledSize:   r.FilledSize,
		FillFees:     r.FillFees,
		RejectReason: r.RejectReason,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.DoneAt,
	}
	// market orders carry no price; use the average fill price
	if p, err := decimal.NewFromString(r.Price); err != nil || p.IsZero() {
		ev, evErr := decimal.NewFromString(r.ExecutedValue)
		fs, fsErr := decimal.NewFromString(r.FilledSize)
		if evErr == nil && fsErr == nil && !fs.IsZero() {
			o.Price = ev.Div(fs).Round(8).String()
		}
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = r.CreatedAt
	}
	return o
}

func normalizeStatus(status, doneReason string) model.OrderStatus {
	switch strings.ToLower(status) {
	case "rejected":
		return model.StatusRejected
	case "done":
		switch strings.ToLower(doneReason) {
		case "filled":
			return model.StatusFilled
		case "rejected":
			return model.StatusRejected
		default:
			return model.StatusCancelled
		}
	default:
		return model.StatusPending
	}
}

// ── Transport ──

func (c *Client) do(ctx context.Context, method, path string, in any, private bool, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "TradingBot")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if private {
		if c.secret == nil {
			return fmt.Errorf("%w: coinbase credentials required for %s %s", model.ErrConfig, method, path)
		}
		c.sign(req, method, path, payload)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("coinbase: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("coinbase: read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("coinbase: decode %s: %w", path, err)
	}
	return nil
}

// sign sets the CB-ACCESS headers: base64(HMAC-SHA256(secret, ts+method+path+body)).
func (c *Client) sign(req *http.Request, method, path string, body []byte) {
	ts := strconv.FormatInt(c.now().Unix(), 10)
	req.Header.Set("CB-ACCESS-KEY", c.creds.Key)
	req.Header.Set("CB-ACCESS-SIGN", Signature(c.secret, ts, method, path, body))
	req.Header.Set("CB-ACCESS-TIMESTAMP", ts)
	req.Header.Set("CB-ACCESS-PASSPHRASE", c.creds.Passphrase)
}

// Signature computes the request signature for the given prehash parts.
func Signature(secret []byte, timestamp, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp + method + path))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
