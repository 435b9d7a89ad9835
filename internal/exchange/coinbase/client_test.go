package coinbase

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

var testCreds = Credentials{
	Key:        "key",
	Secret:     base64.StdEncoding.EncodeToString([]byte("secret")),
	Passphrase: "pass",
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, testCreds, WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
	require.NoError(t, err)
	return c
}

func TestNewClient_BadSecret(t *testing.T) {
	_, err := NewClient("", Credentials{Key: "k", Secret: "%%%", Passphrase: "p"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConfig))
}

func TestFetchPeriods(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/BTC-USD/candles", r.URL.Path)
		assert.Equal(t, "300", r.URL.Query().Get("granularity"))
		assert.Empty(t, r.Header.Get("CB-ACCESS-KEY"), "public endpoint is unsigned")
		w.Write([]byte(`[[1700000300, 9, 12, 10, 11, 5.5], [1700000000, 8, 11, 9, 10, 3], [1]]`))
	})

	periods, err := c.FetchPeriods(context.Background(), "BTC-USD", model.FiveMinutes)
	require.NoError(t, err)
	require.Len(t, periods, 2, "short rows are skipped")
	assert.Equal(t, model.Period{Time: 1700000300, Open: 10, High: 12, Low: 9, Close: 11, Volume: 5.5}, periods[0])
}

func TestCurrentPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/ETH-USD/ticker", r.URL.Path)
		w.Write([]byte(`{"trade_id": 7, "price": "2001.25", "size": "0.1", "time": "2026-01-01T00:00:00Z"}`))
	})

	p, err := c.CurrentPrice(context.Background(), "ETH-USD")
	require.NoError(t, err)
	assert.Equal(t, 2001.25, p)
}

func TestCurrentPrice_InvalidPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"price": ""}`))
	})
	_, err := c.CurrentPrice(context.Background(), "ETH-USD")
	assert.Error(t, err)
}

func TestSubmitOrder_SignedMarketBuy(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)

		var got map[string]string
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "market", got["type"])
		assert.Equal(t, "buy", got["side"])
		assert.Equal(t, "100.5", got["funds"])
		assert.NotContains(t, got, "size")

		assert.Equal(t, "key", r.Header.Get("CB-ACCESS-KEY"))
		assert.Equal(t, "pass", r.Header.Get("CB-ACCESS-PASSPHRASE"))
		assert.Equal(t, "1700000000", r.Header.Get("CB-ACCESS-TIMESTAMP"))
		want := Signature([]byte("secret"), "1700000000", "POST", "/orders", body)
		assert.Equal(t, want, r.Header.Get("CB-ACCESS-SIGN"))

		w.Write([]byte(`{"id": "o-1", "product_id": "BTC-USD", "side": "buy", "status": "pending", "created_at": "2026-01-01T00:00:00Z"}`))
	})

	o, err := c.SubmitOrder(context.Background(), model.OrderRequest{ProductID: "BTC-USD", Side: model.SideBuy, Funds: 100.5})
	require.NoError(t, err)
	assert.Equal(t, "o-1", o.ID)
	assert.Equal(t, model.StatusPending, o.Status)
}

func TestSubmitOrder_BadRequestIsRejection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "Insufficient funds"}`))
	})

	_, err := c.SubmitOrder(context.Background(), model.OrderRequest{ProductID: "BTC-USD", Side: model.SideSell, Size: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrOrderRejected))
	assert.Contains(t, err.Error(), "Insufficient funds")
}

func TestSubmitOrder_ValidationRejectsEmptySize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not be sent")
	})
	_, err := c.SubmitOrder(context.Background(), model.OrderRequest{ProductID: "BTC-USD", Side: "hold"})
	assert.True(t, errors.Is(err, model.ErrOrderRejected))
}

func TestPollOrder_Statuses(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		code      int
		status    model.OrderStatus
		wantPrice string
	}{
		{"open", `{"id":"o","status":"open"}`, 200, model.StatusPending, ""},
		{"filled market buy uses average price", `{"id":"o","status":"done","done_reason":"filled","executed_value":"100","filled_size":"4","fill_fees":"0.5"}`, 200, model.StatusFilled, "25"},
		{"filled keeps explicit price", `{"id":"o","status":"done","done_reason":"filled","price":"30","filled_size":"1"}`, 200, model.StatusFilled, "30"},
		{"canceled", `{"id":"o","status":"done","done_reason":"canceled"}`, 200, model.StatusCancelled, ""},
		{"rejected", `{"id":"o","status":"rejected","reject_reason":"post only"}`, 200, model.StatusRejected, ""},
		{"purged", `{"message":"NotFound"}`, 404, model.StatusCancelled, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/orders/o", r.URL.Path)
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			})
			o, err := c.PollOrder(context.Background(), "o")
			require.NoError(t, err)
			assert.Equal(t, tt.status, o.Status)
			if tt.wantPrice != "" {
				assert.Equal(t, tt.wantPrice, o.Price)
			}
		})
	}
}

func TestCancelOrder(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodDelete, r.Method)
		w.Write([]byte(`["o"]`))
	})
	require.NoError(t, c.CancelOrder(context.Background(), "o"))
	assert.True(t, called)
}

func TestCancelOrder_GoneIsCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"order not found"}`))
	})
	err := c.CancelOrder(context.Background(), "o")
	assert.ErrorIs(t, err, model.ErrOrderCancelled)
}

func TestPrivateEndpointNeedsCredentials(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1", Credentials{})
	require.NoError(t, err)
	_, err = c.PollOrder(context.Background(), "o")
	assert.True(t, errors.Is(err, model.ErrConfig))
}
