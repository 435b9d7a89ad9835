package notification

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (r *recorder) Send(ctx context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return r.err
}

func (r *recorder) got() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}

// ────────────────────────────────────────────────────────────
// Backends
// ────────────────────────────────────────────────────────────

func TestWebhookNotifier_PostsJSON(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	n.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	require.NoError(t, n.Send(context.Background(), Alert{Level: AlertWarning, Title: "t", Message: "m"}))

	assert.Equal(t, webhookPayload{Level: "WARNING", Title: "t", Message: "m", TS: "2024-01-02T03:04:05Z"}, got)

	raised := time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC)
	require.NoError(t, n.Send(context.Background(), Alert{Level: AlertInfo, Title: "t", Message: "m", Time: raised}))
	assert.Equal(t, "2024-01-02T03:00:00Z", got.TS)
}

func TestLogNotifier_MapsLevels(t *testing.T) {
	var buf bytes.Buffer
	n := &LogNotifier{logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	require.NoError(t, n.Send(context.Background(), Alert{Level: AlertCritical, Title: "Stop trading", Message: "BTC-USD"}))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "Stop trading", rec["title"])
	assert.Equal(t, "BTC-USD", rec["message"])
}

func TestWebhookNotifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{Title: "x"})
	assert.ErrorContains(t, err, "502")
}

func TestTelegramNotifier_Send(t *testing.T) {
	var path string
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42").WithBaseURL(srv.URL + "/")
	require.NoError(t, n.Send(context.Background(), Alert{Level: AlertCritical, Title: "BTC-USD", Message: "sold 1.5"}))

	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, "42", body["chat_id"])
	assert.Equal(t, "MarkdownV2", body["parse_mode"])
	assert.Equal(t, "🚨 *BTC\\-USD*\n\nsold 1\\.5", body["text"])
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `a\_b\*c\(d\)\!`, escapeMarkdown("a_b*c(d)!"))
	assert.Equal(t, "plain", escapeMarkdown("plain"))
}

func TestMulti_JoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	ok := &recorder{}
	bad := &recorder{err: boom}

	err := Multi{ok, bad, NewLogNotifier()}.Send(context.Background(), Alert{Title: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ok.got(), 1)
	assert.Len(t, bad.got(), 1)
}

// ────────────────────────────────────────────────────────────
// Dispatcher
// ────────────────────────────────────────────────────────────

func TestDispatcher_DeliversInOrder(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, 8, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { d.Run(ctx); close(done) }()

	d.Emit(AlertInfo, "a", "1")
	d.Emit(AlertWarning, "b", "2")
	require.Eventually(t, func() bool { return len(rec.got()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	got := rec.got()
	assert.Equal(t, "a", got[0].Title)
	assert.Equal(t, AlertWarning, got[1].Level)
}

func TestDispatcher_EmitNeverBlocks(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, 2, 0)
	var dropped int
	d.OnResult = func(_ AlertLevel, drop bool) {
		if drop {
			dropped++
		}
	}

	// no worker running: queue fills, then drops
	assert.True(t, d.Emit(AlertInfo, "1", ""))
	assert.True(t, d.Emit(AlertInfo, "2", ""))
	assert.False(t, d.Emit(AlertInfo, "3", ""))
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 2, d.Pending())
}

func TestDispatcher_RunDrainsOnCancel(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, 4, 0)
	d.Emit(AlertInfo, "1", "")
	d.Emit(AlertInfo, "2", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	assert.Len(t, rec.got(), 2)
	assert.Zero(t, d.Pending())
}

func TestDispatcher_StatusRateLimited(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	d := NewDispatcher(&recorder{}, 8, 30*time.Minute).WithClock(func() time.Time { return now })

	assert.True(t, d.Status("status", "first"))
	now = now.Add(29 * time.Minute)
	assert.False(t, d.Status("status", "too soon"))
	now = now.Add(time.Minute)
	assert.True(t, d.Status("status", "again"))
	assert.Equal(t, 2, d.Pending())
}
