package api

import (
	"log"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/gamesbykevin/TradingBot/internal/portfolio"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamMessage is pushed to websocket clients on every interval.
type StreamMessage struct {
	Type       string                  `json:"type"`
	TS         int64                   `json:"ts"`
	TotalValue float64                 `json:"total_value"`
	Agents     []portfolio.AgentStatus `json:"agents"`
}

// serveStream upgrades the connection and pushes a snapshot immediately
// and then every interval until the client goes away.
func serveStream(w http.ResponseWriter, r *http.Request, pf *portfolio.Portfolio, interval time.Duration) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[api] ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go readPump(conn, done)

	snapshot := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer snapshot.Stop()
	defer ping.Stop()

	if err := writeSnapshot(conn, pf); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case <-snapshot.C:
			if err := writeSnapshot(conn, pf); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, pf *portfolio.Portfolio) error {
	msg, err := json.Marshal(StreamMessage{
		Type:       "agents",
		TS:         time.Now().UnixMilli(),
		TotalValue: pf.TotalValue(),
		Agents:     pf.Agents(),
	})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, msg)
}

// readPump discards client frames and keeps the read deadline alive.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
