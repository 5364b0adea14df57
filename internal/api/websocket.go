package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AaronLay10/StoryEngine/internal/events"
)

const (
	// Journal events replayed to a client when it connects
	recentEventsCount = 50

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The surface is read-only, any origin may watch.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsEventsHandler streams the journal to a WebSocket client: first the most
// recent events, then every new event until the client goes away.
func (s *Server) wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	sub := events.Subscribe()
	closeAll := func() {
		events.Unsubscribe(sub)
		conn.Close()
	}

	for _, e := range events.RecentEvents(recentEventsCount) {
		if err := writeEvent(conn, e); err != nil {
			s.logger.Debug("ws write recent event failed", zap.Error(err))
			closeAll()
			return
		}
	}

	done := make(chan struct{})

	// Reader: pongs and close frames only.
	go func() {
		defer close(done)
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
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			closeAll()
			return

		case e, ok := <-sub:
			if !ok {
				conn.Close()
				return
			}
			if err := writeEvent(conn, e); err != nil {
				s.logger.Debug("ws write event failed", zap.Error(err))
				closeAll()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				closeAll()
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
