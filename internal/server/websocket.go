package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bobmcallan/argus/internal/models"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // auth is out of scope; dashboards connect cross-origin
	},
}

// handleEvents handles GET /api/agents/{tenant}/events, upgrading to a
// WebSocket that streams the tenant's event feed. The first message is
// always the snapshot; streamed events follow in emission order.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, tenant string) {
	events, unsubscribe, err := s.app.AgentService.Subscribe(tenant)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		unsubscribe()
		s.logger.Warn().Err(err).Str("tenant", tenant).Msg("WebSocket upgrade failed")
		return
	}

	s.logger.Debug().
		Str("tenant", tenant).
		Str("remote", conn.RemoteAddr().String()).
		Msg("Observer connected")

	go s.writeEvents(conn, tenant, events, unsubscribe)
	go s.readUntilClose(conn)
}

// writeEvents pumps events to the connection until the subscription or
// the connection closes.
func (s *Server) writeEvents(conn *websocket.Conn, tenant string, events <-chan *models.AgentEvent, unsubscribe func()) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		unsubscribe()
		conn.Close()
		s.logger.Debug().Str("tenant", tenant).Msg("Observer disconnected")
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "agent service shutting down"))
				return
			}

			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readUntilClose drains inbound frames so pongs and close messages are
// processed. Observers never send application messages.
func (s *Server) readUntilClose(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			conn.Close()
			return
		}
	}
}
