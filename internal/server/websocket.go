package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/planetwalk/internal/core/observability/log"
	"github.com/zeusync/planetwalk/pkg/encoding"
	"github.com/zeusync/planetwalk/pkg/wire"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Renderers are served from anywhere; the token guards access.
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Authorize(r.URL.Query().Get("token")); err != nil {
		s.logger.Warn("WebSocket client rejected",
			log.String("remote_addr", r.RemoteAddr),
			log.Error(err))
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", log.Error(err))
		return
	}
	conn.SetReadLimit(encoding.DefaultMaxFrameSize)

	session := newClientSession("websocket", conn.RemoteAddr().String(), conn.Close)
	s.register(session)
	defer s.unregister(session)

	go s.writeWebSocket(conn, session)
	s.readWebSocket(conn, session)
}

func (s *Server) readWebSocket(conn *websocket.Conn, c *ClientSession) {
	for {
		var msg wire.ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("WebSocket read failed", log.String("client_id", c.ID), log.Error(err))
			}
			return
		}
		s.handleMessage(c, msg)
	}
}

// writeWebSocket is the only writer of conn.
func (s *Server) writeWebSocket(conn *websocket.Conn, c *ClientSession) {
	for {
		select {
		case payload := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Debug("WebSocket write failed", log.String("client_id", c.ID), log.Error(err))
				_ = c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
