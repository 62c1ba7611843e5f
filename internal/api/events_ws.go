package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 20 * time.Second
	wsWriteWait  = 5 * time.Second
)

func (s *Server) upgrader() websocket.Upgrader {
	allowed := s.cfg.API.AllowOrigins
	return websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return len(allowed) == 0 || origin == "" || slices.Contains(allowed, origin)
	}}
}

// handleEvents streams the events of one switchlist as JSON text frames
// until the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	// answer 404 before upgrading
	if _, err := s.svc.Get(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	// subscribe first so nothing published after the handshake is missed
	ch := s.broker.Subscribe(string(id))
	defer s.broker.Unsubscribe(string(id), ch)

	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debugw("websocket upgrade failed", "switchlist", id, "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	// The read loop only serves control frames and notices the close.
	done := make(chan struct{})
	conn.SetReadLimit(1 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(wsPongWait)) })
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "broker closed"), time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
