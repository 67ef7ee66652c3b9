package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	eventsReadLimit    = 4 << 10
	eventsPongWait     = 60 * time.Second
	eventsPingInterval = 25 * time.Second
	eventsWriteWait    = 10 * time.Second
)

var eventsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

type eventMessage struct {
	Type string `json:"type"`
	View any    `json:"view"`
}

// handleEvents streams the session view: once on connect, then after every
// change. Intermediate views may be skipped; the last one always arrives.
// The open stream keeps its session alive: the subscription blocks Sweep and
// every ping marks the session active.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller(r)
	key := sessionKey(r.Context())

	conn, err := eventsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("events ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := ctrl.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(eventsReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Debug().Err(err).Msg("events ws read")
				}
				return
			}
		}
	}()

	ping := time.NewTicker(eventsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-s.baseCtx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(eventsWriteWait))
			return
		case <-ping.C:
			s.sessions.Lookup(key)
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventsWriteWait)); err != nil {
				return
			}
		case snap, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteJSON(eventMessage{Type: "view", View: s.view(ctrl, snap)}); err != nil {
				s.logger.Debug().Err(err).Msg("events ws write")
				return
			}
		}
	}
}
