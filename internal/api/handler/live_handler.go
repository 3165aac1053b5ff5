package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hitpoints/hitpoints-service/internal/core/ports"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	sseHeartbeat = 15 * time.Second

	eventCharacterUpdated = "CharacterUpdated"
)

// LiveHandler streams character change notifications to browsers over
// WebSocket or Server-Sent Events. Each message carries only the character
// id. When a connection closes, the client should reconnect and reload the
// roster, since events published while it was away are not replayed.
type LiveHandler struct {
	feed     ports.ChangeFeed
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewLiveHandler accepts WebSocket upgrades from the given origins; "*" or an
// empty list allows any origin.
func NewLiveHandler(feed ports.ChangeFeed, allowedOrigins []string, log zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		feed: feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

// WebSocket handles GET /characters/live.
//
// @Summary      Live character changes over WebSocket
// @Tags         characters
// @Success      101
// @Router       /characters/live [get]
func (h *LiveHandler) WebSocket(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return nil
	}
	defer conn.Close()

	sub := h.feed.Subscribe()
	defer sub.Close()
	log := h.log.With().Str("subscriber_id", sub.ID()).Str("transport", "websocket").Logger()
	log.Debug().Msg("live client connected")

	// The read pump only processes control frames and notices disconnects.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case id, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				log.Info().Msg("subscription ended, closing live client")
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "resync required"))
				return nil
			}
			if err := conn.WriteJSON(changeMessage{Type: eventCharacterUpdated, CharacterID: id}); err != nil {
				log.Debug().Err(err).Msg("live client write failed")
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-closed:
			log.Debug().Msg("live client disconnected")
			return nil
		}
	}
}

// Events handles GET /characters/events.
//
// @Summary      Live character changes over Server-Sent Events
// @Tags         characters
// @Produce      text/event-stream
// @Success      200
// @Router       /characters/events [get]
func (h *LiveHandler) Events(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	sub := h.feed.Subscribe()
	defer sub.Close()
	log := h.log.With().Str("subscriber_id", sub.ID()).Str("transport", "sse").Logger()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case id, ok := <-sub.Events():
			if !ok {
				log.Info().Msg("subscription ended, closing live client")
				_, _ = fmt.Fprint(w, "event: resync\ndata: {}\n\n")
				w.Flush()
				return nil
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventCharacterUpdated, id); err != nil {
				return nil
			}
			w.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case <-ctx.Done():
			return nil
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
