package handler

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hitpoints/hitpoints-service/internal/infrastructure/notify"
)

func newLiveServer(t *testing.T, bus *notify.Bus) *httptest.Server {
	t.Helper()
	e := echo.New()
	h := NewLiveHandler(bus, []string{"http://localhost:5173"}, zerolog.Nop())
	e.GET("/live", h.WebSocket)
	e.GET("/events", h.Events)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func waitForSubscribers(t *testing.T, bus *notify.Bus, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for bus.Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, have %d", n, bus.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLiveHandler_WebSocketStreamsChanges(t *testing.T) {
	bus := notify.NewBus(8, zerolog.Nop())
	srv := newLiveServer(t, bus)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForSubscribers(t, bus, 1)

	if err := bus.Publish(context.Background(), "briv"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg changeMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != eventCharacterUpdated || msg.CharacterID != "briv" {
		t.Errorf("unexpected message: %+v", msg)
	}

	// Ending the subscription tells the client to resync.
	bus.Close()
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
		t.Errorf("expected close 1013, got %v", err)
	}
}

func TestLiveHandler_WebSocketRejectsForeignOrigin(t *testing.T) {
	bus := notify.NewBus(8, zerolog.Nop())
	srv := newLiveServer(t, bus)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live"
	header := http.Header{"Origin": []string{"http://evil.test"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %v", resp)
	}
}

func TestLiveHandler_ClientDisconnectUnsubscribes(t *testing.T) {
	bus := notify.NewBus(8, zerolog.Nop())
	srv := newLiveServer(t, bus)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitForSubscribers(t, bus, 1)

	conn.Close()
	waitForSubscribers(t, bus, 0)
}

func TestLiveHandler_ServerSentEvents(t *testing.T) {
	bus := notify.NewBus(8, zerolog.Nop())
	srv := newLiveServer(t, bus)

	resp, err := http.Get(srv.URL + "/events")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get(echo.HeaderContentType); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	waitForSubscribers(t, bus, 1)

	if err := bus.Publish(context.Background(), "thorgrim"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	r := bufio.NewReader(resp.Body)
	readLine := func() string {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		return strings.TrimRight(line, "\n")
	}
	if got := readLine(); got != "event: CharacterUpdated" {
		t.Errorf("event line = %q", got)
	}
	if got := readLine(); got != "data: thorgrim" {
		t.Errorf("data line = %q", got)
	}
	readLine()

	bus.Close()
	if got := readLine(); got != "event: resync" {
		t.Errorf("expected resync event, got %q", got)
	}
}

func TestOriginChecker(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	allowAll := originChecker([]string{"*"})
	if !allowAll(req("http://any.test")) {
		t.Error("wildcard should allow any origin")
	}

	strict := originChecker([]string{"http://localhost:5173"})
	if !strict(req("http://localhost:5173")) || !strict(req("")) {
		t.Error("expected listed and missing origins to pass")
	}
	if strict(req("http://evil.test")) {
		t.Error("expected unlisted origin to be rejected")
	}
}
