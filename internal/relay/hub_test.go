package relay

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readOne(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	return string(data)
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	t.Parallel()

	hub := NewHub(context.Background())
	defer hub.Close()
	server := httptest.NewServer(hub)
	defer server.Close()

	conns := []*websocket.Conn{dialHub(t, server), dialHub(t, server), dialHub(t, server)}
	waitForClients(t, hub, len(conns))

	hub.Broadcast([]byte(`{"type":"PR_UPDATED","prId":"pr-1"}`))

	for i, conn := range conns {
		if got := readOne(t, conn); got != `{"type":"PR_UPDATED","prId":"pr-1"}` {
			t.Fatalf("client %d got %q", i, got)
		}
	}
}

func TestHubLateClientMissesEarlierEvents(t *testing.T) {
	t.Parallel()

	hub := NewHub(context.Background())
	defer hub.Close()
	server := httptest.NewServer(hub)
	defer server.Close()

	hub.Broadcast([]byte(`{"seq":1}`))

	conn := dialHub(t, server)
	waitForClients(t, hub, 1)

	hub.Broadcast([]byte(`{"seq":2}`))

	// Nothing is replayed: the first frame the late client sees is the
	// broadcast after it connected.
	if got := readOne(t, conn); got != `{"seq":2}` {
		t.Fatalf("late client got %q, want only the live event", got)
	}
}

func TestHubDropsInvalidJSON(t *testing.T) {
	t.Parallel()

	hub := NewHub(context.Background())
	defer hub.Close()
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dialHub(t, server)
	waitForClients(t, hub, 1)

	hub.Broadcast([]byte("{broken"))
	hub.Broadcast([]byte(`{"ok":true}`))

	if got := readOne(t, conn); got != `{"ok":true}` {
		t.Fatalf("got %q, want the valid event only", got)
	}
}

func TestHubClose(t *testing.T) {
	t.Parallel()

	hub := NewHub(context.Background())
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dialHub(t, server)
	waitForClients(t, hub, 1)

	hub.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("read after Close() succeeded, want connection error")
	}
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("client count after Close() = %d, want 0", got)
	}

	// New connections are rejected once the hub is closed.
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	late, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		_ = late.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, readErr := late.ReadMessage(); readErr == nil {
			t.Fatal("closed hub accepted a new client")
		}
		_ = late.Close()
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}

func TestHubDisconnectUnregisters(t *testing.T) {
	t.Parallel()

	hub := NewHub(context.Background())
	defer hub.Close()
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dialHub(t, server)
	waitForClients(t, hub, 1)

	_ = conn.Close()
	waitForClients(t, hub, 0)
}
