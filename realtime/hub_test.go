package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub, username string) (*websocket.Conn, func()) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Subscribe(w, r, username); err != nil {
			t.Errorf("subscribe failed: %v", err)
		}
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	// Registration happens just after the handshake; wait for it.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if len(hub.ActiveUsers()) > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Contains(t, hub.ActiveUsers(), username)

	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func TestHubPushDeliversEvent(t *testing.T) {
	hub := NewHub()
	conn, cleanup := dialHub(t, hub, "ana")
	defer cleanup()

	hub.Push("ana", Event{Type: "LEAD_CREATED", Title: "New lead", Message: "Lead LEAD-0001 was registered"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "LEAD_CREATED", event.Type)

	hub.Push("nobody-connected", Event{Type: "NOOP"})
}

// Every mutation dispatches its notification from its own goroutine, so pushes
// to the same connection land concurrently and must be serialized.
func TestHubPushConcurrentWriters(t *testing.T) {
	hub := NewHub()
	conn, cleanup := dialHub(t, hub, "ana")
	defer cleanup()

	const pushes = 50
	var wg sync.WaitGroup
	for i := 0; i < pushes; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hub.Push("ana", Event{Type: "TASK_COMPLETED", Message: fmt.Sprintf("event %d", i)})
		}(i)
	}
	wg.Wait()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < pushes; i++ {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "message %d", i)

		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, "TASK_COMPLETED", event.Type)
	}

	assert.Equal(t, []string{"ana"}, hub.ActiveUsers(), "no connection may be dropped by a failed write")
}
