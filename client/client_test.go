package client

import (
	"context"
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

	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
	"github.com/tejaswanole/automated-smart-parking-system/internal/realtime"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// newEchoServer accepts one websocket connection at a time and hands every
// decoded envelope to onMessage.
func newEchoServer(t *testing.T, onMessage func(conn *websocket.Conn, env realtime.Envelope)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env realtime.Envelope
			if json.Unmarshal(raw, &env) == nil && onMessage != nil {
				onMessage(conn, env)
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient_ConcurrentSubscribes(t *testing.T) {
	var mu sync.Mutex
	joined := make(map[string]struct{})
	srv := newEchoServer(t, func(_ *websocket.Conn, env realtime.Envelope) {
		if env.Type != realtime.MsgJoinParkingRoom {
			return
		}
		var msg realtime.RoomMsg
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			t.Errorf("malformed join frame: %v", err)
			return
		}
		mu.Lock()
		joined[msg.ParkingID] = struct{}{}
		mu.Unlock()
	})

	c, err := New(Options{URL: wsURL(srv)})
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := c.Subscribe(fmt.Sprintf("parking-%02d", i)); err != nil {
				t.Errorf("subscribe %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	// Every join frame must arrive intact; interleaved writes would corrupt
	// the framing and the server would drop the connection.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(joined) == workers
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_SnapshotDelivery(t *testing.T) {
	snapCh := make(chan domain.OccupancySnapshot, 1)
	srv := newEchoServer(t, func(conn *websocket.Conn, env realtime.Envelope) {
		if env.Type != realtime.MsgJoinParkingRoom {
			return
		}
		payload, err := realtime.Encode(realtime.EventCountUpdated, domain.OccupancySnapshot{
			ParkingID:    "5d41402a-bc4b-4a76-b971-9d911017c592",
			CurrentCount: domain.VehicleCounts{Car: 4},
		})
		if err != nil {
			t.Errorf("encode snapshot: %v", err)
			return
		}
		conn.WriteMessage(websocket.TextMessage, payload)
	})

	c, err := New(Options{
		URL:      wsURL(srv),
		OnUpdate: func(snap domain.OccupancySnapshot) { snapCh <- snap },
	})
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	require.NoError(t, c.Subscribe("1017c592"))

	select {
	case snap := <-snapCh:
		assert.Equal(t, 4, snap.CurrentCount.Car)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
	}

	stored, ok := c.Snapshot("5d41402a-bc4b-4a76-b971-9d911017c592")
	require.True(t, ok)
	assert.Equal(t, 4, stored.CurrentCount.Car)
}
