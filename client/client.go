// Package client is a websocket subscriber for live parking occupancy.
// It joins one room per parking, keeps the latest snapshot for each, and
// transparently reconnects and re-joins when the connection drops.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
	"github.com/tejaswanole/automated-smart-parking-system/internal/realtime"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	reconnectBaseDelay      = time.Second
	reconnectMaxDelay       = 30 * time.Second
)

// UpdateFunc receives every occupancy snapshot for a subscribed parking.
type UpdateFunc func(snapshot domain.OccupancySnapshot)

type Options struct {
	// URL is the websocket endpoint, e.g. ws://host:8080/ws.
	URL string
	// UserID and Role are sent in the in-band authenticate message. Zero
	// UserID skips authentication.
	UserID int
	Role   string
	// OnUpdate is called from the read loop for each snapshot. It must not
	// block.
	OnUpdate UpdateFunc
}

type Client struct {
	opts   Options
	dialer *websocket.Dialer

	mu        sync.RWMutex
	conn      *websocket.Conn
	rooms     map[string]struct{}
	snapshots map[string]domain.OccupancySnapshot

	// writeMu serializes writes to conn. The connection allows one writer at
	// a time, and Subscribe, Unsubscribe and the reconnect re-join all write.
	writeMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

func New(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.New("client: URL is required")
	}
	return &Client{
		opts:      opts,
		dialer:    &websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout},
		rooms:     make(map[string]struct{}),
		snapshots: make(map[string]domain.OccupancySnapshot),
		done:      make(chan struct{}),
	}, nil
}

// Connect dials the server and starts the read loop. It returns once the
// first connection is established; later drops are handled internally.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.wg.Add(1)
	go c.readLoop()
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", c.opts.URL, err)
	}
	if c.opts.UserID != 0 {
		if err := c.writeEnvelope(conn, realtime.MsgAuthenticate, realtime.AuthenticateMsg{
			UserID: c.opts.UserID,
			Role:   c.opts.Role,
		}); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// Subscribe joins the room for one parking, by internal id or short code.
// The subscription survives reconnects.
func (c *Client) Subscribe(parkingRef string) error {
	c.mu.Lock()
	c.rooms[parkingRef] = struct{}{}
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return c.writeEnvelope(conn, realtime.MsgJoinParkingRoom, realtime.RoomMsg{ParkingID: parkingRef})
}

func (c *Client) Unsubscribe(parkingRef string) error {
	c.mu.Lock()
	delete(c.rooms, parkingRef)
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return c.writeEnvelope(conn, realtime.MsgLeaveParkingRoom, realtime.RoomMsg{ParkingID: parkingRef})
}

// Snapshot returns the latest snapshot seen for a parking, keyed by the
// internal parking id carried on the update.
func (c *Client) Snapshot(parkingID string) (domain.OccupancySnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.snapshots[parkingID]
	return snap, ok
}

func (c *Client) Close() error {
	close(c.done)
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	c.wg.Wait()
	return nil
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			log.Printf("client: read failed, reconnecting: %v", err)
			if !c.reconnect() {
				return
			}
			continue
		}
		c.handleMessage(raw)
	}
}

func (c *Client) handleMessage(raw []byte) {
	var env realtime.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("client: malformed message: %v", err)
		return
	}

	switch env.Type {
	case realtime.EventCountUpdated:
		var snap domain.OccupancySnapshot
		if err := json.Unmarshal(env.Data, &snap); err != nil {
			log.Printf("client: malformed snapshot: %v", err)
			return
		}
		c.mu.Lock()
		c.snapshots[snap.ParkingID] = snap
		c.mu.Unlock()
		if c.opts.OnUpdate != nil {
			c.opts.OnUpdate(snap)
		}
	case realtime.EventError:
		var msg realtime.ErrorMsg
		if err := json.Unmarshal(env.Data, &msg); err == nil {
			log.Printf("client: server error: %s", msg.Message)
		}
	}
}

// reconnect redials with backoff and re-joins every subscribed room. It
// returns false when the client was closed while retrying.
func (c *Client) reconnect() bool {
	delay := reconnectBaseDelay
	for {
		select {
		case <-c.done:
			return false
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), defaultHandshakeTimeout)
		conn, err := c.dial(ctx)
		cancel()
		if err != nil {
			log.Printf("client: reconnect failed: %v", err)
			delay *= 2
			if delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		rooms := make([]string, 0, len(c.rooms))
		for ref := range c.rooms {
			rooms = append(rooms, ref)
		}
		c.mu.Unlock()

		for _, ref := range rooms {
			if err := c.writeEnvelope(conn, realtime.MsgJoinParkingRoom, realtime.RoomMsg{ParkingID: ref}); err != nil {
				log.Printf("client: rejoin %s failed: %v", ref, err)
			}
		}
		return true
	}
}

func (c *Client) writeEnvelope(conn *websocket.Conn, msgType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("client: marshal %s: %w", msgType, err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(realtime.Envelope{Type: msgType, Data: data})
}
