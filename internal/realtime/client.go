package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
	"github.com/tejaswanole/automated-smart-parking-system/internal/repository"
)

// OccupancyService is the slice of the parking service the socket layer
// drives: resolving refs and applying count mutations.
type OccupancyService interface {
	ResolveParking(ctx context.Context, ref string) (*domain.Parking, error)
	SetVehicleCount(ctx context.Context, ref string, vehicle domain.VehicleType, count int, actor domain.UpdateActor) (*domain.Parking, error)
	IncrementVehicleCount(ctx context.Context, ref string, vehicle domain.VehicleType, delta int, actor domain.UpdateActor) (*domain.Parking, error)
	DecrementVehicleCount(ctx context.Context, ref string, vehicle domain.VehicleType, delta int, actor domain.UpdateActor) (*domain.Parking, error)
	ApplyDetectionUpdate(ctx context.Context, ref string, counts domain.VehicleCounts, capacity *domain.VehicleCounts) (*domain.Parking, error)
}

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 54 * time.Second
	pongWait       = 60 * time.Second
	sendBufferSize = 32
	handleTimeout  = 10 * time.Second
)

// Client is one live websocket connection.
type Client struct {
	ID   string
	hub  *Hub
	svc  OccupancyService
	conn *websocket.Conn
	send chan []byte

	// rooms and detectionFor are owned by the hub and guarded by its lock.
	rooms        map[string]struct{}
	detectionFor map[string]struct{}

	// joinedRefs maps each ref an accepted join used to the room key it
	// resolved to. Rooms are keyed by internal id, and a parking can stop
	// resolving after it is deactivated, so a later leave by the same ref
	// must not depend on resolution. Touched only from the read pump.
	joinedRefs map[string]string

	userID int
	role   string
}

func NewClient(hub *Hub, svc OccupancyService, conn *websocket.Conn) *Client {
	return &Client{
		ID:           uuid.NewString(),
		hub:          hub,
		svc:          svc,
		conn:         conn,
		send:         make(chan []byte, sendBufferSize),
		rooms:        make(map[string]struct{}),
		detectionFor: make(map[string]struct{}),
		joinedRefs:   make(map[string]string),
	}
}

// Run pumps the connection until it drops, then cleans up its memberships.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.conn.Close()
		close(c.send)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket client %s read error: %v", c.ID, err)
			}
			return
		}
		c.handleMessage(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues a payload without blocking. A full buffer drops the message;
// fan-out is a latency optimization and the ledger remains readable.
func (c *Client) trySend(payload []byte) {
	select {
	case c.send <- payload:
	default:
		log.Printf("WebSocket client %s send buffer full, dropping message", c.ID)
	}
}

func (c *Client) sendEvent(eventType string, data any) {
	payload, err := Encode(eventType, data)
	if err != nil {
		log.Printf("WebSocket client %s: %v", c.ID, err)
		return
	}
	c.trySend(payload)
}

func (c *Client) sendError(message string) {
	c.sendEvent(EventError, ErrorMsg{Message: message})
}

func (c *Client) handleMessage(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.sendError("invalid message framing")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	switch env.Type {
	case MsgAuthenticate:
		c.handleAuthenticate(env.Data)
	case MsgJoinParkingRoom:
		c.handleJoinRoom(ctx, env.Data)
	case MsgLeaveParkingRoom:
		c.handleLeaveRoom(ctx, env.Data)
	case MsgCVModelConnect:
		c.handleCVModelConnect(ctx, env.Data)
	case MsgDetectionUpdate:
		c.handleDetectionUpdate(ctx, env.Data)
	case MsgStaffUpdate:
		c.handleStaffUpdate(ctx, env.Data)
	default:
		c.sendError("unknown message type '" + env.Type + "'")
	}
}

func (c *Client) handleAuthenticate(data json.RawMessage) {
	var msg AuthenticateMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid authenticate payload")
		return
	}
	if err := msg.Validate(); err != nil {
		c.sendError(err.Error())
		return
	}
	c.userID = msg.UserID
	c.role = msg.Role
	c.sendEvent(EventAuthenticated, AuthenticatedAck{UserID: msg.UserID, Role: msg.Role})
}

func (c *Client) handleJoinRoom(ctx context.Context, data json.RawMessage) {
	var msg RoomMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid join payload")
		return
	}
	if err := msg.Validate(); err != nil {
		c.sendError(err.Error())
		return
	}
	parking, err := c.svc.ResolveParking(ctx, msg.ParkingID)
	if err != nil {
		c.sendMutationError(err)
		return
	}
	c.hub.JoinRoom(c, parking.ID)
	c.joinedRefs[msg.ParkingID] = parking.ID
	c.sendEvent(EventJoinedRoom, RoomAck{ParkingID: parking.ID, ParkingCode: parking.ParkingCode})
}

func (c *Client) handleLeaveRoom(ctx context.Context, data json.RawMessage) {
	var msg RoomMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid leave payload")
		return
	}
	if err := msg.Validate(); err != nil {
		c.sendError(err.Error())
		return
	}
	parkingID := msg.ParkingID
	if id, ok := c.joinedRefs[msg.ParkingID]; ok {
		parkingID = id
	} else if parking, err := c.svc.ResolveParking(ctx, msg.ParkingID); err == nil {
		parkingID = parking.ID
	}
	delete(c.joinedRefs, msg.ParkingID)
	c.hub.LeaveRoom(c, parkingID)
	c.sendEvent(EventLeftRoom, RoomAck{ParkingID: parkingID})
}

func (c *Client) handleCVModelConnect(ctx context.Context, data json.RawMessage) {
	var msg CVModelConnectMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid cv_model_connect payload")
		return
	}
	if err := msg.Validate(); err != nil {
		c.sendError(err.Error())
		return
	}
	parking, err := c.svc.ResolveParking(ctx, msg.ParkingID)
	if err != nil {
		c.sendMutationError(err)
		return
	}
	c.hub.RegisterDetectionSession(c, parking.ID, msg.ModelID)
	log.Printf("Detection session %s registered for parking %s (client %s)", msg.ModelID, parking.ID, c.ID)
	c.sendEvent(EventCVModelConnected, CVModelAck{ParkingID: parking.ID, ModelID: msg.ModelID})
}

func (c *Client) handleDetectionUpdate(ctx context.Context, data json.RawMessage) {
	var msg DetectionUpdateMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid parking_count_update payload")
		return
	}
	if err := msg.Validate(); err != nil {
		c.sendError(err.Error())
		return
	}
	parking, err := c.svc.ResolveParking(ctx, msg.ParkingID)
	if err != nil {
		c.sendMutationError(err)
		return
	}
	// The detection feed may only mutate the parking it paired with at
	// cv_model_connect time.
	if !c.hub.IsDetectionSession(c, parking.ID) {
		c.sendError("not registered as the detection session for this parking")
		return
	}
	if _, err := c.svc.ApplyDetectionUpdate(ctx, parking.ID, *msg.Counts, msg.Capacity); err != nil {
		c.sendMutationError(err)
	}
}

func (c *Client) handleStaffUpdate(ctx context.Context, data json.RawMessage) {
	var msg StaffUpdateMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid staff_count_update payload")
		return
	}
	if err := msg.Validate(); err != nil {
		c.sendError(err.Error())
		return
	}

	vehicle := domain.VehicleType(msg.VehicleType)
	var err error
	switch msg.Action {
	case ActionIncrement:
		_, err = c.svc.IncrementVehicleCount(ctx, msg.ParkingID, vehicle, *msg.Count, domain.UpdatedByStaff)
	case ActionDecrement:
		_, err = c.svc.DecrementVehicleCount(ctx, msg.ParkingID, vehicle, *msg.Count, domain.UpdatedByStaff)
	case ActionSet:
		_, err = c.svc.SetVehicleCount(ctx, msg.ParkingID, vehicle, *msg.Count, domain.UpdatedByStaff)
	}
	if err != nil {
		c.sendMutationError(err)
	}
}

func (c *Client) sendMutationError(err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.sendError("parking not found")
	case errors.Is(err, domain.ErrInvalidVehicleType):
		c.sendError("invalid vehicle type")
	case errors.Is(err, domain.ErrInvalidCount):
		c.sendError("count cannot be negative")
	case errors.Is(err, domain.ErrCapacityExceeded):
		c.sendError("count cannot exceed capacity")
	default:
		log.Printf("WebSocket client %s mutation failed: %v", c.ID, err)
		c.sendError("failed to update parking count")
	}
}
