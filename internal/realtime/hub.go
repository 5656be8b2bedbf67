package realtime

import (
	"log"
	"sync"

	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
)

// Hub is the room membership registry: which live connections are subscribed
// to which parking's update stream, and which connection (if any) is the
// automated detection session for a parking. It is process-local state with
// an explicit lifecycle; a restart starts empty and clients re-join.
type Hub struct {
	mu        sync.RWMutex
	rooms     map[string]map[*Client]struct{}
	detection map[string]*detectionSession
}

type detectionSession struct {
	client  *Client
	modelID string
}

func NewHub() *Hub {
	return &Hub{
		rooms:     make(map[string]map[*Client]struct{}),
		detection: make(map[string]*detectionSession),
	}
}

// JoinRoom subscribes the connection to a parking's updates. Idempotent.
func (h *Hub) JoinRoom(c *Client, parkingID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[parkingID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[parkingID] = room
	}
	room[c] = struct{}{}
	c.rooms[parkingID] = struct{}{}
}

// LeaveRoom unsubscribes the connection. No-op if it was not subscribed.
func (h *Hub) LeaveRoom(c *Client, parkingID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoomLocked(c, parkingID)
}

func (h *Hub) leaveRoomLocked(c *Client, parkingID string) {
	if room, ok := h.rooms[parkingID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, parkingID)
		}
	}
	delete(c.rooms, parkingID)
}

// RegisterDetectionSession marks the connection as the single detection
// session for a parking, replacing any prior registration for that parking
// and implicitly joining the room. Each parking's slot is independent: the
// same connection may hold the detection role for several parkings.
func (h *Hub) RegisterDetectionSession(c *Client, parkingID, modelID string) {
	h.mu.Lock()
	if prev, ok := h.detection[parkingID]; ok && prev.client != c {
		delete(prev.client.detectionFor, parkingID)
	}
	h.detection[parkingID] = &detectionSession{client: c, modelID: modelID}
	c.detectionFor[parkingID] = struct{}{}
	h.mu.Unlock()

	h.JoinRoom(c, parkingID)
}

// IsDetectionSession reports whether the connection holds the detection slot
// for the parking, the paired credential a detection update must present.
func (h *Hub) IsDetectionSession(c *Client, parkingID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	session, ok := h.detection[parkingID]
	return ok && session.client == c
}

// Disconnect removes the connection from every room and clears any detection
// registrations it held.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for parkingID := range c.rooms {
		h.leaveRoomLocked(c, parkingID)
	}
	for parkingID := range c.detectionFor {
		if session, ok := h.detection[parkingID]; ok && session.client == c {
			delete(h.detection, parkingID)
		}
		delete(c.detectionFor, parkingID)
	}
}

// PublishSnapshot delivers the post-mutation snapshot to every subscriber in
// the parking's room. Best-effort: a subscriber whose send buffer is full
// misses this snapshot and catches up on the next one or via a plain read.
func (h *Hub) PublishSnapshot(snapshot domain.OccupancySnapshot) {
	payload, err := Encode(EventCountUpdated, snapshot)
	if err != nil {
		log.Printf("Hub: failed to encode snapshot for parking %s: %v", snapshot.ParkingID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[snapshot.ParkingID] {
		c.trySend(payload)
	}
}

// NotifyDetection delivers the staff-override notice to the parking's
// detection session only, if one is registered.
func (h *Hub) NotifyDetection(parkingID string, notice domain.StaffOverrideNotice) {
	payload, err := Encode(EventStaffCountUpdate, notice)
	if err != nil {
		log.Printf("Hub: failed to encode staff notice for parking %s: %v", parkingID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if session, ok := h.detection[parkingID]; ok {
		session.client.trySend(payload)
	}
}

// RoomSize reports the current subscriber count for a parking.
func (h *Hub) RoomSize(parkingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[parkingID])
}
