package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tejaswanole/automated-smart-parking-system/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub *realtime.Hub
	svc realtime.OccupancyService
}

func NewWebSocketHandler(hub *realtime.Hub, svc realtime.OccupancyService) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, svc: svc}
}

// Serve handles GET /ws, upgrading the connection and handing it to the hub.
// Authentication happens in-band via the authenticate message, so the route
// itself is public.
func (h *WebSocketHandler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	client := realtime.NewClient(h.hub, h.svc, conn)
	client.Run()
}
