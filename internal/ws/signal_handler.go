package ws

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Kiosk clients connect from their own origin; rooms are opaque ids.
		return true
	},
}

// SignalHandler joins the caller to an exam room. The room is the assignment
// id the proctor and student share; role is informational and relayed to
// peers.
func SignalHandler(hubs *Hubs) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hubs == nil || hubs.Signal == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "realtime not available"})
			return
		}
		room := strings.TrimSpace(c.Query("room"))
		if room == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "room is required"})
			return
		}
		role := strings.ToLower(strings.TrimSpace(c.Query("role")))
		if role == "" {
			role = "student"
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := newSignalClient(hubs.Signal, conn, uuid.NewString(), room, role)
		hubs.Signal.register <- client

		go client.writePump()
		client.readPump()
	}
}
