package controller

import (
	"net/http"

	apperrors "github.com/garka/garka-backend/internal/errors"
	"github.com/garka/garka-backend/internal/middleware"
	ws "github.com/garka/garka-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// NotificationController upgrades authenticated users to the realtime
// notification stream.
type NotificationController struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewNotificationController accepts handshakes from allowedOrigins; "*"
// accepts any origin. Requests without an Origin header (non-browser
// clients) are always accepted.
func NewNotificationController(hub *ws.Hub, allowedOrigins []string) *NotificationController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &NotificationController{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Connect handles the websocket handshake
// GET /api/v1/notifications/ws?token=<access token>
func (ctrl *NotificationController) Connect(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		log.Warn("WebSocket upgrade failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, userID)
	ctrl.hub.Register(client)

	log.Info("Notification stream opened", map[string]interface{}{
		"user_id": userID,
	})

	go client.WritePump()
	go client.ReadPump()
}
