package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	"taskbeacon/internal/auth"
)

// HandleWebSocket returns an HTTP handler that upgrades connections to
// WebSocket and runs them as Hub clients for the authenticated user. A
// hardwareId query parameter auto-pairs the device before the first push.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserID(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // Allow connections from any origin (home LAN)
		})
		if err != nil {
			hub.logger.Error("websocket accept", "error", err)
			return
		}

		if hardwareID := r.URL.Query().Get("hardwareId"); hardwareID != "" {
			if err := hub.feed.Identify(userID, hardwareID); err != nil {
				hub.logger.Error("identify hardware", "user_id", userID, "error", err)
			}
		}

		client := NewClient(hub, conn, userID)
		client.Run(r.Context())
	}
}
