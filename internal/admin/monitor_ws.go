package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"socketpoold/internal/stats"
)

// upgrader permits any origin: this surface is meant to be reached only
// over a trusted local/admin network, never exposed publicly.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleMonitorWS upgrades the connection and pushes a stats.Sample frame
// every monitorTick until the client disconnects or the server shuts down.
func (s *Server) handleMonitorWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("admin: websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(monitorTick)
	defer ticker.Stop()

	for range ticker.C {
		snap := s.Registry.Snapshot()
		sample := stats.Sample{
			Instance:    s.Dispatch.InstanceID,
			PoolSize:    snap.Size,
			PoolMaxSize: snap.MaxSize,
			UptimeS:     time.Since(s.Dispatch.StartedAt).Seconds(),
			Endpoints:   s.Stats.Snapshot(),
		}
		body, err := json.Marshal(sample)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			return
		}
	}
}
