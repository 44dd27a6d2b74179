// Package admin exposes the daemon's optional HTTP/websocket operator
// surface: health, Prometheus metrics, pool/stats introspection, and a
// live-stats stream for `poolctl monitor`.
package admin

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"socketpoold/internal/authn"
	"socketpoold/internal/dispatcher"
	"socketpoold/internal/ipcproto"
	"socketpoold/internal/logger"
	"socketpoold/internal/pool"
	"socketpoold/internal/response"
	"socketpoold/internal/stats"
)

// Server wires gin with the admin routes. Grounded on
// internal/server/router.go's NewRouter, trimmed to this daemon's
// introspection/control surface.
type Server struct {
	Dispatch *dispatcher.Dispatcher
	Registry *pool.Registry
	Stats    *stats.Table

	AuthEnabled bool
	Issuer      *authn.Issuer

	engine *gin.Engine
}

// NewServer builds the gin engine. authEnabled gates every /admin route
// (stats, pool/close, monitor/ws) behind a Bearer token verified by issuer;
// /healthz and /metrics stay open. issuer may be nil when auth is disabled.
func NewServer(disp *dispatcher.Dispatcher, registry *pool.Registry, statsTable *stats.Table, authEnabled bool, issuer *authn.Issuer) *Server {
	s := &Server{Dispatch: disp, Registry: registry, Stats: statsTable, AuthEnabled: authEnabled, Issuer: issuer}
	s.build()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) build() {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(logger.GinLogger(), logger.GinRecovery(true))

	g.GET("/healthz", s.handleHealthz)
	g.GET("/metrics", gin.WrapH(stats.Handler()))

	adminGroup := g.Group("/admin")
	if s.AuthEnabled {
		adminGroup.Use(s.jwtMiddleware())
	}
	adminGroup.GET("/stats", s.handleStats)
	adminGroup.POST("/pool/close", s.handlePoolClose)
	adminGroup.GET("/monitor/ws", s.handleMonitorWS)

	s.engine = g
}

func (s *Server) jwtMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "Authorization header format must be Bearer {token}")
			c.Abort()
			return
		}
		if s.Issuer == nil {
			response.ServerError(c, "admin auth misconfigured")
			c.Abort()
			return
		}
		if _, err := s.Issuer.Parse(parts[1]); err != nil {
			response.Unauthorized(c, "invalid token: "+err.Error())
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	resp := s.Dispatch.Dispatch(ipcproto.Request{Action: ipcproto.ActionHealthCheck})
	result, _ := resp.Data.(ipcproto.HealthResult)
	status := http.StatusOK
	if result.Status == ipcproto.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, result)
}

func (s *Server) handleStats(c *gin.Context) {
	resp := s.Dispatch.Dispatch(ipcproto.Request{Action: ipcproto.ActionGetStats})
	response.Success(c, "ok", resp.Data)
}

func (s *Server) handlePoolClose(c *gin.Context) {
	var body struct {
		Host string `json:"host" binding:"required"`
		Port int    `json:"port" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	s.Dispatch.Dispatch(ipcproto.Request{Action: ipcproto.ActionCloseConnection, Host: body.Host, Port: body.Port})
	response.Success(c, "closed", nil)
}

// monitorTick is the interval between live-stats frames pushed to
// `poolctl monitor` subscribers.
const monitorTick = 2 * time.Second
