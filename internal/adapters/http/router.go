package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/adapters/signal"
	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/app"
	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/config"
	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/domain"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware gives every browser a stable token so reconnects
// keep the same rate-limit bucket.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, orch *app.Orchestrator, gate *app.AdmissionGate) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ScreenShareSessions", store))
	r.Use(ClientTokenMiddleware())

	started := time.Now()

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "WebRTC Signaling Server")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"connections": gate.Active(),
			"uptime":      time.Since(started).Seconds(),
			"environment": cfg.Mode,
		})
	})

	r.GET("/stats", func(c *gin.Context) {
		// Only exposed in release mode when auth is off, matching the
		// health/stats split of the deployment this serves.
		if cfg.Mode == "release" && cfg.AuthEnabled {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		hosts := orch.Registry.ListByRole(domain.RoleHost)
		clients := orch.Registry.ListByRole(domain.RoleClient)
		hostIDs := make([]string, 0, len(hosts))
		for _, h := range hosts {
			hostIDs = append(hostIDs, h.ClientID)
		}
		clientIDs := make([]string, 0, len(clients))
		for _, cl := range clients {
			clientIDs = append(clientIDs, cl.ClientID)
		}
		c.JSON(http.StatusOK, gin.H{
			"totalConnections": gate.Active(),
			"activeCalls":      orch.Calls.ActiveCount(),
			"hosts":            gin.H{"count": len(hostIDs), "ids": hostIDs},
			"clients":          gin.H{"count": len(clientIDs), "ids": clientIDs},
		})
	})

	api := r.Group("/api")

	api.GET("/webrtc-config", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"iceServers": cfg.ICEServers})
	})

	ctl := signal.NewSignalWSController(orch, gate, cfg)
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	return r
}
