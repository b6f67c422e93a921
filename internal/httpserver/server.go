package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/controlcopy/capi-bridge/internal/auth"
	"github.com/controlcopy/capi-bridge/internal/config"
	"github.com/controlcopy/capi-bridge/internal/handlers"
	"github.com/controlcopy/capi-bridge/internal/store"
)

// NewRouter wires public endpoints and the operator surface.
// Public: /health, /ready, /events/* (browser-facing, CORS *)
// Operator: /ops/* (X-API-Key)
func NewRouter(cfg config.Config, eh *handlers.EventHandlers, st *store.PostgresStore) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	// The callers are browsers on other hosts; preflights must get a 204
	// with origin *, POST/OPTIONS, Content-Type.
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
	}))

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: the delivery log is the only backing dependency, and it is
	// optional. Without one the service is ready as soon as it serves.
	r.GET("/ready", func(c *gin.Context) {
		if st == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	handlers.RegisterEventRoutes(r, eh)

	// Operator group enforces X-API-Key.
	opsGroup := r.Group("/")
	opsGroup.Use(auth.APIKeyMiddleware(cfg.APIKeys))
	handlers.RegisterDeliveryRoutes(opsGroup, st)

	return r
}
