// Package api is the thin HTTP surface over the actor service. Routing and
// auth stay here; all scheduling, crypto, and escalation logic lives below.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jimdaga/window-warmer/internal/actor"
	"github.com/jimdaga/window-warmer/internal/health"
	"github.com/jimdaga/window-warmer/internal/identity"
	"github.com/jimdaga/window-warmer/internal/throttle"
)

// NewRouter builds the Gin engine with all routes wired.
func NewRouter(svc *actor.Service, ident *identity.Client, counter *throttle.Counter, env string) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", gin.WrapF(health.Handler))

	authed := r.Group("/api")
	authed.Use(RequireAuth(ident), Throttle(counter))
	{
		authed.GET("/status", StatusHandler(svc))
		authed.PUT("/schedule", SetScheduleHandler(svc))
		authed.PUT("/credential", SetCredentialHandler(svc))
		authed.POST("/pause", TogglePauseHandler(svc))
		authed.DELETE("/account", DeleteAccountHandler(svc))
	}

	return r
}
