package http

import (
	"context"

	"github.com/dkeye/Vision/internal/adapters/signal"
	"github.com/dkeye/Vision/internal/app/orch"
	"github.com/dkeye/Vision/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("VisionSessions", store))

	r.GET("/", healthHandler(o.Registry))
	r.GET("/status", statusHandler(o.Registry))

	ctl := signal.NewSignalWSController(o, cfg.ReadLimit)
	r.GET("/ws/:client_id", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("id", c.Param("client_id")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
