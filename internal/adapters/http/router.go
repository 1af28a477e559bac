package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/okulov/huddle/internal/adapters/ws"
	"github.com/okulov/huddle/internal/app/orch"
	"github.com/okulov/huddle/internal/config"
	"github.com/okulov/huddle/internal/domain"
)

// ClientTokenMiddleware mints a stable per-browser token. Clients use it as
// their logical user id when registering their channels.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

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
	r.Use(sessions.Sessions("HuddleSessions", store))
	r.Use(ClientTokenMiddleware())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	ctl := &ws.Controller{Orch: o, ReadLimit: cfg.ReadLimit}
	api := r.Group("/api")
	for _, kind := range []domain.ChannelKind{domain.ChannelMain, domain.ChannelVideo, domain.ChannelScreen} {
		kind := kind
		api.GET("/ws/"+string(kind), func(c *gin.Context) {
			ctl.Handle(ctx, c, kind)
		})
	}

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
