package rest

import (
	"github.com/ayasaki/udpchat/cache"
	"github.com/ayasaki/udpchat/config"
	mw "github.com/ayasaki/udpchat/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NewRouter builds the operator API router. Everything except login sits
// behind the JWT session check.
func NewRouter(cfg config.AdminConfig, h *AdminHandler, c cache.Cache, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(mw.TraceID())
	r.Use(mw.Recovery(logger))
	r.Use(mw.Logger(logger))
	r.Use(mw.RateLimit(rate.Limit(10), 20))

	r.POST("/admin/login", h.Login)

	authed := r.Group("/admin", mw.Auth(cfg, c))
	authed.GET("/status", h.Status)
	authed.GET("/online", h.Online)
	authed.POST("/kick/:id", h.Kick)
	authed.GET("/audit", h.Audit)

	return r
}
