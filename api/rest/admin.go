// Package rest exposes the operator HTTP API: session login against the
// configured admin key, then presence and queue inspection behind JWT auth.
package rest

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/ayasaki/udpchat/audit"
	"github.com/ayasaki/udpchat/cache"
	"github.com/ayasaki/udpchat/config"
	mw "github.com/ayasaki/udpchat/middleware"
	"github.com/ayasaki/udpchat/presence"
	"github.com/ayasaki/udpchat/scheduler"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// QueueStats reports dispatcher load for the status endpoint.
type QueueStats interface {
	QueueDepth() int
	Dropped() uint64
}

// AdminHandler handles the operator endpoints. Routes other than Login must
// be protected by the Auth middleware.
type AdminHandler struct {
	cfg    config.AdminConfig
	reg    *presence.Registry
	stats  QueueStats
	audit  *audit.Service
	cache  cache.Cache
	sched  *scheduler.Scheduler
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(cfg config.AdminConfig, reg *presence.Registry, stats QueueStats,
	auditSvc *audit.Service, c cache.Cache, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		cfg:    cfg,
		reg:    reg,
		stats:  stats,
		audit:  auditSvc,
		cache:  c,
		sched:  sched,
		logger: logger,
	}
}

type adminLoginRequest struct {
	AdminKey string `json:"admin_key" binding:"required"`
}

// Login handles POST /admin/login: admin key in, session JWT out.
func (h *AdminHandler) Login(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.cfg.AdminKey == "" ||
		subtle.ConstantTimeCompare([]byte(req.AdminKey), []byte(h.cfg.AdminKey)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key"})
		return
	}

	token, err := mw.GenerateToken(mw.RoleAdmin, h.cfg.JWTSecret, h.cfg.JWTTTL)
	if err != nil {
		h.logger.Error("token generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := h.cache.Set(c.Request.Context(), mw.SessionKeyPrefix+token, "1", h.cfg.JWTTTL); err != nil {
		h.logger.Error("session store failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_in": int(h.cfg.JWTTTL.Seconds())})
}

// Status handles GET /admin/status.
func (h *AdminHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"online":          h.reg.Count(),
		"queue_depth":     h.stats.QueueDepth(),
		"dropped_tasks":   h.stats.Dropped(),
		"scheduler_tasks": h.sched.ListTickers(),
	})
}

// Online handles GET /admin/online.
func (h *AdminHandler) Online(c *gin.Context) {
	entries := h.reg.Snapshot()
	type onlineInfo struct {
		UserID   int64     `json:"user_id"`
		Addr     string    `json:"addr"`
		LastSeen time.Time `json:"last_seen"`
	}
	result := make([]onlineInfo, 0, len(entries))
	for _, e := range entries {
		result = append(result, onlineInfo{
			UserID:   e.UserID,
			Addr:     e.Addr.String(),
			LastSeen: e.LastSeen,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": result, "count": len(result)})
}

// Kick handles POST /admin/kick/:id: forced presence removal.
func (h *AdminHandler) Kick(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if h.reg.Lookup(userID) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not online"})
		return
	}
	h.reg.MarkOffline(userID)
	h.logger.Info("admin kicked user", zap.Int64("user_id", userID))
	h.audit.Log(audit.Entry{
		TraceID: mw.GetTraceID(c),
		UserID:  &userID,
		Action:  "admin_kick",
		Addr:    c.ClientIP(),
	})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Audit handles GET /admin/audit?limit=N.
func (h *AdminHandler) Audit(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	logs, err := h.audit.Recent(limit)
	if err != nil {
		h.logger.Error("audit query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": logs, "count": len(logs)})
}
