package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apirest "github.com/ayasaki/udpchat/api/rest"
	"github.com/ayasaki/udpchat/audit"
	"github.com/ayasaki/udpchat/cache"
	"github.com/ayasaki/udpchat/chat"
	"github.com/ayasaki/udpchat/config"
	dbadapter "github.com/ayasaki/udpchat/db"
	"github.com/ayasaki/udpchat/model"
	"github.com/ayasaki/udpchat/presence"
	"github.com/ayasaki/udpchat/scheduler"
	"github.com/ayasaki/udpchat/server"
	"github.com/ayasaki/udpchat/social"
	"github.com/ayasaki/udpchat/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Admin.AdminKey == "" {
		logger.Warn("admin.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	st := store.New(db, logger)

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache ----
	c, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Presence / engine / router ----
	reg := presence.NewRegistry(logger)
	engine := social.NewEngine(st, reg, logger)

	var udpSrv *server.Server
	router := chat.NewRouter(st, reg, func(addr net.Addr, frame []byte) error {
		return udpSrv.Push(addr, frame)
	}, logger)

	// ---- UDP server ----
	udpSrv, err = server.New(cfg.Server, engine, router, reg, auditSvc, logger)
	if err != nil {
		log.Fatalf("udp server: %v", err)
	}
	udpSrv.Start()
	defer udpSrv.Stop()

	// ---- Periodic tasks ----
	if cfg.Presence.IdleTimeout > 0 {
		sched.AddTicker("presence_sweep", cfg.Presence.SweepInterval, func() {
			for _, id := range reg.SweepIdle(cfg.Presence.IdleTimeout) {
				logger.Info("idle session swept", zap.Int64("user_id", id))
			}
		})
	}
	sched.AddTicker("limiter_cleanup", 5*time.Minute, func() {
		udpSrv.CleanupLimiters()
	})

	// ---- Admin HTTP API ----
	var httpSrv *http.Server
	if cfg.Admin.ListenAddr != "" && cfg.Admin.AdminKey != "" {
		if !cfg.Server.Debug {
			gin.SetMode(gin.ReleaseMode)
		}
		adminH := apirest.NewAdminHandler(cfg.Admin, reg, udpSrv, auditSvc, c, sched, logger)
		httpSrv = &http.Server{
			Addr:    cfg.Admin.ListenAddr,
			Handler: apirest.NewRouter(cfg.Admin, adminH, c, logger),
		}
		go func() {
			logger.Info("admin api listening", zap.String("addr", cfg.Admin.ListenAddr))
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("admin api failed", zap.Error(err))
			}
		}()
	}

	// ---- Wait for shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			logger.Warn("admin api shutdown", zap.Error(err))
		}
	}
}
