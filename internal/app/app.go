package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/config"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/db"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/http/api/admin"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/http/api/front"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/identity"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/ledger"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/logging"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/metrics"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/payments"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/ratelimit"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/security"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/session"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/store"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/watcher"
	"gorm.io/gorm"
)

const healthCheckTimeout = 2 * time.Second

// Server is a fully wired API server.
type Server struct {
	Config   config.Config
	DB       *gorm.DB
	Router   *gin.Engine
	Sessions *session.Manager
	Ledger   *ledger.Engine
	Payments *payments.Service
	Limiter  *ratelimit.Manager

	settings *watcher.SettingsWatcher
}

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.Config) error {
	conn, errOpen := db.Open(cfg.DSN())
	if errOpen != nil {
		return errOpen
	}
	defer func() { _ = db.Close(conn) }()
	return db.Migrate(conn.WithContext(ctx))
}

// NewServer opens the database, runs migrations and wires every component.
// The settings watcher starts polling under ctx.
func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	conn, errOpen := db.Open(cfg.DSN())
	if errOpen != nil {
		return nil, errOpen
	}
	srv, errBuild := buildServer(ctx, cfg, conn)
	if errBuild != nil {
		_ = db.Close(conn)
		return nil, errBuild
	}
	return srv, nil
}

func buildServer(ctx context.Context, cfg config.Config, conn *gorm.DB) (*Server, error) {
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return nil, errMigrate
	}

	settingsWatcher := watcher.NewSettingsWatcher(conn, 0)
	if errStart := settingsWatcher.Start(ctx); errStart != nil {
		return nil, fmt.Errorf("load settings: %w", errStart)
	}

	provider, errProvider := identity.New(cfg.Identity)
	if errProvider != nil {
		settingsWatcher.Stop()
		return nil, errProvider
	}
	codec, errCodec := security.NewTokenCodec(cfg.JWT.Secret, cfg.JWT.Issuer, nil)
	if errCodec != nil {
		settingsWatcher.Stop()
		return nil, errCodec
	}

	sessions := session.NewManager(buildStore(cfg.Session, conn), provider, codec, sessionConfig(cfg), nil)
	engine := ledger.NewEngine(conn, ledger.Config{MinWithdrawal: cfg.Ledger.MinWithdrawal})

	var paymentService *payments.Service
	if strings.TrimSpace(cfg.Payments.PaystackSecretKey) != "" {
		gateway, errGateway := payments.NewPaystackGateway(cfg.Payments.PaystackBaseURL, cfg.Payments.PaystackSecretKey, cfg.Payments.Timeout)
		if errGateway != nil {
			settingsWatcher.Stop()
			return nil, errGateway
		}
		paymentService = payments.NewService(gateway, engine, cfg.Payments)
	} else {
		log.Warn("payments disabled: paystack secret key not set")
	}

	limiter := ratelimit.NewManager(nil, nil, nil)

	srv := &Server{
		Config:   cfg,
		DB:       conn,
		Sessions: sessions,
		Ledger:   engine,
		Payments: paymentService,
		Limiter:  limiter,
		settings: settingsWatcher,
	}
	router, errRoutes := srv.routes()
	if errRoutes != nil {
		settingsWatcher.Stop()
		return nil, errRoutes
	}
	srv.Router = router

	if hasAdmin, errAdmin := HasAdmin(ctx, conn); errAdmin == nil && !hasAdmin {
		log.Warn("no admin account yet; run `eriggalive promote-admin -email <address>` after signing in")
	}
	return srv, nil
}

func buildStore(cfg config.SessionConfig, conn *gorm.DB) store.Store {
	users := store.NewGormStore(conn)
	if cfg.Store == config.SessionStoreMemory {
		log.Warn("session store is in-memory; sessions are lost on restart")
		return store.Combine(users, store.NewMemoryStore())
	}
	return users
}

func sessionConfig(cfg config.Config) session.Config {
	return session.Config{
		MaxActiveSessions:   cfg.Session.MaxActive,
		SessionTTL:          cfg.Session.TTL,
		RememberMeTTL:       cfg.Session.RememberMeTTL,
		AccessTokenTTL:      cfg.JWT.Expiry,
		RefreshTokenTTL:     cfg.JWT.RefreshTTL,
		RotateRefreshTokens: cfg.Session.RotationEnabled(),
		StartingBalance:     cfg.Ledger.StartingBalance,
	}
}

func (s *Server) routes() (*gin.Engine, error) {
	if mode := strings.TrimSpace(s.Config.Server.Mode); mode != "" {
		gin.SetMode(mode)
	}
	engine := gin.New()
	if errProxies := engine.SetTrustedProxies(s.Config.Server.TrustedProxies); errProxies != nil {
		return nil, fmt.Errorf("app: server.trusted-proxies: %w", errProxies)
	}
	engine.Use(gin.Recovery(), logging.RequestLogger(), metrics.Middleware())

	engine.GET("/healthz", s.healthz)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	front.RegisterFrontRoutes(engine, front.Deps{
		DB:       s.DB,
		Sessions: s.Sessions,
		Ledger:   s.Ledger,
		Payments: s.Payments,
		Limiter:  s.Limiter,
	})
	admin.RegisterAdminRoutes(engine, admin.Deps{
		DB:       s.DB,
		Sessions: s.Sessions,
		Ledger:   s.Ledger,
	})
	return engine, nil
}

func (s *Server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	sqlDB, errDB := s.DB.DB()
	if errDB == nil {
		errDB = sqlDB.PingContext(ctx)
	}
	if errDB != nil {
		log.WithError(errDB).Warn("healthz: database ping failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
}

// Close stops background work and releases the database.
func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	s.settings.Stop()
	return db.Close(s.DB)
}

// RunServer serves HTTP until ctx is cancelled, then shuts down gracefully.
func RunServer(ctx context.Context, cfg config.Config) error {
	srv, errServer := NewServer(ctx, cfg)
	if errServer != nil {
		return errServer
	}
	defer func() {
		if errClose := srv.Close(); errClose != nil {
			log.WithError(errClose).Warn("close server resources")
		}
	}()

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("eriggalive API listening on %s", httpServer.Addr)
		if errListen := httpServer.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
			errCh <- errListen
		}
		close(errCh)
	}()

	select {
	case errListen, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", errListen)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if errShutdown := httpServer.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("shutdown: %w", errShutdown)
	}
	return nil
}
