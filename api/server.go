package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"earnapp/config"
	"earnapp/service"
)

// Deduper drops replayed postback transaction ids
type Deduper interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Server exposes the mini app API and the ad network postback endpoint
type Server struct {
	echo    *echo.Echo
	cfg     *config.Config
	users   service.UserService
	ledger  service.LedgerService
	deduper Deduper
}

// NewServer builds the HTTP server and registers all routes
func NewServer(cfg *config.Config, users service.UserService, ledger service.LedgerService, deduper Deduper) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:    e,
		cfg:     cfg,
		users:   users,
		ledger:  ledger,
		deduper: deduper,
	}

	e.GET("/healthz", s.handleHealth)
	e.GET("/api/user/:id", s.handleGetUser)
	e.POST("/api/watch_ad/:id", s.handleWatchAd)
	e.POST("/api/withdraw/:id", s.handleWithdraw)
	e.POST("/api/purchase_plan/:id", s.handlePurchasePlan)
	e.POST("/postback/:zone", s.handlePostback)

	return s
}

// Start begins serving on the configured address and blocks until shutdown
func (s *Server) Start() error {
	log.WithField("addr", s.cfg.ListenAddr).Info("Starting HTTP server")
	return s.echo.Start(s.cfg.ListenAddr)
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
