// Package server wires the alert engine's stores, workers, and HTTP surface
// together.
package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/pawradar/pawradar/internal/alert"
	"github.com/pawradar/pawradar/internal/dispatch"
	"github.com/pawradar/pawradar/internal/handler"
	"github.com/pawradar/pawradar/internal/middleware"
	"github.com/pawradar/pawradar/internal/push"
	"github.com/pawradar/pawradar/internal/store"
	ws "github.com/pawradar/pawradar/internal/websocket"
)

// Config carries everything the engine needs beyond the database handle.
type Config struct {
	AuthSecret      []byte  // HS256 secret shared with the external auth service
	GatewayEndpoint string  // mobile push gateway URL; empty disables mobile sends
	GatewayToken    string  // optional gateway access token
	VAPIDPublicKey  string  // web push keys; empty disables web sends
	VAPIDPrivateKey string
	VAPIDSubscriber string // mailto: contact for the push service
	MaxRadiusMeters float64
	Freshness       time.Duration
	Dispatch        dispatch.Config
}

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	scheduler   *dispatch.Scheduler
	locationH   *handler.LocationHandler
	preferenceH *handler.PreferenceHandler
	tokenH      *handler.TokenHandler
	eventH      *handler.EventHandler
	adminH      *handler.AdminHandler
	authSecret  []byte
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	locationStore := store.NewLocationStore(db)
	preferenceStore := store.NewPreferenceStore(db)
	reportStore := store.NewReportStore(db)
	queueStore := store.NewQueueStore(db)
	tokenStore := store.NewTokenStore(db)

	var mobile *push.Client
	if cfg.GatewayEndpoint != "" {
		mobile = push.NewClient(cfg.GatewayEndpoint, cfg.GatewayToken)
	}
	var web *push.WebSender
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		web = push.NewWebSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber)
	}

	worker := dispatch.NewWorker(queueStore, tokenStore, gatewayOrNil(mobile), webOrNil(web), logger.With("component", "dispatch"))
	scheduler := dispatch.NewScheduler(worker, queueStore, hub, cfg.Dispatch, logger.With("component", "scheduler"))

	finder := alert.NewFinder(locationStore, cfg.Freshness)
	enqueuer := alert.NewEnqueuer(finder, queueStore, hub, scheduler.Notify, cfg.MaxRadiusMeters, logger.With("component", "enqueuer"))

	return &Server{
		db:          db,
		hub:         hub,
		scheduler:   scheduler,
		locationH:   handler.NewLocationHandler(locationStore, logger.With("component", "location")),
		preferenceH: handler.NewPreferenceHandler(preferenceStore, logger.With("component", "preference")),
		tokenH:      handler.NewTokenHandler(tokenStore, web, logger.With("component", "token")),
		eventH:      handler.NewEventHandler(reportStore, enqueuer, logger.With("component", "event")),
		adminH:      handler.NewAdminHandler(reportStore, queueStore, enqueuer, scheduler, logger.With("component", "admin")),
		authSecret:  cfg.AuthSecret,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// gatewayOrNil keeps a typed-nil *push.Client out of the worker's interface
// field.
func gatewayOrNil(c *push.Client) dispatch.MobileGateway {
	if c == nil {
		return nil
	}
	return c
}

func webOrNil(s *push.WebSender) dispatch.WebGateway {
	if s == nil {
		return nil
	}
	return s
}

// Scheduler exposes the dispatch scheduler for lifecycle management.
func (s *Server) Scheduler() *dispatch.Scheduler {
	return s.scheduler
}

// RateLimiter exposes the limiter for periodic cleanup.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)

	authed := http.NewServeMux()
	authed.Handle("PUT /api/location", s.rateLimited(s.locationH.Upsert))
	authed.HandleFunc("GET /api/location", s.locationH.Get)
	authed.HandleFunc("DELETE /api/location", s.locationH.Delete)
	authed.HandleFunc("GET /api/alert-preferences", s.preferenceH.Get)
	authed.HandleFunc("PUT /api/alert-preferences", s.preferenceH.Update)
	authed.Handle("POST /api/push/tokens", s.rateLimited(s.tokenH.Register))
	authed.HandleFunc("DELETE /api/push/tokens", s.tokenH.Unregister)
	authed.HandleFunc("GET /api/push/vapid-key", s.tokenH.VAPIDKey)

	operator := http.NewServeMux()
	operator.HandleFunc("POST /api/events/report-created", s.eventH.ReportCreated)
	operator.HandleFunc("POST /api/admin/sweep", s.adminH.Sweep)
	operator.HandleFunc("POST /api/admin/reports/{id}/enqueue", s.adminH.ForceEnqueue)
	operator.HandleFunc("GET /api/admin/stats", s.adminH.Stats)
	operator.Handle("GET /api/ws", ws.Handler(s.hub, s.logger.With("component", "ws_handler")))
	authed.Handle("/api/events/", middleware.RequireOperator(operator))
	authed.Handle("/api/admin/", middleware.RequireOperator(operator))
	authed.Handle("/api/ws", middleware.RequireOperator(operator))

	requireUser := middleware.RequireUser(s.authSecret)
	mux.Handle("/", requireUser(authed))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	keyFunc := middleware.RealIP
	return middleware.RateLimit(s.rateLimiter, keyFunc, 60, time.Minute)(h)
}
