// Package httpapi wires the HTTP surface of the economy service.
// Handlers stay thin: they validate input, call into the ledger cache
// and transaction log, and shape responses.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/minimize/economyd/internal/config"
	"github.com/minimize/economyd/internal/ledger"
	"github.com/minimize/economyd/internal/txlog"
)

// Server wires handlers and middleware using Chi.
type Server struct {
	cache *ledger.Cache
	txs   *txlog.Log
	cfg   config.Config
	log   *slog.Logger
	rt    *chi.Mux
	// stores are probed by readyz when they implement ReadyChecker.
	stores []any
}

// New constructs the HTTP server with routes and middleware. The stores
// are the persistence backends; readyz probes any that implement
// ReadyChecker.
func New(cache *ledger.Cache, txs *txlog.Log, cfg config.Config, logger *slog.Logger, stores ...any) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{
		cache:  cache,
		txs:    txs,
		cfg:    cfg,
		log:    logger,
		rt:     r,
		stores: stores,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any
// per-route middleware.
func (s *Server) routes() {
	// Balances
	s.rt.Get("/v1/balances/top", s.topBalances)
	s.rt.Get("/v1/balances/{id}", s.getBalance)
	s.rt.With(s.validatePay()).Post("/v1/pay", s.postPay)
	// Admin money surface
	s.rt.Put("/v1/admin/balances/{id}", s.adminSetBalance)
	s.rt.Post("/v1/admin/balances/{id}/give", s.adminGiveBalance)
	s.rt.Post("/v1/admin/balances/{id}/take", s.adminTakeBalance)
	// Faction points (gated by configuration)
	s.rt.Group(func(r chi.Router) {
		r.Use(s.factionGate)
		r.Get("/v1/factions/top", s.topFactions)
		r.Get("/v1/factions/{name}/points", s.getFactionPoints)
		r.Put("/v1/admin/factions/{name}/points", s.adminSetFactionPoints)
		r.Post("/v1/admin/factions/{name}/points/give", s.adminGiveFactionPoints)
		r.Post("/v1/admin/factions/{name}/points/take", s.adminTakeFactionPoints)
	})
	// Transaction history
	s.rt.Get("/v1/history/{target}", s.getHistory)
	// Operational endpoints (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())
}
