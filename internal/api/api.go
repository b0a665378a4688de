/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/spaceship_rental/internal/auth"
	"github.com/friendsincode/spaceship_rental/internal/cache"
	"github.com/friendsincode/spaceship_rental/internal/events"
	"github.com/friendsincode/spaceship_rental/internal/runs"
	"github.com/friendsincode/spaceship_rental/internal/version"
)

// Options configures the API. Runs, Cache, Bus and Limiter may be nil.
type Options struct {
	Runs    *runs.Service
	Cache   *cache.Cache
	Bus     *events.Bus
	Limiter *RateLimiter

	JWTSecret    []byte
	MaxBodyBytes int64
	MaxContracts int
}

// API exposes HTTP handlers.
type API struct {
	runs    *runs.Service
	cache   *cache.Cache
	bus     *events.Bus
	limiter *RateLimiter

	jwtSecret    []byte
	maxBodyBytes int64
	maxContracts int

	logger zerolog.Logger
}

// New creates the API router wrapper.
func New(opts Options, logger zerolog.Logger) *API {
	return &API{
		runs:         opts.Runs,
		cache:        opts.Cache,
		bus:          opts.Bus,
		limiter:      opts.Limiter,
		jwtSecret:    opts.JWTSecret,
		maxBodyBytes: opts.MaxBodyBytes,
		maxContracts: opts.MaxContracts,
		logger:       logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts API routes on provided router.
func (a *API) Routes(r chi.Router) {
	r.Get("/healthz", a.handleHealth)
	r.Get("/version", a.handleVersion)

	r.Group(func(pr chi.Router) {
		if a.limiter != nil {
			pr.Use(a.limiter.Middleware)
		}
		pr.Use(auth.RequireBearer(a.jwtSecret))

		pr.With(auth.RequireScope(auth.ScopeOptimize)).Post("/spaceship/optimize", a.handleOptimize)

		pr.Route("/api/v1/runs", func(r chi.Router) {
			r.Use(auth.RequireScope(auth.ScopeRunsRead))
			r.Get("/", a.handleRunsList)
			r.Get("/{runID}", a.handleRunsGet)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Current())
}

func (a *API) publish(eventType events.EventType, payload events.Payload) {
	if a.bus != nil {
		a.bus.Publish(eventType, payload)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func writeErrorDetail(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{"error": code, "detail": detail})
}
