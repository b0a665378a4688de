/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/spaceship_rental/internal/api"
	"github.com/friendsincode/spaceship_rental/internal/cache"
	"github.com/friendsincode/spaceship_rental/internal/config"
	"github.com/friendsincode/spaceship_rental/internal/db"
	"github.com/friendsincode/spaceship_rental/internal/eventbus"
	"github.com/friendsincode/spaceship_rental/internal/events"
	"github.com/friendsincode/spaceship_rental/internal/leadership"
	"github.com/friendsincode/spaceship_rental/internal/runs"
	"github.com/friendsincode/spaceship_rental/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error

	db        *gorm.DB
	cache     *cache.Cache
	bus       *events.Bus
	runs      *runs.Service
	pruner    *runs.Pruner
	forwarder *eventbus.Forwarder
	election  *leadership.Election
	api       *api.API

	bgCancel context.CancelFunc
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("spaceship-api"))
	router.Use(telemetry.MetricsMiddleware)
	if cfg.RequestTimeout > 0 {
		router.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if cfg.MetricsBind != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler())
		srv.metricsServer = &http.Server{
			Addr:              cfg.MetricsBind,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	if s.cfg.DBBackend != config.DatabaseNone {
		database, err := db.Connect(s.cfg)
		if err != nil {
			return err
		}
		s.DeferClose(func() error { return db.Close(database) })
		if err := db.Migrate(database); err != nil {
			return err
		}
		s.db = database
		s.runs = runs.NewService(database, s.bus, s.logger)

		if s.cfg.RunsRetention > 0 {
			pruner, err := runs.NewPruner(s.runs, s.cfg.RunsPruneSchedule, s.cfg.RunsRetention, s.logger)
			if err != nil {
				return err
			}
			s.pruner = pruner
			if s.cfg.LeaderElection {
				s.initElection()
			}
		}
	} else {
		s.logger.Info().Msg("run history disabled")
	}

	if s.cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		cacheCfg.ResultTTL = s.cfg.CacheTTL
		s.cache = cache.New(cacheCfg, s.logger)
		s.DeferClose(s.cache.Close)
	}

	publisher, err := s.newPublisher()
	if err != nil {
		s.logger.Warn().Err(err).Str("backend", string(s.cfg.EventBus)).Msg("event forwarding unavailable, continuing without it")
	} else if publisher != nil {
		s.forwarder = eventbus.NewForwarder(s.bus, publisher, eventbus.NodeID(), s.logger)
	}

	s.api = api.New(api.Options{
		Runs:         s.runs,
		Cache:        s.cache,
		Bus:          s.bus,
		Limiter:      api.NewRateLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst),
		JWTSecret:    []byte(s.cfg.JWTSigningKey),
		MaxBodyBytes: s.cfg.MaxBodyBytes(),
		MaxContracts: s.cfg.MaxContracts,
	}, s.logger)

	return nil
}

// initElection gates the pruner on a Redis lease. Without Redis every replica prunes.
func (s *Server) initElection() {
	client := redis.NewClient(&redis.Options{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPassword,
		DB:       s.cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("leader election unavailable, pruning on every replica")
		_ = client.Close()
		return
	}

	election, err := leadership.NewElection(client, leadership.DefaultConfig(), s.logger)
	if err != nil {
		s.logger.Warn().Err(err).Msg("leader election disabled")
		_ = client.Close()
		return
	}
	s.DeferClose(client.Close)
	s.election = election
	s.pruner.SetGate(election.IsLeader)
}

func (s *Server) newPublisher() (eventbus.Publisher, error) {
	switch s.cfg.EventBus {
	case config.EventBusNATS:
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		return eventbus.NewNATSPublisher(natsCfg, s.logger)
	case config.EventBusRedis:
		redisCfg := eventbus.DefaultRedisConfig()
		redisCfg.Addr = s.cfg.RedisAddr
		redisCfg.Password = s.cfg.RedisPassword
		redisCfg.DB = s.cfg.RedisDB
		return eventbus.NewRedisPublisher(redisCfg, s.logger)
	default:
		return nil, nil
	}
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// MetricsServer exposes the metrics server, nil when metrics share the API router.
func (s *Server) MetricsServer() *http.Server {
	return s.metricsServer
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	if s.pruner == nil && s.forwarder == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	if s.election != nil {
		s.election.Start(ctx)
	}
	if s.pruner != nil {
		s.pruner.Start()
	}
	if s.forwarder != nil {
		s.forwarder.Start(ctx)
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgCancel = nil

	if s.pruner != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		s.pruner.Stop(ctx)
		cancel()
	}
	if s.election != nil {
		s.election.Stop()
	}
	if s.forwarder != nil {
		if err := s.forwarder.Stop(); err != nil {
			s.logger.Warn().Err(err).Msg("event forwarder shutdown error")
		}
	}
}

func (s *Server) configureRoutes() {
	if s.cfg.MetricsBind == "" {
		s.router.Handle("/metrics", telemetry.Handler())
	}

	s.api.Routes(s.router)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found"}`))
	})
}
