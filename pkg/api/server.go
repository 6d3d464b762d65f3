package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/apembroke/switchboard/pkg/engine"
	"github.com/apembroke/switchboard/pkg/httputil"
	"github.com/apembroke/switchboard/pkg/middleware"
	"github.com/apembroke/switchboard/pkg/observability"
	"github.com/apembroke/switchboard/pkg/storage"
)

// Config wires the server's collaborators.
type Config struct {
	Backend  storage.Backend
	Registry *storage.Registry
	Engine   *engine.Engine
	Gate     *middleware.Gate
	Tokens   engine.TokenIssuer
	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Health   *observability.HealthChecker

	// RateLimiter guards the management plane when set.
	RateLimiter *middleware.RateLimiter

	// CORSOrigins for browser clients. Empty allows any origin.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies. Zero means 1 MiB.
	MaxBodyBytes int64
}

// Server is the HTTP surface of the service: management routes first, then
// the execution engine as the catch-all.
type Server struct {
	router  *mux.Router
	backend storage.Backend
	reg     *storage.Registry
	engine  *engine.Engine
	gate    *middleware.Gate
	tokens  engine.TokenIssuer
	log     *observability.Logger
	metrics *observability.Metrics
	health  *observability.HealthChecker
	handler http.Handler
}

const defaultMaxBodyBytes = 1 << 20

// NewServer builds the full routing table and middleware chain.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	s := &Server{
		router:  mux.NewRouter(),
		backend: cfg.Backend,
		reg:     cfg.Registry,
		engine:  cfg.Engine,
		gate:    cfg.Gate,
		tokens:  cfg.Tokens,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		health:  cfg.Health,
	}
	s.routes()

	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware(cfg.Logger),
		httputil.LoggingMiddleware(cfg.Logger),
		httputil.CORSMiddleware(cfg.CORSOrigins),
		httputil.MaxBytesMiddleware(cfg.MaxBodyBytes),
	}
	if cfg.Metrics != nil {
		chain = append(chain, httputil.MetricsMiddleware(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		chain = append(chain, cfg.RateLimiter.Handler)
	}
	s.handler = httputil.Chain(chain...)(s.router)
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() {
	// Operational routes.
	if s.health != nil {
		s.router.HandleFunc("/health", s.health.Liveness).Methods(http.MethodGet)
		s.router.HandleFunc("/ready", s.health.Readiness).Methods(http.MethodGet)
	}
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	// Management routes answer both with and without the /api prefix, like
	// the dynamic endpoints they manage.
	s.managementRoutes(s.router)
	s.managementRoutes(s.router.PathPrefix("/api").Subrouter())

	// Everything else belongs to the dynamic engine.
	if s.engine != nil {
		s.router.PathPrefix("/").Handler(s.engine)
	}
}

func (s *Server) managementRoutes(r *mux.Router) {
	// Platform account auth.
	r.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.Handle("/auth/me", s.gate.Handler(http.HandlerFunc(s.handleMe))).Methods(http.MethodGet)

	// Project and endpoint-definition management, all authenticated.
	manage := r.PathPrefix("/projects").Subrouter()
	manage.Use(s.gate.Handler)
	manage.HandleFunc("", s.handleListProjects).Methods(http.MethodGet)
	manage.HandleFunc("", s.handleCreateProject).Methods(http.MethodPost)
	manage.HandleFunc("/{id}", s.handleGetProject).Methods(http.MethodGet)
	manage.HandleFunc("/{id}", s.handleUpdateProject).Methods(http.MethodPut)
	manage.HandleFunc("/{id}", s.handleDeleteProject).Methods(http.MethodDelete)
	manage.HandleFunc("/{id}/endpoints", s.handleListEndpoints).Methods(http.MethodGet)
	manage.HandleFunc("/{id}/endpoints", s.handleCreateEndpoint).Methods(http.MethodPost)
	manage.HandleFunc("/{id}/generate-crud", s.handleGenerateCRUD).Methods(http.MethodPost)
	manage.HandleFunc("/{id}/endpoints/{endpointID}", s.handleUpdateEndpoint).Methods(http.MethodPut)
	manage.HandleFunc("/{id}/endpoints/{endpointID}", s.handleDeleteEndpoint).Methods(http.MethodDelete)
}

// invalidateCatalog is called after every catalog mutation so the next
// dynamic request re-resolves against fresh definitions.
func (s *Server) invalidateCatalog() {
	if s.engine != nil {
		s.engine.Invalidate()
	}
}
