// Package server carries the HTTP front of the application: a stdlib mux
// with method-qualified patterns, JSON helpers, and the middleware chain.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"

	"controlcenter/internal/config"
	logx "controlcenter/pkg/logx"
)

// Registrar is implemented by every domain handler set; each one mounts its
// routes on the shared mux.
type Registrar interface {
	Register(mux *http.ServeMux)
}

type Server struct {
	http *http.Server
	log  logx.Logger
}

func New(cfg config.ServerConfig, log logx.Logger, registrars ...Registrar) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	mux := http.NewServeMux()
	health := func(w http.ResponseWriter, _ *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
	mux.HandleFunc("GET /api/health", health)
	mux.HandleFunc("GET /healthz", health)
	for _, reg := range registrars {
		reg.Register(mux)
	}

	var handler http.Handler = mux
	handler = WithLogging(log, handler)
	handler = WithRequestID(handler)
	handler = WithRecover(log, handler)

	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}
	handler = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
	}).Handler(handler)

	addr := cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:8350"
	}
	// Durations were already validated by config.Validate; a parse error
	// here just falls back to the default.
	readTO, _ := config.ParseDurationOrDefault("server.read_timeout", cfg.ReadTimeout, 15*time.Second)
	writeTO, _ := config.ParseDurationOrDefault("server.write_timeout", cfg.WriteTimeout, 30*time.Second)
	idleTO, _ := config.ParseDurationOrDefault("server.idle_timeout", cfg.IdleTimeout, 60*time.Second)
	return &Server{
		http: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  readTO,
			WriteTimeout: writeTO,
			IdleTimeout:  idleTO,
		},
		log: log,
	}
}

func (s *Server) Addr() string { return s.http.Addr }

// Handler exposes the composed handler chain, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server listening", logx.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
