// Package server exposes the query helpers over HTTP for `rowx serve`.
//
// Every client is fully trusted. /query, /one and /all run the posted SQL
// as-is, and the table and column names in /tables paths are placed into
// statements unquoted. There is no authentication; keep the listener on
// loopback or behind a proxy that does access control.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/rowx/database"
	"github.com/koustreak/rowx/internal/config"
	"github.com/koustreak/rowx/internal/logger"
)

// Backend is the open database the server runs against.
// *connect.DB satisfies it.
type Backend interface {
	database.Handle
	Ping(ctx context.Context) error
	Classify(err error) error
}

// Server routes HTTP requests to the query helpers.
type Server struct {
	db           Backend
	helpers      *database.Helpers
	log          *logger.Logger
	queryTimeout time.Duration
	router       chi.Router
}

// New builds a Server. queryTimeout bounds every database call; zero means
// the request context alone decides.
func New(db Backend, log *logger.Logger, queryTimeout time.Duration) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		db:           db,
		helpers:      database.New(database.WithDiagnostics(log)),
		log:          log,
		queryTimeout: queryTimeout,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Post("/query", s.handleQuery)
	r.Post("/one", s.handleOne)
	r.Post("/all", s.handleAll)

	r.Get("/tables", s.handleTables)
	r.Route("/tables/{table}", func(r chi.Router) {
		r.Get("/", s.handleTable)
		r.Post("/", s.handleIns)
		r.Get("/{column}/{value}", s.handleSel)
		r.Patch("/{column}/{value}", s.handleUpd)
		r.Delete("/{column}/{value}", s.handleDel)
	})

	return r
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully within cfg.ShutdownTimeout.
func (s *Server) Run(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoWith("http server listening", map[string]interface{}{"addr": cfg.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	s.log.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// dbContext applies the per-query deadline.
func (s *Server) dbContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}
	return context.WithCancel(ctx)
}
