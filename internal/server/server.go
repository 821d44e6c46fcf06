// Package server exposes the task-registry HTTP API consumed by the Task
// Wizard: read the registry index, and publish a task submission as a
// pull request.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/config"
	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/github"
	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/models"
	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/publish"
)

// publisher runs one publish invocation; satisfied by *publish.Orchestrator.
type publisher interface {
	Publish(ctx context.Context, req models.PublishRequest) (*publish.Outcome, error)
}

// Server holds the wired handlers and their collaborators.
type Server struct {
	cfg   config.Config
	pub   publisher
	cache *Cache
	close []func() error
}

// New wires a Server from configuration: a GitHub client and orchestrator
// for publishing, and a remote or local read source for the registry
// index.
func New(cfg config.Config, policy models.Policy) (*Server, error) {
	client := github.NewClient(github.Config{
		APIBase: cfg.Registry.APIBase,
		Owner:   cfg.Registry.Owner,
		Repo:    cfg.Registry.Repo,
		Token:   cfg.Registry.Token(),
	})

	s := &Server{
		cfg: cfg,
		pub: publish.NewOrchestrator(client, cfg.Registry.BaseBranch, cfg.Registry.IndexPath, policy),
	}

	ttl := time.Duration(cfg.Cache.TTLSec * float64(time.Second))
	if cfg.Registry.LocalPath != "" {
		indexPath := filepath.Join(cfg.Registry.LocalPath, cfg.Registry.IndexPath)
		s.cache = NewCache(ttl, localFetch(indexPath))

		stop, err := watchLocal(indexPath, s.cache)
		if err != nil {
			return nil, err
		}
		s.close = append(s.close, stop)
		slog.Info("serving registry from local checkout", "path", indexPath)
	} else {
		s.cache = NewCache(ttl, func(ctx context.Context) ([]byte, error) {
			content, _, err := client.ReadFile(ctx, cfg.Registry.IndexPath, cfg.Registry.BaseBranch)
			return content, err
		})
	}

	return s, nil
}

// Handler returns the routed HTTP handler with CORS and request logging
// applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /api/registry", s.handleRegistry)
	mux.HandleFunc("POST /api/tasks/publish", s.handlePublish)

	return withRequestLog(s.withCORS(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", s.cfg.Addr)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.shutdown()
		return err
	case err := <-errChan:
		s.shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) shutdown() {
	for _, fn := range s.close {
		if err := fn(); err != nil {
			slog.Error("closing resource", "error", err)
		}
	}
}
