// Package httpapi is a thin, explicitly out-of-core façade over
// internal/engine: it translates JSON requests into boundary calls and
// boundary responses back into JSON, adding nothing of its own beyond
// routing, auth, and error-kind-to-status-code mapping.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rsbalchii/anchoros/internal/config"
	"github.com/rsbalchii/anchoros/internal/engine"
	"github.com/rsbalchii/anchoros/internal/logging"
)

var errMethodNotAllowed = errors.New("method not allowed")

// Server wraps an Engine behind net/http, optionally requiring a bearer
// API key from cfg.
type Server struct {
	engine *engine.Engine
	cfg    config.ServerConfig
	http   *http.Server
}

// New builds a Server over e, requiring cfg.APIKey (if non-empty) on every
// request via a Bearer Authorization header.
func New(e *engine.Engine, cfg config.ServerConfig) *Server {
	s := &Server{engine: e, cfg: cfg}
	s.http = &http.Server{Addr: addr(cfg), Handler: s.routes()}
	return s
}

func addr(cfg config.ServerConfig) string {
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		port = 8787
	}
	return host + ":" + strconv.Itoa(port)
}

// ListenAndServe blocks serving HTTP until ctx is cancelled, then
// gracefully shuts the server down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ingest", s.authenticated(s.handleIngest))
	mux.HandleFunc("/v1/search", s.authenticated(s.handleSearch))
	mux.HandleFunc("/v1/molecule_search", s.authenticated(s.handleMoleculeSearch))
	mux.HandleFunc("/v1/buckets", s.authenticated(s.handleBuckets))
	mux.HandleFunc("/v1/tags", s.authenticated(s.handleTags))
	mux.HandleFunc("/v1/watch_paths", s.authenticated(s.handleWatchPaths))
	mux.HandleFunc("/v1/atoms/quarantine", s.authenticated(s.handleQuarantine))
	mux.HandleFunc("/v1/atoms/restore", s.authenticated(s.handleRestore))
	mux.HandleFunc("/v1/atoms/content", s.authenticated(s.handleUpdateContent))
	return s.withRequestID(mux)
}

// withRequestID stamps every response with an X-Request-Id header so a
// caller can correlate it with the matching boundary log line.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticated(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != s.cfg.APIKey {
				writeError(w, http.StatusUnauthorized, errors.New("invalid or missing API key"))
				return
			}
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			logging.Get(logging.CategoryBoundary).Error("encode response: %v", err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusForError maps the engine's error-kind taxonomy onto HTTP status
// codes; an error with no *engine.Error wrapper is treated as fatal.
func statusForError(err error) int {
	var ee *engine.Error
	if !errors.As(err, &ee) {
		return http.StatusInternalServerError
	}
	switch ee.Kind {
	case engine.KindValidation:
		return http.StatusBadRequest
	case engine.KindNotFound:
		return http.StatusNotFound
	case engine.KindCancelled:
		return http.StatusRequestTimeout
	case engine.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
