// Package api serves the operational HTTP endpoints: health, metrics and
// service statistics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/okian/vqs/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Server wires the operational HTTP routes.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
}

// NewServer creates a new API server. statsProvider may be nil, in which case
// /stats is not registered.
func NewServer(statsProvider StatsProvider) *Server {
	s := &Server{healthHandler: NewHealthHandler()}
	if statsProvider != nil {
		s.statsHandler = NewStatsHandler(statsProvider)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	if s.statsHandler != nil {
		mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	}
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

// Listener is a running HTTP server.
type Listener struct {
	srv  *http.Server
	addr string
	done chan error
	log  logger.Logger
}

// Listen binds addr and serves handler in the background until Shutdown.
func Listen(ctx context.Context, addr string, handler http.Handler, log logger.Logger) (*Listener, error) {
	if log == nil {
		log = logger.Discard()
	}
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %w", ErrServe, addr, err)
	}

	l := &Listener{
		srv: &http.Server{
			Handler:           handler,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		addr: ln.Addr().String(),
		done: make(chan error, 1),
		log:  log,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", l.addr))
		err := l.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
		l.done <- err
	}()
	return l, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() string {
	return l.addr
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (l *Listener) Shutdown(ctx context.Context) error {
	if err := l.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("%w: shutdown: %w", ErrServe, err)
	}
	if err := <-l.done; err != nil {
		return fmt.Errorf("%w: %w", ErrServe, err)
	}
	l.log.Info(ctx, "HTTP server stopped", logger.String("addr", l.addr))
	return nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
