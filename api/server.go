package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lightlink-network/ll-bridge-collector/database/models"
)

// Reader is the read side of the bridge record store.
type Reader interface {
	GetDeposits(ctx context.Context, filter models.Filter, page models.Page) (*models.PaginatedResult, error)
	GetWithdrawals(ctx context.Context, filter models.Filter, page models.Page) (*models.PaginatedResult, error)
}

// API server
type Server struct {
	r     chi.Router
	log   *slog.Logger
	store Reader
	opts  ServerOpts
}

type ServerOpts struct {
	Logger *slog.Logger
	Store  Reader
	Port   string
	// Gatherer served on /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
}

// Create API server
func NewServer(opts ServerOpts) (*Server, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("api server requires a store")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		log:   opts.Logger,
		store: opts.Store,
		opts:  opts,
	}
	s.routes()

	return s, nil
}

// Starts HTTP server and blocks until ctx is done
func (s *Server) StartServer(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.opts.Port,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("📡 Server Started. API Server is now listening on http://localhost:" + s.opts.Port)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}

// Turns server into http server
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

// Wrap and format responses
type Response struct {
	StatusCode int         `json:"status_code"`
	Err        bool        `json:"error"`
	Response   interface{} `json:"response"`
}

// Returns JSON response to the API user. HTTP status code
// and data must be provided
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		fmt.Fprintf(w, "%s", err.Error())
	}
}

// Returns an error to the API user
func ERROR(w http.ResponseWriter, statusCode int, err error) {
	JSON(w, statusCode, Response{StatusCode: statusCode, Err: true, Response: err.Error()})
}
