// Package api exposes the dashboard pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vjranagit/ecoatlas/pkg/pipeline"
	"github.com/vjranagit/ecoatlas/pkg/render"
	"github.com/vjranagit/ecoatlas/pkg/resolver"
	"github.com/vjranagit/ecoatlas/pkg/types"
	"go.uber.org/zap"
)

// MetricLister lists the catalog for metric pickers
type MetricLister interface {
	All() []types.MetricDescriptor
}

// EntityDirectory lists entities and manages the identifier cache
type EntityDirectory interface {
	All(ctx context.Context) ([]types.Entity, error)
	Region(ctx context.Context, region string) ([]types.Entity, error)
	Invalidate()
	CacheStats() resolver.CacheStats
}

// MaxSessions bounds the per-client selection controllers kept in memory
const MaxSessions = 1024

// ClientIDHeader names the UI client; requests sharing it supersede each other
const ClientIDHeader = "X-Client-ID"

// Server implements the HTTP API server
type Server struct {
	dashboard *pipeline.Dashboard
	metrics   MetricLister
	entities  EntityDirectory
	logger    *zap.Logger
	addr      string
	timeout   time.Duration
	server    *http.Server

	mu       sync.Mutex
	sessions map[string]*pipeline.Controller
}

// NewServer creates a new API server
func NewServer(addr string, d *pipeline.Dashboard, metrics MetricLister, entities EntityDirectory, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		dashboard: d,
		metrics:   metrics,
		entities:  entities,
		logger:    logger,
		addr:      addr,
		timeout:   30 * time.Second,
		sessions:  make(map[string]*pipeline.Controller),
	}
}

// SetTimeout bounds read and write time per request
func (s *Server) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Handler returns the routed handler with request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/v1/entities", s.handleEntities)
	mux.HandleFunc("GET /api/v1/trend", s.handleView(pipeline.ViewTrend))
	mux.HandleFunc("GET /api/v1/compiled", s.handleView(pipeline.ViewCompiled))
	mux.HandleFunc("GET /api/v1/region", s.handleView(pipeline.ViewRegion))
	mux.HandleFunc("GET /api/v1/ranking", s.handleView(pipeline.ViewRanking))
	mux.HandleFunc("GET /api/v1/chart.png", s.handlePNG)
	mux.HandleFunc("GET /api/v1/chart.html", s.handleHTML)
	mux.HandleFunc("POST /api/v1/cache/invalidate", s.handleInvalidate)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.logRequests(mux)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.timeout,
		WriteTimeout: s.timeout,
	}

	return s.server.ListenAndServe()
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("Request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// errorResponse is the body of every non-2xx reply
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, types.ErrInvalidInput), errors.Is(err, types.ErrUnknownMetric):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrDataSource), errors.Is(err, types.ErrNoEntitySucceeded):
		return http.StatusBadGateway
	case errors.Is(err, types.ErrEntityNotFound), errors.Is(err, types.ErrEmptySeries):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Message: pipeline.Message(err), Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// selectionFrom reads a selection from query parameters. entity may repeat
// or hold a comma separated list.
func selectionFrom(r *http.Request, view string) (pipeline.Selection, error) {
	q := r.URL.Query()
	sel := pipeline.Selection{
		View:   view,
		Metric: q.Get("metric"),
		Region: q.Get("region"),
	}
	if sel.View == "" {
		sel.View = q.Get("view")
	}
	if sel.Metric == "" {
		return sel, fmt.Errorf("%w: metric is required", types.ErrInvalidInput)
	}

	for _, v := range q["entity"] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				sel.Entities = append(sel.Entities, name)
			}
		}
	}

	from, to := q.Get("from"), q.Get("to")
	if from != "" || to != "" {
		f, errF := strconv.Atoi(from)
		t, errT := strconv.Atoi(to)
		if errF != nil || errT != nil {
			return sel, fmt.Errorf("%w: from and to must both be years", types.ErrInvalidInput)
		}
		yr := types.YearRange{From: f, To: t}
		if err := yr.Validate(); err != nil {
			return sel, err
		}
		sel.Years = &yr
	}

	if y := q.Get("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return sel, fmt.Errorf("%w: bad year %q", types.ErrInvalidInput, y)
		}
		sel.Year = year
	} else if sel.View == pipeline.ViewRanking {
		return sel, fmt.Errorf("%w: year is required", types.ErrInvalidInput)
	}

	if n := q.Get("n"); n != "" {
		v, err := strconv.Atoi(n)
		if err != nil || v < 1 {
			return sel, fmt.Errorf("%w: n must be a positive integer", types.ErrInvalidInput)
		}
		sel.N = v
	}

	dir, err := types.ParseDirection(q.Get("direction"))
	if err != nil {
		return sel, err
	}
	sel.Direction = dir
	return sel, nil
}

func (s *Server) payload(r *http.Request, view string) (*types.ChartPayload, error) {
	sel, err := selectionFrom(r, view)
	if err != nil {
		return nil, err
	}

	// a client's new selection abandons its previous in-flight one
	if client := r.Header.Get(ClientIDHeader); client != "" {
		return s.controller(client).Select(r.Context(), sel)
	}
	return s.dashboard.Run(r.Context(), sel)
}

func (s *Server) controller(client string) *pipeline.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.sessions[client]
	if !ok {
		if len(s.sessions) >= MaxSessions {
			// forgotten clients only lose supersede tracking
			clear(s.sessions)
		}
		c = pipeline.NewController(s.dashboard)
		s.sessions[client] = c
	}
	return c
}

func (s *Server) handleView(view string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.payload(r, view)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// sizeFrom reads width and height, defaulting either when absent
func sizeFrom(r *http.Request) (render.Size, error) {
	size := render.DefaultSize
	for name, dst := range map[string]*int{"width": &size.Width, "height": &size.Height} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return size, fmt.Errorf("%w: %s must be a positive integer", types.ErrInvalidInput, name)
		}
		*dst = v
	}
	return size, size.Validate()
}

func (s *Server) handlePNG(w http.ResponseWriter, r *http.Request) {
	size, err := sizeFrom(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	p, err := s.payload(r, "")
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := render.PNG(w, p, size); err != nil {
		s.logger.Error("PNG render failed", zap.Error(err))
	}
}

func (s *Server) handleHTML(w http.ResponseWriter, r *http.Request) {
	p, err := s.payload(r, "")
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.HTML(w, p); err != nil {
		s.logger.Error("HTML render failed", zap.Error(err))
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.All())
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	var (
		entities []types.Entity
		err      error
	)
	if region := r.URL.Query().Get("region"); region != "" {
		entities, err = s.entities.Region(r.Context(), region)
	} else {
		entities, err = s.entities.All(r.Context())
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities)
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	s.entities.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "invalidated",
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"cache":  s.entities.CacheStats(),
	})
}
