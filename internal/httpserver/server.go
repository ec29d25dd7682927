package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/blackmichael/space-feeds/internal/config"
	"github.com/blackmichael/space-feeds/internal/domain"
)

const (
	userIDHeader    = "X-User-ID"
	requestIDHeader = "X-Request-ID"
)

// Server is the HTTP server that serves the explore API and the like
// stream.
type Server struct {
	cfg         *config.Config
	feedService *domain.FeedService
	likeStream  http.Handler
	logger      *slog.Logger
	httpServer  *http.Server
}

// NewServer creates a new HTTP server with the given feed service. The
// likeStream handler serves the websocket endpoint.
func NewServer(cfg *config.Config, feedService *domain.FeedService, likeStream http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		cfg:         cfg,
		feedService: feedService,
		likeStream:  likeStream,
		logger:      logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/explore", s.handleExplore)
	mux.HandleFunc("GET /api/explore/seed", s.handleSeed)
	mux.HandleFunc("GET /api/apod", s.handlePictureOfDay)
	mux.HandleFunc("GET /api/hazard", s.handleHazard)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/feeds/trending", s.handleTrending)
	mux.HandleFunc("GET /api/feeds/popular", s.handlePopular)
	mux.HandleFunc("GET /api/posts/{id}", s.handlePost)
	mux.HandleFunc("POST /api/posts/{id}/like", s.handleToggleLike)
	mux.HandleFunc("GET /api/likes/counts", s.handleLikeCounts)
	mux.HandleFunc("GET /api/profile", s.handleProfile)
	mux.HandleFunc("PUT /api/profile", s.handleUpdateProfile)
	if likeStream != nil {
		mux.Handle("GET /ws/likes", likeStream)
	}

	// WriteTimeout stays unset so websocket connections are not cut off.
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           withLogging(logger, mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the routed handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

// writeDomainError maps a service error onto a status code and logs
// anything that is not the caller's fault.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrUserRequired):
		writeError(w, http.StatusUnauthorized, "Unauthorized", "X-User-ID header is required")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
	case errors.Is(err, domain.ErrPostNotFound):
		writeError(w, http.StatusNotFound, "NotFound", "post not found")
	case errors.Is(err, domain.ErrAuthFailed):
		s.logger.Error(op+" failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, "UpstreamAuthFailed", "upstream rejected the API key")
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		s.logger.Error(op+" failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, "UpstreamUnavailable", "upstream service unavailable")
	default:
		s.logger.Error(op+" failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "internal error")
	}
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrade take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}
