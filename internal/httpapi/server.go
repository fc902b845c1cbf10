package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/auth"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/types"
)

type Dependencies struct {
	Logger           *zap.Logger
	Addr             string
	HeartbeatService *service.HeartbeatService
	AccessService    *service.AccessService
	DashboardService *service.DashboardService

	// JWTSecret verifies consumer bearer tokens.
	JWTSecret string
	// StreamInterval is how often the dashboard stream re-reads the feed.
	StreamInterval time.Duration
}

type Server struct {
	httpServer       *http.Server
	logger           *zap.Logger
	router           chi.Router
	heartbeatService *service.HeartbeatService
	accessService    *service.AccessService
	dashboardService *service.DashboardService
	streamInterval   time.Duration
}

func NewServer(d Dependencies) *Server {
	s := &Server{
		logger:           d.Logger,
		heartbeatService: d.HeartbeatService,
		accessService:    d.AccessService,
		dashboardService: d.DashboardService,
		streamInterval:   d.StreamInterval,
	}
	if s.streamInterval <= 0 {
		s.streamInterval = 5 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(d.Logger))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethod, "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		// Device-facing.
		r.Post("/heartbeat", s.handleHeartbeat)
		r.Get("/points/{pointID}/liveness", s.handleLiveness)
		r.Post("/access_request", s.handleAccessRequest)

		// Consumer-facing.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(d.JWTSecret))
			r.With(requirePermission(auth.PermDashboardRead)).Get("/dashboard", s.handleDashboard)
			r.With(requirePermission(auth.PermDashboardRead)).Get("/dashboard/stream", s.handleDashboardStream)
			r.With(requirePermission(auth.PermEventsRead)).Get("/events", s.handleEvents)
		})
	})

	s.router = r
	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req types.HeartbeatRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	resp, err := s.heartbeatService.Record(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeResponse(w, r, http.StatusOK, resp)
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	pointID, err := strconv.ParseInt(chi.URLParam(r, "pointID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, service.ErrInvalidPointID.Error())
		return
	}

	resp, err := s.heartbeatService.Liveness(r.Context(), pointID)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeResponse(w, r, http.StatusOK, resp)
}

// handleAccessRequest answers 200 for both grants and denials.
func (s *Server) handleAccessRequest(w http.ResponseWriter, r *http.Request) {
	var req types.AccessRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	resp, err := s.accessService.Decide(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeResponse(w, r, http.StatusOK, resp)
}
