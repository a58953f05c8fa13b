package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/sugawarayuuta/sonnet"
	"google.golang.org/grpc/codes"

	"github.com/cartridge/replay/internal/checkpoint"
	"github.com/cartridge/replay/internal/middleware"
	"github.com/cartridge/replay/internal/service"
	replayv1 "github.com/cartridge/replay/pkg/replayv1"
)

const maxBody = 4 * 1024

// Server exposes the admin HTTP API of the replay service.
type Server struct {
	svc      *service.ReplayService
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
}

// NewServer constructs a Server instance.
func NewServer(svc *service.ReplayService, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	return &Server{svc: svc, gatherer: gatherer, logger: logger}
}

// Routes builds the HTTP router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CorrelationID)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Put("/beta", s.handleSetBeta)
		r.Get("/checkpoints", s.handleListCheckpoints)
		r.Post("/checkpoints", s.handleCreateCheckpoint)
		r.Post("/checkpoints/{checkpointID}/restore", s.handleRestore)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.GetStats(r.Context(), &replayv1.GetStatsRequest{})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSetBeta(w http.ResponseWriter, r *http.Request) {
	var payload replayv1.SetBetaRequest
	if err := s.decode(w, r, &payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid beta payload")
		return
	}
	resp, err := s.svc.SetBeta(r.Context(), &payload)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCheckpoints(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	infos, err := s.svc.ListCheckpoints(r.Context(), limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleCreateCheckpoint(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.SaveCheckpoint(r.Context(), checkpoint.TriggerManual)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.Restore(r.Context(), chi.URLParam(r, "checkpointID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return sonnet.Unmarshal(data, v)
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch service.Code(err) {
	case codes.InvalidArgument, codes.OutOfRange:
		s.writeError(w, http.StatusBadRequest, err.Error())
	case codes.NotFound:
		s.writeError(w, http.StatusNotFound, err.Error())
	case codes.FailedPrecondition:
		s.writeError(w, http.StatusConflict, err.Error())
	case codes.DataLoss, codes.Internal:
		s.logger.Error().Err(err).Msg("request failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	data, err := sonnet.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
		return
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		s.logger.Error().Err(err).Msg("failed to write response")
	}
}
