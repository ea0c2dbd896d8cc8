// Package api exposes the pipeline operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"drawcast/internal/draw"
	"drawcast/internal/ml"
	"drawcast/internal/prediction"
	"drawcast/internal/sequence"
	"drawcast/internal/storage"
	"drawcast/internal/training"
)

// Pipeline is the set of operations the server triggers.
type Pipeline interface {
	RunFullRetrain(ctx context.Context) (training.RetrainSummary, error)
	RunIncrementalLearn(ctx context.Context) (training.LearnSummary, error)
	GenerateNextDayPrediction(ctx context.Context) (prediction.Record, error)
	ModelInfo(ctx context.Context) (training.ModelInfo, error)
}

// PredictionReader serves stored predictions.
type PredictionReader interface {
	GetPrediction(ctx context.Context, date time.Time) (prediction.Record, error)
	ListPredictions(ctx context.Context) ([]prediction.Record, error)
}

// Options holds the optional handlers mounted next to the API.
type Options struct {
	Metrics http.Handler // mounted at /metrics
	Feed    http.Handler // mounted at /ws
}

// Server serves the pipeline API.
type Server struct {
	pipeline    Pipeline
	predictions PredictionReader
	router      *mux.Router
	server      *http.Server
	started     time.Time
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates the HTTP server listening on port.
func NewServer(pipeline Pipeline, predictions PredictionReader, port int, opts Options) *Server {
	s := &Server{
		pipeline:    pipeline,
		predictions: predictions,
		router:      mux.NewRouter(),
		started:     time.Now(),
	}

	r := s.router
	r.HandleFunc("/api/retrain", s.handleRetrain).Methods("POST")
	r.HandleFunc("/api/learn", s.handleLearn).Methods("POST")
	r.HandleFunc("/api/predict", s.handlePredict).Methods("POST")
	r.HandleFunc("/api/predictions", s.handleListPredictions).Methods("GET")
	r.HandleFunc("/api/predictions/{date}", s.handleGetPrediction).Methods("GET")
	r.HandleFunc("/api/model", s.handleModelInfo).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics).Methods("GET")
	}
	if opts.Feed != nil {
		r.Handle("/ws", opts.Feed).Methods("GET")
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // full retrains run inside the request
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler returns the routing handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	sum, err := s.pipeline.RunFullRetrain(r.Context())
	if err != nil {
		writeError(w, "retrain", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleLearn(w http.ResponseWriter, r *http.Request) {
	sum, err := s.pipeline.RunIncrementalLearn(r.Context())
	if err != nil {
		writeError(w, "learn", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	rec, err := s.pipeline.GenerateNextDayPrediction(r.Context())
	if err != nil {
		writeError(w, "predict", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	recs, err := s.predictions.ListPredictions(r.Context())
	if err != nil {
		writeError(w, "list predictions", err)
		return
	}
	if recs == nil {
		recs = []prediction.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetPrediction(w http.ResponseWriter, r *http.Request) {
	date, err := draw.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	rec, err := s.predictions.GetPrediction(r.Context(), date)
	if err != nil {
		writeError(w, "get prediction", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.pipeline.ModelInfo(r.Context())
	if err != nil {
		writeError(w, "model info", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sequence.ErrInsufficientHistory):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ml.ErrModelNotInitialized):
		return http.StatusConflict
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("op", op).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("op", op).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}
