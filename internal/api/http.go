// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the engine over HTTP: the read-only snapshot and
// export surfaces, the command endpoints, Prometheus metrics and health.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/aurastream/internal/diagnostics"
	"github.com/ManuGH/aurastream/internal/log"
	"github.com/ManuGH/aurastream/internal/snapshot"
	"github.com/ManuGH/aurastream/internal/store"
)

// Engine is the playback surface the API drives. Implemented by
// player.Machine.
type Engine interface {
	Load(trackID, trackURL string) error
	Play()
	Pause()
	Seek(sec float64)
	SetVolume(v float64)
	Skip()
	PrefetchNext(trackID, trackURL string)
	SetOnline(online bool)
	Snapshot() snapshot.Snapshot
}

// Config tunes the HTTP surface.
type Config struct {
	RateLimit  int           // command requests per window per client
	RateWindow time.Duration // sliding window for the command rate limit
	ExportPath string        // optional on-disk copy of the latest export
}

// Server is the HTTP API server.
type Server struct {
	engine Engine
	bridge *diagnostics.Bridge
	store  store.Store
	cfg    Config
	logger zerolog.Logger
}

// NewServer creates the API server. store may be nil; exports are then not
// persisted.
func NewServer(engine Engine, bridge *diagnostics.Bridge, st store.Store, cfg Config) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 30
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	return &Server{
		engine: engine,
		bridge: bridge,
		store:  st,
		cfg:    cfg,
		logger: log.WithComponent("api"),
	}
}

// Router builds the chi router with all routes and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/export", s.handleExport)

		r.Route("/commands", func(r chi.Router) {
			r.Use(RateLimit(s.cfg.RateLimit, s.cfg.RateWindow))
			r.Post("/load", s.handleLoad)
			r.Post("/play", s.handlePlay)
			r.Post("/pause", s.handlePause)
			r.Post("/seek", s.handleSeek)
			r.Post("/volume", s.handleVolume)
			r.Post("/skip", s.handleSkip)
			r.Post("/prefetch", s.handlePrefetch)
			r.Post("/online", s.handleOnline)
		})
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

// handleExport merges the snapshot with the debug-bridge payload, persists
// the document when a store is attached and returns it as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc := snapshot.ExportDocument{Snapshot: s.engine.Snapshot()}
	if s.bridge != nil {
		doc.Debug = s.bridge.GetMetrics()
	}

	if s.store != nil {
		if err := s.store.SaveExport(r.Context(), &doc); err != nil {
			s.logger.Warn().Err(err).Msg("persisting export failed")
		}
	}
	if s.cfg.ExportPath != "" {
		if err := snapshot.WriteFile(s.cfg.ExportPath, doc); err != nil {
			s.logger.Warn().Err(err).Str("path", s.cfg.ExportPath).Msg("writing export file failed")
		}
	}

	data, err := snapshot.Marshal(doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="aurastream-metrics.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type loadRequest struct {
	TrackID  string `json:"trackId"`
	TrackURL string `json:"trackUrl"`
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TrackID == "" || req.TrackURL == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "trackId and trackUrl are required")
		return
	}
	if err := s.engine.Load(req.TrackID, req.TrackURL); err != nil {
		writeError(w, http.StatusBadRequest, "load_rejected", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "loading"})
}

func (s *Server) handlePlay(w http.ResponseWriter, _ *http.Request) {
	s.engine.Play()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	s.engine.Pause()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type seekRequest struct {
	Position float64 `json:"position"` // seconds
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Position < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "position must not be negative")
		return
	}
	s.engine.Seek(req.Position)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type volumeRequest struct {
	Volume float64 `json:"volume"` // 0..1
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Volume < 0 || req.Volume > 1 {
		writeError(w, http.StatusBadRequest, "invalid_request", "volume must be within [0, 1]")
		return
	}
	s.engine.SetVolume(req.Volume)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSkip(w http.ResponseWriter, _ *http.Request) {
	s.engine.Skip()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePrefetch(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TrackID == "" || req.TrackURL == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "trackId and trackUrl are required")
		return
	}
	s.engine.PrefetchNext(req.TrackID, req.TrackURL)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "prefetching"})
}

type onlineRequest struct {
	Online bool `json:"online"`
}

func (s *Server) handleOnline(w http.ResponseWriter, r *http.Request) {
	var req onlineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.engine.SetOnline(req.Online)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, apiError{Error: code, Detail: detail})
}
