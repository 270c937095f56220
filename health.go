package main

import (
	"net/http"
	"os"
	"sync/atomic"

	"github.com/gorilla/mux"
)

type RequestStats struct {
	predictions     atomic.Int64
	invalidInputs   atomic.Int64
	inferenceErrors atomic.Int64
	unavailable     atomic.Int64
}

type RootResponse struct {
	Message     string   `json:"message"`
	Status      string   `json:"status"`
	ModelLoaded bool     `json:"model_loaded"`
	Device      string   `json:"device"`
	Note        *string  `json:"note"`
	CPUFeatures []string `json:"cpu_features"`
}

type HealthResponse struct {
	Status        string  `json:"status"`
	ModelLoaded   bool    `json:"model_loaded"`
	ModelPath     string  `json:"model_path"`
	ModelExists   bool    `json:"model_exists"`
	Device        string  `json:"device"`
	CUDAAvailable bool    `json:"cuda_available"`
	LazyLoading   bool    `json:"lazy_loading"`
	Note          *string `json:"note"`
}

func (s *AppState) addMonitoringRoutes(r *mux.Router) {
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
}

func healthStatus(loaded bool) string {
	if loaded {
		return "healthy"
	}
	return "degraded"
}

func lazyNote(loaded bool, note string) *string {
	if loaded {
		return nil
	}
	return &note
}

func (s *AppState) handleRoot(w http.ResponseWriter, _ *http.Request) {
	loaded := s.Holder.Snapshot().Loaded()
	sendJSON(w, http.StatusOK, RootResponse{
		Message:     MsgRunning,
		Status:      healthStatus(loaded),
		ModelLoaded: loaded,
		Device:      string(s.Device),
		Note:        lazyNote(loaded, MsgLazyRoot),
		CPUFeatures: s.CPUFeatures,
	})
}

func (s *AppState) handleHealth(w http.ResponseWriter, _ *http.Request) {
	loaded := s.Holder.Snapshot().Loaded()
	_, err := os.Stat(s.Config.ModelPath)
	sendJSON(w, http.StatusOK, HealthResponse{
		Status:        healthStatus(loaded),
		ModelLoaded:   loaded,
		ModelPath:     s.Config.ModelPath,
		ModelExists:   s.Config.ModelPath != "" && err == nil,
		Device:        string(s.Device),
		CUDAAvailable: s.CUDAAvailable,
		LazyLoading:   true,
		Note:          lazyNote(loaded, MsgLazyHealth),
	})
}

func (s *AppState) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	snap := s.Holder.Snapshot()
	response := map[string]interface{}{
		"model_state":      snap.State.String(),
		"load_attempts":    snap.LoadAttempts,
		"load_waiters":     snap.Waiters,
		"load_duration_ms": snap.LoadDuration.Milliseconds(),
		"predictions":      s.Stats.predictions.Load(),
		"invalid_inputs":   s.Stats.invalidInputs.Load(),
		"inference_errors": s.Stats.inferenceErrors.Load(),
		"unavailable":      s.Stats.unavailable.Load(),
	}
	if snap.Err != nil {
		response["load_error"] = snap.Err.Error()
	}

	sendJSON(w, http.StatusOK, response)
}
