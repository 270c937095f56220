package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tutortoise/microplastic-detection-service/detections"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type AppState struct {
	Config        *Config
	Holder        *ModelHolder
	Validator     *ImageValidator
	Log           logrus.FieldLogger
	Stats         *RequestStats
	Device        detections.Device
	CUDAAvailable bool
	CPUFeatures   []string
}

func newLogger(debug bool) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	log.SetOutput(os.Stdout)
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// newAppState takes the device already resolved for the loader so /health
// reports the device inference actually runs on.
func newAppState(cfg *Config, loader detections.Loader, device detections.Device, cudaAvailable bool, log logrus.FieldLogger) *AppState {
	return &AppState{
		Config:        cfg,
		Holder:        NewModelHolder(loader, log),
		Validator:     NewImageValidator(cfg),
		Log:           log,
		Stats:         &RequestStats{},
		Device:        device,
		CUDAAvailable: cudaAvailable,
		CPUFeatures:   detections.CPUFeatures(),
	}
}

func (s *AppState) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestID, s.accessLog, s.recoverer)

	r.HandleFunc("/predict", handlePredict(s)).Methods(http.MethodPost)
	s.addMonitoringRoutes(r)

	return newCORS(s.Config.CORSOrigins).Handler(r)
}

func main() {
	log := newLogger(os.Getenv("DEBUG") == "true")

	cfg, err := LoadConfig(log)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	log.Infof("CORS configured with origins: %v", cfg.CORSOrigins)

	device, cudaAvailable := detections.ResolveDevice(cfg.ForceCPU, cfg.LibraryPath)
	loader := detections.NewORTLoader(detections.ORTConfig{
		ModelPath:      cfg.ModelPath,
		LibraryPath:    cfg.LibraryPath,
		Device:         device,
		IntraOpThreads: cfg.Threads,
		InterOpThreads: cfg.Threads,
	}, log)

	state := newAppState(cfg, loader, device, cudaAvailable, log)
	defer func() {
		if err := state.Holder.Close(); err != nil {
			log.WithError(err).Warn("Failed to release model")
		}
		if err := detections.DestroyEnvironment(); err != nil {
			log.WithError(err).Warn("Failed to destroy onnxruntime environment")
		}
	}()

	srv := &http.Server{
		Handler:      state.routes(),
		Addr:         cfg.Addr,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithFields(logrus.Fields{
			"addr":   srv.Addr,
			"device": state.Device,
			"model":  cfg.ModelPath,
		}).Info("Starting server, model loads on first /predict request")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
