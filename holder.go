package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Tutortoise/microplastic-detection-service/detections"

	"github.com/sirupsen/logrus"
)

type ModelState int

const (
	StateUnloaded ModelState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s ModelState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unloaded"
	}
}

var ErrModelUnavailable = errors.New("model unavailable")

// UnavailableError is the cached result of a failed load.
type UnavailableError struct {
	Cause error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("Failed to load model: %v", e.Cause)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrModelUnavailable
}

// ModelHolder lazily loads one model and shares it with every caller.
// Loaded and Failed are terminal for the lifetime of the holder.
type ModelHolder struct {
	loader detections.Loader
	log    logrus.FieldLogger

	mu    sync.Mutex
	state ModelState
	model detections.Model
	err   error
	done  chan struct{}

	metrics *HolderMetrics
}

type HolderMetrics struct {
	mu           sync.RWMutex
	loadAttempts int64
	waiters      int64
	loadDuration time.Duration
}

type HolderSnapshot struct {
	State        ModelState
	LoadAttempts int64
	Waiters      int64
	LoadDuration time.Duration
	Err          error
}

func (s HolderSnapshot) Loaded() bool {
	return s.State == StateLoaded
}

func NewModelHolder(loader detections.Loader, log logrus.FieldLogger) *ModelHolder {
	return &ModelHolder{
		loader:  loader,
		log:     log,
		metrics: &HolderMetrics{},
	}
}

// Acquire returns the shared model, loading it on first use. Callers arriving
// while a load is in flight wait for its result instead of loading again.
func (h *ModelHolder) Acquire(ctx context.Context) (detections.Model, error) {
	h.mu.Lock()
	switch h.state {
	case StateLoaded:
		model := h.model
		h.mu.Unlock()
		return model, nil
	case StateFailed:
		err := h.err
		h.mu.Unlock()
		return nil, err
	case StateLoading:
		done := h.done
		h.mu.Unlock()
		return h.wait(ctx, done)
	}

	h.state = StateLoading
	h.done = make(chan struct{})
	h.mu.Unlock()

	h.metrics.mu.Lock()
	h.metrics.loadAttempts++
	h.metrics.mu.Unlock()

	start := time.Now()
	// the load outlives a cancelled first caller, waiters still need the result
	model, err := h.load(context.WithoutCancel(ctx))
	elapsed := time.Since(start)

	h.metrics.mu.Lock()
	h.metrics.loadDuration = elapsed
	h.metrics.mu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	defer close(h.done)

	if err != nil {
		h.state = StateFailed
		h.err = &UnavailableError{Cause: err}
		h.log.WithError(err).WithField("duration", elapsed).Error("Failed to load model")
		return nil, h.err
	}

	h.state = StateLoaded
	h.model = model
	h.log.WithField("duration", elapsed).Info("Model loaded successfully")
	return model, nil
}

func (h *ModelHolder) wait(ctx context.Context, done <-chan struct{}) (detections.Model, error) {
	h.metrics.mu.Lock()
	h.metrics.waiters++
	h.metrics.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateLoaded {
		return h.model, nil
	}
	return nil, h.err
}

func (h *ModelHolder) load(ctx context.Context) (model detections.Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			model = nil
			err = &detections.LoadError{Kind: detections.KindUnknown, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	model, err = h.loader.Load(ctx)
	if err == nil && model == nil {
		err = &detections.LoadError{Kind: detections.KindUnknown, Err: errors.New("loader returned no model")}
	}
	return model, err
}

// Snapshot reports the holder state without triggering a load.
func (h *ModelHolder) Snapshot() HolderSnapshot {
	h.mu.Lock()
	state, err := h.state, h.err
	h.mu.Unlock()

	h.metrics.mu.RLock()
	defer h.metrics.mu.RUnlock()
	return HolderSnapshot{
		State:        state,
		LoadAttempts: h.metrics.loadAttempts,
		Waiters:      h.metrics.waiters,
		LoadDuration: h.metrics.loadDuration,
		Err:          err,
	}
}

// Close releases a loaded model on shutdown, later acquires fail.
func (h *ModelHolder) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateLoaded || h.model == nil {
		return nil
	}
	err := h.model.Close()
	h.model = nil
	h.state = StateFailed
	h.err = &UnavailableError{Cause: errors.New("model closed")}
	return err
}
