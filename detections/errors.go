package detections

import (
	"fmt"
)

// LoadErrorKind tells callers which step of a model load failed.
type LoadErrorKind int

const (
	KindUnknown LoadErrorKind = iota
	KindFileMissing
	KindUnreadable
	KindCorrupt
	KindArchitectureMismatch
)

func (k LoadErrorKind) String() string {
	switch k {
	case KindFileMissing:
		return "file_missing"
	case KindUnreadable:
		return "unreadable"
	case KindCorrupt:
		return "corrupt"
	case KindArchitectureMismatch:
		return "architecture_mismatch"
	default:
		return "unknown"
	}
}

type LoadError struct {
	Kind LoadErrorKind
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	var msg string
	switch e.Kind {
	case KindFileMissing:
		msg = "Model weights file not found: " + e.Path
	case KindUnreadable:
		msg = "Model weights file is not readable: " + e.Path
	case KindCorrupt:
		msg = "Failed to load weights file (may be corrupted)"
	case KindArchitectureMismatch:
		msg = "Weights do not match model architecture"
	default:
		msg = "Unexpected error loading model"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func newLoadError(kind LoadErrorKind, path string, err error) *LoadError {
	return &LoadError{Kind: kind, Path: path, Err: err}
}
