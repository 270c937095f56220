package models

import "time"

// Detection is a single kept object, bbox is [x1, y1, x2, y2] in pixels.
type Detection struct {
	BBox  [4]float32 `json:"bbox"`
	Score float32    `json:"score"`
	Label int        `json:"label"`
}

type InferenceResult struct {
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Detections []Detection `json:"detections"`
}

// Candidate is a raw row of model output before filtering.
type Candidate struct {
	Box   [4]float32
	Score float32
	Label int64
}

type ProcessingTimings struct {
	RequestID   string
	ImageDecode time.Duration
	Preprocess  time.Duration
	Inference   time.Duration
	Postprocess time.Duration
	Total       time.Duration
}
