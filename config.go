package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/Tutortoise/microplastic-detection-service/detections"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DefaultModelPath     = "saved_models/microplastic_fasterrcnn.onnx"
	DefaultMaxUploadSize = 10 * 1024 * 1024
	DefaultMaxDimension  = 10000
)

var (
	DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}
	DefaultMIMETypes  = []string{"image/jpeg", "image/png", "image/bmp", "image/webp"}
)

type Config struct {
	Addr         string
	ModelPath    string
	LibraryPath  string
	ForceCPU     bool
	Threads      int
	Debug        bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	ScoreThreshold    float32
	MaxUploadSize     int64
	MaxDimension      int
	AllowedExtensions []string
	AllowedMIMETypes  []string
	CORSOrigins       []string
}

func defaultConfig() *Config {
	return &Config{
		Addr:              ":8000",
		ModelPath:         DefaultModelPath,
		LibraryPath:       detections.DefaultLibraryPath(),
		Threads:           runtime.NumCPU(),
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ScoreThreshold:    detections.DefaultScoreThreshold,
		MaxUploadSize:     DefaultMaxUploadSize,
		MaxDimension:      DefaultMaxDimension,
		AllowedExtensions: DefaultExtensions,
		AllowedMIMETypes:  DefaultMIMETypes,
		CORSOrigins:       []string{"*"},
	}
}

// LoadConfig reads .env (if present) and the environment.
func LoadConfig(log logrus.FieldLogger) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	cfg.ModelPath = getEnv("MODEL_PATH", cfg.ModelPath)
	cfg.LibraryPath = getEnv("ONNXRUNTIME_LIB", cfg.LibraryPath)
	cfg.ForceCPU = strings.EqualFold(getEnv("FORCE_CPU", "false"), "true")
	cfg.Debug = strings.EqualFold(getEnv("DEBUG", "false"), "true")

	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	cfg.Addr = getEnv("ADDR", cfg.Addr)

	if raw := os.Getenv("SCORE_THRESHOLD"); raw != "" {
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil || v < 0 || v > 1 {
			return nil, fmt.Errorf("invalid SCORE_THRESHOLD %q: want a number in [0,1]", raw)
		}
		cfg.ScoreThreshold = float32(v)
	}

	if raw := os.Getenv("ORT_THREADS"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid ORT_THREADS %q", raw)
		}
		cfg.Threads = v
	}

	origins, ok := os.LookupEnv("CORS_ORIGINS")
	if !ok {
		origins = "*"
	}
	cfg.CORSOrigins = parseOrigins(origins, log)
	return cfg, nil
}

// parseOrigins splits a comma list, falling back to "*" when nothing usable remains.
func parseOrigins(raw string, log logrus.FieldLogger) []string {
	if strings.TrimSpace(raw) == "*" {
		return []string{"*"}
	}

	origins := make([]string, 0)
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		log.Warn("CORS_ORIGINS environment variable is empty or invalid, falling back to '*'")
		return []string{"*"}
	}
	return origins
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
