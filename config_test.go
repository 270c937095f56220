package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOrigins(t *testing.T) {
	log := testLogger()

	require.Equal(t, []string{"*"}, parseOrigins("*", log))
	require.Equal(t, []string{"*"}, parseOrigins("", log))
	require.Equal(t, []string{"*"}, parseOrigins(" , ,", log))
	require.Equal(t,
		[]string{"https://a.vercel.app", "https://b.vercel.app"},
		parseOrigins(" https://a.vercel.app ,https://b.vercel.app,", log),
	)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("MODEL_PATH", "/models/custom.onnx")
	t.Setenv("FORCE_CPU", "TRUE")
	t.Setenv("SCORE_THRESHOLD", "0.7")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig(testLogger())
	require.NoError(t, err)
	require.Equal(t, "/models/custom.onnx", cfg.ModelPath)
	require.True(t, cfg.ForceCPU)
	require.InDelta(t, 0.7, cfg.ScoreThreshold, 1e-6)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
	require.Equal(t, ":9090", cfg.Addr)
	require.Equal(t, int64(DefaultMaxUploadSize), cfg.MaxUploadSize)
	require.Equal(t, DefaultMaxDimension, cfg.MaxDimension)
}

func TestLoadConfig_InvalidThreshold(t *testing.T) {
	t.Setenv("SCORE_THRESHOLD", "1.5")

	_, err := LoadConfig(testLogger())
	require.Error(t, err)
}
