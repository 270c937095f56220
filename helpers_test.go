package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Tutortoise/microplastic-detection-service/detections"
	"github.com/Tutortoise/microplastic-detection-service/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	mu         sync.Mutex
	candidates []models.Candidate
	errs       []error
	calls      int
	closed     bool
}

func (m *fakeModel) Infer(input *detections.ImageTensor) ([]models.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return m.candidates, nil
}

func (m *fakeModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type fakeLoader struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	model   detections.Model
	err     error
	panic   bool
}

func (l *fakeLoader) Load(ctx context.Context) (detections.Model, error) {
	l.calls.Add(1)
	if l.started != nil {
		close(l.started)
	}
	if l.release != nil {
		<-l.release
	}
	if l.panic {
		panic("weights exploded")
	}
	return l.model, l.err
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := defaultConfig()
	cfg.ModelPath = t.TempDir() + "/missing.onnx"
	cfg.LibraryPath = ""
	return cfg
}

func newTestState(t *testing.T, loader detections.Loader) *AppState {
	t.Helper()
	return newAppState(testConfig(t), loader, detections.DeviceCPU, false, testLogger())
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func newUploadRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(state *AppState, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	state.routes().ServeHTTP(rec, req)
	return rec
}
