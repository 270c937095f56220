package main

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/color"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

// 1x1 lossy WebP, x/image has no WebP encoder
const tinyWebP = "UklGRiIAAABXRUJQVlA4IBYAAAAwAQCdASoBAAEADsD+JaQAA3AAAAAA"

func requireInvalidInput(t *testing.T, err error) {
	t.Helper()
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr), "want *RequestError, got %v", err)
	require.Equal(t, KindInvalidInput, reqErr.Kind)
	require.Equal(t, http.StatusBadRequest, reqErr.Status())
}

func TestImageValidator_SupportedFormats(t *testing.T) {
	v := NewImageValidator(defaultConfig())
	img := solidImage(40, 30, color.RGBA{R: 200, G: 10, B: 10, A: 255})

	var bmpBuf bytes.Buffer
	require.NoError(t, bmp.Encode(&bmpBuf, img))

	tests := []struct {
		filename    string
		contentType string
		data        []byte
	}{
		{"a.jpg", "image/jpeg", encodeJPEG(t, img)},
		{"a.JPEG", "image/jpeg", encodeJPEG(t, img)},
		{"a.png", "image/png", encodePNG(t, img)},
		{"a.bmp", "image/bmp", bmpBuf.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			decoded, err := v.Validate(Upload{Filename: tt.filename, ContentType: tt.contentType, Data: tt.data})
			require.NoError(t, err)
			require.Equal(t, 40, decoded.Bounds().Dx())
			require.Equal(t, 30, decoded.Bounds().Dy())
		})
	}
}

func TestImageValidator_CheckFile(t *testing.T) {
	v := NewImageValidator(defaultConfig())

	require.NoError(t, v.CheckFile("", ""))
	require.NoError(t, v.CheckFile("photo.WEBP", "image/webp"))
	require.NoError(t, v.CheckFile("photo.png", "image/png; charset=binary"))

	err := v.CheckFile("photo.tiff", "")
	requireInvalidInput(t, err)
	require.Equal(t, "Invalid file type. Allowed extensions: .bmp, .jpeg, .jpg, .png, .webp", err.Error())

	requireInvalidInput(t, v.CheckFile("noext", ""))
	requireInvalidInput(t, v.CheckFile("", "application/pdf"))
	requireInvalidInput(t, v.CheckFile("", ";;;"))
}

func TestImageValidator_CheckSize(t *testing.T) {
	v := NewImageValidator(defaultConfig())

	require.NoError(t, v.CheckSize(DefaultMaxUploadSize))
	requireInvalidInput(t, v.CheckSize(DefaultMaxUploadSize+1))
}

func TestImageValidator_CheckDimensions(t *testing.T) {
	v := NewImageValidator(defaultConfig())

	require.NoError(t, v.CheckDimensions(10000, 10000))
	require.NoError(t, v.CheckDimensions(1, 1))
	requireInvalidInput(t, v.CheckDimensions(10001, 1))
	requireInvalidInput(t, v.CheckDimensions(1, 10001))
	requireInvalidInput(t, v.CheckDimensions(0, 5))
}

func TestImageValidator_DecodeBoundaryImages(t *testing.T) {
	v := NewImageValidator(defaultConfig())

	_, err := v.Decode(encodePNG(t, solidImage(10000, 1, color.Black)))
	require.NoError(t, err)

	_, err = v.Decode(encodePNG(t, solidImage(10001, 1, color.Black)))
	requireInvalidInput(t, err)
	require.Contains(t, err.Error(), "Maximum: 10000x10000 pixels")
}

func TestImageValidator_CorruptData(t *testing.T) {
	v := NewImageValidator(defaultConfig())
	valid := encodePNG(t, solidImage(64, 64, color.White))

	inputs := map[string][]byte{
		"text":      []byte("hello world"),
		"empty":     {},
		"truncated": valid[:len(valid)/2],
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := v.Decode(data)
			requireInvalidInput(t, err)
			require.Contains(t, err.Error(), "Invalid or corrupted image file")
		})
	}
}

func TestImageValidator_WebP(t *testing.T) {
	v := NewImageValidator(defaultConfig())
	data, err := base64.StdEncoding.DecodeString(tinyWebP)
	require.NoError(t, err)

	decoded, err := v.Validate(Upload{Filename: "a.webp", ContentType: "image/webp", Data: data})
	require.NoError(t, err)
	require.Equal(t, 1, decoded.Bounds().Dx())
	require.Equal(t, 1, decoded.Bounds().Dy())
}

func TestPredict_WebPUpload(t *testing.T) {
	state := newTestState(t, &fakeLoader{model: &fakeModel{}})
	data, err := base64.StdEncoding.DecodeString(tinyWebP)
	require.NoError(t, err)

	rec := serve(state, newUploadRequest(t, "a.webp", "image/webp", data))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"width":1,"height":1,"detections":[]}`, rec.Body.String())
}
