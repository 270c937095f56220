package main

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ImageValidator struct {
	maxSize      int64
	maxDimension int
	extensions   map[string]struct{}
	mimeTypes    map[string]struct{}
}

func NewImageValidator(cfg *Config) *ImageValidator {
	v := &ImageValidator{
		maxSize:      cfg.MaxUploadSize,
		maxDimension: cfg.MaxDimension,
		extensions:   make(map[string]struct{}, len(cfg.AllowedExtensions)),
		mimeTypes:    make(map[string]struct{}, len(cfg.AllowedMIMETypes)),
	}
	for _, ext := range cfg.AllowedExtensions {
		v.extensions[strings.ToLower(ext)] = struct{}{}
	}
	for _, mt := range cfg.AllowedMIMETypes {
		v.mimeTypes[strings.ToLower(mt)] = struct{}{}
	}
	return v
}

// Validate runs every check on an upload and returns the decoded image.
func (v *ImageValidator) Validate(u Upload) (image.Image, error) {
	if err := v.CheckFile(u.Filename, u.ContentType); err != nil {
		return nil, err
	}
	return v.Decode(u.Data)
}

// CheckFile enforces the extension and declared type, each only when present.
func (v *ImageValidator) CheckFile(filename, contentType string) error {
	if filename != "" {
		ext := strings.ToLower(filepath.Ext(filename))
		if _, ok := v.extensions[ext]; !ok {
			return invalidInput("Invalid file type. Allowed extensions: %s", joinSorted(v.extensions))
		}
	}

	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if _, ok := v.mimeTypes[strings.ToLower(mediaType)]; err != nil || !ok {
			return invalidInput("Invalid MIME type. Allowed types: %s", joinSorted(v.mimeTypes))
		}
	}
	return nil
}

// Decode checks size, header and dimensions, then fully decodes the pixels.
func (v *ImageValidator) Decode(data []byte) (image.Image, error) {
	if err := v.CheckSize(int64(len(data))); err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &RequestError{Kind: KindInvalidInput, Message: "Invalid or corrupted image file", Cause: err}
	}
	if err := v.CheckDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &RequestError{Kind: KindInvalidInput, Message: "Invalid or corrupted image file", Cause: err}
	}

	b := img.Bounds()
	if err := v.CheckDimensions(b.Dx(), b.Dy()); err != nil {
		return nil, err
	}
	return img, nil
}

func (v *ImageValidator) CheckSize(size int64) error {
	if size > v.maxSize {
		return invalidInput("File too large. Maximum size: %.1fMB", float64(v.maxSize)/(1024*1024))
	}
	return nil
}

func (v *ImageValidator) CheckDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return invalidInput(MsgInvalidDimensions)
	}
	if width > v.maxDimension || height > v.maxDimension {
		return invalidInput("Image dimensions too large. Maximum: %dx%d pixels", v.maxDimension, v.maxDimension)
	}
	return nil
}

func joinSorted(set map[string]struct{}) string {
	items := make([]string, 0, len(set))
	for item := range set {
		items = append(items, item)
	}
	sort.Strings(items)
	return strings.Join(items, ", ")
}
