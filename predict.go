package main

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Tutortoise/microplastic-detection-service/detections"
	"github.com/Tutortoise/microplastic-detection-service/models"

	"github.com/sirupsen/logrus"
)

// multipartOverhead is the slack allowed on top of the file for form framing.
const multipartOverhead = 1 << 20

func handlePredict(state *AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTotal := time.Now()
		ctx := r.Context()
		timings := &models.ProcessingTimings{RequestID: requestIDFrom(ctx)}
		log := state.Log.WithField("request_id", timings.RequestID)

		model, err := state.Holder.Acquire(ctx)
		if err != nil {
			state.Stats.unavailable.Add(1)
			sendErrorResponse(w, &RequestError{Kind: KindModelUnavailable, Message: "Model not available", Cause: err})
			return
		}

		upload, err := readUpload(w, r, state.Config.MaxUploadSize)
		if err != nil {
			state.Stats.invalidInputs.Add(1)
			sendErrorResponse(w, err)
			return
		}

		decodeStart := time.Now()
		img, err := state.Validator.Validate(upload)
		timings.ImageDecode = time.Since(decodeStart)
		if err != nil {
			state.Stats.invalidInputs.Add(1)
			log.WithError(err).Debug("Rejected upload")
			sendErrorResponse(w, err)
			return
		}

		prepStart := time.Now()
		tensor := detections.ToTensor(img)
		timings.Preprocess = time.Since(prepStart)

		inferStart := time.Now()
		candidates, err := model.Infer(tensor)
		timings.Inference = time.Since(inferStart)
		if err != nil {
			state.Stats.inferenceErrors.Add(1)
			log.WithError(err).Error("Model inference error")
			sendErrorResponse(w, &RequestError{Kind: KindInference, Message: "Error during model inference", Cause: err})
			return
		}

		postStart := time.Now()
		filtered := detections.FilterCandidates(candidates, state.Config.ScoreThreshold, log)
		timings.Postprocess = time.Since(postStart)

		timings.Total = time.Since(startTotal)
		logTimings(log, timings)
		log.Infof("Processed image %dx%d, found %d detections", tensor.Width, tensor.Height, len(filtered))

		state.Stats.predictions.Add(1)
		sendJSON(w, http.StatusOK, models.InferenceResult{
			Width:      tensor.Width,
			Height:     tensor.Height,
			Detections: filtered,
		})
	}
}

// readUpload pulls the "file" part out of the multipart form.
func readUpload(w http.ResponseWriter, r *http.Request, maxSize int64) (Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return Upload{}, invalidInput("File too large. Maximum size: %.1fMB", float64(maxSize)/(1024*1024))
		}
		return Upload{}, invalidInput(MsgNoFile)
	}
	defer file.Close()

	// one byte past the limit is enough to reject the upload
	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return Upload{}, &RequestError{Kind: KindInvalidInput, Message: "Failed to read file", Cause: err}
	}

	return Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func logTimings(log logrus.FieldLogger, t *models.ProcessingTimings) {
	log.WithFields(logrus.Fields{
		"decode":      t.ImageDecode,
		"preprocess":  t.Preprocess,
		"inference":   t.Inference,
		"postprocess": t.Postprocess,
		"total":       t.Total,
	}).Debug("Processing times")
}
