package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Tutortoise/fracture-detection-service/config"
	"github.com/Tutortoise/fracture-detection-service/detections"
	"github.com/Tutortoise/fracture-detection-service/ingress"
	"github.com/Tutortoise/fracture-detection-service/models"
	"github.com/Tutortoise/fracture-detection-service/presenter"
	"github.com/Tutortoise/fracture-detection-service/summary"
)

const (
	uploadField = "file"
	// multipartOverhead allows for boundaries and headers around the file.
	multipartOverhead = 1 << 20
	multipartMemory   = 10 << 20
)

type AppState struct {
	Config   *config.Config
	Provider *detections.Provider
	Engine   *detections.Engine
	Logger   *logrus.Logger
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string  `json:"status"`
	Model     string  `json:"model"`
	Threshold float32 `json:"confidence_threshold"`
}

type metricsSource interface {
	Metrics() detections.PoolSnapshot
}

func (s *AppState) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.withRequestLogger)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/api/detect", s.handleDetect).Methods(http.MethodPost)
	s.addMonitoringRoutes(r)
	return r
}

func (s *AppState) addMonitoringRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
}

func (s *AppState) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, requestLogger(r), presenter.NoImage())
}

func (s *AppState) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.Config.MaxUploadBytes+multipartOverhead)

	raw, filename, err := readMultipartFile(r, s.Config.MaxUploadBytes)
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		s.renderPage(w, log, presenter.NoImage())
		return
	case err != nil:
		log.WithError(err).Warn("Failed to read upload")
		s.renderPage(w, log, presenter.Failure(err))
		return
	}

	s.renderPage(w, log, s.process(r.Context(), raw, filename, log))
}

// handleDetect accepts a JSON body with a base64 "image", a multipart form
// with a "file" field, or raw image bytes.
func (s *AppState) handleDetect(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	limit := s.Config.MaxUploadBytes
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit(mediaType, limit))

	var (
		raw      []byte
		filename = "upload"
		err      error
	)
	switch mediaType {
	case "application/json":
		raw, err = handleJSONRequest(r, limit)
	case "multipart/form-data":
		raw, filename, err = readMultipartFile(r, limit)
		if errors.Is(err, http.ErrMissingFile) {
			err = fmt.Errorf("%w: missing %q field", ingress.ErrInvalidUpload, uploadField)
		}
	default:
		raw, err = handleRawRequest(r, limit)
	}
	if err != nil {
		log.WithError(err).Warn("Failed to read request")
		view := presenter.Failure(err)
		sendErrorResponse(w, view.Code, view.Message, view.Status())
		return
	}

	view := s.process(r.Context(), raw, filename, log)
	if view.State == presenter.StateError {
		sendErrorResponse(w, view.Code, view.Message, view.Status())
		return
	}

	resp, err := view.Response(r.URL.Query().Get("annotated") == "true")
	if err != nil {
		log.WithError(err).Error("Failed to build response")
		sendErrorResponse(w, "internal_error", presenter.MsgDetectionFailed, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *AppState) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Model:     s.Config.ModelPath,
		Threshold: s.Engine.Threshold(),
	}
	if _, err := s.Provider.Get(); err != nil {
		resp.Status = "model_unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *AppState) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	model, err := s.Provider.Get()
	if err != nil {
		sendErrorResponse(w, "model_unavailable", presenter.MsgModelUnavailable, http.StatusServiceUnavailable)
		return
	}
	source, ok := model.(metricsSource)
	if !ok {
		writeJSON(w, http.StatusOK, detections.PoolSnapshot{})
		return
	}
	writeJSON(w, http.StatusOK, source.Metrics())
}

// process runs one upload through ingest, staging, detection and
// summarizing. The staged copy is removed before process returns.
func (s *AppState) process(ctx context.Context, raw []byte, filename string, log *logrus.Entry) *presenter.View {
	startTotal := time.Now()
	timings := &models.ProcessingTimings{RequestID: requestID(log)}

	decodeStart := time.Now()
	img, err := ingress.IngestLimit(raw, filename, s.Config.MaxPixels)
	timings.ImageDecode = time.Since(decodeStart)
	if err != nil {
		log.WithError(err).Info("Rejected upload")
		return presenter.Failure(err)
	}
	log = log.WithFields(logrus.Fields{
		"filename": img.Filename,
		"format":   img.Format,
		"width":    img.Width,
		"height":   img.Height,
	})

	model, err := s.Provider.Get()
	if err != nil {
		log.WithError(err).Error("Detection model unavailable")
		return presenter.Failure(err).WithOriginal(img.Raster)
	}

	stageStart := time.Now()
	staged, err := ingress.Stage(img, s.Config.StagingDir)
	timings.Stage = time.Since(stageStart)
	if err != nil {
		log.WithError(err).Error("Failed to stage upload")
		return presenter.Failure(err).WithOriginal(img.Raster)
	}
	defer func() {
		if err := staged.Close(); err != nil {
			log.WithError(err).Warn("Failed to remove staged upload")
		}
	}()

	inferenceStart := time.Now()
	result, err := s.Engine.Detect(ctx, img, staged.Path(), model)
	timings.Inference = time.Since(inferenceStart)
	if err != nil {
		log.WithError(err).Error("Detection failed")
		return presenter.Failure(err).WithOriginal(img.Raster)
	}

	summaryStart := time.Now()
	sum := summary.Summarize(result)
	timings.Summary = time.Since(summaryStart)

	timings.Total = time.Since(startTotal)
	logTimings(log, timings)
	log.WithField("detections", sum.Len()).Info("Detection complete")

	return presenter.Result(img.Raster, result.Annotated, sum)
}

func (s *AppState) renderPage(w http.ResponseWriter, log *logrus.Entry, view *presenter.View) {
	var buf bytes.Buffer
	if err := view.Render(&buf); err != nil {
		log.WithError(err).Error("Failed to render page")
		http.Error(w, presenter.MsgDetectionFailed, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(view.Status())
	buf.WriteTo(w)
}

// bodyLimit is the largest request body that can carry an image of limit
// bytes in the given media type.
func bodyLimit(mediaType string, limit int64) int64 {
	if mediaType == "application/json" {
		return int64(base64.StdEncoding.EncodedLen(int(limit))) + multipartOverhead
	}
	return limit + multipartOverhead
}

func handleJSONRequest(r *http.Request, limit int64) ([]byte, error) {
	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, uploadError(err)
	}
	data, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: image is not valid base64: %v", ingress.ErrInvalidUpload, err)
	}
	if int64(len(data)) > limit {
		return nil, ingress.ErrTooLarge
	}
	return data, nil
}

func readMultipartFile(r *http.Request, limit int64) ([]byte, string, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, "", err
		}
		return nil, "", uploadError(err)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := ingress.ReadUpload(file, limit)
	if err != nil {
		return nil, "", uploadError(err)
	}
	return data, header.Filename, nil
}

func handleRawRequest(r *http.Request, limit int64) ([]byte, error) {
	data, err := ingress.ReadUpload(r.Body, limit)
	if err != nil {
		return nil, uploadError(err)
	}
	return data, nil
}

func uploadError(err error) error {
	if tooLarge(err) {
		return ingress.ErrTooLarge
	}
	return fmt.Errorf("%w: %v", ingress.ErrInvalidUpload, err)
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || errors.Is(err, ingress.ErrTooLarge)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func sendErrorResponse(w http.ResponseWriter, code, message string, status int) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
