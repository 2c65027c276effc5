package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/Brownie44l1/screen-detect/internal/apperr"
	"github.com/Brownie44l1/screen-detect/internal/inference"
	"github.com/Brownie44l1/screen-detect/internal/model"
)

// DefaultMaxUploadBytes bounds multipart uploads.
const DefaultMaxUploadBytes = 10 << 20

// UploadField is the multipart field holding the image.
const UploadField = "file"

type Handler struct {
	service        *inference.Service
	health         *inference.HealthCheck
	logger         *zap.Logger
	maxUploadBytes int64
}

func NewHandler(service *inference.Service, health *inference.HealthCheck, logger *zap.Logger, maxUploadBytes int64) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		service:        service,
		health:         health,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// Health reports whether the model can be loaded. It does not run inference.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Check(); err != nil {
		h.logger.Warn("health check failed", zap.String("request_id", requestID(r)), zap.Error(err))
		respondJSON(w, HealthResponse{Status: "error", Error: err.Error()}, http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, HealthResponse{Status: "ok"}, http.StatusOK)
}

// Predict classifies the image uploaded in the "file" multipart field.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		respondError(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		respondError(w, fmt.Sprintf("%s is required", UploadField), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, "Failed to read file", http.StatusBadRequest)
		return
	}

	logger := h.logger.With(zap.String("request_id", requestID(r)))
	logger.Debug("received file", zap.String("filename", header.Filename), zap.Int64("size", header.Size))

	p, err := h.service.Predict(data)
	if err != nil {
		h.fail(w, logger, err)
		return
	}
	logger.Info("prediction", zap.String("filename", header.Filename), zap.Float64("probability", p))
	respondJSON(w, PredictionResponse{Probability: p}, http.StatusOK)
}

// PredictTensor classifies a preprocessed input array.
func (h *Handler) PredictTensor(w http.ResponseWriter, r *http.Request) {
	var req TensorRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxUploadBytes)).Decode(&req); err != nil {
		respondError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	p, err := h.service.PredictTensor(req.Input)
	if errors.Is(err, apperr.ErrInvalidImage) {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, h.logger.With(zap.String("request_id", requestID(r))), err)
		return
	}
	respondJSON(w, PredictionResponse{Probability: p}, http.StatusOK)
}

func (h *Handler) fail(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := statusFor(err)
	logger.Error("prediction failed", zap.Int("status", status), zap.Error(err))
	respondError(w, err.Error(), status)
}

// statusFor maps inference failures onto 5xx responses.
func statusFor(err error) int {
	if errors.Is(err, apperr.ErrMissingArtifact) || errors.Is(err, model.ErrClosed) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, ErrorResponse{Error: message}, status)
}
