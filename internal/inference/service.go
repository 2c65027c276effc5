// Package inference turns uploaded images into screen-photo probabilities.
package inference

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Brownie44l1/screen-detect/internal/apperr"
	"github.com/Brownie44l1/screen-detect/internal/model"
)

// Service predicts with the classifier held by a Registry. It keeps no
// state between calls.
type Service struct {
	registry  *model.Registry
	meta      model.Metadata
	maxPixels int64
	logger    *zap.Logger
}

// NewService returns a Service whose inputs are shaped by meta.
func NewService(registry *model.Registry, meta model.Metadata, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{registry: registry, meta: meta, maxPixels: DefaultMaxPixels, logger: logger}
}

// WithMaxPixels sets the largest width*height accepted by Predict. n <= 0
// keeps DefaultMaxPixels.
func (s *Service) WithMaxPixels(n int64) *Service {
	if n > 0 {
		s.maxPixels = n
	}
	return s
}

// Metadata describes the input the service feeds the classifier.
func (s *Service) Metadata() model.Metadata { return s.meta }

// Predict returns the probability that data is a photo of a screen.
func (s *Service) Predict(data []byte) (float64, error) {
	img, format, err := Decode(data, s.maxPixels)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("decoded image",
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	return s.PredictTensor(Preprocess(img, s.meta))
}

// PredictTensor runs the classifier on an already preprocessed input. The
// model output is returned unchanged.
func (s *Service) PredictTensor(input []float32) (float64, error) {
	if len(input) != s.meta.InputLen() {
		return 0, apperr.Errorf(apperr.InvalidImage, "predict",
			"expected %d values, got %d", s.meta.InputLen(), len(input))
	}
	h, err := s.registry.Acquire()
	if err != nil {
		return 0, err
	}
	p, err := h.Predict(input)
	if err != nil {
		return 0, fmt.Errorf("prediction failed: %w", err)
	}
	return float64(p), nil
}
