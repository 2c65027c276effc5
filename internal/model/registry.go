package model

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Brownie44l1/screen-detect/internal/apperr"
)

// Registry lazily loads one classifier from a fixed artifact path and hands
// out the same Handle for the rest of its life. A failed load leaves the
// registry empty, so a later Acquire tries again.
type Registry struct {
	path   string
	loader Loader
	logger *zap.Logger

	mu     sync.Mutex
	handle atomic.Pointer[Handle]
}

// NewRegistry returns a Registry for the artifact at path. Nothing is read
// until the first Acquire.
func NewRegistry(path string, loader Loader, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{path: path, loader: loader, logger: logger}
}

// Path is the configured artifact path.
func (r *Registry) Path() string { return r.path }

// Acquire returns the shared Handle, loading the artifact on first use.
func (r *Registry) Acquire() (*Handle, error) {
	if h := r.handle.Load(); h != nil {
		return h, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h := r.handle.Load(); h != nil {
		return h, nil
	}

	if _, err := os.Stat(r.path); err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Errorf(apperr.MissingArtifact, "acquire model",
				"model file not found at %s, train the model first", r.path)
		}
		return nil, apperr.E(apperr.MissingArtifact, "acquire model", err)
	}

	start := time.Now()
	engine, err := r.loader(r.path)
	if err != nil {
		r.logger.Warn("model load failed", zap.String("path", r.path), zap.Error(err))
		return nil, apperr.E(apperr.MissingArtifact, "acquire model", fmt.Errorf("load %s: %w", r.path, err))
	}
	h := &Handle{engine: engine, path: r.path}
	r.handle.Store(h)
	r.logger.Info("model loaded", zap.String("path", r.path), zap.Duration("took", time.Since(start)))
	return h, nil
}

// Close releases the loaded classifier, if any. The registry must not be
// used afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.handle.Load()
	if h == nil {
		return nil
	}
	return h.close()
}
