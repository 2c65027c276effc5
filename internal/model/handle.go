package model

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Predict after the registry has been closed.
var ErrClosed = errors.New("model handle closed")

// Handle is the loaded classifier shared by every request. Calls into the
// classifier are serialized.
type Handle struct {
	mu     sync.Mutex
	engine Classifier
	path   string
}

// Path is the artifact the handle was loaded from.
func (h *Handle) Path() string { return h.path }

// Predict runs one forward pass while holding the handle's lock.
func (h *Handle) Predict(input []float32) (float32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.engine == nil {
		return 0, ErrClosed
	}
	return h.engine.Predict(input)
}

// close releases the engine. Predict calls already holding the lock finish
// first; later calls get ErrClosed.
func (h *Handle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.engine == nil {
		return nil
	}
	err := h.engine.Close()
	h.engine = nil
	return err
}
