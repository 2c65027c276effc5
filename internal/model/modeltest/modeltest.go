// Package modeltest provides in-memory classifiers for tests.
package modeltest

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Brownie44l1/screen-detect/internal/model"
)

// Classifier returns a fixed output and records how it was called.
type Classifier struct {
	Output float32
	Err    error
	// Delay is slept inside Predict to widen race windows.
	Delay time.Duration

	mu        sync.Mutex
	calls     int
	lastInput []float32
	active    atomic.Int32
	maxActive atomic.Int32
	closed    atomic.Bool
}

func (c *Classifier) Predict(input []float32) (float32, error) {
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		m := c.maxActive.Load()
		if n <= m || c.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	if c.Delay > 0 {
		time.Sleep(c.Delay)
	}

	c.mu.Lock()
	c.calls++
	c.lastInput = append([]float32(nil), input...)
	c.mu.Unlock()
	return c.Output, c.Err
}

func (c *Classifier) Close() error {
	c.closed.Store(true)
	return nil
}

// Calls is the number of Predict calls so far.
func (c *Classifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// LastInput is a copy of the most recent Predict input.
func (c *Classifier) LastInput() []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastInput
}

// MaxConcurrent is the largest number of Predict calls seen in flight at once.
func (c *Classifier) MaxConcurrent() int { return int(c.maxActive.Load()) }

// Closed reports whether Close was called.
func (c *Classifier) Closed() bool { return c.closed.Load() }

// Loader reads the artifact like a real engine would and returns Classifier.
type Loader struct {
	Classifier *Classifier
	// FailTimes makes the first n loads fail.
	FailTimes int
	Delay     time.Duration

	mu    sync.Mutex
	loads int
}

// ErrLoad is returned by a failing Loader.
var ErrLoad = errors.New("modeltest: load failed")

// Load satisfies model.Loader.
func (l *Loader) Load(path string) (model.Classifier, error) {
	if l.Delay > 0 {
		time.Sleep(l.Delay)
	}
	l.mu.Lock()
	l.loads++
	n := l.loads
	l.mu.Unlock()

	if _, err := os.ReadFile(path); err != nil {
		return nil, err
	}
	if n <= l.FailTimes {
		return nil, ErrLoad
	}
	return l.Classifier, nil
}

// Loads is the number of times the artifact was read.
func (l *Loader) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

// WriteArtifact creates a placeholder model file at path.
func WriteArtifact(path string) error {
	return os.WriteFile(path, []byte("onnx"), 0o644)
}
