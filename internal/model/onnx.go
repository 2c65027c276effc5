package model

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	envMu    sync.Mutex
	envReady bool
)

// initEnvironment initializes the onnxruntime environment once per process.
// It is retried on later calls if it failed.
func initEnvironment(sharedLibraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if envReady {
		return nil
	}
	if sharedLibraryPath != "" {
		ort.SetSharedLibraryPath(sharedLibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	envReady = true
	return nil
}

// ONNXClassifier runs an ONNX model through onnxruntime. The input and
// output tensors are allocated once and reused, so Predict must not be
// called concurrently.
type ONNXClassifier struct {
	session      *ort.AdvancedSession
	meta         Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewONNXLoader returns a Loader that opens ONNX artifacts described by meta.
func NewONNXLoader(meta Metadata, sharedLibraryPath string) Loader {
	return func(path string) (Classifier, error) {
		return NewONNXClassifier(path, meta, sharedLibraryPath)
	}
}

// NewONNXClassifier creates a session for the model at modelPath.
func NewONNXClassifier(modelPath string, meta Metadata, sharedLibraryPath string) (*ONNXClassifier, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if err := initEnvironment(sharedLibraryPath); err != nil {
		return nil, err
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape()...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.OutputShape()...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{meta.InputName}, []string{meta.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXClassifier{
		session:      session,
		meta:         meta,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Predict copies input into the session's input tensor, runs the model and
// returns the single output value.
func (c *ONNXClassifier) Predict(input []float32) (float32, error) {
	if len(input) != c.meta.InputLen() {
		return 0, fmt.Errorf("expected %d input values, got %d", c.meta.InputLen(), len(input))
	}
	copy(c.inputTensor.GetData(), input)

	if err := c.session.Run(); err != nil {
		return 0, fmt.Errorf("inference failed: %w", err)
	}

	out := c.outputTensor.GetData()
	if len(out) == 0 {
		return 0, fmt.Errorf("model produced no output")
	}
	return out[0], nil
}

// Close releases the session and its tensors. The onnxruntime environment
// is left alive for the rest of the process.
func (c *ONNXClassifier) Close() error {
	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
	if c.session != nil {
		return c.session.Destroy()
	}
	return nil
}
