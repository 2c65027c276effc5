package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Tensor layouts understood by the preprocessor.
const (
	LayoutNHWC = "nhwc"
	LayoutNCHW = "nchw"
)

// Metadata describes the classifier's input and output tensors.
type Metadata struct {
	InputName  string `json:"input_name" yaml:"input_name"`
	OutputName string `json:"output_name" yaml:"output_name"`
	ImageSize  int    `json:"image_size" yaml:"image_size"`
	Layout     string `json:"layout" yaml:"layout"`
}

// DefaultMetadata matches a Keras MobileNetV2 export: one 224x224 RGB image
// in NHWC order, one sigmoid output.
func DefaultMetadata() Metadata {
	return Metadata{
		InputName:  "input",
		OutputName: "output",
		ImageSize:  224,
		Layout:     LayoutNHWC,
	}
}

// LoadMetadata overlays the JSON file at path onto base. Fields missing
// from the file keep base's values.
func LoadMetadata(path string, base Metadata) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read metadata: %w", err)
	}
	meta := base
	if err := json.Unmarshal(data, &meta); err != nil {
		return base, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return meta, meta.Validate()
}

// Validate checks that the metadata can describe a tensor.
func (m Metadata) Validate() error {
	if m.ImageSize <= 0 {
		return fmt.Errorf("image size must be positive, got %d", m.ImageSize)
	}
	if m.Layout != LayoutNHWC && m.Layout != LayoutNCHW {
		return fmt.Errorf("unknown layout %q", m.Layout)
	}
	if m.InputName == "" || m.OutputName == "" {
		return fmt.Errorf("input and output names are required")
	}
	return nil
}

// InputShape is the shape of a single-image batch.
func (m Metadata) InputShape() []int64 {
	s := int64(m.ImageSize)
	if m.Layout == LayoutNCHW {
		return []int64{1, 3, s, s}
	}
	return []int64{1, s, s, 3}
}

// InputLen is the number of float32 values in one input batch.
func (m Metadata) InputLen() int {
	return 3 * m.ImageSize * m.ImageSize
}

// OutputShape is the shape of the classifier output: one probability.
func (m Metadata) OutputShape() []int64 {
	return []int64{1, 1}
}
