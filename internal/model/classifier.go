package model

// Classifier runs a forward pass over one preprocessed image. Implementations
// are not required to be safe for concurrent use.
type Classifier interface {
	Predict(input []float32) (float32, error)
	Close() error
}

// Loader builds a Classifier from the artifact at path.
type Loader func(path string) (Classifier, error)
