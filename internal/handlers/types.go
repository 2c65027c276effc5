package handlers

// PredictionResponse is returned by the prediction endpoints.
type PredictionResponse struct {
	Probability float64 `json:"probability"`
}

// TensorRequest carries an already preprocessed input for /predict/tensor.
type TensorRequest struct {
	Input []float32 `json:"input"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
