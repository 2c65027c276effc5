package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// NewRouter wires the endpoints and wraps them with request IDs, access
// logging, CORS and panic recovery.
func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/predict", h.Predict).Methods(http.MethodPost)
	r.HandleFunc("/predict/tensor", h.PredictTensor).Methods(http.MethodPost)

	var handler http.Handler = withRequestID(r)
	handler = gorillahandlers.CustomLoggingHandler(io.Discard, handler, accessLog(h.logger))
	handler = gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins([]string{"*"}),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type"}),
	)(handler)
	return gorillahandlers.RecoveryHandler(gorillahandlers.RecoveryLogger(recoveryLogger{h.logger}))(handler)
}

// withRequestID makes sure every request and response carries an ID.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func requestID(r *http.Request) string {
	return r.Header.Get(requestIDHeader)
}

func accessLog(logger *zap.Logger) gorillahandlers.LogFormatter {
	return func(_ io.Writer, p gorillahandlers.LogFormatterParams) {
		logger.Info("request",
			zap.String("request_id", requestID(p.Request)),
			zap.String("method", p.Request.Method),
			zap.String("path", p.URL.Path),
			zap.Int("status", p.StatusCode),
			zap.Int("size", p.Size),
			zap.Duration("took", time.Since(p.TimeStamp)))
	}
}

type recoveryLogger struct {
	logger *zap.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("panic in handler", zap.Any("recovered", v))
}
