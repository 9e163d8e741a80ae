package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/lab-assistant/internal/ai"
	"github.com/sells-group/lab-assistant/internal/ocr"
	"github.com/sells-group/lab-assistant/internal/pipeline"
	"github.com/sells-group/lab-assistant/internal/resilience"
)

type errorResponse struct {
	Error     string `json:"error"`
	Class     string `json:"class"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	msg, class := pipeline.Describe(err)
	writeJSON(w, statusFor(err, class), errorResponse{
		Error:     msg,
		Class:     string(class),
		RequestID: pipeline.RequestID(r.Context()),
	})
}

// writeBadRequest reports malformed requests that never reached the pipeline.
func writeBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:     msg,
		Class:     string(resilience.ClassInput),
		RequestID: pipeline.RequestID(r.Context()),
	})
}

func statusFor(err error, class resilience.Class) int {
	var (
		engineErr    *ocr.EngineUnavailableError
		pdfErr       *ocr.PDFParseError
		recognizeErr *ocr.RecognitionError
		serviceErr   *ocr.ServiceError
		authErr      *ai.AuthenticationError
		upstreamErr  *ai.UpstreamHTTPError
		malformedErr *ai.MalformedResponseError
		transportErr *ai.TransportError
	)

	switch {
	case errors.Is(err, pipeline.ErrNoContent):
		return http.StatusUnprocessableEntity
	case errors.As(err, &engineErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &pdfErr), errors.As(err, &recognizeErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &authErr), errors.As(err, &upstreamErr), errors.As(err, &malformedErr):
		return http.StatusBadGateway
	case errors.As(err, &transportErr), errors.As(err, &serviceErr), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	switch class {
	case resilience.ClassInput:
		return http.StatusBadRequest
	case resilience.ClassConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
