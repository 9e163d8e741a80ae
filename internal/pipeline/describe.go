package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/sells-group/lab-assistant/internal/ai"
	"github.com/sells-group/lab-assistant/internal/config"
	"github.com/sells-group/lab-assistant/internal/model"
	"github.com/sells-group/lab-assistant/internal/ocr"
	"github.com/sells-group/lab-assistant/internal/resilience"
)

const maxBodyInMessage = 300

// Describe turns an action error into a message a student or operator can act
// on, together with its class. It returns "" for a nil error.
func Describe(err error) (string, resilience.Class) {
	if err == nil {
		return "", ""
	}

	var (
		engineErr    *ocr.EngineUnavailableError
		pdfErr       *ocr.PDFParseError
		recognizeErr *ocr.RecognitionError
		serviceErr   *ocr.ServiceError
		authErr      *ai.AuthenticationError
		upstreamErr  *ai.UpstreamHTTPError
		transportErr *ai.TransportError
		malformedErr *ai.MalformedResponseError
	)

	switch {
	case errors.Is(err, ErrNoContent):
		return "No text was found in the report. Upload a clearer scan or paste the report text.", resilience.ClassInput
	case errors.Is(err, ErrEmptyQuestion):
		return "Please enter a question about your report.", resilience.ClassInput
	case errors.Is(err, ErrEmptyTerm):
		return "Please enter a term to define.", resilience.ClassInput
	case errors.Is(err, model.ErrMissingName):
		return "Please enter an experiment name.", resilience.ClassInput
	case errors.Is(err, model.ErrMissingHypothesis):
		return "Please enter a hypothesis.", resilience.ClassInput
	case errors.Is(err, model.ErrUnsupportedExtension):
		return "Unsupported file type. Upload a JPG, PNG, or PDF file.", resilience.ClassInput
	case errors.Is(err, config.ErrMissingAPIKey):
		return "AI API key is not configured. Set LAB_AI_KEY (or OPENROUTER_API_KEY) and restart.", resilience.ClassConfiguration
	case errors.Is(err, context.Canceled):
		return "The request was cancelled.", resilience.ClassTransient
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again.", resilience.ClassTransient

	case errors.As(err, &engineErr):
		return engineMessage(engineErr), resilience.ClassConfiguration
	case errors.As(err, &pdfErr):
		return fmt.Sprintf("Error reading PDF: %v", pdfErr.Err), resilience.ClassInput
	case errors.As(err, &recognizeErr):
		return fmt.Sprintf("Could not read text from the image: %v", recognizeErr.Err), resilience.ClassInput
	case errors.As(err, &serviceErr):
		return fmt.Sprintf("Error connecting to the %s text service. Check your connection and try again.", serviceErr.Engine), resilience.ClassTransient

	case errors.As(err, &authErr):
		return "Invalid API Key. Check LAB_AI_KEY (or OPENROUTER_API_KEY).", resilience.ClassConfiguration
	case errors.As(err, &upstreamErr):
		return fmt.Sprintf("API Error: %d - %s", upstreamErr.StatusCode, truncate(upstreamErr.Body, maxBodyInMessage)), upstreamErr.Class()
	case errors.As(err, &transportErr):
		return "Error connecting to AI service. Check your connection and try again.", resilience.ClassTransient
	case errors.As(err, &malformedErr):
		return "The AI service returned an unexpected response. Please try again.", resilience.ClassUpstream
	}

	return fmt.Sprintf("Unexpected error: %v", err), resilience.ClassOf(err)
}

func engineMessage(e *ocr.EngineUnavailableError) string {
	switch e.Engine {
	case "tesseract":
		return "Tesseract OCR not found. Install it (apt-get install tesseract-ocr, or brew install tesseract) or set ocr.tesseract_path."
	case "pdftotext":
		return "pdftotext not found. Install poppler-utils or set pdf.provider to pdfcpu."
	default:
		return fmt.Sprintf("Text engine %s is not available: %v", e.Engine, e.Err)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
