package ocr

import (
	"fmt"

	"github.com/sells-group/lab-assistant/internal/resilience"
)

// PDFParseError reports a PDF that could not be opened, or a page whose text
// layer could not be read. Page is 1-based; 0 means the whole document.
type PDFParseError struct {
	Page int
	Err  error
}

func (e *PDFParseError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("ocr: read PDF page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("ocr: read PDF: %v", e.Err)
}

func (e *PDFParseError) Unwrap() error { return e.Err }

// Class implements resilience.Classifier.
func (e *PDFParseError) Class() resilience.Class { return resilience.ClassInput }

// EngineUnavailableError reports that a text engine cannot be used at all,
// such as a missing binary or missing credential.
type EngineUnavailableError struct {
	Engine string
	Err    error
}

func (e *EngineUnavailableError) Error() string {
	return fmt.Sprintf("ocr: %s unavailable: %v", e.Engine, e.Err)
}

func (e *EngineUnavailableError) Unwrap() error { return e.Err }

// Class implements resilience.Classifier.
func (e *EngineUnavailableError) Class() resilience.Class { return resilience.ClassConfiguration }

// RecognitionError reports a failure while recognizing text on an available
// engine: corrupt or unsupported image data, or an engine-side rejection.
type RecognitionError struct {
	Engine string
	Err    error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("ocr: %s recognition failed: %v", e.Engine, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// Class implements resilience.Classifier.
func (e *RecognitionError) Class() resilience.Class { return resilience.ClassInput }

// ServiceError reports a remote text engine that could not be reached or
// whose response could not be read.
type ServiceError struct {
	Engine string
	Err    error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("ocr: %s unreachable: %v", e.Engine, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Class implements resilience.Classifier.
func (e *ServiceError) Class() resilience.Class { return resilience.ClassTransient }
