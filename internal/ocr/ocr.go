package ocr

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/lab-assistant/internal/config"
	"github.com/sells-group/lab-assistant/internal/model"
)

// PageReader returns the text layer of each page of a PDF, in page order.
type PageReader interface {
	Pages(ctx context.Context, pdf []byte) ([]string, error)
}

// Recognizer runs text recognition over an encoded image.
type Recognizer interface {
	Recognize(ctx context.Context, img []byte) (string, error)
}

// Extractor turns an uploaded document into plain text, dispatching on the
// declared extension.
type Extractor struct {
	pdf    PageReader
	images Recognizer
}

// NewExtractor creates an Extractor from explicit backends.
func NewExtractor(pdf PageReader, images Recognizer) *Extractor {
	return &Extractor{pdf: pdf, images: images}
}

// New creates an Extractor based on config.
func New(ocrCfg config.OCRConfig, pdfCfg config.PDFConfig) (*Extractor, error) {
	var images Recognizer
	switch ocrCfg.Provider {
	case "tesseract", "":
		images = NewTesseract(ocrCfg.TesseractPath, ocrCfg.Language)
	case "mistral":
		m, err := NewMistralOCR(ocrCfg.MistralKey, ocrCfg.MistralModel)
		if err != nil {
			return nil, err
		}
		images = m
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", ocrCfg.Provider)
	}

	var pdf PageReader
	switch pdfCfg.Provider {
	case "pdfcpu", "":
		pdf = NewPdfcpuReader()
	case "pdftotext":
		pdf = NewPdfToText(pdfCfg.PdfToTextPath)
	case "mistral":
		m, err := NewMistralOCR(ocrCfg.MistralKey, ocrCfg.MistralModel)
		if err != nil {
			return nil, err
		}
		pdf = m
	default:
		return nil, eris.Errorf("ocr: unknown pdf provider %q", pdfCfg.Provider)
	}

	return NewExtractor(pdf, images), nil
}

// Extract returns the document's text. PDF pages are joined with a single
// newline. Whitespace-only output is a valid, empty result.
func (e *Extractor) Extract(ctx context.Context, doc model.Document) (string, error) {
	start := time.Now()
	log := zap.L().With(zap.String("file", doc.Name), zap.String("ext", string(doc.Ext)))

	var text string
	switch {
	case doc.Ext.IsPDF():
		pages, err := e.pdf.Pages(ctx, doc.Data)
		if err != nil {
			return "", err
		}
		text = strings.Join(pages, "\n")
		log = log.With(zap.Int("pages", len(pages)))
	case doc.Ext.IsImage():
		recognized, err := e.images.Recognize(ctx, doc.Data)
		if err != nil {
			return "", err
		}
		text = recognized
		if strings.TrimSpace(text) == "" {
			text = ""
		}
	default:
		return "", eris.Wrapf(model.ErrUnsupportedExtension, "ocr: extension %q", doc.Ext)
	}

	text = norm.NFC.String(text)
	log.Debug("ocr: extracted text",
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return text, nil
}
