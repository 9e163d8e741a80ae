package ocr

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// PdfToText extracts text from PDFs using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// Pages runs pdftotext -layout over the PDF on stdin. pdftotext ends every
// page with a form feed, so the output splits into one entry per page.
func (p *PdfToText) Pages(ctx context.Context, data []byte) ([]string, error) {
	if _, err := exec.LookPath(p.binPath); err != nil {
		return nil, &EngineUnavailableError{Engine: "pdftotext", Err: eris.Wrapf(err, "locate %s", p.binPath)}
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, &EngineUnavailableError{Engine: "pdftotext", Err: err}
		}
		return nil, &PDFParseError{Err: eris.Wrapf(err, "pdftotext: %s", strings.TrimSpace(stderr.String()))}
	}

	out := strings.TrimSuffix(stdout.String(), "\f")
	if out == "" {
		return []string{""}, nil
	}
	pages := strings.Split(out, "\f")
	for i, page := range pages {
		pages[i] = strings.TrimRight(page, "\n")
	}
	return pages, nil
}
