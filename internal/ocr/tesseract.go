package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// Tesseract recognizes text with the tesseract CLI.
type Tesseract struct {
	binPath  string
	language string
}

// NewTesseract creates a Tesseract recognizer. Empty arguments fall back to
// "tesseract" and "eng".
func NewTesseract(binPath, language string) *Tesseract {
	if binPath == "" {
		binPath = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &Tesseract{binPath: binPath, language: language}
}

// Recognize decodes the image header and pipes the image through
// `tesseract stdin stdout`.
func (t *Tesseract) Recognize(ctx context.Context, img []byte) (string, error) {
	if _, err := exec.LookPath(t.binPath); err != nil {
		return "", &EngineUnavailableError{Engine: "tesseract", Err: eris.Wrapf(err, "locate %s", t.binPath)}
	}

	if _, format, err := image.DecodeConfig(bytes.NewReader(img)); err != nil {
		return "", &RecognitionError{Engine: "tesseract", Err: eris.Wrap(err, "decode image")}
	} else if format != "png" && format != "jpeg" {
		return "", &RecognitionError{Engine: "tesseract", Err: eris.Errorf("unsupported image format %q", format)}
	}

	cmd := exec.CommandContext(ctx, t.binPath, "stdin", "stdout", "-l", t.language)
	cmd.Stdin = bytes.NewReader(img)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", &EngineUnavailableError{Engine: "tesseract", Err: err}
		}
		return "", &RecognitionError{Engine: "tesseract", Err: eris.Wrapf(err, "tesseract: %s", strings.TrimSpace(stderr.String()))}
	}

	return strings.TrimSpace(stdout.String()), nil
}
