package model

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Extension is the declared file type of an uploaded document.
type Extension string

const (
	ExtJPG  Extension = "jpg"
	ExtJPEG Extension = "jpeg"
	ExtPNG  Extension = "png"
	ExtPDF  Extension = "pdf"
)

// ErrUnsupportedExtension is returned for uploads outside {jpg, jpeg, png, pdf}.
var ErrUnsupportedExtension = eris.New("unsupported file type: upload a JPG, PNG, or PDF")

// SupportedExtensions lists the accepted upload types in display order.
func SupportedExtensions() []Extension {
	return []Extension{ExtJPG, ExtJPEG, ExtPNG, ExtPDF}
}

// ParseExtension derives the declared extension from a filename. Only the
// text after the last dot counts, compared case-insensitively.
func ParseExtension(filename string) (Extension, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch Extension(ext) {
	case ExtJPG, ExtJPEG, ExtPNG, ExtPDF:
		return Extension(ext), nil
	default:
		return "", eris.Wrapf(ErrUnsupportedExtension, "model: extension %q", ext)
	}
}

// IsPDF reports whether the extension selects the PDF text-layer path.
func (e Extension) IsPDF() bool {
	return e == ExtPDF
}

// IsImage reports whether the extension selects the OCR path.
func (e Extension) IsImage() bool {
	switch e {
	case ExtJPG, ExtJPEG, ExtPNG:
		return true
	default:
		return false
	}
}

// Document is an uploaded lab report. It is read once by the extractor and
// then discarded.
type Document struct {
	Name string
	Ext  Extension
	Data []byte
}

// NewDocument builds a Document from an upload, deriving its extension from name.
func NewDocument(name string, data []byte) (Document, error) {
	ext, err := ParseExtension(name)
	if err != nil {
		return Document{}, err
	}
	return Document{Name: name, Ext: ext, Data: data}, nil
}
