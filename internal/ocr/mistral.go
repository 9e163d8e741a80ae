package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	mistralOCREndpoint  = "https://api.mistral.ai/v1/ocr"
	defaultMistralModel = "mistral-ocr-latest"
)

// MistralOCR recognizes images and PDFs with the Mistral OCR API.
type MistralOCR struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewMistralOCR creates a MistralOCR client. If model is empty, the default
// is used. A missing key makes the engine unavailable.
func NewMistralOCR(apiKey, model string) (*MistralOCR, error) {
	if apiKey == "" {
		return nil, &EngineUnavailableError{Engine: "mistral", Err: eris.New("ocr.mistral_api_key is not set")}
	}
	if model == "" {
		model = defaultMistralModel
	}
	return &MistralOCR{
		apiKey:   apiKey,
		model:    model,
		endpoint: mistralOCREndpoint,
		client:   &http.Client{},
	}, nil
}

type mistralOCRRequest struct {
	Model    string             `json:"model"`
	Document mistralOCRDocument `json:"document"`
}

type mistralOCRDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type mistralOCRResponse struct {
	Pages []mistralOCRPage `json:"pages"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

// Recognize implements Recognizer. Pages in the response are joined with a
// newline.
func (m *MistralOCR) Recognize(ctx context.Context, img []byte) (string, error) {
	mime := http.DetectContentType(img)
	if mime != "image/png" && mime != "image/jpeg" {
		return "", &RecognitionError{Engine: "mistral", Err: eris.Errorf("unsupported image content %q", mime)}
	}

	pages, err := m.call(ctx, mistralOCRDocument{
		Type:     "image_url",
		ImageURL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img),
	}, func(err error) error {
		return &RecognitionError{Engine: "mistral", Err: err}
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}

// Pages implements PageReader for scanned PDFs without a usable text layer.
// A document the API rejects is reported as a PDFParseError.
func (m *MistralOCR) Pages(ctx context.Context, pdf []byte) ([]string, error) {
	return m.call(ctx, mistralOCRDocument{
		Type:        "document_url",
		DocumentURL: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf),
	}, func(err error) error {
		return &PDFParseError{Err: err}
	})
}

// call posts doc to the OCR endpoint. rejected builds the error for a
// document the API refused or answered with an unreadable body.
func (m *MistralOCR) call(ctx context.Context, doc mistralOCRDocument, rejected func(error) error) ([]string, error) {
	bodyBytes, err := json.Marshal(mistralOCRRequest{Model: m.model, Document: doc})
	if err != nil {
		return nil, eris.Wrap(err, "ocr: marshal mistral request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "ocr: create mistral request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &ServiceError{Engine: "mistral", Err: eris.Wrap(err, "API call")}
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Engine: "mistral", Err: eris.Wrap(err, "read response")}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &EngineUnavailableError{Engine: "mistral", Err: eris.Errorf("API returned %d: %s", resp.StatusCode, string(respBody))}
	case resp.StatusCode != http.StatusOK:
		return nil, rejected(eris.Errorf("API returned %d: %s", resp.StatusCode, string(respBody)))
	}

	var ocrResp mistralOCRResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return nil, rejected(eris.Wrap(err, "unmarshal response"))
	}

	pages := make([]string, len(ocrResp.Pages))
	for i, page := range ocrResp.Pages {
		pages[i] = page.Markdown
	}
	return pages, nil
}
