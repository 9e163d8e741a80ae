package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lab-assistant/internal/ai"
	"github.com/sells-group/lab-assistant/internal/catalog"
	"github.com/sells-group/lab-assistant/internal/config"
	"github.com/sells-group/lab-assistant/internal/model"
	"github.com/sells-group/lab-assistant/internal/ocr"
	"github.com/sells-group/lab-assistant/internal/pipeline"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) ExtractText(ctx context.Context, doc model.Document) (string, error) {
	args := m.Called(ctx, doc)
	return args.String(0), args.Error(1)
}

func (m *mockService) GenerateGuide(ctx context.Context, e model.Experiment) (*model.Guide, error) {
	args := m.Called(ctx, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Guide), args.Error(1)
}

func (m *mockService) AnalyzeText(ctx context.Context, text string) (*model.Analysis, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Analysis), args.Error(1)
}

func (m *mockService) AnalyzeDocument(ctx context.Context, doc model.Document) (*pipeline.DocumentAnalysis, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.DocumentAnalysis), args.Error(1)
}

func (m *mockService) AskFollowup(ctx context.Context, text, question string) (string, error) {
	args := m.Called(ctx, text, question)
	return args.String(0), args.Error(1)
}

func (m *mockService) DefineTerm(ctx context.Context, term string) (string, error) {
	args := m.Called(ctx, term)
	return args.String(0), args.Error(1)
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Port:           8080,
		MaxUploadMB:    1,
		RatePerSec:     1000,
		Burst:          1000,
		AllowedOrigins: []string{"*"},
	}
}

func newTestServer(t *testing.T, svc Service, cfg config.ServerConfig) http.Handler {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)
	return New(svc, cat, cfg).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func doUpload(t *testing.T, h http.Handler, path, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &mockService{}, testServerConfig())
	rec := doJSON(t, h, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestServer(t, &mockService{}, testServerConfig())

	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, &mockService{}, testServerConfig())

	req := httptest.NewRequest(http.MethodOptions, "/api/guide", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestTemplates(t *testing.T) {
	h := newTestServer(t, &mockService{}, testServerConfig())
	rec := doJSON(t, h, http.MethodGet, "/api/templates", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	templates := decodeBody(t, rec)["templates"].([]any)
	assert.Len(t, templates, 4)
	first := templates[0].(map[string]any)
	assert.Equal(t, "Vinegar + Baking Soda", first["name"])
}

func TestExtract(t *testing.T) {
	svc := &mockService{}
	want := model.Document{Name: "report.PNG", Ext: model.ExtPNG, Data: []byte("img")}
	svc.On("ExtractText", mock.Anything, want).Return("Title: Rust", nil).Once()
	h := newTestServer(t, svc, testServerConfig())

	rec := doUpload(t, h, "/api/extract", "report.PNG", []byte("img"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Title: Rust", decodeBody(t, rec)["text"])
	svc.AssertExpectations(t)
}

func TestExtract_UnsupportedExtension(t *testing.T) {
	svc := &mockService{}
	h := newTestServer(t, svc, testServerConfig())

	rec := doUpload(t, h, "/api/extract", "report.docx", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "input", body["class"])
	assert.Contains(t, body["error"], "Unsupported file type")
	svc.AssertNotCalled(t, "ExtractText", mock.Anything, mock.Anything)
}

func TestExtract_MissingFile(t *testing.T) {
	h := newTestServer(t, &mockService{}, testServerConfig())
	rec := doJSON(t, h, http.MethodPost, "/api/extract", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtract_EngineUnavailable(t *testing.T) {
	svc := &mockService{}
	svc.On("ExtractText", mock.Anything, mock.Anything).Return("", &ocr.EngineUnavailableError{Engine: "tesseract", Err: errors.New("nf")})
	h := newTestServer(t, svc, testServerConfig())

	rec := doUpload(t, h, "/api/extract", "scan.jpg", []byte("img"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "configuration", body["class"])
	assert.Contains(t, body["error"], "Tesseract OCR not found")
	assert.NotEmpty(t, body["request_id"])
}

func TestGuide(t *testing.T) {
	svc := &mockService{}
	e := model.Experiment{Name: "Volcano", Hypothesis: "It erupts"}
	svc.On("GenerateGuide", mock.Anything, e).Return(&model.Guide{Experiment: e, Text: "## Steps"}, nil).Once()
	h := newTestServer(t, svc, testServerConfig())

	rec := doJSON(t, h, http.MethodPost, "/api/guide", guideRequest{Name: "Volcano", Hypothesis: "It erupts"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "## Steps", decodeBody(t, rec)["text"])
}

func TestGuide_TemplateFillsBlanks(t *testing.T) {
	svc := &mockService{}
	want := model.Experiment{
		Name:       "Lemon Battery",
		Hypothesis: "A lemon can produce electricity to power a small LED.",
		Materials:  "lemon",
	}
	svc.On("GenerateGuide", mock.Anything, want).Return(&model.Guide{Experiment: want, Text: "ok"}, nil).Once()
	h := newTestServer(t, svc, testServerConfig())

	rec := doJSON(t, h, http.MethodPost, "/api/guide", guideRequest{Template: "lemon battery", Materials: "lemon"})
	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestGuide_UnknownTemplate(t *testing.T) {
	h := newTestServer(t, &mockService{}, testServerConfig())
	rec := doJSON(t, h, http.MethodPost, "/api/guide", guideRequest{Template: "Volcano"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "Unknown experiment template")
}

func TestGuide_ValidationError(t *testing.T) {
	svc := &mockService{}
	svc.On("GenerateGuide", mock.Anything, mock.Anything).Return(nil, model.ErrMissingName)
	h := newTestServer(t, svc, testServerConfig())

	rec := doJSON(t, h, http.MethodPost, "/api/guide", guideRequest{Hypothesis: "h"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please enter an experiment name.", decodeBody(t, rec)["error"])
}

func TestGuideArtifact(t *testing.T) {
	svc := &mockService{}
	e := model.Experiment{Name: "Lemon Battery", Hypothesis: "It lights"}
	svc.On("GenerateGuide", mock.Anything, e).Return(&model.Guide{Experiment: e, Text: "**bold**"}, nil)
	h := newTestServer(t, svc, testServerConfig())

	rec := doJSON(t, h, http.MethodPost, "/api/guide/artifact", guideRequest{Name: "Lemon Battery", Hypothesis: "It lights"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Lemon Battery_guide.html"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "<strong>bold</strong>")
}

func TestAnalyze(t *testing.T) {
	svc := &mockService{}
	score := 6
	svc.On("AnalyzeText", mock.Anything, "my report").Return(&model.Analysis{
		Score:    &score,
		Sections: map[string][]string{model.SectionTips: {"- add units"}},
		Raw:      "raw reply",
	}, nil)
	h := newTestServer(t, svc, testServerConfig())

	rec := doJSON(t, h, http.MethodPost, "/api/analyze", map[string]string{"text": "my report"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.InDelta(t, 6, body["score"], 0)
	assert.InDelta(t, 60, body["percent"], 0)
	assert.Equal(t, "fair", body["band"])
	assert.Equal(t, "raw reply", body["raw"])
}

func TestAnalyze_NoContent(t *testing.T) {
	svc := &mockService{}
	svc.On("AnalyzeText", mock.Anything, " ").Return(nil, pipeline.ErrNoContent)
	h := newTestServer(t, svc, testServerConfig())

	rec := doJSON(t, h, http.MethodPost, "/api/analyze", map[string]string{"text": " "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "input", decodeBody(t, rec)["class"])
}

func TestAnalyze_InvalidJSON(t *testing.T) {
	h := newTestServer(t, &mockService{}, testServerConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body.", decodeBody(t, rec)["error"])
}

func TestAnalyzeUpload(t *testing.T) {
	svc := &mockService{}
	svc.On("AnalyzeDocument", mock.Anything, mock.MatchedBy(func(d model.Document) bool {
		return d.Ext == model.ExtPDF && d.Name == "lab.pdf"
	})).Return(&pipeline.DocumentAnalysis{Text: "Title: X", Analysis: model.Analysis{Raw: "r"}}, nil)
	h := newTestServer(t, svc, testServerConfig())

	rec := doUpload(t, h, "/api/analyze/upload", "lab.pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Title: X", body["text"])
	analysis := body["analysis"].(map[string]any)
	assert.Nil(t, analysis["score"])
	assert.Equal(t, "", analysis["band"])
}

func TestAsk(t *testing.T) {
	svc := &mockService{}
	svc.On("AskFollowup", mock.Anything, "report", "Why?").Return("Because.", nil)
	h := newTestServer(t, svc, testServerConfig())

	rec := doJSON(t, h, http.MethodPost, "/api/ask", map[string]string{"text": "report", "question": "Why?"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Because.", decodeBody(t, rec)["answer"])
}

func TestAsk_AuthError(t *testing.T) {
	svc := &mockService{}
	svc.On("AskFollowup", mock.Anything, mock.Anything, mock.Anything).
		Return("", &ai.AuthenticationError{Provider: "openai", Err: errors.New("401")})
	h := newTestServer(t, svc, testServerConfig())

	rec := doJSON(t, h, http.MethodPost, "/api/ask", map[string]string{"text": "r", "question": "q"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "configuration", body["class"])
	assert.Contains(t, body["error"], "Invalid API Key")
}

func TestDefine(t *testing.T) {
	svc := &mockService{}
	svc.On("DefineTerm", mock.Anything, " osmosis ").Return("Water moving.", nil)
	h := newTestServer(t, svc, testServerConfig())

	rec := doJSON(t, h, http.MethodPost, "/api/define", map[string]string{"term": " osmosis "})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "osmosis", body["term"])
	assert.Equal(t, "Water moving.", body["definition"])
}

func TestRateLimit(t *testing.T) {
	cfg := testServerConfig()
	cfg.RatePerSec = 0.001
	cfg.Burst = 1
	h := newTestServer(t, &mockService{}, cfg)

	rec := doJSON(t, h, http.MethodGet, "/api/templates", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/templates", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "transient", decodeBody(t, rec)["class"])

	// Health checks are not rate limited.
	rec = doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no content", pipeline.ErrNoContent, http.StatusUnprocessableEntity},
		{"empty question", pipeline.ErrEmptyQuestion, http.StatusBadRequest},
		{"engine unavailable", &ocr.EngineUnavailableError{Engine: "tesseract"}, http.StatusServiceUnavailable},
		{"pdf parse", &ocr.PDFParseError{Err: errors.New("x")}, http.StatusUnprocessableEntity},
		{"recognition", &ocr.RecognitionError{Err: errors.New("x")}, http.StatusUnprocessableEntity},
		{"auth", &ai.AuthenticationError{}, http.StatusBadGateway},
		{"upstream", &ai.UpstreamHTTPError{StatusCode: 500}, http.StatusBadGateway},
		{"malformed", &ai.MalformedResponseError{Err: errors.New("x")}, http.StatusBadGateway},
		{"transport", &ai.TransportError{Err: errors.New("x")}, http.StatusGatewayTimeout},
		{"ocr service unreachable", &ocr.ServiceError{Engine: "mistral", Err: errors.New("x")}, http.StatusGatewayTimeout},
		{"queue wait deadline", fmt.Errorf("ai: wait: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"missing key", config.ErrMissingAPIKey, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, class := pipeline.Describe(tt.err)
			assert.Equal(t, tt.want, statusFor(tt.err, class))
		})
	}
}

func TestRequestDeadline(t *testing.T) {
	svc := new(mockService)
	svc.On("AskFollowup", mock.Anything, "r", "q").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return("", fmt.Errorf("ai: wait for in-flight completion: %w", context.DeadlineExceeded))

	cfg := testServerConfig()
	cfg.RequestTimeoutSecs = 1
	h := newTestServer(t, svc, cfg)

	start := time.Now()
	rec := doJSON(t, h, http.MethodPost, "/api/ask", map[string]string{"text": "r", "question": "q"})
	assert.Less(t, time.Since(start), 5*time.Second)
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "timed out")
	assert.Equal(t, "transient", body.Class)
}

func TestRequestDeadline_Disabled(t *testing.T) {
	svc := new(mockService)
	svc.On("DefineTerm", mock.Anything, "density").
		Run(func(args mock.Arguments) {
			_, ok := args.Get(0).(context.Context).Deadline()
			assert.False(t, ok)
		}).
		Return("mass per volume", nil)

	h := newTestServer(t, svc, testServerConfig())
	rec := doJSON(t, h, http.MethodPost, "/api/define", map[string]string{"term": "density"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
