package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sells-group/lab-assistant/internal/guide"
	"github.com/sells-group/lab-assistant/internal/model"
	"github.com/sells-group/lab-assistant/internal/pipeline"
)

type guideRequest struct {
	Template   string `json:"template,omitempty"`
	Name       string `json:"name"`
	Hypothesis string `json:"hypothesis"`
	Materials  string `json:"materials,omitempty"`
	Procedure  string `json:"procedure,omitempty"`
}

type analysisResponse struct {
	Score    *int                `json:"score"`
	Percent  int                 `json:"percent"`
	Band     model.ScoreBand     `json:"band"`
	Sections map[string][]string `json:"sections"`
	Raw      string              `json:"raw"`
}

func newAnalysisResponse(a model.Analysis) analysisResponse {
	return analysisResponse{
		Score:    a.Score,
		Percent:  a.Percent(),
		Band:     a.Band(),
		Sections: a.Sections,
		Raw:      a.Raw,
	}
}

func (s *Server) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"templates": s.catalog.List()})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	text, err := s.svc.ExtractText(r.Context(), doc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleGuide(w http.ResponseWriter, r *http.Request) {
	g, ok := s.generateGuide(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleGuideArtifact(w http.ResponseWriter, r *http.Request) {
	g, ok := s.generateGuide(w, r)
	if !ok {
		return
	}
	page, err := guide.Render(*g)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", guide.DownloadName(g.Experiment.Name)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (s *Server) generateGuide(w http.ResponseWriter, r *http.Request) (*model.Guide, bool) {
	var req guideRequest
	if !decode(w, r, &req) {
		return nil, false
	}

	e := model.Experiment{
		Name:       req.Name,
		Hypothesis: req.Hypothesis,
		Materials:  req.Materials,
		Procedure:  req.Procedure,
	}
	if req.Template != "" {
		tpl, found := s.catalog.Find(req.Template)
		if !found {
			writeBadRequest(w, r, fmt.Sprintf("Unknown experiment template %q.", req.Template))
			return nil, false
		}
		e = withTemplate(e, tpl)
	}

	g, err := s.svc.GenerateGuide(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return g, true
}

// withTemplate fills name and hypothesis from tpl where e leaves them blank.
func withTemplate(e model.Experiment, tpl model.Template) model.Experiment {
	if strings.TrimSpace(e.Name) == "" {
		e.Name = tpl.Name
	}
	if strings.TrimSpace(e.Hypothesis) == "" {
		e.Hypothesis = tpl.Hypothesis
	}
	return e
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &req) {
		return
	}
	a, err := s.svc.AnalyzeText(r.Context(), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAnalysisResponse(*a))
}

func (s *Server) handleAnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	da, err := s.svc.AnalyzeDocument(r.Context(), doc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"text":     da.Text,
		"analysis": newAnalysisResponse(da.Analysis),
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     string `json:"text"`
		Question string `json:"question"`
	}
	if !decode(w, r, &req) {
		return
	}
	answer, err := s.svc.AskFollowup(r.Context(), req.Text, req.Question)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) handleDefine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Term string `json:"term"`
	}
	if !decode(w, r, &req) {
		return
	}
	def, err := s.svc.DefineTerm(r.Context(), req.Term)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"term": strings.TrimSpace(req.Term), "definition": def})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, r, "Invalid request body.")
		return false
	}
	return true
}

// readUpload reads the multipart "file" field into a Document, answering the
// request itself on failure.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (model.Document, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error:     fmt.Sprintf("File is larger than %d MB.", s.cfg.MaxUploadMB),
				Class:     "input",
				RequestID: pipeline.RequestID(r.Context()),
			})
			return model.Document{}, false
		}
		writeBadRequest(w, r, `Upload a file in the "file" form field.`)
		return model.Document{}, false
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		writeBadRequest(w, r, "Could not read the uploaded file.")
		return model.Document{}, false
	}

	doc, err := model.NewDocument(header.Filename, data)
	if err != nil {
		writeError(w, r, err)
		return model.Document{}, false
	}
	return doc, true
}
