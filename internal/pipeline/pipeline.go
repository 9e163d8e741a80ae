// Package pipeline sequences extraction, prompting, completion, and parsing
// for each user action. Every call is an isolated invocation: nothing is
// cached or shared between calls except the AI client's single-flight gate.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sells-group/lab-assistant/internal/ai"
	"github.com/sells-group/lab-assistant/internal/model"
	"github.com/sells-group/lab-assistant/internal/prompt"
	"github.com/sells-group/lab-assistant/internal/report"
	"github.com/sells-group/lab-assistant/internal/resilience"
)

// Input errors raised before any remote call.
var (
	ErrNoContent     = eris.New("no report text to analyze")
	ErrEmptyQuestion = eris.New("question is empty")
	ErrEmptyTerm     = eris.New("term is empty")
)

const tracerName = "github.com/sells-group/lab-assistant/internal/pipeline"

// Extractor turns an uploaded document into plain text.
type Extractor interface {
	Extract(ctx context.Context, doc model.Document) (string, error)
}

// DocumentAnalysis is the result of analyzing an uploaded document: the text
// that was extracted and the parsed evaluation of it.
type DocumentAnalysis struct {
	Text     string         `json:"text"`
	Analysis model.Analysis `json:"analysis"`
}

// Pipeline runs the lab assistant's user actions.
type Pipeline struct {
	extractor Extractor
	ai        ai.Completer
	tracer    trace.Tracer
}

// New creates a Pipeline.
func New(extractor Extractor, completer ai.Completer) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		ai:        completer,
		tracer:    otel.Tracer(tracerName),
	}
}

// ExtractText returns the document's text for review. Empty text is a valid
// result.
func (p *Pipeline) ExtractText(ctx context.Context, doc model.Document) (text string, err error) {
	ctx, done := p.begin(ctx, "extract", attribute.String("ext", string(doc.Ext)))
	defer func() { done(err) }()

	text, err = p.extractor.Extract(ctx, doc)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: extract")
	}
	return text, nil
}

// GenerateGuide asks the model for a step-by-step guide to e.
func (p *Pipeline) GenerateGuide(ctx context.Context, e model.Experiment) (g *model.Guide, err error) {
	ctx, done := p.begin(ctx, "guide", attribute.String("experiment", e.Name))
	defer func() { done(err) }()

	if err := e.Validate(); err != nil {
		return nil, err
	}

	c, err := p.complete(ctx, prompt.Experiment(e))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: generate guide")
	}
	return &model.Guide{Experiment: e, Text: c.Text, Model: c.Model, Usage: c.Usage}, nil
}

// AnalyzeText evaluates report text. Blank text fails with ErrNoContent and
// never reaches the model.
func (p *Pipeline) AnalyzeText(ctx context.Context, text string) (a *model.Analysis, err error) {
	ctx, done := p.begin(ctx, "analyze", attribute.Int("text_chars", len(text)))
	defer func() { done(err) }()

	return p.analyze(ctx, text)
}

// AnalyzeDocument extracts text from doc and evaluates it.
func (p *Pipeline) AnalyzeDocument(ctx context.Context, doc model.Document) (da *DocumentAnalysis, err error) {
	ctx, done := p.begin(ctx, "analyze_document", attribute.String("ext", string(doc.Ext)))
	defer func() { done(err) }()

	text, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: extract")
	}

	a, err := p.analyze(ctx, text)
	if err != nil {
		return nil, err
	}
	return &DocumentAnalysis{Text: text, Analysis: *a}, nil
}

// AskFollowup answers a question about the report text.
func (p *Pipeline) AskFollowup(ctx context.Context, text, question string) (answer string, err error) {
	ctx, done := p.begin(ctx, "ask")
	defer func() { done(err) }()

	if strings.TrimSpace(text) == "" {
		return "", ErrNoContent
	}
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}

	c, err := p.complete(ctx, prompt.Followup(text, question))
	if err != nil {
		return "", eris.Wrap(err, "pipeline: ask followup")
	}
	return c.Text, nil
}

// DefineTerm explains a scientific term in simple words.
func (p *Pipeline) DefineTerm(ctx context.Context, term string) (definition string, err error) {
	ctx, done := p.begin(ctx, "define", attribute.String("term", term))
	defer func() { done(err) }()

	if strings.TrimSpace(term) == "" {
		return "", ErrEmptyTerm
	}

	c, err := p.complete(ctx, prompt.Glossary(term))
	if err != nil {
		return "", eris.Wrap(err, "pipeline: define term")
	}
	return c.Text, nil
}

func (p *Pipeline) analyze(ctx context.Context, text string) (*model.Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoContent
	}

	c, err := p.complete(ctx, prompt.Analysis(text))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: analyze report")
	}

	a := report.Parse(c.Text)
	zap.L().Debug("pipeline: parsed analysis",
		zap.String("request_id", RequestID(ctx)),
		zap.Bool("has_score", a.HasScore()),
		zap.Int("sections", len(a.Sections)),
	)
	return &a, nil
}

func (p *Pipeline) complete(ctx context.Context, prompt string) (*ai.Completion, error) {
	ctx, span := p.tracer.Start(ctx, "ai.complete", trace.WithAttributes(attribute.Int("prompt_chars", len(prompt))))
	defer span.End()

	c, err := p.ai.Complete(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("input_tokens", c.Usage.InputTokens),
		attribute.Int("output_tokens", c.Usage.OutputTokens),
	)
	return c, nil
}

// begin starts the span and log context for one user action. The returned
// func ends both and must be called with the action's final error.
func (p *Pipeline) begin(ctx context.Context, action string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	id := RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = WithRequestID(ctx, id)
	}

	attrs = append(attrs, attribute.String("request_id", id))
	ctx, span := p.tracer.Start(ctx, "pipeline."+action, trace.WithAttributes(attrs...))
	log := zap.L().With(zap.String("action", action), zap.String("request_id", id))
	start := time.Now()

	return ctx, func(err error) {
		elapsed := time.Since(start)
		if err != nil {
			class := resilience.ClassOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, string(class))
			log.Warn("pipeline: action failed",
				zap.String("class", string(class)),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
		} else {
			log.Info("pipeline: action complete", zap.Duration("elapsed", elapsed))
		}
		span.End()
	}
}
