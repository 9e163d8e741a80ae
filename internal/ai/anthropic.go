package ai

import (
	"context"
	"errors"
	"net/http"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lab-assistant/internal/config"
	"github.com/sells-group/lab-assistant/internal/cost"
	"github.com/sells-group/lab-assistant/internal/model"
	anthropicpkg "github.com/sells-group/lab-assistant/pkg/anthropic"
)

const providerAnthropic = "anthropic"

// Anthropic completes prompts with the Anthropic Messages API.
type Anthropic struct {
	client      anthropicpkg.Client
	model       string
	system      string
	temperature float64
	maxTokens   int64
	calc        *cost.Calculator
}

// NewAnthropic creates an Anthropic completer over an existing client.
func NewAnthropic(client anthropicpkg.Client, cfg config.AIConfig, calc *cost.Calculator) *Anthropic {
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Anthropic{
		client:      client,
		model:       cfg.Model,
		system:      cfg.SystemPrompt,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		calc:        calc,
	}
}

// Complete sends the prompt as a single user message.
func (a *Anthropic) Complete(ctx context.Context, prompt string) (*Completion, error) {
	start := time.Now()
	temp := a.temperature

	resp, err := a.client.CreateMessage(ctx, anthropicpkg.MessageRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      a.system,
		Messages:    []anthropicpkg.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, mapAnthropicError(err)
	}

	text := resp.Text()
	if text == "" {
		return nil, &MalformedResponseError{Provider: providerAnthropic, Err: eris.Errorf("response has no text content (stop_reason %q)", resp.StopReason)}
	}

	c := &Completion{
		Text:  text,
		Model: a.model,
		Usage: model.TokenUsage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}
	c.Usage.Cost = a.calc.Completion(a.model, c.Usage.InputTokens, c.Usage.OutputTokens)
	logCompletion(providerAnthropic, c, time.Since(start))
	return c, nil
}

func mapAnthropicError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized {
			return &AuthenticationError{Provider: providerAnthropic, Err: apiErr}
		}
		return &UpstreamHTTPError{Provider: providerAnthropic, StatusCode: apiErr.StatusCode, Body: apiErr.Error()}
	}
	return &TransportError{Provider: providerAnthropic, Err: err}
}
