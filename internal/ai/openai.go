package ai

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lab-assistant/internal/config"
	"github.com/sells-group/lab-assistant/internal/cost"
	"github.com/sells-group/lab-assistant/internal/model"
	"github.com/sells-group/lab-assistant/pkg/chat"
)

const providerOpenAI = "openai"

// OpenAI completes prompts against an OpenAI-compatible endpoint.
type OpenAI struct {
	client      chat.Client
	model       string
	system      string
	temperature float64
	calc        *cost.Calculator
}

// NewOpenAI creates an OpenAI completer over an existing chat client.
func NewOpenAI(client chat.Client, cfg config.AIConfig, calc *cost.Calculator) *OpenAI {
	return &OpenAI{
		client:      client,
		model:       cfg.Model,
		system:      cfg.SystemPrompt,
		temperature: cfg.Temperature,
		calc:        calc,
	}
}

// Complete sends the system instruction and prompt and returns
// choices[0].message.content.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (*Completion, error) {
	start := time.Now()
	temp := o.temperature

	resp, err := o.client.ChatCompletion(ctx, chat.ChatCompletionRequest{
		Model: o.model,
		Messages: []chat.Message{
			{Role: "system", Content: o.system},
			{Role: "user", Content: prompt},
		},
		Temperature: &temp,
	})
	if err != nil {
		return nil, mapChatError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &MalformedResponseError{Provider: providerOpenAI, Err: eris.New("response has no choices")}
	}
	text, ok := resp.Choices[0].Content()
	if !ok {
		return nil, &MalformedResponseError{Provider: providerOpenAI, Err: eris.New("choices[0] has no message content")}
	}

	modelID := resp.Model
	if modelID == "" {
		modelID = o.model
	}
	c := &Completion{
		Text:  text,
		Model: modelID,
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	c.Usage.Cost = o.calc.Completion(o.model, c.Usage.InputTokens, c.Usage.OutputTokens)
	logCompletion(providerOpenAI, c, time.Since(start))
	return c, nil
}

func mapChatError(err error) error {
	var se *chat.StatusError
	if errors.As(err, &se) {
		if se.StatusCode == http.StatusUnauthorized {
			return &AuthenticationError{Provider: providerOpenAI, Err: se}
		}
		return &UpstreamHTTPError{Provider: providerOpenAI, StatusCode: se.StatusCode, Body: se.Body}
	}

	var de *chat.DecodeError
	if errors.As(err, &de) {
		return &MalformedResponseError{Provider: providerOpenAI, Err: de}
	}

	return &TransportError{Provider: providerOpenAI, Err: err}
}
