// Package ai sends prompts to a hosted chat model and maps every failure to
// a typed error. Nothing in this package retries.
package ai

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/lab-assistant/internal/config"
	"github.com/sells-group/lab-assistant/internal/cost"
	"github.com/sells-group/lab-assistant/internal/model"
	anthropicpkg "github.com/sells-group/lab-assistant/pkg/anthropic"
	"github.com/sells-group/lab-assistant/pkg/chat"
)

// Completion is the text of one model reply plus its accounting.
type Completion struct {
	Text  string
	Model string
	Usage model.TokenUsage
}

// Completer sends one prompt and returns the model's reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
}

// New creates a Completer for the configured provider, serialized so that at
// most one request is in flight per process.
func New(cfg config.AIConfig, calc *cost.Calculator) (Completer, error) {
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, eris.Wrap(config.ErrMissingAPIKey, "ai: new client")
	}

	var c Completer
	switch cfg.Provider {
	case "openai", "":
		opts := []chat.Option{chat.WithModel(cfg.Model), chat.WithTimeout(cfg.Timeout())}
		if cfg.BaseURL != "" {
			opts = append(opts, chat.WithBaseURL(cfg.BaseURL))
		}
		c = NewOpenAI(chat.NewClient(cfg.Key, opts...), cfg, calc)
	case "anthropic":
		opts := []anthropicpkg.Option{anthropicpkg.WithTimeout(cfg.Timeout())}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropicpkg.WithBaseURL(cfg.BaseURL))
		}
		c = NewAnthropic(anthropicpkg.NewClient(cfg.Key, opts...), cfg, calc)
	default:
		return nil, eris.Errorf("ai: unknown provider %q", cfg.Provider)
	}

	return Serialize(c), nil
}

// Serialize wraps c so that concurrent callers take turns.
func Serialize(c Completer) Completer {
	return &serialized{next: c, sem: semaphore.NewWeighted(1)}
}

type serialized struct {
	next Completer
	sem  *semaphore.Weighted
}

func (s *serialized) Complete(ctx context.Context, prompt string) (*Completion, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, eris.Wrap(err, "ai: wait for in-flight completion")
	}
	defer s.sem.Release(1)
	return s.next.Complete(ctx, prompt)
}

func logCompletion(provider string, c *Completion, elapsed time.Duration) {
	zap.L().Info("ai: completion",
		zap.String("provider", provider),
		zap.String("model", c.Model),
		zap.Int("input_tokens", c.Usage.InputTokens),
		zap.Int("output_tokens", c.Usage.OutputTokens),
		zap.Float64("estimated_cost_usd", c.Usage.Cost),
		zap.Int("response_chars", len(c.Text)),
		zap.Duration("elapsed", elapsed),
	)
}
