package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"scz-inmuebles/utils"
)

var (
	// ErrNoProviders is returned by a Chain with no configured provider.
	ErrNoProviders = errors.New("llm: no providers configured")
	// ErrEmptyResponse is returned when a provider answers with no content.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Provider is a chat completion capability: it takes a prompt and returns the
// model's text answer.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Completion is the answer of a Chain together with who served it.
type Completion struct {
	Text         string
	Provider     string
	Model        string
	FallbackUsed bool
}

// Chain tries its providers in order until one of them answers. Every request
// to any provider passes through a shared rate limiter.
type Chain struct {
	providers []Provider
	limiter   *rate.Limiter
	retry     *utils.RetryConfig
	logger    *utils.Logger
}

// NewChain builds a Chain. interval is the minimum delay between two requests;
// zero or less disables throttling. A nil retry config means one attempt per
// provider.
func NewChain(providers []Provider, interval time.Duration, retry *utils.RetryConfig, logger *utils.Logger) *Chain {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1}
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Chain{
		providers: providers,
		limiter:   rate.NewLimiter(limit, 1),
		retry:     retry,
		logger:    logger,
	}
}

// Len returns the number of providers in the chain.
func (c *Chain) Len() int { return len(c.providers) }

// Complete sends prompt to the first provider, retrying it per the retry
// config, and moves to the next provider when it keeps failing.
func (c *Chain) Complete(ctx context.Context, prompt string) (Completion, error) {
	if len(c.providers) == 0 {
		return Completion{}, ErrNoProviders
	}

	var errs []error
	for i, p := range c.providers {
		var text string
		err := c.retry.Do(ctx, "llm "+p.Name(), func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
			out, err := p.Complete(ctx, prompt)
			if err != nil {
				return err
			}
			if strings.TrimSpace(out) == "" {
				return ErrEmptyResponse
			}
			text = out
			return nil
		})
		if err == nil {
			if i > 0 {
				c.logger.Info("[llm] Served by fallback provider %s (%s)", p.Name(), p.Model())
			}
			return Completion{Text: text, Provider: p.Name(), Model: p.Model(), FallbackUsed: i > 0}, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if ctx.Err() != nil {
			break
		}
		c.logger.Warn("[llm] Provider %s failed: %v", p.Name(), err)
	}
	return Completion{}, fmt.Errorf("llm: all providers failed: %w", errors.Join(errs...))
}
