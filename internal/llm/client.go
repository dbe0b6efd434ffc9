// Package llm implements the provider client: an OpenAI-compatible chat
// completion transport with retries, optional streaming, client-side rate
// limiting, response caching, and per-request usage accounting.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"

	"github.com/yourusername/editorkit/internal/cache"
	"github.com/yourusername/editorkit/internal/config"
	"github.com/yourusername/editorkit/internal/ratelimit"
	"github.com/yourusername/editorkit/internal/tokenizer"
)

const (
	// MaxRetries is the total attempt budget per request.
	MaxRetries = 3
	// InitialRetryDelay is the backoff before the first retry; it doubles
	// on each subsequent retry.
	InitialRetryDelay = 1 * time.Second
)

// Client talks to one model of one provider. It is safe for concurrent use.
type Client struct {
	cfg       config.ModelConfig
	api       *openai.Client
	cache     cache.Cache
	limiter   *ratelimit.Limiter
	obs       Observer
	ledger    *Ledger
	streaming bool
	thinking  string
	timer     backoff.Timer
}

// Option configures a Client.
type Option func(*Client)

// WithCache enables response caching.
func WithCache(c cache.Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithRateLimiter replaces the default limiter. Passing nil disables
// client-side throttling.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(cl *Client) { cl.limiter = l }
}

// WithObserver sets the progress/stream observer.
func WithObserver(o Observer) Option {
	return func(cl *Client) { cl.obs = o }
}

// WithStreaming toggles SSE streaming of responses.
func WithStreaming(on bool) Option {
	return func(cl *Client) { cl.streaming = on }
}

// WithThinkingLevel overrides the catalog's reasoning effort for this client.
func WithThinkingLevel(level string) Option {
	return func(cl *Client) { cl.thinking = level }
}

// WithRetryTimer injects the timer used between retries. Tests use this to
// avoid real sleeps.
func WithRetryTimer(t backoff.Timer) Option {
	return func(cl *Client) { cl.timer = t }
}

// NewClient builds a client for a resolved catalog model. The API key is read
// from the environment variable the catalog names; a missing key is an
// *AuthError.
func NewClient(cfg config.ModelConfig, opts ...Option) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, &AuthError{EnvVar: cfg.APIKeyEnv}
	}

	apiCfg := openai.DefaultConfig(key)
	apiCfg.BaseURL = cfg.BaseURL

	cl := &Client{
		cfg:      cfg,
		api:      openai.NewClientWithConfig(apiCfg),
		limiter:  ratelimit.New(cfg.MinInterval, cfg.MaxPerMinute),
		obs:      NopObserver{},
		ledger:   &Ledger{},
		thinking: cfg.ReasoningEffort,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl, nil
}

// ModelName returns the catalog-facing model name.
func (c *Client) ModelName() string { return c.cfg.Name }

// Currency returns the provider's pricing currency symbol.
func (c *Client) Currency() string { return c.cfg.Currency }

// ContextWindow returns the model's context window in tokens.
func (c *Client) ContextWindow() int { return c.cfg.ContextWindow }

// MaxTokens returns the per-request output token limit.
func (c *Client) MaxTokens() int { return c.cfg.MaxTokens }

// Ledger returns the usage ledger accumulated by this client.
func (c *Client) Ledger() *Ledger { return c.ledger }

// CacheStats reports cache counters, or zeroes when caching is off.
func (c *Client) CacheStats() cache.Stats {
	if c.cache == nil {
		return cache.Stats{}
	}
	return c.cache.Stats()
}

// Generate sends one prompt and returns the full response text plus its usage
// record. Cache hits return immediately with a zero-token record. requestName
// labels the usage entry for reporting.
func (c *Client) Generate(ctx context.Context, prompt, requestName string) (string, Usage, error) {
	if c.cache != nil {
		if resp, ok := c.cache.Get(c.cfg.Name, prompt); ok {
			c.obs.Progress(fmt.Sprintf("cache hit for %s", requestName))
			return resp, Usage{RequestName: requestName, Timestamp: time.Now()}, nil
		}
	}

	start := time.Now()
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", Usage{}, fmt.Errorf("llm.Client.Generate: %w", err)
		}
	}

	req := openai.ChatCompletionRequest{
		Model: c.cfg.ID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	if c.thinking != "" {
		req.ReasoningEffort = c.thinking
	}
	if c.cfg.TopP != 0 {
		req.TopP = c.cfg.TopP
	}

	text, promptTokens, completionTokens, err := c.send(ctx, req, prompt)
	if err != nil {
		return "", Usage{}, err
	}

	usage := Usage{
		RequestName:  requestName,
		InputTokens:  promptTokens,
		OutputTokens: completionTokens,
		CostInput:    float64(promptTokens) / 1e6 * c.cfg.PriceInput,
		CostOutput:   float64(completionTokens) / 1e6 * c.cfg.PriceOutput,
		ProcessTime:  time.Since(start),
		Timestamp:    time.Now(),
	}
	usage.TotalCost = usage.CostInput + usage.CostOutput
	c.ledger.Add(usage)

	if c.cache != nil {
		c.cache.Set(c.cfg.Name, prompt, text)
	}
	return text, usage, nil
}

// send runs the request under the retry policy: exponential backoff starting
// at InitialRetryDelay, doubling, up to MaxRetries total attempts. Every
// provider error counts against the budget.
func (c *Client) send(ctx context.Context, req openai.ChatCompletionRequest, prompt string) (string, int, int, error) {
	var (
		text             string
		promptTokens     int
		completionTokens int
		attempts         int
	)

	op := func() error {
		attempts++
		var err error
		if c.streaming {
			text, promptTokens, completionTokens, err = c.stream(ctx, req, prompt)
		} else {
			text, promptTokens, completionTokens, err = c.complete(ctx, req, prompt)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.obs.Progress(fmt.Sprintf("attempt %d failed (%v), retrying in %s", attempts, err, wait))
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = InitialRetryDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, MaxRetries-1), ctx)
	if err := backoff.RetryNotifyWithTimer(op, policy, notify, c.timer); err != nil {
		return "", 0, 0, &TransportError{Attempts: attempts, Err: err}
	}
	return text, promptTokens, completionTokens, nil
}

// complete performs a non-streaming chat completion.
func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest, prompt string) (string, int, int, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", 0, 0, err
	}
	if len(resp.Choices) == 0 {
		return "", 0, 0, errors.New("provider returned no choices")
	}
	text := resp.Choices[0].Message.Content
	in, out := resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	if in == 0 && out == 0 {
		in, out = estimateUsage(prompt, text)
	}
	return text, in, out, nil
}

// stream performs a streaming chat completion, forwarding each delta to the
// observer. Providers that honor include_usage send token counts in the final
// chunk; otherwise counts fall back to the local estimator.
func (c *Client) stream(ctx context.Context, req openai.ChatCompletionRequest, prompt string) (string, int, int, error) {
	req.Stream = true
	req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	s, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", 0, 0, err
	}
	defer s.Close()

	var sb strings.Builder
	var in, out int
	var gotUsage bool
	for {
		resp, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", 0, 0, err
		}
		if resp.Usage != nil {
			in, out = resp.Usage.PromptTokens, resp.Usage.CompletionTokens
			gotUsage = true
		}
		if len(resp.Choices) > 0 {
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				sb.WriteString(delta)
				c.obs.StreamChunk(delta)
			}
		}
	}

	text := sb.String()
	if !gotUsage {
		in, out = estimateUsage(prompt, text)
	}
	return text, in, out, nil
}

func estimateUsage(prompt, response string) (int, int) {
	return tokenizer.EstimateTokens(prompt), tokenizer.EstimateTokens(response)
}
