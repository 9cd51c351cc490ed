// Package completion talks to an OpenAI-compatible chat completion service.
// It adds bounded retries, a persisted request history and a structured
// JSON mode with typed validation on top of go-openai.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-subprep/internal/apierr"
)

// Completer sends single-turn prompts to a completion service.
type Completer interface {
	// Complete returns the service's free-text answer to prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteChecked is Complete with a response check. A non-nil error
	// from check marks the answer invalid; it is returned wrapped in
	// apierr.ErrInvalidResponse without a new request.
	CompleteChecked(ctx context.Context, prompt string, check func(response string) error) (string, error)
}

// chatCompleter is satisfied by *openai.Client.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Completer     = (*Client)(nil)
	_ chatCompleter = (*openai.Client)(nil)
)

// Default configuration values.
const (
	DefaultModel       = "gpt-4o-mini"
	defaultTemperature = 0.7
	defaultTimeout     = 120 * time.Second

	// Five attempts in total, waiting 3s, 6s, 12s, 24s between them.
	defaultMaxRetries = 4
	defaultBaseDelay  = 3 * time.Second
	defaultMaxDelay   = time.Minute
)

// Client is a Completer backed by an OpenAI-compatible API.
type Client struct {
	api         chatCompleter
	baseURL     string
	httpClient  *http.Client
	model       string
	temperature float32
	timeout     time.Duration
	retry       apierr.RetryConfig
	history     *History
	rejects     *History
	logger      zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithModel sets the model identifier sent with every request.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(c *Client) {
		if t >= 0 {
			c.temperature = t
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retry.MaxRetries = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, max time.Duration) Option {
	return func(c *Client) {
		if base > 0 {
			c.retry.BaseDelay = base
		}
		if max > 0 {
			c.retry.MaxDelay = max
		}
	}
}

// WithHistory sets the log consulted before and appended after each request.
func WithHistory(h *History) Option {
	return func(c *Client) {
		c.history = h
	}
}

// WithErrorHistory sets the log receiving responses that failed validation.
func WithErrorHistory(h *History) Option {
	return func(c *Client) {
		c.rejects = h
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// withChatCompleter sets a custom chat completer (for testing).
func withChatCompleter(cc chatCompleter) Option {
	return func(c *Client) {
		c.api = cc
	}
}

// NewClient creates a Client authenticated with apiKey.
// Returns ErrEmptyAPIKey if apiKey is empty.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrEmptyAPIKey
	}

	c := &Client{
		model:       DefaultModel,
		temperature: defaultTemperature,
		timeout:     defaultTimeout,
		retry: apierr.RetryConfig{
			MaxRetries: defaultMaxRetries,
			BaseDelay:  defaultBaseDelay,
			MaxDelay:   defaultMaxDelay,
			Multiplier: 2,
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "completion").Logger()

	if c.api == nil {
		cfg := openai.DefaultConfig(apiKey)
		if c.baseURL != "" {
			cfg.BaseURL = c.baseURL
		}
		if c.httpClient != nil {
			cfg.HTTPClient = c.httpClient
		} else {
			cfg.HTTPClient = &http.Client{Timeout: c.timeout}
		}
		c.api = openai.NewClientWithConfig(cfg)
	}

	c.retry.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("completion attempt failed, retrying")
	}
	return c, nil
}

// Model returns the model identifier in use.
func (c *Client) Model() string {
	return c.model
}

// Complete returns the service's answer to prompt.
// A prior answer for the same (model, prompt) in the history is returned
// without a request. Transient failures are retried with exponential backoff.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteChecked(ctx, prompt, nil)
}

// CompleteChecked is Complete with a response check.
// Responses rejected by check are appended to the error history and
// returned as apierr.ErrInvalidResponse. Only transport failures are
// retried here; asking again for a better answer is the caller's policy.
// A history entry that fails check is bypassed.
func (c *Client) CompleteChecked(ctx context.Context, prompt string, check func(string) error) (string, error) {
	useHistory := true

	return apierr.RetryWithBackoff(ctx, c.retry, func() (string, error) {
		if useHistory {
			if cached, ok := c.history.Lookup(c.model, prompt); ok {
				if err := runCheck(check, cached); err == nil {
					c.logger.Debug().Msg("answer found in history")
					return cached, nil
				}
				useHistory = false
			}
		}

		resp, err := c.send(ctx, prompt)
		if err != nil {
			return "", err
		}

		if err := runCheck(check, resp); err != nil {
			if rerr := c.rejects.Record(Record{Model: c.model, Prompt: prompt, Response: resp, Message: err.Error()}); rerr != nil {
				c.logger.Warn().Err(rerr).Msg("failed to record rejected response")
			}
			return "", err
		}

		if err := c.history.Record(Record{Model: c.model, Prompt: prompt, Response: resp}); err != nil {
			c.logger.Warn().Err(err).Msg("failed to record response")
		}
		return resp, nil
	}, isRetryable)
}

// runCheck applies check, wrapping its failure in ErrInvalidResponse.
func runCheck(check func(string) error, resp string) error {
	if check == nil {
		return nil
	}
	if err := check(resp); err != nil {
		if errors.Is(err, apierr.ErrInvalidResponse) {
			return err
		}
		return fmt.Errorf("%w: %w", apierr.ErrInvalidResponse, err)
	}
	return nil
}

// send issues one chat completion request.
func (c *Client) send(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: c.temperature,
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %w", apierr.ErrServer, ErrEmptyResponse)
	}

	c.logger.Debug().
		Str("model", c.model).
		Dur("elapsed", time.Since(start)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("completion received")
	return resp.Choices[0].Message.Content, nil
}

// isRetryable reports whether another request may succeed.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return apierr.IsTransient(err)
}
