// Package split breaks overlong sentences into two parts at a natural
// boundary of meaning, using a completion service and a deterministic
// midpoint fallback.
package split

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-subprep/internal/apierr"
	"github.com/alnah/go-subprep/internal/completion"
	"github.com/alnah/go-subprep/internal/prompt"
)

// Default configuration values.
const (
	DefaultMaxLength  = 75
	DefaultWorkers    = 4
	DefaultPasses     = 3
	defaultRetries    = 2
	defaultRetryDelay = 3 * time.Second
)

// SplitResult is the outcome of splitting one sentence.
// Parts holds the sentence itself when no split was needed.
type SplitResult struct {
	Original string
	Parts    []string
	// Fallback is set when the parts come from the midpoint split.
	Fallback bool
}

// Split reports whether the sentence was divided.
func (r SplitResult) Split() bool {
	return len(r.Parts) > 1
}

// Splitter divides sentences longer than a maximum rune length.
// It is safe for concurrent use.
type Splitter struct {
	completer  completion.Completer
	maxLength  int
	workers    int
	passes     int
	retries    int
	retryDelay time.Duration
	separator  string
	language   string
	structured bool
	logger     zerolog.Logger
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithMaxLength sets the maximum sentence length in runes.
func WithMaxLength(n int) Option {
	return func(s *Splitter) {
		s.maxLength = n
	}
}

// WithWorkers sets the number of sentences processed concurrently.
func WithWorkers(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithPasses sets how many times the whole list is processed.
func WithPasses(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.passes = n
		}
	}
}

// WithRetry sets the retries after a failed split and the fixed delay between them.
func WithRetry(retries int, delay time.Duration) Option {
	return func(s *Splitter) {
		if retries >= 0 {
			s.retries = retries
		}
		if delay > 0 {
			s.retryDelay = delay
		}
	}
}

// WithSeparator sets the two-part marker requested from the service.
func WithSeparator(sep string) Option {
	return func(s *Splitter) {
		if sep != "" {
			s.separator = sep
		}
	}
}

// WithLanguage sets the language code mentioned in prompts.
func WithLanguage(code string) Option {
	return func(s *Splitter) {
		s.language = code
	}
}

// WithStructuredOutput asks the service for a JSON answer instead of
// a separator-marked sentence.
func WithStructuredOutput(on bool) Option {
	return func(s *Splitter) {
		s.structured = on
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Splitter) {
		s.logger = l
	}
}

// NewSplitter creates a Splitter backed by c.
func NewSplitter(c completion.Completer, opts ...Option) (*Splitter, error) {
	if c == nil {
		return nil, ErrNoCompleter
	}
	s := &Splitter{
		completer:  c,
		maxLength:  DefaultMaxLength,
		workers:    DefaultWorkers,
		passes:     DefaultPasses,
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
		separator:  prompt.DefaultSeparator,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxLength < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, s.maxLength)
	}
	s.logger = s.logger.With().Str("component", "splitter").Logger()
	return s, nil
}

// SplitOne splits sentence in two if it is longer than the maximum length.
// A sentence that fits is returned unchanged. When the service keeps failing,
// the sentence is cut at its rune midpoint so that the parts concatenate back
// to the original exactly. SplitOne never fails.
func (s *Splitter) SplitOne(ctx context.Context, sentence string) SplitResult {
	if utf8.RuneCountInString(sentence) <= s.maxLength {
		return SplitResult{Original: sentence, Parts: []string{sentence}}
	}

	cfg := apierr.RetryConfig{
		MaxRetries: s.retries,
		BaseDelay:  s.retryDelay,
		MaxDelay:   s.retryDelay,
		Multiplier: 1,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			s.logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("split attempt failed, retrying")
		},
	}
	parts, err := apierr.RetryWithBackoff(ctx, cfg, func() ([]string, error) {
		return s.ask(ctx, sentence)
	}, func(err error) bool {
		return ctx.Err() == nil && !errors.Is(err, prompt.ErrEmptyInput)
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int("runes", utf8.RuneCountInString(sentence)).
			Msg("falling back to midpoint split")
		return SplitResult{Original: sentence, Parts: midpoint(sentence), Fallback: true}
	}
	return SplitResult{Original: sentence, Parts: parts}
}

// ask requests one split from the service and validates it.
func (s *Splitter) ask(ctx context.Context, sentence string) ([]string, error) {
	name := prompt.SplitName
	if s.structured {
		name = prompt.SplitJSONName
	}
	p, err := name.Render(prompt.Data{Sentence: sentence, Separator: s.separator, Language: s.language})
	if err != nil {
		return nil, err
	}

	if s.structured {
		validate := completion.ValidatorFunc[splitAnswer](func(a splitAnswer) completion.Result[splitAnswer] {
			parts, err := checkParts(sentence, a.Parts)
			if err != nil {
				return completion.Invalid[splitAnswer](err.Error())
			}
			return completion.Valid(splitAnswer{Parts: parts})
		})
		a, err := completion.CompleteStructured[splitAnswer](ctx, s.completer, p, validate)
		if err != nil {
			return nil, err
		}
		return a.Parts, nil
	}

	var parts []string
	_, err = s.completer.CompleteChecked(ctx, p, func(resp string) error {
		got, err := s.parseResponse(sentence, resp)
		if err != nil {
			return err
		}
		parts = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return parts, nil
}

// splitAnswer is the JSON shape requested in structured mode.
type splitAnswer struct {
	Parts []string `json:"parts"`
}

// parseResponse extracts the two parts from a separator-marked answer.
func (s *Splitter) parseResponse(sentence, resp string) ([]string, error) {
	if !strings.Contains(resp, s.separator) {
		return nil, ErrNoSeparator
	}
	return checkParts(sentence, strings.Split(strings.TrimSpace(resp), s.separator))
}

// checkParts trims parts and verifies they are exactly two non-empty pieces
// of sentence, ignoring whitespace.
func checkParts(sentence string, parts []string) ([]string, error) {
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: got %d parts", ErrBadSplit, len(parts))
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
		if out[i] == "" {
			return nil, fmt.Errorf("%w: part %d is empty", ErrBadSplit, i+1)
		}
	}
	if stripSpace(out[0]+out[1]) != stripSpace(sentence) {
		return nil, fmt.Errorf("%w: text was altered", ErrBadSplit)
	}
	return out, nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// midpoint cuts s at half its rune count. Parts are not trimmed.
func midpoint(s string) []string {
	r := []rune(s)
	mid := len(r) / 2
	return []string{string(r[:mid]), string(r[mid:])}
}

// SplitByMeaning runs the configured number of passes over sentences. Each
// pass splits every overlong sentence in parallel, so parts still too long
// are split again by the next pass. Output keeps input order, with split
// parts in place of their sentence. A sentence whose worker panics is kept
// as is.
func (s *Splitter) SplitByMeaning(ctx context.Context, sentences []string) []string {
	out := sentences
	for n := 1; n <= s.passes; n++ {
		var splits int
		out, splits = s.pass(ctx, out)
		s.logger.Info().
			Int("pass", n).
			Int("split", splits).
			Int("sentences", len(out)).
			Msg("split pass complete")
	}
	return out
}

// pass processes one round and reports how many sentences were divided.
func (s *Splitter) pass(ctx context.Context, sentences []string) ([]string, int) {
	results := make([]SplitResult, len(sentences))

	// Plain Group: one sentence failing must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, sentence := range sentences {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error().
						Interface("panic", r).
						Int("index", i).
						Msg("split worker panicked, keeping original sentence")
					results[i] = SplitResult{Original: sentence, Parts: []string{sentence}}
				}
			}()
			results[i] = s.SplitOne(ctx, sentence)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]string, 0, len(sentences))
	splits := 0
	for _, r := range results {
		if !r.Split() {
			out = append(out, r.Parts...)
			continue
		}
		splits++
		before := len(out)
		for _, p := range r.Parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) == before {
			out = append(out, r.Original)
		}
	}
	return out, splits
}
