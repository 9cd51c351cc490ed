package completion_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/alnah/go-subprep/internal/apierr"
)

// syncBuffer is a bytes.Buffer safe for the concurrent writes of a logger.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(w *syncBuffer) zerolog.Logger {
	return zerolog.New(w).Level(zerolog.DebugLevel)
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}

// scriptedCompleter answers each call with the next response in a fixed
// list, checking it once like a Client does.
type scriptedCompleter struct {
	mu        sync.Mutex
	responses []string
	calls     int
	rejects   []error
}

func (s *scriptedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return s.CompleteChecked(ctx, prompt, nil)
}

func (s *scriptedCompleter) CompleteChecked(_ context.Context, _ string, check func(string) error) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.calls >= len(s.responses) {
		return "", errors.New("no scripted response left")
	}
	resp := s.responses[s.calls]
	s.calls++
	if check == nil {
		return resp, nil
	}
	if err := check(resp); err != nil {
		s.rejects = append(s.rejects, err)
		return "", fmt.Errorf("%w: %w", apierr.ErrInvalidResponse, err)
	}
	return resp, nil
}
