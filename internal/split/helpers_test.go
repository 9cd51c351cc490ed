package split_test

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// fakeCompleter answers every prompt with answer(prompt). Checked calls run
// the check once per call, without internal retries.
type fakeCompleter struct {
	mu      sync.Mutex
	answer  func(prompt string) (string, error)
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteChecked(ctx, prompt, nil)
}

func (f *fakeCompleter) CompleteChecked(_ context.Context, prompt string, check func(string) error) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	resp, err := f.answer(prompt)
	if err != nil {
		return "", err
	}
	if check != nil {
		if err := check(resp); err != nil {
			return "", err
		}
	}
	return resp, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// sentenceOf pulls the sentence back out of a rendered split prompt.
func sentenceOf(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if s, ok := strings.CutPrefix(line, "Sentence: "); ok {
			return s
		}
	}
	return ""
}

// halveWords answers with the sentence cut between its middle words.
func halveWords(prompt string) (string, error) {
	words := strings.Fields(sentenceOf(prompt))
	mid := len(words) / 2
	return strings.Join(words[:mid], " ") + " || " + strings.Join(words[mid:], " "), nil
}

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
	return zerolog.New(w)
}
