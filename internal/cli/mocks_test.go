package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/alnah/go-subprep/internal/audio"
	"github.com/alnah/go-subprep/internal/completion"
	"github.com/alnah/go-subprep/internal/config"
)

// ---------------------------------------------------------------------------
// Mock FFmpegResolver
// ---------------------------------------------------------------------------

type mockFFmpegResolver struct {
	ResolveFunc      func(ctx context.Context) (string, error)
	CheckVersionFunc func(ctx context.Context, ffmpegPath string)

	mu           sync.Mutex
	resolveCalls int
}

func (m *mockFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx)
	}
	return "/usr/bin/ffmpeg", nil
}

func (m *mockFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string) {
	if m.CheckVersionFunc != nil {
		m.CheckVersionFunc(ctx, ffmpegPath)
	}
}

func (m *mockFFmpegResolver) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

// ---------------------------------------------------------------------------
// Mock ConfigStore
// ---------------------------------------------------------------------------

type mockConfigStore struct {
	LoadFunc func() (config.Config, error)
	SetFunc  func(key, value string) error

	mu     sync.Mutex
	values map[string]string
	sets   [][2]string
}

func (m *mockConfigStore) Load() (config.Config, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return testConfig(), nil
}

func (m *mockConfigStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SetFunc != nil {
		if err := m.SetFunc(key, value); err != nil {
			return err
		}
	}
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	m.sets = append(m.sets, [2]string{key, value})
	return nil
}

func (m *mockConfigStore) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *mockConfigStore) List() (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

func (m *mockConfigStore) SetCalls() [][2]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][2]string(nil), m.sets...)
}

// ---------------------------------------------------------------------------
// Mock AudioFactory + Segmenter + Extractor
// ---------------------------------------------------------------------------

type mockAudioFactory struct {
	segmenter    *mockSegmenter
	extractor    *mockExtractor
	segmenterErr error

	mu       sync.Mutex
	settings []SegmentSettings
	paths    []string
}

func (m *mockAudioFactory) NewSegmenter(ffmpegPath string, s SegmentSettings) (Segmenter, error) {
	m.mu.Lock()
	m.settings = append(m.settings, s)
	m.paths = append(m.paths, ffmpegPath)
	m.mu.Unlock()

	if m.segmenterErr != nil {
		return nil, m.segmenterErr
	}
	if m.segmenter == nil {
		return &mockSegmenter{}, nil
	}
	return m.segmenter, nil
}

func (m *mockAudioFactory) NewExtractor(ffmpegPath string, _ zerolog.Logger) (Extractor, error) {
	m.mu.Lock()
	m.paths = append(m.paths, ffmpegPath)
	m.mu.Unlock()

	if m.extractor == nil {
		return &mockExtractor{}, nil
	}
	return m.extractor, nil
}

func (m *mockAudioFactory) Settings() []SegmentSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SegmentSettings(nil), m.settings...)
}

type mockSegmenter struct {
	SegmentFunc func(ctx context.Context, audioPath string) ([]audio.TimeRange, error)
}

func (m *mockSegmenter) Segment(ctx context.Context, audioPath string) ([]audio.TimeRange, error) {
	if m.SegmentFunc != nil {
		return m.SegmentFunc(ctx, audioPath)
	}
	return nil, nil
}

type mockExtractor struct {
	ExtractFunc func(ctx context.Context, audioPath string, ranges []audio.TimeRange, dir string) ([]audio.Chunk, error)

	mu   sync.Mutex
	dirs []string
}

func (m *mockExtractor) Extract(ctx context.Context, audioPath string, ranges []audio.TimeRange, dir string) ([]audio.Chunk, error) {
	m.mu.Lock()
	m.dirs = append(m.dirs, dir)
	m.mu.Unlock()

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, audioPath, ranges, dir)
	}
	chunks := make([]audio.Chunk, len(ranges))
	for i, r := range ranges {
		chunks[i] = audio.Chunk{TimeRange: r, Index: i, Path: fmt.Sprintf("%s/chunk_%03d.ogg", dir, i)}
	}
	return chunks, nil
}

func (m *mockExtractor) Dirs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.dirs...)
}

// ---------------------------------------------------------------------------
// Mock CompleterFactory + Completer
// ---------------------------------------------------------------------------

type completerCall struct {
	Provider Provider
	APIKey   string
	NumOpts  int
}

type mockCompleterFactory struct {
	completer *mockCompleter
	err       error

	mu    sync.Mutex
	calls []completerCall
}

func (m *mockCompleterFactory) NewCompleter(p Provider, apiKey string, opts ...completion.Option) (completion.Completer, error) {
	m.mu.Lock()
	m.calls = append(m.calls, completerCall{Provider: p, APIKey: apiKey, NumOpts: len(opts)})
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if m.completer == nil {
		return &mockCompleter{}, nil
	}
	return m.completer, nil
}

func (m *mockCompleterFactory) Calls() []completerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]completerCall(nil), m.calls...)
}

// mockCompleter answers split prompts by cutting the sentence after its
// first word, which always passes the splitter's checks.
type mockCompleter struct {
	CompleteFunc func(ctx context.Context, prompt string) (string, error)

	mu    sync.Mutex
	calls int
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return splitAfterFirstWord(sentenceFromPrompt(prompt)), nil
}

func (m *mockCompleter) CompleteChecked(ctx context.Context, prompt string, check func(string) error) (string, error) {
	resp, err := m.Complete(ctx, prompt)
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

func (m *mockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// sentenceFromPrompt returns the text after the "Sentence: " line.
func sentenceFromPrompt(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if s, ok := strings.CutPrefix(line, "Sentence: "); ok {
			return s
		}
	}
	return ""
}

func splitAfterFirstWord(sentence string) string {
	first, rest, ok := strings.Cut(sentence, " ")
	if !ok {
		return sentence
	}
	return first + " || " + rest
}

// Compile-time interface verification.
var (
	_ FFmpegResolver       = (*mockFFmpegResolver)(nil)
	_ ConfigStore          = (*mockConfigStore)(nil)
	_ AudioFactory         = (*mockAudioFactory)(nil)
	_ Segmenter            = (*mockSegmenter)(nil)
	_ Extractor            = (*mockExtractor)(nil)
	_ CompleterFactory     = (*mockCompleterFactory)(nil)
	_ completion.Completer = (*mockCompleter)(nil)
)
