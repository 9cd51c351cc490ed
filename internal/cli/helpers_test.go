package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alnah/go-subprep/internal/config"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	ffmpegResolver *mockFFmpegResolver
	configStore    *mockConfigStore
	audio          *mockAudioFactory
	completer      *mockCompleterFactory
}

func newTestMocks() *testMocks {
	return &testMocks{
		ffmpegResolver: &mockFFmpegResolver{},
		configStore:    &mockConfigStore{},
		audio:          &mockAudioFactory{},
		completer:      &mockCompleterFactory{},
	}
}

// ---------------------------------------------------------------------------
// testEnv - creates a fully mocked Env for testing
// ---------------------------------------------------------------------------

// testOutput gives access to what a command wrote.
type testOutput struct {
	stdout *syncBuffer
	stderr *syncBuffer
	logs   *syncBuffer
}

// testEnvOptions configures a test environment.
type testEnvOptions struct {
	getenv func(string) string
	mocks  *testMocks
}

// testEnvOption configures testEnv.
type testEnvOption func(*testEnvOptions)

func withTestGetenv(fn func(string) string) testEnvOption {
	return func(o *testEnvOptions) { o.getenv = fn }
}

func withTestMocks(m *testMocks) testEnvOption {
	return func(o *testEnvOptions) { o.mocks = m }
}

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env, the mocks for assertions and the captured output.
func testEnv(opts ...testEnvOption) (*Env, *testMocks, testOutput) {
	options := &testEnvOptions{
		getenv: defaultTestEnv,
		mocks:  newTestMocks(),
	}
	for _, opt := range opts {
		opt(options)
	}

	out := testOutput{stdout: &syncBuffer{}, stderr: &syncBuffer{}, logs: &syncBuffer{}}
	env := &Env{
		Stdout:           out.stdout,
		Stderr:           out.stderr,
		Getenv:           options.getenv,
		Now:              fixedTime(time.Date(2026, 1, 26, 14, 30, 52, 0, time.UTC)),
		Logger:           zerolog.New(out.logs),
		FFmpegResolver:   options.mocks.ffmpegResolver,
		ConfigStore:      options.mocks.configStore,
		AudioFactory:     options.mocks.audio,
		CompleterFactory: options.mocks.completer,
	}

	return env, options.mocks, out
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// fixedTime returns a function that always returns the given time.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// defaultTestEnv returns API keys for both OpenAI and DeepSeek.
func defaultTestEnv(key string) string {
	switch key {
	case EnvOpenAIAPIKey:
		return "test-openai-key"
	case EnvDeepSeekAPIKey:
		return "test-deepseek-key"
	default:
		return ""
	}
}

// testConfig mirrors the configuration defaults.
func testConfig() config.Config {
	return config.Config{
		Provider:       ProviderOpenAI,
		Language:       "en",
		MaxSplitLength: 75,
		MaxWorkers:     4,
		SplitPasses:    3,
		SegmentLength:  30 * time.Minute,
		ProbeWindow:    60 * time.Second,
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// configWith returns a ConfigStore whose Load returns cfg.
func configWith(cfg config.Config) *mockConfigStore {
	return &mockConfigStore{
		LoadFunc: func() (config.Config, error) { return cfg, nil },
	}
}

// writeTestFile creates a file in a fresh temp dir and returns its path.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

// testCommand returns a cobra command carrying ctx, for run* functions.
func testCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	return cmd
}
