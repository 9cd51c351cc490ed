package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-subprep/internal/audio"
	"github.com/alnah/go-subprep/internal/completion"
	"github.com/alnah/go-subprep/internal/config"
	"github.com/alnah/go-subprep/internal/ffmpeg"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time

	// Logger receives diagnostics. The root command replaces it once flags
	// and config are known.
	Logger zerolog.Logger

	// Factories for domain objects
	FFmpegResolver   FFmpegResolver
	ConfigStore      ConfigStore
	AudioFactory     AudioFactory
	CompleterFactory CompleterFactory
}

// FFmpegResolver resolves the path to the FFmpeg binary.
type FFmpegResolver interface {
	Resolve(ctx context.Context) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string)
}

// ConfigStore loads and edits the persistent configuration.
type ConfigStore interface {
	Load() (config.Config, error)
	Set(key, value string) error
	Get(key string) (string, error)
	List() (map[string]string, error)
}

// Segmenter cuts an audio file into time ranges.
type Segmenter interface {
	Segment(ctx context.Context, audioPath string) ([]audio.TimeRange, error)
}

// Extractor writes time ranges of an audio file to chunk files.
type Extractor interface {
	Extract(ctx context.Context, audioPath string, ranges []audio.TimeRange, dir string) ([]audio.Chunk, error)
}

// SegmentSettings configures a Segmenter.
type SegmentSettings struct {
	TargetLength time.Duration
	ProbeWindow  time.Duration
	Logger       zerolog.Logger
}

// AudioFactory creates the ffmpeg-backed audio components.
type AudioFactory interface {
	NewSegmenter(ffmpegPath string, s SegmentSettings) (Segmenter, error)
	NewExtractor(ffmpegPath string, logger zerolog.Logger) (Extractor, error)
}

// CompleterFactory creates completion service clients.
type CompleterFactory interface {
	NewCompleter(p Provider, apiKey string, opts ...completion.Option) (completion.Completer, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l zerolog.Logger) EnvOption {
	return func(e *Env) {
		e.Logger = l
	}
}

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) {
		e.FFmpegResolver = r
	}
}

// WithConfigStore sets the config store.
func WithConfigStore(s ConfigStore) EnvOption {
	return func(e *Env) {
		e.ConfigStore = s
	}
}

// WithAudioFactory sets the audio component factory.
func WithAudioFactory(f AudioFactory) EnvOption {
	return func(e *Env) {
		e.AudioFactory = f
	}
}

// WithCompleterFactory sets the completion client factory.
func WithCompleterFactory(f CompleterFactory) EnvOption {
	return func(e *Env) {
		e.CompleterFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	env := &Env{
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		Getenv:           os.Getenv,
		Now:              time.Now,
		Logger:           zerolog.Nop(),
		ConfigStore:      &defaultConfigStore{},
		AudioFactory:     &defaultAudioFactory{},
		CompleterFactory: &defaultCompleterFactory{},
	}
	env.FFmpegResolver = &defaultFFmpegResolver{env: env}
	return env
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultFFmpegResolver implements FFmpegResolver using the ffmpeg package.
// Version warnings go to the owning Env's logger at call time.
type defaultFFmpegResolver struct {
	env *Env
}

func (defaultFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	return ffmpeg.Resolve(ctx)
}

func (r defaultFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string) {
	logger := zerolog.Nop()
	if r.env != nil {
		logger = r.env.Logger
	}
	ffmpeg.NewVersionChecker(ffmpeg.WithVersionLogger(logger)).Check(ctx, ffmpegPath)
}

// defaultConfigStore implements ConfigStore on the default config file.
type defaultConfigStore struct{}

func (defaultConfigStore) store() (*config.Store, error) {
	return config.NewStore()
}

func (d defaultConfigStore) Load() (config.Config, error) {
	s, err := d.store()
	if err != nil {
		return config.Config{}, err
	}
	return s.Load()
}

func (d defaultConfigStore) Set(key, value string) error {
	s, err := d.store()
	if err != nil {
		return err
	}
	return s.Set(key, value)
}

func (d defaultConfigStore) Get(key string) (string, error) {
	s, err := d.store()
	if err != nil {
		return "", err
	}
	return s.Get(key)
}

func (d defaultConfigStore) List() (map[string]string, error) {
	s, err := d.store()
	if err != nil {
		return nil, err
	}
	return s.List()
}

// defaultAudioFactory implements AudioFactory using the audio package.
type defaultAudioFactory struct{}

func (defaultAudioFactory) NewSegmenter(ffmpegPath string, s SegmentSettings) (Segmenter, error) {
	estimator, err := audio.NewSilenceEstimator(ffmpegPath, audio.WithLogger(s.Logger))
	if err != nil {
		return nil, err
	}
	seg, err := audio.NewSegmenter(estimator,
		audio.WithTargetLength(s.TargetLength),
		audio.WithProbeWindow(s.ProbeWindow),
		audio.WithSegmenterLogger(s.Logger),
	)
	if err != nil {
		return nil, err
	}
	return seg, nil
}

func (defaultAudioFactory) NewExtractor(ffmpegPath string, logger zerolog.Logger) (Extractor, error) {
	ex, err := audio.NewExtractor(ffmpegPath, audio.WithExtractorLogger(logger))
	if err != nil {
		return nil, err
	}
	return ex, nil
}

// defaultCompleterFactory implements CompleterFactory with an
// OpenAI-compatible client pointed at the provider's endpoint.
type defaultCompleterFactory struct{}

func (defaultCompleterFactory) NewCompleter(p Provider, apiKey string, opts ...completion.Option) (completion.Completer, error) {
	base := []completion.Option{
		completion.WithBaseURL(p.BaseURL()),
		completion.WithModel(p.DefaultModel()),
	}
	c, err := completion.NewClient(apiKey, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Compile-time interface verification.
var (
	_ FFmpegResolver   = (*defaultFFmpegResolver)(nil)
	_ ConfigStore      = (*defaultConfigStore)(nil)
	_ ConfigStore      = (*config.Store)(nil)
	_ AudioFactory     = (*defaultAudioFactory)(nil)
	_ CompleterFactory = (*defaultCompleterFactory)(nil)
	_ Segmenter        = (*audio.Segmenter)(nil)
	_ Extractor        = (*audio.Extractor)(nil)
)
