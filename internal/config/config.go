package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/alnah/go-subprep/internal/lang"
)

// Config keys.
const (
	KeyOutputDir      = "output-dir"
	KeyProvider       = "provider"
	KeyModel          = "model"
	KeyBaseURL        = "base-url"
	KeyLanguage       = "language"
	KeyMaxSplitLength = "max-split-length"
	KeyMaxWorkers     = "max-workers"
	KeySplitPasses    = "split-passes"
	KeySegmentLength  = "segment-length"
	KeyProbeWindow    = "probe-window"
	KeyHistoryDir     = "history-dir"
	KeyLogLevel       = "log-level"
	KeyLogFormat      = "log-format"
)

// EnvPrefix prefixes environment overrides: max-workers is SUBPREP_MAX_WORKERS.
const EnvPrefix = "SUBPREP"

const (
	appDirName = "go-subprep"
	fileName   = "config.yaml"
	dirPerm    = 0o750
)

// ErrUnknownKey indicates a key that is not a configuration setting.
var ErrUnknownKey = errors.New("unknown config key")

// ErrInvalidValue indicates a value rejected by validation.
var ErrInvalidValue = errors.New("invalid config value")

// ErrNotDirectory indicates an output-dir path that is a file.
var ErrNotDirectory = errors.New("path is not a directory")

// ErrNotWritable indicates an output-dir that cannot be written to.
var ErrNotWritable = errors.New("directory is not writable")

// Keys lists every setting in display order.
var Keys = []string{
	KeyOutputDir,
	KeyProvider,
	KeyModel,
	KeyBaseURL,
	KeyLanguage,
	KeyMaxSplitLength,
	KeyMaxWorkers,
	KeySplitPasses,
	KeySegmentLength,
	KeyProbeWindow,
	KeyHistoryDir,
	KeyLogLevel,
	KeyLogFormat,
}

var defaults = map[string]any{
	KeyOutputDir:      "",
	KeyProvider:       "openai",
	KeyModel:          "",
	KeyBaseURL:        "",
	KeyLanguage:       "en",
	KeyMaxSplitLength: 75,
	KeyMaxWorkers:     4,
	KeySplitPasses:    3,
	KeySegmentLength:  "30m",
	KeyProbeWindow:    "60s",
	KeyHistoryDir:     "",
	KeyLogLevel:       "info",
	KeyLogFormat:      "console",
}

var intKeys = map[string]bool{
	KeyMaxSplitLength: true,
	KeyMaxWorkers:     true,
	KeySplitPasses:    true,
}

// Config holds user configuration. Empty Model and BaseURL mean the
// provider's defaults.
type Config struct {
	OutputDir      string        `mapstructure:"output-dir"`
	Provider       string        `mapstructure:"provider" validate:"oneof=openai deepseek"`
	Model          string        `mapstructure:"model"`
	BaseURL        string        `mapstructure:"base-url" validate:"omitempty,url"`
	Language       string        `mapstructure:"language" validate:"omitempty,langcode"`
	MaxSplitLength int           `mapstructure:"max-split-length" validate:"min=1"`
	MaxWorkers     int           `mapstructure:"max-workers" validate:"min=1,max=32"`
	SplitPasses    int           `mapstructure:"split-passes" validate:"min=1"`
	SegmentLength  time.Duration `mapstructure:"segment-length" validate:"gt=0"`
	ProbeWindow    time.Duration `mapstructure:"probe-window" validate:"gt=0,ltfield=SegmentLength"`
	HistoryDir     string        `mapstructure:"history-dir"`
	LogLevel       string        `mapstructure:"log-level" validate:"oneof=trace debug info warn error"`
	LogFormat      string        `mapstructure:"log-format" validate:"oneof=console json"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("mapstructure")
	})
	_ = v.RegisterValidation("langcode", func(fl validator.FieldLevel) bool {
		return lang.Validate(fl.Field().String()) == nil
	})
	return v
}

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), describe(fe)))
	}
	return fmt.Errorf("%w: %s", ErrInvalidValue, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be positive"
	case "ltfield":
		return "must be shorter than " + KeySegmentLength
	case "url":
		return "must be a URL"
	case "langcode":
		return "must be an ISO 639-1 code"
	default:
		return "failed " + fe.Tag()
	}
}

// Store reads and writes the configuration file.
type Store struct {
	path string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPath overrides the configuration file location.
func WithPath(p string) StoreOption {
	return func(s *Store) {
		s.path = p
	}
}

// NewStore creates a Store on the default file location unless overridden.
func NewStore(opts ...StoreOption) (*Store, error) {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	if s.path == "" {
		p, err := path()
		if err != nil {
			return nil, err
		}
		s.path = p
	}
	return s, nil
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return s.path
}

// newViper returns a viper instance with defaults and env overrides.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// readFile loads the file into v. A missing file is not an error.
func (s *Store) readFile(v *viper.Viper) error {
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load returns the effective configuration.
// Precedence: environment, then config file, then defaults.
func (s *Store) Load() (Config, error) {
	v := newViper()
	if err := s.readFile(v); err != nil {
		return Config{}, err
	}
	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	cfg.Provider = strings.ToLower(cfg.Provider)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.OutputDir = ExpandPath(cfg.OutputDir)
	cfg.HistoryDir = ExpandPath(cfg.HistoryDir)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Set validates and writes a single key to the config file.
// Creates the config directory and file if they don't exist.
func (s *Store) Set(key, value string) error {
	if !IsKey(key) {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	// File-only view: defaults and env must not leak into the written file.
	file := viper.New()
	file.SetConfigType("yaml")
	file.SetConfigFile(s.path)
	if err := file.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read config: %w", err)
	}

	var typed any = value
	if intKeys[key] {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %q is not an integer", ErrInvalidValue, key, value)
		}
		typed = n
	}
	file.Set(key, typed)

	candidate := newViper()
	if err := candidate.MergeConfigMap(file.AllSettings()); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	if _, err := decode(candidate); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	if err := file.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	return nil
}

// Get returns the effective value of key.
func (s *Store) Get(key string) (string, error) {
	if !IsKey(key) {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	v := newViper()
	if err := s.readFile(v); err != nil {
		return "", err
	}
	return v.GetString(key), nil
}

// List returns the effective value of every key.
func (s *Store) List() (map[string]string, error) {
	v := newViper()
	if err := s.readFile(v); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(Keys))
	for _, k := range Keys {
		out[k] = v.GetString(k)
	}
	return out, nil
}

// IsKey reports whether key is a configuration setting.
func IsKey(key string) bool {
	return slices.Contains(Keys, key)
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/go-subprep.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDirName), nil
}

// path returns the full path to the config file.
func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, fileName), nil
}

// Dir returns the configuration directory path.
func Dir() (string, error) {
	return dir()
}

// DefaultHistoryDir returns <config dir>/history.
func DefaultHistoryDir() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "history"), nil
}

// ResolveOutputPath resolves the final output path using the following precedence:
//  1. If output is absolute, use it as-is
//  2. If output is relative and outputDir is set, join them
//  3. If output is empty, use defaultName in outputDir (or cwd if no outputDir)
func ResolveOutputPath(output, outputDir, defaultName string) string {
	if output != "" && filepath.IsAbs(output) {
		return filepath.Clean(output)
	}
	if output != "" {
		if outputDir != "" {
			return filepath.Clean(filepath.Join(outputDir, output))
		}
		return filepath.Clean(output)
	}
	if outputDir != "" {
		return filepath.Clean(filepath.Join(outputDir, defaultName))
	}
	return filepath.Clean(defaultName)
}

// EnsureOutputDir checks that d is a writable directory, creating it if needed.
func EnsureOutputDir(d string) error {
	if d == "" {
		return fmt.Errorf("output-dir cannot be empty")
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(d, dirPerm); err != nil { // #nosec G301 -- user output dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", d, ErrNotDirectory)
	}

	testFile := filepath.Join(d, ".go-subprep-write-test")
	f, err := os.Create(testFile) // #nosec G304 -- path is constructed from validated dir
	if err != nil {
		return fmt.Errorf("%s: %w: %w", d, ErrNotWritable, err)
	}
	_ = f.Close()
	_ = os.Remove(testFile)
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
}
