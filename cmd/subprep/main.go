package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-subprep/internal/apierr"
	"github.com/alnah/go-subprep/internal/audio"
	"github.com/alnah/go-subprep/internal/cli"
	"github.com/alnah/go-subprep/internal/config"
	"github.com/alnah/go-subprep/internal/ffmpeg"
	"github.com/alnah/go-subprep/internal/interrupt"
	"github.com/alnah/go-subprep/internal/lang"
	"github.com/alnah/go-subprep/internal/logging"
	"github.com/alnah/go-subprep/internal/timeline"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitCompletion = 5
	ExitMedia      = 6
	ExitInterrupt  = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	handler, ctx := interrupt.NewHandler(context.Background())

	env := cli.DefaultEnv()
	rootCmd := newRootCmd(env)

	err := rootCmd.ExecuteContext(ctx)
	if handler.WasInterrupted() && err != nil {
		err = errors.Join(context.Canceled, err)
	}
	handler.Stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// newRootCmd builds the command tree around env.
func newRootCmd(env *cli.Env) *cobra.Command {
	var logLevel, logFormat string

	rootCmd := &cobra.Command{
		Use:   "subprep",
		Short: "Prepare transcripts for subtitle localization",
		Long: `subprep prepares audio and transcripts for subtitling.

  segment   cut long recordings at silences
  timeline  rebuild a word timeline table from a transcript
  split     split long sentences at meaning boundaries
  align     map cut markers back onto original sentences`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd, env, logLevel, logFormat)
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (default: config log-level)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console, json (default: config log-format)")

	rootCmd.AddCommand(cli.SegmentCmd(env))
	rootCmd.AddCommand(cli.TimelineCmd(env))
	rootCmd.AddCommand(cli.SplitCmd(env))
	rootCmd.AddCommand(cli.AlignCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	return rootCmd
}

// setupLogging builds the run logger from flags, then config.
// A config that fails to load is fatal except for the config command,
// which must stay usable to repair it.
func setupLogging(cmd *cobra.Command, env *cli.Env, level, format string) error {
	cfg, err := env.ConfigStore.Load()
	if err != nil {
		if !isConfigCommand(cmd) {
			return err
		}
		fmt.Fprintf(env.Stderr, "Warning: %v\n", err)
	}
	if level == "" {
		level = cfg.LogLevel
	}
	if format == "" {
		format = cfg.LogFormat
	}

	logger, err := logging.New(env.Stderr, logging.Config{Level: level, Format: format, Timestamp: true})
	if err != nil {
		return err
	}
	env.Logger = logger.With().Str(logging.FieldRunID, uuid.NewString()).Logger()
	return nil
}

func isConfigCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" {
			return true
		}
	}
	return false
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Cobra doesn't expose typed errors, so we check for known message patterns.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	switch {
	case isAny(err, ffmpeg.ErrNotFound, cli.ErrAPIKeyMissing, cli.ErrInvalidProvider,
		config.ErrInvalidValue, config.ErrUnknownKey, config.ErrNotDirectory, config.ErrNotWritable,
		logging.ErrInvalidLevel, logging.ErrInvalidFormat):
		return ExitSetup

	case isAny(err, cli.ErrFileNotFound, cli.ErrUnsupportedFormat, cli.ErrOutputExists,
		cli.ErrInvalidDuration, cli.ErrEmptyInput, cli.ErrLineMismatch, cli.ErrEmptyMarker, lang.ErrInvalid,
		timeline.ErrEmptyTranscript, timeline.ErrMalformedTranscript, timeline.ErrNoTimestamp,
		timeline.ErrUnsupportedTable, audio.ErrFileNotFound, audio.ErrEmptyFile, audio.ErrInvalidWindow):
		return ExitValidation

	case isAny(err, apierr.ErrRateLimit, apierr.ErrQuotaExceeded, apierr.ErrTimeout,
		apierr.ErrAuthFailed, apierr.ErrBadRequest, apierr.ErrServer, apierr.ErrInvalidResponse):
		return ExitCompletion

	case isAny(err, audio.ErrToolFailed, audio.ErrExtractFailed, audio.ErrNoDuration):
		return ExitMedia
	}

	return ExitGeneral
}

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
