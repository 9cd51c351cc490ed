package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alnah/go-subprep/internal/audio"
	"github.com/alnah/go-subprep/internal/config"
	"github.com/alnah/go-subprep/internal/format"
	"github.com/alnah/go-subprep/internal/logging"
)

// supportedFormats lists audio and video containers ffmpeg is expected to read.
var supportedFormats = map[string]bool{
	".ogg":  true,
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".mp4":  true,
	".mkv":  true,
	".mov":  true,
	".mpeg": true,
	".mpga": true,
	".webm": true,
}

// supportedFormatsList returns a sorted, comma-separated list for error messages.
func supportedFormatsList() string {
	formats := make([]string, 0, len(supportedFormats))
	for ext := range supportedFormats {
		formats = append(formats, strings.TrimPrefix(ext, "."))
	}
	slices.Sort(formats)
	return strings.Join(formats, ", ")
}

// segmentOptions holds parsed options for the segment command.
type segmentOptions struct {
	inputPath  string
	output     string
	target     time.Duration // zero: from config
	window     time.Duration // zero: from config
	extractDir string
}

// SegmentCmd creates the segment command.
// The env parameter provides injectable dependencies for testing.
func SegmentCmd(env *Env) *cobra.Command {
	var (
		output     string
		target     string
		window     string
		extractDir string
	)

	cmd := &cobra.Command{
		Use:   "segment <audio-file>",
		Short: "Split long audio into transcription-sized ranges",
		Long: `Split long audio into contiguous time ranges close to a target length.

Each cut is moved to the first point where a silence ends within the probe
window after the ideal position, so words are not cut in half.

Ranges are written as tab-separated rows: index, start, end (seconds).
With --extract-dir, every range is also re-encoded to its own chunk file.

Supported formats: ` + supportedFormatsList(),
		Example: `  subprep segment lecture.m4a
  subprep segment lecture.m4a --target 10m --window 30s -o ranges.tsv
  subprep segment lecture.m4a --extract-dir ./chunks`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseSegmentOptions(args[0], output, target, window, extractDir)
			if err != nil {
				return err
			}
			return runSegment(cmd, env, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write ranges to this file instead of stdout")
	cmd.Flags().StringVar(&target, "target", "", "Target range length, e.g. 30m (default: config segment-length)")
	cmd.Flags().StringVar(&window, "window", "", "Silence probe window, e.g. 60s (default: config probe-window)")
	cmd.Flags().StringVar(&extractDir, "extract-dir", "", "Also write each range as a chunk file in this directory")

	return cmd
}

// parseSegmentOptions validates and parses CLI inputs into segmentOptions.
func parseSegmentOptions(inputPath, output, target, window, extractDir string) (segmentOptions, error) {
	opts := segmentOptions{
		inputPath:  inputPath,
		output:     output,
		extractDir: extractDir,
	}

	var err error
	if opts.target, err = parseOptionalDuration("--target", target); err != nil {
		return segmentOptions{}, err
	}
	if opts.window, err = parseOptionalDuration("--window", window); err != nil {
		return segmentOptions{}, err
	}
	return opts, nil
}

// parseOptionalDuration parses a positive duration. Empty input returns zero.
func parseOptionalDuration(flag, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s %q: %w (use e.g. 30m, 90s)", flag, s, ErrInvalidDuration)
	}
	return d, nil
}

// runSegment executes the segmentation pipeline.
// Validation order: file exists -> format -> config -> output free -> ffmpeg
func runSegment(cmd *cobra.Command, env *Env, opts segmentOptions) error {
	ctx := cmd.Context()
	logger := env.Logger.With().Str(logging.FieldCommand, "segment").Logger()

	// === VALIDATION (fail-fast) ===

	if err := checkInputFile(opts.inputPath); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(opts.inputPath))
	if !supportedFormats[ext] {
		return fmt.Errorf("unsupported format %q (supported: %s): %w",
			ext, supportedFormatsList(), ErrUnsupportedFormat)
	}

	cfg, err := env.ConfigStore.Load()
	if err != nil {
		return err
	}
	target := orDuration(opts.target, cfg.SegmentLength)
	window := orDuration(opts.window, cfg.ProbeWindow)

	output := opts.output
	if output != "" {
		output = config.ResolveOutputPath(output, cfg.OutputDir, output)
		if err := checkOutputFree(output); err != nil {
			return err
		}
	}

	// === SETUP ===

	ffmpegPath, err := env.FFmpegResolver.Resolve(ctx)
	if err != nil {
		return err
	}
	env.FFmpegResolver.CheckVersion(ctx, ffmpegPath)

	segmenter, err := env.AudioFactory.NewSegmenter(ffmpegPath, SegmentSettings{
		TargetLength: target,
		ProbeWindow:  window,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	// === SEGMENT ===

	fmt.Fprintf(env.Stderr, "Detecting silences (target %s, window %s)...\n",
		format.DurationHuman(target), format.DurationHuman(window))

	ranges, err := segmenter.Segment(ctx, opts.inputPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stderr, "Segmented into %d ranges\n", len(ranges))

	var chunks []audio.Chunk
	if opts.extractDir != "" {
		if chunks, err = extractRanges(cmd, env, logger, ffmpegPath, opts, ranges); err != nil {
			return err
		}
	}

	// === WRITE OUTPUT ===

	if err := writeRangesOutput(env, output, ranges); err != nil {
		// Chunks without their range list are useless.
		if cerr := audio.CleanupChunks(chunks); cerr != nil {
			logger.Warn().Err(cerr).Msg("failed to remove extracted chunks")
		}
		return err
	}
	return nil
}

// writeRangesOutput writes the range table to output, or to Stdout when empty.
func writeRangesOutput(env *Env, output string, ranges []audio.TimeRange) error {
	if output == "" {
		return writeRanges(env.Stdout, ranges)
	}
	if err := createOutput(output, func(w io.Writer) error {
		return writeRanges(w, ranges)
	}); err != nil {
		return err
	}
	fmt.Fprintf(env.Stderr, "Done: %s\n", output)
	return nil
}

// extractRanges writes every range to a chunk file under opts.extractDir.
func extractRanges(cmd *cobra.Command, env *Env, logger zerolog.Logger, ffmpegPath string, opts segmentOptions, ranges []audio.TimeRange) ([]audio.Chunk, error) {
	extractor, err := env.AudioFactory.NewExtractor(ffmpegPath, logger)
	if err != nil {
		return nil, err
	}

	dir := config.ExpandPath(opts.extractDir)
	fmt.Fprintf(env.Stderr, "Extracting %d chunks to %s...\n", len(ranges), dir)

	chunks, err := extractor.Extract(cmd.Context(), opts.inputPath, ranges, dir)
	if err != nil {
		return nil, err
	}
	for _, c := range chunks {
		logger.Debug().Int("index", c.Index).Str("path", c.Path).Stringer("range", c.TimeRange).Msg("chunk written")
	}
	fmt.Fprintf(env.Stderr, "Extracted %d chunks\n", len(chunks))
	return chunks, nil
}

// writeRanges writes one "index\tstart\tend" row per range, in seconds.
func writeRanges(w io.Writer, ranges []audio.TimeRange) error {
	for i, r := range ranges {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\n", i, format.Seconds(r.Start), format.Seconds(r.End)); err != nil {
			return err
		}
	}
	return nil
}

// orDuration returns flag when set, else fallback.
func orDuration(flag, fallback time.Duration) time.Duration {
	if flag > 0 {
		return flag
	}
	return fallback
}
