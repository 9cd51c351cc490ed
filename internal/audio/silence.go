package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-subprep/internal/ffmpeg"
)

// Silence detection parameters.
const (
	// defaultNoiseDB is the silence detection threshold in dB.
	// -30dB is suitable for voice recordings with typical background noise.
	defaultNoiseDB = -30.0

	// defaultMinSilence is the minimum silence duration to detect.
	// 0.5s catches natural pauses in speech without over-splitting.
	defaultMinSilence = 500 * time.Millisecond

	// outputTailLines bounds how much FFmpeg output is attached to errors.
	outputTailLines = 20
)

var (
	silenceEndRe = regexp.MustCompile(`silence_end:\s*([\d.]+)`)
	durationRe   = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)
)

// SilenceEstimator wraps FFmpeg to report audio duration and the
// timestamps at which silences end inside a window.
type SilenceEstimator struct {
	ffmpegPath string
	noiseDB    float64
	minSilence time.Duration
	logger     zerolog.Logger

	cmd commandRunner
}

// SilenceOption configures a SilenceEstimator.
type SilenceOption func(*SilenceEstimator)

// WithNoiseDB sets the silence detection threshold in dB.
// Lower values (more negative) detect quieter sounds as silence.
func WithNoiseDB(db float64) SilenceOption {
	return func(se *SilenceEstimator) { se.noiseDB = db }
}

// WithMinSilence sets the minimum silence duration to detect.
func WithMinSilence(d time.Duration) SilenceOption {
	return func(se *SilenceEstimator) { se.minSilence = d }
}

// WithCommandRunner sets the command runner.
func WithCommandRunner(r commandRunner) SilenceOption {
	return func(se *SilenceEstimator) { se.cmd = r }
}

// WithLogger sets the logger used for recoverable failures.
func WithLogger(l zerolog.Logger) SilenceOption {
	return func(se *SilenceEstimator) { se.logger = l }
}

// NewSilenceEstimator creates a SilenceEstimator for the given FFmpeg binary.
func NewSilenceEstimator(ffmpegPath string, opts ...SilenceOption) (*SilenceEstimator, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ffmpeg.ErrNotFound)
	}

	se := &SilenceEstimator{
		ffmpegPath: ffmpegPath,
		noiseDB:    defaultNoiseDB,
		minSilence: defaultMinSilence,
		logger:     zerolog.Nop(),
		cmd:        osCommandRunner{},
	}
	for _, opt := range opts {
		opt(se)
	}
	se.logger = se.logger.With().Str("component", "silence").Logger()

	return se, nil
}

// DetectSilence runs silencedetect over [windowStart, windowEnd] and returns
// every silence_end mark in output order. Marks are absolute positions in the
// source audio. A single FFmpeg invocation is made per call.
func (se *SilenceEstimator) DetectSilence(ctx context.Context, audioPath string, windowStart, windowEnd time.Duration) ([]time.Duration, error) {
	output, err := se.cmd.CombinedOutput(ctx, se.ffmpegPath, se.silenceArgs(audioPath, windowStart, windowEnd))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: silencedetect on %s [%s-%s]: %v\nOutput: %s",
			ErrToolFailed, audioPath,
			formatFFmpegTime(windowStart), formatFFmpegTime(windowEnd),
			err, outputTail(string(output), outputTailLines))
	}

	marks := parseSilenceEnds(string(output))
	se.logger.Debug().
		Str("window_start", formatFFmpegTime(windowStart)).
		Str("window_end", formatFFmpegTime(windowEnd)).
		Int("marks", len(marks)).
		Msg("silence probe")

	return marks, nil
}

// silenceArgs builds the FFmpeg arguments for a windowed silencedetect pass.
func (se *SilenceEstimator) silenceArgs(audioPath string, windowStart, windowEnd time.Duration) []string {
	return []string{
		"-y",
		"-i", audioPath,
		"-ss", formatFFmpegTime(windowStart),
		"-to", formatFFmpegTime(windowEnd),
		"-af", fmt.Sprintf("silencedetect=n=%sdB:d=%s",
			strconv.FormatFloat(se.noiseDB, 'f', -1, 64),
			strconv.FormatFloat(se.minSilence.Seconds(), 'f', -1, 64)),
		"-f", "null",
		"-",
	}
}

// Duration returns the total duration reported by FFmpeg for audioPath.
// Failures are logged and reported as 0; they never surface as errors.
func (se *SilenceEstimator) Duration(ctx context.Context, audioPath string) time.Duration {
	// "ffmpeg -i <file>" with no output exits non-zero but still prints the
	// input header, so the exit status is ignored when there is output.
	output, err := se.cmd.CombinedOutput(ctx, se.ffmpegPath, []string{"-i", audioPath})
	if err != nil && len(output) == 0 {
		se.logger.Error().Err(err).Str("file", audioPath).Msg("failed to run ffmpeg for duration")
		return 0
	}

	d, err := parseDurationFromFFmpegOutput(string(output))
	if err != nil {
		se.logger.Error().Err(err).Str("file", audioPath).Msg("failed to get audio duration")
		return 0
	}
	return d
}

// parseSilenceEnds extracts silence_end timestamps from silencedetect output.
// FFmpeg outputs lines like:
//
//	[silencedetect @ 0x...] silence_start: 42.123
//	[silencedetect @ 0x...] silence_end: 43.456 | silence_duration: 1.333
func parseSilenceEnds(output string) []time.Duration {
	var marks []time.Duration
	for line := range strings.SplitSeq(output, "\n") {
		matches := silenceEndRe.FindStringSubmatch(line)
		if matches == nil {
			continue
		}
		seconds, err := strconv.ParseFloat(matches[1], 64)
		if err != nil {
			continue
		}
		marks = append(marks, secondsToDuration(seconds))
	}
	return marks
}

// parseDurationFromFFmpegOutput extracts "Duration: HH:MM:SS.ms" from FFmpeg stderr.
func parseDurationFromFFmpegOutput(output string) (time.Duration, error) {
	matches := durationRe.FindStringSubmatch(output)
	if matches == nil {
		return 0, errors.New("could not parse duration from ffmpeg output")
	}
	return parseTimeComponents(matches[1], matches[2], matches[3], matches[4])
}

// parseTimeComponents converts HH:MM:SS.ms strings to Duration.
func parseTimeComponents(hours, minutes, seconds, fractional string) (time.Duration, error) {
	h, err := strconv.Atoi(hours)
	if err != nil {
		return 0, fmt.Errorf("invalid hours %q: %w", hours, err)
	}
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, fmt.Errorf("invalid minutes %q: %w", minutes, err)
	}
	s, err := strconv.Atoi(seconds)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds %q: %w", seconds, err)
	}

	// Normalize fractional part to milliseconds.
	// Input may be 1-6+ digits (e.g., ".4", ".45", ".456", ".456789").
	if len(fractional) > 3 {
		fractional = fractional[:3]
	}
	frac, err := strconv.Atoi(fractional)
	if err != nil {
		return 0, fmt.Errorf("invalid fraction %q: %w", fractional, err)
	}
	ms := frac
	switch len(fractional) {
	case 1:
		ms = frac * 100
	case 2:
		ms = frac * 10
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// secondsToDuration converts FFmpeg's decimal seconds, rounding to the nanosecond.
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds * float64(time.Second)))
}

// formatFFmpegTime formats a duration for FFmpeg -ss/-to arguments.
func formatFFmpegTime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := d.Seconds() - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}

// outputTail returns the last n lines of FFmpeg output.
func outputTail(output string, n int) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
