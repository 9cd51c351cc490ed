package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-subprep/internal/format"
)

// Default segmentation parameters.
const (
	// defaultTargetLength keeps a 16 kHz mono chunk well under typical
	// transcription upload limits.
	defaultTargetLength = 30 * time.Minute

	// defaultProbeWindow is searched on each side of the ideal cut point.
	defaultProbeWindow = 60 * time.Second
)

// Compile-time interface implementation check.
var _ silenceProber = (*SilenceEstimator)(nil)

// silenceProber is what the Segmenter needs from a SilenceEstimator.
type silenceProber interface {
	DetectSilence(ctx context.Context, audioPath string, windowStart, windowEnd time.Duration) ([]time.Duration, error)
	Duration(ctx context.Context, audioPath string) time.Duration
}

// TimeRange is a half-open interval [Start, End) of the source audio.
type TimeRange struct {
	Start time.Duration
	End   time.Duration
}

// Duration returns the length of the range.
func (r TimeRange) Duration() time.Duration {
	return r.End - r.Start
}

// String returns a human-readable representation for logging.
func (r TimeRange) String() string {
	return format.Timestamp(r.Start) + "-" + format.Timestamp(r.End)
}

// Segmenter cuts long audio into contiguous ranges close to a target length,
// preferring cut points where a silence ends.
type Segmenter struct {
	prober       silenceProber
	targetLength time.Duration
	probeWindow  time.Duration
	logger       zerolog.Logger

	statter fileStatter
}

// SegmenterOption configures a Segmenter.
type SegmenterOption func(*Segmenter)

// WithTargetLength sets the ideal range length. Default: 30 minutes.
func WithTargetLength(d time.Duration) SegmenterOption {
	return func(s *Segmenter) { s.targetLength = d }
}

// WithProbeWindow sets how far around the ideal cut silences are searched.
// Default: 60 seconds.
func WithProbeWindow(d time.Duration) SegmenterOption {
	return func(s *Segmenter) { s.probeWindow = d }
}

// WithSegmenterLogger sets the logger.
func WithSegmenterLogger(l zerolog.Logger) SegmenterOption {
	return func(s *Segmenter) { s.logger = l }
}

// WithFileStatter sets the file statter used for the input check.
func WithFileStatter(st fileStatter) SegmenterOption {
	return func(s *Segmenter) { s.statter = st }
}

// NewSegmenter creates a Segmenter backed by prober.
func NewSegmenter(prober silenceProber, opts ...SegmenterOption) (*Segmenter, error) {
	s := &Segmenter{
		prober:       prober,
		targetLength: defaultTargetLength,
		probeWindow:  defaultProbeWindow,
		logger:       zerolog.Nop(),
		statter:      osFileStatter{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.targetLength <= 0 {
		s.targetLength = defaultTargetLength
	}
	if s.probeWindow < 0 {
		s.probeWindow = 0
	}
	if s.probeWindow >= s.targetLength {
		return nil, fmt.Errorf("%w: window %v >= target %v", ErrInvalidWindow, s.probeWindow, s.targetLength)
	}
	s.logger = s.logger.With().Str("component", "segmenter").Logger()

	return s, nil
}

// Segment returns ordered, contiguous ranges whose union is [0, duration).
// Each cut lands on the first silence end past the ideal position inside the
// probe window, or exactly at the ideal position when there is none.
func (s *Segmenter) Segment(ctx context.Context, audioPath string) ([]TimeRange, error) {
	if err := s.checkInput(audioPath); err != nil {
		return nil, err
	}

	duration := s.prober.Duration(ctx, audioPath)
	if duration <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDuration, audioPath)
	}

	var ranges []TimeRange
	pos := time.Duration(0)
	for pos < duration {
		if duration-pos < s.targetLength {
			ranges = append(ranges, TimeRange{Start: pos, End: duration})
			break
		}

		cut, err := s.nextCut(ctx, audioPath, pos, duration)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, TimeRange{Start: pos, End: cut})
		pos = cut
	}

	s.logger.Info().
		Str("file", audioPath).
		Str("duration", format.Timestamp(duration)).
		Int("segments", len(ranges)).
		Msg("audio segmented")

	return ranges, nil
}

// nextCut probes around pos+targetLength and returns the chosen cut.
func (s *Segmenter) nextCut(ctx context.Context, audioPath string, pos, duration time.Duration) (time.Duration, error) {
	windowStart := pos + s.targetLength - s.probeWindow
	windowEnd := min(windowStart+2*s.probeWindow, duration)

	marks, err := s.prober.DetectSilence(ctx, audioPath, windowStart, windowEnd)
	if err != nil {
		return 0, err
	}

	// Offset of the ideal cut from the window start.
	idealOffset := s.targetLength - (windowStart - pos)
	for _, mark := range marks {
		if mark-windowStart > idealOffset {
			cut := min(mark, duration)
			s.logger.Debug().
				Str("cut", format.Timestamp(cut)).
				Msg("cut at silence")
			return cut, nil
		}
	}

	cut := pos + s.targetLength
	s.logger.Debug().
		Str("cut", format.Timestamp(cut)).
		Int("marks", len(marks)).
		Msg("no silence past ideal cut, hard cut")
	return cut, nil
}

// checkInput rejects missing and empty files.
func (s *Segmenter) checkInput(audioPath string) error {
	info, err := s.statter.Stat(audioPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, audioPath)
		}
		return fmt.Errorf("stat %s: %w", audioPath, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, audioPath)
	}
	return nil
}
