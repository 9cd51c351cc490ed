package timeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// defaultMaxWordRunes is the longest word kept; longer tokens are
// recognition artifacts such as URLs or run-together garbage.
const defaultMaxWordRunes = 20

// quoteStripper removes guillemets, which recognizers emit as standalone
// tokens or glued to French and Russian words.
var quoteStripper = strings.NewReplacer("«", "", "»", "")

// Reconstructor repairs missing per-word timestamps.
type Reconstructor struct {
	maxWordRunes int
	logger       zerolog.Logger
}

// Option configures a Reconstructor.
type Option func(*Reconstructor)

// WithMaxWordRunes sets the longest word, in characters, that is kept.
func WithMaxWordRunes(n int) Option {
	return func(r *Reconstructor) { r.maxWordRunes = n }
}

// WithLogger sets the logger that receives dropped-word and inversion warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Reconstructor) { r.logger = l }
}

// NewReconstructor creates a Reconstructor.
func NewReconstructor(opts ...Option) *Reconstructor {
	r := &Reconstructor{
		maxWordRunes: defaultMaxWordRunes,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxWordRunes <= 0 {
		r.maxWordRunes = defaultMaxWordRunes
	}
	r.logger = r.logger.With().Str("component", "timeline").Logger()
	return r
}

// Reconstruct flattens segments into timed words, in input order.
//
// Over-long words are dropped. A word without timestamps takes the previous
// word's end as both start and end; the very first such word instead borrows
// the timestamps of the next fully timed word in its segment, and fails with
// ErrNoTimestamp if there is none. A word with only an end starts at the
// previous word's end, or 0.
func (r *Reconstructor) Reconstruct(segments []RawSegment) ([]TimedWord, error) {
	var out []TimedWord

	for si, seg := range segments {
		for wi, w := range seg.Words {
			if n := utf8.RuneCountInString(w.Text); n > r.maxWordRunes {
				r.logger.Warn().
					Str("word", w.Text).
					Int("runes", n).
					Int("segment", si).
					Msg("dropping over-length word")
				continue
			}

			text := quoteStripper.Replace(w.Text)

			var tw TimedWord
			switch {
			case w.Start == nil && w.End == nil:
				if len(out) > 0 {
					prevEnd := out[len(out)-1].End
					tw = TimedWord{Text: text, Start: prevEnd, End: prevEnd}
					break
				}
				next, ok := nextTimed(seg.Words[wi+1:])
				if !ok {
					return nil, fmt.Errorf("%w: %q in segment %d", ErrNoTimestamp, w.Text, si)
				}
				tw = TimedWord{Text: text, Start: *next.Start, End: *next.End}

			case w.Start == nil:
				start := 0.0
				if len(out) > 0 {
					start = out[len(out)-1].End
				}
				tw = TimedWord{Text: text, Start: start, End: *w.End}
				if tw.Start > tw.End {
					r.logger.Warn().
						Str("word", text).
						Float64("start", tw.Start).
						Float64("end", tw.End).
						Msg("inverted word interval")
				}

			case w.End == nil:
				tw = TimedWord{Text: text, Start: *w.Start, End: *w.Start}

			default:
				tw = TimedWord{Text: text, Start: *w.Start, End: *w.End}
			}

			out = append(out, tw)
		}
	}

	return out, nil
}

// nextTimed returns the first word carrying both timestamps.
func nextTimed(words []RawWord) (RawWord, bool) {
	for _, w := range words {
		if w.Start != nil && w.End != nil {
			return w, true
		}
	}
	return RawWord{}, false
}

// Reconstruct runs a default Reconstructor over segments.
func Reconstruct(segments []RawSegment) ([]TimedWord, error) {
	return NewReconstructor().Reconstruct(segments)
}
