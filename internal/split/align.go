package split

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"

	"github.com/alnah/go-subprep/internal/lang"
)

// Default alignment settings.
const (
	DefaultMarker    = "[br]"
	DefaultThreshold = 0.9
)

// Aligner maps break markers in a retokenized sentence back onto the
// original text.
type Aligner struct {
	marker    string
	language  string
	threshold float64
	logger    zerolog.Logger
}

// AlignerOption configures an Aligner.
type AlignerOption func(*Aligner)

// WithMarker sets the break marker searched for in the modified text.
func WithMarker(m string) AlignerOption {
	return func(a *Aligner) {
		if m != "" {
			a.marker = m
		}
	}
}

// WithAlignerLanguage sets the language whose joiner rebuilds modified parts.
func WithAlignerLanguage(code string) AlignerOption {
	return func(a *Aligner) {
		a.language = code
	}
}

// WithThreshold sets the similarity under which a cut is reported as weak.
func WithThreshold(t float64) AlignerOption {
	return func(a *Aligner) {
		if t > 0 && t <= 1 {
			a.threshold = t
		}
	}
}

// WithAlignerLogger sets the logger.
func WithAlignerLogger(l zerolog.Logger) AlignerOption {
	return func(a *Aligner) {
		a.logger = l
	}
}

// NewAligner creates an Aligner.
func NewAligner(opts ...AlignerOption) *Aligner {
	a := &Aligner{
		marker:    DefaultMarker,
		threshold: DefaultThreshold,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With().Str("component", "aligner").Logger()
	return a
}

// FindSplitPositions returns, for each marker in modified, the rune offset in
// original where the corresponding cut falls. Offsets are strictly searched
// forward from the previous cut; for each boundary the offset whose prefix is
// most similar to the joined modified part wins. Weak matches are logged but
// kept. A boundary with no positive match is skipped.
func (a *Aligner) FindSplitPositions(original, modified string) []int {
	orig := runeStrings(original)
	parts := strings.Split(modified, a.marker)
	joiner := lang.Joiner(a.language)

	var positions []int
	start := 0
	for i := 0; i < len(parts)-1; i++ {
		target := runeStrings(strings.Join(strings.Fields(parts[i]), joiner))

		// seq2 is cached by the matcher, so only the candidate prefix changes.
		m := difflib.NewMatcher(nil, target)
		best, bestRatio := -1, 0.0
		for j := start; j < len(orig); j++ {
			m.SetSeq1(orig[start:j])
			if r := m.Ratio(); r > bestRatio {
				best, bestRatio = j, r
			}
		}

		if best < 0 {
			a.logger.Warn().Int("part", i+1).Msg("no split point found, skipping boundary")
			continue
		}
		if bestRatio < a.threshold {
			a.logger.Warn().
				Int("part", i+1).
				Float64("similarity", bestRatio).
				Msg("low similarity at best split point")
		}
		positions = append(positions, best)
		start = best
	}
	return positions
}

// SplitAt cuts s at the given rune offsets. Offsets that are out of range or
// do not advance are ignored.
func SplitAt(s string, positions []int) []string {
	r := []rune(s)
	var out []string
	prev := 0
	for _, p := range positions {
		if p <= prev || p >= len(r) {
			continue
		}
		out = append(out, string(r[prev:p]))
		prev = p
	}
	return append(out, string(r[prev:]))
}

// runeStrings explodes s into one string per rune, the element type difflib
// compares.
func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
