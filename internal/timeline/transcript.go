// Package timeline turns a word-level transcription result into a flat,
// fully timed word sequence and persists it as rows of (text, start, end).
package timeline

import (
	"encoding/json"
	"fmt"
	"io"
)

// RawWord is a recognized word. Start and End are in seconds and may be
// missing when the recognizer could not align the word.
type RawWord struct {
	Text  string   `json:"word"`
	Start *float64 `json:"start,omitempty"`
	End   *float64 `json:"end,omitempty"`
}

// RawSegment is an ordered group of words as emitted by the recognizer.
type RawSegment struct {
	Text  string    `json:"text,omitempty"`
	Words []RawWord `json:"words"`
}

// Transcript is the recognizer output consumed by the Reconstructor.
type Transcript struct {
	Language string       `json:"language,omitempty"`
	Segments []RawSegment `json:"segments"`
}

// WordCount returns the number of words across all segments.
func (t Transcript) WordCount() int {
	n := 0
	for _, s := range t.Segments {
		n += len(s.Words)
	}
	return n
}

// TimedWord is a word with both timestamps resolved, in seconds.
type TimedWord struct {
	Text  string
	Start float64
	End   float64
}

// Duration returns End-Start. It is negative for inverted input intervals.
func (w TimedWord) Duration() float64 {
	return w.End - w.Start
}

// LoadTranscript decodes a JSON transcript:
//
//	{"language": "en", "segments": [{"words": [{"word": "hi", "start": 0.1, "end": 0.4}]}]}
func LoadTranscript(r io.Reader) (Transcript, error) {
	var t Transcript
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return Transcript{}, fmt.Errorf("%w: %v", ErrMalformedTranscript, err)
	}
	if t.WordCount() == 0 {
		return Transcript{}, ErrEmptyTranscript
	}
	return t, nil
}
