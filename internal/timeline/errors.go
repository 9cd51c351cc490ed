package timeline

import "errors"

// ErrEmptyTranscript indicates the transcript has no words at all.
var ErrEmptyTranscript = errors.New("transcript has no words")

// ErrMalformedTranscript indicates the transcript could not be decoded.
var ErrMalformedTranscript = errors.New("malformed transcript")

// ErrNoTimestamp indicates a leading untimed word has no timed word after it
// in its segment, so no timestamp can be inferred.
var ErrNoTimestamp = errors.New("no timestamp available for word")

// ErrUnsupportedTable indicates the table file extension is not .csv or .xlsx.
var ErrUnsupportedTable = errors.New("unsupported table format")

// ErrMalformedTable indicates a table row could not be parsed.
var ErrMalformedTable = errors.New("malformed table")
