package split

import "errors"

// ErrNoCompleter indicates a Splitter was built without a completion service.
var ErrNoCompleter = errors.New("completer is required")

// ErrInvalidLength indicates a non-positive maximum sentence length.
var ErrInvalidLength = errors.New("max length must be positive")

// ErrNoSeparator indicates the service answer lacks the separator.
var ErrNoSeparator = errors.New("response does not contain separator")

// ErrBadSplit indicates the service answer is not two non-empty parts of the
// original sentence.
var ErrBadSplit = errors.New("response is not a two-part split of the sentence")
