package prompt

import "errors"

// ErrUnknown indicates an invalid prompt name was specified.
var ErrUnknown = errors.New("unknown prompt")

// ErrEmptyInput indicates the sentence to embed in a prompt is empty.
var ErrEmptyInput = errors.New("prompt input is empty")
