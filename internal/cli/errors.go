package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrAPIKeyMissing indicates the provider's API key environment variable is not set.
	ErrAPIKeyMissing = errors.New("API key environment variable not set")

	// ErrInvalidDuration indicates a duration string could not be parsed.
	ErrInvalidDuration = errors.New("invalid duration format")

	// ErrUnsupportedFormat indicates an audio file has an unsupported extension.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrFileNotFound indicates the specified input file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrOutputExists indicates the output file already exists.
	ErrOutputExists = errors.New("output file already exists")

	// ErrEmptyInput indicates an input file with no usable content.
	ErrEmptyInput = errors.New("input file is empty")

	// ErrLineMismatch indicates paired text files with different line counts.
	ErrLineMismatch = errors.New("line counts differ")

	// ErrEmptyMarker indicates an empty --marker flag.
	ErrEmptyMarker = errors.New("cut marker cannot be empty")
)
