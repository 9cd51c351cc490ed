package audio

import "errors"

// ErrFileNotFound indicates the specified input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrEmptyFile indicates the input file exists but has no content.
var ErrEmptyFile = errors.New("file is empty")

// ErrNoDuration indicates the media tool did not report a usable duration.
var ErrNoDuration = errors.New("audio duration unavailable")

// ErrToolFailed indicates FFmpeg exited with an error during analysis.
var ErrToolFailed = errors.New("ffmpeg failed")

// ErrExtractFailed indicates FFmpeg failed while writing a chunk file.
var ErrExtractFailed = errors.New("chunk extraction failed")

// ErrInvalidWindow indicates the probe window is not shorter than the target length.
var ErrInvalidWindow = errors.New("invalid probe window")
