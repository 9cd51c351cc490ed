package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/alnah/go-subprep/internal/ffmpeg"
)

// chunkDirPerm is the permission mode for the chunk output directory.
const chunkDirPerm = 0o750

// Chunk is one extracted range written to its own file.
// The caller is responsible for cleaning up chunk files after use.
type Chunk struct {
	TimeRange
	Path  string // Path to the chunk file.
	Index int    // Zero-based index for ordering.
}

// String returns a human-readable representation for logging.
func (c Chunk) String() string {
	return fmt.Sprintf("chunk %d: %s", c.Index, c.TimeRange)
}

// Extractor writes TimeRanges of a source file to re-encoded chunk files.
type Extractor struct {
	ffmpegPath string
	logger     zerolog.Logger

	cmd   commandRunner
	files fileSystem
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithExtractorCommandRunner sets the command runner for Extractor.
func WithExtractorCommandRunner(r commandRunner) ExtractorOption {
	return func(e *Extractor) { e.cmd = r }
}

// WithExtractorFileSystem sets the file system for Extractor.
func WithExtractorFileSystem(fsys fileSystem) ExtractorOption {
	return func(e *Extractor) { e.files = fsys }
}

// WithExtractorLogger sets the logger for Extractor.
func WithExtractorLogger(l zerolog.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an Extractor for the given FFmpeg binary.
func NewExtractor(ffmpegPath string, opts ...ExtractorOption) (*Extractor, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ffmpeg.ErrNotFound)
	}

	e := &Extractor{
		ffmpegPath: ffmpegPath,
		logger:     zerolog.Nop(),
		cmd:        osCommandRunner{},
		files:      osFileSystem{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("component", "extractor").Logger()

	return e, nil
}

// Extract writes one chunk_NNN.ogg per range into dir.
// On failure the partial file and every chunk already written are removed.
func (e *Extractor) Extract(ctx context.Context, audioPath string, ranges []TimeRange, dir string) ([]Chunk, error) {
	if err := e.files.MkdirAll(dir, chunkDirPerm); err != nil {
		return nil, fmt.Errorf("create chunk directory: %w", err)
	}

	chunks := make([]Chunk, 0, len(ranges))
	for i, r := range ranges {
		chunkPath := filepath.Join(dir, fmt.Sprintf("chunk_%03d.ogg", i))
		if err := e.extractChunk(ctx, audioPath, chunkPath, r); err != nil {
			_ = e.files.Remove(chunkPath) // best-effort cleanup; original error takes precedence
			for _, c := range chunks {
				_ = e.files.Remove(c.Path)
			}
			return nil, err
		}

		chunk := Chunk{TimeRange: r, Path: chunkPath, Index: i}
		e.logger.Debug().Str("chunk", chunk.String()).Msg("chunk written")
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// chunkEncodingArgs returns FFmpeg encoding arguments for chunk extraction.
// Re-encodes to OGG Vorbis to ensure valid output even from corrupted/truncated sources.
// 16kHz mono at ~50kbps is enough for speech recognition.
func chunkEncodingArgs() []string {
	return []string{
		"-c:a", "libvorbis",
		"-ar", "16000",
		"-ac", "1",
		"-q:a", "2",
	}
}

// extractChunk extracts one range from audioPath to chunkPath using FFmpeg.
func (e *Extractor) extractChunk(ctx context.Context, audioPath, chunkPath string, r TimeRange) error {
	args := []string{
		"-y",
		"-i", audioPath,
		"-ss", formatFFmpegTime(r.Start),
		"-to", formatFFmpegTime(r.End),
	}
	args = append(args, chunkEncodingArgs()...)
	args = append(args, chunkPath)

	output, err := e.cmd.CombinedOutput(ctx, e.ffmpegPath, args)
	if err != nil {
		return fmt.Errorf("%w: %s: %v\nOutput: %s",
			ErrExtractFailed, chunkPath, err, outputTail(string(output), outputTailLines))
	}
	return nil
}

// CleanupChunks removes all chunk files, then their directory if it is empty.
func CleanupChunks(chunks []Chunk) error {
	return cleanupChunks(osFileSystem{}, chunks)
}

func cleanupChunks(fsys fileSystem, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	var firstErr error
	for _, c := range chunks {
		if err := fsys.Remove(c.Path); err != nil && !errors.Is(err, fs.ErrNotExist) && firstErr == nil {
			firstErr = err
		}
	}
	// Removing a directory that still has other files fails, which is what we want.
	_ = fsys.Remove(filepath.Dir(chunks[0].Path))
	return firstErr
}
