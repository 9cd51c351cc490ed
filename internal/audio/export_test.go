package audio

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// ParseSilenceEnds exports parseSilenceEnds for testing.
var ParseSilenceEnds = parseSilenceEnds

// ParseDurationFromFFmpegOutput exports parseDurationFromFFmpegOutput for testing.
var ParseDurationFromFFmpegOutput = parseDurationFromFFmpegOutput

// ParseTimeComponents exports parseTimeComponents for testing.
var ParseTimeComponents = parseTimeComponents

// FormatFFmpegTime exports formatFFmpegTime for testing.
var FormatFFmpegTime = formatFFmpegTime

// OutputTail exports outputTail for testing.
var OutputTail = outputTail

// ChunkEncodingArgs exports chunkEncodingArgs for testing.
var ChunkEncodingArgs = chunkEncodingArgs

// CleanupChunksWith exports cleanupChunks for testing.
var CleanupChunksWith = cleanupChunks

// CommandRunner exports commandRunner interface for testing.
type CommandRunner = commandRunner

// FileStatter exports fileStatter interface for testing.
type FileStatter = fileStatter

// FileSystem exports fileSystem interface for testing.
type FileSystem = fileSystem
