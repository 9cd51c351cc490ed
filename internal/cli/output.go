package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// createOutput creates path exclusively and fills it with write.
// It fails if the file already exists (O_EXCL), preventing accidental overwrites.
// On write failure, the partial file is removed.
func createOutput(path string, write func(io.Writer) error) error {
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("output file already exists: %s: %w", path, ErrOutputExists)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		if err := write(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write output: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}

	return nil
}

// checkOutputFree fails early with ErrOutputExists when path is taken, so
// slow work is not done for an output createOutput would refuse.
func checkOutputFree(path string) error {
	if _, err := os.Lstat(path); err == nil {
		return fmt.Errorf("output file already exists: %s: %w", path, ErrOutputExists)
	}
	return nil
}

// checkInputFile returns ErrFileNotFound when path does not exist and
// rejects directories.
func checkInputFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input is a directory: %s: %w", path, ErrFileNotFound)
	}
	return nil
}

// deriveOutputPath replaces the extension of inputPath's base name.
// Example: ("talk.json", "", ".xlsx") -> "talk.xlsx"
// Example: ("talk.txt", "_split", ".txt") -> "talk_split.txt"
func deriveOutputPath(inputPath, suffix, ext string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + suffix + ext
}
