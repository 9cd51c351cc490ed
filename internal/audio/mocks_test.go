package audio_test

import (
	"context"
	"io/fs"
	"os"
	"slices"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Mocks for testing
// ---------------------------------------------------------------------------

type mockCommandRunner struct {
	outputFunc func(ctx context.Context, name string, args []string) ([]byte, error)
	calls      []mockCall
}

type mockCall struct {
	name string
	args []string
}

func (m *mockCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	m.calls = append(m.calls, mockCall{name: name, args: args})
	if m.outputFunc != nil {
		return m.outputFunc(ctx, name, args)
	}
	return nil, nil
}

type mockFileStatter struct {
	size int64
	err  error
}

func (m *mockFileStatter) Stat(name string) (os.FileInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &mockFileInfo{size: m.size}, nil
}

type mockFileInfo struct {
	size int64
}

func (m *mockFileInfo) Name() string       { return "mock.ogg" }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() os.FileMode  { return 0o644 }
func (m *mockFileInfo) ModTime() time.Time { return time.Time{} }
func (m *mockFileInfo) IsDir() bool        { return false }
func (m *mockFileInfo) Sys() any           { return nil }

type mockFileSystem struct {
	mu       sync.Mutex
	mkdirErr error
	dirs     []string
	removed  []string
}

func (m *mockFileSystem) MkdirAll(path string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs = append(m.dirs, path)
	return m.mkdirErr
}

func (m *mockFileSystem) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, name)
	return nil
}

func (m *mockFileSystem) wasRemoved(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.removed, name)
}

// fakeProber serves a fixed duration and per-window silence marks.
type fakeProber struct {
	duration time.Duration
	marks    []time.Duration // absolute silence_end positions in the whole file
	err      error
	windows  [][2]time.Duration
}

func (f *fakeProber) Duration(ctx context.Context, audioPath string) time.Duration {
	return f.duration
}

func (f *fakeProber) DetectSilence(ctx context.Context, audioPath string, start, end time.Duration) ([]time.Duration, error) {
	f.windows = append(f.windows, [2]time.Duration{start, end})
	if f.err != nil {
		return nil, f.err
	}
	var out []time.Duration
	for _, m := range f.marks {
		if m >= start && m <= end {
			out = append(out, m)
		}
	}
	return out, nil
}

var notExistErr = &fs.PathError{Op: "stat", Path: "/missing.m4a", Err: fs.ErrNotExist}
